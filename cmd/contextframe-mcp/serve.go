package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/contextframeai/contextframe-mcp/internal/config"
	"github.com/contextframeai/contextframe-mcp/internal/dataset/memref"
	"github.com/contextframeai/contextframe-mcp/internal/integration"
	"github.com/contextframeai/contextframe-mcp/internal/logging"
	"github.com/contextframeai/contextframe-mcp/internal/monitoring"
	"github.com/contextframeai/contextframe-mcp/internal/tools"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
	"github.com/contextframeai/contextframe-mcp/pkg/mcp/stdio"
)

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, loggerSync, err := newServerLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer loggerSync()
	logger = logger.With(baseLoggerFields(cfg)...)

	ds := memref.New()

	wired, err := tools.Wire(cfg, ds, logger)
	if err != nil {
		return fmt.Errorf("failed to wire tools: %w", err)
	}
	logger.Info("tools registered", zap.Int("tool_count", wired.Tools.Count()))

	wired.Collector.Start(ctx)
	defer wired.Collector.Stop(context.Background())

	wired.Perf.Start(ctx)
	defer wired.Perf.Stop()

	bridge, err := monitoring.NewOTelBridge(otel.GetMeterProvider().Meter("contextframe-mcp"), wired.Collector)
	if err != nil {
		logger.Warn("failed to initialize OTel metrics bridge, dual-write disabled", zap.Error(err))
	} else {
		go bridge.Run(ctx, cfg.Monitoring.OTelPushInterval())
	}

	dispatcher := mcp.NewDispatcher(wired.Tools, wired.Resources, mcp.ServerInfo{Name: "contextframe-mcp", Version: version}, logger)
	dispatcher.DefaultToolTimeout = cfg.Server.DefaultToolTimeout
	dispatcher.OnShutdown = func(shutdownCtx context.Context) {
		wired.Perf.Stop()
		wired.Collector.Stop(shutdownCtx)
	}

	var handler mcp.Handler = integration.New(dispatcher, wired.Perf, wired.Usage, wired.Cost, cfg.Providers.EnhanceModel, logger)
	handler = mcp.NewRateLimited(handler, cfg.Server.RequestRateLimit, cfg.Server.RequestRateBurst)

	switch cfg.Server.Transport {
	case "http":
		return serveHTTP(ctx, cfg, handler, logger)
	default:
		return serveStdio(ctx, handler, logger)
	}
}

func serveStdio(ctx context.Context, handler mcp.Handler, logger *zap.Logger) error {
	logger.Info("listening on stdio")
	srv := stdio.NewServer(handler, os.Stdin, os.Stdout, logger)
	return srv.Serve(ctx)
}

func serveHTTP(ctx context.Context, cfg *config.Config, handler mcp.Handler, logger *zap.Logger) error {
	srv := mcp.NewServer(handler, logger)
	logger.Info("listening on http", zap.String("addr", cfg.Server.HTTPAddr))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Server.HTTPAddr) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Echo().Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newServerLogger builds the process logger, returning a sync func to defer.
//
// The stdio transport writes JSON-RPC responses to stdout one line at a
// time; a log line interleaved on stdout would corrupt the wire protocol.
// So stdio deployments get a plain zap logger pointed at stderr instead of
// going through internal/logging's shared stdout-or-otel pipeline, which
// assumes it owns stdout. HTTP deployments have no such conflict and use
// the full pipeline (redaction, sampling, optional OTel log export).
func newServerLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	if cfg.Server.Transport == "stdio" {
		zapCfg := zap.NewProductionConfig()
		zapCfg.OutputPaths = []string{"stderr"}
		zapCfg.ErrorOutputPaths = []string{"stderr"}
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err := zapCfg.Build()
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Sync() }, nil
	}

	logCfg := logging.NewDefaultConfig()
	l, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return l.Underlying(), func() { _ = l.Sync() }, nil
}
