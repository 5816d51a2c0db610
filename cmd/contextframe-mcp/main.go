// Command contextframe-mcp starts the ContextFrame MCP server: a
// content-addressed document store exposed over JSON-RPC 2.0 for MCP
// agents, with LLM-backed enrichment, analytics, and monitoring tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contextframeai/contextframe-mcp/internal/config"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "contextframe-mcp",
		Short:         "ContextFrame MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default: ~/.config/contextframe-mcp/config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	defer cancel()

	root.SetContext(ctx)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "contextframe-mcp:", err)
		os.Exit(1)
	}
}

// loadConfig resolves configPath (possibly empty, meaning the default
// location) into a validated Config, creating the config directory on first
// run so operators have somewhere to drop config.yaml.
func loadConfig(configPath string) (*config.Config, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("failed to prepare config directory: %w", err)
	}
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// baseLoggerFields are attached to every log line emitted by this binary.
func baseLoggerFields(cfg *config.Config) []zap.Field {
	return []zap.Field{
		zap.String("transport", cfg.Server.Transport),
		zap.Bool("monitoring_enabled", cfg.Monitoring.Enabled),
	}
}
