// Package config provides configuration loading for the ContextFrame MCP server.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables, with sensible defaults for every field. This package supports
// transport, dataset, monitoring, pricing, and provider-credential settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"
)

// Config holds the complete ContextFrame MCP server configuration.
type Config struct {
	Server     ServerConfig
	Dataset    DatasetConfig
	Monitoring MonitoringConfig
	Pricing    PricingConfig
	Providers  ProvidersConfig
	Production ProductionConfig
}

// ServerConfig holds MCP transport configuration.
type ServerConfig struct {
	// Transport selects the MCP wire transport: "stdio" or "http".
	Transport string `koanf:"transport"`

	// HTTPAddr is the listen address when Transport is "http".
	HTTPAddr string `koanf:"http_addr"`

	// ShutdownTimeout bounds graceful shutdown when draining in-flight calls.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestRateLimit caps JSON-RPC requests per second, enforced by one
	// limiter shared by every client on both transports.
	// Zero disables rate limiting.
	RequestRateLimit float64 `koanf:"request_rate_limit"`

	// RequestRateBurst is the token bucket burst size for RequestRateLimit.
	RequestRateBurst int `koanf:"request_rate_burst"`

	// DefaultToolTimeout bounds a single tools/call dispatch when the
	// incoming request doesn't already carry a deadline.
	DefaultToolTimeout time.Duration `koanf:"default_tool_timeout"`
}

// DatasetConfig holds the reference dataset implementation's configuration.
type DatasetConfig struct {
	// Path names an on-disk dataset location. It is validated but not read
	// by the server: the binary always serves the in-memory reference
	// store, so nothing is loaded from or written to this path.
	// Default: ~/.config/contextframe-mcp/dataset
	Path string `koanf:"path"`

	// MaxWorkers bounds the worker pool used for blocking dataset calls.
	MaxWorkers int `koanf:"max_workers"`

	// OperationTimeout is loaded from config but not applied by any code;
	// dataset calls are not given a per-operation deadline of their own.
	OperationTimeout time.Duration `koanf:"operation_timeout"`
}

// MonitoringConfig holds the metrics collector's configuration.
//
// Mirrors the original implementation's MetricsConfig: bounded, in-memory
// ring buffers flushed on an interval, with a hard cap on retained samples.
type MonitoringConfig struct {
	Enabled              bool          `koanf:"enabled"`
	MaxMemoryMetrics     int           `koanf:"max_memory_metrics"`
	FlushIntervalSeconds int           `koanf:"flush_interval_seconds"`
	RetentionDays        int           `koanf:"retention_days"`
	AggregationIntervals []string      `koanf:"aggregation_intervals"`
	ExportFormat         string        `koanf:"export_format"` // "json", "prometheus", "csv"
	otelPushInterval     time.Duration // unexported: not surfaced via koanf; zero selects the 15s default
}

// OTelPushInterval returns the fixed interval at which monitoring.OTelBridge
// pushes dual-write OTel counters (15s unless otelPushInterval is set).
func (c MonitoringConfig) OTelPushInterval() time.Duration {
	if c.otelPushInterval == 0 {
		return 15 * time.Second
	}
	return c.otelPushInterval
}

// PricingConfig holds LLM, storage, and bandwidth pricing used by the cost
// calculator (C10). Structurally mirrors the original's PricingConfig so a
// pricing file produced by the Python implementation can be dropped in.
type PricingConfig struct {
	// ConfigPath, if set, is watched via fsnotify and hot-reloaded.
	ConfigPath string `koanf:"config_path"`

	LLMPricing     map[string]LLMPricing `koanf:"llm_pricing"`
	StoragePricing StoragePricing        `koanf:"storage_pricing"`
	BandwidthPerGB float64               `koanf:"bandwidth_per_gb"`
}

// LLMPricing holds per-1000-token costs for a single "provider:model" key.
type LLMPricing struct {
	InputCostPer1K  float64 `koanf:"input_cost_per_1k"`
	OutputCostPer1K float64 `koanf:"output_cost_per_1k"`
}

// StoragePricing holds per-operation storage costs.
type StoragePricing struct {
	ReadCostPerOp   float64 `koanf:"read_cost_per_op"`
	WriteCostPerOp  float64 `koanf:"write_cost_per_op"`
	DeleteCostPerOp float64 `koanf:"delete_cost_per_op"`
}

// ProvidersConfig holds credentials and model selection for the enhancement
// and extraction tool collaborators (C12).
type ProvidersConfig struct {
	OpenAIAPIKey  Secret `koanf:"openai_api_key"`
	CohereAPIKey  Secret `koanf:"cohere_api_key"`
	VoyageAPIKey  Secret `koanf:"voyage_api_key"`
	AnthropicKey  Secret `koanf:"anthropic_api_key"`
	TEIAPIBase    string `koanf:"tei_api_base"`
	TEIAPIKey     Secret `koanf:"tei_api_key"`
	EmbedModel    string `koanf:"embed_model"`
	EnhanceModel  string `koanf:"enhance_model"`
	CallTimeout   time.Duration `koanf:"call_timeout"`
	RateLimitRPS  float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int          `koanf:"rate_limit_burst"`
}

// Enabled reports whether enhancement/extraction tools have enough
// configuration to register. Mirrors the original's graceful-degradation
// check: missing model or API key skips registration rather than failing.
func (c ProvidersConfig) Enabled() bool {
	if c.EnhanceModel == "" {
		return false
	}
	if strings.HasPrefix(c.EnhanceModel, "anthropic:") {
		return c.AnthropicKey.IsSet()
	}
	return c.OpenAIAPIKey.IsSet()
}

// ProductionConfig holds production deployment safety checks.
type ProductionConfig struct {
	Enabled               bool `koanf:"enabled"`
	LocalModeAcknowledged bool `koanf:"local_mode_acknowledged"`
	RequireTLS            bool `koanf:"require_tls"`
}

// IsProduction returns true if running in production mode.
func (c *ProductionConfig) IsProduction() bool {
	return c.Enabled
}

// Validate checks production configuration for security issues.
func (c *ProductionConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequireTLS && c.LocalModeAcknowledged {
		return fmt.Errorf("SECURITY: local_mode_acknowledged cannot bypass require_tls in production")
	}
	return nil
}

// NewDefaultConfig returns a Config populated with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:          "stdio",
			HTTPAddr:           ":8090",
			ShutdownTimeout:    10 * time.Second,
			RequestRateLimit:   50,
			RequestRateBurst:   100,
			DefaultToolTimeout: 30 * time.Second,
		},
		Dataset: DatasetConfig{
			Path:             "~/.config/contextframe-mcp/dataset",
			MaxWorkers:       8,
			OperationTimeout: 30 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Enabled:              true,
			MaxMemoryMetrics:     10000,
			FlushIntervalSeconds: 60,
			RetentionDays:        30,
			AggregationIntervals: []string{"1m", "5m", "1h", "1d"},
			ExportFormat:         "json",
		},
		Pricing: PricingConfig{
			LLMPricing: map[string]LLMPricing{
				"openai:gpt-4":             {InputCostPer1K: 0.03, OutputCostPer1K: 0.06},
				"openai:gpt-3.5-turbo":     {InputCostPer1K: 0.0005, OutputCostPer1K: 0.0015},
				"anthropic:claude-3-opus":  {InputCostPer1K: 0.015, OutputCostPer1K: 0.075},
				"anthropic:claude-3-sonnet": {InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
				"cohere:command":           {InputCostPer1K: 0.0015, OutputCostPer1K: 0.002},
			},
			StoragePricing: StoragePricing{
				ReadCostPerOp:   0.0000004,
				WriteCostPerOp:  0.000002,
				DeleteCostPerOp: 0,
			},
			BandwidthPerGB: 0.09,
		},
		Providers: ProvidersConfig{
			TEIAPIBase:     "http://localhost:8080",
			EmbedModel:     "BAAI/bge-small-en-v1.5",
			EnhanceModel:   "",
			CallTimeout:    30 * time.Second,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid SERVER_TRANSPORT: %q (must be 'stdio' or 'http')", c.Server.Transport)
	}

	if c.Server.Transport == "http" {
		if err := validateHostPort(c.Server.HTTPAddr); err != nil {
			return fmt.Errorf("invalid SERVER_HTTP_ADDR: %w", err)
		}
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Server.DefaultToolTimeout <= 0 {
		return errors.New("default tool timeout must be positive")
	}

	if c.Dataset.MaxWorkers <= 0 {
		return fmt.Errorf("DATASET_MAX_WORKERS must be positive, got %d", c.Dataset.MaxWorkers)
	}

	if err := validatePath(c.Dataset.Path); err != nil {
		return fmt.Errorf("invalid DATASET_PATH: %w", err)
	}

	if c.Monitoring.Enabled {
		if c.Monitoring.MaxMemoryMetrics <= 0 {
			return fmt.Errorf("MONITORING_MAX_MEMORY_METRICS must be positive, got %d", c.Monitoring.MaxMemoryMetrics)
		}
		if c.Monitoring.FlushIntervalSeconds <= 0 {
			return fmt.Errorf("MONITORING_FLUSH_INTERVAL_SECONDS must be positive, got %d", c.Monitoring.FlushIntervalSeconds)
		}
		switch c.Monitoring.ExportFormat {
		case "json", "prometheus", "csv":
		default:
			return fmt.Errorf("invalid MONITORING_EXPORT_FORMAT: %q (must be json, prometheus, or csv)", c.Monitoring.ExportFormat)
		}
	}

	for key, p := range c.Pricing.LLMPricing {
		if p.InputCostPer1K < 0 || p.OutputCostPer1K < 0 {
			return fmt.Errorf("negative pricing for %q is not allowed", key)
		}
	}

	if c.Providers.TEIAPIBase != "" {
		if err := validateURL(c.Providers.TEIAPIBase); err != nil {
			return fmt.Errorf("invalid PROVIDERS_TEI_API_BASE: %w", err)
		}
	}

	if err := c.Production.Validate(); err != nil {
		return fmt.Errorf("production config validation failed: %w", err)
	}

	return nil
}

// validateHostPort checks if a host:port is safe (no command injection attempts).
func validateHostPort(addr string) error {
	if addr == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}
	return validateHostname(host)
}

// validateHostname checks if a hostname is safe (no command injection attempts).
// Uses positive validation with net.ParseIP for IP addresses and regexp for hostnames.
func validateHostname(host string) error {
	if host == "" {
		return nil
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format: %s", host)
	}

	invalidChars := []string{";", "\n", "\r", "$", "`", "|", "&", "<", ">", "(", ")"}
	for _, char := range invalidChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("invalid hostname: contains forbidden character %q", char)
		}
	}
	return nil
}

// validatePath checks if a path is safe (no path traversal).
func validatePath(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains traversal sequence: %s", path)
	}
	return nil
}

// validateURL checks if a URL uses allowed schemes (http/https only).
func validateURL(urlStr string) error {
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return fmt.Errorf("URL must use http:// or https:// scheme, got: %s", urlStr)
	}
	return nil
}
