package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 10000, cfg.Monitoring.MaxMemoryMetrics)
	assert.Equal(t, 60, cfg.Monitoring.FlushIntervalSeconds)
	assert.Equal(t, "json", cfg.Monitoring.ExportFormat)
	assert.Equal(t, 0.0005, cfg.Pricing.LLMPricing["openai:gpt-3.5-turbo"].InputCostPer1K)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Providers.EmbedModel)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config is valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid transport",
			mutate: func(c *Config) {
				c.Server.Transport = "carrier-pigeon"
			},
			wantErr: true,
		},
		{
			name: "http transport requires valid addr",
			mutate: func(c *Config) {
				c.Server.Transport = "http"
				c.Server.HTTPAddr = "not a host port"
			},
			wantErr: true,
		},
		{
			name: "http transport with valid addr",
			mutate: func(c *Config) {
				c.Server.Transport = "http"
				c.Server.HTTPAddr = "localhost:8090"
			},
			wantErr: false,
		},
		{
			name: "zero shutdown timeout",
			mutate: func(c *Config) {
				c.Server.ShutdownTimeout = 0
			},
			wantErr: true,
		},
		{
			name: "zero max workers",
			mutate: func(c *Config) {
				c.Dataset.MaxWorkers = 0
			},
			wantErr: true,
		},
		{
			name: "path traversal in dataset path",
			mutate: func(c *Config) {
				c.Dataset.Path = "../../etc/passwd"
			},
			wantErr: true,
		},
		{
			name: "invalid export format",
			mutate: func(c *Config) {
				c.Monitoring.ExportFormat = "xml"
			},
			wantErr: true,
		},
		{
			name: "negative pricing rejected",
			mutate: func(c *Config) {
				c.Pricing.LLMPricing["openai:gpt-4"] = LLMPricing{InputCostPer1K: -1}
			},
			wantErr: true,
		},
		{
			name: "invalid TEI base URL scheme",
			mutate: func(c *Config) {
				c.Providers.TEIAPIBase = "ftp://example.com"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProvidersConfig_Enabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProvidersConfig
		want bool
	}{
		{"no model configured", ProvidersConfig{}, false},
		{
			name: "openai model without key",
			cfg:  ProvidersConfig{EnhanceModel: "openai:gpt-4"},
			want: false,
		},
		{
			name: "openai model with key",
			cfg:  ProvidersConfig{EnhanceModel: "openai:gpt-4", OpenAIAPIKey: Secret("sk-test")},
			want: true,
		},
		{
			name: "anthropic model without key",
			cfg:  ProvidersConfig{EnhanceModel: "anthropic:claude-3-sonnet"},
			want: false,
		},
		{
			name: "anthropic model with key",
			cfg:  ProvidersConfig{EnhanceModel: "anthropic:claude-3-sonnet", AnthropicKey: Secret("sk-ant-test")},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Enabled())
		})
	}
}

func TestProductionConfig_Validate(t *testing.T) {
	t.Run("disabled skips validation", func(t *testing.T) {
		c := &ProductionConfig{Enabled: false, RequireTLS: true, LocalModeAcknowledged: true}
		assert.NoError(t, c.Validate())
	})

	t.Run("local mode cannot bypass required tls", func(t *testing.T) {
		c := &ProductionConfig{Enabled: true, RequireTLS: true, LocalModeAcknowledged: true}
		assert.Error(t, c.Validate())
	})

	t.Run("production without local override is fine", func(t *testing.T) {
		c := &ProductionConfig{Enabled: true, RequireTLS: true}
		assert.NoError(t, c.Validate())
	})
}

func TestLoadWithFile_EnvironmentDoesNotBypassPathValidation(t *testing.T) {
	originalEnv := saveEnv()
	defer restoreEnv(originalEnv)

	os.Clearenv()
	t.Setenv("SERVER_TRANSPORT", "http")
	t.Setenv("SERVER_HTTP_ADDR", "0.0.0.0:9999")
	t.Setenv("MONITORING_ENABLED", "false")

	cfg, err := LoadWithFile("/nonexistent/path/config.yaml")
	require.Error(t, err) // path outside allowed dirs is rejected
	_ = cfg
}

func saveEnv() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		k, v, _ := strings.Cut(e, "=")
		env[k] = v
	}
	return env
}

func restoreEnv(env map[string]string) {
	os.Clearenv()
	for k, v := range env {
		os.Setenv(k, v)
	}
}
