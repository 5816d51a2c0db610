// Package config provides configuration loading for the ContextFrame MCP server.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_TRANSPORT, MONITORING_ENABLED, etc.)
//  2. YAML config file (~/.config/contextframe-mcp/config.yaml)
//  3. Hardcoded defaults
//
// The configPath parameter specifies the YAML file to load. If empty, uses
// the default path: ~/.config/contextframe-mcp/config.yaml
//
// # Security Considerations
//
// File Permissions: Configuration file MUST have 0600 permissions (owner
// read/write only). Files with weaker permissions (e.g. 0644 world-readable)
// are rejected.
//
// Path Validation: Only configuration files in allowed directories can be
// loaded:
//   - ~/.config/contextframe-mcp/ (user's config directory)
//   - /etc/contextframe-mcp/ (system-wide config directory)
//
// Absolute paths outside these directories are rejected to prevent path
// traversal attacks.
//
// File Size Limit: Configuration files larger than 1MB are rejected to
// prevent resource exhaustion attacks.
//
// # Environment Variable Mapping
//
// Environment variables use underscore separator and are uppercased. The
// transformer maps environment variables to YAML field names:
//
//	SERVER_TRANSPORT -> server.transport
//	MONITORING_ENABLED -> monitoring.enabled
//	PROVIDERS_OPENAI_API_KEY -> providers.openai_api_key
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "contextframe-mcp", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open file once and validate using file descriptor to avoid TOCTOU race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}

		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyTransformer), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envKeyTransformer maps environment variables to dotted koanf keys.
//
// Strategy: split on the first underscore only (section.field_name
// pattern), so SERVER_REQUEST_RATE_LIMIT becomes server.request_rate_limit
// rather than server.request.rate.limit.
func envKeyTransformer(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// EnsureConfigDir creates the ContextFrame MCP config directory if it
// doesn't exist. Called during startup so new installs have a config
// directory ready. Created with 0700 permissions (owner rwx only).
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "contextframe-mcp")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	return nil
}

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// Symlink evaluation fails for paths that don't exist yet; fall
		// back to the absolute path so new configs can still validate.
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "contextframe-mcp"),
		"/etc/contextframe-mcp",
	}

	allowed := false
	for _, dir := range allowedDirs {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			allowed = true
			break
		}
	}

	if !allowed {
		return fmt.Errorf("config file must be in ~/.config/contextframe-mcp/ or /etc/contextframe-mcp/")
	}

	return nil
}

// validateConfigFileProperties checks file permissions and size.
// This validation only runs if the file exists. Takes FileInfo from an
// already-opened file descriptor to avoid TOCTOU race.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}

// PricingWatcher hot-reloads PricingConfig from a YAML file whenever it
// changes on disk, mirroring the original implementation's
// PricingConfig.from_file used for operator-tunable cost models without a
// server restart.
type PricingWatcher struct {
	mu      sync.RWMutex
	current PricingConfig
	watcher *fsnotify.Watcher
	path    string
	onErr   func(error)
}

// NewPricingWatcher loads the pricing file at path and begins watching it
// for changes. If path is empty, the watcher holds initial and never
// updates. onErr, if non-nil, receives reload failures; a failed reload
// keeps the previously loaded pricing in effect.
func NewPricingWatcher(path string, initial PricingConfig, onErr func(error)) (*PricingWatcher, error) {
	pw := &PricingWatcher{current: initial, path: path, onErr: onErr}
	if path == "" {
		return pw, nil
	}

	if err := pw.reload(); err != nil {
		return nil, fmt.Errorf("initial pricing load failed: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create pricing file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch pricing file directory: %w", err)
	}
	pw.watcher = w

	go pw.watch()

	return pw, nil
}

// Current returns the most recently loaded pricing configuration.
func (pw *PricingWatcher) Current() PricingConfig {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.current
}

// Close stops watching the pricing file.
func (pw *PricingWatcher) Close() error {
	if pw.watcher == nil {
		return nil
	}
	return pw.watcher.Close()
}

func (pw *PricingWatcher) watch() {
	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(pw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := pw.reload(); err != nil && pw.onErr != nil {
				pw.onErr(err)
			}
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			if pw.onErr != nil {
				pw.onErr(err)
			}
		}
	}
}

func (pw *PricingWatcher) reload() error {
	if err := validateConfigFileSafe(pw.path); err != nil {
		return err
	}

	content, err := os.ReadFile(pw.path)
	if err != nil {
		return fmt.Errorf("failed to read pricing file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse pricing file: %w", err)
	}

	var pricing PricingConfig
	if err := k.Unmarshal("", &pricing); err != nil {
		return fmt.Errorf("failed to unmarshal pricing config: %w", err)
	}

	pw.mu.Lock()
	pw.current = pricing
	pw.mu.Unlock()
	return nil
}

// validateConfigFileSafe re-applies the same permission/size checks as
// LoadWithFile for files reloaded outside the initial load path.
func validateConfigFileSafe(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat pricing file: %w", err)
	}
	return validateConfigFileProperties(info)
}
