package config

import "testing"

func TestProductionConfig_DefaultsDisabled(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Production.Enabled {
		t.Error("Production.Enabled = true, want false (disabled by default)")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default production config should validate, got: %v", err)
	}
}

func TestProductionConfig_EnabledRequiresValidCombination(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Production.Enabled = true
	cfg.Production.RequireTLS = true

	if err := cfg.Validate(); err != nil {
		t.Errorf("production mode without local override should validate, got: %v", err)
	}

	cfg.Production.LocalModeAcknowledged = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error: local mode acknowledgment cannot bypass require_tls in production")
	}
}
