package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxOutboundCalls != 2 {
		t.Errorf("MaxOutboundCalls = %d, want 2", cfg.MaxOutboundCalls)
	}
	if cfg.MaxInboundCalls != 1 {
		t.Errorf("MaxInboundCalls = %d, want 1", cfg.MaxInboundCalls)
	}
	if cfg.RingsBeforeGreeting != 4 {
		t.Errorf("RingsBeforeGreeting = %d, want 4", cfg.RingsBeforeGreeting)
	}
	if len(cfg.EmergencyNumbers) != 2 || cfg.EmergencyNumbers[0] != "911" {
		t.Errorf("EmergencyNumbers = %v, want [911 988]", cfg.EmergencyNumbers)
	}
	if cfg.DeviceType != "videophone" {
		t.Errorf("DeviceType = %q, want %q", cfg.DeviceType, "videophone")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RELAY_URL", "https://relay.test/api")
	t.Setenv("DEVICE_TOKEN", "tok-42")
	t.Setenv("MAX_OUTBOUND_CALLS", "5")
	t.Setenv("EMERGENCY_NUMBERS", "911,112,999")
	t.Setenv("RELAY_DEV", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RelayURL != "https://relay.test/api" {
		t.Errorf("RelayURL = %q", cfg.RelayURL)
	}
	if cfg.DeviceToken != "tok-42" {
		t.Errorf("DeviceToken = %q, want tok-42", cfg.DeviceToken)
	}
	if cfg.MaxOutboundCalls != 5 {
		t.Errorf("MaxOutboundCalls = %d, want 5", cfg.MaxOutboundCalls)
	}
	if len(cfg.EmergencyNumbers) != 3 {
		t.Errorf("EmergencyNumbers = %v, want 3 entries", cfg.EmergencyNumbers)
	}
	if !cfg.RelayDev {
		t.Error("RelayDev = false, want true")
	}
}

func TestLoadMissingEnvFileFails(t *testing.T) {
	t.Setenv("ENV_FILE", "/nonexistent/.env")
	if _, err := Load(); err == nil {
		t.Error("Load() with missing ENV_FILE succeeded, want error")
	}
}
