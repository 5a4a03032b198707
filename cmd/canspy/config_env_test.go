package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	cfg := baseConfig()

	os.Setenv("CANSPY_RATE", "250")
	os.Setenv("CANSPY_MODE", "normal")
	os.Setenv("CANSPY_MDNS_ENABLE", "true")
	os.Setenv("CANSPY_POLL_INTERVAL", "20ms")
	t.Cleanup(func() {
		os.Unsetenv("CANSPY_RATE")
		os.Unsetenv("CANSPY_MODE")
		os.Unsetenv("CANSPY_MDNS_ENABLE")
		os.Unsetenv("CANSPY_POLL_INTERVAL")
	})

	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if cfg.rateKbps != 250 {
		t.Errorf("rate = %d, want 250", cfg.rateKbps)
	}
	if cfg.mode != "normal" {
		t.Errorf("mode = %q, want normal", cfg.mode)
	}
	if !cfg.mdnsEnable {
		t.Error("mdnsEnable not applied")
	}
	if cfg.pollInterval != 20*time.Millisecond {
		t.Errorf("pollInterval = %v, want 20ms", cfg.pollInterval)
	}
}

func TestApplyEnvOverrides_FlagWins(t *testing.T) {
	cfg := baseConfig()
	cfg.rateKbps = 500

	os.Setenv("CANSPY_RATE", "250")
	t.Cleanup(func() { os.Unsetenv("CANSPY_RATE") })

	set := map[string]struct{}{"rate": {}}
	if err := applyEnvOverrides(cfg, set); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if cfg.rateKbps != 500 {
		t.Errorf("explicit flag overridden by env: rate = %d", cfg.rateKbps)
	}
}

func TestApplyEnvOverrides_BadValue(t *testing.T) {
	cfg := baseConfig()

	os.Setenv("CANSPY_POLL_INTERVAL", "soon")
	t.Cleanup(func() { os.Unsetenv("CANSPY_POLL_INTERVAL") })

	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestApplyEnvOverrides_EmptyIgnored(t *testing.T) {
	cfg := baseConfig()

	os.Setenv("CANSPY_MODE", "")
	t.Cleanup(func() { os.Unsetenv("CANSPY_MODE") })

	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if cfg.mode != "listen-only" {
		t.Errorf("empty env replaced mode: %q", cfg.mode)
	}
}
