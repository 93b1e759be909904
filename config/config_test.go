package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.AdapterAlias != "NodeNav" {
		t.Errorf("AdapterAlias = %q, want NodeNav", cfg.AdapterAlias)
	}
	if cfg.ScanWindow != 30*time.Second {
		t.Errorf("ScanWindow = %s, want 30s", cfg.ScanWindow)
	}
	if cfg.LogDir != "/var/nodenav" {
		t.Errorf("LogDir = %q, want /var/nodenav", cfg.LogDir)
	}
	if cfg.ConnectivityHost != "1.1.1.1" {
		t.Errorf("ConnectivityHost = %q, want 1.1.1.1", cfg.ConnectivityHost)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("NODENAV_LISTEN_ADDR", ":9090")
	t.Setenv("NODENAV_SCAN_WINDOW_SECONDS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.ScanWindow != 10*time.Second {
		t.Errorf("ScanWindow = %s, want 10s", cfg.ScanWindow)
	}
}
