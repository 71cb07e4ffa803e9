package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen_addr: %q", cfg.ListenAddr)
	}
	if cfg.Scan.Interval != 15*time.Minute {
		t.Fatalf("scan interval: %v", cfg.Scan.Interval)
	}
	if cfg.Scan.WifiTimeout != 60*time.Second {
		t.Fatalf("wifi timeout: %v", cfg.Scan.WifiTimeout)
	}
	if cfg.SessionGap != 30*time.Minute {
		t.Fatalf("session gap: %v", cfg.SessionGap)
	}
	if len(cfg.Scan.WifiCommand) == 0 {
		t.Fatalf("expected a default wifi command")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SIGINT_DB_HOST", "db.internal")
	t.Setenv("SIGINT_LISTEN_ADDR", ":9090")
	t.Setenv("SIGINT_SCAN_INTERVAL", "5m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Host != "db.internal" {
		t.Fatalf("db host: %q", cfg.DB.Host)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("listen_addr: %q", cfg.ListenAddr)
	}
	if cfg.Scan.Interval != 5*time.Minute {
		t.Fatalf("scan interval: %v", cfg.Scan.Interval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
