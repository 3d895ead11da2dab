package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithPath(t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}

	if cfg.Server.Port != 8719 {
		t.Errorf("expected default server.port 8719, got %d", cfg.Server.Port)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("expected empty default nats.url, got %q", cfg.NATS.URL)
	}
	if cfg.Chat.PollInterval() != 50*time.Millisecond {
		t.Errorf("expected 50ms poll interval, got %v", cfg.Chat.PollInterval())
	}
	if cfg.Chat.StartupTimeout() != 120*time.Second {
		t.Errorf("expected 120s startup timeout, got %v", cfg.Chat.StartupTimeout())
	}
	if cfg.Chat.DeadProcessGracePeriod() != 2*time.Second {
		t.Errorf("expected 2s grace period, got %v", cfg.Chat.DeadProcessGracePeriod())
	}
	if cfg.Chat.RunDir == "" {
		t.Error("expected non-empty default run dir")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9100
chat:
  runDir: /tmp/jean-test-runs
  pollIntervalMS: 25
  binaries:
    kimi: /opt/kimi/bin/kimi
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadWithPath(dir)
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("expected server.port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Chat.RunDir != "/tmp/jean-test-runs" {
		t.Errorf("unexpected runDir: %q", cfg.Chat.RunDir)
	}
	if cfg.Chat.PollInterval() != 25*time.Millisecond {
		t.Errorf("expected 25ms poll interval, got %v", cfg.Chat.PollInterval())
	}
	if got := cfg.Chat.Binaries["kimi"]; got != "/opt/kimi/bin/kimi" {
		t.Errorf("unexpected kimi binary override: %q", got)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging.level debug, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 0
chat:
  pollIntervalMS: -1
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadWithPath(dir); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}
