package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.Database.Driver)
	}
	if cfg.Token.RewardRate != 1000 {
		t.Fatalf("expected default reward rate 1000, got %d", cfg.Token.RewardRate)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9090
token:
  admin: ops-admin
  reward_rate: 250
  expiry_interval: 1m
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TOKEN_SERVER_PORT", "9999")
	t.Setenv("TOKEN_VAULT_ADDRESS", "vault.custom")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("env override lost: port %d", cfg.Server.Port)
	}
	if cfg.Token.Admin != "ops-admin" {
		t.Fatalf("yaml value lost: admin %q", cfg.Token.Admin)
	}
	if cfg.Token.ExpiryInterval != time.Minute {
		t.Fatalf("expected 1m expiry interval, got %s", cfg.Token.ExpiryInterval)
	}
	if cfg.Token.VaultAddress != "vault.custom" {
		t.Fatalf("env override lost: vault %q", cfg.Token.VaultAddress)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: postgres\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for postgres driver without dsn")
	}
}
