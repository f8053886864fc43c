// Package config loads the daemon configuration. Values come from three
// layers, each overriding the previous: built-in defaults, an optional YAML
// file, and environment variables (a .env file is honoured when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Token    TokenConfig    `yaml:"token"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host" env:"TOKEN_SERVER_HOST"`
	Port int    `yaml:"port" env:"TOKEN_SERVER_PORT"`
}

// DatabaseConfig selects the storage backend. Driver is "memory" or
// "postgres"; DSN is required for postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"TOKEN_DB_DRIVER"`
	DSN    string `yaml:"dsn" env:"TOKEN_DB_DSN"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"TOKEN_LOG_LEVEL"`
	Format string `yaml:"format" env:"TOKEN_LOG_FORMAT"`
}

// TokenConfig carries the engine settings.
type TokenConfig struct {
	Admin          string        `yaml:"admin" env:"TOKEN_ADMIN"`
	VaultAddress   string        `yaml:"vault_address" env:"TOKEN_VAULT_ADDRESS"`
	RewardRate     uint64        `yaml:"reward_rate" env:"TOKEN_REWARD_RATE"`
	ExpiryInterval time.Duration `yaml:"expiry_interval" env:"TOKEN_EXPIRY_INTERVAL"`
	AuditFile      string        `yaml:"audit_file" env:"TOKEN_AUDIT_FILE"`
}

// UnmarshalYAML accepts Go duration strings for expiry_interval and leaves
// fields absent from the document untouched.
func (t *TokenConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Admin          *string `yaml:"admin"`
		VaultAddress   *string `yaml:"vault_address"`
		RewardRate     *uint64 `yaml:"reward_rate"`
		ExpiryInterval *string `yaml:"expiry_interval"`
		AuditFile      *string `yaml:"audit_file"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.Admin != nil {
		t.Admin = *aux.Admin
	}
	if aux.VaultAddress != nil {
		t.VaultAddress = *aux.VaultAddress
	}
	if aux.RewardRate != nil {
		t.RewardRate = *aux.RewardRate
	}
	if aux.ExpiryInterval != nil {
		d, err := time.ParseDuration(*aux.ExpiryInterval)
		if err != nil {
			return fmt.Errorf("parse expiry_interval: %w", err)
		}
		t.ExpiryInterval = d
	}
	if aux.AuditFile != nil {
		t.AuditFile = *aux.AuditFile
	}
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Token: TokenConfig{
			Admin:          "admin",
			VaultAddress:   "escrow.vault",
			RewardRate:     1000,
			ExpiryInterval: 30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (missing
// file is not an error when the path is the default), and the environment.
func Load(path string) (Config, error) {
	// convenience for local development; absence is normal
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func applyEnv(cfg *Config) error {
	for _, section := range []interface{}{&cfg.Server, &cfg.Database, &cfg.Logging, &cfg.Token} {
		if err := envdecode.Decode(section); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return fmt.Errorf("decode environment: %w", err)
		}
	}
	return nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Token.Admin == "" {
		return fmt.Errorf("token admin address is required")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
