// Package config loads CLI configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds tool configuration.
type Config struct {
	// PrivateKeyPath is the PEM file holding the issuer signing key.
	PrivateKeyPath string `yaml:"private_key_path"`
	// PublicKeyPath is the PEM file holding the issuer public key.
	PublicKeyPath string `yaml:"public_key_path"`
	// DatabaseDriver selects the receipt store backend: sqlite or postgres.
	DatabaseDriver string `yaml:"database_driver"`
	// DatabaseDSN is the driver-specific connection string.
	DatabaseDSN string `yaml:"database_dsn"`
	// DefaultMode is the operating mode used when none is given.
	DefaultMode string `yaml:"default_mode"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		PrivateKeyPath: "symbi_private.pem",
		PublicKeyPath:  "symbi_public.pem",
		DatabaseDriver: "sqlite",
		DatabaseDSN:    "symbi_receipts.db",
		DefaultMode:    "constitutional",
	}
}

// Load reads configuration from path (if it exists) over the defaults,
// then applies environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SYMBI_PRIVATE_KEY"); v != "" {
		cfg.PrivateKeyPath = v
	}
	if v := os.Getenv("SYMBI_PUBLIC_KEY"); v != "" {
		cfg.PublicKeyPath = v
	}
	if v := os.Getenv("SYMBI_DB_DRIVER"); v != "" {
		cfg.DatabaseDriver = v
	}
	if v := os.Getenv("SYMBI_DB_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("SYMBI_DEFAULT_MODE"); v != "" {
		cfg.DefaultMode = v
	}
}
