package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"database_driver: postgres\ndatabase_dsn: postgres://localhost/symbi\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://localhost/symbi", cfg.DatabaseDSN)
	// untouched keys fall back to defaults
	assert.Equal(t, "symbi_private.pem", cfg.PrivateKeyPath)
	assert.Equal(t, "constitutional", cfg.DefaultMode)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_mode: directive\n"), 0o644))

	t.Setenv("SYMBI_DEFAULT_MODE", "hybrid")
	t.Setenv("SYMBI_DB_DSN", "/tmp/receipts.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hybrid", cfg.DefaultMode)
	assert.Equal(t, "/tmp/receipts.db", cfg.DatabaseDSN)
}

func TestEmptyPathSkipsFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}
