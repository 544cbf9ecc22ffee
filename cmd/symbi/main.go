// Command symbi manages trust receipt chains: key generation, recording
// interactions, verification, export, and analysis.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s8ken/SYMBI-Symphony/pkg/config"
	"github.com/s8ken/SYMBI-Symphony/pkg/store"

	_ "github.com/lib/pq" // Postgres driver
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "symbi",
	Short:        "Tamper-evident trust receipt chains for AI interactions",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var level slog.Level
		switch strings.ToLower(logLevel) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "symbi.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore selects the receipt store backend from configuration.
func openStore(cfg *config.Config) (store.ReceiptStore, func(), error) {
	switch cfg.DatabaseDriver {
	case "", "sqlite":
		s, err := store.OpenSQLite(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		s, err := store.NewPostgresStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}
