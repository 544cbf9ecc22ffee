package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/s8ken/SYMBI-Symphony/pkg/audit"
)

var (
	exportSession string
	exportOut     string
)

func init() {
	exportCmd.Flags().StringVar(&exportSession, "session", "", "session ID (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (stdout when omitted)")
	_ = exportCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sessionsCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session's receipt chain as an ordered JSON array",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		receipts, err := db.LoadChain(context.Background(), exportSession)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(receipts, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal chain: %w", err)
		}

		if exportOut == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		} else if err := os.WriteFile(exportOut, out, 0644); err != nil {
			return fmt.Errorf("write chain: %w", err)
		}

		_ = audit.NewLogger().Record(audit.EventExport, exportSession, map[string]interface{}{
			"receipts": len(receipts),
			"out":      exportOut,
		})
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions with stored receipts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		sessions, err := db.Sessions(context.Background())
		if err != nil {
			return err
		}
		for _, id := range sessions {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}
