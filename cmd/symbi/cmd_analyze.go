package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s8ken/SYMBI-Symphony/pkg/analyze"
	"github.com/s8ken/SYMBI-Symphony/pkg/chain"
)

var analyzeSession string

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSession, "session", "", "session ID (required)")
	_ = analyzeCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a session's receipts for CIQ trends and insights",
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

		receipts, err := db.LoadChain(context.Background(), analyzeSession)
		if err != nil {
			return err
		}

		c := chain.New(analyzeSession, nil)
		if err := c.Import(receipts); err != nil {
			return err
		}

		analysis, err := analyze.NewAnalyzer().AnalyzeSession(c)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
