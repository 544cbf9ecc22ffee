package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/s8ken/SYMBI-Symphony/pkg/audit"
	"github.com/s8ken/SYMBI-Symphony/pkg/crypto"
	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
	"github.com/s8ken/SYMBI-Symphony/pkg/store"
)

// interactionFile is the JSON document the record command consumes.
type interactionFile struct {
	Mode        string                 `json:"mode"`
	Inputs      map[string]interface{} `json:"inputs"`
	Constraints map[string]interface{} `json:"constraints"`
	Outcome     map[string]interface{} `json:"outcome"`
	CIQMetrics  receipt.CIQMetrics     `json:"ciq_metrics"`
	Metadata    map[string]interface{} `json:"metadata"`
}

var (
	recordSession string
	recordFile    string
)

func init() {
	recordCmd.Flags().StringVar(&recordSession, "session", "", "session ID (new UUID when omitted)")
	recordCmd.Flags().StringVar(&recordFile, "file", "", "interaction JSON file (required)")
	_ = recordCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Sign an interaction and append its receipt to the session chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(recordFile)
		if err != nil {
			return fmt.Errorf("read interaction: %w", err)
		}
		var in interactionFile
		if err := json.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("parse interaction: %w", err)
		}

		modeStr := in.Mode
		if modeStr == "" {
			modeStr = cfg.DefaultMode
		}
		mode, err := receipt.ParseMode(modeStr)
		if err != nil {
			return err
		}

		keyPEM, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("read private key: %w", err)
		}
		signer, err := crypto.LoadPrivateKeyPEM(keyPEM)
		if err != nil {
			return err
		}
		generator := receipt.NewGenerator(signer)

		db, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		sessionID := recordSession
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		ctx := context.Background()
		previousHash := receipt.SentinelHash
		last, err := db.LastForSession(ctx, sessionID)
		switch {
		case err == nil:
			previousHash = last.SelfHash
		case errors.Is(err, store.ErrNotFound):
			// chain head
		default:
			return err
		}

		r, err := generator.Generate(sessionID, mode, in.Inputs, in.Constraints, in.Outcome, in.CIQMetrics, previousHash, in.Metadata)
		if err != nil {
			return err
		}
		if err := db.Append(ctx, r); err != nil {
			return err
		}

		_ = audit.NewLogger().Record(audit.EventAppend, sessionID, map[string]interface{}{
			"self_hash": r.SelfHash,
			"mode":      string(r.Mode),
		})

		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
