package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/s8ken/SYMBI-Symphony/pkg/audit"
	"github.com/s8ken/SYMBI-Symphony/pkg/crypto"
	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
	"github.com/s8ken/SYMBI-Symphony/pkg/validate"
)

var (
	verifySession string
	verifyFile    string
)

func init() {
	verifyCmd.Flags().StringVar(&verifySession, "session", "", "validate the stored chain for this session")
	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "validate an exported chain JSON file instead")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-derive and check every integrity property of a receipt chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if (verifySession == "") == (verifyFile == "") {
			return fmt.Errorf("exactly one of --session or --file is required")
		}

		keyPEM, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return fmt.Errorf("read public key: %w", err)
		}
		verifier, err := crypto.LoadPublicKeyPEM(keyPEM)
		if err != nil {
			return err
		}
		validator, err := validate.New(verifier)
		if err != nil {
			return err
		}

		var receipts []*receipt.TrustReceipt
		sessionID := verifySession
		if verifyFile != "" {
			data, err := os.ReadFile(verifyFile)
			if err != nil {
				return fmt.Errorf("read chain: %w", err)
			}
			if err := json.Unmarshal(data, &receipts); err != nil {
				return fmt.Errorf("parse chain: %w", err)
			}
			if len(receipts) > 0 {
				sessionID = receipts[0].SessionID
			}
		} else {
			db, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			receipts, err = db.LoadChain(context.Background(), verifySession)
			if err != nil {
				return err
			}
		}

		report := validator.ValidateChain(receipts)
		_ = audit.NewLogger().Record(audit.EventValidate, sessionID, map[string]interface{}{
			"receipts": len(receipts),
			"valid":    report.Valid,
			"issues":   len(report.Issues),
		})

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if !report.Valid {
			return fmt.Errorf("chain invalid: %d issue(s)", len(report.Issues))
		}
		return nil
	},
}
