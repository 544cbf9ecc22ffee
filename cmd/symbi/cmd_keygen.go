package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/s8ken/SYMBI-Symphony/pkg/audit"
	"github.com/s8ken/SYMBI-Symphony/pkg/crypto"
)

var keygenBits int

func init() {
	keygenCmd.Flags().IntVar(&keygenBits, "bits", crypto.DefaultKeySize, "RSA key size in bits")
	rootCmd.AddCommand(keygenCmd)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an issuer keypair and write it to the configured PEM paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		signer, verifier, err := crypto.GenerateKeyPair(keygenBits)
		if err != nil {
			return err
		}

		privPEM, err := signer.PrivateKeyPEM()
		if err != nil {
			return err
		}
		pubPEM, err := verifier.PublicKeyPEM()
		if err != nil {
			return err
		}

		if err := os.WriteFile(cfg.PrivateKeyPath, privPEM, 0600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}
		if err := os.WriteFile(cfg.PublicKeyPath, pubPEM, 0644); err != nil {
			return fmt.Errorf("write public key: %w", err)
		}

		_ = audit.NewLogger().Record(audit.EventKeygen, "", map[string]interface{}{
			"bits":    keygenBits,
			"private": cfg.PrivateKeyPath,
			"public":  cfg.PublicKeyPath,
		})
		return nil
	},
}
