package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"twapOracle/internal/signer"
)

func runKeygen(cmd *cobra.Command, _ []string) error {
	keys, err := signer.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "SECRET_KEY=%s\n", keys.SecretKeyHex())
	fmt.Fprintf(out, "PUBLIC_KEY=%s\n", keys.PublicKeyHex())
	return nil
}
