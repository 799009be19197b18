package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/textbook-vault/internal/cli"
	"github.com/cloo-solutions/textbook-vault/internal/cli/vault"
)

func main() {
	rootCmd := vault.CheckCmd()
	rootCmd.Use = "vaultcheck"
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	cli.AddHelpJSONFlag(rootCmd)

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
