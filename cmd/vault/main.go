package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/textbook-vault/internal/cli"
	"github.com/cloo-solutions/textbook-vault/internal/cli/vault"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "vault",
		Short: "Textbook vault - PDF ingestion into a vector knowledge table",
		Long: `vault turns PDF textbooks into embedded chunks stored one row per chunk.

Environment variables (also read from .env):
  VAULT_STORE               postgres (default) or rest
  VAULT_DATABASE_URL        Postgres connection string for the postgres store
  VAULT_SUPABASE_URL        Project URL for the rest store
  VAULT_SUPABASE_KEY        Service-role key for the rest store
  VAULT_TABLE               Destination table (default: pcmb_knowledge)
  VAULT_EMBEDDING_PROVIDER  openai (default, any OpenAI-compatible server) or gemini
  VAULT_EMBEDDING_BASE_URL  Embeddings server base URL, e.g. http://localhost:8080/v1`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(vault.IngestCmd())
	rootCmd.AddCommand(vault.SearchCmd())
	rootCmd.AddCommand(vault.MigrateCmd())
	rootCmd.AddCommand(vault.CheckCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
