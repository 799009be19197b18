package vault

import (
	"fmt"

	"github.com/cloo-solutions/textbook-vault/internal/config"
	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/cloo-solutions/textbook-vault/internal/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// MigrateCmd creates the migrate command.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the knowledge table",
		Long: `Applies the embedded schema migrations to VAULT_DATABASE_URL: the vector
extension, the pcmb_knowledge table, its chunk_key unique index, an HNSW cosine index and
the match_pcmb_knowledge search function. Ingestion never migrates on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	a, err := newApp(appOptions{validate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrate needs VAULT_STORE=%s", config.StorePostgres)
	}
	if a.cfg.Table != domain.DefaultTable {
		a.logger.Warn("migrations only create the default table",
			zap.String("default", domain.DefaultTable),
			zap.String("configured", a.cfg.Table),
		)
	}

	version, err := migrations.Up(a.cfg.DatabaseURL, a.logger)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fmt.Printf("Schema at version %d\n", version)
	return nil
}
