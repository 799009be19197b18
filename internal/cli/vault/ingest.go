package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/textbook-vault/internal/service"
	"github.com/cloo-solutions/textbook-vault/internal/telemetry"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
)

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var (
		subject      string
		chapter      string
		idempotent   bool
		chunkSize    int
		chunkOverlap int
	)

	cmd := &cobra.Command{
		Use:   "ingest <pdf>",
		Short: "Ingest a PDF textbook",
		Long: `Reads a PDF page by page, splits every page into overlapping chunks, embeds each
chunk and inserts one row per chunk into the knowledge table.

The path may be a local file or s3://bucket/key when VAULT_S3_* is configured.
Re-running on the same file appends duplicate rows unless --idempotent is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			opts := ingestOptions{
				Path:         args[0],
				Subject:      subject,
				Chapter:      chapter,
				Idempotent:   idempotent,
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
				setIdem:      cmd.Flags().Changed("idempotent"),
				setSize:      cmd.Flags().Changed("chunk-size"),
				setOverlap:   cmd.Flags().Changed("chunk-overlap"),
			}
			return runIngest(cmd.Context(), opts, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject label, e.g. Physics (required)")
	cmd.Flags().StringVarP(&chapter, "chapter", "c", "", "Chapter label, e.g. \"Units and Measurements\" (required)")
	cmd.Flags().BoolVar(&idempotent, "idempotent", false, "Skip chunks already stored for this file (needs the chunk_key column)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 600, "Maximum chunk length in characters")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 100, "Characters shared between consecutive chunks")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("chapter")

	return cmd
}

type ingestOptions struct {
	Path         string
	Subject      string
	Chapter      string
	Idempotent   bool
	ChunkSize    int
	ChunkOverlap int

	setIdem, setSize, setOverlap bool
}

func runIngest(ctx context.Context, opts ingestOptions, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(appOptions{validate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// flags win over the environment
	idempotent := a.cfg.Idempotent
	if opts.setIdem {
		idempotent = opts.Idempotent
	}
	chunkCfg := service.DefaultChunkConfig()
	chunkCfg.ChunkSize = a.cfg.ChunkSize
	chunkCfg.ChunkOverlap = a.cfg.ChunkOverlap
	if opts.setSize {
		chunkCfg.ChunkSize = opts.ChunkSize
	}
	if opts.setOverlap {
		chunkCfg.ChunkOverlap = opts.ChunkOverlap
	}

	splitter, err := service.NewRecursiveSplitter(chunkCfg)
	if err != nil {
		return err
	}

	ctx, tx := telemetry.StartTransaction(ctx, "vault ingest", "cli.ingest")
	defer tx.End()

	loader, err := a.newLoader(ctx)
	if err != nil {
		return err
	}
	embedder, _, err := a.newEmbedder(ctx)
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx, idempotent)
	if err != nil {
		return err
	}

	svc := service.NewIngestService(loader, splitter, embedder, st.writer, a.logger)
	result, err := svc.IngestFile(ctx, service.IngestInput{
		Path:    opts.Path,
		Subject: opts.Subject,
		Chapter: opts.Chapter,
	})
	if err != nil {
		tx.SetError(err)
		if result != nil && result.Inserted > 0 {
			return fmt.Errorf("ingestion stopped after %d of %d chunks: %w", result.Inserted, result.Chunks, err)
		}
		return err
	}

	tx.SetStatus(sentry.SpanStatusOK)

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Ingested %s: %d pages, %d chunks, %d inserted into %s\n",
		result.SourceFile, result.Pages, result.Chunks, result.Inserted, a.cfg.Table)
	return nil
}
