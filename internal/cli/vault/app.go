package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/textbook-vault/internal/config"
	"github.com/cloo-solutions/textbook-vault/internal/database"
	"github.com/cloo-solutions/textbook-vault/internal/document"
	"github.com/cloo-solutions/textbook-vault/internal/gemini"
	"github.com/cloo-solutions/textbook-vault/internal/logging"
	"github.com/cloo-solutions/textbook-vault/internal/openai"
	"github.com/cloo-solutions/textbook-vault/internal/repository"
	"github.com/cloo-solutions/textbook-vault/internal/service"
	"github.com/cloo-solutions/textbook-vault/internal/storage"
	"github.com/cloo-solutions/textbook-vault/internal/supabase"
	"github.com/cloo-solutions/textbook-vault/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var errEmptyDatabaseURL = errors.New("database URL is empty")

// app holds the process-wide dependencies shared by every command
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	closers []func()
}

// appOptions tunes process setup per command
type appOptions struct {
	// validate checks the store settings up front. The connectivity check leaves it off so it
	// can report bad settings instead of refusing to run.
	validate bool
	// console logs human-readable lines instead of JSON
	console bool
}

// newApp loads configuration and sets up logging and tracing.
func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	logger, err := newLogger(cfg.LogLevel, opts.console)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if cfg.HasSentry() {
		shutdown, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.SentrySampleRate,
			Logger:           logger,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			a.closers = append(a.closers, shutdown)
		}
	}

	return a, nil
}

func newLogger(level string, console bool) (*zap.Logger, error) {
	if console {
		return logging.NewConsole(level)
	}
	return logging.New(level)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newEmbedder builds the configured embedding client
func (a *app) newEmbedder(ctx context.Context) (service.EmbeddingClient, string, error) {
	switch a.cfg.EmbeddingProvider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:              a.cfg.GeminiAPIKey,
			EmbeddingModel:      a.cfg.EmbeddingModel,
			EmbeddingDimensions: a.cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create gemini client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return client, client.Model(), nil
	case config.ProviderOpenAI, "":
		client := openai.NewClient(openai.Config{
			APIKey:              a.cfg.EmbeddingAPIKey,
			BaseURL:             a.cfg.EmbeddingBaseURL,
			EmbeddingModel:      a.cfg.EmbeddingModel,
			EmbeddingDimensions: a.cfg.EmbeddingDimensions,
		})
		return client, client.Model(), nil
	default:
		return nil, "", fmt.Errorf("unknown embedding provider %q", a.cfg.EmbeddingProvider)
	}
}

// newLoader returns a PDF loader that also resolves s3:// paths when S3 is configured
func (a *app) newLoader(ctx context.Context) (service.DocumentLoader, error) {
	local := document.NewPDFLoader()
	if !a.cfg.HasS3() {
		return document.NewRemoteLoader(local, nil), nil
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        a.cfg.S3Endpoint,
		Region:          a.cfg.S3Region,
		AccessKeyID:     a.cfg.S3AccessKey,
		SecretAccessKey: a.cfg.S3SecretKey,
		UsePathStyle:    a.cfg.S3UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return document.NewRemoteLoader(local, s3Client), nil
}

// store is an opened backend. searcher is nil for backends without similarity search.
type store struct {
	writer   service.ChunkWriter
	searcher service.ChunkSearcher
	handle   service.StoreHandle
}

// openStore connects to the configured backend. The postgres pool is pinged first.
func (a *app) openStore(ctx context.Context, idempotent bool) (*store, error) {
	switch a.cfg.Store {
	case config.StoreREST:
		w, err := a.newRESTWriter(idempotent)
		if err != nil {
			return nil, err
		}
		return &store{writer: w, handle: w}, nil
	default:
		pool, err := database.NewPool(ctx, database.Config{
			URL:      a.cfg.DatabaseURL,
			MaxConns: a.cfg.DatabaseMaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		h, err := newPostgresHandle(pool, a.cfg.Table, idempotent)
		if err != nil {
			pool.Close()
			return nil, err
		}
		a.closers = append(a.closers, h.Close)
		a.logger.Info("connected to database", zap.String("table", a.cfg.Table))
		return &store{writer: h.repo, searcher: h.repo, handle: h}, nil
	}
}

// storeConnector builds client handles without any network round trip
func (a *app) storeConnector() service.StoreConnector {
	return func(ctx context.Context) (service.StoreHandle, error) {
		if a.cfg.Store == config.StoreREST {
			w, err := a.newRESTWriter(a.cfg.Idempotent)
			if err != nil {
				return nil, err
			}
			return w, nil
		}
		if a.cfg.DatabaseURL == "" {
			return nil, errEmptyDatabaseURL
		}
		pool, err := database.NewLazyPool(ctx, database.Config{
			URL:      a.cfg.DatabaseURL,
			MaxConns: a.cfg.DatabaseMaxConns,
		})
		if err != nil {
			return nil, err
		}
		h, err := newPostgresHandle(pool, a.cfg.Table, a.cfg.Idempotent)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return h, nil
	}
}

func (a *app) newRESTWriter(idempotent bool) (*supabase.Writer, error) {
	return supabase.NewWriter(supabase.Config{
		URL:        a.cfg.SupabaseURL,
		Key:        a.cfg.SupabaseKey,
		Table:      a.cfg.Table,
		Idempotent: idempotent,
	})
}

func (a *app) checkOptions(probe bool) service.CheckOptions {
	opts := service.CheckOptions{
		Store:    a.cfg.Store,
		Endpoint: a.cfg.Endpoint(),
		Probe:    probe,
	}
	if a.cfg.Store == config.StoreREST {
		opts.APIKey = a.cfg.SupabaseKey
	}
	return opts
}

// postgresHandle ties a repository to the pool it owns
type postgresHandle struct {
	pool *pgxpool.Pool
	repo *repository.KnowledgeChunkRepository
}

func newPostgresHandle(pool *pgxpool.Pool, table string, idempotent bool) (*postgresHandle, error) {
	repo, err := repository.NewKnowledgeChunkRepository(pool, table, idempotent)
	if err != nil {
		return nil, err
	}
	return &postgresHandle{pool: pool, repo: repo}, nil
}

func (h *postgresHandle) Probe(ctx context.Context) error {
	return h.repo.Probe(ctx)
}

func (h *postgresHandle) Close() {
	h.pool.Close()
}
