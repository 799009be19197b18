package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable, e.g. VAULT_DATABASE_URL.
const Prefix = "VAULT"

const (
	StorePostgres = "postgres"
	StoreREST     = "rest"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Store string `envconfig:"STORE" default:"postgres"`
	Table string `envconfig:"TABLE" default:"pcmb_knowledge"`

	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"4"`

	SupabaseURL string `envconfig:"SUPABASE_URL"`
	SupabaseKey string `envconfig:"SUPABASE_KEY"`

	Idempotent bool `envconfig:"IDEMPOTENT" default:"false"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingBaseURL    string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey     string `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	GeminiAPIKey        string `envconfig:"GEMINI_API_KEY"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"600"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"100"`

	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE" default:"true"`

	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	SentrySampleRate float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
	Environment      string  `envconfig:"ENVIRONMENT" default:"development"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if present) and the VAULT_* environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the selected store and embedding provider have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("%s_DATABASE_URL is required for the postgres store", Prefix))
		}
	case StoreREST:
		if c.SupabaseURL == "" {
			errs = append(errs, fmt.Errorf("%s_SUPABASE_URL is required for the rest store", Prefix))
		}
		if c.SupabaseKey == "" {
			errs = append(errs, fmt.Errorf("%s_SUPABASE_KEY is required for the rest store", Prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%s_STORE must be %q or %q, got %q", Prefix, StorePostgres, StoreREST, c.Store))
	}

	switch c.EmbeddingProvider {
	case ProviderOpenAI:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("%s_GEMINI_API_KEY is required for the gemini provider", Prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%s_EMBEDDING_PROVIDER must be %q or %q, got %q", Prefix, ProviderOpenAI, ProviderGemini, c.EmbeddingProvider))
	}

	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, fmt.Errorf("%s_EMBEDDING_DIMENSIONS must be positive", Prefix))
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("%s_CHUNK_OVERLAP (%d) must be in [0, %s_CHUNK_SIZE (%d))", Prefix, c.ChunkOverlap, Prefix, c.ChunkSize))
	}

	return errors.Join(errs...)
}

// Endpoint returns the address the selected store is reached at.
func (c *Config) Endpoint() string {
	if c.Store == StoreREST {
		return c.SupabaseURL
	}
	return c.DatabaseURL
}

func (c *Config) HasS3() bool {
	return c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
