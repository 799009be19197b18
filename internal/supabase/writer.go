package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/cloo-solutions/textbook-vault/internal/service"
	"github.com/google/uuid"
	postgrest "github.com/supabase-community/postgrest-go"
)

var (
	_ service.ChunkWriter = (*Writer)(nil)
	_ service.StoreHandle = (*Writer)(nil)
)

var (
	// ErrInvalidURL is returned when the project URL cannot be used
	ErrInvalidURL = errors.New("invalid supabase URL")
	// ErrMissingKey is returned when no service key is configured
	ErrMissingKey = errors.New("supabase key is required")
)

// restPath is where the hosted PostgREST endpoint lives under a project URL
const restPath = "/rest/v1"

// RestAPI is the subset of PostgREST calls the writer needs
type RestAPI interface {
	Insert(table string, row any, upsert bool, onConflict string) error
	SelectOne(table string) error
}

// PostgrestAdapter implements RestAPI on top of postgrest-go
type PostgrestAdapter struct {
	client *postgrest.Client
}

// NewPostgrestAdapter builds a client for projectURL authenticated with key.
func NewPostgrestAdapter(projectURL, key string) (*PostgrestAdapter, error) {
	client := postgrest.NewClient(strings.TrimRight(projectURL, "/")+restPath, "public", map[string]string{
		"apikey": key,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, client.ClientError)
	}
	client.SetAuthToken(key)
	return &PostgrestAdapter{client: client}, nil
}

// Insert posts a single row, or upserts it when onConflict names a unique column.
func (a *PostgrestAdapter) Insert(table string, row any, upsert bool, onConflict string) error {
	_, _, err := a.client.From(table).Insert(row, upsert, onConflict, "minimal", "").Execute()
	return err
}

// SelectOne reads at most one row of table. Every column is selected so the call works on
// tables that lack the optional id and chunk_key columns.
func (a *PostgrestAdapter) SelectOne(table string) error {
	_, _, err := a.client.From(table).Select("*", "", false).Limit(1, "").Execute()
	return err
}

// row is the JSON body of one inserted chunk
type row struct {
	Content    string     `json:"content"`
	Embedding  []float32  `json:"embedding"`
	Subject    string     `json:"subject"`
	Chapter    string     `json:"chapter"`
	PageNumber int        `json:"page_number"`
	SourceFile string     `json:"source_file"`
	ChunkKey   *uuid.UUID `json:"chunk_key,omitempty"`
}

// Writer inserts knowledge chunks through the hosted REST endpoint
type Writer struct {
	api        RestAPI
	table      string
	idempotent bool
}

// Config holds the hosted project settings
type Config struct {
	URL        string
	Key        string
	Table      string
	Idempotent bool
}

// NewWriter constructs a REST client handle. No request is sent.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Key == "" {
		return nil, ErrMissingKey
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q needs a scheme and host", ErrInvalidURL, cfg.URL)
	}

	api, err := NewPostgrestAdapter(cfg.URL, cfg.Key)
	if err != nil {
		return nil, err
	}
	return NewWriterWithAPI(api, cfg.Table, cfg.Idempotent), nil
}

// NewWriterWithAPI creates a writer over an existing RestAPI
func NewWriterWithAPI(api RestAPI, table string, idempotent bool) *Writer {
	if table == "" {
		table = domain.DefaultTable
	}
	return &Writer{api: api, table: table, idempotent: idempotent}
}

// Insert writes one chunk. In idempotent mode the row is upserted on chunk_key, so a rerun
// overwrites the stored row with the same values instead of adding a duplicate.
func (w *Writer) Insert(ctx context.Context, chunk *domain.KnowledgeChunk) error {
	if err := domain.ValidateKnowledgeChunk(chunk); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := row{
		Content:    chunk.Content,
		Embedding:  chunk.Embedding,
		Subject:    chunk.Subject,
		Chapter:    chunk.Chapter,
		PageNumber: chunk.PageNumber,
		SourceFile: chunk.SourceFile,
	}
	onConflict := ""
	if w.idempotent {
		key := chunk.Key
		body.ChunkKey = &key
		onConflict = "chunk_key"
	}

	if err := w.api.Insert(w.table, body, w.idempotent, onConflict); err != nil {
		return classify(err)
	}
	return nil
}

// Probe reads at most one row to prove the table exists and the key may read it.
func (w *Writer) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.api.SelectOne(w.table); err != nil {
		return classify(err)
	}
	return nil
}

// Close is a no-op; the REST client holds no pooled resources.
func (w *Writer) Close() {}

// classify maps PostgREST error payloads onto domain errors.
func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "42P01"), strings.Contains(msg, "PGRST205"):
		return fmt.Errorf("%w: %w", domain.ErrTableNotFound, err)
	case strings.Contains(msg, "42501"), strings.Contains(msg, "PGRST301"),
		strings.Contains(msg, "JWT"), strings.Contains(msg, "Invalid API key"):
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	default:
		return err
	}
}
