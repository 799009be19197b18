package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/cloo-solutions/textbook-vault/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var chunkColumns = []string{"content", "embedding", "subject", "chapter", "page_number", "source_file"}

// KnowledgeChunkRepository writes embedded textbook chunks into a pgvector table.
type KnowledgeChunkRepository struct {
	db         dbtx
	table      string
	idempotent bool
}

var (
	_ service.ChunkWriter   = (*KnowledgeChunkRepository)(nil)
	_ service.ChunkSearcher = (*KnowledgeChunkRepository)(nil)
	_ service.StoreProber   = (*KnowledgeChunkRepository)(nil)
)

// NewKnowledgeChunkRepository returns a repository writing into table. In idempotent mode rows
// carry chunk_key and re-inserting the same chunk is a no-op.
func NewKnowledgeChunkRepository(pool *pgxpool.Pool, table string, idempotent bool) (*KnowledgeChunkRepository, error) {
	return newKnowledgeChunkRepository(pool, table, idempotent)
}

func newKnowledgeChunkRepository(db dbtx, table string, idempotent bool) (*KnowledgeChunkRepository, error) {
	if table == "" {
		table = domain.DefaultTable
	}
	quoted, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	return &KnowledgeChunkRepository{db: db, table: quoted, idempotent: idempotent}, nil
}

// Insert writes a single chunk as one row.
func (r *KnowledgeChunkRepository) Insert(ctx context.Context, c *domain.KnowledgeChunk) error {
	if err := domain.ValidateKnowledgeChunk(c); err != nil {
		return err
	}
	query, args, err := r.insertSQL(c)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

func (r *KnowledgeChunkRepository) insertSQL(c *domain.KnowledgeChunk) (string, []any, error) {
	columns := chunkColumns
	values := []any{
		c.Content,
		pgvector.NewVector(c.Embedding),
		c.Subject,
		c.Chapter,
		c.PageNumber,
		c.SourceFile,
	}

	builder := sq.Insert(r.table).PlaceholderFormat(sq.Dollar)
	if r.idempotent {
		columns = append(append([]string{}, chunkColumns...), "chunk_key")
		values = append(values, c.Key)
		builder = builder.Suffix("ON CONFLICT (chunk_key) DO NOTHING")
	}

	return builder.Columns(columns...).Values(values...).ToSql()
}

// SearchByEmbedding returns the chunks closest to embedding by cosine similarity.
func (r *KnowledgeChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filters service.SearchFilters) ([]*service.SearchResult, error) {
	query, args, err := r.searchSQL(embedding, filters)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var results []*service.SearchResult
	for rows.Next() {
		var res service.SearchResult
		if err := rows.Scan(&res.Content, &res.Subject, &res.Chapter, &res.PageNumber, &res.SourceFile, &res.Similarity); err != nil {
			return nil, err
		}
		results = append(results, &res)
	}

	return results, rows.Err()
}

func (r *KnowledgeChunkRepository) searchSQL(embedding []float32, filters service.SearchFilters) (string, []any, error) {
	filters = filters.WithDefaults()
	vec := pgvector.NewVector(embedding)

	builder := sq.Select("content", "subject", "chapter", "page_number", "source_file").
		Column(sq.Expr("1 - (embedding <=> ?) AS similarity", vec)).
		From(r.table).
		Where(sq.Expr("1 - (embedding <=> ?) > ?", vec, *filters.Threshold)).
		OrderByClause("embedding <=> ?", vec).
		Limit(uint64(filters.Limit)).
		PlaceholderFormat(sq.Dollar)

	if filters.Subject != "" {
		builder = builder.Where(sq.Eq{"subject": filters.Subject})
	}
	if filters.Chapter != "" {
		builder = builder.Where(sq.Eq{"chapter": filters.Chapter})
	}

	return builder.ToSql()
}

// Probe reads at most one row to prove the table exists and is readable.
func (r *KnowledgeChunkRepository) Probe(ctx context.Context) error {
	query, args, err := sq.Select("1").From(r.table).Limit(1).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return err
	}

	var one int
	err = r.db.QueryRow(ctx, query, args...).Scan(&one)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("probe %s: %w", r.table, classify(err))
	}
	return nil
}
