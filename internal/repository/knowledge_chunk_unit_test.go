package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/cloo-solutions/textbook-vault/internal/service"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk() *domain.KnowledgeChunk {
	return domain.NewKnowledgeChunk("Significant figures", []float32{0.5, 0.25}, "Physics", "Units & Measurements", 4, "physics_ch1.pdf", 2)
}

func TestQuoteTable(t *testing.T) {
	quoted, err := quoteTable("pcmb_knowledge")
	require.NoError(t, err)
	assert.Equal(t, `"pcmb_knowledge"`, quoted)

	quoted, err = quoteTable("public.pcmb_knowledge")
	require.NoError(t, err)
	assert.Equal(t, `"public"."pcmb_knowledge"`, quoted)

	quoted, err = quoteTable(`odd"name`)
	require.NoError(t, err)
	assert.Equal(t, `"odd""name"`, quoted)

	_, err = quoteTable("")
	assert.Error(t, err)
	_, err = quoteTable("public.")
	assert.Error(t, err)
}

func TestNewKnowledgeChunkRepository_DefaultTable(t *testing.T) {
	repo, err := newKnowledgeChunkRepository(nil, "", false)
	require.NoError(t, err)
	assert.Equal(t, `"pcmb_knowledge"`, repo.table)
}

func TestInsertSQL_Append(t *testing.T) {
	repo, err := newKnowledgeChunkRepository(nil, "pcmb_knowledge", false)
	require.NoError(t, err)
	c := testChunk()

	query, args, err := repo.insertSQL(c)

	require.NoError(t, err)
	assert.Contains(t, query, `INSERT INTO "pcmb_knowledge" (content,embedding,subject,chapter,page_number,source_file)`)
	assert.Contains(t, query, "VALUES ($1,$2,$3,$4,$5,$6)")
	assert.NotContains(t, query, "ON CONFLICT")
	require.Len(t, args, 6)
	assert.Equal(t, "Significant figures", args[0])
	assert.Equal(t, pgvector.NewVector([]float32{0.5, 0.25}), args[1])
	assert.Equal(t, "Physics", args[2])
	assert.Equal(t, "Units & Measurements", args[3])
	assert.Equal(t, 5, args[4])
	assert.Equal(t, "physics_ch1.pdf", args[5])
}

func TestInsertSQL_Idempotent(t *testing.T) {
	repo, err := newKnowledgeChunkRepository(nil, "pcmb_knowledge", true)
	require.NoError(t, err)
	c := testChunk()

	query, args, err := repo.insertSQL(c)

	require.NoError(t, err)
	assert.Contains(t, query, "source_file,chunk_key)")
	assert.Contains(t, query, "ON CONFLICT (chunk_key) DO NOTHING")
	require.Len(t, args, 7)
	assert.Equal(t, c.Key, args[6])
	assert.Len(t, chunkColumns, 6)
}

func TestSearchSQL(t *testing.T) {
	repo, err := newKnowledgeChunkRepository(nil, "pcmb_knowledge", false)
	require.NoError(t, err)

	query, args, err := repo.searchSQL([]float32{1, 0}, service.SearchFilters{Subject: "Physics"})

	require.NoError(t, err)
	assert.Contains(t, query, `FROM "pcmb_knowledge"`)
	assert.Contains(t, query, "1 - (embedding <=> $1) AS similarity")
	assert.Contains(t, query, "1 - (embedding <=> $2) > $3")
	assert.Contains(t, query, "subject = $4")
	assert.Contains(t, query, "ORDER BY embedding <=> $5")
	assert.Contains(t, query, "LIMIT 6")
	require.Len(t, args, 5)
	assert.Equal(t, service.DefaultMatchThreshold, args[2])
	assert.Equal(t, "Physics", args[3])
}

func TestSearchSQL_ZeroThreshold(t *testing.T) {
	repo, err := newKnowledgeChunkRepository(nil, "pcmb_knowledge", false)
	require.NoError(t, err)

	_, args, err := repo.searchSQL([]float32{1, 0}, service.SearchFilters{Threshold: service.Threshold(0)})

	require.NoError(t, err)
	require.Len(t, args, 4)
	assert.Equal(t, 0.0, args[2])
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	missing := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "42P01", Message: `relation "pcmb_knowledge" does not exist`})
	assert.True(t, errors.Is(classify(missing), domain.ErrTableNotFound))

	denied := &pgconn.PgError{Code: "42501", Message: "permission denied"}
	assert.True(t, errors.Is(classify(denied), domain.ErrPermissionDenied))

	other := errors.New("connection reset")
	assert.Equal(t, other, classify(other))
}
