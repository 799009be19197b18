package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/cloo-solutions/textbook-vault/internal/telemetry"
	"go.uber.org/zap"
)

// EmbeddingClient turns a single text into a vector
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkWriter persists a single chunk row
type ChunkWriter interface {
	Insert(ctx context.Context, chunk *domain.KnowledgeChunk) error
}

// DocumentLoader reads the pages of a document in reading order
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]domain.Page, error)
}

// IngestService loads a textbook, splits it, embeds every chunk and writes one row per chunk.
// Chunks are processed strictly one after another; the first error stops the run and rows
// already written stay in the store.
type IngestService struct {
	loader   DocumentLoader
	splitter *RecursiveSplitter
	embedder EmbeddingClient
	writer   ChunkWriter
	logger   *zap.Logger
}

// NewIngestService creates a new IngestService instance
func NewIngestService(
	loader DocumentLoader,
	splitter *RecursiveSplitter,
	embedder EmbeddingClient,
	writer ChunkWriter,
	logger *zap.Logger,
) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		writer:   writer,
		logger:   logger,
	}
}

// IngestInput represents one ingestion run
type IngestInput struct {
	Path    string
	Subject string
	Chapter string
}

// IngestResult summarises a completed run
type IngestResult struct {
	SourceFile string
	Pages      int
	Chunks     int
	Inserted   int
}

// IngestFile runs the whole pipeline for one document.
// The result is never nil; on error it reports how many rows were inserted before the failure.
func (s *IngestService) IngestFile(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if err := validateIngestInput(input); err != nil {
		return &IngestResult{}, err
	}

	sourceFile := domain.SourceFileName(input.Path)
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestFile", telemetry.SpanAttributes{
		SourceFile: sourceFile,
		Subject:    input.Subject,
		Chapter:    input.Chapter,
		Operation:  "ingest",
	})
	defer span.End()

	result := &IngestResult{SourceFile: sourceFile}
	log := s.logger.With(
		zap.String("source_file", sourceFile),
		zap.String("subject", input.Subject),
		zap.String("chapter", input.Chapter),
	)

	pages, err := s.loader.Load(ctx, input.Path)
	if err != nil {
		span.SetError(err)
		return result, err
	}
	result.Pages = len(pages)

	chunks := s.splitter.SplitPages(pages)
	result.Chunks = len(chunks)
	log.Info("document split",
		zap.Int("pages", result.Pages),
		zap.Int("chunks", result.Chunks),
	)

	for i, chunk := range chunks {
		if err := s.ingestChunk(ctx, input, chunk, i); err != nil {
			log.Error("ingestion aborted",
				zap.Int("chunk_index", i),
				zap.Int("page_number", chunk.PageIndex+1),
				zap.Int("inserted", result.Inserted),
				zap.Error(err),
			)
			span.SetError(err)
			return result, err
		}
		result.Inserted++
		telemetry.AddBreadcrumb(ctx, "ingest", fmt.Sprintf("inserted page %d chunk %d", chunk.PageIndex+1, i))
		log.Info("inserted chunk",
			zap.Int("page_number", chunk.PageIndex+1),
			zap.Int("chunk_index", i),
		)
	}

	log.Info("ingestion complete", zap.Int("inserted", result.Inserted))
	return result, nil
}

func (s *IngestService) ingestChunk(ctx context.Context, input IngestInput, chunk PageChunk, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestService.ingestChunk", telemetry.SpanAttributes{
		PageNumber: chunk.PageIndex + 1,
		Operation:  "ingest_chunk",
	})
	defer span.End()

	embedding, err := s.embedder.GenerateEmbedding(ctx, chunk.Text)
	if err != nil {
		return fmt.Errorf("%w: page %d chunk %d: %w", domain.ErrEmbedding, chunk.PageIndex+1, index, err)
	}

	record := domain.NewKnowledgeChunk(
		chunk.Text,
		embedding,
		input.Subject,
		input.Chapter,
		chunk.PageIndex,
		input.Path,
		index,
	)

	if err := s.writer.Insert(ctx, record); err != nil {
		return fmt.Errorf("%w: page %d chunk %d: %w", domain.ErrPersistence, record.PageNumber, index, err)
	}
	return nil
}

func validateIngestInput(input IngestInput) error {
	if input.Path == "" {
		return fmt.Errorf("%w: path", domain.ErrMissingRequiredField)
	}
	if input.Subject == "" {
		return fmt.Errorf("%w: subject", domain.ErrMissingRequiredField)
	}
	if input.Chapter == "" {
		return fmt.Errorf("%w: chapter", domain.ErrMissingRequiredField)
	}
	return nil
}
