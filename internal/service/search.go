package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/cloo-solutions/textbook-vault/internal/telemetry"
)

const (
	// DefaultMatchThreshold is the minimum cosine similarity a chunk needs to be returned
	DefaultMatchThreshold = 0.25
	// DefaultMatchCount is the number of chunks returned when no limit is given
	DefaultMatchCount = 6
	// MaxMatchCount caps the number of chunks a single query may return
	MaxMatchCount = 100
)

// SearchFilters narrows a similarity search
type SearchFilters struct {
	Subject string
	Chapter string
	// Threshold is the minimum cosine similarity; nil means DefaultMatchThreshold. Zero and
	// negative values are honoured.
	Threshold *float64
	Limit     int
}

// Threshold returns a pointer to v for use in SearchFilters.
func Threshold(v float64) *float64 {
	return &v
}

// WithDefaults fills unset fields with the default threshold and count.
func (f SearchFilters) WithDefaults() SearchFilters {
	if f.Threshold == nil {
		f.Threshold = Threshold(DefaultMatchThreshold)
	}
	if f.Limit <= 0 {
		f.Limit = DefaultMatchCount
	}
	if f.Limit > MaxMatchCount {
		f.Limit = MaxMatchCount
	}
	return f
}

// SearchResult is a stored chunk together with its similarity to the query
type SearchResult struct {
	Content    string
	Subject    string
	Chapter    string
	PageNumber int
	SourceFile string
	Similarity float64
}

// ChunkSearcher runs a nearest-neighbour query over stored chunk embeddings
type ChunkSearcher interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, filters SearchFilters) ([]*SearchResult, error)
}

// SearchService embeds a query and returns the closest textbook chunks
type SearchService struct {
	embedder EmbeddingClient
	searcher ChunkSearcher
}

// NewSearchService creates a new SearchService instance
func NewSearchService(embedder EmbeddingClient, searcher ChunkSearcher) *SearchService {
	return &SearchService{
		embedder: embedder,
		searcher: searcher,
	}
}

// Search returns chunks ordered by descending similarity to query
func (s *SearchService) Search(ctx context.Context, query string, filters SearchFilters) ([]*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query", domain.ErrMissingRequiredField)
	}
	if s.searcher == nil {
		return nil, domain.ErrSearchNotSupport
	}

	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Subject:   filters.Subject,
		Chapter:   filters.Chapter,
		Operation: "search",
	})
	defer span.End()

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}

	results, err := s.searcher.SearchByEmbedding(ctx, embedding, filters.WithDefaults())
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return results, nil
}
