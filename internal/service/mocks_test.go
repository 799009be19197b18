package service

import (
	"context"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockRawEmbedder is an EmbeddingClient that also reports its unchecked output
type MockRawEmbedder struct {
	MockEmbeddingClient
}

func (m *MockRawEmbedder) EmbedRaw(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockRawEmbedder) Dimensions() int {
	return m.Called().Int(0)
}

// MockChunkWriter is a mock implementation of ChunkWriter
type MockChunkWriter struct {
	mock.Mock
}

func (m *MockChunkWriter) Insert(ctx context.Context, chunk *domain.KnowledgeChunk) error {
	args := m.Called(ctx, chunk)
	return args.Error(0)
}

// MockDocumentLoader is a mock implementation of DocumentLoader
type MockDocumentLoader struct {
	mock.Mock
}

func (m *MockDocumentLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Page), args.Error(1)
}

// MockChunkSearcher is a mock implementation of ChunkSearcher
type MockChunkSearcher struct {
	mock.Mock
}

func (m *MockChunkSearcher) SearchByEmbedding(ctx context.Context, embedding []float32, filters SearchFilters) ([]*SearchResult, error) {
	args := m.Called(ctx, embedding, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SearchResult), args.Error(1)
}

// MockStoreHandle is a mock implementation of StoreHandle
type MockStoreHandle struct {
	mock.Mock
}

func (m *MockStoreHandle) Probe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStoreHandle) Close() {
	m.Called()
}
