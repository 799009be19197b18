package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPDF = "/data/books/hc-verma-vol1.pdf"

func newTestIngestService(t *testing.T, loader *MockDocumentLoader, embedder *MockEmbeddingClient, writer *MockChunkWriter) *IngestService {
	t.Helper()
	splitter, err := NewRecursiveSplitter(DefaultChunkConfig())
	require.NoError(t, err)
	return NewIngestService(loader, splitter, embedder, writer, nil)
}

func testInput() IngestInput {
	return IngestInput{Path: testPDF, Subject: "Physics", Chapter: "Units and Measurements"}
}

func fiveShortPages() []domain.Page {
	pages := make([]domain.Page, 5)
	for i := range pages {
		pages[i] = domain.Page{Index: i, Text: "Page text number " + string(rune('A'+i))}
	}
	return pages
}

func TestIngestService_IngestFile_Success(t *testing.T) {
	loader := new(MockDocumentLoader)
	embedder := new(MockEmbeddingClient)
	writer := new(MockChunkWriter)
	svc := newTestIngestService(t, loader, embedder, writer)

	ctx := context.Background()
	pages := []domain.Page{
		{Index: 0, Text: "Physical quantities are measured in SI units."},
		{Index: 1, Text: "The metre is defined using the speed of light."},
	}
	vector := []float32{0.1, 0.2, 0.3}

	loader.On("Load", mock.Anything, testPDF).Return(pages, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.AnythingOfType("string")).Return(vector, nil)

	var inserted []*domain.KnowledgeChunk
	writer.On("Insert", mock.Anything, mock.AnythingOfType("*domain.KnowledgeChunk")).
		Run(func(args mock.Arguments) {
			inserted = append(inserted, args.Get(1).(*domain.KnowledgeChunk))
		}).
		Return(nil)

	result, err := svc.IngestFile(ctx, testInput())

	require.NoError(t, err)
	assert.Equal(t, &IngestResult{SourceFile: "hc-verma-vol1.pdf", Pages: 2, Chunks: 2, Inserted: 2}, result)
	require.Len(t, inserted, 2)
	for i, chunk := range inserted {
		assert.Equal(t, pages[i].Text, chunk.Content)
		assert.Equal(t, vector, chunk.Embedding)
		assert.Equal(t, "Physics", chunk.Subject)
		assert.Equal(t, "Units and Measurements", chunk.Chapter)
		assert.Equal(t, i+1, chunk.PageNumber)
		assert.Equal(t, "hc-verma-vol1.pdf", chunk.SourceFile)
		assert.Equal(t, i, chunk.ChunkIndex)
	}
	loader.AssertExpectations(t)
	embedder.AssertNumberOfCalls(t, "GenerateEmbedding", 2)
	writer.AssertNumberOfCalls(t, "Insert", 2)
}

func TestIngestService_IngestFile_LongPageKeepsPageNumber(t *testing.T) {
	loader := new(MockDocumentLoader)
	embedder := new(MockEmbeddingClient)
	writer := new(MockChunkWriter)
	svc := newTestIngestService(t, loader, embedder, writer)

	ctx := context.Background()
	text := strings.TrimSpace(strings.Repeat("abcd ", 140))
	pages := []domain.Page{{Index: 3, Text: text}}

	loader.On("Load", mock.Anything, testPDF).Return(pages, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	writer.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.KnowledgeChunk) bool {
		return c.PageNumber == 4
	})).Return(nil)

	result, err := svc.IngestFile(ctx, testInput())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Chunks)
	assert.Equal(t, 2, result.Inserted)
	embedder.AssertCalled(t, "GenerateEmbedding", mock.Anything, text[:599])
	embedder.AssertCalled(t, "GenerateEmbedding", mock.Anything, text[500:])
	writer.AssertExpectations(t)
}

func TestIngestService_IngestFile_EmptyPagesInsertNothing(t *testing.T) {
	loader := new(MockDocumentLoader)
	embedder := new(MockEmbeddingClient)
	writer := new(MockChunkWriter)
	svc := newTestIngestService(t, loader, embedder, writer)

	ctx := context.Background()
	loader.On("Load", mock.Anything, testPDF).Return([]domain.Page{{Index: 0, Text: ""}, {Index: 1, Text: "\n \n"}}, nil)

	result, err := svc.IngestFile(ctx, testInput())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Zero(t, result.Chunks)
	assert.Zero(t, result.Inserted)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	writer.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestIngestService_IngestFile_LoadError(t *testing.T) {
	loader := new(MockDocumentLoader)
	embedder := new(MockEmbeddingClient)
	writer := new(MockChunkWriter)
	svc := newTestIngestService(t, loader, embedder, writer)

	ctx := context.Background()
	loadErr := errors.Join(domain.ErrDocumentAbsent, errors.New("stat: no such file"))
	loader.On("Load", mock.Anything, testPDF).Return(nil, loadErr)

	result, err := svc.IngestFile(ctx, testInput())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDocumentAbsent)
	assert.Zero(t, result.Inserted)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	writer.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestIngestService_IngestFile_PersistenceFailureStopsRun(t *testing.T) {
	loader := new(MockDocumentLoader)
	embedder := new(MockEmbeddingClient)
	writer := new(MockChunkWriter)
	svc := newTestIngestService(t, loader, embedder, writer)

	ctx := context.Background()
	loader.On("Load", mock.Anything, testPDF).Return(fiveShortPages(), nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)

	insertErr := errors.New("connection reset by peer")
	writer.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.KnowledgeChunk) bool {
		return c.ChunkIndex < 2
	})).Return(nil)
	writer.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.KnowledgeChunk) bool {
		return c.ChunkIndex == 2
	})).Return(insertErr)

	result, err := svc.IngestFile(ctx, testInput())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, insertErr)
	assert.Equal(t, 5, result.Chunks)
	assert.Equal(t, 2, result.Inserted)
	writer.AssertNumberOfCalls(t, "Insert", 3)
	embedder.AssertNumberOfCalls(t, "GenerateEmbedding", 3)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, "Page text number D")
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, "Page text number E")
}

func TestIngestService_IngestFile_EmbeddingFailureStopsRun(t *testing.T) {
	loader := new(MockDocumentLoader)
	embedder := new(MockEmbeddingClient)
	writer := new(MockChunkWriter)
	svc := newTestIngestService(t, loader, embedder, writer)

	ctx := context.Background()
	loader.On("Load", mock.Anything, testPDF).Return(fiveShortPages(), nil)
	embedder.On("GenerateEmbedding", mock.Anything, "Page text number A").Return([]float32{0.5}, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "Page text number B").Return(nil, errors.New("model unavailable"))
	writer.On("Insert", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.IngestFile(ctx, testInput())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "model unavailable")
	assert.Equal(t, 1, result.Inserted)
	writer.AssertNumberOfCalls(t, "Insert", 1)
}

func TestIngestService_IngestFile_CancelledContext(t *testing.T) {
	loader := new(MockDocumentLoader)
	embedder := new(MockEmbeddingClient)
	writer := new(MockChunkWriter)
	svc := newTestIngestService(t, loader, embedder, writer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loader.On("Load", mock.Anything, testPDF).Return(fiveShortPages(), nil)

	result, err := svc.IngestFile(ctx, testInput())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Inserted)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestIngestService_IngestFile_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input IngestInput
		field string
	}{
		{"MissingPath", IngestInput{Subject: "Physics", Chapter: "Kinematics"}, "path"},
		{"MissingSubject", IngestInput{Path: testPDF, Chapter: "Kinematics"}, "subject"},
		{"MissingChapter", IngestInput{Path: testPDF, Subject: "Physics"}, "chapter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := new(MockDocumentLoader)
			svc := newTestIngestService(t, loader, new(MockEmbeddingClient), new(MockChunkWriter))

			result, err := svc.IngestFile(context.Background(), tt.input)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
			require.NotNil(t, result)
			assert.Zero(t, result.Inserted)
			assert.Zero(t, result.Chunks)
			assert.Contains(t, err.Error(), tt.field)
			loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
		})
	}
}
