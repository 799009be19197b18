package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultTable is the destination table for ingested textbook chunks.
const DefaultTable = "pcmb_knowledge"

// chunkKeyNamespace scopes the UUIDv5 keys derived for idempotent ingestion.
var chunkKeyNamespace = uuid.MustParse("6f1c2a4e-3b7d-5e8f-9a0b-1c2d3e4f5a6b")

// KnowledgeChunk is one embedded slice of a textbook page, persisted as a single row.
type KnowledgeChunk struct {
	Content    string
	Embedding  []float32
	Subject    string
	Chapter    string
	PageNumber int
	SourceFile string
	ChunkIndex int
	Key        uuid.UUID
}

// NewKnowledgeChunk builds a chunk for the page at the zero-based pageIndex of sourcePath.
// Only the base name of sourcePath is kept.
func NewKnowledgeChunk(content string, embedding []float32, subject, chapter string, pageIndex int, sourcePath string, chunkIndex int) *KnowledgeChunk {
	sourceFile := SourceFileName(sourcePath)
	pageNumber := pageIndex + 1
	return &KnowledgeChunk{
		Content:    content,
		Embedding:  embedding,
		Subject:    subject,
		Chapter:    chapter,
		PageNumber: pageNumber,
		SourceFile: sourceFile,
		ChunkIndex: chunkIndex,
		Key:        ChunkKey(sourceFile, pageNumber, chunkIndex),
	}
}

// ChunkKey derives a stable identity for a chunk so re-ingesting the same file can be made safe.
func ChunkKey(sourceFile string, pageNumber, chunkIndex int) uuid.UUID {
	name := strings.Join([]string{sourceFile, strconv.Itoa(pageNumber), strconv.Itoa(chunkIndex)}, "/")
	return uuid.NewSHA1(chunkKeyNamespace, []byte(name))
}

// SourceFileName returns the base name of a local path or an s3:// object key.
func SourceFileName(path string) string {
	if rest, ok := strings.CutPrefix(path, "s3://"); ok {
		if i := strings.LastIndex(rest, "/"); i >= 0 {
			return rest[i+1:]
		}
		return rest
	}
	return filepath.Base(path)
}

// ValidateKnowledgeChunk validates a KnowledgeChunk before it is written
func ValidateKnowledgeChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("knowledge chunk cannot be nil")
	}

	if strings.TrimSpace(c.Content) == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "knowledge chunk content is required", ErrMissingRequiredField)
	}

	if len(c.Embedding) == 0 {
		return NewDomainErrorWithCause(ErrCodeValidation, "knowledge chunk embedding is required", ErrMissingRequiredField)
	}

	if c.PageNumber < 1 {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("knowledge chunk page number must be >= 1, got %d", c.PageNumber))
	}

	if c.SourceFile == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "knowledge chunk source file is required", ErrMissingRequiredField)
	}

	return nil
}
