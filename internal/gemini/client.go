// Package gemini generates embeddings with Google's Gemini embedding models.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultEmbeddingModel      = "text-embedding-004"
	DefaultEmbeddingDimensions = 768
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrNoAPIKey        = errors.New("gemini api key not set")
	ErrNoEmbeddingData = errors.New("no embedding data returned")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// EmbeddingAPI is the single-text embedding call the client needs.
type EmbeddingAPI interface {
	EmbedContent(ctx context.Context, text string) ([]float32, error)
}

type genaiAdapter struct {
	model *genai.EmbeddingModel
}

func (a *genaiAdapter) EmbedContent(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, ErrNoEmbeddingData
	}
	return resp.Embedding.Values, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// Client wraps a Gemini embedding model.
type Client struct {
	api        EmbeddingAPI
	closer     func() error
	model      string
	dimensions int
}

// NewClient dials the Gemini API. Call Close when done.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Client{
		api:        &genaiAdapter{model: cl.EmbeddingModel(cfg.EmbeddingModel)},
		closer:     cl.Close,
		model:      cfg.EmbeddingModel,
		dimensions: cfg.EmbeddingDimensions,
	}, nil
}

func (c *Client) Model() string   { return c.model }
func (c *Client) Dimensions() int { return c.dimensions }

func (c *Client) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

// EmbedRaw embeds text and returns the vector whatever its size.
func (c *Client) EmbedRaw(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.EmbedContent(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	return embedding, nil
}

// GenerateEmbedding embeds text and checks the vector size.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embedding, err := c.EmbedRaw(ctx, text)
	if err != nil {
		return nil, err
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}
	return embedding, nil
}
