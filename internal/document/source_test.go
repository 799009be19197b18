package document

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Page), args.Error(1)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, uri string) (string, func(), error) {
	args := m.Called(ctx, uri)
	cleanup, _ := args.Get(1).(func())
	return args.String(0), cleanup, args.Error(2)
}

func TestRemoteLoader_LocalPath(t *testing.T) {
	local := new(MockLoader)
	fetcher := new(MockFetcher)
	loader := NewRemoteLoader(local, fetcher)
	ctx := context.Background()
	pages := []domain.Page{{Index: 0, Text: "a"}}

	local.On("Load", ctx, "books/ch1.pdf").Return(pages, nil)

	got, err := loader.Load(ctx, "books/ch1.pdf")

	require.NoError(t, err)
	assert.Equal(t, pages, got)
	fetcher.AssertNotCalled(t, "Fetch")
}

func TestRemoteLoader_S3Path(t *testing.T) {
	local := new(MockLoader)
	fetcher := new(MockFetcher)
	loader := NewRemoteLoader(local, fetcher)
	ctx := context.Background()
	cleaned := false
	pages := []domain.Page{{Index: 0, Text: "a"}}

	fetcher.On("Fetch", ctx, "s3://books/ch1.pdf").Return("/tmp/x/ch1.pdf", func() { cleaned = true }, nil)
	local.On("Load", ctx, "/tmp/x/ch1.pdf").Return(pages, nil)

	got, err := loader.Load(ctx, "s3://books/ch1.pdf")

	require.NoError(t, err)
	assert.Equal(t, pages, got)
	assert.True(t, cleaned)
}

func TestRemoteLoader_FetchError(t *testing.T) {
	local := new(MockLoader)
	fetcher := new(MockFetcher)
	loader := NewRemoteLoader(local, fetcher)
	ctx := context.Background()

	fetcher.On("Fetch", ctx, "s3://books/ch1.pdf").Return("", nil, errors.New("access denied"))

	_, err := loader.Load(ctx, "s3://books/ch1.pdf")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDocumentLoad))
	local.AssertNotCalled(t, "Load")
}

func TestRemoteLoader_NoFetcher(t *testing.T) {
	loader := NewRemoteLoader(new(MockLoader), nil)

	_, err := loader.Load(context.Background(), "s3://books/ch1.pdf")

	assert.ErrorIs(t, err, domain.ErrDocumentLoad)
}
