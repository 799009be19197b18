package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
)

// Fetcher downloads a remote source to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (path string, cleanup func(), err error)
}

// RemoteLoader loads s3:// sources through a Fetcher and local paths directly.
type RemoteLoader struct {
	local   Loader
	fetcher Fetcher
}

var _ Loader = (*RemoteLoader)(nil)

func NewRemoteLoader(local Loader, fetcher Fetcher) *RemoteLoader {
	return &RemoteLoader{local: local, fetcher: fetcher}
}

func (l *RemoteLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	if !strings.HasPrefix(path, "s3://") {
		return l.local.Load(ctx, path)
	}
	if l.fetcher == nil {
		return nil, fmt.Errorf("%w: %s: object storage is not configured", domain.ErrDocumentLoad, path)
	}

	local, cleanup, err := l.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDocumentLoad, err)
	}
	defer cleanup()

	return l.local.Load(ctx, local)
}
