package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// BlobStore persists raw artifacts. Put is an idempotent overwrite and
// returns a dereferenceable locator for the stored object.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte) (string, error)
}

// AFSStore is a BlobStore backed by the abstract file storage service, so the
// same code serves file://, mem:// and cloud schemes via the base URL.
type AFSStore struct {
	fs      afs.Service
	baseURL string
	logger  *slog.Logger
}

func NewAFSStore(baseURL string, logger *slog.Logger) *AFSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AFSStore{fs: afs.New(), baseURL: baseURL, logger: logger}
}

func (s *AFSStore) Put(ctx context.Context, path string, data []byte) (string, error) {
	start := time.Now()
	locator := url.Join(s.baseURL, path)
	if err := s.fs.Upload(ctx, locator, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		s.logger.Error("blob.put.failed", "url", locator, "error", err)
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	s.logger.Debug("blob.put.ok",
		"url", locator,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return locator, nil
}
