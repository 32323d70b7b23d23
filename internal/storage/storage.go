package storage

import (
	"context"
	"io"
)

// BlobStore is the "store blob, get public URL" contract uploads need.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}
