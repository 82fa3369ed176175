// Package storage defines the blob storage abstraction behind chart stores and
// the raw page archive. This keeps the application independent of a specific
// backend (Google Cloud Storage, the local filesystem, or memory for tests).
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by GetObject when the object does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStore reads and writes whole objects addressed by a slash-separated path.
type BlobStore interface {
	// GetObject returns the full object content or ErrNotFound.
	GetObject(ctx context.Context, path string) ([]byte, error)
	// PutObject replaces the object content and returns a URI for it.
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
