// Package archive keeps a content-addressed copy of every fetched chart page.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/billboard-charts/internal/chart"
	"github.com/JakeFAU/billboard-charts/internal/storage"
)

const htmlContentType = "text/html; charset=utf-8"

// Archiver writes raw pages to a BlobStore under <prefix>/<kind>/<date>/<sha256>.html.
type Archiver struct {
	blobs  storage.BlobStore
	prefix string
	logger *zap.Logger
}

// New builds an Archiver. An empty prefix defaults to "pages".
func New(blobs storage.BlobStore, prefix string, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "pages"
	}
	return &Archiver{blobs: blobs, prefix: prefix, logger: logger}
}

// Hash returns the hex SHA-256 digest of body.
func Hash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Path is the object path body would be archived under.
func (a *Archiver) Path(kind chart.Kind, date time.Time, body []byte) string {
	return path.Join(a.prefix, kind.String(), chart.FormatDate(date), Hash(body)+".html")
}

// Save stores body and returns the URI reported by the BlobStore.
func (a *Archiver) Save(ctx context.Context, kind chart.Kind, date time.Time, body []byte) (string, error) {
	p := a.Path(kind, date, body)
	uri, err := a.blobs.PutObject(ctx, p, htmlContentType, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", p, err)
	}
	a.logger.Debug("archived chart page",
		zap.String("chart", kind.String()),
		zap.String("date", chart.FormatDate(date)),
		zap.String("uri", uri),
		zap.Int("bytes", len(body)),
	)
	return uri, nil
}
