package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/JakeFAU/billboard-charts/internal/chart"
	"github.com/JakeFAU/billboard-charts/internal/metrics"
)

// Backend loads and rewrites the full entry set of one chart kind.
type Backend interface {
	// Load returns the persisted entries, or an error wrapping
	// chart.ErrStoreNotFound when the store has never been written.
	Load(ctx context.Context, kind chart.Kind) ([]chart.Entry, error)
	// Save replaces the store content with entries.
	Save(ctx context.Context, kind chart.Kind, entries []chart.Entry) error
	// Location describes where the kind's store lives, for logs.
	Location(kind chart.Kind) string
}

// MergeResult summarizes one MergeAndSave call.
type MergeResult struct {
	Kind     chart.Kind
	Existing int
	Incoming int
	Total    int
	Saved    bool
	Location string
}

// Added is the number of entries the merge contributed to the store.
func (r MergeResult) Added() int {
	return r.Total - r.Existing
}

// MergeStore merges new entries into a Backend.
type MergeStore struct {
	backend Backend
	logger  *zap.Logger
}

// New builds a MergeStore.
func New(backend Backend, logger *zap.Logger) *MergeStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MergeStore{backend: backend, logger: logger}
}

// MergeAndSave loads the existing store for kind, merges incoming into it and
// rewrites the store when the merged set is non-empty. An unreadable store is
// logged and treated as empty.
func (s *MergeStore) MergeAndSave(ctx context.Context, kind chart.Kind, incoming []chart.Entry) (MergeResult, error) {
	res := MergeResult{
		Kind:     kind,
		Incoming: len(incoming),
		Location: s.backend.Location(kind),
	}
	logger := s.logger.With(zap.String("chart", kind.String()), zap.String("location", res.Location))

	existing, err := s.backend.Load(ctx, kind)
	switch {
	case errors.Is(err, chart.ErrStoreNotFound):
		logger.Info("no existing store; creating on first save")
		existing = nil
	case err != nil:
		readErr := &chart.StoreReadError{Kind: kind, Err: err}
		logger.Error("existing store unreadable; treating as empty", zap.Error(readErr))
		existing = nil
	}
	res.Existing = len(existing)

	merged := Merge(existing, incoming)
	res.Total = len(merged)
	if len(merged) == 0 {
		logger.Info("no data to save")
		return res, nil
	}

	if err := s.backend.Save(ctx, kind, merged); err != nil {
		return res, fmt.Errorf("save %s store: %w", kind.StoreName(), err)
	}
	res.Saved = true
	metrics.SetStoreEntries(kind.String(), res.Total)
	logger.Info("saved chart store",
		zap.Int("total", res.Total),
		zap.Int("existing", res.Existing),
		zap.Int("incoming", res.Incoming),
		zap.Int("added", res.Added()),
	)
	return res, nil
}

// Merge concatenates existing and incoming, keeps the first entry seen for
// each (date, rank) key and sorts by date then rank. Because existing entries
// come first, a stored entry wins over a re-scraped one with the same key.
func Merge(existing, incoming []chart.Entry) []chart.Entry {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]chart.Entry, 0, len(existing)+len(incoming))
	for _, batch := range [][]chart.Entry{existing, incoming} {
		for _, e := range batch {
			key := e.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, compareEntries)
	return out
}

func compareEntries(a, b chart.Entry) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
