package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/JakeFAU/billboard-charts/internal/chart"
	"github.com/JakeFAU/billboard-charts/internal/storage"
)

const csvContentType = "text/csv; charset=utf-8"

// EncodeCSV writes a header row of kind's columns followed by one row per entry.
// Absent optional values are written as empty cells.
func EncodeCSV(w io.Writer, kind chart.Kind, entries []chart.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(kind.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.DateString(),
			strconv.Itoa(e.Rank),
			e.Title,
			e.Artist,
			formatOptional(e.LastWeek),
			formatOptional(e.PeakPosition),
			formatOptional(e.WeeksOnChart),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", e.Key(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// DecodeCSV reads a store written by EncodeCSV. Columns are located by header
// name, so column order does not matter. A generic "title" column is accepted
// when the kind-specific one is missing.
func DecodeCSV(r io.Reader, kind chart.Kind) ([]chart.Entry, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	titleCol := kind.TitleField()
	if _, ok := idx[titleCol]; !ok {
		titleCol = "title"
	}
	for _, required := range []string{"date", "rank", titleCol, "artist"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	get := func(record []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []chart.Entry
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		date, err := chart.ParseDate(get(record, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date: %w", line, err)
		}
		rank, err := strconv.Atoi(get(record, "rank"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rank: %w", line, err)
		}
		e := chart.Entry{
			Date:   date,
			Rank:   rank,
			Title:  get(record, titleCol),
			Artist: get(record, "artist"),
		}
		if e.LastWeek, err = parseOptional(get(record, "last_week")); err != nil {
			return nil, fmt.Errorf("line %d: last_week: %w", line, err)
		}
		if e.PeakPosition, err = parseOptional(get(record, "peak_position")); err != nil {
			return nil, fmt.Errorf("line %d: peak_position: %w", line, err)
		}
		if e.WeeksOnChart, err = parseOptional(get(record, "weeks_on_chart")); err != nil {
			return nil, fmt.Errorf("line %d: weeks_on_chart: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func formatOptional(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseOptional(raw string) (*int, error) {
	if raw == "" || raw == "-" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CSVBackend keeps one CSV object per chart kind in a BlobStore.
type CSVBackend struct {
	blobs  storage.BlobStore
	prefix string
}

// NewCSVBackend builds a CSVBackend writing under prefix (may be empty).
func NewCSVBackend(blobs storage.BlobStore, prefix string) *CSVBackend {
	return &CSVBackend{blobs: blobs, prefix: strings.Trim(prefix, "/")}
}

// Path is the object path of kind's store.
func (b *CSVBackend) Path(kind chart.Kind) string {
	name := kind.StoreName() + ".csv"
	if b.prefix == "" {
		return name
	}
	return path.Join(b.prefix, name)
}

// Location implements Backend.
func (b *CSVBackend) Location(kind chart.Kind) string {
	return b.Path(kind)
}

// Load implements Backend.
func (b *CSVBackend) Load(ctx context.Context, kind chart.Kind) ([]chart.Entry, error) {
	data, err := b.blobs.GetObject(ctx, b.Path(kind))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", b.Path(kind), chart.ErrStoreNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", b.Path(kind), err)
	}
	entries, err := DecodeCSV(bytes.NewReader(data), kind)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.Path(kind), err)
	}
	return entries, nil
}

// Save implements Backend by rewriting the whole object.
func (b *CSVBackend) Save(ctx context.Context, kind chart.Kind, entries []chart.Entry) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, kind, entries); err != nil {
		return fmt.Errorf("encode %s: %w", b.Path(kind), err)
	}
	if _, err := b.blobs.PutObject(ctx, b.Path(kind), csvContentType, &buf); err != nil {
		return fmt.Errorf("put %s: %w", b.Path(kind), err)
	}
	return nil
}
