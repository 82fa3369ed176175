// Package extract turns chart pages into chart entries.
package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/billboard-charts/internal/chart"
)

// Selectors matching the publisher's chart markup.
const (
	RowSelector       = "div.o-chart-results-list-row-container"
	LabelSelector     = "span.c-label"
	TitleSelector     = "h3.c-title"
	ArtistSelector    = "span.c-label.a-no-trucate"
	SecondarySelector = `span.c-label[class~="u-font-family-secondary@mobile-max"]`
)

// absentMarker is the placeholder the publisher prints for a missing stat.
const absentMarker = "-"

// Result holds the entries emitted for one page and the rows that were dropped.
type Result struct {
	Entries []chart.Entry
	Skipped []*chart.RowParseError
}

// Extractor parses chart pages.
type Extractor struct {
	logger *zap.Logger
}

// New creates an Extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract parses raw markup into entries for kind on date. Malformed rows are
// dropped and reported in Result.Skipped; a page without valid rows yields an
// empty Result and no error.
func (e *Extractor) Extract(kind chart.Kind, raw []byte, date time.Time) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("parse %s page for %s: %w", kind, chart.FormatDate(date), err)
	}

	var res Result
	doc.Find(RowSelector).Each(func(i int, row *goquery.Selection) {
		entry, rowErr := parseRow(kind, date, i, row)
		if rowErr != nil {
			e.logger.Debug("skipping chart row",
				zap.String("chart", kind.String()),
				zap.String("date", chart.FormatDate(date)),
				zap.Int("row", i),
				zap.String("reason", rowErr.Reason),
			)
			res.Skipped = append(res.Skipped, rowErr)
			return
		}
		res.Entries = append(res.Entries, entry)
	})

	if len(res.Entries) == 0 {
		e.logger.Warn("no entries found",
			zap.String("chart", kind.String()),
			zap.String("date", chart.FormatDate(date)),
			zap.Int("skipped", len(res.Skipped)),
		)
	} else {
		e.logger.Info("extracted chart entries",
			zap.String("chart", kind.String()),
			zap.String("date", chart.FormatDate(date)),
			zap.Int("entries", len(res.Entries)),
			zap.Int("skipped", len(res.Skipped)),
		)
	}
	return res, nil
}

func parseRow(kind chart.Kind, date time.Time, index int, row *goquery.Selection) (chart.Entry, *chart.RowParseError) {
	skip := func(reason string) *chart.RowParseError {
		return &chart.RowParseError{Kind: kind, Date: date, Row: index, Reason: reason}
	}

	rankText := firstText(row, LabelSelector)
	title := firstText(row, TitleSelector)
	artist := firstText(row, ArtistSelector)
	switch {
	case rankText == "":
		return chart.Entry{}, skip("missing rank")
	case title == "":
		return chart.Entry{}, skip("missing title")
	case artist == "":
		return chart.Entry{}, skip("missing artist")
	}

	rank, err := strconv.Atoi(rankText)
	if err != nil || rank <= 0 {
		return chart.Entry{}, skip(fmt.Sprintf("invalid rank %q", rankText))
	}

	stats := row.Find(SecondarySelector)
	return chart.Entry{
		Date:         date,
		Rank:         rank,
		Title:        title,
		Artist:       artist,
		LastWeek:     optionalInt(stats, 0),
		PeakPosition: optionalInt(stats, 1),
		WeeksOnChart: optionalInt(stats, 2),
	}, nil
}

func firstText(row *goquery.Selection, selector string) string {
	return strings.TrimSpace(row.Find(selector).First().Text())
}

// optionalInt reads the i-th secondary label. Missing labels, blanks, the
// absent marker and non-numeric text all map to nil.
func optionalInt(stats *goquery.Selection, i int) *int {
	if i >= stats.Length() {
		return nil
	}
	text := strings.TrimSpace(stats.Eq(i).Text())
	if text == "" || text == absentMarker {
		return nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return nil
	}
	return &v
}
