package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/billboard-charts/internal/chart"
	"github.com/JakeFAU/billboard-charts/internal/extract"
	"github.com/JakeFAU/billboard-charts/internal/id/uuid"
	"github.com/JakeFAU/billboard-charts/internal/metrics"
	"github.com/JakeFAU/billboard-charts/internal/store"
)

// DefaultDelay is the pause after each chart request.
const DefaultDelay = 2 * time.Second

// Extractor turns a fetched page into entries.
type Extractor interface {
	Extract(kind chart.Kind, raw []byte, date time.Time) (extract.Result, error)
}

// Merger merges a run's entries into the persistent store of a kind.
type Merger interface {
	MergeAndSave(ctx context.Context, kind chart.Kind, incoming []chart.Entry) (store.MergeResult, error)
}

// Archiver keeps a copy of every fetched page.
type Archiver interface {
	Save(ctx context.Context, kind chart.Kind, date time.Time, body []byte) (string, error)
}

// IDGenerator names runs.
type IDGenerator interface {
	NewID() (string, error)
}

// Deps are the collaborators of a Runner. Archiver, Publisher and IDs are
// optional; IDs defaults to UUIDv7.
type Deps struct {
	Fetcher   chart.Fetcher
	Extractor Extractor
	Store     Merger
	Clock     chart.Clock
	Archiver  Archiver
	Publisher chart.Publisher
	IDs       IDGenerator
}

// Config controls Runner behavior.
type Config struct {
	// Delay is the pause after each chart request, successful or not.
	Delay time.Duration
	// Topic receives the run summary when set and a Publisher is configured.
	Topic string
	// Kinds overrides chart.Kinds.
	Kinds []chart.Kind
}

// Runner executes scrape runs sequentially.
type Runner struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Runner.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Runner, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("store is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("delay must be >= 0, got %s", cfg.Delay)
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = chart.Kinds
	}
	if deps.IDs == nil {
		deps.IDs = uuid.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{deps: deps, cfg: cfg, logger: logger}, nil
}

// Run scrapes every chart kind for every chart date between start and end,
// then merges the results into the stores. Fetch and extraction failures are
// recorded in the summary and never stop the run. Store write failures are
// joined into the returned error after every kind was attempted. A canceled
// context stops the run before anything is merged.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (Summary, error) {
	id, err := r.deps.IDs.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	dates := chart.Sequence(start, end)
	summary := Summary{
		RunID:     id,
		Start:     chart.FormatDate(start),
		End:       chart.FormatDate(end),
		Dates:     make([]string, 0, len(dates)),
		StartedAt: r.deps.Clock.Now(),
		Kinds:     make([]KindSummary, len(r.cfg.Kinds)),
	}
	for i, kind := range r.cfg.Kinds {
		summary.Kinds[i].Kind = kind
	}
	for _, d := range dates {
		summary.Dates = append(summary.Dates, chart.FormatDate(d))
	}

	logger := r.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("starting chart run",
		zap.String("start", summary.Start),
		zap.String("end", summary.End),
		zap.Int("dates", len(dates)),
		zap.Int("charts", len(r.cfg.Kinds)),
	)
	if len(dates) == 0 {
		logger.Warn("no chart dates in range")
	}

	batches := make([][]chart.Entry, len(r.cfg.Kinds))
	for _, date := range dates {
		for i, kind := range r.cfg.Kinds {
			if err := ctx.Err(); err != nil {
				return r.interrupted(logger, summary, err)
			}
			entries := r.scrapeOne(ctx, logger, kind, date, &summary.Kinds[i], &summary.Failures)
			summary.Kinds[i].Scraped += len(entries)
			batches[i] = append(batches[i], entries...)

			if err := r.deps.Clock.Sleep(ctx, r.cfg.Delay); err != nil {
				return r.interrupted(logger, summary, err)
			}
		}
	}

	var saveErrs []error
	for i, kind := range r.cfg.Kinds {
		res, err := r.deps.Store.MergeAndSave(ctx, kind, batches[i])
		ks := &summary.Kinds[i]
		ks.Stored = res.Total
		ks.Added = res.Added()
		ks.Saved = res.Saved
		ks.Location = res.Location
		if err != nil {
			logger.Error("store write failed", zap.String("chart", kind.String()), zap.Error(err))
			ks.Error = err.Error()
			saveErrs = append(saveErrs, err)
		}
	}
	summary.FinishedAt = r.deps.Clock.Now()

	logger.Info("chart run complete",
		zap.Int("scraped", summary.TotalScraped()),
		zap.Int("failures", len(summary.Failures)),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	r.publish(ctx, logger, summary)
	return summary, errors.Join(saveErrs...)
}

// scrapeOne fetches, archives and extracts one page. It returns nil when the
// page contributed nothing.
func (r *Runner) scrapeOne(
	ctx context.Context,
	logger *zap.Logger,
	kind chart.Kind,
	date time.Time,
	ks *KindSummary,
	failures *[]Failure,
) []chart.Entry {
	fields := []zap.Field{zap.String("chart", kind.String()), zap.String("date", chart.FormatDate(date))}

	body, err := r.deps.Fetcher.Fetch(ctx, kind, date)
	if err != nil {
		logger.Warn("chart fetch failed", append(fields, zap.Error(err))...)
		ks.FailedFetches++
		*failures = append(*failures, Failure{
			Kind: kind, Date: chart.FormatDate(date), Stage: "fetch", Error: err.Error(),
		})
		return nil
	}

	if r.deps.Archiver != nil {
		if _, err := r.deps.Archiver.Save(ctx, kind, date, body); err != nil {
			logger.Warn("archive chart page failed", append(fields, zap.Error(err))...)
		}
	}

	res, err := r.deps.Extractor.Extract(kind, body, date)
	if err != nil {
		logger.Warn("chart extraction failed", append(fields, zap.Error(err))...)
		*failures = append(*failures, Failure{
			Kind: kind, Date: chart.FormatDate(date), Stage: "extract", Error: err.Error(),
		})
		return nil
	}
	ks.Skipped += len(res.Skipped)
	metrics.ObserveExtraction(kind.String(), len(res.Entries), len(res.Skipped))
	return res.Entries
}

func (r *Runner) interrupted(logger *zap.Logger, summary Summary, cause error) (Summary, error) {
	summary.FinishedAt = r.deps.Clock.Now()
	logger.Warn("chart run interrupted before merge", zap.Error(cause))
	return summary, fmt.Errorf("run interrupted: %w", cause)
}

func (r *Runner) publish(ctx context.Context, logger *zap.Logger, summary Summary) {
	if r.deps.Publisher == nil || r.cfg.Topic == "" {
		return
	}
	id, err := r.deps.Publisher.Publish(ctx, r.cfg.Topic, summary)
	if err != nil {
		logger.Error("publish run summary failed", zap.String("topic", r.cfg.Topic), zap.Error(err))
		return
	}
	logger.Info("published run summary", zap.String("topic", r.cfg.Topic), zap.String("message_id", id))
}
