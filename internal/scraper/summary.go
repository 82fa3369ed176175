package scraper

import (
	"time"

	"github.com/JakeFAU/billboard-charts/internal/chart"
)

// KindSummary aggregates the outcome of one chart kind over a run.
type KindSummary struct {
	Kind          chart.Kind `json:"chart"`
	Scraped       int        `json:"scraped"`
	Skipped       int        `json:"skipped_rows"`
	FailedFetches int        `json:"failed_fetches"`
	Stored        int        `json:"stored"`
	Added         int        `json:"added"`
	Saved         bool       `json:"saved"`
	Location      string     `json:"location,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Failure records one (kind, date) pair that contributed nothing.
type Failure struct {
	Kind  chart.Kind `json:"chart"`
	Date  string     `json:"date"`
	Stage string     `json:"stage"`
	Error string     `json:"error"`
}

// Summary is the report of one run. It is also the payload published when a
// notification topic is configured.
type Summary struct {
	RunID      string        `json:"run_id"`
	Start      string        `json:"start_date"`
	End        string        `json:"end_date"`
	Dates      []string      `json:"dates"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Kinds      []KindSummary `json:"charts"`
	Failures   []Failure     `json:"failures,omitempty"`
}

// TotalScraped sums the entries extracted across kinds.
func (s Summary) TotalScraped() int {
	total := 0
	for _, k := range s.Kinds {
		total += k.Scraped
	}
	return total
}

// Kind returns the summary of kind, if the run visited it.
func (s Summary) Kind(kind chart.Kind) (KindSummary, bool) {
	for _, k := range s.Kinds {
		if k.Kind == kind {
			return k, true
		}
	}
	return KindSummary{}, false
}
