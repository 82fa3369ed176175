package chart

import (
	"strconv"
	"time"
)

// DateLayout is the canonical chart-reference date format.
const DateLayout = "2006-01-02"

// Entry is one ranked item on one chart for one chart-reference date.
type Entry struct {
	Date         time.Time
	Rank         int
	Title        string
	Artist       string
	LastWeek     *int
	PeakPosition *int
	WeeksOnChart *int
}

// DateString renders the entry date as YYYY-MM-DD.
func (e Entry) DateString() string {
	return FormatDate(e.Date)
}

// Key is the composite deduplication identity date + "_" + rank.
func (e Entry) Key() string {
	return e.DateString() + "_" + strconv.Itoa(e.Rank)
}

// Less orders entries by date, then rank.
func (e Entry) Less(other Entry) bool {
	if !e.Date.Equal(other.Date) {
		return e.Date.Before(other.Date)
	}
	return e.Rank < other.Rank
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, raw, time.UTC)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
