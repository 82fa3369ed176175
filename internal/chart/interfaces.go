package chart

import (
	"context"
	"time"
)

// Fetcher retrieves the raw page for one chart on one date.
type Fetcher interface {
	Fetch(ctx context.Context, kind Kind, date time.Time) ([]byte, error)
}

// Clock returns the current time and pauses between requests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Publisher pushes run notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
