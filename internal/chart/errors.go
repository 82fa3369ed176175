package chart

import (
	"errors"
	"fmt"
	"time"
)

// ErrStoreNotFound reports that a chart store has not been created yet.
var ErrStoreNotFound = errors.New("chart store not found")

// FetchError reports a failed chart page request. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	Kind       Kind
	Date       time.Time
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s %s: status %d: %v", e.Kind, FormatDate(e.Date), e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s %s: %v", e.Kind, FormatDate(e.Date), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Network reports whether the failure happened before any response arrived.
func (e *FetchError) Network() bool {
	return e.StatusCode == 0
}

// RowParseError describes a chart row that could not be turned into an Entry.
type RowParseError struct {
	Kind   Kind
	Date   time.Time
	Row    int
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("%s %s row %d: %s", e.Kind, FormatDate(e.Date), e.Row, e.Reason)
}

// StoreReadError reports an existing store that could not be loaded.
type StoreReadError struct {
	Kind Kind
	Err  error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("read %s store: %v", e.Kind.StoreName(), e.Err)
}

func (e *StoreReadError) Unwrap() error {
	return e.Err
}
