package chart

import "time"

// ReferenceWeekday is the weekday every chart-reference date falls on. The
// publisher dates its weekly charts on Saturdays, so this is fixed rather than
// configurable.
const ReferenceWeekday = time.Saturday

const week = 7 * 24 * time.Hour

// AlignDown returns midnight UTC of the most recent ReferenceWeekday on or
// before the calendar date of t, as observed in t's location.
func AlignDown(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	back := (int(day.Weekday()) - int(ReferenceWeekday) + 7) % 7
	return day.AddDate(0, 0, -back)
}

// Sequence returns every aligned chart-reference date from AlignDown(start)
// through AlignDown(end) inclusive, one week apart. It is empty when the
// aligned start falls after the aligned end.
func Sequence(start, end time.Time) []time.Time {
	first := AlignDown(start)
	last := AlignDown(end)
	if first.After(last) {
		return nil
	}
	dates := make([]time.Time, 0, int(last.Sub(first)/week)+1)
	for current := first; !current.After(last); current = current.AddDate(0, 0, 7) {
		dates = append(dates, current)
	}
	return dates
}
