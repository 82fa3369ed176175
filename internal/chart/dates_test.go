package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestAlignDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"saturday stays", time.Date(2024, 1, 6, 15, 30, 0, 0, time.UTC), "2024-01-06"},
		{"sunday moves back one day", time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), "2024-01-06"},
		{"friday moves back six days", time.Date(2024, 1, 12, 23, 59, 0, 0, time.UTC), "2024-01-06"},
		{"thursday", time.Date(2024, 2, 8, 9, 0, 0, 0, time.UTC), "2024-02-03"},
		{"crosses year boundary", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2023-12-30"},
		{"uses local calendar date", time.Date(2024, 1, 6, 23, 0, 0, 0, time.FixedZone("PST", -8*3600)), "2024-01-06"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := AlignDown(tt.in)
			assert.Equal(t, tt.want, FormatDate(got))
			assert.Equal(t, ReferenceWeekday, got.Weekday())
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestSequenceSingleDate(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	got := Sequence(d, d)
	require.Len(t, got, 1)
	assert.Equal(t, AlignDown(d), got[0])
}

func TestSequenceStepsOneWeek(t *testing.T) {
	t.Parallel()

	got := Sequence(date(t, "2024-01-01"), date(t, "2024-03-01"))
	require.NotEmpty(t, got)
	assert.Equal(t, "2023-12-30", FormatDate(got[0]))
	assert.Equal(t, "2024-02-24", FormatDate(got[len(got)-1]))
	for i := 1; i < len(got); i++ {
		assert.Equal(t, 7*24*time.Hour, got[i].Sub(got[i-1]), "gap at %d", i)
	}
}

func TestSequenceEmptyWhenStartAfterEnd(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Sequence(date(t, "2024-01-20"), date(t, "2024-01-10")))
}

func TestSequenceSameWeekCollapses(t *testing.T) {
	t.Parallel()

	// Both align to 2024-01-06 so the range is one week even though start > end.
	got := Sequence(date(t, "2024-01-11"), date(t, "2024-01-08"))
	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-06", FormatDate(got[0]))
}
