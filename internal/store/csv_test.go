package store

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/billboard-charts/internal/chart"
)

func TestEncodeCSVQuotesAndBlanks(t *testing.T) {
	t.Parallel()

	e := entry(t, "2024-01-06", 1, "Hello, World")
	e.Artist = `The "Quoted" Band`
	e.PeakPosition = chart.IntPtr(1)

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, chart.Hot100, []chart.Entry{e}))

	want := "date,rank,song,artist,last_week,peak_position,weeks_on_chart\n" +
		`2024-01-06,1,"Hello, World","The ""Quoted"" Band",,1,` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeCSVAlbumHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, chart.Billboard200, nil))
	assert.Equal(t, "date,rank,album,artist,last_week,peak_position,weeks_on_chart\n", buf.String())
}

func TestDecodeCSVRoundTrip(t *testing.T) {
	t.Parallel()

	in := []chart.Entry{entry(t, "2024-01-06", 1, "A, B"), entry(t, "2024-01-06", 2, "C")}
	in[0].LastWeek = chart.IntPtr(3)
	in[1].WeeksOnChart = chart.IntPtr(12)

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, chart.Billboard200, in))
	out, err := DecodeCSV(&buf, chart.Billboard200)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeCSVByHeaderName(t *testing.T) {
	t.Parallel()

	raw := "\ufeffrank,date,artist,title,weeks_on_chart\n5,2023-12-30,Someone,Thing,-\n"
	out, err := DecodeCSV(strings.NewReader(raw), chart.Hot100)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2023-12-30_5", out[0].Key())
	assert.Equal(t, "Thing", out[0].Title)
	assert.Nil(t, out[0].WeeksOnChart)
	assert.Nil(t, out[0].LastWeek)
}

func TestDecodeCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"missing column", "date,rank,artist\n", `missing column "title"`},
		{"bad date", "date,rank,song,artist\n01/06/2024,1,a,b\n", "invalid date"},
		{"bad rank", "date,rank,song,artist\n2024-01-06,one,a,b\n", "invalid rank"},
		{"bad optional", "date,rank,song,artist,last_week\n2024-01-06,1,a,b,x\n", "last_week"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeCSV(strings.NewReader(tt.raw), chart.Hot100)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeCSVEmpty(t *testing.T) {
	t.Parallel()

	out, err := DecodeCSV(strings.NewReader(""), chart.Hot100)
	require.NoError(t, err)
	assert.Empty(t, out)
}
