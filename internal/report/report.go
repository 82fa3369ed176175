// Package report renders run summaries for the terminal.
package report

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JakeFAU/billboard-charts/internal/scraper"
	"github.com/JakeFAU/billboard-charts/internal/updater"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.SetOutputMirror(w)
	return t
}

// WriteSummary renders one row per chart kind followed by any failed pages.
func WriteSummary(w io.Writer, s scraper.Summary) {
	t := newTable(w)
	t.SetTitle("Run " + s.RunID + " (" + s.Start + " to " + s.End + ")")
	t.AppendHeader(table.Row{"Chart", "Scraped", "Skipped rows", "Failed fetches", "Stored", "Added", "Location"})
	for _, k := range s.Kinds {
		location := k.Location
		if k.Error != "" {
			location = "error: " + k.Error
		} else if !k.Saved {
			location = "(not saved)"
		}
		t.AppendRow(table.Row{k.Kind.DisplayName(), k.Scraped, k.Skipped, k.FailedFetches, k.Stored, k.Added, location})
	}
	t.AppendFooter(table.Row{"Total", s.TotalScraped(), "", "", "", "", strconv.Itoa(len(s.Dates)) + " week(s)"})
	t.Render()

	if len(s.Failures) == 0 {
		return
	}
	f := newTable(w)
	f.SetTitle("Failed pages")
	f.AppendHeader(table.Row{"Chart", "Date", "Stage", "Error"})
	for _, fail := range s.Failures {
		f.AppendRow(table.Row{fail.Kind.DisplayName(), fail.Date, fail.Stage, fail.Error})
	}
	f.Render()
}

// WriteFiles lists the CSV files of a dataset download.
func WriteFiles(w io.Writer, files []updater.File) {
	t := newTable(w)
	t.AppendHeader(table.Row{"File", "Size (MB)"})
	for _, file := range files {
		t.AppendRow(table.Row{file.Name, strconv.FormatFloat(float64(file.Size)/(1024*1024), 'f', 2, 64)})
	}
	t.Render()
}
