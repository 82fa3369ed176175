package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/billboard-charts/internal/chart"
	"github.com/JakeFAU/billboard-charts/internal/report"
)

type scrapeOptions struct {
	weeks     int
	startDate string
	endDate   string
}

// newScrapeCmd creates the 'scrape' subcommand.
func newScrapeCmd() *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape chart pages and merge them into the stores",
		Long: `Fetches the Hot 100 and Billboard 200 pages for every chart week in the
range and merges the entries into the chart stores. By default the last
--weeks weeks up to today are scraped; --start-date and --end-date together
select an explicit range. A single date on its own is ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.weeks, "weeks", 1, "number of weeks to scrape, ending today")
	cmd.Flags().StringVar(&opts.startDate, "start-date", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.endDate, "end-date", "", "end date (YYYY-MM-DD)")
	return cmd
}

func runScrape(cmd *cobra.Command, opts *scrapeOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	if (opts.startDate == "") != (opts.endDate == "") {
		logger.Warn("--start-date and --end-date are only used together; falling back to --weeks",
			zap.String("start_date", opts.startDate),
			zap.String("end_date", opts.endDate),
			zap.Int("weeks", opts.weeks),
		)
	}
	start, end, err := resolveRange(time.Now().UTC(), opts.weeks, opts.startDate, opts.endDate)
	if err != nil {
		return err
	}

	if err := appInstance.StartMetrics(); err != nil {
		return err
	}
	runner, err := appInstance.NewRunner()
	if err != nil {
		return err
	}

	cfg := appInstance.Config()
	logger.Info("scraping charts",
		zap.String("start", chart.FormatDate(start)),
		zap.String("end", chart.FormatDate(end)),
		zap.Strings("charts", cfg.Scraper.Charts),
		zap.Duration("delay", cfg.Delay()),
	)
	summary, runErr := runner.Run(cmd.Context(), start, end)
	report.WriteSummary(cmd.OutOrStdout(), summary)
	if runErr != nil {
		return fmt.Errorf("scrape run: %w", runErr)
	}
	return nil
}

// resolveRange turns the scrape flags into a [start, end] range. An explicit
// pair of dates wins over weeks; otherwise the range ends at now and spans
// weeks weeks. A single date on its own is ignored.
func resolveRange(now time.Time, weeks int, startDate, endDate string) (time.Time, time.Time, error) {
	switch {
	case startDate != "" && endDate != "":
		start, err := chart.ParseDate(startDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start-date %q: %w", startDate, err)
		}
		end, err := chart.ParseDate(endDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end-date %q: %w", endDate, err)
		}
		return start, end, nil
	case weeks < 1:
		return time.Time{}, time.Time{}, fmt.Errorf("--weeks must be >= 1, got %d", weeks)
	default:
		return now.AddDate(0, 0, -7*weeks), now, nil
	}
}
