// Package cmd defines the billboard CLI.
//
// Architecture overview:
//   - scrape: resolves a date range from --weeks or --start-date/--end-date, then runs internal/scraper.Runner.
//     The runner walks the Saturday chart dates of the range, fetching each chart kind through the Colly-based
//     fetcher, optionally archiving the raw page, extracting entries with goquery, and pausing a fixed delay after
//     every request. Once every date was visited, each kind's entries are merged into its store (CSV on local disk
//     or GCS, or a Postgres table) with first-occurrence-wins deduplication on (date, rank).
//   - update: runs internal/updater, which downloads the Kaggle chart dataset when it is newer than the local
//     snapshot and copies the Hot 100 file to the desktop.
//   - Configuration & plumbing: Viper populates config from a YAML file and BILLBOARD_* environment variables; zap
//     provides structured logging; Prometheus metrics are served on a chi router when metrics.addr is set; a run
//     summary is published to Pub/Sub when a topic is configured.
//
// Operational notes:
//   - Runs are sequential and single-threaded. SIGINT/SIGTERM cancel the run before the merge phase, leaving the
//     stores as they were.
//   - Fetch and parse failures are logged and skipped; store write failures make the command exit non-zero.
package cmd
