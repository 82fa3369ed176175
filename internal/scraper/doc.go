// Package scraper drives one acquisition run: it walks the chart dates of a
// range, fetches and extracts every chart kind for each date, then merges the
// collected entries into the chart stores once per kind.
package scraper
