// Package store implements the chart Merge-Store: it unions freshly scraped
// entries with the persisted ones, deduplicates them by (date, rank), sorts
// them and rewrites the whole store through a Backend.
package store
