// Package chart defines the chart kinds, entries, errors and interfaces shared by
// the fetcher, extractor, merge store and run orchestrator.
package chart
