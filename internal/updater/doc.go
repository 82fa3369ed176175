// Package updater downloads the pre-aggregated chart dataset from Kaggle when
// a newer snapshot than the local one is available. It is independent of the
// scraping path.
package updater
