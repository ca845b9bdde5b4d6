// Package dataset implements the training-data workflow behind the name
// matcher: a SQLite-backed store of labeled song pairs, an expander that
// harvests new pairs by cross-searching two platforms with randomized
// queries, and exports of the raw and featurized tables as CSV.
package dataset
