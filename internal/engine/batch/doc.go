// Package batch fans work out over a bounded number of goroutines.
//
// The nightly refresh uses it to recompute statistics and run the advisor for
// every known user. A failing item is recorded in the Report and does not stop
// the remaining items; cancelling the context does.
package batch
