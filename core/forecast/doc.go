// Package forecast orchestrates per-interval crowd prediction: it samples
// history for each point of the forward window, picks a data-source strategy
// per point when history is thin, scores confidence, and serves overlapping
// requests through a coverage-gated cache.
package forecast
