package discovery

import "errors"

var (
	// ErrNilResolver is returned when an engine is built without a resolver.
	ErrNilResolver = errors.New("discovery: resolver is required")

	// ErrNilFetcher is returned when an engine is built without a fetch client.
	ErrNilFetcher = errors.New("discovery: fetch client is required")

	// ErrNilScorer is returned when an engine is built without a scorer.
	ErrNilScorer = errors.New("discovery: scorer is required")

	// ErrNilExtractor is returned when an engine is built without an extractor.
	ErrNilExtractor = errors.New("discovery: extractor is required")

	// ErrRunPanicked wraps a panic recovered from the orchestration loop.
	// The report returned alongside it holds the results collected before
	// the failure.
	ErrRunPanicked = errors.New("discovery: run failed")
)
