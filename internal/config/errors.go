package config

import "errors"

// Configuration validation errors.
//
// Design decision: package-level sentinel errors rather than errors created
// inside Validate(), so callers can use errors.Is() for programmatic
// handling while the message stays human-readable.
var (
	// ErrNoTargetDomain is returned when no target domain is configured.
	// Discovery is meaningless without a domain to score against.
	ErrNoTargetDomain = errors.New("no target domain specified: set target_domain or use --domain")

	// ErrInvalidMinScore is returned when the minimum relevance threshold
	// falls outside [0, 1].
	ErrInvalidMinScore = errors.New("invalid minimum relevance score: must be in [0, 1]")

	// ErrInvalidHighScore is returned when the high-priority threshold
	// falls outside [0, 1].
	ErrInvalidHighScore = errors.New("invalid high priority score: must be in [0, 1]")

	// ErrThresholdOrder is returned when the high-priority threshold does
	// not exceed the minimum relevance threshold. Allowing that ordering
	// would make the high-priority bucket empty by construction.
	ErrThresholdOrder = errors.New("high priority score must be greater than minimum relevance score")

	// ErrInvalidMaxRetries is returned when the retry count is not positive.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be positive")

	// ErrInvalidRequestDelay is returned when the politeness delay is
	// negative. Use 0 for no delay (only sensible in tests).
	ErrInvalidRequestDelay = errors.New("invalid request delay: must be non-negative")

	// ErrInvalidFetchTimeout is returned when the fetch timeout is not
	// positive; a zero timeout would fail every request immediately.
	ErrInvalidFetchTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrEmptyUserAgentPool is returned when no User-Agent strings are
	// configured. The fetch client needs at least one identity.
	ErrEmptyUserAgentPool = errors.New("user agent pool is empty")

	// ErrInvalidAuthorLimit is returned when the per-author paste cap is
	// not positive.
	ErrInvalidAuthorLimit = errors.New("invalid author paste limit: must be positive")

	// ErrInvalidMaxBodySize is returned when the body size limit is not
	// positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidConcurrency is returned when the concurrent run cap is not
	// positive.
	ErrInvalidConcurrency = errors.New("invalid max concurrent runs: must be positive")
)
