package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the operational defaults the tool shipped with and are safe
// starting points for most deployments.
const (
	// DefaultTargetDomain is the organizational domain searched for in
	// discovered content. Deployments are expected to override this.
	DefaultTargetDomain = "example.com"

	// DefaultMinRelevanceScore is the minimum relevance a paste must reach
	// before a result is recorded. 0.3 filters out pages that merely
	// mention the domain in passing.
	DefaultMinRelevanceScore = 0.3

	// DefaultHighPriorityScore marks results worth immediate attention.
	// Must be greater than DefaultMinRelevanceScore; Validate enforces the
	// ordering so the high-priority bucket can never be structurally empty.
	DefaultHighPriorityScore = 0.7

	// DefaultRequestDelay is the politeness delay applied after every
	// successful fetch. It is sized to stay below typical automated-traffic
	// alarm thresholds on paste-site hosting, so total run time is roughly
	// delay times number of fetches.
	DefaultRequestDelay = 2 * time.Second

	// DefaultMaxRetries is the number of fetch attempts per location before
	// the location is skipped.
	DefaultMaxRetries = 3

	// DefaultFetchTimeout is the per-request HTTP timeout for clearnet
	// fetches.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	// 127.0.0.1 rather than localhost avoids IPv6 resolution surprises.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorTimeout is the per-request timeout for fetches over Tor.
	// Onion routing adds several relay hops, so this is much longer than
	// the clearnet timeout.
	DefaultTorTimeout = 60 * time.Second

	// DefaultAuthorPasteLimit caps how many recent pastes are visited per
	// discovered author. This is a deliberate breadth limit on frontier
	// expansion, not a completeness guarantee.
	DefaultAuthorPasteLimit = 10

	// DefaultMaxBodySize limits the response body size read per fetch.
	// Paste dumps can be large; 5MB keeps memory bounded while covering
	// virtually all real pastes.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultMaxConcurrentRuns bounds how many discovery runs the server
	// executes at once. Runs are independent; the cap protects the host
	// and keeps aggregate request rates polite.
	DefaultMaxConcurrentRuns = 2

	// DefaultListenAddress is the HTTP API listen address.
	DefaultListenAddress = ":8000"

	// AppName is the application name used for XDG directory paths.
	AppName = "pastetrace"
)

// DefaultLeakKeywords is the bilingual (English and Indonesian) corpus used
// by the relevance scorer. Keywords are matched case-insensitively as
// substrings of content or title; each distinct match contributes to the
// keyword weight.
//
// The list is intentionally broad: the scorer's capped weights keep a pile
// of weak matches from dominating the score.
func DefaultLeakKeywords() []string {
	return []string{
		// English
		"password", "passwd", "pwd", "credential", "login", "auth",
		"email", "username", "database", "db", "leak", "breach",
		"dump", "hack", "hacked", "data", "employee", "student", "staff",
		"account", "accounts", "user", "users", "admin",
		// Indonesian
		"mahasiswa", "dosen", "karyawan", "akun", "sandi", "kata sandi",
		"pengguna", "bocor", "kebocoran",
	}
}

// DefaultUserAgents is the identity pool rotated across fetches. Using a
// handful of current browser strings avoids the trivially blockable
// single-identity fingerprint.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
}

// Config holds all configuration for pastetrace.
// It is built once (defaults, then config file, then CLI flags), validated,
// and passed by injection into each component. Nothing reads configuration
// from ambient global state.
type Config struct {
	// TargetDomain is the organizational domain to search for.
	TargetDomain string

	// MinRelevanceScore is the minimum score for a result to be recorded.
	MinRelevanceScore float64

	// HighPriorityScore is the score at or above which a result is
	// counted as high priority. Must exceed MinRelevanceScore.
	HighPriorityScore float64

	// RequestDelay is the politeness delay after each successful fetch.
	RequestDelay time.Duration

	// MaxRetries is the number of fetch attempts per location.
	MaxRetries int

	// FetchTimeout is the per-request timeout for clearnet fetches.
	FetchTimeout time.Duration

	// LeakKeywords is the keyword corpus for the relevance scorer.
	// Empty means use DefaultLeakKeywords.
	LeakKeywords []string

	// UserAgents is the identity pool for fetch rotation.
	// Empty means use DefaultUserAgents.
	UserAgents []string

	// SeedFeeds are RSS/Atom feed URLs polled for additional seed
	// locations before a run starts. Optional.
	SeedFeeds []string

	// AuthorPasteLimit caps pastes visited per discovered author.
	AuthorPasteLimit int

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// TorProxyAddress is the Tor SOCKS5 proxy in "host:port" format.
	TorProxyAddress string

	// TorTimeout is the per-request timeout for fetches over Tor.
	TorTimeout time.Duration

	// UseEmbeddedTor starts an embedded Tor daemon instead of expecting an
	// external proxy at TorProxyAddress. Only consulted when a run enables
	// darknet discovery.
	UseEmbeddedTor bool

	// ListenAddress is the HTTP API listen address for serve mode.
	ListenAddress string

	// MaxConcurrentRuns bounds concurrent discovery runs in serve mode.
	MaxConcurrentRuns int

	// RescanCron is an optional cron expression; when set, serve mode
	// re-runs discovery for the configured seed feeds on that schedule.
	RescanCron string

	// DBDir is the directory for the SQLite run store.
	// Empty means the XDG data directory.
	DBDir string

	// Verbose enables debug-level logging.
	Verbose bool
}

// NewConfig returns a Config populated with defaults.
//
// Design decision: a constructor rather than zero values, because most
// defaults are non-zero and the constructor doubles as documentation of
// what they are.
func NewConfig() *Config {
	return &Config{
		TargetDomain:      DefaultTargetDomain,
		MinRelevanceScore: DefaultMinRelevanceScore,
		HighPriorityScore: DefaultHighPriorityScore,
		RequestDelay:      DefaultRequestDelay,
		MaxRetries:        DefaultMaxRetries,
		FetchTimeout:      DefaultFetchTimeout,
		LeakKeywords:      DefaultLeakKeywords(),
		UserAgents:        DefaultUserAgents(),
		AuthorPasteLimit:  DefaultAuthorPasteLimit,
		MaxBodySize:       DefaultMaxBodySize,
		TorProxyAddress:   DefaultTorProxyAddress,
		TorTimeout:        DefaultTorTimeout,
		ListenAddress:     DefaultListenAddress,
		MaxConcurrentRuns: DefaultMaxConcurrentRuns,
	}
}

// XDGDataDir returns the XDG data directory for pastetrace.
// On Linux: ~/.local/share/pastetrace
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pastetrace.
// On Linux: ~/.config/pastetrace
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks that the configuration is usable.
// It returns the first problem found; fixing one error often changes the
// rest, so collecting all of them is not worth the complexity.
func (c *Config) Validate() error {
	if c.TargetDomain == "" {
		return ErrNoTargetDomain
	}
	if c.MinRelevanceScore < 0 || c.MinRelevanceScore > 1 {
		return ErrInvalidMinScore
	}
	if c.HighPriorityScore < 0 || c.HighPriorityScore > 1 {
		return ErrInvalidHighScore
	}
	// The high-priority threshold must sit above the admission threshold.
	// Without this check a misconfiguration silently produces an empty
	// high-priority bucket on every run.
	if c.HighPriorityScore <= c.MinRelevanceScore {
		return ErrThresholdOrder
	}
	if c.MaxRetries <= 0 {
		return ErrInvalidMaxRetries
	}
	if c.RequestDelay < 0 {
		return ErrInvalidRequestDelay
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}
	if len(c.UserAgents) == 0 {
		return ErrEmptyUserAgentPool
	}
	if c.AuthorPasteLimit <= 0 {
		return ErrInvalidAuthorLimit
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxConcurrentRuns <= 0 {
		return ErrInvalidConcurrency
	}
	return nil
}
