package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".pastetrace.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// fileConfig mirrors Config for YAML decoding. Duration fields are strings
// ("2s", "1m30s") parsed with time.ParseDuration, and scalars are pointers
// so that an absent field can be told apart from an explicit zero.
type fileConfig struct {
	TargetDomain      *string  `yaml:"target_domain"`
	MinRelevanceScore *float64 `yaml:"min_relevance_score"`
	HighPriorityScore *float64 `yaml:"high_priority_score"`
	RequestDelay      *string  `yaml:"request_delay"`
	MaxRetries        *int     `yaml:"max_retries"`
	FetchTimeout      *string  `yaml:"fetch_timeout"`
	LeakKeywords      []string `yaml:"leak_keywords"`
	UserAgents        []string `yaml:"user_agents"`
	SeedFeeds         []string `yaml:"seed_feeds"`
	AuthorPasteLimit  *int     `yaml:"author_paste_limit"`
	MaxBodySize       *int64   `yaml:"max_body_size"`
	TorProxyAddress   *string  `yaml:"tor_proxy_address"`
	TorTimeout        *string  `yaml:"tor_timeout"`
	UseEmbeddedTor    *bool    `yaml:"use_embedded_tor"`
	ListenAddress     *string  `yaml:"listen_address"`
	MaxConcurrentRuns *int     `yaml:"max_concurrent_runs"`
	RescanCron        *string  `yaml:"rescan_cron"`
	DBDir             *string  `yaml:"db_dir"`
}

// LoadFile loads configuration overrides from a YAML file into cfg.
// Fields absent from the file keep their current values, so callers can
// layer file contents over NewConfig() defaults.
// If the file does not exist, ErrConfigNotFound is returned; callers decide
// whether that is fatal based on whether the path was explicit.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	return fc.apply(cfg)
}

// apply copies the fields present in the file onto cfg.
func (f *fileConfig) apply(cfg *Config) error {
	if f.TargetDomain != nil {
		cfg.TargetDomain = *f.TargetDomain
	}
	if f.MinRelevanceScore != nil {
		cfg.MinRelevanceScore = *f.MinRelevanceScore
	}
	if f.HighPriorityScore != nil {
		cfg.HighPriorityScore = *f.HighPriorityScore
	}
	if f.RequestDelay != nil {
		d, err := time.ParseDuration(*f.RequestDelay)
		if err != nil {
			return fmt.Errorf("invalid request_delay: %w", err)
		}
		cfg.RequestDelay = d
	}
	if f.MaxRetries != nil {
		cfg.MaxRetries = *f.MaxRetries
	}
	if f.FetchTimeout != nil {
		d, err := time.ParseDuration(*f.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch_timeout: %w", err)
		}
		cfg.FetchTimeout = d
	}
	// An explicit empty list would disable fetching entirely; keep the
	// built-in pools in that case.
	if len(f.LeakKeywords) > 0 {
		cfg.LeakKeywords = f.LeakKeywords
	}
	if len(f.UserAgents) > 0 {
		cfg.UserAgents = f.UserAgents
	}
	if len(f.SeedFeeds) > 0 {
		cfg.SeedFeeds = f.SeedFeeds
	}
	if f.AuthorPasteLimit != nil {
		cfg.AuthorPasteLimit = *f.AuthorPasteLimit
	}
	if f.MaxBodySize != nil {
		cfg.MaxBodySize = *f.MaxBodySize
	}
	if f.TorProxyAddress != nil {
		cfg.TorProxyAddress = *f.TorProxyAddress
	}
	if f.TorTimeout != nil {
		d, err := time.ParseDuration(*f.TorTimeout)
		if err != nil {
			return fmt.Errorf("invalid tor_timeout: %w", err)
		}
		cfg.TorTimeout = d
	}
	if f.UseEmbeddedTor != nil {
		cfg.UseEmbeddedTor = *f.UseEmbeddedTor
	}
	if f.ListenAddress != nil {
		cfg.ListenAddress = *f.ListenAddress
	}
	if f.MaxConcurrentRuns != nil {
		cfg.MaxConcurrentRuns = *f.MaxConcurrentRuns
	}
	if f.RescanCron != nil {
		cfg.RescanCron = *f.RescanCron
	}
	if f.DBDir != nil {
		cfg.DBDir = *f.DBDir
	}
	return nil
}

// FindConfigFile searches for the configuration file in order:
// the explicit path if given, then the current directory, then the user's
// home directory. Returns an empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// WriteStarterFile writes a commented starter configuration to path.
// Used by the init command. Fails if the file already exists.
func WriteStarterFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.ErrExist
	}

	starter := `# pastetrace configuration
#
# The domain whose leaked credentials you are looking for.
target_domain: example.com

# Result admission and priority thresholds. The high priority score must be
# greater than the minimum relevance score.
min_relevance_score: 0.3
high_priority_score: 0.7

# Politeness: delay applied after every successful fetch.
request_delay: 2s
max_retries: 3
fetch_timeout: 10s

# Cap on pastes visited per discovered author.
author_paste_limit: 10

# Optional RSS/Atom feeds polled for extra seed URLs.
# seed_feeds:
#   - https://pastebin.com/archive/rss

# Tor (darknet discovery). Requires a reachable SOCKS5 proxy unless
# use_embedded_tor is set.
tor_proxy_address: 127.0.0.1:9050
tor_timeout: 60s
use_embedded_tor: false

# HTTP API (serve mode).
listen_address: ":8000"
max_concurrent_runs: 2
# rescan_cron: "0 */6 * * *"
`

	return os.WriteFile(path, []byte(starter), 0600)
}
