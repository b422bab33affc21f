package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pastetrace/pastetrace/internal/config"
	"github.com/pastetrace/pastetrace/internal/database"
	"github.com/pastetrace/pastetrace/internal/discovery"
	"github.com/pastetrace/pastetrace/internal/extract"
	"github.com/pastetrace/pastetrace/internal/fetch"
	"github.com/pastetrace/pastetrace/internal/log"
	"github.com/pastetrace/pastetrace/internal/model"
	"github.com/pastetrace/pastetrace/internal/render"
	"github.com/pastetrace/pastetrace/internal/report"
	"github.com/pastetrace/pastetrace/internal/resolver"
	"github.com/pastetrace/pastetrace/internal/score"
	"github.com/pastetrace/pastetrace/internal/tor"
)

// scanFlags holds the output and behavior switches of the scan command.
type scanFlags struct {
	json         bool
	markdown     bool
	output       string
	crawlAuthors bool
	darknet      bool
	renderPages  bool
}

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [paste-url]...",
		Short: "Run one-shot leak discovery over paste locations",
		Long: `Scan analyzes paste locations for credential leaks targeting a domain.

Each location is resolved to its raw-content endpoint, fetched, scored
against the target domain, and mined for exposed email addresses and
credential patterns. Locations from configured seed feeds are analyzed
alongside the ones given as arguments.

Examples:
  # Analyze two pastes for mentions of example.com
  pastetrace scan --domain example.com https://pastebin.com/AbCd1234 https://paste.ee/p/xyz

  # Also crawl the recent pastes of every discovered author
  pastetrace scan --domain example.com --crawl-authors https://pastebin.com/AbCd1234

  # Include darknet locations through an external Tor proxy
  pastetrace scan --domain example.com --darknet http://leaksdump.onion/paste/1

  # Write a JSON report to a file
  pastetrace scan --domain example.com --json -o report.json https://pastebin.com/AbCd1234

  # Use a custom configuration file
  pastetrace scan -c myconfig.yaml https://pastebin.com/AbCd1234`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("domain", "d", "",
		"Target organizational domain (overrides config file)")
	cmd.Flags().Float64P("min-score", "s", 0,
		"Minimum relevance score for a result (overrides config file)")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Per-request fetch timeout (overrides config file)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current or home directory)")

	cmd.Flags().BoolP("crawl-authors", "a", false,
		"Expand discovery to the recent pastes of found authors")
	cmd.Flags().Bool("darknet", false,
		"Analyze .onion locations through Tor")
	cmd.Flags().Bool("render", false,
		"Fall back to a headless browser for pastes that serve empty raw content")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	flags, err := readScanFlags(cmd)
	if err != nil {
		return err
	}
	if flags.json && flags.markdown {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cmd, cfg, args, flags, logger)
}

// readScanFlags collects the scan command's own flags.
func readScanFlags(cmd *cobra.Command) (scanFlags, error) {
	var flags scanFlags
	var err error

	if flags.json, err = cmd.Flags().GetBool("json"); err != nil {
		return flags, err
	}
	if flags.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return flags, err
	}
	if flags.output, err = cmd.Flags().GetString("output"); err != nil {
		return flags, err
	}
	if flags.crawlAuthors, err = cmd.Flags().GetBool("crawl-authors"); err != nil {
		return flags, err
	}
	if flags.darknet, err = cmd.Flags().GetBool("darknet"); err != nil {
		return flags, err
	}
	if flags.renderPages, err = cmd.Flags().GetBool("render"); err != nil {
		return flags, err
	}
	return flags, nil
}

// buildConfig creates a Config from the config file and command flags.
// Precedence: defaults, then config file, then flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	found := config.FindConfigFile(configPath)
	if found != "" {
		if err := config.LoadFile(found, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	if f := cmd.Flags().Lookup("domain"); f != nil && f.Changed {
		cfg.TargetDomain = f.Value.String()
	}
	if f := cmd.Flags().Lookup("min-score"); f != nil && f.Changed {
		if cfg.MinRelevanceScore, err = cmd.Flags().GetFloat64("min-score"); err != nil {
			return nil, err
		}
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		if cfg.FetchTimeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runScan executes one discovery run and writes the report.
func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, args []string, flags scanFlags, logger *slog.Logger) error {
	seeds, err := collectSeeds(ctx, cfg, args, logger)
	if err != nil {
		return err
	}

	deps, cleanup, err := buildEngineDeps(ctx, cfg, flags.darknet, flags.renderPages, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	deps.Sink = discovery.NewSlogSink(logger)

	engine, err := discovery.New(deps)
	if err != nil {
		return err
	}

	opts := model.RunOptions{
		EnableClearnet: true,
		EnableDarknet:  flags.darknet,
		CrawlAuthors:   flags.crawlAuthors,
	}

	started := time.Now().UTC()
	rep, runErr := engine.Run(ctx, seeds, opts)

	saveRun(cfg, seeds, opts, started, rep, runErr, logger)

	if rep != nil {
		if err := writeReport(cmd, cfg, flags, rep); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("discovery run failed: %w", runErr)
	}
	return nil
}

// collectSeeds merges positional arguments with configured seed feeds.
func collectSeeds(ctx context.Context, cfg *config.Config, args []string, logger *slog.Logger) ([]string, error) {
	seeds := append([]string(nil), args...)

	if len(cfg.SeedFeeds) > 0 {
		seeder := discovery.NewFeedSeeder(0)
		feedSeeds, err := seeder.Seeds(ctx, cfg.SeedFeeds)
		if err != nil {
			logger.Warn("some seed feeds failed", "error", err)
		}
		seeds = append(seeds, feedSeeds...)
	}

	if len(seeds) == 0 {
		return nil, errors.New("no locations to analyze (pass paste URLs as arguments or configure seed_feeds)")
	}
	return seeds, nil
}

// buildEngineDeps assembles the discovery collaborators from config.
// The returned cleanup releases the renderer and embedded Tor daemon.
func buildEngineDeps(ctx context.Context, cfg *config.Config, darknet, renderPages bool, logger *slog.Logger) (discovery.Deps, func(), error) {
	deps := discovery.Deps{
		Resolver: resolver.New(),
		Fetcher: fetch.NewClient(
			&http.Client{Timeout: cfg.FetchTimeout},
			fetch.WithUserAgents(cfg.UserAgents),
			fetch.WithMaxAttempts(cfg.MaxRetries),
			fetch.WithDelay(cfg.RequestDelay),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
		),
		Scorer:       score.New(cfg.TargetDomain, cfg.LeakKeywords),
		Extractor:    extract.New(cfg.TargetDomain),
		TargetDomain: cfg.TargetDomain,
		MinScore:     cfg.MinRelevanceScore,
		HighScore:    cfg.HighPriorityScore,
		AuthorLimit:  cfg.AuthorPasteLimit,
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if darknet {
		darkFetcher, stop, err := buildDarkFetcher(ctx, cfg, logger)
		if err != nil {
			return deps, cleanup, err
		}
		if stop != nil {
			cleanups = append(cleanups, stop)
		}
		deps.DarkFetcher = darkFetcher
	}

	if renderPages {
		browser := render.New(render.WithTimeout(cfg.FetchTimeout))
		if err := browser.Start(ctx); err != nil {
			logger.Warn("headless browser unavailable, rendering disabled", "error", err)
		} else {
			deps.Renderer = browser
			cleanups = append(cleanups, func() {
				if err := browser.Close(); err != nil {
					logger.Error("failed to close browser", "error", err)
				}
			})
		}
	}

	return deps, cleanup, nil
}

// buildDarkFetcher creates the Tor-routed fetch client. An unreachable
// proxy degrades to a nil fetcher rather than an error: the run proceeds
// and darknet locations are skipped.
func buildDarkFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (discovery.Fetcher, func(), error) {
	proxyAddr := cfg.TorProxyAddress
	var stop func()

	if cfg.UseEmbeddedTor {
		embedded := tor.NewEmbeddedTor()
		logger.Info("starting embedded tor daemon (this can take a few minutes)...")
		if err := embedded.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to start embedded tor: %w", err)
		}
		proxyAddr = embedded.SocksAddr()
		stop = func() {
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded tor", "error", err)
			}
		}
	}

	client, err := tor.NewClient(proxyAddr, cfg.TorTimeout)
	if err != nil {
		if stop != nil {
			stop()
		}
		return nil, nil, err
	}
	if !client.Available(ctx) {
		logger.Warn("tor proxy unreachable, darknet locations will be skipped",
			"proxy", proxyAddr)
		return nil, stop, nil
	}

	logger.Info("tor proxy verified", "proxy", proxyAddr)
	darkFetcher := fetch.NewClient(
		client.HTTPClient(),
		fetch.WithUserAgents(cfg.UserAgents),
		fetch.WithMaxAttempts(cfg.MaxRetries),
		fetch.WithDelay(cfg.RequestDelay),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	)
	return darkFetcher, stop, nil
}

// saveRun records the CLI run in the run store, best effort. A database
// failure must not discard results that are already in hand.
func saveRun(cfg *config.Config, seeds []string, opts model.RunOptions, started time.Time, rep *model.DiscoveryReport, runErr error, logger *slog.Logger) {
	db, err := database.Open(dataDir(cfg), database.DefaultOptions())
	if err != nil {
		logger.Warn("failed to open run store, run will not be recorded", "error", err)
		return
	}
	defer func() { _ = db.Close() }()

	record := &model.RunRecord{
		ID:          uuid.NewString(),
		Status:      model.StatusCompleted,
		Progress:    1.0,
		Seeds:       seeds,
		Options:     opts,
		CreatedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
	if runErr != nil {
		record.Status = model.StatusFailed
		record.Error = runErr.Error()
	}
	if rep != nil {
		record.TotalResults = len(rep.Results)
	}

	ctx := context.Background()
	if err := db.SaveRun(ctx, record); err != nil {
		logger.Warn("failed to record run", "error", err)
		return
	}
	if rep != nil {
		if err := db.SaveReport(ctx, record.ID, rep); err != nil {
			logger.Warn("failed to record report", "error", err)
		}
	}
}

// dataDir resolves the run store directory.
func dataDir(cfg *config.Config) string {
	if cfg.DBDir != "" {
		return cfg.DBDir
	}
	return config.XDGDataDir()
}

// writeReport renders the report in the selected format.
func writeReport(cmd *cobra.Command, cfg *config.Config, flags scanFlags, rep *model.DiscoveryReport) error {
	var out io.Writer = cmd.OutOrStdout()
	if flags.output != "" {
		if dir := filepath.Dir(flags.output); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	var w report.Writer
	if flags.json {
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	} else {
		w = report.NewMarkdownWriter(out, report.WithHighPriorityThreshold(cfg.HighPriorityScore))
	}
	if _, err := w.Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
