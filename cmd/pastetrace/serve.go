package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pastetrace/pastetrace/internal/config"
	"github.com/pastetrace/pastetrace/internal/database"
	"github.com/pastetrace/pastetrace/internal/discovery"
	"github.com/pastetrace/pastetrace/internal/log"
	"github.com/pastetrace/pastetrace/internal/model"
	"github.com/pastetrace/pastetrace/internal/server"
)

// shutdownTimeout bounds draining in-flight HTTP requests on exit.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the discovery HTTP API",
		Long: `Serve starts the HTTP API for submitting and tracking discovery runs.

Endpoints:
  POST /api/scans        submit a run ({"urls": [...], "options": {...}})
  GET  /api/scans        list runs, most recent first
  GET  /api/scans/{id}   poll run status and progress
  GET  /api/results/{id} retrieve the report of a finished run
  GET  /ws               WebSocket stream of live run updates
  GET  /healthz          liveness probe

Runs and reports are persisted in SQLite, so results survive restarts.
With rescan_cron configured, discovery over the seed feeds repeats on
that schedule.

Examples:
  # Serve on the configured address (default :8000)
  pastetrace serve

  # Serve on a specific address with a custom config
  pastetrace serve --addr :9090 -c myconfig.yaml`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "l", "",
		"Listen address (overrides config file)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current or home directory)")
	cmd.Flags().Bool("darknet", false,
		"Verify the Tor proxy at startup so runs can use darknet discovery")
	cmd.Flags().Bool("render", false,
		"Start a headless browser for pastes that serve empty raw content")
	cmd.Flags().String("rescan-cron", "",
		"Cron schedule for recurring discovery over seed feeds (overrides config file)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.ListenAddress = f.Value.String()
	}
	if f := cmd.Flags().Lookup("rescan-cron"); f != nil && f.Changed {
		cfg.RescanCron = f.Value.String()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	darknet, err := cmd.Flags().GetBool("darknet")
	if err != nil {
		return err
	}
	renderPages, err := cmd.Flags().GetBool("render")
	if err != nil {
		return err
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, stopping...")
		cancel()
	}()

	return runServe(ctx, cfg, darknet, renderPages, logger)
}

// runServe wires the service together and serves until the context ends.
func runServe(ctx context.Context, cfg *config.Config, darknet, renderPages bool, logger *slog.Logger) error {
	db, err := database.Open(dataDir(cfg), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer func() { _ = db.Close() }()
	logger.Info("run store opened", "path", db.Path())

	deps, cleanup, err := buildEngineDeps(ctx, cfg, darknet, renderPages, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := server.NewHub(logger)

	// Every run gets a fresh engine carrying that run's sink; the
	// collaborators behind it are shared.
	runFunc := func(runCtx context.Context, sink discovery.Sink, seeds []string, opts model.RunOptions) (*model.DiscoveryReport, error) {
		runDeps := deps
		runDeps.Sink = discovery.MultiSink{discovery.NewSlogSink(logger), sink}
		engine, err := discovery.New(runDeps)
		if err != nil {
			return nil, err
		}
		return engine.Run(runCtx, seeds, opts)
	}

	manager := server.NewManager(ctx, runFunc, db, cfg.MaxConcurrentRuns,
		server.WithBroadcaster(hub),
		server.WithLogger(logger),
	)

	if cfg.RescanCron != "" {
		rescanner, err := newRescanner(ctx, cfg, manager, logger)
		if err != nil {
			return fmt.Errorf("invalid rescan_cron: %w", err)
		}
		rescanner.Start()
		defer rescanner.Stop()
	}

	srv := server.New(cfg.ListenAddress, manager, hub, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down cleanly", "error", err)
	}
	manager.Wait()
	return nil
}

// newRescanner schedules recurring discovery over the configured seed
// feeds. Each firing polls the feeds fresh and submits whatever they
// currently list.
func newRescanner(ctx context.Context, cfg *config.Config, manager *server.Manager, logger *slog.Logger) (*server.Rescanner, error) {
	if len(cfg.SeedFeeds) == 0 {
		return nil, fmt.Errorf("rescan_cron is set but seed_feeds is empty")
	}

	submit := func() {
		seeder := discovery.NewFeedSeeder(0)
		seeds, err := seeder.Seeds(ctx, cfg.SeedFeeds)
		if err != nil {
			logger.Warn("some seed feeds failed during rescan", "error", err)
		}
		if len(seeds) == 0 {
			logger.Warn("rescan found no seeds, skipping run")
			return
		}
		record, err := manager.Submit(ctx, seeds, model.RunOptions{EnableClearnet: true})
		if err != nil {
			logger.Error("failed to submit rescan run", "error", err)
			return
		}
		logger.Info("rescan run submitted", "run_id", record.ID, "seeds", len(seeds))
	}

	return server.NewRescanner(cfg.RescanCron, submit, logger)
}
