package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pastetrace/pastetrace/internal/discovery"
	"github.com/pastetrace/pastetrace/internal/model"
)

// ErrNoSeeds is returned when a run is submitted without any locations.
var ErrNoSeeds = errors.New("server: run needs at least one seed location")

// Store persists run records and reports. *database.RunDB satisfies it.
type Store interface {
	SaveRun(ctx context.Context, record *model.RunRecord) error
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)
	ListRuns(ctx context.Context) ([]*model.RunRecord, error)
	SaveReport(ctx context.Context, runID string, report *model.DiscoveryReport) error
	GetReport(ctx context.Context, runID string) (*model.DiscoveryReport, error)
}

// Broadcaster pushes live updates to subscribers. *Hub satisfies it.
type Broadcaster interface {
	Broadcast(v any)
}

// RunFunc executes one discovery run, reporting through sink. The manager
// stays ignorant of how runs are built; the command layer supplies a
// closure over a configured discovery engine.
type RunFunc func(ctx context.Context, sink discovery.Sink, seeds []string, opts model.RunOptions) (*model.DiscoveryReport, error)

// Manager owns the lifecycle of discovery runs: it accepts submissions,
// bounds how many execute at once, persists every state transition, and
// broadcasts progress to live subscribers.
//
// A submitted run always reaches a terminal status. RunFunc is expected to
// absorb its own failures into an error return; if persisting the terminal
// state fails, the failure is logged and the in-memory broadcast still
// carries the final status.
type Manager struct {
	runFunc     RunFunc
	store       Store
	broadcaster Broadcaster
	logger      *slog.Logger

	// baseCtx governs run execution. Runs must not die with the HTTP
	// request that submitted them.
	baseCtx context.Context

	group *errgroup.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBroadcaster sets the live-update broadcaster.
func WithBroadcaster(b Broadcaster) ManagerOption {
	return func(m *Manager) {
		m.broadcaster = b
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a run manager. baseCtx bounds the lifetime of every
// run; cancel it to stop in-flight runs during shutdown. maxConcurrent
// bounds simultaneously executing runs; further submissions queue.
func NewManager(baseCtx context.Context, runFunc RunFunc, store Store, maxConcurrent int, opts ...ManagerOption) *Manager {
	group := &errgroup.Group{}
	if maxConcurrent > 0 {
		group.SetLimit(maxConcurrent)
	}

	m := &Manager{
		runFunc: runFunc,
		store:   store,
		baseCtx: baseCtx,
		group:   group,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit accepts a new run and schedules it for execution. The returned
// record is a snapshot; poll Get for the live state.
func (m *Manager) Submit(ctx context.Context, seeds []string, opts model.RunOptions) (*model.RunRecord, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}

	record := model.RunRecord{
		ID:        uuid.NewString(),
		Status:    model.StatusQueued,
		Seeds:     seeds,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveRun(ctx, &record); err != nil {
		return nil, err
	}

	m.broadcastRun(&record)

	// Go blocks when the concurrency limit is reached, so scheduling
	// happens on a separate goroutine and Submit returns immediately.
	go m.group.Go(func() error {
		m.execute(record)
		return nil
	})

	snapshot := record
	return &snapshot, nil
}

// Get returns the current state of a run, or nil when unknown.
func (m *Manager) Get(ctx context.Context, id string) (*model.RunRecord, error) {
	return m.store.GetRun(ctx, id)
}

// List returns every known run, most recent first.
func (m *Manager) List(ctx context.Context) ([]*model.RunRecord, error) {
	return m.store.ListRuns(ctx)
}

// Report returns the stored report for a run, or nil when none exists.
func (m *Manager) Report(ctx context.Context, id string) (*model.DiscoveryReport, error) {
	return m.store.GetReport(ctx, id)
}

// Wait blocks until every in-flight run has finished.
func (m *Manager) Wait() {
	_ = m.group.Wait()
}

// execute runs one submission to its terminal state. It owns rec; nothing
// else mutates the record while the run executes.
func (m *Manager) execute(rec model.RunRecord) {
	rec.Status = model.StatusRunning
	m.saveRun(&rec)
	m.broadcastRun(&rec)

	sink := &managerSink{manager: m, rec: &rec}
	report, err := m.runFunc(m.baseCtx, sink, rec.Seeds, rec.Options)

	rec.CompletedAt = time.Now().UTC()
	if err != nil {
		rec.Status = model.StatusFailed
		rec.Error = err.Error()
	} else {
		rec.Status = model.StatusCompleted
		rec.Progress = 1.0
	}

	// A failed run can still carry the results collected before the
	// failure; store whatever the engine handed back.
	if report != nil {
		rec.TotalResults = len(report.Results)
		if serr := m.store.SaveReport(m.baseCtx, rec.ID, report); serr != nil {
			m.logger.Error("failed to save report", "run_id", rec.ID, "error", serr)
		}
	}

	m.saveRun(&rec)
	m.broadcastRun(&rec)
}

func (m *Manager) saveRun(rec *model.RunRecord) {
	if err := m.store.SaveRun(m.baseCtx, rec); err != nil {
		m.logger.Error("failed to save run", "run_id", rec.ID, "error", err)
	}
}

func (m *Manager) broadcastRun(rec *model.RunRecord) {
	if m.broadcaster == nil {
		return
	}
	m.broadcaster.Broadcast(runUpdate{
		RunID:        rec.ID,
		Status:       rec.Status,
		Progress:     rec.Progress,
		TotalResults: rec.TotalResults,
		Error:        rec.Error,
	})
}

// runUpdate is the payload pushed to live subscribers on every run
// transition and progress checkpoint.
type runUpdate struct {
	RunID        string          `json:"run_id"`
	Status       model.RunStatus `json:"status"`
	Progress     float64         `json:"progress"`
	TotalResults int             `json:"total_results"`
	Error        string          `json:"error,omitempty"`
}

// managerSink receives engine events for one run and turns progress
// checkpoints into persisted, broadcast state. It runs on the goroutine
// executing the run, so mutating rec is safe.
type managerSink struct {
	manager *Manager
	rec     *model.RunRecord
}

// Event implements discovery.Sink.
func (s *managerSink) Event(_ context.Context, e discovery.Event) {
	if s.manager.broadcaster == nil {
		return
	}
	s.manager.broadcaster.Broadcast(struct {
		RunID string          `json:"run_id"`
		Event discovery.Event `json:"event"`
	}{RunID: s.rec.ID, Event: e})
}

// Progress implements discovery.Sink.
func (s *managerSink) Progress(_ context.Context, fraction float64) {
	s.rec.Progress = fraction
	s.manager.saveRun(s.rec)
	s.manager.broadcastRun(s.rec)
}
