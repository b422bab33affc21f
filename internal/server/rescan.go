package server

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Rescanner re-submits discovery on a cron schedule, so feeds keep being
// polled and known targets keep being rechecked without operator action.
type Rescanner struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewRescanner schedules submit on the given cron expression (standard
// five-field syntax). submit runs on the scheduler goroutine and should
// hand actual work to the run manager rather than doing it inline.
func NewRescanner(spec string, submit func(), logger *slog.Logger) (*Rescanner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, submit); err != nil {
		return nil, err
	}
	return &Rescanner{cron: c, logger: logger}, nil
}

// Start begins firing the schedule.
func (r *Rescanner) Start() {
	r.logger.Info("rescan schedule started")
	r.cron.Start()
}

// Stop halts the schedule. Jobs already running are not interrupted.
func (r *Rescanner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("rescan schedule stopped")
}
