package discovery

import (
	"context"
	"log/slog"
)

// EventType classifies engine events.
type EventType string

// Engine event types.
const (
	// EventRunStarted fires once when a run begins.
	EventRunStarted EventType = "run_started"

	// EventLocationAnalyzed fires for every location that produced a result.
	EventLocationAnalyzed EventType = "location_analyzed"

	// EventLocationSkipped fires for locations discarded without a result:
	// already visited, fetch exhausted, or below the relevance threshold.
	EventLocationSkipped EventType = "location_skipped"

	// EventAuthorExpansion fires when the frontier expands to an author.
	EventAuthorExpansion EventType = "author_expansion"

	// EventRunCompleted fires once when a run finishes cleanly.
	EventRunCompleted EventType = "run_completed"

	// EventRunFailed fires once when orchestration itself fails.
	EventRunFailed EventType = "run_failed"
)

// Event is one engine occurrence. Fields beyond Type are filled when they
// apply.
type Event struct {
	// Type classifies the event.
	Type EventType `json:"type"`

	// Location is the paste URL involved, if any.
	Location string `json:"location,omitempty"`

	// Author is the author identifier for expansion events.
	Author string `json:"author,omitempty"`

	// Score is the relevance score for analyzed locations.
	Score float64 `json:"score,omitempty"`

	// Reason is a short human explanation for skips and failures.
	Reason string `json:"reason,omitempty"`

	// Results is the result count for terminal events.
	Results int `json:"results,omitempty"`
}

// Sink receives engine events and progress updates.
//
// The engine performs no logging or other observation I/O itself; it only
// calls the injected Sink. Implementations must be non-blocking or fast:
// the engine calls them inline from its run loop. A Sink must tolerate
// events after a run failure.
type Sink interface {
	// Event delivers one engine event.
	Event(ctx context.Context, e Event)

	// Progress reports a coarse completion fraction in [0, 1].
	Progress(ctx context.Context, fraction float64)
}

// NopSink discards everything. Useful in tests and one-shot CLI runs that
// only want the final report.
type NopSink struct{}

// Event implements Sink.
func (NopSink) Event(context.Context, Event) {}

// Progress implements Sink.
func (NopSink) Progress(context.Context, float64) {}

// SlogSink forwards events to a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink logging through logger.
// A nil logger falls back to slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Event implements Sink.
func (s *SlogSink) Event(ctx context.Context, e Event) {
	attrs := []any{"type", string(e.Type)}
	if e.Location != "" {
		attrs = append(attrs, "location", e.Location)
	}
	if e.Author != "" {
		attrs = append(attrs, "author", e.Author)
	}
	if e.Type == EventLocationAnalyzed {
		attrs = append(attrs, "score", e.Score)
	}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason)
	}

	switch e.Type {
	case EventRunFailed:
		s.logger.ErrorContext(ctx, "discovery event", attrs...)
	case EventLocationSkipped:
		s.logger.DebugContext(ctx, "discovery event", attrs...)
	default:
		s.logger.InfoContext(ctx, "discovery event", attrs...)
	}
}

// Progress implements Sink.
func (s *SlogSink) Progress(ctx context.Context, fraction float64) {
	s.logger.DebugContext(ctx, "discovery progress", "fraction", fraction)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Event implements Sink.
func (m MultiSink) Event(ctx context.Context, e Event) {
	for _, s := range m {
		s.Event(ctx, e)
	}
}

// Progress implements Sink.
func (m MultiSink) Progress(ctx context.Context, fraction float64) {
	for _, s := range m {
		s.Progress(ctx, fraction)
	}
}
