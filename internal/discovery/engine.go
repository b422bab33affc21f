package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pastetrace/pastetrace/internal/extract"
	"github.com/pastetrace/pastetrace/internal/fetch"
	"github.com/pastetrace/pastetrace/internal/model"
	"github.com/pastetrace/pastetrace/internal/resolver"
	"github.com/pastetrace/pastetrace/internal/score"
)

// Progress checkpoints reported through the sink. Progress is coarse on
// purpose: the frontier grows while the run executes, so a per-location
// fraction would move backwards.
const (
	progressStarted     = 0.1
	progressFetching    = 0.3
	progressAggregating = 0.9
	progressDone        = 1.0
)

// Fetcher retrieves the body of a location. *fetch.Client satisfies it;
// tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (*fetch.Result, error)
}

// Renderer loads a page in a real browser and returns the text it renders.
// Used as a fallback for locations whose raw endpoint serves nothing.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// Deps are the collaborators an Engine is assembled from. Resolver,
// Fetcher, Scorer and Extractor are required. DarkFetcher and Renderer
// are optional capabilities: a nil DarkFetcher degrades darknet seeds to
// skips, a nil Renderer disables the dynamic-rendering fallback.
type Deps struct {
	Resolver    *resolver.Resolver
	Fetcher     Fetcher
	DarkFetcher Fetcher
	Renderer    Renderer
	Scorer      *score.Scorer
	Extractor   *extract.Extractor
	Sink        Sink

	// TargetDomain labels the report. It must match the scorer's domain.
	TargetDomain string

	// MinScore is the relevance threshold below which a location is
	// discarded without producing a result.
	MinScore float64

	// HighScore is the high-priority threshold used for report summaries.
	HighScore float64

	// AuthorLimit caps the recent pastes analyzed per expanded author.
	AuthorLimit int
}

// Engine orchestrates one discovery crawl: seed analysis, author
// expansion, aggregation. It holds no per-run state, so a single Engine
// serves any number of runs, concurrently or not. All per-run state lives
// in the runState created by Run.
//
// The engine is deliberately blind: it never logs, never persists, never
// serves. Everything observable goes through the injected Sink, which
// keeps the crawl loop testable without any I/O doubles beyond a Fetcher.
type Engine struct {
	resolver    *resolver.Resolver
	fetcher     Fetcher
	darkFetcher Fetcher
	renderer    Renderer
	scorer      *score.Scorer
	extractor   *extract.Extractor
	sink        Sink

	targetDomain string
	minScore     float64
	highScore    float64
	authorLimit  int
}

// New assembles an Engine, validating required collaborators.
func New(deps Deps) (*Engine, error) {
	if deps.Resolver == nil {
		return nil, ErrNilResolver
	}
	if deps.Fetcher == nil {
		return nil, ErrNilFetcher
	}
	if deps.Scorer == nil {
		return nil, ErrNilScorer
	}
	if deps.Extractor == nil {
		return nil, ErrNilExtractor
	}
	sink := deps.Sink
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		resolver:     deps.Resolver,
		fetcher:      deps.Fetcher,
		darkFetcher:  deps.DarkFetcher,
		renderer:     deps.Renderer,
		scorer:       deps.Scorer,
		extractor:    deps.Extractor,
		sink:         sink,
		targetDomain: deps.TargetDomain,
		minScore:     deps.MinScore,
		highScore:    deps.HighScore,
		authorLimit:  deps.AuthorLimit,
	}, nil
}

// runState is the working set of a single run. Visited keys are resolved
// raw URLs, so two page URLs for the same paste cost one fetch.
type runState struct {
	visited        map[string]struct{}
	results        []model.ScoredResult
	authors        map[string]string
	darknetResults int
}

func newRunState() *runState {
	return &runState{
		visited: make(map[string]struct{}),
		authors: make(map[string]string),
	}
}

// Run executes one discovery crawl over the seed locations and returns the
// aggregated report.
//
// Per-location failures (unreachable paste, dead author page) are absorbed
// as skip events and never fail the run. Context cancellation stops the
// crawl between locations and returns the report built from what was
// collected, alongside the context error. A panic anywhere in the loop is
// recovered the same way, wrapped in ErrRunPanicked: callers always get a
// report, possibly partial, and the run always terminates.
func (e *Engine) Run(ctx context.Context, seeds []string, opts model.RunOptions) (report *model.DiscoveryReport, err error) {
	st := newRunState()
	defer func() {
		if r := recover(); r != nil {
			report = e.buildReport(st)
			err = fmt.Errorf("%w: %v", ErrRunPanicked, r)
			e.sink.Event(ctx, Event{
				Type:    EventRunFailed,
				Reason:  fmt.Sprint(r),
				Results: len(report.Results),
			})
		}
	}()

	e.sink.Event(ctx, Event{Type: EventRunStarted})
	e.sink.Progress(ctx, progressStarted)

	e.sink.Progress(ctx, progressFetching)
	for _, loc := range seeds {
		if cerr := ctx.Err(); cerr != nil {
			return e.buildReport(st), cerr
		}
		e.analyze(ctx, st, loc, opts, true)
	}

	if opts.CrawlAuthors {
		if cerr := e.expandAuthors(ctx, st, opts); cerr != nil {
			return e.buildReport(st), cerr
		}
	}

	e.sink.Progress(ctx, progressAggregating)
	report = e.buildReport(st)
	e.sink.Progress(ctx, progressDone)
	e.sink.Event(ctx, Event{Type: EventRunCompleted, Results: len(report.Results)})
	return report, nil
}

// analyze processes one location end to end: resolve, dedup, fetch, score,
// extract. Failures degrade to skip events. collectAuthors gates frontier
// growth so author expansion cannot recurse into further expansion.
func (e *Engine) analyze(ctx context.Context, st *runState, location string, opts model.RunOptions, collectAuthors bool) {
	raw := e.resolver.Resolve(location)
	if _, dup := st.visited[raw]; dup {
		e.skip(ctx, location, "already visited")
		return
	}
	st.visited[raw] = struct{}{}

	fetcher, onion, reason := e.route(raw, opts)
	if fetcher == nil {
		e.skip(ctx, location, reason)
		return
	}

	res, err := fetcher.Fetch(ctx, raw)
	if err != nil {
		e.skip(ctx, location, err.Error())
		return
	}
	content := string(res.Body)

	// Some services hide raw content behind script challenges and serve an
	// empty body to plain clients. Fall back to a real browser when one is
	// available.
	if strings.TrimSpace(content) == "" && e.renderer != nil {
		if rendered, rerr := e.renderer.Render(ctx, location); rerr == nil {
			content = rendered
		}
	}

	meta := e.metadata(ctx, fetcher, location, raw, res, content)

	relevance := e.scorer.Score(content, meta.Title)
	if relevance < e.minScore {
		e.skip(ctx, location, "below relevance threshold")
		return
	}

	timestamp := meta.Timestamp
	if timestamp == "" || timestamp == model.UnknownValue {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	result := model.ScoredResult{
		Location:       location,
		Source:         e.resolver.Source(location),
		Title:          meta.Title,
		Author:         meta.Author,
		Timestamp:      timestamp,
		Score:          score.Round(relevance),
		Emails:         e.extractor.Emails(content),
		TargetEmails:   e.extractor.TargetEmails(content),
		HasCredentials: e.extractor.HasCredentialSignal(content),
		Preview:        model.Preview(content),
		ContentHash:    model.HashContent([]byte(content)),
	}
	st.results = append(st.results, result)
	if onion {
		st.darknetResults++
	}
	e.sink.Event(ctx, Event{
		Type:     EventLocationAnalyzed,
		Location: location,
		Score:    result.Score,
	})

	if collectAuthors && opts.CrawlAuthors && meta.Author != model.UnknownValue {
		if _, known := st.authors[meta.Author]; !known {
			st.authors[meta.Author] = meta.AuthorURL
		}
	}
}

// route picks the fetcher for a location and reports whether it is a
// darknet location. A nil fetcher with a reason means the location must be
// skipped.
func (e *Engine) route(rawURL string, opts model.RunOptions) (f Fetcher, onion bool, reason string) {
	if isOnion(rawURL) {
		if !opts.EnableDarknet {
			return nil, true, "darknet disabled"
		}
		if e.darkFetcher == nil {
			return nil, true, "tor unavailable"
		}
		return e.darkFetcher, true, ""
	}
	if !opts.EnableClearnet {
		return nil, false, "clearnet disabled"
	}
	return e.fetcher, false, ""
}

// metadata recovers title, author and timestamp for a location. When the
// raw URL differs from the page URL the page is fetched separately, best
// effort; otherwise the already fetched body is parsed when it looks like
// HTML. Raw plain-text pastes carry no metadata and stay unknown.
func (e *Engine) metadata(ctx context.Context, fetcher Fetcher, location, rawURL string, res *fetch.Result, content string) Metadata {
	if rawURL != location {
		page, err := fetcher.Fetch(ctx, location)
		if err != nil {
			return UnknownMetadata()
		}
		return ParseMetadata(string(page.Body), location)
	}
	if strings.Contains(res.ContentType, "text/html") {
		return ParseMetadata(content, location)
	}
	return UnknownMetadata()
}

// expandAuthors walks every author collected during seeding and analyzes
// their recent pastes, capped per author. Authors are visited in sorted
// order so runs over the same inputs behave the same. Only context
// cancellation propagates.
func (e *Engine) expandAuthors(ctx context.Context, st *runState, opts model.RunOptions) error {
	names := make([]string, 0, len(st.authors))
	for name := range st.authors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		listing := st.authors[name]
		if listing == "" {
			e.sink.Event(ctx, Event{
				Type:   EventLocationSkipped,
				Author: name,
				Reason: "author listing unknown",
			})
			continue
		}
		e.sink.Event(ctx, Event{
			Type:     EventAuthorExpansion,
			Author:   name,
			Location: listing,
		})

		res, err := e.fetcher.Fetch(ctx, listing)
		if err != nil {
			e.skip(ctx, listing, err.Error())
			continue
		}
		for _, paste := range ParseAuthorPastes(string(res.Body), listing, e.authorLimit) {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.analyze(ctx, st, paste, opts, false)
		}
	}
	return nil
}

func (e *Engine) buildReport(st *runState) *model.DiscoveryReport {
	return model.NewDiscoveryReport(e.targetDomain, st.results, e.highScore, st.darknetResults)
}

func (e *Engine) skip(ctx context.Context, location, reason string) {
	e.sink.Event(ctx, Event{
		Type:     EventLocationSkipped,
		Location: location,
		Reason:   reason,
	})
}

// isOnion reports whether the location's host is a Tor hidden service.
func isOnion(location string) bool {
	host := location
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	return strings.HasSuffix(strings.ToLower(host), ".onion")
}
