package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/pastetrace/pastetrace/internal/extract"
	"github.com/pastetrace/pastetrace/internal/fetch"
	"github.com/pastetrace/pastetrace/internal/model"
	"github.com/pastetrace/pastetrace/internal/resolver"
	"github.com/pastetrace/pastetrace/internal/score"
)

const leakBody = "Huge data breach at example.com. password dump leaked " +
	"database includes admin@example.com and login admin:hunter2."

const boringBody = "recipe for vegetable soup, nothing else"

// fakeFetcher serves canned bodies keyed by URL and records every call.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	html   map[string]bool
	panics map[string]bool
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: make(map[string]string),
		html:   make(map[string]bool),
		panics: make(map[string]bool),
		calls:  make(map[string]int),
	}
}

func (f *fakeFetcher) serve(location, body string) { f.bodies[location] = body }

func (f *fakeFetcher) serveHTML(location, body string) {
	f.bodies[location] = body
	f.html[location] = true
}

func (f *fakeFetcher) Fetch(_ context.Context, location string) (*fetch.Result, error) {
	f.mu.Lock()
	f.calls[location]++
	f.mu.Unlock()

	if f.panics[location] {
		panic("fetcher blew up on " + location)
	}
	body, ok := f.bodies[location]
	if !ok {
		return nil, fmt.Errorf("no route for %s", location)
	}
	contentType := "text/plain"
	if f.html[location] {
		contentType = "text/html"
	}
	return &fetch.Result{Body: []byte(body), StatusCode: 200, ContentType: contentType}, nil
}

func (f *fakeFetcher) callCount(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[location]
}

// recordSink captures events and progress fractions for assertions.
type recordSink struct {
	mu        sync.Mutex
	events    []Event
	fractions []float64
}

func (s *recordSink) Event(_ context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordSink) Progress(_ context.Context, fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fractions = append(s.fractions, fraction)
}

func (s *recordSink) ofType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// testResolver maps paste.test page URLs to their raw endpoints.
func testResolver() *resolver.Resolver {
	r := resolver.New()
	r.Register(resolver.Rule{
		HostSuffix: "paste.test",
		Transform: func(u *url.URL) string {
			if strings.HasPrefix(u.Path, "/raw/") {
				return u.String()
			}
			return u.Scheme + "://" + u.Host + "/raw/" + strings.Trim(u.Path, "/")
		},
	})
	return r
}

func testKeywords() []string {
	return []string{"password", "leak", "breach", "database", "dump"}
}

func newTestEngine(t *testing.T, deps Deps) *Engine {
	t.Helper()
	if deps.Resolver == nil {
		deps.Resolver = testResolver()
	}
	if deps.Scorer == nil {
		deps.Scorer = score.New("example.com", testKeywords())
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New("example.com")
	}
	if deps.TargetDomain == "" {
		deps.TargetDomain = "example.com"
	}
	if deps.MinScore == 0 {
		deps.MinScore = 0.3
	}
	if deps.HighScore == 0 {
		deps.HighScore = 0.7
	}
	if deps.AuthorLimit == 0 {
		deps.AuthorLimit = 10
	}
	engine, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	return engine
}

func clearnetOpts() model.RunOptions {
	return model.RunOptions{EnableClearnet: true}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	base := Deps{
		Resolver:  testResolver(),
		Fetcher:   newFakeFetcher(),
		Scorer:    score.New("example.com", testKeywords()),
		Extractor: extract.New("example.com"),
	}

	tests := []struct {
		name    string
		mutate  func(d *Deps)
		wantErr error
	}{
		{"missing resolver", func(d *Deps) { d.Resolver = nil }, ErrNilResolver},
		{"missing fetcher", func(d *Deps) { d.Fetcher = nil }, ErrNilFetcher},
		{"missing scorer", func(d *Deps) { d.Scorer = nil }, ErrNilScorer},
		{"missing extractor", func(d *Deps) { d.Extractor = nil }, ErrNilExtractor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			deps := base
			tt.mutate(&deps)
			if _, err := New(deps); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("nil sink defaults to nop", func(t *testing.T) {
		t.Parallel()

		engine, err := New(base)
		if err != nil {
			t.Fatalf("New() error = %v, want nil", err)
		}
		if _, err := engine.Run(context.Background(), nil, clearnetOpts()); err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	})
}

func TestRunScoresAndFilters(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	f.serve("https://paste.test/raw/bore5678", boringBody)
	sink := &recordSink{}
	engine := newTestEngine(t, Deps{Fetcher: f, Sink: sink})

	seeds := []string{
		"https://paste.test/raw/leak1234",
		"https://paste.test/raw/bore5678",
	}
	report, err := engine.Run(context.Background(), seeds, clearnetOpts())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if got := len(report.Results); got != 1 {
		t.Fatalf("len(Results) = %d, want 1", got)
	}
	got := report.Results[0]
	if got.Location != "https://paste.test/raw/leak1234" {
		t.Errorf("Location = %q, want the leak seed", got.Location)
	}
	if got.Score < 0.3 {
		t.Errorf("Score = %v, want >= threshold 0.3", got.Score)
	}
	if !got.HasCredentials {
		t.Error("HasCredentials = false, want true")
	}
	wantEmails := []string{"admin@example.com"}
	if len(got.Emails) != 1 || got.Emails[0] != wantEmails[0] {
		t.Errorf("Emails = %v, want %v", got.Emails, wantEmails)
	}
	if len(got.TargetEmails) != 1 {
		t.Errorf("TargetEmails = %v, want one entry", got.TargetEmails)
	}
	if got.Source != "paste" {
		t.Errorf("Source = %q, want %q", got.Source, "paste")
	}

	skips := sink.ofType(EventLocationSkipped)
	if len(skips) != 1 || skips[0].Reason != "below relevance threshold" {
		t.Errorf("skip events = %+v, want one threshold skip", skips)
	}
	if report.Summary.TotalResults != 1 {
		t.Errorf("Summary.TotalResults = %d, want 1", report.Summary.TotalResults)
	}
}

func TestRunSkipsUnreachableLocations(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	sink := &recordSink{}
	engine := newTestEngine(t, Deps{Fetcher: f, Sink: sink})

	seeds := []string{
		"https://paste.test/raw/gone0000",
		"https://paste.test/raw/leak1234",
	}
	report, err := engine.Run(context.Background(), seeds, clearnetOpts())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	skips := sink.ofType(EventLocationSkipped)
	if len(skips) != 1 {
		t.Fatalf("skip events = %+v, want exactly one", skips)
	}
	if skips[0].Location != "https://paste.test/raw/gone0000" {
		t.Errorf("skipped Location = %q, want the unreachable seed", skips[0].Location)
	}
	if !strings.Contains(skips[0].Reason, "no route for") {
		t.Errorf("skip Reason = %q, want the fetch error", skips[0].Reason)
	}

	if got := report.Summary.TotalResults; got != 1 {
		t.Errorf("Summary.TotalResults = %d, want 1", got)
	}
	if len(report.Results) != 1 || report.Results[0].Location != "https://paste.test/raw/leak1234" {
		t.Errorf("Results = %+v, want only the reachable seed", report.Results)
	}
	if done := sink.ofType(EventRunCompleted); len(done) != 1 {
		t.Errorf("run completed events = %d, want 1", len(done))
	}
}

func TestRunDeduplicatesResolvedLocations(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	f.serveHTML("https://paste.test/leak1234", "<html><body>page shell</body></html>")
	sink := &recordSink{}
	engine := newTestEngine(t, Deps{Fetcher: f, Sink: sink})

	// Page URL and raw URL point at the same paste.
	seeds := []string{
		"https://paste.test/leak1234",
		"https://paste.test/raw/leak1234",
	}
	report, err := engine.Run(context.Background(), seeds, clearnetOpts())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if got := len(report.Results); got != 1 {
		t.Errorf("len(Results) = %d, want 1", got)
	}
	if got := f.callCount("https://paste.test/raw/leak1234"); got != 1 {
		t.Errorf("raw endpoint fetched %d times, want 1", got)
	}
	skips := sink.ofType(EventLocationSkipped)
	if len(skips) != 1 || skips[0].Reason != "already visited" {
		t.Errorf("skip events = %+v, want one visited skip", skips)
	}
}

func TestRunFetchesMetadataFromPageURL(t *testing.T) {
	t.Parallel()

	page := `<html><body>
		<div class="info-top"><h1>Company Credential Dump</h1></div>
		<div class="username"><a href="/u/leaker42">leaker42</a></div>
		<div class="date">Jan 2, 2026</div>
	</body></html>`

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	f.serveHTML("https://paste.test/leak1234", page)
	engine := newTestEngine(t, Deps{Fetcher: f})

	report, err := engine.Run(context.Background(), []string{"https://paste.test/leak1234"}, clearnetOpts())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if len(report.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(report.Results))
	}

	got := report.Results[0]
	if got.Title != "Company Credential Dump" {
		t.Errorf("Title = %q, want %q", got.Title, "Company Credential Dump")
	}
	if got.Author != "leaker42" {
		t.Errorf("Author = %q, want %q", got.Author, "leaker42")
	}
	if got.Timestamp != "2026-01-02T00:00:00Z" {
		t.Errorf("Timestamp = %q, want normalized date", got.Timestamp)
	}
}

func TestRunUnreachableMetadataStaysUnknown(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	// No body registered for the page URL, so the metadata fetch fails.
	engine := newTestEngine(t, Deps{Fetcher: f})

	report, err := engine.Run(context.Background(), []string{"https://paste.test/leak1234"}, clearnetOpts())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if len(report.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(report.Results))
	}
	got := report.Results[0]
	if got.Title != model.UnknownValue || got.Author != model.UnknownValue {
		t.Errorf("Title, Author = %q, %q, want both %q", got.Title, got.Author, model.UnknownValue)
	}
	if got.Timestamp == "" || got.Timestamp == model.UnknownValue {
		t.Errorf("Timestamp = %q, want a current RFC 3339 fallback", got.Timestamp)
	}
}

func TestRunAuthorExpansionCapped(t *testing.T) {
	t.Parallel()

	page := `<html><body>
		<div class="info-top"><h1>Leak</h1></div>
		<div class="username"><a href="/u/leaker42">leaker42</a></div>
	</body></html>`

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/seed0000", leakBody)
	f.serveHTML("https://paste.test/seed0000", page)

	var listing strings.Builder
	listing.WriteString("<html><body>")
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("paste%03d", i)
		fmt.Fprintf(&listing, `<a href="/%s">%s</a>`, id, id)
		f.serve("https://paste.test/raw/"+id, leakBody)
		f.serveHTML("https://paste.test/"+id, page)
	}
	listing.WriteString("</body></html>")
	f.serveHTML("https://paste.test/u/leaker42", listing.String())

	sink := &recordSink{}
	engine := newTestEngine(t, Deps{Fetcher: f, Sink: sink})

	opts := model.RunOptions{EnableClearnet: true, CrawlAuthors: true}
	report, err := engine.Run(context.Background(), []string{"https://paste.test/seed0000"}, opts)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	// Seed plus at most ten author pastes, despite fifteen being listed.
	if got := len(report.Results); got != 11 {
		t.Errorf("len(Results) = %d, want 11", got)
	}
	if got := len(sink.ofType(EventAuthorExpansion)); got != 1 {
		t.Errorf("author expansion events = %d, want 1", got)
	}
	// Expanded pastes name the same author but must not expand again.
	if got := f.callCount("https://paste.test/u/leaker42"); got != 1 {
		t.Errorf("author listing fetched %d times, want 1", got)
	}
}

func TestRunRecoversFromPanicWithPartialResults(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	f.panics["https://paste.test/raw/boom0000"] = true
	sink := &recordSink{}
	engine := newTestEngine(t, Deps{Fetcher: f, Sink: sink})

	seeds := []string{
		"https://paste.test/raw/leak1234",
		"https://paste.test/raw/boom0000",
	}
	report, err := engine.Run(context.Background(), seeds, clearnetOpts())
	if !errors.Is(err, ErrRunPanicked) {
		t.Fatalf("Run() error = %v, want ErrRunPanicked", err)
	}
	if report == nil {
		t.Fatal("Run() report = nil, want partial report")
	}
	if got := len(report.Results); got != 1 {
		t.Errorf("len(Results) = %d, want the result collected before the failure", got)
	}
	if got := len(sink.ofType(EventRunFailed)); got != 1 {
		t.Errorf("run failed events = %d, want 1", got)
	}
	if got := len(sink.ofType(EventRunCompleted)); got != 0 {
		t.Errorf("run completed events = %d, want 0", got)
	}
}

func TestRunDarknetDegradesWithoutTor(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	sink := &recordSink{}
	engine := newTestEngine(t, Deps{Fetcher: f, Sink: sink})

	seeds := []string{
		"https://paste.test/raw/leak1234",
		"http://leaksdump.onion/paste/1",
	}
	opts := model.RunOptions{EnableClearnet: true, EnableDarknet: true}
	report, err := engine.Run(context.Background(), seeds, opts)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if got := len(report.Results); got != 1 {
		t.Errorf("len(Results) = %d, want only the clearnet result", got)
	}
	if got := report.Metadata.DarknetResults; got != 0 {
		t.Errorf("DarknetResults = %d, want 0", got)
	}
	skips := sink.ofType(EventLocationSkipped)
	if len(skips) != 1 || skips[0].Reason != "tor unavailable" {
		t.Errorf("skip events = %+v, want one tor-unavailable skip", skips)
	}
}

func TestRunDarknetCountsOnionResults(t *testing.T) {
	t.Parallel()

	clearnet := newFakeFetcher()
	clearnet.serve("https://paste.test/raw/leak1234", leakBody)
	dark := newFakeFetcher()
	dark.serve("http://leaksdump.onion/paste/1", leakBody)

	engine := newTestEngine(t, Deps{Fetcher: clearnet, DarkFetcher: dark})

	seeds := []string{
		"https://paste.test/raw/leak1234",
		"http://leaksdump.onion/paste/1",
	}
	opts := model.RunOptions{EnableClearnet: true, EnableDarknet: true}
	report, err := engine.Run(context.Background(), seeds, opts)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if got := len(report.Results); got != 2 {
		t.Errorf("len(Results) = %d, want 2", got)
	}
	if got := report.Metadata.DarknetResults; got != 1 {
		t.Errorf("DarknetResults = %d, want 1", got)
	}
	if got := clearnet.callCount("http://leaksdump.onion/paste/1"); got != 0 {
		t.Errorf("clearnet fetcher touched an onion location %d times, want 0", got)
	}
}

func TestRunClearnetDisabledSkipsEverything(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	engine := newTestEngine(t, Deps{Fetcher: f})

	report, err := engine.Run(context.Background(),
		[]string{"https://paste.test/raw/leak1234"},
		model.RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if got := len(report.Results); got != 0 {
		t.Errorf("len(Results) = %d, want 0", got)
	}
	if got := f.callCount("https://paste.test/raw/leak1234"); got != 0 {
		t.Errorf("fetch calls = %d, want 0", got)
	}
}

func TestRunContextCancellation(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", leakBody)
	engine := newTestEngine(t, Deps{Fetcher: f})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := engine.Run(ctx, []string{"https://paste.test/raw/leak1234"}, clearnetOpts())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if report == nil || len(report.Results) != 0 {
		t.Errorf("Run() report = %+v, want empty report", report)
	}
}

func TestRunRendererFallback(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.serve("https://paste.test/raw/leak1234", "   \n  ")
	renderer := rendererFunc(func(_ context.Context, pageURL string) (string, error) {
		if pageURL != "https://paste.test/raw/leak1234" {
			return "", fmt.Errorf("unexpected render of %s", pageURL)
		}
		return leakBody, nil
	})
	engine := newTestEngine(t, Deps{Fetcher: f, Renderer: renderer})

	report, err := engine.Run(context.Background(),
		[]string{"https://paste.test/raw/leak1234"}, clearnetOpts())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if got := len(report.Results); got != 1 {
		t.Fatalf("len(Results) = %d, want the rendered result", got)
	}
	if !strings.Contains(report.Results[0].Preview, "example.com") {
		t.Errorf("Preview = %q, want rendered content", report.Results[0].Preview)
	}
}

func TestRunProgressCheckpoints(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}
	engine := newTestEngine(t, Deps{Fetcher: newFakeFetcher(), Sink: sink})

	if _, err := engine.Run(context.Background(), nil, clearnetOpts()); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	want := []float64{0.1, 0.3, 0.9, 1.0}
	if len(sink.fractions) != len(want) {
		t.Fatalf("progress fractions = %v, want %v", sink.fractions, want)
	}
	for i, fraction := range want {
		if sink.fractions[i] != fraction {
			t.Errorf("fractions[%d] = %v, want %v", i, sink.fractions[i], fraction)
		}
	}
}

// rendererFunc adapts a function to the Renderer interface.
type rendererFunc func(ctx context.Context, pageURL string) (string, error)

func (f rendererFunc) Render(ctx context.Context, pageURL string) (string, error) {
	return f(ctx, pageURL)
}
