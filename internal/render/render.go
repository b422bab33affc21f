// Package render loads pages in a headless browser for paste services
// that hide content behind JavaScript. It is the fallback path when the
// plain HTTP fetch of a raw endpoint returns nothing usable.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultTimeout bounds a single page render, navigation included.
const DefaultTimeout = 30 * time.Second

// ErrNotStarted is returned by Render before Start has launched a browser.
var ErrNotStarted = errors.New("render: browser not started")

// Browser renders pages with a shared headless Chromium instance. Pages
// are created per render and always closed before Render returns, so a
// long run cannot accumulate open tabs.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser

	// timeout bounds one render.
	timeout time.Duration

	// waitSelector, when set, is an element to wait for before reading
	// the page text. Paste sites load content into a known container.
	waitSelector string
}

// Option configures a Browser.
type Option func(*Browser)

// WithTimeout sets the per-render timeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Browser) {
		b.timeout = d
	}
}

// WithWaitSelector sets a CSS selector to wait for before extraction.
func WithWaitSelector(selector string) Option {
	return func(b *Browser) {
		b.waitSelector = selector
	}
}

// New creates a Browser. Call Start to launch the underlying Chromium.
func New(opts ...Option) *Browser {
	b := &Browser{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches headless Chromium and connects to it.
func (b *Browser) Start(ctx context.Context) error {
	l := launcher.New().Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return err
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return err
	}

	b.launcher = l
	b.browser = browser
	return nil
}

// Close shuts down the browser and its Chromium process.
// Safe to call on an unstarted or already closed Browser.
func (b *Browser) Close() error {
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	b.browser = nil
	return err
}

// Render navigates to pageURL and returns the visible text of the page
// body after scripts have run. The tab is closed on every exit path,
// success or failure.
func (b *Browser) Render(ctx context.Context, pageURL string) (string, error) {
	if b.browser == nil {
		return "", ErrNotStarted
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", err
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(b.timeout)

	if err := page.WaitLoad(); err != nil {
		return "", err
	}
	if b.waitSelector != "" {
		if _, err := page.Element(b.waitSelector); err != nil {
			return "", err
		}
	}

	body, err := page.Element("body")
	if err != nil {
		return "", err
	}
	return body.Text()
}
