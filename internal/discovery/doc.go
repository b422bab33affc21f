// Package discovery implements the paste-site crawl orchestrator.
//
// An Engine takes seed locations, resolves each to its raw-content URL,
// fetches and scores the content against a target domain, extracts leak
// artifacts, and optionally expands the frontier to the recent pastes of
// the authors it found. Runs absorb per-location failures, survive panics
// with partial results, and report progress through an injected Sink.
package discovery
