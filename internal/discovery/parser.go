package discovery

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/pastetrace/pastetrace/internal/model"
)

// pasteLinkPattern matches relative links to individual pastes on an
// author listing page. Pastebin paste keys are eight alphanumerics.
var pasteLinkPattern = regexp.MustCompile(`^/[A-Za-z0-9]{8}$`)

// Metadata is what a paste page reveals about itself beyond the raw
// content. Missing fields hold model.UnknownValue (or empty for URLs).
type Metadata struct {
	// Title is the paste title.
	Title string

	// Author is the author display name.
	Author string

	// AuthorURL is the absolute URL of the author's paste listing.
	AuthorURL string

	// Timestamp is the publication time in RFC 3339, when parseable.
	Timestamp string
}

// UnknownMetadata returns metadata with every descriptive field unknown.
func UnknownMetadata() Metadata {
	return Metadata{
		Title:     model.UnknownValue,
		Author:    model.UnknownValue,
		Timestamp: model.UnknownValue,
	}
}

// ParseMetadata extracts paste metadata from an HTML page. baseURL
// resolves relative author links. Parsing is best effort: any field the
// page does not expose stays unknown, and unparseable HTML yields fully
// unknown metadata rather than an error.
func ParseMetadata(htmlBody, baseURL string) Metadata {
	meta := UnknownMetadata()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return meta
	}

	if title := strings.TrimSpace(doc.Find("div.info-top h1").First().Text()); title != "" {
		meta.Title = title
	}

	authorLink := doc.Find("div.username a").First()
	if author := strings.TrimSpace(authorLink.Text()); author != "" {
		meta.Author = author
		if href, ok := authorLink.Attr("href"); ok {
			meta.AuthorURL = resolveRef(baseURL, href)
		}
	}

	if raw := strings.TrimSpace(doc.Find("div.date").First().Text()); raw != "" {
		meta.Timestamp = normalizeTimestamp(raw)
	}
	return meta
}

// ParseAuthorPastes extracts absolute paste URLs from an author listing
// page, in document order, without duplicates. It returns at most limit
// URLs; limit <= 0 means no cap.
func ParseAuthorPastes(htmlBody, baseURL string, limit int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var pastes []string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || !pasteLinkPattern.MatchString(href) {
			return true
		}
		abs := resolveRef(baseURL, href)
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		pastes = append(pastes, abs)
		return limit <= 0 || len(pastes) < limit
	})
	return pastes
}

// normalizeTimestamp converts a human-readable paste date into RFC 3339.
// Dates come in whatever format the site renders, so parsing is fuzzy;
// the raw text is kept when nothing parses.
func normalizeTimestamp(raw string) string {
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format(time.RFC3339)
}

// resolveRef resolves href against base, falling back to href itself
// when either side does not parse.
func resolveRef(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
