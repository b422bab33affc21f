// Package resolver maps human-facing paste page URLs to their raw-content
// URLs. Each paste service has its own raw-view convention; the mapping is
// table-driven so new services can be registered without touching callers.
//
// The resolver performs no network I/O and never fails: a URL with no
// matching rule is returned unchanged on the assumption that the page
// already serves plain text.
package resolver

import (
	"net/url"
	"strings"
)

// Transform rewrites a parsed paste page URL into its raw-content URL.
// Implementations must be pure: no I/O, no mutation of shared state.
type Transform func(u *url.URL) string

// Rule binds a host suffix to its raw-view transform.
type Rule struct {
	// HostSuffix matches the URL host. "pastebin.com" also matches
	// "www.pastebin.com"; matching is case-insensitive.
	HostSuffix string

	// Transform produces the raw-content URL.
	Transform Transform
}

// Resolver resolves paste page URLs against a rule table.
type Resolver struct {
	rules []Rule
}

// New returns a Resolver with the built-in rules for the paste services
// pastetrace knows about.
func New() *Resolver {
	return &Resolver{rules: defaultRules()}
}

// NewWithRules returns a Resolver using only the given rules.
// Rules are evaluated in order; the first host match wins.
func NewWithRules(rules []Rule) *Resolver {
	return &Resolver{rules: rules}
}

// Register appends a rule to the table. Later registrations have lower
// precedence than earlier ones.
func (r *Resolver) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Resolve returns the raw-content URL for location.
// Unknown hosts and unparseable locations are returned unchanged.
func (r *Resolver) Resolve(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		return location
	}

	host := strings.ToLower(u.Host)
	for _, rule := range r.rules {
		if hostMatches(host, rule.HostSuffix) {
			return rule.Transform(u)
		}
	}
	return location
}

// Source returns a short tag naming the paste service behind location,
// or "clearnet" when the host matches no known service.
func (r *Resolver) Source(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		return "clearnet"
	}

	host := strings.ToLower(u.Host)
	for _, rule := range r.rules {
		if hostMatches(host, rule.HostSuffix) {
			// Tag by the registrable part of the suffix ("pastebin.com"
			// becomes "pastebin").
			if i := strings.IndexByte(rule.HostSuffix, '.'); i > 0 {
				return rule.HostSuffix[:i]
			}
			return rule.HostSuffix
		}
	}
	return "clearnet"
}

// hostMatches reports whether host equals suffix or ends with "."+suffix.
func hostMatches(host, suffix string) bool {
	suffix = strings.ToLower(suffix)
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}

// defaultRules returns the built-in raw-view conventions.
//
//   - pastebin.com: the raw view lives at /raw/<paste id>, where the paste
//     id is the final path component of the page URL.
//   - paste.ee: swap the /p/ path segment for /r/.
//   - ghostbin.com: append /raw to the page path.
func defaultRules() []Rule {
	return []Rule{
		{
			HostSuffix: "pastebin.com",
			Transform: func(u *url.URL) string {
				id := lastPathSegment(u.Path)
				if id == "" || id == "raw" {
					return u.String()
				}
				return u.Scheme + "://pastebin.com/raw/" + id
			},
		},
		{
			HostSuffix: "paste.ee",
			Transform: func(u *url.URL) string {
				raw := *u
				raw.Path = strings.Replace(raw.Path, "/p/", "/r/", 1)
				return raw.String()
			},
		},
		{
			HostSuffix: "ghostbin.com",
			Transform: func(u *url.URL) string {
				raw := *u
				raw.Path = strings.TrimSuffix(raw.Path, "/") + "/raw"
				return raw.String()
			},
		},
	}
}

// lastPathSegment returns the final non-empty path component.
func lastPathSegment(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
