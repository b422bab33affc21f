// Package extract pulls structured artifacts out of raw paste content:
// email addresses, target-domain email addresses, and credential-shaped
// patterns. All functions are pure and never fail on malformed input.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// emailPattern matches a generic email address: local part with common
// special characters, domain labels, and a top-level segment of at least
// two letters.
var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

// credentialPatterns are heuristics for exposed login material. The first
// match wins; no count is kept.
var credentialPatterns = []*regexp.Regexp{
	// Bare user:pass pair.
	regexp.MustCompile(`\b\w+:\w+\b`),
	// Labeled fields.
	regexp.MustCompile(`(?i)username[:\s]+\w+`),
	regexp.MustCompile(`(?i)password[:\s]+\w+`),
	regexp.MustCompile(`(?i)email[:\s]+[\w.\-]+@[\w.\-]+`),
}

// Extractor extracts artifacts for one target domain.
// It is immutable after construction and safe for concurrent use.
type Extractor struct {
	// domainSuffix is "@" plus the lowercased target domain, used to
	// filter the generic matches down to target addresses.
	domainSuffix string
}

// New creates an Extractor for targetDomain.
func New(targetDomain string) *Extractor {
	return &Extractor{domainSuffix: "@" + strings.ToLower(targetDomain)}
}

// Emails returns every email address in text, deduplicated, lowercased,
// and sorted. Sorting makes report and store output deterministic.
func (e *Extractor) Emails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.ToLower(m)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// TargetEmails returns the addresses in text that belong to the target
// domain. It filters the output of Emails rather than using a separate
// domain-anchored pattern, so the result is a subset of Emails by
// construction.
func (e *Extractor) TargetEmails(text string) []string {
	var out []string
	for _, email := range e.Emails(text) {
		if strings.HasSuffix(email, e.domainSuffix) {
			out = append(out, email)
		}
	}
	return out
}

// HasCredentialSignal reports whether text contains a credential-shaped
// pattern: a bare token:token pair, or a labeled username/password/email
// field with a value. Evaluation short-circuits on the first hit.
func (e *Extractor) HasCredentialSignal(text string) bool {
	for _, p := range credentialPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
