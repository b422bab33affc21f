// Package score computes the relevance of paste content to a target
// organizational domain.
//
// The score is a sum of three independently capped weights: literal domain
// mentions, target-domain email addresses, and leak-keyword hits. Additive
// capped weights keep the result bounded and interpretable without a
// trained model; the weights are tunable constants, not structure.
package score

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Scoring weights and caps. A single strong signal cannot push the score
// past its component cap; saturating all three yields 1.0.
const (
	// domainMentionWeight is the contribution per literal domain mention.
	domainMentionWeight = 0.1

	// domainMentionCap bounds the domain-mention component.
	domainMentionCap = 0.4

	// targetEmailWeight is the contribution per target-domain email match.
	targetEmailWeight = 0.05

	// targetEmailCap bounds the target-email component.
	targetEmailCap = 0.3

	// keywordWeight is the contribution per distinct keyword hit.
	keywordWeight = 0.03

	// keywordCap bounds the keyword component.
	keywordCap = 0.3
)

// Scorer scores content against one target domain and keyword corpus.
// A Scorer is immutable after construction and safe for concurrent use.
type Scorer struct {
	// domain is the case-folded target domain.
	domain string

	// emailPattern matches "local-part@domain" for the target domain.
	emailPattern *regexp.Regexp

	// keywords is the case-folded corpus. Distinct keywords present as
	// substrings of content or title contribute to the keyword weight.
	keywords []string

	// folder performs Unicode case folding. The corpus is bilingual, so
	// plain ASCII lowering is not enough.
	folder cases.Caser
}

// New creates a Scorer for targetDomain with the given keyword corpus.
func New(targetDomain string, keywords []string) *Scorer {
	folder := cases.Fold()

	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			folded = append(folded, folder.String(k))
		}
	}

	domain := folder.String(targetDomain)
	// The local part accepts word characters plus . % + -, covering the
	// tagged and gateway-style addresses that show up in real dumps.
	return &Scorer{
		domain:       domain,
		emailPattern: regexp.MustCompile(`(?i)\b[\w.%+\-]+@` + regexp.QuoteMeta(domain) + `\b`),
		keywords:     folded,
		folder:       folder,
	}
}

// Score returns the relevance of content (with optional title) in [0, 1].
// Scoring is deterministic: the same inputs always yield the same score.
func (s *Scorer) Score(content, title string) float64 {
	foldedContent := s.folder.String(content)
	foldedTitle := s.folder.String(title)

	var total float64

	// Literal mentions of the target domain in the content body.
	if n := strings.Count(foldedContent, s.domain); n > 0 {
		total += math.Min(domainMentionCap, float64(n)*domainMentionWeight)
	}

	// Email addresses on the target domain.
	if n := len(s.emailPattern.FindAllString(content, -1)); n > 0 {
		total += math.Min(targetEmailCap, float64(n)*targetEmailWeight)
	}

	// Distinct leak keywords in content or title.
	var hits int
	for _, kw := range s.keywords {
		if strings.Contains(foldedContent, kw) || strings.Contains(foldedTitle, kw) {
			hits++
		}
	}
	if hits > 0 {
		total += math.Min(keywordCap, float64(hits)*keywordWeight)
	}

	return clamp(total)
}

// Round returns score rounded to two decimals, the precision used in
// reports and the run store.
func Round(score float64) float64 {
	return math.Round(score*100) / 100
}

// clamp bounds v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
