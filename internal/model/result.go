package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// UnknownValue is the sentinel used when paste metadata could not be
// extracted. The original page may be gone, rate limited, or simply not
// carry the field; callers must treat it as "absent", not as an author name.
const UnknownValue = "Unknown"

// PreviewLength is the number of leading characters of paste content kept
// on a result. Full bodies are not retained; the preview is enough for
// triage while keeping reports and the run store small.
const PreviewLength = 500

// ScoredResult is a single paste that cleared the minimum relevance
// threshold. It is immutable after creation: the discovery engine builds it
// once per analyzed location and appends it to the run's result collection.
type ScoredResult struct {
	// Location is the paste URL as supplied or discovered (not the raw URL).
	Location string `json:"url"`

	// Source tags which paste service the result came from (e.g. "pastebin").
	Source string `json:"source"`

	// Title is the paste title, or UnknownValue.
	Title string `json:"title"`

	// Author is the paste author identifier, or UnknownValue.
	Author string `json:"author"`

	// Timestamp is the publication time reported by the paste page.
	// Kept as the page's own string; normalized RFC 3339 when parseable.
	Timestamp string `json:"timestamp"`

	// Score is the relevance score in [0.0, 1.0], rounded to two decimals.
	Score float64 `json:"relevance_score"`

	// Emails contains every email address found in the content.
	Emails []string `json:"emails"`

	// TargetEmails contains the addresses on the target domain.
	// Always a subset of Emails.
	TargetEmails []string `json:"target_emails"`

	// HasCredentials reports whether a credential-shaped pattern was found.
	HasCredentials bool `json:"has_credentials"`

	// Preview is the first PreviewLength characters of the raw content.
	Preview string `json:"content_preview"`

	// ContentHash is the SHA-256 hash of the full raw content, used to spot
	// the same dump reposted under a different URL.
	ContentHash string `json:"content_hash,omitempty"`
}

// HashContent returns the hex-encoded SHA-256 hash of body.
func HashContent(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Preview returns the first PreviewLength characters of body. The cut is
// rune-aware, so multi-byte content is never split mid-sequence.
func Preview(body string) string {
	if len(body) <= PreviewLength {
		return body
	}
	runes := []rune(body)
	if len(runes) <= PreviewLength {
		return body
	}
	return string(runes[:PreviewLength])
}

// Summary aggregates headline numbers over a run's results.
type Summary struct {
	// TotalResults is the number of results that cleared the threshold.
	TotalResults int `json:"total_results"`

	// HighPriorityCount is the number of results at or above the
	// high-priority score threshold.
	HighPriorityCount int `json:"high_priority_count"`

	// TotalTargetEmails is the sum of per-result target-domain email counts.
	TotalTargetEmails int `json:"total_target_emails"`

	// CredentialsFound is the number of results with a credential signal.
	CredentialsFound int `json:"credentials_found"`
}

// ReportMetadata describes the run that produced a DiscoveryReport.
type ReportMetadata struct {
	// TargetDomain is the organizational domain the run searched for.
	TargetDomain string `json:"target_domain"`

	// Timestamp is when the report was assembled.
	Timestamp time.Time `json:"timestamp"`

	// TotalResults duplicates Summary.TotalResults for quick access.
	TotalResults int `json:"total_results"`

	// ClearnetResults is the number of results found over the open web.
	ClearnetResults int `json:"clearnet_results"`

	// DarknetResults is the number of results found over Tor.
	DarknetResults int `json:"darknet_results"`
}

// DiscoveryReport is the terminal output of one discovery run.
// It is created once at the end of the run and never mutated afterwards.
type DiscoveryReport struct {
	Metadata ReportMetadata `json:"metadata"`
	Summary  Summary        `json:"summary"`

	// Results is ordered by descending relevance score. Results with equal
	// scores keep their discovery order (the sort is stable), which makes
	// report output deterministic for a given seed list.
	Results []ScoredResult `json:"results"`
}

// NewDiscoveryReport assembles a report from the results collected during a
// run. The results slice is sorted in place by descending score; discovery
// order breaks ties. highPriority is the score at or above which a result
// counts as high priority.
func NewDiscoveryReport(targetDomain string, results []ScoredResult, highPriority float64, darknetResults int) *DiscoveryReport {
	SortResults(results)

	summary := Summary{TotalResults: len(results)}
	for _, r := range results {
		if r.Score >= highPriority {
			summary.HighPriorityCount++
		}
		summary.TotalTargetEmails += len(r.TargetEmails)
		if r.HasCredentials {
			summary.CredentialsFound++
		}
	}

	return &DiscoveryReport{
		Metadata: ReportMetadata{
			TargetDomain:    targetDomain,
			Timestamp:       time.Now(),
			TotalResults:    len(results),
			ClearnetResults: len(results) - darknetResults,
			DarknetResults:  darknetResults,
		},
		Summary: summary,
		Results: results,
	}
}

// SortResults orders results by descending relevance score.
// The sort must be stable: equal scores keep first-discovered order.
func SortResults(results []ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
