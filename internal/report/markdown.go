package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/pastetrace/pastetrace/internal/model"
)

// defaultHighPriority is the score at or above which a result is rendered
// in the high-priority section when no threshold is configured.
const defaultHighPriority = 0.7

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// highPriority is the score at or above which a result counts as
	// high priority. Must match the threshold the run was scored with.
	highPriority float64
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithHighPriorityThreshold sets the score separating high-priority
// results from the rest.
func WithHighPriorityThreshold(score float64) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.highPriority = score
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:   newBaseWriter(output),
		highPriority: defaultHighPriority,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.DiscoveryReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.DiscoveryReport) {
	md.H1("Leak Discovery Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target Domain", "`" + report.Metadata.TargetDomain + "`"},
			{"Report Date", report.Metadata.Timestamp.Format("2006-01-02 15:04:05 MST")},
			{"Total Results", strconv.Itoa(report.Metadata.TotalResults)},
			{"Clearnet Results", strconv.Itoa(report.Metadata.ClearnetResults)},
			{"Darknet Results", strconv.Itoa(report.Metadata.DarknetResults)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the finding summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.DiscoveryReport) {
	md.H2("Summary")
	md.PlainText("")

	summary := report.Summary
	md.Table(markdown.TableSet{
		Header: []string{"Indicator", "Count"},
		Rows: [][]string{
			{"🔴 High Priority", strconv.Itoa(summary.HighPriorityCount)},
			{"🔑 Credential Signals", strconv.Itoa(summary.CredentialsFound)},
			{"📧 Target Emails Exposed", strconv.Itoa(summary.TotalTargetEmails)},
			{"**Total Results**", "**" + strconv.Itoa(summary.TotalResults) + "**"},
		},
	})
	md.PlainText("")

	if summary.TotalResults > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of the priority split.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Result Priority Distribution"),
		piechart.WithShowData(true),
	)

	standard := summary.TotalResults - summary.HighPriorityCount
	if summary.HighPriorityCount > 0 {
		chart.LabelAndIntValue("High Priority", uint64(summary.HighPriorityCount))
	}
	if standard > 0 {
		chart.LabelAndIntValue("Standard", uint64(standard))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the summary.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary model.Summary) {
	switch {
	case summary.CredentialsFound > 0:
		md.Cautionf(
			"Credential material detected! %d result(s) contain credential-shaped content and require immediate review.",
			summary.CredentialsFound,
		)
	case summary.HighPriorityCount > 0:
		md.Warningf(
			"%d high-priority result(s) reference the target domain heavily.",
			summary.HighPriorityCount,
		)
	case summary.TotalResults > 0:
		md.Note("Only low-signal mentions of the target domain were found.")
	default:
		md.Tip("No relevant paste content was discovered.")
	}
	md.PlainText("")
}

// writeResults writes the result tables, high priority first.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.DiscoveryReport) {
	md.H2("Results")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No results cleared the relevance threshold.")
		md.PlainText("")
		return
	}

	var high, standard []model.ScoredResult
	for _, r := range report.Results {
		if r.Score >= w.highPriority {
			high = append(high, r)
		} else {
			standard = append(standard, r)
		}
	}

	if len(high) > 0 {
		md.PlainText("### 🔴 High Priority")
		md.PlainText("")
		w.writeResultsTable(md, high)
	}
	if len(standard) > 0 {
		md.PlainText("### ⚪ Standard")
		md.PlainText("")
		w.writeResultsTable(md, standard)
	}
}

// writeResultsTable writes one table of results.
func (w *MarkdownWriter) writeResultsTable(md *markdown.Markdown, results []model.ScoredResult) {
	rows := make([][]string, len(results))
	for i, r := range results {
		credentials := "no"
		if r.HasCredentials {
			credentials = "yes"
		}
		rows[i] = []string{
			fmt.Sprintf("%.2f", r.Score),
			r.Source,
			escapeCell(r.Title),
			escapeCell(r.Author),
			strconv.Itoa(len(r.TargetEmails)),
			credentials,
			"<" + r.Location + ">",
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Score", "Source", "Title", "Author", "Target Emails", "Credentials", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("Generated by pastetrace. Review findings before acting on them; paste content is unverified.")
}

// escapeCell keeps paste-controlled text from breaking table markup.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
