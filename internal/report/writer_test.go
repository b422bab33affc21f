package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pastetrace/pastetrace/internal/model"
)

func sampleReport() *model.DiscoveryReport {
	results := []model.ScoredResult{
		{
			Location:       "https://pastebin.com/AbCd1234",
			Source:         "pastebin",
			Title:          "corp dump",
			Author:         "leaker42",
			Timestamp:      "2026-01-02T00:00:00Z",
			Score:          0.85,
			Emails:         []string{"admin@example.com", "bob@gmail.com"},
			TargetEmails:   []string{"admin@example.com"},
			HasCredentials: true,
			Preview:        "admin@example.com:hunter2",
		},
		{
			Location: "https://paste.ee/p/xyz",
			Source:   "paste",
			Title:    model.UnknownValue,
			Author:   model.UnknownValue,
			Score:    0.34,
		},
	}
	return model.NewDiscoveryReport("example.com", results, 0.7, 0)
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output round trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).Write(sampleReport())
		if err != nil {
			t.Fatalf("Write() error = %v, want nil", err)
		}
		if n != buf.Len() {
			t.Errorf("Write() n = %d, want %d", n, buf.Len())
		}

		var got model.DiscoveryReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.Metadata.TargetDomain != "example.com" {
			t.Errorf("TargetDomain = %q, want %q", got.Metadata.TargetDomain, "example.com")
		}
		if len(got.Results) != 2 {
			t.Errorf("len(Results) = %d, want 2", len(got.Results))
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v, want nil", err)
		}
		if !strings.Contains(buf.String(), "\n  \"metadata\"") {
			t.Error("output is not indented")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleReport()); err != nil {
		t.Fatalf("Write() error = %v, want nil", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Leak Discovery Report",
		"`example.com`",
		"## Summary",
		"### 🔴 High Priority",
		"### ⚪ Standard",
		"leaker42",
		"<https://pastebin.com/AbCd1234>",
		"```mermaid",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}

	// A report with credential signals must surface a caution alert.
	if !strings.Contains(out, "[!CAUTION]") {
		t.Error("markdown output missing caution alert")
	}
}

func TestMarkdownWriterEmptyReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	empty := model.NewDiscoveryReport("example.com", nil, 0.7, 0)
	if _, err := NewMarkdownWriter(&buf).Write(empty); err != nil {
		t.Fatalf("Write() error = %v, want nil", err)
	}
	out := buf.String()

	if !strings.Contains(out, "No results cleared the relevance threshold.") {
		t.Error("markdown output missing empty-results text")
	}
	if !strings.Contains(out, "[!TIP]") {
		t.Error("markdown output missing tip alert for empty report")
	}
}

func TestMarkdownWriterEscapesCells(t *testing.T) {
	t.Parallel()

	results := []model.ScoredResult{{
		Location: "https://pastebin.com/x",
		Source:   "pastebin",
		Title:    "pipes | and\nnewlines",
		Author:   model.UnknownValue,
		Score:    0.5,
	}}
	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(model.NewDiscoveryReport("example.com", results, 0.7, 0)); err != nil {
		t.Fatalf("Write() error = %v, want nil", err)
	}
	if !strings.Contains(buf.String(), `pipes \| and newlines`) {
		t.Error("table cell was not escaped")
	}
}

// failWriter always fails, for MultiWriter error propagation.
type failWriter struct{}

func (failWriter) Write(*model.DiscoveryReport) (int, error) {
	return 0, errors.New("sink failed")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("fans out to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewJSONWriter(&a), NewMarkdownWriter(&b))
		if _, err := mw.Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v, want nil", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("one of the writers received no output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		mw := NewMultiWriter(failWriter{}, NewJSONWriter(&out))
		if _, err := mw.Write(sampleReport()); err == nil {
			t.Fatal("Write() error = nil, want propagated failure")
		}
		if out.Len() != 0 {
			t.Error("writer after the failure still ran")
		}
	})
}
