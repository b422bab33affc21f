package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// newBufferLogger returns a redacting logger writing into buf.
func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactHandler(handler))
}

// TestRedactSensitiveKeys verifies masking by attribute key.
func TestRedactSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"password key", "password", "hunter2"},
		{"nested compound key", "db_password", "hunter2"},
		{"token key", "access_token", "abc123"},
		{"cookie key", "cookie", "session=xyz"},
		{"credentials key", "credentials", "admin/hunter2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := newBufferLogger(&buf)
			logger.Info("event", tt.key, tt.value)

			out := buf.String()
			if strings.Contains(out, tt.value) {
				t.Errorf("sensitive value %q leaked into log: %s", tt.value, out)
			}
			if !strings.Contains(out, MaskValue) {
				t.Errorf("expected mask in output: %s", out)
			}
		})
	}
}

// TestRedactSensitiveValues verifies masking by value shape even under a
// harmless key.
func TestRedactSensitiveValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{"user pass pair", "jdoe:hunter22"},
		{"jwt", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig"},
		{"bearer token", "Bearer abc.def.ghi"},
		{"long opaque token", strings.Repeat("a1", 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := newBufferLogger(&buf)
			logger.Info("event", "detail", tt.value)

			if strings.Contains(buf.String(), tt.value) {
				t.Errorf("sensitive value %q leaked into log: %s", tt.value, buf.String())
			}
		})
	}
}

// TestHarmlessAttributesPassThrough verifies normal values survive.
func TestHarmlessAttributesPassThrough(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newBufferLogger(&buf)
	logger.Info("analyzed",
		"url", "https://pastebin.com/Ab12Cd34",
		"score", 0.42,
		"source", "pastebin",
	)

	out := buf.String()
	for _, want := range []string{"pastebin.com/Ab12Cd34", "0.42", "pastebin"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output: %s", want, out)
		}
	}
	if strings.Contains(out, MaskValue) {
		t.Errorf("harmless attributes were masked: %s", out)
	}
}

// TestRedactGroupAttributes verifies recursion into groups.
func TestRedactGroupAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newBufferLogger(&buf)
	logger.Info("event", slog.Group("request",
		slog.String("url", "https://paste.ee/p/x"),
		slog.String("authorization", "Basic dXNlcjpwYXNz"),
	))

	out := buf.String()
	if strings.Contains(out, "dXNlcjpwYXNz") {
		t.Errorf("group attribute leaked: %s", out)
	}
	if !strings.Contains(out, "paste.ee/p/x") {
		t.Errorf("harmless group attribute missing: %s", out)
	}
}

// TestWithAttrsMasks verifies attributes attached via With are masked.
func TestWithAttrsMasks(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newBufferLogger(&buf).With("api_key", "supersecretvalue")
	logger.Info("event")

	if strings.Contains(buf.String(), "supersecretvalue") {
		t.Errorf("With attribute leaked: %s", buf.String())
	}
}
