package resolver

import (
	"net/url"
	"testing"
)

// TestResolve verifies the built-in raw-view transforms.
func TestResolve(t *testing.T) {
	t.Parallel()

	r := New()

	tests := []struct {
		name     string
		location string
		want     string
	}{
		{
			name:     "pastebin page to raw",
			location: "https://pastebin.com/Ab12Cd34",
			want:     "https://pastebin.com/raw/Ab12Cd34",
		},
		{
			name:     "pastebin www host",
			location: "https://www.pastebin.com/Ab12Cd34",
			want:     "https://pastebin.com/raw/Ab12Cd34",
		},
		{
			name:     "pastebin trailing slash",
			location: "https://pastebin.com/Ab12Cd34/",
			want:     "https://pastebin.com/raw/Ab12Cd34",
		},
		{
			name:     "pastebin already raw",
			location: "https://pastebin.com/raw/Ab12Cd34",
			want:     "https://pastebin.com/raw/Ab12Cd34",
		},
		{
			name:     "paste.ee p to r swap",
			location: "https://paste.ee/p/abcdef",
			want:     "https://paste.ee/r/abcdef",
		},
		{
			name:     "ghostbin raw suffix",
			location: "https://ghostbin.com/paste/xyz",
			want:     "https://ghostbin.com/paste/xyz/raw",
		},
		{
			name:     "unknown host passes through",
			location: "https://example.org/some/page.txt",
			want:     "https://example.org/some/page.txt",
		},
		{
			name:     "unparseable location passes through",
			location: "://not a url",
			want:     "://not a url",
		},
		{
			name:     "bare string passes through",
			location: "plainfile.txt",
			want:     "plainfile.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := r.Resolve(tt.location); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.location, got, tt.want)
			}
		})
	}
}

// TestResolveConvergence verifies that two page URLs for the same paste
// resolve to the same raw URL, the basis for visited-set deduplication.
func TestResolveConvergence(t *testing.T) {
	t.Parallel()

	r := New()

	a := r.Resolve("https://pastebin.com/Ab12Cd34")
	b := r.Resolve("https://www.pastebin.com/Ab12Cd34/")
	if a != b {
		t.Errorf("expected equal raw URLs, got %q and %q", a, b)
	}
}

// TestSource verifies source tagging.
func TestSource(t *testing.T) {
	t.Parallel()

	r := New()

	tests := []struct {
		location string
		want     string
	}{
		{"https://pastebin.com/Ab12Cd34", "pastebin"},
		{"https://paste.ee/p/abc", "paste"},
		{"https://ghostbin.com/x", "ghostbin"},
		{"https://unknown.example.net/x", "clearnet"},
		{"not-a-url", "clearnet"},
	}

	for _, tt := range tests {
		if got := r.Source(tt.location); got != tt.want {
			t.Errorf("Source(%q) = %q, want %q", tt.location, got, tt.want)
		}
	}
}

// TestRegister verifies that custom rules extend the table without
// touching resolution call sites.
func TestRegister(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(Rule{
		HostSuffix: "dpaste.example",
		Transform: func(u *url.URL) string {
			return u.String() + ".txt"
		},
	})

	got := r.Resolve("https://dpaste.example/abc")
	if got != "https://dpaste.example/abc.txt" {
		t.Errorf("custom rule not applied, got %q", got)
	}

	// Built-in rules still work after registration.
	if got := r.Resolve("https://pastebin.com/Zz99"); got != "https://pastebin.com/raw/Zz99" {
		t.Errorf("built-in rule broken after Register, got %q", got)
	}
}
