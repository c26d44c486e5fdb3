package crawler

import (
	"strings"
	"testing"
)

// TestHTMLPathFor verifies URL to local path mapping for pages.
func TestHTMLPathFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "root maps to index.html",
			in:   "https://x.com/",
			want: "index.html",
		},
		{
			name: "bare path gains html extension",
			in:   "https://x.com/a/b",
			want: "a/b.html",
		},
		{
			name: "directory style path gains index",
			in:   "https://x.com/a/b/",
			want: "a/b/index.html",
		},
		{
			name: "existing extension is kept",
			in:   "https://x.com/docs/page.php",
			want: "docs/page.php",
		},
		{
			name: "query spliced into stem",
			in:   "https://x.com/page?id=1",
			want: "page__q_id_1.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := HTMLPathFor(tt.in)
			if got != tt.want {
				t.Errorf("HTMLPathFor(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestHTMLPathForContainment verifies that mapped paths never contain
// dot segments, whatever the URL path looks like. url.Parse decodes
// "%2e%2e" to "..", so without cleaning a hostile link could map to a
// file outside the output directory.
func TestHTMLPathForContainment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "percent-encoded dot segments",
			in:   "https://x.com/%2e%2e/%2e%2e/escape",
			want: "escape.html",
		},
		{
			name: "literal dot segments",
			in:   "https://x.com/a/../../b",
			want: "b.html",
		},
		{
			name: "dot segments resolving inside the tree",
			in:   "https://x.com/a/b/../c",
			want: "a/c.html",
		},
		{
			name: "single dot segments",
			in:   "https://x.com/./a/./b",
			want: "a/b.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := HTMLPathFor(tt.in)
			if got != tt.want {
				t.Errorf("HTMLPathFor(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.HasPrefix(got, "../") || strings.Contains(got, "/../") {
				t.Errorf("HTMLPathFor(%q) = %q contains a dot segment", tt.in, got)
			}
		})
	}
}

// TestHTMLPathForQueryVariants verifies that distinct query strings on
// the same path produce distinct files.
func TestHTMLPathForQueryVariants(t *testing.T) {
	t.Parallel()

	a := HTMLPathFor("https://x.com/page?id=1")
	b := HTMLPathFor("https://x.com/page?id=2")
	plain := HTMLPathFor("https://x.com/page")

	if a == b {
		t.Errorf("query variants mapped to the same path %q", a)
	}
	if a == plain || b == plain {
		t.Error("query variant collided with the query-less path")
	}
}

// TestHTMLPathForDeterminism verifies the mapping is a pure function.
func TestHTMLPathForDeterminism(t *testing.T) {
	t.Parallel()

	u := "https://x.com/a/b?x=1&y=2"
	if HTMLPathFor(u) != HTMLPathFor(u) {
		t.Error("HTMLPathFor is not deterministic")
	}
}

// TestHTMLPathForLongQuery verifies the sanitized query is bounded.
func TestHTMLPathForLongQuery(t *testing.T) {
	t.Parallel()

	long := "https://x.com/p?junk=" + strings.Repeat("a", 1000)
	got := HTMLPathFor(long)
	if len(got) > maxQueryLen+len("p__q_.html") {
		t.Errorf("mapped path too long: %d bytes", len(got))
	}
}

// TestImageFilenameFor verifies collision-safe image filename mapping.
func TestImageFilenameFor(t *testing.T) {
	t.Parallel()

	t.Run("shared basenames stay distinct", func(t *testing.T) {
		t.Parallel()

		a := ImageFilenameFor("https://x.com/a/logo.png")
		b := ImageFilenameFor("https://x.com/b/logo.png")
		if a == b {
			t.Errorf("different source paths mapped to the same filename %q", a)
		}
		if !strings.HasPrefix(a, "logo_") || !strings.HasSuffix(a, ".png") {
			t.Errorf("unexpected filename shape %q", a)
		}
	})

	t.Run("missing basename synthesizes a name", func(t *testing.T) {
		t.Parallel()

		got := ImageFilenameFor("https://x.com/")
		if !strings.HasPrefix(got, "image_") {
			t.Errorf("expected synthesized name, got %q", got)
		}
		if !strings.HasSuffix(got, ".jpg") {
			t.Errorf("expected default .jpg extension, got %q", got)
		}
	})

	t.Run("missing extension defaults to jpg", func(t *testing.T) {
		t.Parallel()

		got := ImageFilenameFor("https://x.com/assets/photo")
		if !strings.HasSuffix(got, ".jpg") {
			t.Errorf("expected .jpg fallback, got %q", got)
		}
	})

	t.Run("unsafe characters sanitized", func(t *testing.T) {
		t.Parallel()

		got := ImageFilenameFor("https://x.com/img/we ird%20name.png")
		if strings.ContainsAny(got, " %") {
			t.Errorf("filename contains unsafe characters: %q", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		u := "https://x.com/a/logo.png"
		if ImageFilenameFor(u) != ImageFilenameFor(u) {
			t.Error("ImageFilenameFor is not deterministic")
		}
	})
}
