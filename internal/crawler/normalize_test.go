package crawler

import "testing"

// TestNormalizeURL verifies canonicalization of URLs for deduplication.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips fragment",
			in:   "https://x.com/a#section",
			want: "https://x.com/a",
		},
		{
			name: "sorts query parameters by key",
			in:   "https://x.com/a?b=2&a=1",
			want: "https://x.com/a?a=1&b=2",
		},
		{
			name: "sorts values within the same key",
			in:   "https://x.com/a?k=z&k=a",
			want: "https://x.com/a?k=a&k=z",
		},
		{
			name: "strips trailing slash on non-root path",
			in:   "https://x.com/a/",
			want: "https://x.com/a",
		},
		{
			name: "preserves root path",
			in:   "https://x.com/",
			want: "https://x.com/",
		},
		{
			name: "adds root path for bare host",
			in:   "https://x.com",
			want: "https://x.com/",
		},
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://X.COM/A",
			want: "https://x.com/A",
		},
		{
			name: "keeps blank query values",
			in:   "https://x.com/a?flag",
			want: "https://x.com/a?flag=",
		},
		{
			name: "resolves dot segments",
			in:   "https://x.com/a/../b/./c",
			want: "https://x.com/b/c",
		},
		{
			name: "resolves percent-encoded dot segments",
			in:   "https://x.com/%2e%2e/%2e%2e/escape",
			want: "https://x.com/escape",
		},
		{
			name: "dot segments cannot climb past the root",
			in:   "https://x.com/../../a",
			want: "https://x.com/a",
		},
		{
			name: "drops default http port",
			in:   "http://x.com:80/a",
			want: "http://x.com/a",
		},
		{
			name: "drops default https port",
			in:   "https://x.com:443/a",
			want: "https://x.com/a",
		},
		{
			name: "keeps non-default port",
			in:   "http://x.com:8080/a",
			want: "http://x.com:8080/a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeURL(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestNormalizeURLIdempotent verifies normalize(normalize(u)) == normalize(u).
func TestNormalizeURLIdempotent(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://x.com/a?b=2&a=1#frag",
		"https://x.com/a/",
		"https://x.com/",
		"https://x.com/a?flag&x=1",
		"http://X.com/path/to/page?z=9&a=%20space",
		"not a url at all",
		"/relative/path",
	}

	for _, u := range urls {
		once := NormalizeURL(u)
		twice := NormalizeURL(once)
		if once != twice {
			t.Errorf("normalization not idempotent for %q: first %q, second %q", u, once, twice)
		}
	}
}

// TestNormalizeURLDedup verifies that equivalent spellings normalize
// to the same string.
func TestNormalizeURLDedup(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"https://x.com/a?b=2&a=1", "https://x.com/a?a=1&b=2"},
		{"https://x.com/a/", "https://x.com/a"},
		{"https://x.com", "https://x.com/"},
		{"https://x.com/a#top", "https://x.com/a#bottom"},
	}

	for _, p := range pairs {
		if NormalizeURL(p[0]) != NormalizeURL(p[1]) {
			t.Errorf("expected %q and %q to normalize identically, got %q and %q",
				p[0], p[1], NormalizeURL(p[0]), NormalizeURL(p[1]))
		}
	}
}

// TestNormalizeURLMalformed verifies best-effort pass-through.
func TestNormalizeURLMalformed(t *testing.T) {
	t.Parallel()

	in := "http://bad url with spaces/%zz"
	if got := NormalizeURL(in); got != in {
		t.Errorf("malformed URL should pass through unchanged, got %q", got)
	}
}
