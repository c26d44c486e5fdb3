package crawler

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// NormalizeURL returns the canonical form of a URL used for deduplication.
//
// Normalization:
//   - removes the fragment (#anchor does not change the resource)
//   - sorts query parameters by key, then value, and re-encodes them
//   - strips the trailing slash from non-root paths
//   - resolves dot segments in the decoded path, including
//     percent-encoded ones ("%2e%2e"), so aliases cannot defeat dedup
//     or smuggle ".." into the path mapper
//   - drops the default port (http on 80, https on 443)
//
// The root path "/" is preserved, so http://example.com and
// http://example.com/ normalize to the same string. Normalization is
// idempotent: applying it twice yields the same result.
//
// Malformed input is returned unchanged; the caller decides whether an
// unparseable URL is worth crawling.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Hostname()
	}

	// Empty path and "/" are the same resource.
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}

	// Clean operates on the decoded path, so encoded dot segments
	// ("%2e%2e") collapse too. RawPath is reset when the path changes:
	// keeping a stale encoded form would make String() emit the
	// uncleaned original.
	if u.Path != "" {
		if cleaned := path.Clean(u.Path); cleaned != u.Path {
			u.Path = cleaned
			u.RawPath = ""
		}
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	if u.RawQuery != "" {
		u.RawQuery = canonicalQuery(u.RawQuery)
	}

	return u.String()
}

// canonicalQuery re-encodes a query string with its key-value pairs
// sorted by (key, value) so that parameter order never defeats dedup.
// Blank values are kept: "?a" and "?a=" both encode as "a=".
func canonicalQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	type pair struct{ key, value string }
	pairs := make([]pair, 0, len(values))
	for key, vs := range values {
		for _, v := range vs {
			pairs = append(pairs, pair{key: key, value: v})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}
