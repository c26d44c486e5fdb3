package crawler

import (
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Length bounds for generated file names. Queries and basenames are
// truncated so that mapped paths stay well under common filesystem
// name limits even for pathological URLs.
const (
	maxQueryLen    = 180
	maxBasenameLen = 200
)

// unsafeChars matches everything outside the filename-safe character set.
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// HTMLPathFor maps a normalized page URL to a relative local file path.
//
// The URL path becomes the file path: "/a/b" maps to "a/b.html", the
// root maps to "index.html", and directory-style paths gain an "index"
// segment. When a query string is present, a sanitized copy is spliced
// into the filename stem as "__q_<query>" so that two URLs differing
// only by query map to distinct files.
//
// The function is pure: it never touches the filesystem, and equal
// inputs always produce equal outputs. The result is always a clean
// relative path with no dot segments: url.Parse decodes "%2e%2e" to
// "..", and a mapped path containing ".." would let a hostile page
// write outside the output directory.
func HTMLPathFor(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		// Best effort for unparseable input: a name derived from the
		// raw string, unique per input.
		return "page_" + urlHash(pageURL, 12) + ".html"
	}

	trailingSlash := strings.HasSuffix(u.Path, "/")

	// Rooting the path before Clean resolves ".." against "/" instead
	// of letting it climb past the mapped tree.
	p := path.Clean("/" + u.Path)
	if p == "/" {
		p = "/index"
	} else if trailingSlash {
		p += "/index"
	}

	rel := strings.TrimPrefix(p, "/")
	if path.Ext(rel) == "" {
		rel += ".html"
	}

	if u.RawQuery != "" {
		q := sanitizeName(u.RawQuery, maxQueryLen)
		ext := path.Ext(rel)
		rel = strings.TrimSuffix(rel, ext) + "__q_" + q + ext
	}

	return rel
}

// ImageFilenameFor maps an image URL to a collision-safe filename.
//
// The basename of the URL path is sanitized and kept; when the path has
// no usable basename the name is synthesized from a hash of the full
// URL. A short hash of the full URL is always appended before the
// extension, so two different source paths sharing a basename (say
// /a/logo.png and /b/logo.png) never map to the same file. URLs with no
// extension default to ".jpg".
func ImageFilenameFor(imageURL string) string {
	var base string
	if u, err := url.Parse(imageURL); err == nil {
		base = path.Base(u.Path)
	}
	if base == "." || base == "/" {
		base = ""
	}

	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if stem == "" {
		stem = "image_" + urlHash(imageURL, 12)
	} else {
		stem = sanitizeName(stem, maxBasenameLen)
	}

	if ext == "" {
		ext = ".jpg"
	} else {
		ext = "." + sanitizeName(strings.TrimPrefix(ext, "."), 16)
	}

	return stem + "_" + urlHash(imageURL, 8) + ext
}

// sanitizeName replaces runs of unsafe characters with "_" and truncates
// the result to limit bytes.
func sanitizeName(s string, limit int) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

// urlHash returns the first n hex characters of the SHA3-256 digest of s.
func urlHash(s string, n int) string {
	sum := sha3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}

// ContentHash returns the full SHA3-256 hex digest of body.
// The crawl manifest stores it for change detection between runs.
func ContentHash(body []byte) string {
	sum := sha3.Sum256(body)
	return hex.EncodeToString(sum[:])
}
