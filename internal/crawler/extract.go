package crawler

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Extractor pulls link and image URLs out of an HTML document.
// One Extractor is created per page with that page's post-redirect URL
// as the base for resolving relative references.
//
// Design decision: We use golang.org/x/net/html rather than regex
// because it tolerates the malformed HTML common on real sites and
// gives us a proper node tree to walk once for both extraction passes.
type Extractor struct {
	base *url.URL
}

// ExtractResult holds everything extracted from one document.
// Both slices are sets: duplicates within a page are collapsed, and
// document order is preserved.
type ExtractResult struct {
	// Links are the absolute outbound anchor URLs.
	Links []string

	// Images are the absolute image reference URLs, gathered from
	// img/source src and srcset attributes and inline style
	// background declarations.
	Images []string
}

// NewExtractor creates an Extractor for a page at baseURL.
func NewExtractor(baseURL string) (*Extractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Extractor{base: u}, nil
}

// styleURLPattern matches url(...) references in background-image-style
// inline CSS declarations.
var styleURLPattern = regexp.MustCompile(`(?i)background[^;]*?url\(\s*['"]?([^'")\s]+)['"]?\s*\)`)

// Extract parses the document once and collects links and images.
func (e *Extractor) Extract(content io.Reader) (*ExtractResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ExtractResult{
		Links:  make([]string, 0),
		Images: make([]string, 0),
	}
	seenLinks := make(map[string]bool)
	seenImages := make(map[string]bool)

	addLink := func(raw string) {
		if resolved := e.resolve(raw); resolved != "" && !seenLinks[resolved] {
			seenLinks[resolved] = true
			result.Links = append(result.Links, resolved)
		}
	}
	addImage := func(raw string) {
		if resolved := e.resolve(raw); resolved != "" && !seenImages[resolved] {
			seenImages[resolved] = true
			result.Images = append(result.Images, resolved)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			e.processElement(n, addLink, addImage)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement routes one element to the link or image collectors.
func (e *Extractor) processElement(n *html.Node, addLink, addImage func(string)) {
	switch n.Data {
	case "a":
		if href := getAttr(n, "href"); href != "" {
			addLink(href)
		}

	case "img":
		if src := getAttr(n, "src"); src != "" {
			addImage(src)
		}
		for _, candidate := range srcsetCandidates(getAttr(n, "srcset")) {
			addImage(candidate)
		}

	case "source":
		// <source> appears inside <picture> and <video>; both src and
		// srcset may reference images.
		if src := getAttr(n, "src"); src != "" {
			addImage(src)
		}
		for _, candidate := range srcsetCandidates(getAttr(n, "srcset")) {
			addImage(candidate)
		}
	}

	if style := getAttr(n, "style"); style != "" {
		for _, match := range styleURLPattern.FindAllStringSubmatch(style, -1) {
			addImage(match[1])
		}
	}
}

// srcsetCandidates returns the URL token of each comma-separated srcset
// entry, dropping width/density descriptors. For
// "a.png 1x, b.png 2x" it returns ["a.png", "b.png"].
func srcsetCandidates(srcset string) []string {
	if srcset == "" {
		return nil
	}
	var candidates []string
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) > 0 {
			candidates = append(candidates, fields[0])
		}
	}
	return candidates
}

// resolve turns a raw attribute value into an absolute URL against the
// page base. Non-navigable schemes (mailto, tel, javascript, data) and
// bare fragments resolve to "".
func (e *Extractor) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return ""
	}

	lower := strings.ToLower(raw)
	for _, scheme := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(u).String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
