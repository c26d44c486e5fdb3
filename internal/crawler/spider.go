package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sitesnap/sitesnap/internal/model"
)

// Spider drives one crawl: it drains the Frontier in strict BFS order,
// persists pages through the path mapper, accumulates image references,
// and downloads them in a final pass.
//
// A Spider owns its Frontier and image set exclusively for the duration
// of one Crawl call; nothing persists across invocations. A Spider must
// not be reused concurrently, but separate Spiders may run in parallel
// over separate output directories.
type Spider struct {
	fetcher *Fetcher
	logger  *slog.Logger

	// progress receives the per-item progress lines. io.Discard when
	// quiet mode is on.
	progress io.Writer

	outDir         string
	maxDepth       int
	maxPages       int
	delay          time.Duration
	sameOriginOnly bool
	downloadImages bool
	ignorePatterns []string
	followPatterns []string
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum link depth to follow.
// 0 means only the starting page.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages caps the number of fetch attempts.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithDelay sets the politeness delay applied after each request.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSameOriginOnly toggles the same-origin enqueue filter.
func WithSameOriginOnly(on bool) SpiderOption {
	return func(s *Spider) {
		s.sameOriginOnly = on
	}
}

// WithDownloadImages toggles the image download pass.
func WithDownloadImages(on bool) SpiderOption {
	return func(s *Spider) {
		s.downloadImages = on
	}
}

// WithIgnorePatterns sets URL path glob patterns that are never enqueued.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path glob patterns; when non-empty, only
// matching URLs are enqueued.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithProgress sets the writer for per-item progress lines.
func WithProgress(w io.Writer) SpiderOption {
	return func(s *Spider) {
		if w != nil {
			s.progress = w
		}
	}
}

// WithLogger sets the structured logger used for debug output.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that mirrors into outDir.
func NewSpider(fetcher *Fetcher, outDir string, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:        fetcher,
		logger:         slog.Default(),
		progress:       io.Discard,
		outDir:         outDir,
		maxDepth:       2,
		maxPages:       500,
		delay:          200 * time.Millisecond,
		sameOriginOnly: true,
		downloadImages: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl mirrors the site reachable from startURL and returns the result.
//
// The loop terminates when the frontier is exhausted or the page budget
// is spent. Cancellation is checked before each dequeue and each fetch;
// on cancellation the partial result is returned together with the
// context error, so callers can still report and persist what was done.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*model.CrawlResult, error) {
	start := NormalizeURL(startURL)
	if u, err := url.Parse(start); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid start URL %q", startURL)
	}

	if err := os.MkdirAll(s.outDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	frontier := NewFrontier(start, s.sameOriginOnly)
	result := model.NewCrawlResult(start, s.outDir)
	images := newOrderedSet()

	fetched := 0
	for fetched < s.maxPages {
		select {
		case <-ctx.Done():
			result.Interrupted = true
			result.FinishedAt = time.Now()
			return result, ctx.Err()
		default:
		}

		task, ok := frontier.Dequeue()
		if !ok {
			break
		}
		frontier.MarkVisited(task.URL)

		fetched++
		result.Summary.PagesFetched = fetched

		s.crawlPage(ctx, task, frontier, result, images)

		if ctx.Err() != nil {
			result.Interrupted = true
			result.FinishedAt = time.Now()
			return result, ctx.Err()
		}
		s.sleep(ctx)
	}

	if s.downloadImages && images.len() > 0 {
		s.fetchImages(ctx, images.items(), result)
	}

	if ctx.Err() != nil {
		result.Interrupted = true
	}
	result.FinishedAt = time.Now()
	return result, nil
}

// crawlPage handles one dequeued task: fetch, persist, extract, enqueue.
func (s *Spider) crawlPage(ctx context.Context, task Task, frontier *Frontier, result *model.CrawlResult, images *orderedSet) {
	res, err := s.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		fmt.Fprintf(s.progress, "  [ERR] %s: %v\n", task.URL, err)
		s.logger.Debug("fetch failed", "url", task.URL, "error", err)
		result.AddFailure(task.URL, 0, err.Error())
		return
	}

	// The post-redirect URL is a visited URL too: a separately linked
	// pre-redirect spelling found later must not trigger a re-fetch.
	if res.FinalURL != task.URL {
		frontier.MarkVisited(res.FinalURL)
	}

	record := model.PageRecord{
		URL:         res.FinalURL,
		Depth:       task.Depth,
		StatusCode:  res.StatusCode,
		ContentType: res.ContentType,
		FetchedAt:   time.Now(),
	}

	if res.StatusCode >= 400 {
		fmt.Fprintf(s.progress, "  [%d] %s\n", res.StatusCode, task.URL)
		result.AddFailure(task.URL, res.StatusCode, "")
		result.AddPage(record)
		return
	}

	if !res.IsHTML() || res.Body == nil {
		// Fetched but not saved; nothing to extract.
		result.AddPage(record)
		return
	}

	relPath := HTMLPathFor(res.FinalURL)
	if err := s.savePage(relPath, res.Body); err != nil {
		// A single unwritable path must not abort the mirror.
		s.logger.Warn("save failed", "url", res.FinalURL, "path", relPath, "error", err)
		result.AddFailure(res.FinalURL, 0, err.Error())
	} else {
		result.Summary.PagesSaved++
		record.LocalPath = relPath
		record.Size = int64(len(res.Body))
		record.Hash = ContentHash(res.Body)
		fmt.Fprintf(s.progress, "  [depth=%d] %s -> %s\n", task.Depth, res.FinalURL, relPath)
	}
	result.AddPage(record)

	extractor, err := NewExtractor(res.FinalURL)
	if err != nil {
		return
	}
	extracted, err := extractor.Extract(bytes.NewReader(res.Body))
	if err != nil {
		s.logger.Debug("parse failed", "url", res.FinalURL, "error", err)
		return
	}

	for _, img := range extracted.Images {
		images.add(NormalizeURL(img))
	}

	// Links are only followed from pages above the depth limit.
	if task.Depth >= s.maxDepth {
		return
	}
	for _, link := range extracted.Links {
		norm := NormalizeURL(link)
		if !s.shouldFollow(norm) {
			continue
		}
		frontier.Enqueue(norm, task.Depth+1)
	}
}

// savePage writes a page body at relPath under the output directory,
// creating parent directories as needed. Paths are deterministic per
// normalized URL, so an overwrite within a run means the same resource.
//
// The path mapper never emits dot segments, but the containment check
// stays: a write outside the output directory is never acceptable,
// whatever produced the path.
func (s *Spider) savePage(relPath string, body []byte) error {
	full := filepath.Join(s.outDir, filepath.FromSlash(relPath))
	if !strings.HasPrefix(full, filepath.Clean(s.outDir)+string(filepath.Separator)) {
		return fmt.Errorf("mapped path %q escapes the output directory", relPath)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0750); err != nil {
		return err
	}
	return os.WriteFile(full, body, 0600)
}

// shouldFollow applies the ignore/follow glob patterns to a URL's path.
// Ignore patterns win; when follow patterns are set, the path must
// match at least one.
func (s *Spider) shouldFollow(normURL string) bool {
	if len(s.ignorePatterns) == 0 && len(s.followPatterns) == 0 {
		return true
	}

	u, err := url.Parse(normURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}
	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}
	return true
}

// matchPattern checks a URL path against a glob pattern. "/admin/*"
// matches everything under /admin, "*.pdf" matches by extension
// anywhere, and the rest goes through filepath.Match semantics.
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
		return true
	}
	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}
	// Extension-style patterns should also match the basename alone.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}

// sleep applies the politeness delay, waking early on cancellation.
func (s *Spider) sleep(ctx context.Context) {
	if s.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.delay):
	}
}

// orderedSet is a string set that preserves insertion order, used for
// the accumulated image URLs so download order is deterministic.
type orderedSet struct {
	seen  map[string]bool
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (o *orderedSet) add(s string) {
	if s == "" || o.seen[s] {
		return
	}
	o.seen[s] = true
	o.order = append(o.order, s)
}

func (o *orderedSet) len() int { return len(o.order) }

func (o *orderedSet) items() []string { return o.order }
