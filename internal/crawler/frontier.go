package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// Task is one unit of crawl work: a normalized URL and its BFS depth.
// Tasks are immutable and consumed exactly once.
type Task struct {
	URL   string
	Depth int
}

// Frontier is the BFS queue together with the dedup bookkeeping that
// prevents re-visiting. It holds three pieces of state:
//
//   - queue: FIFO of pending tasks
//   - queued: URLs currently in the queue
//   - visited: URLs already handed out for fetching
//
// A URL in visited is never fetched again; a URL in queued or visited
// is never enqueued again. All URLs passing through the Frontier must
// already be normalized.
//
// The Frontier is scoped to one crawl invocation and discarded with it;
// it is never shared between crawls.
type Frontier struct {
	mu      sync.Mutex
	queue   []Task
	queued  map[string]bool
	visited map[string]bool

	originHost     string
	sameOriginOnly bool
}

// NewFrontier creates a Frontier seeded with the normalized start URL
// at depth 0. The start URL's host becomes the origin for the
// same-origin filter.
func NewFrontier(startURL string, sameOriginOnly bool) *Frontier {
	norm := NormalizeURL(startURL)

	var host string
	if u, err := url.Parse(norm); err == nil {
		host = u.Host
	}

	return &Frontier{
		queue:          []Task{{URL: norm, Depth: 0}},
		queued:         map[string]bool{norm: true},
		visited:        make(map[string]bool),
		originHost:     host,
		sameOriginOnly: sameOriginOnly,
	}
}

// Dequeue pops the FIFO head. Tasks whose URL was marked visited after
// they were enqueued are discarded silently; in the single-flow design
// this should not occur and exists as a defensive invariant.
func (f *Frontier) Dequeue() (Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) > 0 {
		task := f.queue[0]
		f.queue = f.queue[1:]
		if f.visited[task.URL] {
			continue
		}
		return task, true
	}
	return Task{}, false
}

// MarkVisited records that a URL has been fetched. It is idempotent and
// also clears the queued bookkeeping for the URL.
func (f *Frontier) MarkVisited(normURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited[normURL] = true
	delete(f.queued, normURL)
}

// Enqueue adds a task for a normalized URL at the given depth. It is a
// no-op when the URL was already visited or queued, or when the
// same-origin filter is on and the URL's host differs from the start
// URL's host. Reports whether the task was actually added.
func (f *Frontier) Enqueue(normURL string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[normURL] || f.queued[normURL] {
		return false
	}
	if f.sameOriginOnly && !f.sameOrigin(normURL) {
		return false
	}

	f.queued[normURL] = true
	f.queue = append(f.queue, Task{URL: normURL, Depth: depth})
	return true
}

// Len returns the number of pending tasks.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// sameOrigin reports whether a URL shares the start URL's host.
// Callers must hold f.mu; the check itself only reads immutable state.
func (f *Frontier) sameOrigin(normURL string) bool {
	u, err := url.Parse(normURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, f.originHost)
}
