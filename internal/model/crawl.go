package model

import "time"

// PageRecord describes one page fetched during a crawl.
// The body itself is not retained; it lives on disk at LocalPath.
type PageRecord struct {
	// URL is the normalized, post-redirect URL of the page.
	URL string `json:"url"`

	// Depth is the BFS distance from the start URL.
	Depth int `json:"depth"`

	// StatusCode is the final HTTP status after redirects.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type reported by the server.
	ContentType string `json:"content_type"`

	// LocalPath is the slash-separated path of the saved file,
	// relative to the output directory. Empty if the page was
	// fetched but not saved (non-HTML or error status).
	LocalPath string `json:"local_path,omitempty"`

	// Size is the number of body bytes written to disk.
	Size int64 `json:"size"`

	// Hash is the SHA3-256 hex digest of the saved body.
	// Used for change detection between crawl runs.
	Hash string `json:"hash,omitempty"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// ImageRecord describes one image downloaded during a crawl.
type ImageRecord struct {
	// URL is the normalized URL the image was fetched from.
	URL string `json:"url"`

	// Filename is the collision-safe name under the images directory.
	Filename string `json:"filename"`

	// Size is the number of bytes written to disk.
	Size int64 `json:"size"`

	// FetchedAt is when the download completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// FetchFailure records a page or image that could not be retrieved.
// StatusCode is zero for transport-level failures (DNS, connect, timeout).
type FetchFailure struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Finding flags privacy-sensitive metadata discovered in a mirrored asset,
// such as GPS coordinates embedded in a downloaded image.
type Finding struct {
	// File is the path of the asset relative to the output directory.
	File string `json:"file"`

	// Tag is the metadata tag that triggered the finding (e.g. "GPSLatitude").
	Tag string `json:"tag"`

	// Value is the formatted tag value.
	Value string `json:"value"`

	// Description explains what the tag reveals.
	Description string `json:"description"`
}

// Summary is the bottom line of a crawl, returned to the caller and
// printed even when every fetch failed.
type Summary struct {
	// PagesFetched is the number of fetch attempts made against the
	// page budget. HTTP error responses count; the budget never allows
	// more attempts than the configured maximum.
	PagesFetched int `json:"pages_fetched"`

	// PagesSaved is the number of HTML files written to disk.
	PagesSaved int `json:"pages_saved"`

	// ImagesSaved is the number of image files written to disk.
	ImagesSaved int `json:"images_saved"`
}

// CrawlResult holds everything a single crawl invocation produced.
// It is owned by the caller once Crawl returns; no crawl state survives
// beyond it.
type CrawlResult struct {
	// StartURL is the normalized URL the crawl began from.
	StartURL string `json:"start_url"`

	// OutputDir is the directory the mirror was written to.
	OutputDir string `json:"output_dir"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary Summary `json:"summary"`

	// Pages lists every page that produced an HTTP response.
	Pages []PageRecord `json:"pages,omitempty"`

	// Images lists every image written to disk.
	Images []ImageRecord `json:"images,omitempty"`

	// Failures lists pages and images that could not be retrieved.
	Failures []FetchFailure `json:"failures,omitempty"`

	// Findings lists metadata findings from the optional image audit.
	Findings []Finding `json:"findings,omitempty"`

	// Interrupted is true when the crawl was cancelled before the
	// frontier was exhausted. The counts above are still valid.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewCrawlResult creates an empty result for the given start URL.
func NewCrawlResult(startURL, outputDir string) *CrawlResult {
	return &CrawlResult{
		StartURL:  startURL,
		OutputDir: outputDir,
		StartedAt: time.Now(),
		Pages:     make([]PageRecord, 0),
		Images:    make([]ImageRecord, 0),
		Failures:  make([]FetchFailure, 0),
	}
}

// AddPage appends a page record.
func (r *CrawlResult) AddPage(p PageRecord) {
	r.Pages = append(r.Pages, p)
}

// AddImage appends an image record.
func (r *CrawlResult) AddImage(img ImageRecord) {
	r.Images = append(r.Images, img)
}

// AddFailure appends a fetch failure.
func (r *CrawlResult) AddFailure(url string, statusCode int, message string) {
	r.Failures = append(r.Failures, FetchFailure{
		URL:        url,
		StatusCode: statusCode,
		Message:    message,
	})
}

// Duration returns the wall-clock time the crawl took.
func (r *CrawlResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
