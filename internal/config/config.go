package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These match common expectations for a polite same-origin mirroring
// tool: shallow by default, bounded by default, never hammering.
const (
	// DefaultTimeout of 15 seconds is generous for ordinary web servers.
	// Individual connections that take longer than this are almost
	// always dead or misbehaving, and holding them open only stalls
	// the crawl.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxDepth of 2 captures the start page, everything it
	// links to, and one level beyond. Deeper mirrors need an explicit
	// opt-in via the --max-depth flag.
	DefaultMaxDepth = 2

	// DefaultMaxPages bounds fetch attempts per crawl so a link-dense
	// site cannot turn a quick mirror into an open-ended walk.
	// Users can override this via the --max-pages CLI flag.
	DefaultMaxPages = 500

	// DefaultDelay is the politeness delay between requests.
	// 200ms keeps the request rate well under what any reasonable
	// server would consider abusive while still finishing small
	// mirrors quickly. Can be adjusted via the --delay CLI flag.
	DefaultDelay = 200 * time.Millisecond

	// DefaultBatchSize is the number of concurrent crawls when
	// processing multiple start URLs. Each crawl targets a different
	// origin, so concurrency here does not increase per-server load.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies sitesnap in HTTP requests.
	// A descriptive User-Agent lets site operators identify mirror
	// traffic in their logs.
	DefaultUserAgent = "sitesnap/1.0 (+https://github.com/sitesnap/sitesnap)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for any sane HTML page while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultOutputDir is where the mirror is written when no --out
	// flag is given.
	DefaultOutputDir = "site_mirror"

	// AppName is the application name used for XDG directory paths.
	AppName = "sitesnap"
)

// Config holds all configuration options for a sitesnap run.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// StartURLs is the list of pages to mirror. Each entry becomes an
	// independent crawl rooted at that URL's origin. Must contain at
	// least one absolute http or https URL.
	StartURLs []string

	// OutputDir is the directory the mirror is written into. For a
	// single start URL pages go directly under it; for multiple start
	// URLs each crawl gets a per-host subdirectory.
	OutputDir string

	// MaxDepth is the maximum link depth to follow.
	// Depth 0 means only fetch the start page.
	MaxDepth int

	// MaxPages is the maximum number of fetch attempts per crawl.
	// This prevents runaway crawling on large or infinitely-generating
	// sites. A value of 0 means use the default (DefaultMaxPages).
	MaxPages int

	// Delay is the politeness pause applied after every request.
	// Zero disables the pause entirely; negative values are invalid.
	Delay time.Duration

	// Timeout is the connection timeout for each HTTP request.
	// This applies to individual requests, not the overall crawl.
	Timeout time.Duration

	// SameOriginOnly restricts link following to the start URL's
	// scheme-less host. Off-origin pages are never fetched while this
	// is on. This is the default; --no-same-origin turns it off.
	SameOriginOnly bool

	// DownloadImages enables the image download pass after the page
	// crawl finishes. On by default; --no-images turns it off.
	DownloadImages bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	// A descriptive User-Agent helps site operators identify mirror
	// traffic.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory
	// exhaustion. Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// Quiet suppresses the per-page progress lines on stdout.
	// The final summary is still printed.
	Quiet bool

	// BatchSize is the number of concurrent crawls when processing
	// multiple start URLs. Each crawl still honors its own delay, so
	// this never increases per-origin request rate.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .sitesnap in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site profiles loaded from the config file.
	// This is populated by LoadConfigFile and consulted per start URL.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, crawl results are saved for later inspection via the
	// history command. Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to save crawl results to the
	// database. On by default; --no-db turns it off.
	SaveToDB bool

	// ExifAudit enables the metadata audit over downloaded images.
	// When on, JPEG and TIFF files in the mirror are scanned for
	// privacy-sensitive EXIF tags after the crawl.
	ExifAudit bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeout, depth, the
// boolean toggles that default to on). This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		OutputDir:      DefaultOutputDir,
		MaxDepth:       DefaultMaxDepth,
		MaxPages:       DefaultMaxPages,
		Delay:          DefaultDelay,
		Timeout:        DefaultTimeout,
		SameOriginOnly: true,
		DownloadImages: true,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		BatchSize:      DefaultBatchSize,
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for sitesnap.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/sitesnap
// On macOS: ~/Library/Application Support/sitesnap
// On Windows: %LOCALAPPDATA%\sitesnap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitesnap.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.StartURLs) == 0 {
		return ErrNoStartURL
	}

	// Reject unusable start URLs before touching the network.
	for _, raw := range c.StartURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return ErrInvalidStartURL
		}
	}

	// Timeout must be positive; zero would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	// Delay must be non-negative; zero means no pause
	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	// BatchSize must be positive; zero would mean no crawling
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
