package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sitesnap/sitesnap/internal/config"
	"github.com/sitesnap/sitesnap/internal/crawler"
	"github.com/sitesnap/sitesnap/internal/database"
	"github.com/sitesnap/sitesnap/internal/imagemeta"
	"github.com/sitesnap/sitesnap/internal/log"
	"github.com/sitesnap/sitesnap/internal/model"
	"github.com/sitesnap/sitesnap/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Mirror a website to a local directory",
		Long: `Crawl mirrors a website into a local directory.

Starting from the given URL, it fetches same-origin pages breadth-first
within the depth and page budgets, saves each HTML page under a path
derived from its URL, and downloads referenced images into an images/
subdirectory. A politeness delay is applied after every request.

Examples:
  # Mirror a site with the defaults (depth 2, 500 pages)
  sitesnap crawl https://example.com/

  # Deeper mirror into a custom directory
  sitesnap crawl --max-depth 4 --out example_mirror https://example.com/

  # Mirror several sites concurrently; each gets a per-host subdirectory
  sitesnap crawl https://a.example/ https://b.example/

  # Skip images and write a Markdown report
  sitesnap crawl --no-images --markdown --report report.md https://example.com/

  # Audit downloaded images for GPS and other EXIF metadata
  sitesnap crawl --exif-audit https://example.com/

Configuration file (.sitesnap) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 3
    other.example:
      maxPages: 50
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Output flags
	cmd.Flags().StringP("out", "o", config.DefaultOutputDir,
		"Output directory for the mirror")

	// Crawl behavior flags
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum link depth to follow (0 fetches only the start page)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of fetch attempts per crawl")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Politeness delay between requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().Bool("no-same-origin", false,
		"Follow links to other hosts (off-origin pages are skipped by default)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Bool("no-images", false,
		"Skip the image download pass")
	cmd.Flags().BoolP("quiet", "q", false,
		"Suppress per-page progress output")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent crawls when multiple URLs are given")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitesnap in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().String("report", "",
		"Write the report to the given file instead of stdout")

	// Persistence and audit flags
	cmd.Flags().Bool("no-db", false,
		"Do not record the crawl in the history database")
	cmd.Flags().Bool("exif-audit", false,
		"Audit downloaded images for privacy-sensitive EXIF metadata")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(getVerboseFlag(cmd))
	slog.SetDefault(logger)

	// Signal handling for graceful shutdown: a first interrupt cancels
	// the crawl; the partial mirror is still reported and persisted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.OutputDir, err = cmd.Flags().GetString("out")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("max-depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	noSameOrigin, err := cmd.Flags().GetBool("no-same-origin")
	if err != nil {
		return nil, err
	}
	cfg.SameOriginOnly = !noSameOrigin

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	noImages, err := cmd.Flags().GetBool("no-images")
	if err != nil {
		return nil, err
	}
	cfg.DownloadImages = !noImages

	cfg.Quiet, err = cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site profiles from the config file.
	// If the user explicitly specified a config file path, error if not
	// found. Otherwise silently use an empty profile set.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	cfg.ExifAudit, err = cmd.Flags().GetBool("exif-audit")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the start URLs
	cfg.StartURLs = args

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
// Site profiles may carry cookies and auth headers; the secure logger
// masks those even in verbose mode.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// runCrawl executes the crawls.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"startURLs", cfg.StartURLs,
		"outputDir", cfg.OutputDir,
		"maxDepth", cfg.MaxDepth,
		"maxPages", cfg.MaxPages,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// One shared client: the connection pool is reused across crawls
	// and the timeout applies per request.
	client := &http.Client{Timeout: cfg.Timeout}

	if len(cfg.StartURLs) > 1 && cfg.BatchSize > 1 {
		return runBatchCrawl(ctx, cfg, client, db, logger)
	}
	return runSequentialCrawl(ctx, cfg, client, db, logger)
}

// runSequentialCrawl crawls the start URLs one at a time.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, client *http.Client, db *database.CrawlDB, logger *slog.Logger) error {
	multi := len(cfg.StartURLs) > 1

	for _, startURL := range cfg.StartURLs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := crawlTarget(ctx, cfg, client, db, logger, startURL, outDirFor(cfg, startURL, multi), nil); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error("crawl failed", "startURL", startURL, "error", err)
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", startURL, err)
		}
	}

	return nil
}

// runBatchCrawl crawls multiple start URLs concurrently.
// Each crawl targets a different origin and still honors its own delay,
// so concurrency never increases per-server request rate.
func runBatchCrawl(ctx context.Context, cfg *config.Config, client *http.Client, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d sites (concurrency: %d)...\n\n",
		len(cfg.StartURLs), cfg.BatchSize)

	startTime := time.Now()

	// Serializes report output and database writes across goroutines.
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BatchSize)

	for _, startURL := range cfg.StartURLs {
		g.Go(func() error {
			err := crawlTarget(gctx, cfg, client, db, logger, startURL, outDirFor(cfg, startURL, true), &mu)
			if err != nil && !errors.Is(err, context.Canceled) {
				// One failed site must not cancel the remaining crawls.
				logger.Error("crawl failed", "startURL", startURL, "error", err)
				mu.Lock()
				fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", startURL, err)
				mu.Unlock()
				return nil
			}
			return err
		})
	}

	err := g.Wait()
	fmt.Printf("\nBatch crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	return err
}

// outDirFor returns the mirror directory for one start URL.
// A single crawl writes directly into the output directory; multiple
// crawls each get a per-host subdirectory so mirrors never collide.
func outDirFor(cfg *config.Config, startURL string, multi bool) string {
	if !multi {
		return cfg.OutputDir
	}
	return filepath.Join(cfg.OutputDir, hostDirName(startURL))
}

// hostDirName derives a filesystem-safe directory name from a URL's host.
func hostDirName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "site"
	}
	return strings.ReplaceAll(u.Host, ":", "_")
}

// crawlTarget runs one crawl end to end: mirror, audit, report, persist.
// When mu is non-nil, the report and persistence phases take the lock so
// concurrent crawls do not interleave their output.
func crawlTarget(ctx context.Context, cfg *config.Config, client *http.Client, db *database.CrawlDB, logger *slog.Logger, startURL, outDir string, mu *sync.Mutex) error {
	siteCfg := siteConfigFor(cfg, startURL)

	fetcher := crawler.NewFetcher(client, fetcherOptions(cfg, siteCfg)...)
	spider := crawler.NewSpider(fetcher, outDir, spiderOptions(cfg, siteCfg, logger)...)

	if !cfg.Quiet {
		fmt.Printf("Crawling %s -> %s\n", startURL, outDir)
	}
	startTime := time.Now()

	result, err := spider.Crawl(ctx, startURL)
	if err != nil && result == nil {
		return err
	}
	interrupted := err != nil

	if cfg.ExifAudit && result.Summary.ImagesSaved > 0 {
		auditImages(ctx, result, outDir, logger)
	}

	if !cfg.Quiet {
		fmt.Printf("Crawl of %s finished in %s: %d fetched, %d saved, %d images\n",
			startURL,
			time.Since(startTime).Round(time.Millisecond),
			result.Summary.PagesFetched,
			result.Summary.PagesSaved,
			result.Summary.ImagesSaved,
		)
	}

	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}

	if err := outputReport(cfg, result); err != nil {
		logger.Error("report failed", "startURL", startURL, "error", err)
	}
	if err := saveCrawl(ctx, db, result, logger); err != nil {
		logger.Error("failed to save crawl", "startURL", startURL, "error", err)
	}

	if interrupted {
		return err
	}
	return nil
}

// siteConfigFor returns the per-site profile for a start URL's host.
func siteConfigFor(cfg *config.Config, startURL string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}

	u, err := url.Parse(startURL)
	if err != nil || u.Hostname() == "" {
		return cfg.SiteConfigs.Defaults
	}
	return cfg.SiteConfigs.GetSiteConfig(u.Hostname())
}

// fetcherOptions assembles fetcher options from the global config and
// a site profile. Site settings win.
func fetcherOptions(cfg *config.Config, siteCfg config.SiteConfig) []crawler.FetcherOption {
	opts := []crawler.FetcherOption{
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	}
	if siteCfg.UserAgent != "" {
		opts = append(opts, crawler.WithUserAgent(siteCfg.UserAgent))
	}
	if len(siteCfg.Headers) > 0 {
		opts = append(opts, crawler.WithHeaders(siteCfg.Headers))
	}
	if siteCfg.Cookie != "" {
		opts = append(opts, crawler.WithCookie(siteCfg.Cookie))
	}
	return opts
}

// spiderOptions assembles spider options from the global config and a
// site profile. Site settings win for depth and page budget.
func spiderOptions(cfg *config.Config, siteCfg config.SiteConfig, logger *slog.Logger) []crawler.SpiderOption {
	maxDepth := cfg.MaxDepth
	if siteCfg.Depth > 0 {
		maxDepth = siteCfg.Depth
	}
	maxPages := cfg.MaxPages
	if siteCfg.MaxPages > 0 {
		maxPages = siteCfg.MaxPages
	}

	opts := []crawler.SpiderOption{
		crawler.WithMaxDepth(maxDepth),
		crawler.WithMaxPages(maxPages),
		crawler.WithDelay(cfg.Delay),
		crawler.WithSameOriginOnly(cfg.SameOriginOnly),
		crawler.WithDownloadImages(cfg.DownloadImages),
		crawler.WithLogger(logger),
	}
	if !cfg.Quiet {
		opts = append(opts, crawler.WithProgress(os.Stdout))
	}
	if len(siteCfg.IgnorePatterns) > 0 {
		opts = append(opts, crawler.WithIgnorePatterns(siteCfg.IgnorePatterns))
	}
	if len(siteCfg.FollowPatterns) > 0 {
		opts = append(opts, crawler.WithFollowPatterns(siteCfg.FollowPatterns))
	}
	return opts
}

// auditImages runs the EXIF audit over the downloaded images and
// attaches the findings to the result. GPS disclosure is always warned
// about on stderr, even in quiet mode.
func auditImages(ctx context.Context, result *model.CrawlResult, outDir string, logger *slog.Logger) {
	imagesDir := filepath.Join(outDir, crawler.ImagesDirName)

	findings, err := imagemeta.NewAuditor(imagemeta.WithLogger(logger)).AuditDir(ctx, imagesDir)
	if err != nil {
		logger.Warn("image metadata audit incomplete", "dir", imagesDir, "error", err)
	}
	result.Findings = append(result.Findings, findings...)

	if imagemeta.HasGPSFindings(findings) {
		fmt.Fprintf(os.Stderr, "Warning: GPS coordinates found in downloaded images under %s; review before sharing.\n", imagesDir)
	}
}

// outputReport outputs the crawl report in the requested format.
func outputReport(cfg *config.Config, result *model.CrawlResult) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(result)
	return err
}

// saveCrawl saves the crawl result to the database if enabled.
// If db is nil, this function is a no-op.
func saveCrawl(ctx context.Context, db *database.CrawlDB, result *model.CrawlResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// A cancelled crawl is still worth recording; use a fresh context
	// so persistence survives the interrupt that stopped the crawl.
	saveCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	id, err := db.SaveCrawl(saveCtx, result)
	if err != nil {
		return fmt.Errorf("failed to save crawl: %w", err)
	}

	logger.Info("crawl saved to database", "id", id, "startURL", result.StartURL)
	return nil
}
