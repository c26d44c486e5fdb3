package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sitesnap/sitesnap/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl results.
// It manages connection pooling and provides methods for saving and
// querying past crawls.
//
// Design decision: We use a single database file for all crawls rather
// than one file per site. This keeps the history command a single query
// and simplifies backup/restore operations.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "sitesnap.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY contention between the batch crawls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per completed crawl invocation
	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		pages_fetched INTEGER NOT NULL,
		pages_saved INTEGER NOT NULL,
		images_saved INTEGER NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_start_url ON crawls(start_url);
	CREATE INDEX IF NOT EXISTS idx_crawls_started_at ON crawls(started_at);

	-- Page manifest: every page that produced an HTTP response
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id INTEGER NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		local_path TEXT,
		size INTEGER,
		hash TEXT,
		fetched_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_pages_crawl ON pages(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	-- Image manifest: every image written to disk
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id INTEGER NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		filename TEXT NOT NULL,
		size INTEGER,
		fetched_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_images_crawl ON images(crawl_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawl stores a complete crawl result and its manifests.
// The crawl row, page rows, and image rows are written in a single
// transaction so history never shows a half-saved crawl.
// Returns the database ID of the new crawl row.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, result *model.CrawlResult) (int64, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize crawl result: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawls (start_url, output_dir, started_at, finished_at,
		pages_fetched, pages_saved, images_saved, interrupted, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.StartURL,
		result.OutputDir,
		result.StartedAt.UTC().Format(time.RFC3339),
		result.FinishedAt.UTC().Format(time.RFC3339),
		result.Summary.PagesFetched,
		result.Summary.PagesSaved,
		result.Summary.ImagesSaved,
		result.Interrupted,
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl: %w", err)
	}

	crawlID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get crawl id: %w", err)
	}

	for _, p := range result.Pages {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO pages (crawl_id, url, depth, status_code, content_type, local_path, size, hash, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			crawlID, p.URL, p.Depth, p.StatusCode, p.ContentType,
			p.LocalPath, p.Size, p.Hash, p.FetchedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return 0, fmt.Errorf("failed to insert page record: %w", err)
		}
	}

	for _, img := range result.Images {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO images (crawl_id, url, filename, size, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		`,
			crawlID, img.URL, img.Filename, img.Size,
			img.FetchedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return 0, fmt.Errorf("failed to insert image record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl: %w", err)
	}
	return crawlID, nil
}

// GetCrawl retrieves a full crawl result by its database ID.
// Returns nil without error when the ID does not exist.
func (cdb *CrawlDB) GetCrawl(ctx context.Context, id int64) (*model.CrawlResult, error) {
	var resultJSON string
	err := cdb.db.QueryRowContext(ctx,
		`SELECT result_json FROM crawls WHERE id = ?`, id,
	).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}

	var result model.CrawlResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse crawl result: %w", err)
	}
	return &result, nil
}

// GetLatestCrawl retrieves the most recent crawl for a start URL.
// Returns nil without error when no crawl exists for that URL.
func (cdb *CrawlDB) GetLatestCrawl(ctx context.Context, startURL string) (*model.CrawlResult, error) {
	var resultJSON string
	err := cdb.db.QueryRowContext(ctx, `
	SELECT result_json FROM crawls
	WHERE start_url = ?
	ORDER BY started_at DESC
	LIMIT 1
	`, startURL).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest crawl: %w", err)
	}

	var result model.CrawlResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse crawl result: %w", err)
	}
	return &result, nil
}

// CrawlMetadata contains summary information about a stored crawl.
// This is used for displaying history without loading the full result.
type CrawlMetadata struct {
	// ID is the unique identifier of the crawl in the database.
	ID int64

	// StartURL is the URL the crawl began from.
	StartURL string

	// OutputDir is where the mirror was written.
	OutputDir string

	// StartedAt is when the crawl began.
	StartedAt time.Time

	// FinishedAt is when the crawl completed.
	FinishedAt time.Time

	// PagesFetched, PagesSaved, and ImagesSaved are the crawl counters.
	PagesFetched int
	PagesSaved   int
	ImagesSaved  int

	// Interrupted is true when the crawl was cancelled before finishing.
	Interrupted bool
}

// ListCrawls retrieves metadata for stored crawls, most recent first.
// When startURL is non-empty only crawls of that URL are returned.
// This is more efficient than loading full results when only the
// summary line is needed.
func (cdb *CrawlDB) ListCrawls(ctx context.Context, startURL string) ([]CrawlMetadata, error) {
	query := `
	SELECT id, start_url, output_dir, started_at, finished_at,
		pages_fetched, pages_saved, images_saved, interrupted
	FROM crawls
	`
	args := make([]interface{}, 0, 1)
	if startURL != "" {
		query += " WHERE start_url = ?"
		args = append(args, startURL)
	}
	query += " ORDER BY started_at DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	defer rows.Close()

	var results []CrawlMetadata
	for rows.Next() {
		var meta CrawlMetadata
		var startedAt, finishedAt string

		if err := rows.Scan(
			&meta.ID,
			&meta.StartURL,
			&meta.OutputDir,
			&startedAt,
			&finishedAt,
			&meta.PagesFetched,
			&meta.PagesSaved,
			&meta.ImagesSaved,
			&meta.Interrupted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan crawl metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListCrawledSites returns the distinct start URLs that have stored crawls.
func (cdb *CrawlDB) ListCrawledSites(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx,
		`SELECT DISTINCT start_url FROM crawls ORDER BY start_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// PageHistory retrieves the stored page records for a URL across all
// crawls, most recent first. The hash column lets callers detect when
// a page changed between mirrors.
func (cdb *CrawlDB) PageHistory(ctx context.Context, pageURL string) ([]model.PageRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, depth, status_code, content_type, local_path, size, hash, fetched_at
	FROM pages
	WHERE url = ?
	ORDER BY fetched_at DESC
	`, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get page history: %w", err)
	}
	defer rows.Close()

	var records []model.PageRecord
	for rows.Next() {
		var p model.PageRecord
		var fetchedAt string

		if err := rows.Scan(
			&p.URL, &p.Depth, &p.StatusCode, &p.ContentType,
			&p.LocalPath, &p.Size, &p.Hash, &fetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page record: %w", err)
		}

		p.FetchedAt = parseTimestamp(fetchedAt)
		records = append(records, p)
	}

	return records, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339,              // How SaveCrawl writes timestamps
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	return time.Time{}
}
