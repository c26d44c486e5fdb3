package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitesnap/sitesnap/internal/config"
	"github.com/sitesnap/sitesnap/internal/database"
)

// NewHistoryCmd creates the history command.
// This command lists past crawls recorded in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [start-url]",
		Short: "List past crawls recorded in the database",
		Long: `History lists crawls recorded in the local database.

Without arguments it lists every recorded crawl, most recent first.
With a start URL it lists only the crawls of that site. The page flag
shows the stored versions of a single page across all crawls, with the
content hash so changes between mirrors are visible.

Examples:
  # List all recorded crawls
  sitesnap history

  # List crawls of one site
  sitesnap history https://example.com/

  # List all crawled sites
  sitesnap history --sites

  # Show the stored versions of one page
  sitesnap history --page https://example.com/docs/intro`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("sites", "s", false,
		"List all crawled sites in the database")
	cmd.Flags().StringP("page", "p", "",
		"Show the stored versions of the given page URL")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSites, err := cmd.Flags().GetBool("sites")
	if err != nil {
		return err
	}
	pageURL, err := cmd.Flags().GetString("page")
	if err != nil {
		return err
	}

	dbDir := config.XDGDataDir()

	// History never creates the database: an empty history is a normal
	// state, not an error worth a stack of SQL setup.
	if _, err := os.Stat(filepath.Join(dbDir, "sitesnap.db")); errors.Is(err, os.ErrNotExist) {
		fmt.Println("No crawl history found.")
		fmt.Println("\nUse 'sitesnap crawl <url>' to mirror a site; crawls are recorded automatically.")
		return nil
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listSites {
		return listCrawledSites(ctx, db)
	}
	if pageURL != "" {
		return listPageHistory(ctx, db, pageURL)
	}

	startURL := ""
	if len(args) > 0 {
		startURL = args[0]
	}
	return listCrawlHistory(ctx, db, startURL)
}

// listCrawledSites lists all sites that have crawl records in the database.
func listCrawledSites(ctx context.Context, db *database.CrawlDB) error {
	sites, err := db.ListCrawledSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Println("No crawled sites found in the database.")
		fmt.Println("\nUse 'sitesnap crawl <url>' to mirror a site.")
		return nil
	}

	fmt.Printf("Crawled sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Printf("  • %s\n", site)
	}
	fmt.Println("\nUse 'sitesnap history <url>' to see the crawls of a site.")

	return nil
}

// listCrawlHistory lists stored crawls, optionally filtered to one site.
func listCrawlHistory(ctx context.Context, db *database.CrawlDB, startURL string) error {
	crawls, err := db.ListCrawls(ctx, startURL)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(crawls) == 0 {
		if startURL != "" {
			fmt.Printf("No crawl history found for %s\n", startURL)
		} else {
			fmt.Println("No crawl history found.")
		}
		fmt.Println("\nUse 'sitesnap crawl <url>' to mirror a site.")
		return nil
	}

	if startURL != "" {
		fmt.Printf("Crawl history for %s (%d crawls):\n\n", startURL, len(crawls))
	} else {
		fmt.Printf("Crawl history (%d crawls):\n\n", len(crawls))
	}

	fmt.Printf("  %-6s  %-20s  %-8s  %-8s  %-8s  %s\n",
		"ID", "Date", "Fetched", "Saved", "Images", "Start URL")
	fmt.Println("  " + strings.Repeat("-", 90))

	for _, meta := range crawls {
		marker := ""
		if meta.Interrupted {
			marker = " (interrupted)"
		}
		fmt.Printf("  %-6d  %-20s  %-8d  %-8d  %-8d  %s%s\n",
			meta.ID,
			meta.StartedAt.Format("2006-01-02 15:04:05"),
			meta.PagesFetched,
			meta.PagesSaved,
			meta.ImagesSaved,
			meta.StartURL,
			marker,
		)
	}

	fmt.Println("\nUse 'sitesnap history --page <url>' to see the stored versions of a page.")

	return nil
}

// listPageHistory shows the stored versions of one page across all crawls.
func listPageHistory(ctx context.Context, db *database.CrawlDB, pageURL string) error {
	records, err := db.PageHistory(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("failed to get page history: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No stored versions found for %s\n", pageURL)
		return nil
	}

	fmt.Printf("Stored versions of %s (%d):\n\n", pageURL, len(records))
	fmt.Printf("  %-20s  %-6s  %-10s  %-16s  %s\n",
		"Date", "Status", "Size", "Hash", "Local Path")
	fmt.Println("  " + strings.Repeat("-", 80))

	for _, rec := range records {
		fmt.Printf("  %-20s  %-6d  %-10d  %-16s  %s\n",
			rec.FetchedAt.Format("2006-01-02 15:04:05"),
			rec.StatusCode,
			rec.Size,
			shortHash(rec.Hash),
			rec.LocalPath,
		)
	}

	return nil
}

// shortHash truncates a content hash for table display.
func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
