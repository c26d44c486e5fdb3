package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sitesnap/sitesnap/internal/database"
	"github.com/sitesnap/sitesnap/internal/model"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history [start-url]" {
			t.Errorf("expected use 'history [start-url]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has sites flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("sites")
		if flag == nil {
			t.Fatal("expected sites flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("has page flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("page")
		if flag == nil {
			t.Fatal("expected page flag")
		}
		if flag.Shorthand != "p" {
			t.Errorf("expected shorthand 'p', got %q", flag.Shorthand)
		}
	})
}

// historyTestDB creates a database with one stored crawl for listing tests.
func historyTestDB(t *testing.T) *database.CrawlDB {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	result := model.NewCrawlResult("https://example.com/", "mirror")
	result.Summary = model.Summary{PagesFetched: 3, PagesSaved: 2, ImagesSaved: 1}
	result.Pages = []model.PageRecord{
		{
			URL:         "https://example.com/",
			StatusCode:  200,
			ContentType: "text/html",
			LocalPath:   "index.html",
			Size:        512,
			Hash:        "deadbeefdeadbeefdeadbeef",
			FetchedAt:   time.Now(),
		},
	}
	result.FinishedAt = time.Now()

	if _, err := db.SaveCrawl(context.Background(), result); err != nil {
		t.Fatalf("failed to save crawl: %v", err)
	}
	return db
}

// captureStdout runs fn while capturing everything written to stdout.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = oldStdout

	if fnErr != nil {
		t.Fatalf("unexpected error: %v", fnErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	return buf.String()
}

// TestListCrawlHistory tests the crawl history listing.
func TestListCrawlHistory(t *testing.T) {
	db := historyTestDB(t)
	ctx := context.Background()

	t.Run("lists all crawls", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listCrawlHistory(ctx, db, "")
		})
		if !strings.Contains(output, "https://example.com/") {
			t.Errorf("expected start URL in output, got %q", output)
		}
		if !strings.Contains(output, "1 crawls") {
			t.Errorf("expected crawl count in output, got %q", output)
		}
	})

	t.Run("filters by start URL", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listCrawlHistory(ctx, db, "https://other.example/")
		})
		if !strings.Contains(output, "No crawl history found") {
			t.Errorf("expected no-history message, got %q", output)
		}
	})
}

// TestListCrawledSites tests the site listing.
func TestListCrawledSites(t *testing.T) {
	db := historyTestDB(t)

	output := captureStdout(t, func() error {
		return listCrawledSites(context.Background(), db)
	})
	if !strings.Contains(output, "https://example.com/") {
		t.Errorf("expected site in output, got %q", output)
	}
}

// TestListPageHistory tests the page version listing.
func TestListPageHistory(t *testing.T) {
	db := historyTestDB(t)
	ctx := context.Background()

	t.Run("lists stored versions", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listPageHistory(ctx, db, "https://example.com/")
		})
		if !strings.Contains(output, "index.html") {
			t.Errorf("expected local path in output, got %q", output)
		}
		if !strings.Contains(output, "deadbeefdeadbeef") {
			t.Errorf("expected truncated hash in output, got %q", output)
		}
	})

	t.Run("reports unknown page", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listPageHistory(ctx, db, "https://example.com/missing")
		})
		if !strings.Contains(output, "No stored versions found") {
			t.Errorf("expected no-versions message, got %q", output)
		}
	})
}

// TestShortHash tests hash truncation for table display.
func TestShortHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "long hash truncated", in: "0123456789abcdef0123456789abcdef", want: "0123456789abcdef"},
		{name: "short hash unchanged", in: "abc123", want: "abc123"},
		{name: "empty hash", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := shortHash(tt.in); got != tt.want {
				t.Errorf("shortHash(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
