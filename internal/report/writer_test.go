package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sitesnap/sitesnap/internal/model"
)

// createTestResult creates a crawl result with sample data for testing.
func createTestResult() *model.CrawlResult {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	result := &model.CrawlResult{
		StartURL:   "https://example.com/",
		OutputDir:  "site_mirror",
		StartedAt:  started,
		FinishedAt: started.Add(5 * time.Second),
		Summary: model.Summary{
			PagesFetched: 3,
			PagesSaved:   2,
			ImagesSaved:  1,
		},
		Pages: []model.PageRecord{
			{URL: "https://example.com/", Depth: 0, StatusCode: 200, ContentType: "text/html", LocalPath: "index.html", Size: 512, FetchedAt: started},
			{URL: "https://example.com/about", Depth: 1, StatusCode: 200, ContentType: "text/html", LocalPath: "about.html", Size: 256, FetchedAt: started},
			{URL: "https://example.com/gone", Depth: 1, StatusCode: 404, FetchedAt: started},
		},
		Images: []model.ImageRecord{
			{URL: "https://example.com/logo.png", Filename: "logo_deadbeef.png", Size: 1024, FetchedAt: started},
		},
		Failures: []model.FetchFailure{
			{URL: "https://example.com/gone", StatusCode: 404},
		},
	}
	return result
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SITESNAP CRAWL REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "https://example.com/") {
			t.Error("expected output to contain start URL")
		}
	})

	t.Run("writes crawl counters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Pages fetched: 3") {
			t.Error("expected pages fetched counter")
		}
		if !strings.Contains(output, "Pages saved:   2") {
			t.Error("expected pages saved counter")
		}
		if !strings.Contains(output, "Images saved:  1") {
			t.Error("expected images saved counter")
		}
	})

	t.Run("writes failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "FAILURES") {
			t.Error("expected failures section")
		}
		if !strings.Contains(output, "[404] https://example.com/gone") {
			t.Error("expected 404 failure line")
		}
	})

	t.Run("hides empty sections by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		result := createTestResult()
		result.Failures = nil

		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(buf.String(), "FAILURES") {
			t.Error("expected failures section to be hidden")
		}
	})

	t.Run("shows empty sections with ShowEmpty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowEmpty(true))
		result := createTestResult()
		result.Failures = nil

		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "FAILURES") {
			t.Error("expected failures section")
		}
		if !strings.Contains(output, "No failures") {
			t.Error("expected empty failures placeholder")
		}
	})

	t.Run("writes metadata findings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		result := createTestResult()
		result.Findings = []model.Finding{
			{File: "images/photo_cafebabe.jpg", Tag: "GPSLatitude", Value: "35.6586", Description: "Embedded GPS coordinates reveal the capture location"},
		}

		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "METADATA FINDINGS") {
			t.Error("expected findings section")
		}
		if !strings.Contains(output, "GPSLatitude: 35.6586") {
			t.Error("expected finding line")
		}
	})

	t.Run("verbose includes page manifest", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "PAGES") {
			t.Error("expected pages section in verbose mode")
		}
		if !strings.Contains(output, "about.html") {
			t.Error("expected saved page path")
		}
	})

	t.Run("reports interrupted crawls", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		result := createTestResult()
		result.Interrupted = true

		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "INTERRUPTED") {
			t.Error("expected interrupted status")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.CrawlResult
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.StartURL != "https://example.com/" {
			t.Errorf("expected start URL in JSON, got %q", decoded.StartURL)
		}
		if decoded.Summary.PagesFetched != 3 {
			t.Errorf("expected 3 pages fetched, got %d", decoded.Summary.PagesFetched)
		}
	})

	t.Run("compact output has no indentation", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(strings.TrimRight(buf.String(), "\n"), "\n") {
			t.Error("expected compact single-line output")
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewFullJSONWriter(&buf, "1.2.3")

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var wrapped JSONReport
		if err := json.Unmarshal(buf.Bytes(), &wrapped); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if wrapped.Version != "1.2.3" {
			t.Errorf("expected version 1.2.3, got %q", wrapped.Version)
		}
		if wrapped.Result == nil || wrapped.Result.StartURL != "https://example.com/" {
			t.Error("expected wrapped crawl result")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and summary tables", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Sitesnap Crawl Report") {
			t.Error("expected H1 header")
		}
		if !strings.Contains(output, "## Summary") {
			t.Error("expected summary section")
		}
		if !strings.Contains(output, "Pages Fetched") {
			t.Error("expected title-cased counter label")
		}
		if !strings.Contains(output, "`https://example.com/`") {
			t.Error("expected start URL in code span")
		}
	})

	t.Run("includes outcome pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid code block")
		}
		if !strings.Contains(output, "pie") {
			t.Error("expected pie chart")
		}
	})

	t.Run("writes failures table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Failures") {
			t.Error("expected failures section")
		}
		if !strings.Contains(output, "404") {
			t.Error("expected 404 in failures table")
		}
	})

	t.Run("gps finding produces caution alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		result := createTestResult()
		result.Findings = []model.Finding{
			{File: "images/photo_cafebabe.jpg", Tag: "GPSLatitude", Value: "35.6586"},
		}

		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected caution alert for GPS finding")
		}
		if !strings.Contains(output, "GPSLatitude") {
			t.Error("expected finding tag in table")
		}
	})

	t.Run("clean crawl produces tip alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		result := createTestResult()
		result.Failures = nil

		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Error("expected tip alert for clean crawl")
		}
	})

	t.Run("truncates long page manifests", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		result := createTestResult()
		result.Pages = nil
		for i := 0; i < maxManifestRows+10; i++ {
			result.Pages = append(result.Pages, model.PageRecord{
				URL:        "https://example.com/p",
				StatusCode: 200,
			})
		}

		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "10 more pages") {
			t.Error("expected truncation note")
		}
	})
}

// TestMultiWriter tests fan-out to multiple writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))

		if _, err := mw.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if a.Len() == 0 {
			t.Error("expected simple output")
		}
		if b.Len() == 0 {
			t.Error("expected JSON output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(failingWriter{}), NewSimpleWriter(&after))

		if _, err := mw.Write(createTestResult()); err == nil {
			t.Fatal("expected error from failing writer")
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped after error")
		}
	})
}

// failingWriter always fails, for MultiWriter error path tests.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

// TestTruncateString tests the truncation helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"shorter than limit", "short", 10, "short"},
		{"exactly at limit", "exact", 5, "exact"},
		{"over the limit", "this is a long string", 10, "this is..."},
		{"tiny limit", "abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
