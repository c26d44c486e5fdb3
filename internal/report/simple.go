package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sitesnap/sitesnap/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables the full page manifest in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with the full page manifest.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl result in human-readable format.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, result)
	w.writeFailures(&sb, result)
	w.writeFindings(&sb, result)
	if w.verbose {
		w.writePages(&sb, result)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SITESNAP CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Start URL:   %s\n", result.StartURL))
	sb.WriteString(fmt.Sprintf("Output Dir:  %s\n", result.OutputDir))
	sb.WriteString(fmt.Sprintf("Crawl Date:  %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", result.Duration().Round(time.Millisecond)))

	if result.Interrupted {
		sb.WriteString("Status:      INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:      Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the crawl counters section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Pages fetched: %d\n", result.Summary.PagesFetched))
	sb.WriteString(fmt.Sprintf("  Pages saved:   %d\n", result.Summary.PagesSaved))
	sb.WriteString(fmt.Sprintf("  Images saved:  %d\n", result.Summary.ImagesSaved))
	sb.WriteString(fmt.Sprintf("  Failures:      %d\n", len(result.Failures)))
	sb.WriteString("\n")
}

// writeFailures writes the fetch failures section.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, result *model.CrawlResult) {
	if len(result.Failures) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(result.Failures) == 0 {
		sb.WriteString("  No failures\n")
	} else {
		for _, f := range result.Failures {
			if f.StatusCode != 0 {
				sb.WriteString(fmt.Sprintf("  [%d] %s\n", f.StatusCode, f.URL))
			} else {
				sb.WriteString(fmt.Sprintf("  [ERR] %s: %s\n", f.URL, f.Message))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFindings writes the metadata findings section.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, result *model.CrawlResult) {
	if len(result.Findings) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("METADATA FINDINGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(result.Findings) == 0 {
		sb.WriteString("  No metadata findings\n")
	} else {
		for _, f := range result.Findings {
			sb.WriteString(fmt.Sprintf("  * %s\n", f.File))
			sb.WriteString(fmt.Sprintf("    %s: %s\n", f.Tag, f.Value))
			if w.verbose && f.Description != "" {
				sb.WriteString(fmt.Sprintf("    Note: %s\n", f.Description))
			}
		}
	}
	sb.WriteString("\n")
}

// writePages writes the full page manifest.
func (w *SimpleWriter) writePages(sb *strings.Builder, result *model.CrawlResult) {
	if len(result.Pages) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, p := range result.Pages {
		if p.LocalPath != "" {
			sb.WriteString(fmt.Sprintf("  [%d] depth=%d %s -> %s\n", p.StatusCode, p.Depth, p.URL, p.LocalPath))
		} else {
			sb.WriteString(fmt.Sprintf("  [%d] depth=%d %s (not saved)\n", p.StatusCode, p.Depth, p.URL))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitesnap\n")
	sb.WriteString("https://github.com/sitesnap/sitesnap\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
