package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sitesnap/sitesnap/internal/model"
)

// maxManifestRows caps the page manifest table so a large crawl does
// not produce an unreadable report.
const maxManifestRows = 50

// titleCaser turns lowercase label keys into report headings.
var titleCaser = cases.Title(language.English)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the crawl result in Markdown format.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeFailures(md, result)
	w.writeFindings(md, result)
	w.writePages(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Sitesnap Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{titleCaser.String("start URL"), "`" + result.StartURL + "`"},
			{titleCaser.String("output directory"), "`" + result.OutputDir + "`"},
			{titleCaser.String("crawl date"), result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{titleCaser.String("duration"), result.Duration().String()},
			{titleCaser.String("status"), w.getStatusText(result)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on the crawl state.
func (w *MarkdownWriter) getStatusText(result *model.CrawlResult) string {
	if result.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeSummary writes the counters section with a distribution chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{titleCaser.String("pages fetched"), strconv.Itoa(result.Summary.PagesFetched)},
			{titleCaser.String("pages saved"), strconv.Itoa(result.Summary.PagesSaved)},
			{titleCaser.String("images saved"), strconv.Itoa(result.Summary.ImagesSaved)},
			{titleCaser.String("failures"), strconv.Itoa(len(result.Failures))},
		},
	})
	md.PlainText("")

	if result.Summary.PagesSaved > 0 || result.Summary.ImagesSaved > 0 || len(result.Failures) > 0 {
		w.writePieChart(md, result)
	}

	w.writeAlert(md, result)
}

// writePieChart writes a mermaid pie chart of the crawl outcome.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.CrawlResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Crawl Outcome"),
		piechart.WithShowData(true),
	)

	if result.Summary.PagesSaved > 0 {
		chart.LabelAndIntValue("Pages Saved", uint64(result.Summary.PagesSaved))
	}
	if result.Summary.ImagesSaved > 0 {
		chart.LabelAndIntValue("Images Saved", uint64(result.Summary.ImagesSaved))
	}
	if len(result.Failures) > 0 {
		chart.LabelAndIntValue("Failures", uint64(len(result.Failures)))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.CrawlResult) {
	gpsFindings := 0
	for _, f := range result.Findings {
		if strings.HasPrefix(f.Tag, "GPS") {
			gpsFindings++
		}
	}

	switch {
	case gpsFindings > 0:
		md.Cautionf(
			"GPS coordinates found in %d downloaded image(s). Review the metadata findings before sharing this mirror.",
			gpsFindings,
		)
	case len(result.Findings) > 0:
		md.Warningf(
			"%d privacy-relevant metadata tag(s) found in downloaded images.",
			len(result.Findings),
		)
	case result.Interrupted:
		md.Importantf("The crawl was interrupted; the mirror is incomplete.")
	case len(result.Failures) > 0:
		md.Note(fmt.Sprintf("%d fetch(es) failed; see the failures section.", len(result.Failures)))
	default:
		md.Tip("All fetches succeeded.")
	}
	md.PlainText("")
}

// writeFailures writes the fetch failures section.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Failures")
	md.PlainText("")

	if len(result.Failures) == 0 {
		md.PlainText("No fetch failures.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Failures))
	for i, f := range result.Failures {
		status := "-"
		if f.StatusCode != 0 {
			status = strconv.Itoa(f.StatusCode)
		}
		msg := f.Message
		if msg == "" {
			msg = "-"
		}
		rows[i] = []string{
			"`" + truncateString(f.URL, 60) + "`",
			status,
			truncateString(msg, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes the metadata findings section.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Metadata Findings")
	md.PlainText("")

	if len(result.Findings) == 0 {
		md.PlainText("No privacy-relevant metadata found in downloaded images.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Findings))
	for i, f := range result.Findings {
		rows[i] = []string{
			"`" + truncateString(f.File, 40) + "`",
			f.Tag,
			truncateString(f.Value, 40),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"File", "Tag", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range result.Findings {
		if f.Description != "" {
			md.Details(f.Tag+" in "+f.File, f.Description)
		}
	}
	md.PlainText("")
}

// writePages writes the page manifest, truncated for large crawls.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Pages")
	md.PlainText("")

	if len(result.Pages) == 0 {
		md.PlainText("No pages fetched.")
		md.PlainText("")
		return
	}

	limit := len(result.Pages)
	if limit > maxManifestRows {
		limit = maxManifestRows
	}

	rows := make([][]string, 0, limit)
	for _, p := range result.Pages[:limit] {
		local := p.LocalPath
		if local == "" {
			local = "-"
		}
		rows = append(rows, []string{
			"`" + truncateString(p.URL, 60) + "`",
			strconv.Itoa(p.Depth),
			strconv.Itoa(p.StatusCode),
			"`" + truncateString(local, 40) + "`",
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Status", "Local Path"},
		Rows:   rows,
	})

	if len(result.Pages) > limit {
		md.PlainTextf("*…and %d more pages.*", len(result.Pages)-limit)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitesnap](https://github.com/sitesnap/sitesnap)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
