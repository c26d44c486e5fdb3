package imagemeta

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/sitesnap/sitesnap/internal/model"
)

// candidatePattern matches filenames of formats that can carry EXIF
// metadata. PNG, GIF, and SVG files are skipped without opening them.
var candidatePattern = regexp.MustCompile(`(?i)\.(jpe?g|tiff?|heic)$`)

// Auditor scans image files for privacy-sensitive EXIF metadata.
//
// This auditor checks for:
//   - GPS coordinates (location disclosure)
//   - Camera make/model/serial (device identification)
//   - Software information (editing software, OS)
//   - Timestamps (timezone inference)
//   - Author/copyright information (identity disclosure)
type Auditor struct {
	logger *slog.Logger
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithLogger sets the structured logger used for debug output.
func WithLogger(logger *slog.Logger) AuditorOption {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuditor creates an Auditor.
func NewAuditor(opts ...AuditorOption) *Auditor {
	a := &Auditor{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuditDir walks dir and audits every EXIF-capable image beneath it.
// File paths in the returned findings are relative to dir. Unreadable
// or EXIF-less files are skipped, not reported: the audit flags what
// metadata IS present, absence is the desired state.
func (a *Auditor) AuditDir(ctx context.Context, dir string) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !candidatePattern.MatchString(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = d.Name()
		}

		findings = append(findings, a.auditFile(path, filepath.ToSlash(rel))...)
		return nil
	})
	if err != nil {
		return findings, err
	}

	return findings, nil
}

// auditFile extracts EXIF data from one file and classifies its tags.
func (a *Auditor) auditFile(path, relPath string) []model.Finding {
	rawExif, err := exif.SearchFileAndExtractExif(path)
	if err != nil || rawExif == nil {
		// Most images have no EXIF segment at all; that is the common
		// and harmless case.
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		a.logger.Debug("unparseable EXIF segment", "file", relPath, "error", err)
		return nil
	}

	findings := make([]model.Finding, 0)
	for _, entry := range entries {
		if desc := classifyTag(entry.TagName); desc != "" {
			findings = append(findings, model.Finding{
				File:        relPath,
				Tag:         entry.TagName,
				Value:       entry.Formatted,
				Description: desc,
			})
		}
	}

	return findings
}

// classifyTag returns a description of what a privacy-relevant EXIF tag
// reveals, or "" for tags that are not worth reporting.
func classifyTag(tagName string) string {
	switch tagName {
	case "GPSLatitude", "GPSLongitude", "GPSLatitudeRef", "GPSLongitudeRef", "GPSAltitude":
		return "GPS coordinates reveal the location where the image was taken."

	case "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
		return "A device serial number is a unique identifier that can track the device across photos."

	case "Artist", "Author", "Copyright", "XPAuthor":
		return "Author or copyright information can identify the creator."

	case "Make", "Model":
		return "Camera make/model information can help identify the device used."

	case "HostComputer":
		return "The name of the computer used to process the image."

	case "Software", "ProcessingSoftware":
		return "Software information reveals editing tools or the operating system used."

	case "DateTimeOriginal", "DateTimeDigitized", "DateTime":
		return "Timestamps can help determine timezone and activity patterns."
	}
	return ""
}

// HasGPSFindings reports whether any finding carries a GPS tag.
// GPS disclosure is the one class serious enough for the CLI to warn
// about on stderr even in quiet mode.
func HasGPSFindings(findings []model.Finding) bool {
	for _, f := range findings {
		if strings.HasPrefix(f.Tag, "GPS") {
			return true
		}
	}
	return false
}
