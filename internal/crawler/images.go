package crawler

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sitesnap/sitesnap/internal/model"
)

// ImagesDirName is the subdirectory of the output directory that
// downloaded images are written to.
const ImagesDirName = "images"

// imageExtensions are extensions accepted as images when the server
// omits or misreports the Content-Type header.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".ico":  true,
	".bmp":  true,
	".avif": true,
	".tif":  true,
	".tiff": true,
}

// fetchImages downloads the accumulated image URLs into the images
// subdirectory. URLs arrive already deduplicated by normalized form;
// a second dedup by derived filename prevents two different URLs that
// map to the same file from both writing it.
func (s *Spider) fetchImages(ctx context.Context, urls []string, result *model.CrawlResult) {
	dir := filepath.Join(s.outDir, ImagesDirName)
	if err := os.MkdirAll(dir, 0750); err != nil {
		s.logger.Warn("create images directory failed", "dir", dir, "error", err)
		return
	}

	claimed := make(map[string]bool, len(urls))
	for _, imgURL := range urls {
		if ctx.Err() != nil {
			return
		}

		filename := ImageFilenameFor(imgURL)
		if claimed[filename] {
			continue
		}
		claimed[filename] = true

		dest := filepath.Join(dir, filename)
		if _, err := os.Stat(dest); err == nil {
			// Already on disk from this or a previous run.
			continue
		}

		size, err := s.fetchImage(ctx, imgURL, dest)
		switch {
		case err != nil:
			fmt.Fprintf(s.progress, "  [ERR] %s: %v\n", imgURL, err)
			s.logger.Debug("image fetch failed", "url", imgURL, "error", err)
			result.AddFailure(imgURL, 0, err.Error())
		case size >= 0:
			result.Summary.ImagesSaved++
			result.AddImage(model.ImageRecord{
				URL:       imgURL,
				Filename:  filename,
				Size:      size,
				FetchedAt: time.Now(),
			})
			fmt.Fprintf(s.progress, "  [img] %s -> %s/%s\n", imgURL, ImagesDirName, filename)
		}

		s.sleep(ctx)
	}
}

// fetchImage downloads one image, streaming the body to dest. It
// returns the number of bytes written, or -1 when the response was
// skipped without error (HTTP error status, or a response that is
// neither image/* nor has a recognized image extension).
func (s *Spider) fetchImage(ctx context.Context, imgURL, dest string) (int64, error) {
	resp, err := s.fetcher.Do(ctx, imgURL)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return -1, nil
	}
	if !looksLikeImage(resp.Header.Get("Content-Type"), imgURL) {
		return -1, nil
	}

	f, err := os.Create(dest)
	if err != nil {
		return -1, err
	}

	n, err := io.Copy(f, io.LimitReader(resp.Body, s.fetcher.MaxBodySize()))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Remove the partial file so a later run retries it.
		_ = os.Remove(dest)
		return -1, err
	}
	return n, nil
}

// looksLikeImage accepts image/* content types, falling back to the URL
// extension when the server omits or misreports the header.
func looksLikeImage(contentType, imgURL string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return true
	}
	u, err := url.Parse(imgURL)
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}
