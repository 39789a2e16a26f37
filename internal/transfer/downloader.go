package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ytget/coursegrab/internal/logger"
)

// MinValidFileSize is the smallest download accepted as real content.
// Anything below this is an error page or an empty segment.
const MinValidFileSize = 1000

// ErrAllBackendsFailed is returned when every backend in the chain has been
// tried and none produced a valid file.
var ErrAllBackendsFailed = errors.New("all download backends failed")

// Downloader runs a URL through an ordered backend chain and keeps the first
// result that looks like real content.
type Downloader struct {
	backends []Backend
	log      *logger.Logger
}

// NewDownloader builds the default chain: aria2c, then yt-dlp, then a plain
// HTTP fetch.
func NewDownloader(log *logger.Logger) *Downloader {
	return &Downloader{
		backends: []Backend{
			&Aria2cBackend{},
			&YtdlpBackend{},
			NewHTTPBackend(),
		},
		log: log,
	}
}

// NewDownloaderWithBackends builds a downloader over an explicit chain.
func NewDownloaderWithBackends(log *logger.Logger, backends ...Backend) *Downloader {
	return &Downloader{backends: backends, log: log}
}

// Download fetches url into destPath, trying each backend in order. A backend
// is skipped when it is unavailable or does not support the URL. An attempt
// counts as success only when the resulting file reaches MinValidFileSize;
// smaller partials are removed before the next backend runs. The returned
// content type is whatever the winning backend observed, "" when unknown.
func (d *Downloader) Download(ctx context.Context, url, destPath string) (string, error) {
	var lastErr error

	for _, b := range d.backends {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !b.Supports(url) || !b.Available() {
			continue
		}

		d.log.Debug("download attempt", "backend", b.Name(), "url", url)
		contentType, err := b.Fetch(ctx, url, destPath)
		if err != nil {
			lastErr = err
			d.log.Warn("backend failed", "backend", b.Name(), "error", err)
			removeIfExists(destPath)
			continue
		}

		info, err := os.Stat(destPath)
		if err != nil {
			lastErr = err
			continue
		}
		if info.Size() < MinValidFileSize {
			lastErr = fmt.Errorf("%s: file too small (%d bytes)", b.Name(), info.Size())
			d.log.Warn("backend produced undersized file", "backend", b.Name(), "size", info.Size())
			removeIfExists(destPath)
			continue
		}

		d.log.Debug("download complete", "backend", b.Name(), "size", info.Size())
		return contentType, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
	}
	return "", ErrAllBackendsFailed
}

func removeIfExists(path string) {
	if _, err := os.Stat(path); err == nil {
		os.Remove(path)
	}
}
