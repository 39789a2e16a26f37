package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// Headers sent when fetching assets straight from the CDN. The origin
// rejects unfamiliar clients, so the chain presents a desktop browser.
const (
	fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0"
	fetchReferer   = "https://utkarshapp.com/"
)

// aria2c invocation settings, tuned for segmented CDN downloads.
const (
	aria2cCommand     = "aria2c"
	aria2cConnections = "8"
	aria2cSplit       = "8"
	aria2cMinSplit    = "5M"
	aria2cMaxTries    = "10"
	aria2cRetryWait   = "3"
	aria2cTimeoutSec  = "60"
)

// downloadTimeout bounds a single backend attempt.
const downloadTimeout = 10 * time.Minute

// httpChunkSize is the copy buffer for the plain HTTP backend.
const httpChunkSize = 64 * 1024

// Backend is one way of materializing a URL into a local file.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Available reports whether the backend can run on this host.
	Available() bool

	// Supports reports whether the backend should be tried for this URL.
	Supports(url string) bool

	// Fetch downloads url into destPath. Backends that see the origin's
	// response headers also return the Content-Type; the others return "".
	Fetch(ctx context.Context, url, destPath string) (contentType string, err error)
}

// isYouTube reports whether the URL points at YouTube, which only the yt-dlp
// backend can fetch.
func isYouTube(url string) bool {
	return strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be")
}

// Aria2cBackend shells out to aria2c for parallel-segmented downloads.
type Aria2cBackend struct{}

// Name implements Backend.
func (b *Aria2cBackend) Name() string { return "aria2c" }

// Available reports whether the aria2c binary is on PATH.
func (b *Aria2cBackend) Available() bool {
	_, err := exec.LookPath(aria2cCommand)
	return err == nil
}

// Supports implements Backend.
func (b *Aria2cBackend) Supports(url string) bool { return !isYouTube(url) }

// Fetch implements Backend.
func (b *Aria2cBackend) Fetch(ctx context.Context, url, destPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	args := []string{
		"--max-connection-per-server=" + aria2cConnections,
		"--split=" + aria2cSplit,
		"--min-split-size=" + aria2cMinSplit,
		"--file-allocation=trunc",
		"--console-log-level=error",
		"--continue=true",
		"--max-tries=" + aria2cMaxTries,
		"--retry-wait=" + aria2cRetryWait,
		"--timeout=" + aria2cTimeoutSec,
		"--disable-ipv6=true",
		"--header=User-Agent: " + fetchUserAgent,
		"--header=Referer: " + fetchReferer,
		"--dir", filepath.Dir(destPath),
		"--out", filepath.Base(destPath),
		url,
	}

	cmd := exec.CommandContext(ctx, aria2cCommand, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("aria2c: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return "", nil
}

// YtdlpBackend drives yt-dlp for anything with an extractor: HLS manifests,
// YouTube embeds, and generic media pages.
type YtdlpBackend struct{}

// Name implements Backend.
func (b *YtdlpBackend) Name() string { return "yt-dlp" }

// Available reports whether the yt-dlp binary is on PATH.
func (b *YtdlpBackend) Available() bool {
	_, err := exec.LookPath("yt-dlp")
	return err == nil
}

// Supports implements Backend.
func (b *YtdlpBackend) Supports(string) bool { return true }

// Fetch implements Backend.
func (b *YtdlpBackend) Fetch(ctx context.Context, url, destPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	dl := ytdlp.New().
		ForceOverwrites().
		Format("best[ext=mp4]/best").
		Output(destPath)

	if _, err := dl.Run(ctx, url); err != nil {
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	return "", nil
}

// HTTPBackend is the last resort: a plain streamed GET written chunk by
// chunk to the destination file.
type HTTPBackend struct {
	client *http.Client
}

// NewHTTPBackend creates the backend with a download-scale timeout.
func NewHTTPBackend() *HTTPBackend {
	return &HTTPBackend{client: &http.Client{Timeout: downloadTimeout}}
}

// Name implements Backend.
func (b *HTTPBackend) Name() string { return "http" }

// Available implements Backend.
func (b *HTTPBackend) Available() bool { return true }

// Supports implements Backend.
func (b *HTTPBackend) Supports(url string) bool { return !isYouTube(url) }

// Fetch implements Backend. The response Content-Type is passed back so the
// caller can refine the media classification of extension-less URLs.
func (b *HTTPBackend) Fetch(ctx context.Context, url, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Referer", fetchReferer)
	req.Header.Set("Accept", "*/*")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http get: status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")

	f, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, httpChunkSize)
	if _, err := io.CopyBuffer(f, resp.Body, buf); err != nil {
		return "", fmt.Errorf("http copy: %w", err)
	}
	return contentType, nil
}
