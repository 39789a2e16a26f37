package extract

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ytget/coursegrab/internal/model"
)

// Manifest layout constants.
const (
	manifestFilePattern = "Batch_%s.txt"
	courseRule          = "================================================================================"
)

// Manifest is the durable record of an extraction: one `title:url` line per
// resolved asset, with a section header per course. Resolver workers append
// concurrently, so every write goes through the mutex.
type Manifest struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewManifest creates the manifest file for a batch inside dir.
func NewManifest(dir, batchID string) (*Manifest, error) {
	path := filepath.Join(dir, fmt.Sprintf(manifestFilePattern, batchID))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}
	return &Manifest{f: f, path: path}, nil
}

// Path returns the manifest file location.
func (m *Manifest) Path() string {
	return m.path
}

// StartCourse writes a course section header.
func (m *Manifest) StartCourse(title, id, info string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := fmt.Fprintf(m.f, "\n%s\nCourse: %s (ID: %s)\nInfo: %s\n%s\n\n",
		courseRule, title, id, info, courseRule)
	return err
}

// AddEntry appends one resolved asset line.
func (m *Manifest) AddEntry(title, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := fmt.Fprintf(m.f, "%s:%s\n", title, url); err != nil {
		return err
	}
	return m.f.Sync()
}

// Close finishes the manifest file.
func (m *Manifest) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.Close()
}

// ParseManifest reads a manifest back into asset records, skipping section
// decoration. Lines are either `title:url` or a bare URL; anything else is
// ignored. This is the intake path for manifests handed off independently of
// the extraction that produced them.
func ParseManifest(r io.Reader) []model.AssetRecord {
	var records []model.AssetRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" ||
			strings.HasPrefix(line, "=") ||
			strings.HasPrefix(line, "Course:") ||
			strings.HasPrefix(line, "Info:") {
			continue
		}

		var title, url string
		if idx := strings.Index(line, ":http"); idx >= 0 {
			title = strings.TrimSpace(line[:idx])
			url = strings.TrimSpace(line[idx+1:])
		} else if strings.HasPrefix(line, "http") {
			url = line
			title = titleFromURL(line)
		} else {
			continue
		}

		if !strings.HasPrefix(url, "http") {
			continue
		}
		records = append(records, model.NewAssetRecord(title, url))
	}
	return records
}

// titleFromURL derives a display title from a bare URL line.
func titleFromURL(rawURL string) string {
	trimmed := rawURL
	if idx := strings.IndexByte(trimmed, '?'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	base := filepath.Base(trimmed)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" || base == "." || base == "/" {
		return "file"
	}
	return base
}
