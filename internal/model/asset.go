package model

import (
	"path"
	"strings"
)

// MediaKind is the closed classification of a transferable asset. It is
// produced once per record and drives upload method selection.
type MediaKind string

const (
	// KindVideo is streamable video content
	KindVideo MediaKind = "video"

	// KindPDF is a PDF document
	KindPDF MediaKind = "pdf"

	// KindPhoto is a still image
	KindPhoto MediaKind = "photo"

	// KindDocument is anything that did not match a more specific kind
	KindDocument MediaKind = "document"
)

// String returns the string representation of MediaKind
func (k MediaKind) String() string {
	return string(k)
}

// Extension hints checked against the URL path (query string excluded).
var (
	videoExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".webm", ".flv", ".m3u8", "enc_plain"}
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}
)

// DetectMediaKind classifies an asset from its URL and, when available, the
// Content-Type reported by the origin. URL extension wins over content type;
// unknown inputs fall back to KindDocument with a .bin extension.
func DetectMediaKind(rawURL, contentType string) (MediaKind, string) {
	urlLower := strings.ToLower(rawURL)
	if i := strings.IndexByte(urlLower, '?'); i >= 0 {
		urlLower = urlLower[:i]
	}

	for _, ext := range videoExtensions {
		if strings.Contains(urlLower, ext) {
			return KindVideo, ".mp4"
		}
	}
	if strings.Contains(urlLower, ".pdf") {
		return KindPDF, ".pdf"
	}
	for _, ext := range imageExtensions {
		if strings.Contains(urlLower, ext) {
			suffix := path.Ext(urlLower)
			if suffix == "" {
				suffix = ".jpg"
			}
			return KindPhoto, suffix
		}
	}

	switch {
	case strings.Contains(contentType, "video"):
		return KindVideo, ".mp4"
	case strings.Contains(contentType, "pdf"):
		return KindPDF, ".pdf"
	case strings.Contains(contentType, "image"):
		return KindPhoto, ".jpg"
	}

	return KindDocument, ".bin"
}

// AssetRecord is a resolved transferable unit: a title plus a playable URL.
// The URL is non-empty and carries an http(s) scheme by construction.
type AssetRecord struct {
	Title string
	URL   string
	Kind  MediaKind
	Ext   string
}

// NewAssetRecord builds a record and classifies it from the URL alone.
func NewAssetRecord(title, url string) AssetRecord {
	kind, ext := DetectMediaKind(url, "")
	return AssetRecord{Title: title, URL: url, Kind: kind, Ext: ext}
}
