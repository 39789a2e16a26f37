package model

import "testing"

func TestDetectMediaKind(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		kind        MediaKind
		ext         string
	}{
		{"mp4 url", "https://cdn.example.com/lecture.mp4", "", KindVideo, ".mp4"},
		{"hls manifest", "https://cdn.example.com/stream/master.m3u8", "", KindVideo, ".mp4"},
		{"encrypted stream", "https://cdn.example.com/enc_plain/media", "", KindVideo, ".mp4"},
		{"pdf url", "https://cdn.example.com/notes.pdf", "", KindPDF, ".pdf"},
		{"png url", "https://cdn.example.com/diagram.png", "", KindPhoto, ".png"},
		{"query string ignored", "https://cdn.example.com/file.pdf?Expires=123&sig=.mp4", "", KindPDF, ".pdf"},
		{"video content type", "https://cdn.example.com/watch", "video/mp4", KindVideo, ".mp4"},
		{"pdf content type", "https://cdn.example.com/doc", "application/pdf", KindPDF, ".pdf"},
		{"image content type", "https://cdn.example.com/img", "image/jpeg", KindPhoto, ".jpg"},
		{"unknown", "https://cdn.example.com/blob", "application/octet-stream", KindDocument, ".bin"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			kind, ext := DetectMediaKind(test.url, test.contentType)
			if kind != test.kind {
				t.Errorf("kind = %s, expected %s", kind, test.kind)
			}
			if ext != test.ext {
				t.Errorf("ext = %s, expected %s", ext, test.ext)
			}
		})
	}
}

func TestNewAssetRecord(t *testing.T) {
	rec := NewAssetRecord("Intro Lecture", "https://cdn.example.com/intro.mp4")

	if rec.Kind != KindVideo {
		t.Errorf("Kind = %s, expected %s", rec.Kind, KindVideo)
	}
	if rec.Ext != ".mp4" {
		t.Errorf("Ext = %s, expected .mp4", rec.Ext)
	}
}

func TestTreeNode_TileID(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]any
		expected string
	}{
		{"string id", map[string]any{"tile_id": "88121"}, "88121"},
		{"numeric id", map[string]any{"tile_id": float64(88121)}, "88121"},
		{"missing", map[string]any{}, ""},
		{"nil payload", nil, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			node := &TreeNode{Payload: test.payload}
			if got := node.TileID(); got != test.expected {
				t.Errorf("TileID() = %q, expected %q", got, test.expected)
			}
		})
	}
}
