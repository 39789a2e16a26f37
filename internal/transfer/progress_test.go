package transfer

import (
	"bytes"
	"io"
	"testing"
)

func TestProgressReader_ReportsCompletion(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)

	var lastDone, lastTotal int64
	pr := NewProgressReader(bytes.NewReader(payload), int64(len(payload)), func(done, total int64) {
		lastDone, lastTotal = done, total
	})

	n, err := io.Copy(io.Discard, pr)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("copied %d bytes, want %d", n, len(payload))
	}
	if lastDone != int64(len(payload)) || lastTotal != int64(len(payload)) {
		t.Errorf("final report = (%d, %d), want (%d, %d)", lastDone, lastTotal, len(payload), len(payload))
	}
}

func TestProgressReader_NilCallback(t *testing.T) {
	payload := []byte("no callback installed")
	pr := NewProgressReader(bytes.NewReader(payload), int64(len(payload)), nil)

	out, err := io.ReadAll(pr)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("reader altered the stream")
	}
}
