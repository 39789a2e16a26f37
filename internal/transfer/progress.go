package transfer

import (
	"io"
	"time"
)

// progressInterval throttles how often upload progress is reported.
const progressInterval = 2 * time.Second

// ProgressFunc receives the number of bytes moved so far and the total.
type ProgressFunc func(done, total int64)

// ProgressReader wraps a reader and reports throttled byte counts as the
// sink consumes it. The callback fires at most once per interval, plus a
// final report when the stream is fully drained.
type ProgressReader struct {
	r     io.Reader
	total int64
	done  int64
	last  time.Time
	fn    ProgressFunc
}

// NewProgressReader wraps r. fn may be nil, in which case reads pass through
// untouched.
func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn}
}

// Read implements io.Reader.
func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.done += int64(n)
	if p.fn != nil {
		now := time.Now()
		if now.Sub(p.last) >= progressInterval || (err == io.EOF && p.done == p.total) {
			p.last = now
			p.fn(p.done, p.total)
		}
	}
	return n, err
}
