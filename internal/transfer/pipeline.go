package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ytget/coursegrab/internal/logger"
	"github.com/ytget/coursegrab/internal/model"
	"github.com/ytget/coursegrab/internal/platform"
)

// retryMargin is added on top of the wait a rate-limited sink asks for.
const retryMargin = 2 * time.Second

// UploadRequest describes one file handed to a Sink.
type UploadRequest struct {
	// Path is the local file to send.
	Path string

	// Title is the display caption for the record.
	Title string

	// FileName is the sanitized name the destination should see.
	FileName string

	// Kind selects how the sink should present the file.
	Kind model.MediaKind

	// Size is the file size in bytes.
	Size int64

	// Progress, when non-nil, receives throttled upload progress.
	Progress ProgressFunc

	// Plain asks the sink to skip progress reporting and any other
	// decoration. Set on the retry after a rate limit.
	Plain bool
}

// Sink receives finished downloads. Implementations report rate limiting by
// returning a RateLimitedError.
type Sink interface {
	Upload(ctx context.Context, req UploadRequest) error
}

// RateLimitedError reports that the destination refused an upload and asked
// the caller to wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

// Error implements error.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Hooks lets callers observe pipeline progress. All fields are optional.
type Hooks struct {
	// OnRecordStart fires before each record's download begins.
	OnRecordStart func(index, total int, rec model.AssetRecord)

	// OnUploadProgress fires with throttled upload byte counts.
	OnUploadProgress func(rec model.AssetRecord, done, total int64)

	// OnOutcome fires after each record finishes, whatever the result.
	OnOutcome func(rec model.AssetRecord, out model.TransferOutcome)
}

// Pipeline moves a job's records one at a time: download via the backend
// chain, then hand the file to the sink.
type Pipeline struct {
	downloader   *Downloader
	workDir      string
	maxFileBytes int64
	sleep        func(time.Duration)
	log          *logger.Logger
}

// NewPipeline creates a pipeline writing temp files under workDir. Files
// larger than maxFileBytes are skipped rather than uploaded; zero disables
// the ceiling.
func NewPipeline(d *Downloader, workDir string, maxFileBytes int64, log *logger.Logger) *Pipeline {
	return &Pipeline{
		downloader:   d,
		workDir:      workDir,
		maxFileBytes: maxFileBytes,
		sleep:        time.Sleep,
		log:          log,
	}
}

// Run transfers every record in the job sequentially. Cancellation is
// cooperative: the job's flag and the context are both checked between
// records, and whatever already completed stays delivered.
func (p *Pipeline) Run(ctx context.Context, j *model.Job, sink Sink, hooks Hooks) model.Summary {
	started := time.Now()
	var sum model.Summary

	records := j.RecordList()
	j.SetStatus(model.JobStatusTransferring)

	for i, rec := range records {
		if ctx.Err() != nil || j.IsCancelled() {
			j.SetStatus(model.JobStatusCancelled)
			sum.Elapsed = time.Since(started)
			return sum
		}

		if hooks.OnRecordStart != nil {
			hooks.OnRecordStart(i+1, len(records), rec)
		}

		out := p.transferOne(ctx, j, rec, sink, hooks)
		switch out.Status {
		case model.OutcomeDelivered:
			sum.Delivered++
			sum.Bytes += out.Bytes
		case model.OutcomeSkipped:
			sum.Skipped++
		case model.OutcomeFailed:
			sum.Failed++
		}
		j.Advance(out.Bytes)

		if hooks.OnOutcome != nil {
			hooks.OnOutcome(rec, out)
		}
	}

	if j.IsCancelled() {
		j.SetStatus(model.JobStatusCancelled)
	} else {
		j.SetStatus(model.JobStatusCompleted)
	}
	sum.Elapsed = time.Since(started)
	return sum
}

// transferOne downloads a single record and uploads it. The temp file is
// removed on every path out of the function.
func (p *Pipeline) transferOne(ctx context.Context, j *model.Job, rec model.AssetRecord, sink Sink, hooks Hooks) model.TransferOutcome {
	name := platform.SanitizeFilename(rec.Title) + rec.Ext
	tmpPath := filepath.Join(p.workDir, fmt.Sprintf("%s_%s", j.ID, name))
	defer os.Remove(tmpPath)

	contentType, err := p.downloader.Download(ctx, rec.URL, tmpPath)
	if err != nil {
		p.log.Warn("download failed", "title", rec.Title, "error", err)
		return model.TransferOutcome{Status: model.OutcomeFailed, Reason: "download failed", Err: err}
	}

	kind, ext := rec.Kind, rec.Ext
	if contentType != "" {
		// URLs without a telling extension classify as documents up
		// front; the response header can settle what the file really is.
		kind, ext = model.DetectMediaKind(rec.URL, contentType)
		if ext != rec.Ext {
			name = platform.SanitizeFilename(rec.Title) + ext
		}
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return model.TransferOutcome{Status: model.OutcomeFailed, Reason: "missing file", Err: err}
	}

	if p.maxFileBytes > 0 && info.Size() > p.maxFileBytes {
		p.log.Info("skipping oversized file",
			"title", rec.Title,
			"size", platform.FormatSize(info.Size()),
			"limit", platform.FormatSize(p.maxFileBytes))
		return model.TransferOutcome{
			Status: model.OutcomeSkipped,
			Reason: fmt.Sprintf("file exceeds %s", platform.FormatSize(p.maxFileBytes)),
		}
	}

	req := UploadRequest{
		Path:     tmpPath,
		Title:    rec.Title,
		FileName: name,
		Kind:     kind,
		Size:     info.Size(),
	}
	if hooks.OnUploadProgress != nil {
		req.Progress = func(done, total int64) {
			hooks.OnUploadProgress(rec, done, total)
		}
	}

	if err := p.upload(ctx, sink, req); err != nil {
		p.log.Warn("upload failed", "title", rec.Title, "error", err)
		return model.TransferOutcome{Status: model.OutcomeFailed, Reason: "upload failed", Err: err}
	}

	return model.TransferOutcome{Status: model.OutcomeDelivered, Bytes: info.Size()}
}

// upload sends the request, honoring one rate-limit retry: wait out the
// requested interval plus a margin, then try once more without progress
// decoration.
func (p *Pipeline) upload(ctx context.Context, sink Sink, req UploadRequest) error {
	err := sink.Upload(ctx, req)
	if err == nil {
		return nil
	}

	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		return err
	}

	wait := limited.RetryAfter + retryMargin
	p.log.Info("rate limited, backing off", "wait", wait)
	p.sleep(wait)

	req.Plain = true
	req.Progress = nil
	return sink.Upload(ctx, req)
}
