package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/ytget/coursegrab/internal/model"
	"github.com/ytget/coursegrab/internal/platform"
)

const helpText = `Course transfer bot.

/batch <id> - extract a batch and build its manifest
/upload - transfer extracted records to the destination
/setchannel <id> - forward uploads to a channel (-100...)
/status - show the current job
/cancel - stop after the current record

You can also send a .txt manifest with title:url lines.`

// kindLabels drives the per-type breakdown order in summaries.
var kindLabels = []struct {
	kind  model.MediaKind
	label string
}{
	{model.KindVideo, "videos"},
	{model.KindPDF, "pdfs"},
	{model.KindPhoto, "photos"},
	{model.KindDocument, "documents"},
}

// extractionSummaryText describes what an extraction run produced.
func extractionSummaryText(j *model.Job) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s: %d records", j.BatchID, len(j.RecordList()))

	counts := j.CountByKind()
	var parts []string
	for _, kl := range kindLabels {
		if n := counts[kl.kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, kl.label))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
	}
	if gaps := j.GapCount(); gaps > 0 {
		fmt.Fprintf(&sb, "\n%d assets had no resolvable link.", gaps)
	}
	return sb.String()
}

// transferSummaryText is the final report after a pipeline run.
func transferSummaryText(j *model.Job, sum model.Summary) string {
	var sb strings.Builder
	if j.GetStatus() == model.JobStatusCancelled {
		sb.WriteString("Transfer cancelled.\n")
	} else {
		sb.WriteString("Transfer complete.\n")
	}
	fmt.Fprintf(&sb, "Delivered: %d", sum.Delivered)
	if sum.Skipped > 0 {
		fmt.Fprintf(&sb, ", skipped: %d", sum.Skipped)
	}
	if sum.Failed > 0 {
		fmt.Fprintf(&sb, ", failed: %d", sum.Failed)
	}
	fmt.Fprintf(&sb, "\n%s in %s",
		platform.FormatSize(sum.Bytes),
		platform.FormatDuration(sum.Elapsed))
	return sb.String()
}

// statusText renders /status output for the requester's job.
func statusText(j *model.Job) string {
	status := j.GetStatus()
	current, total := j.Progress()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch: %s\nStatus: %s", j.BatchID, status)
	if total > 0 {
		fmt.Fprintf(&sb, "\nProgress: %d/%d", current, total)
	}
	if dest := j.GetDestination(); dest != 0 {
		fmt.Fprintf(&sb, "\nDestination: %d", dest)
	}
	return sb.String()
}

// uploadProgressText renders one throttled upload progress line: percent and
// byte counts, plus elapsed-based speed and ETA once enough time has passed
// for the rate to mean anything.
func uploadProgressText(rec model.AssetRecord, done, total int64, elapsed time.Duration) string {
	var sb strings.Builder
	if total > 0 {
		percent := float64(done) / float64(total) * 100
		fmt.Fprintf(&sb, "Uploading %s: %.0f%% (%s / %s)",
			rec.Title, percent, platform.FormatSize(done), platform.FormatSize(total))
	} else {
		fmt.Fprintf(&sb, "Uploading %s: %s", rec.Title, platform.FormatSize(done))
	}

	if elapsed >= time.Second && done > 0 {
		speed := float64(done) / elapsed.Seconds()
		fmt.Fprintf(&sb, " at %s", platform.FormatSpeed(speed))
		if total > done && speed > 0 {
			eta := time.Duration(float64(total-done)/speed) * time.Second
			fmt.Fprintf(&sb, ", ETA %s", platform.FormatDuration(eta))
		}
	}
	return sb.String()
}
