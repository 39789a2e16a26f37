package model

import "testing"

func TestJobStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   JobStatus
		expected bool
	}{
		{JobStatusIdle, false},
		{JobStatusExtracting, true},
		{JobStatusExtracted, false},
		{JobStatusTransferring, true},
		{JobStatusCompleted, false},
		{JobStatusCancelled, false},
	}

	for _, test := range tests {
		result := test.status.IsActive()
		if result != test.expected {
			t.Errorf("JobStatus(%s).IsActive() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestJobStatus_IsFinished(t *testing.T) {
	tests := []struct {
		status   JobStatus
		expected bool
	}{
		{JobStatusIdle, false},
		{JobStatusExtracting, false},
		{JobStatusExtracted, false},
		{JobStatusTransferring, false},
		{JobStatusCompleted, true},
		{JobStatusCancelled, true},
	}

	for _, test := range tests {
		result := test.status.IsFinished()
		if result != test.expected {
			t.Errorf("JobStatus(%s).IsFinished() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestJob_CancelFlag(t *testing.T) {
	job := NewJob("job-1", 42, "19376")

	if job.IsCancelled() {
		t.Fatal("new job should not be cancelled")
	}

	job.Cancel()

	if !job.IsCancelled() {
		t.Error("job should report cancelled after Cancel()")
	}
}

func TestJob_AdvanceAccumulatesBytes(t *testing.T) {
	job := NewJob("job-1", 42, "19376")
	job.Append(NewAssetRecord("a", "https://cdn.example.com/a.mp4"))
	job.Append(NewAssetRecord("b", "https://cdn.example.com/b.pdf"))

	job.Advance(100)
	job.Advance(250)

	current, total := job.Progress()
	if current != 2 || total != 2 {
		t.Errorf("Progress() = (%d, %d), expected (2, 2)", current, total)
	}
	if job.Bytes != 350 {
		t.Errorf("Bytes = %d, expected 350", job.Bytes)
	}
}

func TestJob_LockedAccessors(t *testing.T) {
	job := NewJob("job-1", 42, "19376")

	if job.GapCount() != 0 || job.GetDestination() != 0 || job.GetManifestPath() != "" {
		t.Fatal("new job should have zero gaps, destination, and manifest path")
	}

	job.AddGap()
	job.AddGap()
	job.SetDestination(-1001234567890)
	job.SetManifestPath("/tmp/manifest.txt")

	if got := job.GapCount(); got != 2 {
		t.Errorf("GapCount() = %d, expected 2", got)
	}
	if got := job.GetDestination(); got != -1001234567890 {
		t.Errorf("GetDestination() = %d, expected -1001234567890", got)
	}
	if got := job.GetManifestPath(); got != "/tmp/manifest.txt" {
		t.Errorf("GetManifestPath() = %q, expected /tmp/manifest.txt", got)
	}
}

func TestJob_CountByKind(t *testing.T) {
	job := NewJob("job-1", 42, "19376")
	job.Append(NewAssetRecord("v1", "https://cdn.example.com/v1.mp4"))
	job.Append(NewAssetRecord("v2", "https://cdn.example.com/v2.m3u8"))
	job.Append(NewAssetRecord("notes", "https://cdn.example.com/notes.pdf"))

	counts := job.CountByKind()
	if counts[KindVideo] != 2 {
		t.Errorf("video count = %d, expected 2", counts[KindVideo])
	}
	if counts[KindPDF] != 1 {
		t.Errorf("pdf count = %d, expected 1", counts[KindPDF])
	}
}
