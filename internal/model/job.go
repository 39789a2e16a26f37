package model

import (
	"sync"
	"time"
)

// JobStatus represents the lifecycle state of an extraction+transfer job
type JobStatus string

const (
	// JobStatusIdle means no extraction has produced records yet
	JobStatusIdle JobStatus = "Idle"

	// JobStatusExtracting means the hierarchy traversal is running
	JobStatusExtracting JobStatus = "Extracting"

	// JobStatusExtracted means records are ready and no transfer has started
	JobStatusExtracted JobStatus = "Extracted"

	// JobStatusTransferring means the transfer pipeline is consuming records
	JobStatusTransferring JobStatus = "Transferring"

	// JobStatusCompleted means the transfer ran through every record
	JobStatusCompleted JobStatus = "Completed"

	// JobStatusCancelled means the job was stopped between records
	JobStatusCancelled JobStatus = "Cancelled"
)

// String returns the string representation of JobStatus
func (js JobStatus) String() string {
	return string(js)
}

// IsActive returns true if the job is extracting or transferring
func (js JobStatus) IsActive() bool {
	return js == JobStatusExtracting || js == JobStatusTransferring
}

// IsFinished returns true if the job reached a terminal state
func (js JobStatus) IsFinished() bool {
	return js == JobStatusCompleted || js == JobStatusCancelled
}

// OutcomeStatus tags the per-asset transfer result
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "Delivered"
	OutcomeSkipped   OutcomeStatus = "Skipped"
	OutcomeFailed    OutcomeStatus = "Failed"
)

// TransferOutcome is the result of transferring a single asset record.
type TransferOutcome struct {
	Status OutcomeStatus
	Bytes  int64  // bytes delivered, for OutcomeDelivered
	Reason string // human readable cause, for OutcomeSkipped
	Err    error  // terminal error, for OutcomeFailed
}

// Summary aggregates outcomes over a finished (or cancelled) transfer run.
type Summary struct {
	Delivered int
	Failed    int
	Skipped   int
	Bytes     int64
	Elapsed   time.Duration
}

// Job is one extraction+transfer run for one requester. Bot goroutines read
// status and set the cancellation flag while the pipeline mutates the cursor
// and counters, so all access goes through the mutex.
type Job struct {
	mu sync.Mutex

	ID          string
	RequesterID int64
	BatchID     string

	Records      []AssetRecord
	Gaps         int
	ManifestPath string

	// Destination chat id; 0 means the requester's own chat.
	Destination int64

	Status    JobStatus
	Cursor    int
	Bytes     int64
	Cancelled bool
	StartedAt time.Time
}

// NewJob creates an idle job for a requester.
func NewJob(id string, requesterID int64, batchID string) *Job {
	return &Job{
		ID:          id,
		RequesterID: requesterID,
		BatchID:     batchID,
		Status:      JobStatusIdle,
		StartedAt:   time.Now(),
	}
}

// SetStatus transitions the job to the given state.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
}

// GetStatus returns the current state.
func (j *Job) GetStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// Append adds a resolved record. Records are append-only during extraction.
func (j *Job) Append(rec AssetRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Records = append(j.Records, rec)
}

// AddGap counts an asset node that yielded no resolvable URL.
func (j *Job) AddGap() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Gaps++
}

// GapCount returns how many asset nodes failed to resolve.
func (j *Job) GapCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Gaps
}

// SetDestination points deliveries at a chat; 0 restores the requester's own.
func (j *Job) SetDestination(chatID int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Destination = chatID
}

// GetDestination returns the delivery chat id.
func (j *Job) GetDestination() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Destination
}

// SetManifestPath records where the extraction manifest was written.
func (j *Job) SetManifestPath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ManifestPath = path
}

// GetManifestPath returns the manifest location, empty before extraction.
func (j *Job) GetManifestPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ManifestPath
}

// Cancel raises the cooperative cancellation flag. The pipeline checks it
// between records; a record already downloading runs to completion first.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Cancelled = true
}

// IsCancelled reports whether cancellation has been requested.
func (j *Job) IsCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Cancelled
}

// Advance moves the cursor past one record and adds its delivered bytes.
func (j *Job) Advance(bytes int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Cursor++
	j.Bytes += bytes
}

// Progress returns the cursor position and total record count.
func (j *Job) Progress() (current, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Cursor, len(j.Records)
}

// RecordList returns a copy of the resolved records.
func (j *Job) RecordList() []AssetRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]AssetRecord, len(j.Records))
	copy(out, j.Records)
	return out
}

// CountByKind returns the per-kind breakdown of resolved records.
func (j *Job) CountByKind() map[MediaKind]int {
	j.mu.Lock()
	defer j.mu.Unlock()
	counts := make(map[MediaKind]int, 4)
	for _, rec := range j.Records {
		counts[rec.Kind]++
	}
	return counts
}
