// Package job tracks the per-requester extraction+transfer jobs. At most one
// job exists per requester at a time.
package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/coursegrab/internal/model"
)

// ID prefix for generated job ids
const jobIDPrefix = "job-"

// Store is the in-memory registry of jobs keyed by requester id. Nothing is
// persisted; a restart forgets every job.
type Store struct {
	mu   sync.Mutex
	jobs map[int64]*model.Job
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{jobs: make(map[int64]*model.Job)}
}

// Begin registers a fresh job for the requester, replacing any finished one.
// It fails while the requester's current job is still extracting or
// transferring.
func (s *Store) Begin(requesterID int64, batchID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[requesterID]; ok {
		if status := existing.GetStatus(); status.IsActive() {
			return nil, fmt.Errorf("job %s is still %s", existing.ID, status)
		}
	}

	j := model.NewJob(generateJobID(), requesterID, batchID)
	// Carry the destination forward so /setchannel survives re-extraction.
	if existing, ok := s.jobs[requesterID]; ok {
		j.SetDestination(existing.GetDestination())
	}
	s.jobs[requesterID] = j
	return j, nil
}

// Get returns the requester's current job.
func (s *Store) Get(requesterID int64) (*model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[requesterID]
	return j, ok
}

// SetDestination records the destination chat for the requester, creating a
// placeholder job when none exists yet.
func (s *Store) SetDestination(requesterID, destination int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[requesterID]
	if !ok {
		j = model.NewJob(generateJobID(), requesterID, "")
		s.jobs[requesterID] = j
	}
	j.SetDestination(destination)
}

// Cancel raises the cancellation flag on the requester's active job. Returns
// false when there is nothing to cancel.
func (s *Store) Cancel(requesterID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[requesterID]
	if !ok || !j.GetStatus().IsActive() {
		return false
	}
	j.Cancel()
	return true
}

// generateJobID generates a unique job ID using UUID v7 for time ordering
func generateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(jobIDPrefix+"%d", time.Now().UnixNano())
	}
	return jobIDPrefix + id.String()
}
