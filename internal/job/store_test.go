package job

import (
	"testing"

	"github.com/ytget/coursegrab/internal/model"
)

func TestStore_BeginCreatesJob(t *testing.T) {
	s := NewStore()

	j, err := s.Begin(42, "19376")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if j.BatchID != "19376" {
		t.Errorf("BatchID = %q, expected %q", j.BatchID, "19376")
	}
	if j.GetStatus() != model.JobStatusIdle {
		t.Errorf("Status = %s, expected %s", j.GetStatus(), model.JobStatusIdle)
	}

	got, ok := s.Get(42)
	if !ok || got != j {
		t.Error("Get() should return the job Begin created")
	}
}

func TestStore_BeginRejectedWhileActive(t *testing.T) {
	s := NewStore()

	j, err := s.Begin(42, "19376")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	j.SetStatus(model.JobStatusTransferring)

	if _, err := s.Begin(42, "20000"); err == nil {
		t.Error("Begin() should fail while the current job is transferring")
	}

	j.SetStatus(model.JobStatusCompleted)
	if _, err := s.Begin(42, "20000"); err != nil {
		t.Errorf("Begin() after completion should succeed, got %v", err)
	}
}

func TestStore_DestinationSurvivesNewJob(t *testing.T) {
	s := NewStore()
	s.SetDestination(42, -1001234567890)

	j, err := s.Begin(42, "19376")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if j.GetDestination() != -1001234567890 {
		t.Errorf("Destination = %d, expected it to carry over", j.GetDestination())
	}
}

func TestStore_Cancel(t *testing.T) {
	s := NewStore()

	if s.Cancel(42) {
		t.Error("Cancel() with no job should return false")
	}

	j, _ := s.Begin(42, "19376")
	if s.Cancel(42) {
		t.Error("Cancel() on an idle job should return false")
	}

	j.SetStatus(model.JobStatusTransferring)
	if !s.Cancel(42) {
		t.Error("Cancel() on an active job should return true")
	}
	if !j.IsCancelled() {
		t.Error("job should carry the cancellation flag")
	}
}

func TestStore_RequestersAreIndependent(t *testing.T) {
	s := NewStore()

	a, _ := s.Begin(1, "100")
	a.SetStatus(model.JobStatusTransferring)

	if _, err := s.Begin(2, "200"); err != nil {
		t.Errorf("another requester must not be blocked, got %v", err)
	}
}
