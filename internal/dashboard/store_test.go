package dashboard

import (
	"testing"
	"time"
)

func TestStoreBeginPreservesPreviousData(t *testing.T) {
	s := NewStore()

	seq := s.Begin("w1")
	s.Complete("w1", seq, Snapshot{Status: StatusSuccess, Data: "payload", LastUpdated: time.Now()})

	s.Begin("w1")

	snap, ok := s.Get("w1")
	if !ok {
		t.Fatal("expected snapshot after Begin")
	}
	if snap.Status != StatusLoading {
		t.Errorf("Status = %s, want %s", snap.Status, StatusLoading)
	}
	if snap.Data != "payload" {
		t.Errorf("Data = %v, previous data must survive Begin", snap.Data)
	}
}

func TestStoreStragglerNeverWins(t *testing.T) {
	s := NewStore()

	// Cycle A starts, then cycle B starts and completes first.
	seqA := s.Begin("w1")
	seqB := s.Begin("w1")

	if !s.Complete("w1", seqB, Snapshot{Status: StatusSuccess, Data: "fresh"}) {
		t.Fatal("cycle B completion rejected")
	}

	// A straggles in afterwards and must be discarded.
	if s.Complete("w1", seqA, Snapshot{Status: StatusSuccess, Data: "stale"}) {
		t.Error("cycle A completion accepted, want discard")
	}

	snap, _ := s.Get("w1")
	if snap.Data != "fresh" {
		t.Errorf("Data = %v, want fresh", snap.Data)
	}
}

func TestStoreErrorReplacesData(t *testing.T) {
	s := NewStore()

	seq := s.Begin("w1")
	s.Complete("w1", seq, Snapshot{Status: StatusSuccess, Data: "payload"})

	seq = s.Begin("w1")
	s.Complete("w1", seq, Snapshot{Status: StatusError, Error: "upstream: boom", ErrorKind: "upstream"})

	snap, _ := s.Get("w1")
	if snap.Status != StatusError {
		t.Errorf("Status = %s, want %s", snap.Status, StatusError)
	}
	if snap.Data != nil {
		t.Errorf("Data = %v, an error snapshot must not carry old data", snap.Data)
	}
	if snap.ErrorKind != "upstream" {
		t.Errorf("ErrorKind = %q, want upstream", snap.ErrorKind)
	}
}

func TestStoreCompleteAfterDeleteDiscards(t *testing.T) {
	s := NewStore()

	seq := s.Begin("w1")
	s.Delete("w1")

	if s.Complete("w1", seq, Snapshot{Status: StatusSuccess, Data: "late"}) {
		t.Error("completion for a deleted widget must be discarded")
	}
	if _, ok := s.Get("w1"); ok {
		t.Error("deleted widget must not reappear")
	}
}

func TestStoreBeginAfterDeleteDoesNotResurrect(t *testing.T) {
	s := NewStore()

	seq := s.Begin("w1")
	s.Complete("w1", seq, Snapshot{Status: StatusSuccess, Data: "payload"})
	s.Delete("w1")

	// A cycle that raced the delete starts afterwards; neither its Begin nor
	// its Complete may bring the widget back.
	seq = s.Begin("w1")
	if _, ok := s.Get("w1"); ok {
		t.Error("Begin revived a deleted widget's snapshot")
	}
	if s.Complete("w1", seq, Snapshot{Status: StatusSuccess, Data: "late"}) {
		t.Error("completion for a deleted widget accepted")
	}
	if got := len(s.All()); got != 0 {
		t.Errorf("All() returned %d snapshots after delete, want 0", got)
	}
}

func TestStoreRestoreLiftsDeletion(t *testing.T) {
	s := NewStore()

	s.Delete("w1")
	s.Restore("w1")

	seq := s.Begin("w1")
	if !s.Complete("w1", seq, Snapshot{Status: StatusSuccess, Data: "fresh"}) {
		t.Fatal("completion rejected after Restore")
	}
	snap, ok := s.Get("w1")
	if !ok || snap.Data != "fresh" {
		t.Errorf("snapshot after Restore = %v, %v", snap, ok)
	}
}

func TestStoreGetUnknownWidget(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get("missing"); ok {
		t.Error("unexpected snapshot for unknown widget")
	}
}

func TestStoreSlotsAreIndependent(t *testing.T) {
	s := NewStore()

	seq1 := s.Begin("w1")
	seq2 := s.Begin("w2")
	s.Complete("w1", seq1, Snapshot{Status: StatusSuccess, Data: "one"})
	s.Complete("w2", seq2, Snapshot{Status: StatusError, Error: "boom"})

	snap1, _ := s.Get("w1")
	snap2, _ := s.Get("w2")
	if snap1.Status != StatusSuccess || snap2.Status != StatusError {
		t.Errorf("slots interfered: %v / %v", snap1, snap2)
	}

	if got := len(s.All()); got != 2 {
		t.Errorf("All() returned %d snapshots, want 2", got)
	}
}
