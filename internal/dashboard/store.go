package dashboard

import (
	"sync"
	"time"
)

// Status is the refresh state of a widget snapshot.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Snapshot is the single, overwritten-in-place last-known result for a
// widget. A cache, not a log: no history is kept and nothing survives a
// process restart.
type Snapshot struct {
	WidgetID    string    `json:"widget_id"`
	Status      Status    `json:"status"`
	Data        any       `json:"data,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

type slot struct {
	mu sync.Mutex
	// deleted marks a tombstone: the widget was removed and neither Begin nor
	// Complete may bring its snapshot back until Restore.
	deleted bool
	// nextSeq numbers refresh cycles at start time.
	nextSeq uint64
	// writtenSeq is the cycle sequence of the last stored completion. A
	// completion from an older cycle never overwrites a newer result.
	writtenSeq uint64
	snap       Snapshot
}

// Store holds the per-widget snapshot slots. Slots are independent: updates
// to different widgets never contend on one lock.
type Store struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{slots: make(map[string]*slot)}
}

func (s *Store) slotFor(widgetID string) *slot {
	s.mu.RLock()
	sl, ok := s.slots[widgetID]
	s.mu.RUnlock()
	if ok {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.slots[widgetID]; ok {
		return sl
	}
	sl = &slot{}
	s.slots[widgetID] = sl
	return sl
}

// Begin marks the start of a refresh cycle: the slot moves to loading while
// keeping its previous data so consumers need not flash empty. Returns the
// cycle sequence to pass to Complete.
func (s *Store) Begin(widgetID string) uint64 {
	sl := s.slotFor(widgetID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.nextSeq++
	if sl.deleted {
		// A cycle racing the widget's deletion must not revive the slot.
		return sl.nextSeq
	}
	sl.snap.WidgetID = widgetID
	sl.snap.Status = StatusLoading
	return sl.nextSeq
}

// Complete stores the outcome of the cycle identified by seq. Completions
// from cycles older than the last stored one are discarded, so a straggling
// response never regresses the snapshot. A completion for a deleted widget is
// discarded rather than resurrecting its slot.
func (s *Store) Complete(widgetID string, seq uint64, snap Snapshot) bool {
	s.mu.RLock()
	sl, ok := s.slots[widgetID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.deleted || seq < sl.writtenSeq {
		return false
	}
	sl.writtenSeq = seq
	snap.WidgetID = widgetID
	sl.snap = snap
	return true
}

// Get returns the current snapshot for a widget.
func (s *Store) Get(widgetID string) (Snapshot, bool) {
	s.mu.RLock()
	sl, ok := s.slots[widgetID]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.snap.WidgetID == "" {
		return Snapshot{}, false
	}
	return sl.snap, true
}

// Delete discards a widget's snapshot and leaves a tombstone, so a cycle that
// raced the deletion cannot recreate the slot through Begin or Complete.
// Called when the widget is deleted.
func (s *Store) Delete(widgetID string) {
	s.mu.Lock()
	sl, ok := s.slots[widgetID]
	if !ok {
		sl = &slot{}
		s.slots[widgetID] = sl
	}
	s.mu.Unlock()

	sl.mu.Lock()
	sl.deleted = true
	sl.snap = Snapshot{}
	sl.mu.Unlock()
}

// Restore clears a prior deletion so the id can hold snapshots again. Called
// when a widget definition is saved.
func (s *Store) Restore(widgetID string) {
	s.mu.RLock()
	sl, ok := s.slots[widgetID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	sl.mu.Lock()
	sl.deleted = false
	sl.mu.Unlock()
}

// All returns the current snapshot of every widget that has one.
func (s *Store) All() []Snapshot {
	s.mu.RLock()
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		if sl.snap.WidgetID != "" {
			snaps = append(snaps, sl.snap)
		}
		sl.mu.Unlock()
	}
	return snaps
}
