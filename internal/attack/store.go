package attack

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"airtriage/internal/model"
)

type recordKey struct {
	target string
	kind   model.AttackKind
}

type entry struct {
	record model.AttackRecord
	seq    uint64
}

// Store is the in-memory attack record table. It owns every record: callers
// get copies, never pointers into the table. One mutex guards the whole
// table; attacks are minutes-long events, so contention is not a concern.
type Store struct {
	mu      sync.RWMutex
	active  map[recordKey]*entry
	history []*entry
	limit   int
	seq     uint64

	running   int
	completed int
	failed    int

	now func() time.Time
}

const defaultHistoryLimit = 200

func NewStore(historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Store{
		active: make(map[recordKey]*entry),
		limit:  historyLimit,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a queued record for (targetID, kind). At most one active record
// may exist per key; a duplicate yields ErrAlreadyActive.
func (s *Store) Create(targetID string, kind model.AttackKind) (model.AttackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{target: targetID, kind: kind}
	if _, ok := s.active[key]; ok {
		return model.AttackRecord{}, fmt.Errorf("%w: %s/%s", ErrAlreadyActive, targetID, kind)
	}
	s.seq++
	e := &entry{
		record: model.AttackRecord{
			ID:          uuid.NewString(),
			TargetID:    targetID,
			Kind:        kind,
			Status:      model.StatusQueued,
			SubmittedAt: s.now(),
		},
		seq: s.seq,
	}
	s.active[key] = e
	return e.record, nil
}

// TransitionFields carries the executor-supplied fields that may change
// alongside a status transition.
type TransitionFields struct {
	Progress      *int
	ETASeconds    *int
	ResultSummary string
}

var allowedTransitions = map[model.AttackStatus][]model.AttackStatus{
	model.StatusQueued:  {model.StatusRunning, model.StatusCancelled},
	model.StatusRunning: {model.StatusCompleted, model.StatusFailed, model.StatusCancelled},
}

func transitionAllowed(from, to model.AttackStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the active record for (targetID, kind) to newStatus.
// Illegal transitions and unknown keys are surfaced as errors; nothing is
// retried or clamped here.
func (s *Store) Transition(targetID string, kind model.AttackKind, newStatus model.AttackStatus, fields TransitionFields) (model.AttackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{target: targetID, kind: kind}
	e, ok := s.active[key]
	if !ok {
		// A transition against a terminal record is an executor bug distinct
		// from an unknown key; report it as such.
		if last, found := s.lastTerminal(key); found {
			return model.AttackRecord{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, last.record.Status, newStatus)
		}
		return model.AttackRecord{}, fmt.Errorf("%w: %s/%s", ErrNotFound, targetID, kind)
	}
	if !transitionAllowed(e.record.Status, newStatus) {
		return model.AttackRecord{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.record.Status, newStatus)
	}
	if fields.Progress != nil {
		if newStatus != model.StatusRunning {
			return model.AttackRecord{}, fmt.Errorf("%w: progress only while running", ErrInvalidProgress)
		}
		if *fields.Progress < e.record.Progress || *fields.Progress > 100 {
			return model.AttackRecord{}, fmt.Errorf("%w: %d -> %d", ErrInvalidProgress, e.record.Progress, *fields.Progress)
		}
	}

	now := s.now()
	switch newStatus {
	case model.StatusRunning:
		e.record.StartedAt = &now
		s.running++
	case model.StatusCompleted:
		e.record.Progress = 100
	}

	if e.record.Status == model.StatusRunning && newStatus.Terminal() {
		s.running--
	}
	e.record.Status = newStatus
	if fields.Progress != nil {
		e.record.Progress = *fields.Progress
	}
	if fields.ETASeconds != nil {
		e.record.ETASeconds = *fields.ETASeconds
	}
	if fields.ResultSummary != "" {
		e.record.ResultSummary = fields.ResultSummary
	}

	if newStatus.Terminal() {
		e.record.EndedAt = &now
		switch newStatus {
		case model.StatusCompleted:
			s.completed++
		case model.StatusFailed:
			s.failed++
		}
		delete(s.active, key)
		s.retain(e)
	}
	return e.record, nil
}

// SetProgress records executor progress on a running attack. Regressions are
// rejected so collaborator bugs surface instead of being hidden.
func (s *Store) SetProgress(targetID string, kind model.AttackKind, progress int, etaSeconds int) (model.AttackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{target: targetID, kind: kind}
	e, ok := s.active[key]
	if !ok {
		if last, found := s.lastTerminal(key); found {
			return model.AttackRecord{}, fmt.Errorf("%w: record is %s, not running", ErrInvalidProgress, last.record.Status)
		}
		return model.AttackRecord{}, fmt.Errorf("%w: %s/%s", ErrNotFound, targetID, kind)
	}
	if e.record.Status != model.StatusRunning {
		return model.AttackRecord{}, fmt.Errorf("%w: record is %s, not running", ErrInvalidProgress, e.record.Status)
	}
	if progress < e.record.Progress || progress > 100 {
		return model.AttackRecord{}, fmt.Errorf("%w: %d -> %d", ErrInvalidProgress, e.record.Progress, progress)
	}
	e.record.Progress = progress
	if etaSeconds > 0 {
		e.record.ETASeconds = etaSeconds
	}
	return e.record, nil
}

// SetScore attaches scoring telemetry to an active record.
func (s *Store) SetScore(targetID string, kind model.AttackKind, result model.ScoreResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.active[recordKey{target: targetID, kind: kind}]; ok {
		e.record.Score = result.Score
		e.record.Priority = result.Priority
	}
}

// Get returns the active record for (targetID, kind).
func (s *Store) Get(targetID string, kind model.AttackKind) (model.AttackRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.active[recordKey{target: targetID, kind: kind}]
	if !ok {
		return model.AttackRecord{}, false
	}
	return e.record, true
}

// ListActive returns queued and running records in submission order.
func (s *Store) ListActive() []model.AttackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*entry, 0, len(s.active))
	for _, e := range s.active {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]model.AttackRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.record)
	}
	return out
}

// ListRecent returns up to limit records, active and terminal, most recent
// first. History is bounded by the retention cap, so this never scans an
// unbounded backlog.
func (s *Store) ListRecent(limit int) []model.AttackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRecentLocked(limit)
}

// StatusView returns the counters and the recent list under one lock
// acquisition, so a status snapshot never mixes two instants.
func (s *Store) StatusView(limit int) (Counters, []model.AttackRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counters := Counters{Running: s.running, Completed: s.completed, Failed: s.failed}
	return counters, s.listRecentLocked(limit)
}

func (s *Store) listRecentLocked(limit int) []model.AttackRecord {
	entries := make([]*entry, 0, len(s.active)+len(s.history))
	for _, e := range s.active {
		entries = append(entries, e)
	}
	entries = append(entries, s.history...)
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := recencyTime(&entries[i].record), recencyTime(&entries[j].record)
		if ti.Equal(tj) {
			return entries[i].seq > entries[j].seq
		}
		return ti.After(tj)
	})
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]model.AttackRecord, 0, limit)
	for _, e := range entries[:limit] {
		out = append(out, e.record)
	}
	return out
}

// lastTerminal returns the newest retained terminal record for a key. Must
// hold the lock.
func (s *Store) lastTerminal(key recordKey) (*entry, bool) {
	for i := len(s.history) - 1; i >= 0; i-- {
		e := s.history[i]
		if e.record.TargetID == key.target && e.record.Kind == key.kind {
			return e, true
		}
	}
	return nil, false
}

func recencyTime(r *model.AttackRecord) time.Time {
	if r.StartedAt != nil {
		return *r.StartedAt
	}
	return r.SubmittedAt
}

type Counters struct {
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Counters returns the incrementally maintained status counts.
func (s *Store) Counters() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counters{Running: s.running, Completed: s.completed, Failed: s.failed}
}

// retain appends a terminal record to the bounded history, evicting oldest
// first once the cap is reached. Must hold the write lock.
func (s *Store) retain(e *entry) {
	if len(s.history) < s.limit {
		s.history = append(s.history, e)
		return
	}
	copy(s.history, s.history[1:])
	s.history[len(s.history)-1] = e
}
