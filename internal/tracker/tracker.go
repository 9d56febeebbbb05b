package tracker

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"airtriage/internal/model"
	"airtriage/internal/normalize"
	"airtriage/internal/scoring"
)

// Tracker maintains per-target scoring state between observations. Raw
// signal readings jitter, so it smooths signal and client counts over a
// small moving window and throttles rescoring to a minimum interval unless
// a significant change forces an immediate update. Latest results sit in an
// LRU cache so status readers never touch the tracker lock.
type Tracker struct {
	mu        sync.Mutex
	targets   map[string]*targetState
	updatedAt map[string]time.Time
	limit     int
	interval  time.Duration
	window    int

	scores *lru.Cache[string, model.ScoreResult]

	totalUpdates     int
	throttledUpdates int

	now func() time.Time
}

type targetState struct {
	signalHistory []int
	clientHistory []int
	lastSignal    int
	lastClients   int
	lastObs       model.Observation
	lastScore     model.ScoreResult
	scored        bool
	lastUpdate    time.Time
}

const (
	defaultInterval  = 15 * time.Second
	defaultWindow    = 5
	defaultLimit     = 5000
	defaultCacheSize = 2048
)

func New(interval time.Duration, window, limit, cacheSize int) *Tracker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if window <= 0 {
		window = defaultWindow
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, _ := lru.New[string, model.ScoreResult](cacheSize)
	return &Tracker{
		targets:   make(map[string]*targetState),
		updatedAt: make(map[string]time.Time),
		limit:     limit,
		interval:  interval,
		window:    window,
		scores:    cache,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Observe folds a new sighting into the target's state and rescores it when
// due. Returns the current score and whether it was freshly computed.
func (t *Tracker) Observe(sample model.ScanSample) (model.ScoreResult, bool) {
	obs := sample.Observation
	id := canonicalID(obs.Identifier)

	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.targets[id]
	if !ok {
		state = &targetState{lastSignal: -70}
		t.targets[id] = state
	}
	now := t.now()
	t.updatedAt[id] = now
	if len(t.targets) > t.limit {
		t.evictOldest()
	}

	significant := t.significantChange(state, obs.SignalDbm, sample.ClientCount)

	smoothedSignal := state.addSignal(obs.SignalDbm, t.window)
	state.addClients(sample.ClientCount, t.window)
	state.lastObs = obs

	if state.scored && !significant && now.Sub(state.lastUpdate) < t.interval {
		t.throttledUpdates++
		return state.lastScore, false
	}

	scoredObs := obs
	scoredObs.Identifier = id
	scoredObs.SignalDbm = smoothedSignal
	result := scoring.Score(scoredObs)

	state.lastScore = result
	state.scored = true
	state.lastUpdate = now
	t.totalUpdates++
	t.scores.Add(id, result)
	return result, true
}

// Get returns the last computed score for a target, if any.
func (t *Tracker) Get(identifier string) (model.ScoreResult, bool) {
	return t.scores.Get(canonicalID(identifier))
}

// Observation returns the last observation folded in for a target.
func (t *Tracker) Observation(identifier string) (model.Observation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.targets[canonicalID(identifier)]
	if !ok {
		return model.Observation{}, false
	}
	return state.lastObs, true
}

type Stats struct {
	TrackedTargets   int `json:"tracked_targets"`
	TotalUpdates     int `json:"total_updates"`
	ThrottledUpdates int `json:"throttled_updates"`
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		TrackedTargets:   len(t.targets),
		TotalUpdates:     t.totalUpdates,
		ThrottledUpdates: t.throttledUpdates,
	}
}

func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.targets = make(map[string]*targetState)
	t.updatedAt = make(map[string]time.Time)
	t.scores.Purge()
}

// A >10 dBm signal swing or any client-count change warrants an immediate
// rescore regardless of the throttle interval.
func (t *Tracker) significantChange(state *targetState, signal, clients int) bool {
	if !state.scored {
		return true
	}
	if state.lastSignal != 0 && abs(signal-state.lastSignal) > 10 {
		return true
	}
	return clients != state.lastClients
}

func (t *Tracker) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, ts := range t.updatedAt {
		if oldestID == "" || ts.Before(oldest) {
			oldestID = id
			oldest = ts
		}
	}
	if oldestID != "" {
		delete(t.targets, oldestID)
		delete(t.updatedAt, oldestID)
		t.scores.Remove(oldestID)
	}
}

func (s *targetState) addSignal(signal, window int) int {
	if signal != 0 && signal != -1 {
		s.signalHistory = appendBounded(s.signalHistory, signal, window)
		s.lastSignal = signal
	}
	if len(s.signalHistory) == 0 {
		if s.lastSignal != 0 {
			return s.lastSignal
		}
		return -70
	}
	return average(s.signalHistory)
}

func (s *targetState) addClients(count, window int) int {
	s.clientHistory = appendBounded(s.clientHistory, count, window)
	s.lastClients = count
	return average(s.clientHistory)
}

func appendBounded(history []int, v, limit int) []int {
	history = append(history, v)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

func average(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return sum / len(values)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func canonicalID(identifier string) string {
	if mac, err := normalize.MAC(identifier); err == nil {
		return mac
	}
	return identifier
}
