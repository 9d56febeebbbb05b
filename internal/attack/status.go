package attack

import (
	"time"

	"airtriage/internal/model"
)

// Aggregator is the read-only status view polling consumers hit repeatedly.
// It reads counters and the bounded recent list; it never scans full history
// and never waits on an executor.
type Aggregator struct {
	store       *Store
	recentLimit int
	now         func() time.Time
}

const defaultRecentLimit = 5

func NewAggregator(store *Store, recentLimit int) *Aggregator {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	return &Aggregator{
		store:       store,
		recentLimit: recentLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot returns the aggregate attack status: running and completed counts
// plus the most recent records across all kinds and statuses, most recent
// first.
func (a *Aggregator) Snapshot() model.Snapshot {
	counters, records := a.store.StatusView(a.recentLimit)
	now := a.now()
	recent := make([]model.RecentAttack, 0, len(records))
	for _, r := range records {
		recent = append(recent, model.RecentAttack{
			TargetID:       r.TargetID,
			Kind:           r.Kind,
			Status:         r.Status,
			Progress:       r.Progress,
			ElapsedSeconds: elapsedSeconds(r, now),
		})
	}
	return model.Snapshot{
		RunningCount:   counters.Running,
		TotalCompleted: counters.Completed,
		Recent:         recent,
	}
}

func elapsedSeconds(r model.AttackRecord, now time.Time) int64 {
	if r.StartedAt == nil {
		return 0
	}
	end := now
	if r.EndedAt != nil {
		end = *r.EndedAt
	}
	d := end.Sub(*r.StartedAt)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}
