package attack

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"airtriage/internal/model"
)

func TestSnapshotShape(t *testing.T) {
	s := NewStore(50)
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(10 * time.Second)
		return clock
	}
	agg := NewAggregator(s, 5)
	agg.now = func() time.Time { return clock }

	mustCreate(t, s, "aa:bb:cc:00:00:01", model.AttackDeauth)
	mustTransition(t, s, "aa:bb:cc:00:00:01", model.AttackDeauth, model.StatusRunning)
	mustCreate(t, s, "aa:bb:cc:00:00:02", model.AttackWPSPixie)
	mustTransition(t, s, "aa:bb:cc:00:00:02", model.AttackWPSPixie, model.StatusRunning)
	mustTransition(t, s, "aa:bb:cc:00:00:02", model.AttackWPSPixie, model.StatusCompleted)

	snap := agg.Snapshot()
	if snap.RunningCount != 1 {
		t.Fatalf("running = %d, want 1", snap.RunningCount)
	}
	if snap.TotalCompleted != 1 {
		t.Fatalf("completed = %d, want 1", snap.TotalCompleted)
	}
	if len(snap.Recent) != 2 {
		t.Fatalf("recent = %d entries, want 2", len(snap.Recent))
	}
	if snap.Recent[0].TargetID != "aa:bb:cc:00:00:02" {
		t.Fatalf("most recent first, got %s", snap.Recent[0].TargetID)
	}
	// Terminal record: elapsed is start to end, one clock tick.
	if snap.Recent[0].ElapsedSeconds != 10 {
		t.Fatalf("terminal elapsed = %d, want 10", snap.Recent[0].ElapsedSeconds)
	}
	// Running record: elapsed keeps growing toward now.
	if snap.Recent[1].ElapsedSeconds <= 0 {
		t.Fatalf("running elapsed should be positive, got %d", snap.Recent[1].ElapsedSeconds)
	}
}

func TestSnapshotRecentLimit(t *testing.T) {
	s := NewStore(50)
	agg := NewAggregator(s, 3)
	for i := 0; i < 6; i++ {
		target := fmt.Sprintf("aa:bb:cc:00:00:%02d", i)
		mustCreate(t, s, target, model.AttackDeauth)
	}
	snap := agg.Snapshot()
	if len(snap.Recent) != 3 {
		t.Fatalf("recent limit not applied: %d", len(snap.Recent))
	}
}

func TestQueuedRecordHasZeroElapsed(t *testing.T) {
	s := NewStore(50)
	agg := NewAggregator(s, 5)
	mustCreate(t, s, "aa:bb:cc:00:00:01", model.AttackDeauth)
	snap := agg.Snapshot()
	if len(snap.Recent) != 1 || snap.Recent[0].ElapsedSeconds != 0 {
		t.Fatalf("queued record should report zero elapsed: %+v", snap.Recent)
	}
}

// Counters and the recent list come from one lock acquisition, so the running
// and completed counts must always agree with the statuses in the recent list
// when that list covers every record.
func TestSnapshotCountersMatchRecent(t *testing.T) {
	s := NewStore(100)
	agg := NewAggregator(s, 100)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			target := fmt.Sprintf("aa:bb:cc:00:01:%02d", i)
			if _, err := s.Create(target, model.AttackDeauth); err != nil {
				continue
			}
			if _, err := s.Transition(target, model.AttackDeauth, model.StatusRunning, TransitionFields{}); err != nil {
				continue
			}
			_, _ = s.Transition(target, model.AttackDeauth, model.StatusCompleted, TransitionFields{})
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := agg.Snapshot()
		running, completed := 0, 0
		for _, r := range snap.Recent {
			switch r.Status {
			case model.StatusRunning:
				running++
			case model.StatusCompleted:
				completed++
			}
		}
		if running != snap.RunningCount {
			t.Fatalf("running count %d disagrees with recent list (%d running entries)", snap.RunningCount, running)
		}
		if completed != snap.TotalCompleted {
			t.Fatalf("completed count %d disagrees with recent list (%d completed entries)", snap.TotalCompleted, completed)
		}
	}
	<-done
}

// Snapshot must stay internally consistent while submissions and transitions
// race against it.
func TestSnapshotUnderConcurrency(t *testing.T) {
	s := NewStore(500)
	agg := NewAggregator(s, 5)
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				target := fmt.Sprintf("aa:bb:cc:%02d:00:%02d", worker, i)
				if _, err := s.Create(target, model.AttackDeauth); err != nil {
					continue
				}
				if _, err := s.Transition(target, model.AttackDeauth, model.StatusRunning, TransitionFields{}); err != nil {
					continue
				}
				status := model.StatusCompleted
				if i%3 == 0 {
					status = model.StatusFailed
				}
				_, _ = s.Transition(target, model.AttackDeauth, status, TransitionFields{})
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			snap := agg.Snapshot()
			if snap.RunningCount < 0 || snap.TotalCompleted < 0 {
				t.Errorf("negative counters: %+v", snap)
				return
			}
			if len(snap.Recent) > 5 {
				t.Errorf("recent exceeded limit: %d", len(snap.Recent))
				return
			}
		}
	}()

	wg.Wait()
	<-done

	c := s.Counters()
	if c.Running != 0 {
		t.Fatalf("all attacks terminal, running = %d", c.Running)
	}
	if c.Completed+c.Failed != 200 {
		t.Fatalf("terminal counts = %d, want 200", c.Completed+c.Failed)
	}
}
