package attack

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"airtriage/internal/model"
	"airtriage/internal/normalize"
	"airtriage/internal/scoring"
	"airtriage/internal/storage"
)

// Orchestrator admits attack requests, ranks them via the scoring engine,
// and drives record transitions as execution collaborators report back. It
// never runs an attack itself; executors poll NextQueued, mark Start, report
// progress, and finish with Complete or Fail.
type Orchestrator struct {
	store   *Store
	logger  *slog.Logger
	persist storage.Store
}

func NewOrchestrator(store *Store, logger *slog.Logger, persist storage.Store) *Orchestrator {
	return &Orchestrator{store: store, logger: logger, persist: persist}
}

// Submit queues an attack against a target. The observation is scored for
// ordering and telemetry only; scoring never blocks or fails admission. A
// duplicate active submission for the same target and kind yields
// ErrAlreadyActive.
func (o *Orchestrator) Submit(targetID string, kind model.AttackKind, obs model.Observation) (model.AttackRecord, error) {
	targetID = canonicalTarget(targetID)
	record, err := o.store.Create(targetID, kind)
	if err != nil {
		return model.AttackRecord{}, err
	}
	result := scoring.Score(obs)
	o.store.SetScore(targetID, kind, result)
	record.Score = result.Score
	record.Priority = result.Priority
	if o.logger != nil {
		o.logger.Info("attack queued",
			"target_id", targetID,
			"kind", kind,
			"score", result.Score,
			"priority", result.Priority,
		)
	}
	return record, nil
}

// NextQueued returns the queued record an executor should pick up next:
// highest score first, submission order on ties. Running records are never
// preempted; a caller wanting to displace one must Cancel it explicitly.
func (o *Orchestrator) NextQueued() (model.AttackRecord, bool) {
	queued := make([]model.AttackRecord, 0)
	for _, r := range o.store.ListActive() {
		if r.Status == model.StatusQueued {
			queued = append(queued, r)
		}
	}
	if len(queued) == 0 {
		return model.AttackRecord{}, false
	}
	// ListActive is submission-ordered; a stable sort keeps FIFO among equal
	// scores.
	sort.SliceStable(queued, func(i, j int) bool { return queued[i].Score > queued[j].Score })
	return queued[0], true
}

// Start marks a queued record as running.
func (o *Orchestrator) Start(targetID string, kind model.AttackKind) (model.AttackRecord, error) {
	record, err := o.store.Transition(canonicalTarget(targetID), kind, model.StatusRunning, TransitionFields{})
	if err != nil {
		return model.AttackRecord{}, err
	}
	if o.logger != nil {
		o.logger.Info("attack started", "target_id", record.TargetID, "kind", kind)
	}
	return record, nil
}

// Progress records executor progress on a running attack.
func (o *Orchestrator) Progress(targetID string, kind model.AttackKind, progress int, etaSeconds int) (model.AttackRecord, error) {
	return o.store.SetProgress(canonicalTarget(targetID), kind, progress, etaSeconds)
}

// Complete marks a running attack as successfully finished.
func (o *Orchestrator) Complete(targetID string, kind model.AttackKind, summary string) (model.AttackRecord, error) {
	return o.finish(targetID, kind, model.StatusCompleted, summary)
}

// Fail marks a running attack as failed, with the executor's reason.
func (o *Orchestrator) Fail(targetID string, kind model.AttackKind, reason string) (model.AttackRecord, error) {
	return o.finish(targetID, kind, model.StatusFailed, reason)
}

// Cancel transitions a queued or running record to cancelled. For a running
// attack this only marks intent; stopping the executor is the caller's job.
func (o *Orchestrator) Cancel(targetID string, kind model.AttackKind) (model.AttackRecord, error) {
	return o.finish(targetID, kind, model.StatusCancelled, "")
}

func (o *Orchestrator) finish(targetID string, kind model.AttackKind, status model.AttackStatus, summary string) (model.AttackRecord, error) {
	record, err := o.store.Transition(canonicalTarget(targetID), kind, status, TransitionFields{ResultSummary: summary})
	if err != nil {
		return model.AttackRecord{}, err
	}
	if o.logger != nil {
		o.logger.Info("attack finished",
			"target_id", record.TargetID,
			"kind", kind,
			"status", status,
			"result", record.ResultSummary,
		)
	}
	if o.persist != nil {
		if err := o.persist.SaveAttack(context.Background(), record); err != nil && o.logger != nil {
			o.logger.Warn("attack persist error", "err", err)
		}
	}
	return record, nil
}

// Store exposes the underlying record table for read-only consumers.
func (o *Orchestrator) Store() *Store {
	return o.store
}

func canonicalTarget(targetID string) string {
	if mac, err := normalize.MAC(targetID); err == nil {
		return mac
	}
	return strings.TrimSpace(targetID)
}
