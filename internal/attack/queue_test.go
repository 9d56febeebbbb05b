package attack

import (
	"errors"
	"testing"

	"airtriage/internal/model"
)

func newOrchestratorForTest() *Orchestrator {
	return NewOrchestrator(NewStore(50), nil, nil)
}

func obsFor(identifier string, signal int) model.Observation {
	return model.Observation{
		Identifier: identifier,
		SignalDbm:  signal,
		DeviceType: "laptop",
	}
}

func TestSubmitScoresForOrdering(t *testing.T) {
	o := newOrchestratorForTest()
	record, err := o.Submit("AA-BB-CC-00-11-22", model.AttackDeauth, obsFor("aa:bb:cc:00:11:22", -40))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.Status != model.StatusQueued {
		t.Fatalf("expected queued, got %s", record.Status)
	}
	if record.Score <= 0 {
		t.Fatalf("expected score telemetry on record, got %v", record.Score)
	}
	if record.TargetID != "aa:bb:cc:00:11:22" {
		t.Fatalf("target not normalized: %s", record.TargetID)
	}
}

func TestSubmitNeverFailsOnBadObservation(t *testing.T) {
	o := newOrchestratorForTest()
	// Scoring is advisory; a garbage observation must still admit the attack.
	record, err := o.Submit("aa:bb:cc:00:11:22", model.AttackDeauth, model.Observation{Identifier: "garbage"})
	if err != nil {
		t.Fatalf("submit with malformed observation: %v", err)
	}
	if record.Status != model.StatusQueued {
		t.Fatalf("expected queued, got %s", record.Status)
	}
}

func TestDuplicateSubmission(t *testing.T) {
	o := newOrchestratorForTest()
	if _, err := o.Submit("aa:bb:cc:00:11:22", model.AttackDeauth, obsFor("aa:bb:cc:00:11:22", -50)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := o.Submit("aa:bb:cc:00:11:22", model.AttackDeauth, obsFor("aa:bb:cc:00:11:22", -50)); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	if _, err := o.Start("aa:bb:cc:00:11:22", model.AttackDeauth); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := o.Submit("aa:bb:cc:00:11:22", model.AttackDeauth, obsFor("aa:bb:cc:00:11:22", -50)); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("running record must still block submission, got %v", err)
	}
	if _, err := o.Complete("aa:bb:cc:00:11:22", model.AttackDeauth, "cracked"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := o.Submit("aa:bb:cc:00:11:22", model.AttackDeauth, obsFor("aa:bb:cc:00:11:22", -50)); err != nil {
		t.Fatalf("submission after completion should succeed: %v", err)
	}
}

func TestNextQueuedOrdersByScore(t *testing.T) {
	o := newOrchestratorForTest()
	// Weak signal scores lower than strong signal.
	if _, err := o.Submit("aa:bb:cc:00:00:01", model.AttackDeauth, obsFor("aa:bb:cc:00:00:01", -85)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := o.Submit("aa:bb:cc:00:00:02", model.AttackDeauth, obsFor("aa:bb:cc:00:00:02", -35)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	next, ok := o.NextQueued()
	if !ok {
		t.Fatalf("expected a queued record")
	}
	if next.TargetID != "aa:bb:cc:00:00:02" {
		t.Fatalf("expected stronger-signal target first, got %s", next.TargetID)
	}
}

func TestNextQueuedFIFOOnTies(t *testing.T) {
	o := newOrchestratorForTest()
	// Unparseable identifiers carry no jitter, so identical observations tie.
	obs := model.Observation{SignalDbm: -60, DeviceType: "laptop"}
	if _, err := o.Submit("first", model.AttackDeauth, obs); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := o.Submit("second", model.AttackDeauth, obs); err != nil {
		t.Fatalf("submit: %v", err)
	}
	next, ok := o.NextQueued()
	if !ok || next.TargetID != "first" {
		t.Fatalf("expected FIFO tie-break, got %+v", next)
	}
}

func TestNextQueuedSkipsRunning(t *testing.T) {
	o := newOrchestratorForTest()
	if _, err := o.Submit("aa:bb:cc:00:00:01", model.AttackDeauth, obsFor("aa:bb:cc:00:00:01", -35)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := o.Submit("aa:bb:cc:00:00:02", model.AttackDeauth, obsFor("aa:bb:cc:00:00:02", -85)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := o.Start("aa:bb:cc:00:00:01", model.AttackDeauth); err != nil {
		t.Fatalf("start: %v", err)
	}
	next, ok := o.NextQueued()
	if !ok || next.TargetID != "aa:bb:cc:00:00:02" {
		t.Fatalf("running record must not be offered again, got %+v", next)
	}
	if next.Status != model.StatusQueued {
		t.Fatalf("expected queued record, got %s", next.Status)
	}
}

func TestCancelQueuedAndRunning(t *testing.T) {
	o := newOrchestratorForTest()
	if _, err := o.Submit("aa:bb:cc:00:00:01", model.AttackDeauth, obsFor("aa:bb:cc:00:00:01", -50)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	record, err := o.Cancel("aa:bb:cc:00:00:01", model.AttackDeauth)
	if err != nil {
		t.Fatalf("cancel queued: %v", err)
	}
	if record.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", record.Status)
	}

	if _, err := o.Submit("aa:bb:cc:00:00:02", model.AttackWPSPixie, obsFor("aa:bb:cc:00:00:02", -50)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := o.Start("aa:bb:cc:00:00:02", model.AttackWPSPixie); err != nil {
		t.Fatalf("start: %v", err)
	}
	record, err = o.Cancel("aa:bb:cc:00:00:02", model.AttackWPSPixie)
	if err != nil {
		t.Fatalf("cancel running: %v", err)
	}
	if record.Status != model.StatusCancelled || record.EndedAt == nil {
		t.Fatalf("cancelled running record not finalized: %+v", record)
	}
}

func TestCancelUnknown(t *testing.T) {
	o := newOrchestratorForTest()
	if _, err := o.Cancel("aa:bb:cc:00:00:09", model.AttackDeauth); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
