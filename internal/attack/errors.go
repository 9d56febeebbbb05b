package attack

import "errors"

var (
	// ErrAlreadyActive is returned when a queued or running record already
	// exists for the same target and kind. Callers should poll instead of
	// resubmitting.
	ErrAlreadyActive = errors.New("attack already active for target")

	// ErrNotFound is returned for transitions against unknown keys. This is
	// a caller bug and is surfaced, not swallowed.
	ErrNotFound = errors.New("attack record not found")

	// ErrInvalidTransition is returned for state changes the machine does
	// not allow, such as completing an already-terminal record.
	ErrInvalidTransition = errors.New("invalid attack status transition")

	// ErrInvalidProgress is returned when an executor reports progress that
	// regresses or is reported outside the running state. The record is left
	// unchanged so the misbehaving executor can be debugged.
	ErrInvalidProgress = errors.New("invalid progress update")
)
