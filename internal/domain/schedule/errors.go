package schedule

import "errors"

var (
	// ErrValidation covers missing or malformed required input.
	ErrValidation = errors.New("validation failed")
	// ErrProtocolNotFound means no protocol matched, even via the wildcard
	// category fallback.
	ErrProtocolNotFound = errors.New("no protocol found for medication and category")
	// ErrDuplicateActiveSchedule means the patient already has a
	// non-terminal schedule for the same protocol.
	ErrDuplicateActiveSchedule = errors.New("patient already has an active schedule for this protocol")
	// ErrNotFound covers absent schedules and milestones.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted rejects completing a milestone twice.
	ErrAlreadyCompleted = errors.New("milestone already completed")
	// ErrInvalidTransition rejects illegal schedule status changes.
	ErrInvalidTransition = errors.New("invalid schedule status transition")
)
