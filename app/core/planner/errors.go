package planner

import (
	"errors"
	"fmt"
)

// ValidationError-class failures: a precondition failed locally, before any
// language call was made. Session state is untouched when these are returned.
var (
	ErrEmptyTask       = errors.New("task text is empty")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrNoUnderstanding = errors.New("no task understanding available")
	ErrNoPlan          = errors.New("no plan available")
	ErrUnknownQuestion = errors.New("unknown question id")
	ErrBusy            = errors.New("another request is already in flight")
)

// PhaseError reports a transition attempted from the wrong phase. Only an
// explicit StartOver may discard session data; submitting a new task over an
// existing plan is rejected with this error rather than guessed at.
type PhaseError struct {
	Op   string
	Have Phase
	Want []Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: not allowed in phase %q (want %v)", e.Op, e.Have, e.Want)
}

// InconsistentPlanError reports a generated plan whose derived fields or step
// numbering cannot be reconciled with its steps. Callers treat it like any
// other generation failure; the inconsistent plan is never displayed.
type InconsistentPlanError struct {
	Reason string
}

func (e *InconsistentPlanError) Error() string {
	return fmt.Sprintf("inconsistent plan: %s", e.Reason)
}
