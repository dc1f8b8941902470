package workflow

import "errors"

// Caller-visible failure kinds. Handlers branch on these with errors.Is; none
// of them is retried automatically.
var (
	// ErrNotFound reports an unknown record id.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition reports a status edge not present in the
	// transition table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTerminalState reports a mutation attempted on an implemented or
	// cancelled CAPA.
	ErrTerminalState = errors.New("capa is in a terminal state")

	// ErrDuplicateCapa reports a second CAPA attempted for an evaluation
	// item that already has a non-cancelled CAPA linked.
	ErrDuplicateCapa = errors.New("a capa already exists for this item")

	// ErrPermissionDenied reports an actor without edit scope on the
	// CAPA's department.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation reports a missing or out-of-range field, including a
	// missing reason note on hold/cancel/complete.
	ErrValidation = errors.New("validation failed")
)
