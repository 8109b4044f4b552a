package pipeline

import (
	"github.com/dvloznov/money-assistant/internal/domain"
)

// Request is one user utterance plus the optional screen context.
type Request struct {
	Text string
	// ModeFlag, when set by the surrounding shell, pins the domain and
	// overrides text-based inference (the user already opened a
	// specific screen).
	ModeFlag domain.Domain
	// SessionID ties the request to a UI session for logging and
	// cancellation; results for torn-down sessions are dropped by the
	// caller, never applied retroactively.
	SessionID string
}

// OperationResult is the outcome of executing one operation.
type OperationResult struct {
	Operation domain.Operation
	Summary   string // human-readable outcome
	Err       error  // nil on success; otherwise a *Failure
}

// OK reports whether the operation succeeded.
func (r OperationResult) OK() bool { return r.Err == nil }

// Response aggregates everything one utterance produced.
type Response struct {
	Results []OperationResult
	// Reply is the chat answer for free-form questions.
	Reply string
	// RefreshScopes lists the on-screen aggregates invalidated by the
	// request's successful mutations.
	RefreshScopes []string
}

// Mutated reports whether any operation changed the store.
func (r *Response) Mutated() bool {
	for _, res := range r.Results {
		if res.OK() && res.Operation.Action != domain.ActionQuery {
			return true
		}
	}
	return false
}
