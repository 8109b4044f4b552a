package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies user-visible failures. Every kind is non-fatal;
// the pipeline answers with a message instead of crashing.
type FailureKind string

const (
	// FailureParse: no amount, category, or identifier could be
	// extracted where one was required. The user is asked to rephrase.
	FailureParse FailureKind = "parse"
	// FailureValidation: the request was understood but rejected, e.g.
	// budget cap exceeded or a past-month edit.
	FailureValidation FailureKind = "validation"
	// FailurePersistence: the store errored on a read or write.
	FailurePersistence FailureKind = "persistence"
	// FailureNetwork: the generative AI call failed or returned
	// unusable data.
	FailureNetwork FailureKind = "network"
)

// Failure is the single error type the pipeline surfaces.
type Failure struct {
	Kind   FailureKind
	Reason string

	// RemainingCapacity is set on budget-cap rejections.
	RemainingCapacity int64
	// MinAllowedMonth is set on past-month rejections.
	MinAllowedMonth time.Time

	err error
}

func (f *Failure) Error() string {
	if f.err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Failure) Unwrap() error { return f.err }

func parseFailure(reason string) *Failure {
	return &Failure{Kind: FailureParse, Reason: reason}
}

func validationFailure(reason string) *Failure {
	return &Failure{Kind: FailureValidation, Reason: reason}
}

func persistenceFailure(reason string, err error) *Failure {
	return &Failure{Kind: FailurePersistence, Reason: reason, err: err}
}

func networkFailure(reason string, err error) *Failure {
	return &Failure{Kind: FailureNetwork, Reason: reason, err: err}
}

// IsFailure reports whether err is a pipeline Failure of the given kind.
func IsFailure(err error, kind FailureKind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}
