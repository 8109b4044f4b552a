// Package budget enforces the invariant that category allocations never
// exceed the monthly cap.
package budget

import (
	"fmt"

	"github.com/dvloznov/money-assistant/internal/domain"
)

// CapExceededError reports a rejected allocation together with how much
// room the month still has for the target category.
type CapExceededError struct {
	Category          string
	Proposed          int64
	MonthlyLimit      int64
	RemainingCapacity int64
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("allocation %d for %q exceeds the monthly cap %d; remaining capacity %d",
		e.Proposed, e.Category, e.MonthlyLimit, e.RemainingCapacity)
}

// Validate checks a proposed category allocation against the snapshot.
//
// A monthly limit of zero means the cap is unset; every allocation is
// accepted. Otherwise the sum of all other allocations plus the proposal
// must not exceed the limit. The snapshot is recomputed from the store on
// every call; nothing is cached across requests.
func Validate(snapshot *domain.BudgetSnapshot, category string, proposed int64) error {
	if snapshot.MonthlyLimit == 0 {
		return nil
	}

	otherTotal := snapshot.AllocatedExcept(category)
	if otherTotal+proposed > snapshot.MonthlyLimit {
		return &CapExceededError{
			Category:          category,
			Proposed:          proposed,
			MonthlyLimit:      snapshot.MonthlyLimit,
			RemainingCapacity: snapshot.MonthlyLimit - otherTotal,
		}
	}
	return nil
}

// ValidateDeleteAll checks a delete-all request. Removing allocations can
// never violate the cap, so the only failure is having nothing to remove.
func ValidateDeleteAll(snapshot *domain.BudgetSnapshot) error {
	if len(snapshot.Allocations) == 0 {
		return fmt.Errorf("no category allocations exist for %v %d", snapshot.Month, snapshot.Year)
	}
	return nil
}

// ApplyMode computes the stored value a budget adjustment produces.
// Decreases clamp at zero rather than failing.
func ApplyMode(current, amount int64, mode domain.AdjustMode) int64 {
	switch mode {
	case domain.ModeIncrease:
		return current + amount
	case domain.ModeDecrease:
		next := current - amount
		if next < 0 {
			return 0
		}
		return next
	default:
		return amount
	}
}
