package domain

import (
	"time"
)

// Domain identifies which part of the finance model an operation targets.
type Domain string

const (
	DomainExpense        Domain = "expense"
	DomainMonthlyBudget  Domain = "monthly_budget"
	DomainCategoryBudget Domain = "category_budget"
	DomainChat           Domain = "chat"
)

// Action is what an operation does to its target.
type Action string

const (
	ActionAdd Action = "add"
	// ActionUpsert covers add-or-edit requests where the store decides
	// create-vs-update based on whether a record already exists for the scope.
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
	ActionQuery  Action = "query"
)

// AdjustMode selects absolute-set versus relative-delta semantics for
// budget adjustments.
type AdjustMode string

const (
	// ModeSet replaces the stored value outright.
	ModeSet AdjustMode = "set"
	// ModeIncrease adds the amount to the current value.
	ModeIncrease AdjustMode = "increase"
	// ModeDecrease subtracts the amount from the current value,
	// clamping at zero.
	ModeDecrease AdjustMode = "decrease"
)

// DateSpec is either a resolved calendar date or a (month, year) pair for
// budget-scoped operations.
type DateSpec struct {
	Time      time.Time  // day-resolved date; zero when MonthOnly
	Month     time.Month
	Year      int
	MonthOnly bool
}

// DaySpec builds a day-resolved DateSpec.
func DaySpec(t time.Time) DateSpec {
	return DateSpec{Time: t, Month: t.Month(), Year: t.Year()}
}

// MonthSpec builds a month-scoped DateSpec.
func MonthSpec(month time.Month, year int) DateSpec {
	return DateSpec{Month: month, Year: year, MonthOnly: true}
}

// BeforeMonth reports whether the DateSpec's (month, year) is strictly before
// the given reference time's (month, year).
func (d DateSpec) BeforeMonth(ref time.Time) bool {
	if d.Year != ref.Year() {
		return d.Year < ref.Year()
	}
	return d.Month < ref.Month()
}

// Operation is a fully-typed instruction derived from user text, ready for
// execution against the store. Operations are built once per utterance,
// executed, and discarded; they are never retried or replayed.
type Operation struct {
	Action Action
	Domain Domain

	Category    string // canonical category name, "" when not applicable
	Amount      int64  // VND, non-negative at the parsing layer
	HasAmount   bool
	Date        DateSpec
	Description string

	TargetID int64 // record identifier for targeted edit/delete
	Mode     AdjustMode
}
