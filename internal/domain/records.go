package domain

import (
	"time"
)

// Transaction is one recorded income or expense. Amount is signed: expenses
// are negative, income positive. The sign is applied by the executing action,
// never by the parsing layer.
type Transaction struct {
	ID          int64
	Date        time.Time
	Description string
	Amount      int64 // VND, signed
	Currency    string
	Category    string // canonical category name
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BudgetRecord is the monthly spending cap for one (month, year).
// A Limit of zero means the cap is unset and advisory only.
type BudgetRecord struct {
	ID        int64
	Month     time.Month
	Year      int
	Limit     int64 // VND
	UpdatedAt time.Time
}

// CategoryBudgetRecord is one category's allocation within a month.
type CategoryBudgetRecord struct {
	ID        int64
	Month     time.Month
	Year      int
	Category  string
	Amount    int64 // VND
	UpdatedAt time.Time
}

// BudgetHistoryEntry records one budget mutation for auditing.
// Category is empty for monthly-cap changes.
type BudgetHistoryEntry struct {
	ID        int64
	Month     time.Month
	Year      int
	Category  string
	Previous  int64
	Current   int64
	Mode      AdjustMode
	ChangedAt time.Time
}

// BudgetSnapshot is the budget state for one (month, year), recomputed from
// the store on every validation call.
type BudgetSnapshot struct {
	Month        time.Month
	Year         int
	MonthlyLimit int64
	Allocations  map[string]int64 // canonical category -> allocated amount
}

// Allocated returns the sum of all category allocations.
func (s *BudgetSnapshot) Allocated() int64 {
	var total int64
	for _, amount := range s.Allocations {
		total += amount
	}
	return total
}

// AllocatedExcept returns the sum of all category allocations except the
// named one. Used when validating a write to that category.
func (s *BudgetSnapshot) AllocatedExcept(category string) int64 {
	var total int64
	for cat, amount := range s.Allocations {
		if cat != category {
			total += amount
		}
	}
	return total
}
