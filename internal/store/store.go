// Package store defines the persistence contract the pipeline executes
// against. Implementations live in subpackages; the pipeline receives an
// explicit Store handle and holds no ambient database state.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/money-assistant/internal/domain"
)

// ErrNotFound is returned when a record does not exist for the given scope.
var ErrNotFound = errors.New("store: record not found")

// Store is the persistence collaborator for transactions, budgets,
// category allocations, and the budget audit trail. Every method takes a
// context; implementations must be safe for concurrent use.
type Store interface {
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error)
	ListTransactionsByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error)

	GetBudget(ctx context.Context, month time.Month, year int) (*domain.BudgetRecord, error)
	UpsertBudget(ctx context.Context, rec *domain.BudgetRecord) error
	DeleteBudget(ctx context.Context, month time.Month, year int) error

	GetCategoryBudget(ctx context.Context, month time.Month, year int, category string) (*domain.CategoryBudgetRecord, error)
	ListCategoryBudgets(ctx context.Context, month time.Month, year int) ([]*domain.CategoryBudgetRecord, error)
	UpsertCategoryBudget(ctx context.Context, rec *domain.CategoryBudgetRecord) error
	DeleteCategoryBudget(ctx context.Context, month time.Month, year int, category string) error
	DeleteAllCategoryBudgets(ctx context.Context, month time.Month, year int) (int, error)

	AppendBudgetHistory(ctx context.Context, entry *domain.BudgetHistoryEntry) error
	ListBudgetHistory(ctx context.Context, month time.Month, year int) ([]*domain.BudgetHistoryEntry, error)

	Close() error
}

// Snapshot recomputes the budget state for one (month, year) from the
// store. Missing records read as zero values, never as errors.
//
// Two concurrent requests against the same month can both read a stale
// snapshot and both pass validation; there is no cross-request lock. This
// race is accepted and documented rather than serialized.
func Snapshot(ctx context.Context, s Store, month time.Month, year int) (*domain.BudgetSnapshot, error) {
	snap := &domain.BudgetSnapshot{
		Month:       month,
		Year:        year,
		Allocations: make(map[string]int64),
	}

	rec, err := s.GetBudget(ctx, month, year)
	switch {
	case err == nil:
		snap.MonthlyLimit = rec.Limit
	case errors.Is(err, ErrNotFound):
		// unset cap
	default:
		return nil, err
	}

	allocations, err := s.ListCategoryBudgets(ctx, month, year)
	if err != nil {
		return nil, err
	}
	for _, a := range allocations {
		snap.Allocations[a.Category] = a.Amount
	}
	return snap, nil
}

// MonthRange returns the [first, last] day bounds of a month for
// date-range queries.
func MonthRange(month time.Month, year int) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return first, last
}
