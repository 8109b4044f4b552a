// Package memory is an in-memory Store used by tests and as the default
// backend. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/store"
)

type budgetKey struct {
	month time.Month
	year  int
}

type allocationKey struct {
	month    time.Month
	year     int
	category string
}

// Store holds all records behind one mutex. Copies go in and out so
// callers can never mutate shared state.
type Store struct {
	mu sync.RWMutex

	nextID       int64
	transactions map[int64]*domain.Transaction
	budgets      map[budgetKey]*domain.BudgetRecord
	allocations  map[allocationKey]*domain.CategoryBudgetRecord
	history      []*domain.BudgetHistoryEntry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		transactions: make(map[int64]*domain.Transaction),
		budgets:      make(map[budgetKey]*domain.BudgetRecord),
		allocations:  make(map[allocationKey]*domain.CategoryBudgetRecord),
	}
}

func (s *Store) nextSequence() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	cp.ID = s.nextSequence()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.transactions[cp.ID] = &cp
	return cp.ID, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[tx.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *tx
	cp.UpdatedAt = time.Now()
	s.transactions[tx.ID] = &cp
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *Store) ListTransactionsByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetBudget(ctx context.Context, month time.Month, year int) (*domain.BudgetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.budgets[budgetKey{month, year}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) UpsertBudget(ctx context.Context, rec *domain.BudgetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	key := budgetKey{rec.Month, rec.Year}
	if existing, ok := s.budgets[key]; ok {
		cp.ID = existing.ID
	} else {
		cp.ID = s.nextSequence()
	}
	cp.UpdatedAt = time.Now()
	s.budgets[key] = &cp
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, month time.Month, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := budgetKey{month, year}
	if _, ok := s.budgets[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.budgets, key)
	return nil
}

func (s *Store) GetCategoryBudget(ctx context.Context, month time.Month, year int, category string) (*domain.CategoryBudgetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.allocations[allocationKey{month, year, category}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) ListCategoryBudgets(ctx context.Context, month time.Month, year int) ([]*domain.CategoryBudgetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.CategoryBudgetRecord
	for key, rec := range s.allocations {
		if key.month == month && key.year == year {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) UpsertCategoryBudget(ctx context.Context, rec *domain.CategoryBudgetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	key := allocationKey{rec.Month, rec.Year, rec.Category}
	if existing, ok := s.allocations[key]; ok {
		cp.ID = existing.ID
	} else {
		cp.ID = s.nextSequence()
	}
	cp.UpdatedAt = time.Now()
	s.allocations[key] = &cp
	return nil
}

func (s *Store) DeleteCategoryBudget(ctx context.Context, month time.Month, year int, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := allocationKey{month, year, category}
	if _, ok := s.allocations[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.allocations, key)
	return nil
}

func (s *Store) DeleteAllCategoryBudgets(ctx context.Context, month time.Month, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for key := range s.allocations {
		if key.month == month && key.year == year {
			delete(s.allocations, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) AppendBudgetHistory(ctx context.Context, entry *domain.BudgetHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	cp.ID = s.nextSequence()
	if cp.ChangedAt.IsZero() {
		cp.ChangedAt = time.Now()
	}
	s.history = append(s.history, &cp)
	return nil
}

func (s *Store) ListBudgetHistory(ctx context.Context, month time.Month, year int) ([]*domain.BudgetHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.BudgetHistoryEntry
	for _, entry := range s.history {
		if entry.Month == month && entry.Year == year {
			cp := *entry
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
