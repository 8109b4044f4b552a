package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/store"
)

func TestTransactionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.InsertTransaction(ctx, &domain.Transaction{
		Date:        time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		Description: "ăn sáng",
		Amount:      -25000,
		Currency:    "VND",
		Category:    "Food",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetTransactionByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != -25000 || got.Category != "Food" {
		t.Errorf("got %+v", got)
	}

	got.Amount = -30000
	if err := s.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := s.GetTransactionByID(ctx, id)
	if updated.Amount != -30000 {
		t.Errorf("amount after update = %d, want -30000", updated.Amount)
	}

	if err := s.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransactionByID(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete: %v, want ErrNotFound", err)
	}
}

func TestListTransactionsByDateRange(t *testing.T) {
	ctx := context.Background()
	s := New()

	dates := []time.Time{
		time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		if _, err := s.InsertTransaction(ctx, &domain.Transaction{Date: d, Amount: -1000, Category: "Other"}); err != nil {
			t.Fatal(err)
		}
	}

	from, to := store.MonthRange(time.June, 2025)
	got, err := s.ListTransactionsByDateRange(ctx, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d transactions in June, want 2", len(got))
	}
}

func TestBudgetUpsertIsNotCumulative(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, limit := range []int64{5000000, 7000000} {
		if err := s.UpsertBudget(ctx, &domain.BudgetRecord{Month: time.June, Year: 2025, Limit: limit}); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := s.GetBudget(ctx, time.June, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Limit != 7000000 {
		t.Errorf("limit = %d, want 7000000 (absolute set replaces)", rec.Limit)
	}
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.UpsertBudget(ctx, &domain.BudgetRecord{Month: time.June, Year: 2025, Limit: 2000000}); err != nil {
		t.Fatal(err)
	}
	for cat, amount := range map[string]int64{"Food": 1000000, "Transport": 800000} {
		err := s.UpsertCategoryBudget(ctx, &domain.CategoryBudgetRecord{
			Month: time.June, Year: 2025, Category: cat, Amount: amount,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	snap, err := store.Snapshot(ctx, s, time.June, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if snap.MonthlyLimit != 2000000 {
		t.Errorf("limit = %d", snap.MonthlyLimit)
	}
	if snap.Allocated() != 1800000 {
		t.Errorf("allocated = %d, want 1800000", snap.Allocated())
	}

	// A month with no records reads as all zeros, not an error.
	empty, err := store.Snapshot(ctx, s, time.January, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if empty.MonthlyLimit != 0 || len(empty.Allocations) != 0 {
		t.Errorf("empty snapshot = %+v", empty)
	}
}

func TestDeleteAllCategoryBudgets(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, cat := range []string{"Food", "Transport"} {
		if err := s.UpsertCategoryBudget(ctx, &domain.CategoryBudgetRecord{Month: time.June, Year: 2025, Category: cat, Amount: 100}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.UpsertCategoryBudget(ctx, &domain.CategoryBudgetRecord{Month: time.July, Year: 2025, Category: "Food", Amount: 100}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.DeleteAllCategoryBudgets(ctx, time.June, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	left, _ := s.ListCategoryBudgets(ctx, time.July, 2025)
	if len(left) != 1 {
		t.Errorf("July allocations = %d, want 1 (untouched)", len(left))
	}
}
