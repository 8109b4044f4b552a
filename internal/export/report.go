// Package export builds monthly report documents and uploads them to
// Cloud Storage for archival and spreadsheet imports.
package export

import (
	"context"
	"sort"
	"time"

	"github.com/dvloznov/money-assistant/internal/store"
)

// MonthlyReport is the archival document for one month: every
// transaction plus the budget state, self-contained for downstream
// consumers that cannot query the store.
type MonthlyReport struct {
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalSpent   int64 `json:"total_spent"`
	TotalIncome  int64 `json:"total_income"`
	MonthlyLimit int64 `json:"monthly_limit,omitempty"`

	Categories   []CategorySummary  `json:"categories"`
	Transactions []TransactionEntry `json:"transactions"`
}

// CategorySummary aggregates one category's month.
type CategorySummary struct {
	Category string `json:"category"`
	Spent    int64  `json:"spent"`
	Budget   int64  `json:"budget,omitempty"`
}

// TransactionEntry is one row of the report.
type TransactionEntry struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"` // YYYY-MM-DD
	Description string `json:"description"`
	Amount      int64  `json:"amount"` // signed VND
	Category    string `json:"category"`
}

// BuildMonthlyReport assembles the report for one (month, year) from the
// store.
func BuildMonthlyReport(ctx context.Context, s store.Store, month time.Month, year int, now time.Time) (*MonthlyReport, error) {
	from, to := store.MonthRange(month, year)
	txs, err := s.ListTransactionsByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	snap, err := store.Snapshot(ctx, s, month, year)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{
		Month:        int(month),
		Year:         year,
		GeneratedAt:  now,
		MonthlyLimit: snap.MonthlyLimit,
	}

	spentByCategory := make(map[string]int64)
	for _, tx := range txs {
		if tx.Amount < 0 {
			report.TotalSpent += -tx.Amount
			spentByCategory[tx.Category] += -tx.Amount
		} else {
			report.TotalIncome += tx.Amount
		}
		report.Transactions = append(report.Transactions, TransactionEntry{
			ID:          tx.ID,
			Date:        tx.Date.Format("2006-01-02"),
			Description: tx.Description,
			Amount:      tx.Amount,
			Category:    tx.Category,
		})
	}

	// Every category that has either spend or a budget gets a row.
	seen := make(map[string]bool)
	for cat, spent := range spentByCategory {
		report.Categories = append(report.Categories, CategorySummary{
			Category: cat,
			Spent:    spent,
			Budget:   snap.Allocations[cat],
		})
		seen[cat] = true
	}
	for cat, budget := range snap.Allocations {
		if !seen[cat] {
			report.Categories = append(report.Categories, CategorySummary{
				Category: cat,
				Budget:   budget,
			})
		}
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		return report.Categories[i].Category < report.Categories[j].Category
	})

	return report, nil
}
