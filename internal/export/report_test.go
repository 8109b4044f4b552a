package export

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/store/memory"
)

func TestBuildMonthlyReport(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	for _, tx := range []*domain.Transaction{
		{Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Description: "ăn sáng", Amount: -25000, Currency: "VND", Category: "Food"},
		{Date: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), Description: "cafe", Amount: -30000, Currency: "VND", Category: "Cafe & Dining Out"},
		{Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), Description: "lương", Amount: 20000000, Currency: "VND", Category: "Salary"},
		{Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), Description: "next month", Amount: -99, Currency: "VND", Category: "Other"},
	} {
		if _, err := st.InsertTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.UpsertBudget(ctx, &domain.BudgetRecord{Month: time.June, Year: 2025, Limit: 5000000}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertCategoryBudget(ctx, &domain.CategoryBudgetRecord{Month: time.June, Year: 2025, Category: "Transport", Amount: 500000}); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	report, err := BuildMonthlyReport(ctx, st, time.June, 2025, now)
	if err != nil {
		t.Fatalf("BuildMonthlyReport() error = %v", err)
	}

	if report.TotalSpent != 55000 {
		t.Errorf("TotalSpent = %d, want 55000", report.TotalSpent)
	}
	if report.TotalIncome != 20000000 {
		t.Errorf("TotalIncome = %d, want 20000000", report.TotalIncome)
	}
	if report.MonthlyLimit != 5000000 {
		t.Errorf("MonthlyLimit = %d, want 5000000", report.MonthlyLimit)
	}
	if len(report.Transactions) != 3 {
		t.Errorf("Transactions = %d rows, want 3 (July row excluded)", len(report.Transactions))
	}

	// Transport has a budget but no spend; it still gets a category row.
	var sawTransport bool
	for _, c := range report.Categories {
		if c.Category == "Transport" {
			sawTransport = true
			if c.Budget != 500000 || c.Spent != 0 {
				t.Errorf("Transport row = %+v, want budget 500000 and no spend", c)
			}
		}
	}
	if !sawTransport {
		t.Error("budget-only category missing from the report")
	}
}

type captureUploader struct {
	objectName string
	data       []byte
}

func (c *captureUploader) Upload(ctx context.Context, objectName string, data []byte) error {
	c.objectName = objectName
	c.data = data
	return nil
}

func TestExportMonth(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	if _, err := st.InsertTransaction(ctx, &domain.Transaction{
		Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Description: "cafe", Amount: -30000, Currency: "VND", Category: "Cafe & Dining Out",
	}); err != nil {
		t.Fatal(err)
	}

	uploader := &captureUploader{}
	exporter := NewExporter(st, uploader, zerolog.Nop(), func() time.Time {
		return time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	})

	name, err := exporter.ExportMonth(ctx, time.June, 2025)
	if err != nil {
		t.Fatalf("ExportMonth() error = %v", err)
	}
	if name != "reports/2025/06.json" {
		t.Errorf("object name = %q, want reports/2025/06.json", name)
	}

	var report MonthlyReport
	if err := json.Unmarshal(uploader.data, &report); err != nil {
		t.Fatalf("uploaded data is not valid JSON: %v", err)
	}
	if report.TotalSpent != 30000 {
		t.Errorf("uploaded TotalSpent = %d, want 30000", report.TotalSpent)
	}
}
