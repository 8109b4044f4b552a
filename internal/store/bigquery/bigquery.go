// Package bigquery is the cloud-hosted Store backend. Row structs map the
// domain records into the assistant dataset; all queries are parameterized
// and run through one injected client.
package bigquery

import (
	"context"
	"fmt"
	"time"

	bq "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/store"
)

const (
	transactionsTable    = "transactions"
	budgetsTable         = "budgets"
	categoryBudgetsTable = "category_budgets"
	budgetHistoryTable   = "budget_history"
)

// TransactionRow is the transactions table schema.
type TransactionRow struct {
	TransactionID string           `bigquery:"transaction_id"` // REQUIRED
	NumericID     int64            `bigquery:"numeric_id"`     // REQUIRED, user-facing #id
	TxDate        civil.Date       `bigquery:"tx_date"`        // REQUIRED
	Description   string           `bigquery:"description"`
	Amount        int64            `bigquery:"amount"` // VND, signed
	Currency      string           `bigquery:"currency"`
	Category      string           `bigquery:"category"`
	CreatedTS     time.Time        `bigquery:"created_ts"`
	UpdatedTS     bq.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// BudgetRow is the budgets table schema, one row per (month, year).
type BudgetRow struct {
	BudgetID     string    `bigquery:"budget_id"`
	Month        int64     `bigquery:"month"`
	Year         int64     `bigquery:"year"`
	MonthlyLimit int64     `bigquery:"monthly_limit"`
	UpdatedTS    time.Time `bigquery:"updated_ts"`
}

// CategoryBudgetRow is one category allocation within a month.
type CategoryBudgetRow struct {
	AllocationID string    `bigquery:"allocation_id"`
	Month        int64     `bigquery:"month"`
	Year         int64     `bigquery:"year"`
	Category     string    `bigquery:"category"`
	Amount       int64     `bigquery:"amount"`
	UpdatedTS    time.Time `bigquery:"updated_ts"`
}

// BudgetHistoryRow is one audit entry for a budget mutation.
type BudgetHistoryRow struct {
	EntryID        string    `bigquery:"entry_id"`
	Month          int64     `bigquery:"month"`
	Year           int64     `bigquery:"year"`
	Category       string    `bigquery:"category"`
	PreviousAmount int64     `bigquery:"previous_amount"`
	CurrentAmount  int64     `bigquery:"current_amount"`
	Mode           string    `bigquery:"mode"`
	ChangedTS      time.Time `bigquery:"changed_ts"`
}

// Store implements store.Store on BigQuery.
type Store struct {
	client  *bq.Client
	project string
	dataset string
	nowFn   func() time.Time
}

// New creates the backend with its own client.
func New(ctx context.Context, project, dataset string) (*Store, error) {
	client, err := bq.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return NewWithClient(client, project, dataset), nil
}

// NewWithClient wraps an existing client; the caller owns its lifetime
// only if it skips Close on the store.
func NewWithClient(client *bq.Client, project, dataset string) *Store {
	return &Store{client: client, project: project, dataset: dataset, nowFn: time.Now}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) table(name string) *bq.Table {
	return s.client.DatasetInProject(s.project, s.dataset).Table(name)
}

func (s *Store) qualified(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, s.dataset, name)
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (int64, error) {
	numericID := s.nowFn().UnixMilli()
	row := &TransactionRow{
		TransactionID: uuid.New().String(),
		NumericID:     numericID,
		TxDate:        civil.DateOf(tx.Date),
		Description:   tx.Description,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Category:      tx.Category,
		CreatedTS:     s.nowFn(),
	}
	if err := s.table(transactionsTable).Inserter().Put(ctx, row); err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return numericID, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET tx_date = @tx_date, description = @description,
		    amount = @amount, category = @category, updated_ts = CURRENT_TIMESTAMP()
		WHERE numeric_id = @id`, s.qualified(transactionsTable)))
	q.Parameters = []bq.QueryParameter{
		{Name: "tx_date", Value: civil.DateOf(tx.Date)},
		{Name: "description", Value: tx.Description},
		{Name: "amount", Value: tx.Amount},
		{Name: "category", Value: tx.Category},
		{Name: "id", Value: tx.ID},
	}
	return s.runMutation(ctx, q, "update transaction")
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	q := s.client.Query(fmt.Sprintf(
		`DELETE FROM %s WHERE numeric_id = @id`, s.qualified(transactionsTable)))
	q.Parameters = []bq.QueryParameter{{Name: "id", Value: id}}
	return s.runMutation(ctx, q, "delete transaction")
}

func (s *Store) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT numeric_id, tx_date, description, amount, currency, category
		FROM %s WHERE numeric_id = @id LIMIT 1`, s.qualified(transactionsTable)))
	q.Parameters = []bq.QueryParameter{{Name: "id", Value: id}}

	rows, err := s.readTransactions(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) ListTransactionsByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT numeric_id, tx_date, description, amount, currency, category
		FROM %s
		WHERE tx_date >= @from AND tx_date <= @to
		ORDER BY tx_date, numeric_id`, s.qualified(transactionsTable)))
	q.Parameters = []bq.QueryParameter{
		{Name: "from", Value: civil.DateOf(from)},
		{Name: "to", Value: civil.DateOf(to)},
	}
	return s.readTransactions(ctx, q)
}

func (s *Store) readTransactions(ctx context.Context, q *bq.Query) ([]*domain.Transaction, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}

	var out []*domain.Transaction
	for {
		var row struct {
			NumericID   int64      `bigquery:"numeric_id"`
			TxDate      civil.Date `bigquery:"tx_date"`
			Description string     `bigquery:"description"`
			Amount      int64      `bigquery:"amount"`
			Currency    string     `bigquery:"currency"`
			Category    string     `bigquery:"category"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate transactions: %w", err)
		}
		out = append(out, &domain.Transaction{
			ID:          row.NumericID,
			Date:        row.TxDate.In(time.UTC),
			Description: row.Description,
			Amount:      row.Amount,
			Currency:    row.Currency,
			Category:    row.Category,
		})
	}
	return out, nil
}

func (s *Store) GetBudget(ctx context.Context, month time.Month, year int) (*domain.BudgetRecord, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT monthly_limit FROM %s
		WHERE month = @month AND year = @year LIMIT 1`, s.qualified(budgetsTable)))
	q.Parameters = scopeParams(month, year)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	var row struct {
		MonthlyLimit int64 `bigquery:"monthly_limit"`
	}
	switch err := it.Next(&row); err {
	case nil:
		return &domain.BudgetRecord{Month: month, Year: year, Limit: row.MonthlyLimit}, nil
	case iterator.Done:
		return nil, store.ErrNotFound
	default:
		return nil, fmt.Errorf("get budget: %w", err)
	}
}

func (s *Store) UpsertBudget(ctx context.Context, rec *domain.BudgetRecord) error {
	q := s.client.Query(fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @month AS month, @year AS year) src
		ON t.month = src.month AND t.year = src.year
		WHEN MATCHED THEN
		  UPDATE SET monthly_limit = @limit, updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN
		  INSERT (budget_id, month, year, monthly_limit, updated_ts)
		  VALUES (@budget_id, @month, @year, @limit, CURRENT_TIMESTAMP())`,
		s.qualified(budgetsTable)))
	q.Parameters = append(scopeParams(rec.Month, rec.Year),
		bq.QueryParameter{Name: "limit", Value: rec.Limit},
		bq.QueryParameter{Name: "budget_id", Value: uuid.New().String()},
	)
	return s.runMutation(ctx, q, "upsert budget")
}

func (s *Store) DeleteBudget(ctx context.Context, month time.Month, year int) error {
	q := s.client.Query(fmt.Sprintf(
		`DELETE FROM %s WHERE month = @month AND year = @year`, s.qualified(budgetsTable)))
	q.Parameters = scopeParams(month, year)
	return s.runMutation(ctx, q, "delete budget")
}

func (s *Store) GetCategoryBudget(ctx context.Context, month time.Month, year int, category string) (*domain.CategoryBudgetRecord, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT amount FROM %s
		WHERE month = @month AND year = @year AND category = @category
		LIMIT 1`, s.qualified(categoryBudgetsTable)))
	q.Parameters = append(scopeParams(month, year),
		bq.QueryParameter{Name: "category", Value: category})

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("get category budget: %w", err)
	}
	var row struct {
		Amount int64 `bigquery:"amount"`
	}
	switch err := it.Next(&row); err {
	case nil:
		return &domain.CategoryBudgetRecord{Month: month, Year: year, Category: category, Amount: row.Amount}, nil
	case iterator.Done:
		return nil, store.ErrNotFound
	default:
		return nil, fmt.Errorf("get category budget: %w", err)
	}
}

func (s *Store) ListCategoryBudgets(ctx context.Context, month time.Month, year int) ([]*domain.CategoryBudgetRecord, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT category, amount FROM %s
		WHERE month = @month AND year = @year
		ORDER BY category`, s.qualified(categoryBudgetsTable)))
	q.Parameters = scopeParams(month, year)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}

	var out []*domain.CategoryBudgetRecord
	for {
		var row struct {
			Category string `bigquery:"category"`
			Amount   int64  `bigquery:"amount"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate category budgets: %w", err)
		}
		out = append(out, &domain.CategoryBudgetRecord{
			Month: month, Year: year, Category: row.Category, Amount: row.Amount,
		})
	}
	return out, nil
}

func (s *Store) UpsertCategoryBudget(ctx context.Context, rec *domain.CategoryBudgetRecord) error {
	q := s.client.Query(fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @month AS month, @year AS year, @category AS category) src
		ON t.month = src.month AND t.year = src.year AND t.category = src.category
		WHEN MATCHED THEN
		  UPDATE SET amount = @amount, updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN
		  INSERT (allocation_id, month, year, category, amount, updated_ts)
		  VALUES (@allocation_id, @month, @year, @category, @amount, CURRENT_TIMESTAMP())`,
		s.qualified(categoryBudgetsTable)))
	q.Parameters = append(scopeParams(rec.Month, rec.Year),
		bq.QueryParameter{Name: "category", Value: rec.Category},
		bq.QueryParameter{Name: "amount", Value: rec.Amount},
		bq.QueryParameter{Name: "allocation_id", Value: uuid.New().String()},
	)
	return s.runMutation(ctx, q, "upsert category budget")
}

func (s *Store) DeleteCategoryBudget(ctx context.Context, month time.Month, year int, category string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s WHERE month = @month AND year = @year AND category = @category`,
		s.qualified(categoryBudgetsTable)))
	q.Parameters = append(scopeParams(month, year),
		bq.QueryParameter{Name: "category", Value: category})
	return s.runMutation(ctx, q, "delete category budget")
}

func (s *Store) DeleteAllCategoryBudgets(ctx context.Context, month time.Month, year int) (int, error) {
	existing, err := s.ListCategoryBudgets(ctx, month, year)
	if err != nil {
		return 0, err
	}
	if len(existing) == 0 {
		return 0, nil
	}

	q := s.client.Query(fmt.Sprintf(
		`DELETE FROM %s WHERE month = @month AND year = @year`, s.qualified(categoryBudgetsTable)))
	q.Parameters = scopeParams(month, year)
	if err := s.runMutation(ctx, q, "delete all category budgets"); err != nil {
		return 0, err
	}
	return len(existing), nil
}

func (s *Store) AppendBudgetHistory(ctx context.Context, entry *domain.BudgetHistoryEntry) error {
	row := &BudgetHistoryRow{
		EntryID:        uuid.New().String(),
		Month:          int64(entry.Month),
		Year:           int64(entry.Year),
		Category:       entry.Category,
		PreviousAmount: entry.Previous,
		CurrentAmount:  entry.Current,
		Mode:           string(entry.Mode),
		ChangedTS:      s.nowFn(),
	}
	if err := s.table(budgetHistoryTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("append budget history: %w", err)
	}
	return nil
}

func (s *Store) ListBudgetHistory(ctx context.Context, month time.Month, year int) ([]*domain.BudgetHistoryEntry, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT category, previous_amount, current_amount, mode, changed_ts
		FROM %s WHERE month = @month AND year = @year
		ORDER BY changed_ts`, s.qualified(budgetHistoryTable)))
	q.Parameters = scopeParams(month, year)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budget history: %w", err)
	}

	var out []*domain.BudgetHistoryEntry
	for {
		var row struct {
			Category       string    `bigquery:"category"`
			PreviousAmount int64     `bigquery:"previous_amount"`
			CurrentAmount  int64     `bigquery:"current_amount"`
			Mode           string    `bigquery:"mode"`
			ChangedTS      time.Time `bigquery:"changed_ts"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate budget history: %w", err)
		}
		out = append(out, &domain.BudgetHistoryEntry{
			Month:     month,
			Year:      year,
			Category:  row.Category,
			Previous:  row.PreviousAmount,
			Current:   row.CurrentAmount,
			Mode:      domain.AdjustMode(row.Mode),
			ChangedAt: row.ChangedTS,
		})
	}
	return out, nil
}

// runMutation executes a DML statement and waits for the job to finish.
func (s *Store) runMutation(ctx context.Context, q *bq.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: wait: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job: %w", op, err)
	}
	return nil
}

func scopeParams(month time.Month, year int) []bq.QueryParameter {
	return []bq.QueryParameter{
		{Name: "month", Value: int64(month)},
		{Name: "year", Value: int64(year)},
	}
}

var _ store.Store = (*Store)(nil)
