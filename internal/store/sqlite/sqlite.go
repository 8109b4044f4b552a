// Package sqlite is the file-backed Store for single-machine deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/store"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// Store wraps one sqlite database file.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and applies
// pending migrations.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (tx_date, description, amount, currency, category)
		VALUES (?, ?, ?, ?, ?)`,
		tx.Date.Format(dateLayout), tx.Description, tx.Amount, currencyOrDefault(tx.Currency), tx.Category,
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET tx_date = ?, description = ?, amount = ?, category = ?, updated_at = datetime('now')
		WHERE id = ?`,
		tx.Date.Format(dateLayout), tx.Description, tx.Amount, tx.Category, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (s *Store) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tx_date, description, amount, currency, category
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (s *Store) ListTransactionsByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tx_date, description, amount, currency, category
		FROM transactions
		WHERE tx_date >= ? AND tx_date <= ?
		ORDER BY tx_date, id`,
		from.Format(dateLayout), to.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) GetBudget(ctx context.Context, month time.Month, year int) (*domain.BudgetRecord, error) {
	rec := &domain.BudgetRecord{Month: month, Year: year}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, monthly_limit FROM budgets WHERE month = ? AND year = ?`,
		int(month), year,
	).Scan(&rec.ID, &rec.Limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return rec, nil
}

func (s *Store) UpsertBudget(ctx context.Context, rec *domain.BudgetRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (month, year, monthly_limit)
		VALUES (?, ?, ?)
		ON CONFLICT (month, year) DO UPDATE
		SET monthly_limit = excluded.monthly_limit, updated_at = datetime('now')`,
		int(rec.Month), rec.Year, rec.Limit,
	)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, month time.Month, year int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE month = ? AND year = ?`, int(month), year)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

func (s *Store) GetCategoryBudget(ctx context.Context, month time.Month, year int, category string) (*domain.CategoryBudgetRecord, error) {
	rec := &domain.CategoryBudgetRecord{Month: month, Year: year, Category: category}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, amount FROM category_budgets
		WHERE month = ? AND year = ? AND category = ?`,
		int(month), year, category,
	).Scan(&rec.ID, &rec.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category budget: %w", err)
	}
	return rec, nil
}

func (s *Store) ListCategoryBudgets(ctx context.Context, month time.Month, year int) ([]*domain.CategoryBudgetRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, amount FROM category_budgets
		WHERE month = ? AND year = ? ORDER BY category`,
		int(month), year,
	)
	if err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}
	defer rows.Close()

	var out []*domain.CategoryBudgetRecord
	for rows.Next() {
		rec := &domain.CategoryBudgetRecord{Month: month, Year: year}
		if err := rows.Scan(&rec.ID, &rec.Category, &rec.Amount); err != nil {
			return nil, fmt.Errorf("scan category budget: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCategoryBudget(ctx context.Context, rec *domain.CategoryBudgetRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_budgets (month, year, category, amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (month, year, category) DO UPDATE
		SET amount = excluded.amount, updated_at = datetime('now')`,
		int(rec.Month), rec.Year, rec.Category, rec.Amount,
	)
	if err != nil {
		return fmt.Errorf("upsert category budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteCategoryBudget(ctx context.Context, month time.Month, year int, category string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM category_budgets WHERE month = ? AND year = ? AND category = ?`,
		int(month), year, category,
	)
	if err != nil {
		return fmt.Errorf("delete category budget: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteAllCategoryBudgets(ctx context.Context, month time.Month, year int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM category_budgets WHERE month = ? AND year = ?`,
		int(month), year,
	)
	if err != nil {
		return 0, fmt.Errorf("delete all category budgets: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) AppendBudgetHistory(ctx context.Context, entry *domain.BudgetHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_history (month, year, category, previous_amount, current_amount, mode)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int(entry.Month), entry.Year, entry.Category, entry.Previous, entry.Current, string(entry.Mode),
	)
	if err != nil {
		return fmt.Errorf("append budget history: %w", err)
	}
	return nil
}

func (s *Store) ListBudgetHistory(ctx context.Context, month time.Month, year int) ([]*domain.BudgetHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, previous_amount, current_amount, mode, changed_at
		FROM budget_history WHERE month = ? AND year = ? ORDER BY id`,
		int(month), year,
	)
	if err != nil {
		return nil, fmt.Errorf("list budget history: %w", err)
	}
	defer rows.Close()

	var out []*domain.BudgetHistoryEntry
	for rows.Next() {
		entry := &domain.BudgetHistoryEntry{Month: month, Year: year}
		var mode, changedAt string
		if err := rows.Scan(&entry.ID, &entry.Category, &entry.Previous, &entry.Current, &mode, &changedAt); err != nil {
			return nil, fmt.Errorf("scan budget history: %w", err)
		}
		entry.Mode = domain.AdjustMode(mode)
		if t, err := time.Parse("2006-01-02 15:04:05", changedAt); err == nil {
			entry.ChangedAt = t
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	var dateStr string
	err := row.Scan(&tx.ID, &dateStr, &tx.Description, &tx.Amount, &tx.Currency, &tx.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Date, err = time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse transaction date %q: %w", dateStr, err)
	}
	return tx, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "VND"
	}
	return c
}

var _ store.Store = (*Store)(nil)
