package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/money-assistant/internal/budget"
	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/nlp"
	"github.com/dvloznov/money-assistant/internal/store"
)

// executeOperation runs one typed operation against the store. Failures
// are recorded on the result; execution of the remaining operations in
// the utterance continues regardless.
func (p *Pipeline) executeOperation(ctx context.Context, op domain.Operation) OperationResult {
	res := OperationResult{Operation: op}

	var summary string
	var err error
	switch op.Domain {
	case domain.DomainExpense:
		summary, err = p.executeExpense(ctx, op)
	case domain.DomainMonthlyBudget:
		summary, err = p.executeMonthlyBudget(ctx, op)
	case domain.DomainCategoryBudget:
		summary, err = p.executeCategoryBudget(ctx, op)
	default:
		err = parseFailure(fmt.Sprintf("unsupported domain %q", op.Domain))
	}

	res.Summary = summary
	res.Err = err
	if err != nil {
		p.log.Warn().Err(err).
			Str("domain", string(op.Domain)).
			Str("action", string(op.Action)).
			Msg("Operation failed")
	}
	return res
}

func (p *Pipeline) executeExpense(ctx context.Context, op domain.Operation) (string, error) {
	switch op.Action {
	case domain.ActionAdd:
		return p.addExpense(ctx, op)
	case domain.ActionUpsert:
		return p.editExpense(ctx, op)
	case domain.ActionDelete:
		return p.deleteExpense(ctx, op)
	case domain.ActionQuery:
		return p.queryExpenses(ctx, op)
	default:
		return "", parseFailure(fmt.Sprintf("unsupported expense action %q", op.Action))
	}
}

// addExpense signs the amount at execution time: income categories store
// positive, everything else negative.
func (p *Pipeline) addExpense(ctx context.Context, op domain.Operation) (string, error) {
	amount := op.Amount
	if !nlp.IsIncomeCategory(op.Category) {
		amount = -amount
	}

	now := p.now()
	tx := &domain.Transaction{
		Date:        op.Date.Time,
		Description: op.Description,
		Amount:      amount,
		Currency:    "VND",
		Category:    op.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := p.store.InsertTransaction(ctx, tx)
	if err != nil {
		return "", persistenceFailure("could not save the transaction", err)
	}
	return fmt.Sprintf("Recorded %q (%s, %s VND) on %s as #%d",
		op.Description, op.Category, formatVND(op.Amount), op.Date.Time.Format("02/01/2006"), id), nil
}

// editExpense updates only the fields the utterance carried; a bare
// identifier with nothing to change is a parse failure, not a no-op.
func (p *Pipeline) editExpense(ctx context.Context, op domain.Operation) (string, error) {
	if !op.HasAmount && op.Category == "" {
		return "", parseFailure(fmt.Sprintf("nothing to change on #%d; include a new amount or category", op.TargetID))
	}

	tx, err := p.store.GetTransactionByID(ctx, op.TargetID)
	if errors.Is(err, store.ErrNotFound) {
		return "", validationFailure(fmt.Sprintf("no transaction #%d", op.TargetID))
	}
	if err != nil {
		return "", persistenceFailure("could not load the transaction", err)
	}

	if op.Category != "" {
		tx.Category = op.Category
	}
	if op.HasAmount {
		tx.Amount = op.Amount
		if !nlp.IsIncomeCategory(tx.Category) {
			tx.Amount = -op.Amount
		}
	}
	tx.UpdatedAt = p.now()

	if err := p.store.UpdateTransaction(ctx, tx); err != nil {
		return "", persistenceFailure("could not update the transaction", err)
	}
	return fmt.Sprintf("Updated #%d: %s, %s VND", tx.ID, tx.Category, formatVND(absAmount(tx.Amount))), nil
}

func (p *Pipeline) deleteExpense(ctx context.Context, op domain.Operation) (string, error) {
	err := p.store.DeleteTransaction(ctx, op.TargetID)
	if errors.Is(err, store.ErrNotFound) {
		return "", validationFailure(fmt.Sprintf("no transaction #%d", op.TargetID))
	}
	if err != nil {
		return "", persistenceFailure("could not delete the transaction", err)
	}
	return fmt.Sprintf("Deleted transaction #%d", op.TargetID), nil
}

func (p *Pipeline) queryExpenses(ctx context.Context, op domain.Operation) (string, error) {
	from, to := store.MonthRange(op.Date.Month, op.Date.Year)
	txs, err := p.store.ListTransactionsByDateRange(ctx, from, to)
	if err != nil {
		return "", persistenceFailure("could not list transactions", err)
	}

	var spent int64
	for _, tx := range txs {
		if tx.Amount < 0 {
			spent += -tx.Amount
		}
	}
	return fmt.Sprintf("%d transactions in %d/%d, %s VND spent",
		len(txs), op.Date.Month, op.Date.Year, formatVND(spent)), nil
}

func (p *Pipeline) executeMonthlyBudget(ctx context.Context, op domain.Operation) (string, error) {
	month, year := op.Date.Month, op.Date.Year

	switch op.Action {
	case domain.ActionUpsert:
		var previous int64
		rec, err := p.store.GetBudget(ctx, month, year)
		switch {
		case err == nil:
			previous = rec.Limit
		case errors.Is(err, store.ErrNotFound):
			// first cap for this month
		default:
			return "", persistenceFailure("could not load the budget", err)
		}

		next := budget.ApplyMode(previous, op.Amount, op.Mode)
		if err := p.store.UpsertBudget(ctx, &domain.BudgetRecord{
			Month:     month,
			Year:      year,
			Limit:     next,
			UpdatedAt: p.now(),
		}); err != nil {
			return "", persistenceFailure("could not save the budget", err)
		}
		p.recordHistory(ctx, month, year, "", previous, next, op.Mode)
		return fmt.Sprintf("Monthly budget for %d/%d is now %s VND", month, year, formatVND(next)), nil

	case domain.ActionDelete:
		err := p.store.DeleteBudget(ctx, month, year)
		if errors.Is(err, store.ErrNotFound) {
			return "", validationFailure(fmt.Sprintf("no budget set for %d/%d", month, year))
		}
		if err != nil {
			return "", persistenceFailure("could not delete the budget", err)
		}
		return fmt.Sprintf("Removed the monthly budget for %d/%d", month, year), nil

	case domain.ActionQuery:
		snap, err := store.Snapshot(ctx, p.store, month, year)
		if err != nil {
			return "", persistenceFailure("could not load the budget", err)
		}
		if snap.MonthlyLimit == 0 {
			return fmt.Sprintf("No monthly budget set for %d/%d", month, year), nil
		}
		return fmt.Sprintf("Monthly budget for %d/%d: %s VND, %s VND allocated to categories",
			month, year, formatVND(snap.MonthlyLimit), formatVND(snap.Allocated())), nil

	default:
		return "", parseFailure(fmt.Sprintf("unsupported budget action %q", op.Action))
	}
}

func (p *Pipeline) executeCategoryBudget(ctx context.Context, op domain.Operation) (string, error) {
	month, year := op.Date.Month, op.Date.Year

	switch op.Action {
	case domain.ActionUpsert:
		snap, err := store.Snapshot(ctx, p.store, month, year)
		if err != nil {
			return "", persistenceFailure("could not load the budget state", err)
		}

		next := budget.ApplyMode(snap.Allocations[op.Category], op.Amount, op.Mode)
		if err := budget.Validate(snap, op.Category, next); err != nil {
			var capErr *budget.CapExceededError
			if errors.As(err, &capErr) {
				f := validationFailure(fmt.Sprintf("allocating %s VND to %s would exceed the monthly budget; %s VND remain",
					formatVND(capErr.Proposed), op.Category, formatVND(capErr.RemainingCapacity)))
				f.RemainingCapacity = capErr.RemainingCapacity
				return "", f
			}
			return "", validationFailure(err.Error())
		}

		previous := snap.Allocations[op.Category]
		if err := p.store.UpsertCategoryBudget(ctx, &domain.CategoryBudgetRecord{
			Month:     month,
			Year:      year,
			Category:  op.Category,
			Amount:    next,
			UpdatedAt: p.now(),
		}); err != nil {
			return "", persistenceFailure("could not save the allocation", err)
		}
		p.recordHistory(ctx, month, year, op.Category, previous, next, op.Mode)
		return fmt.Sprintf("Budget for %s in %d/%d is now %s VND", op.Category, month, year, formatVND(next)), nil

	case domain.ActionDelete:
		if op.Category == "" {
			return p.deleteAllCategoryBudgets(ctx, month, year)
		}
		err := p.store.DeleteCategoryBudget(ctx, month, year, op.Category)
		if errors.Is(err, store.ErrNotFound) {
			return "", validationFailure(fmt.Sprintf("no budget for %s in %d/%d", op.Category, month, year))
		}
		if err != nil {
			return "", persistenceFailure("could not delete the allocation", err)
		}
		return fmt.Sprintf("Removed the %s budget for %d/%d", op.Category, month, year), nil

	case domain.ActionQuery:
		allocations, err := p.store.ListCategoryBudgets(ctx, month, year)
		if err != nil {
			return "", persistenceFailure("could not list allocations", err)
		}
		if len(allocations) == 0 {
			return fmt.Sprintf("No category budgets set for %d/%d", month, year), nil
		}
		parts := make([]string, 0, len(allocations))
		for _, a := range allocations {
			parts = append(parts, fmt.Sprintf("%s %s VND", a.Category, formatVND(a.Amount)))
		}
		return fmt.Sprintf("Category budgets for %d/%d: %s", month, year, strings.Join(parts, ", ")), nil

	default:
		return "", parseFailure(fmt.Sprintf("unsupported budget action %q", op.Action))
	}
}

func (p *Pipeline) deleteAllCategoryBudgets(ctx context.Context, month time.Month, year int) (string, error) {
	snap, err := store.Snapshot(ctx, p.store, month, year)
	if err != nil {
		return "", persistenceFailure("could not load the budget state", err)
	}
	if err := budget.ValidateDeleteAll(snap); err != nil {
		return "", validationFailure(err.Error())
	}

	removed, err := p.store.DeleteAllCategoryBudgets(ctx, month, year)
	if err != nil {
		return "", persistenceFailure("could not delete the allocations", err)
	}
	return fmt.Sprintf("Removed %d category budgets for %d/%d", removed, month, year), nil
}

// recordHistory appends the audit entry best-effort; the mutation already
// happened and is not rolled back when the append fails.
func (p *Pipeline) recordHistory(ctx context.Context, month time.Month, year int, category string, previous, current int64, mode domain.AdjustMode) {
	if mode == "" {
		mode = domain.ModeSet
	}
	err := p.store.AppendBudgetHistory(ctx, &domain.BudgetHistoryEntry{
		Month:     month,
		Year:      year,
		Category:  category,
		Previous:  previous,
		Current:   current,
		Mode:      mode,
		ChangedAt: p.now(),
	})
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to append budget history")
	}
}

func absAmount(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// formatVND renders an amount with dot thousand separators, the way
// Vietnamese banking apps print money.
func formatVND(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
