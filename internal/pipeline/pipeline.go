// Package pipeline turns free-form utterances into validated, typed
// financial operations and executes them against the store. The same
// operation construction runs online and offline; only free-form chat
// needs the generative AI collaborator.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/money-assistant/internal/ai"
	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/nlp"
	"github.com/dvloznov/money-assistant/internal/store"
)

// Options configures a Pipeline. Zero values are usable: no assistant,
// always-offline oracle, no refresh signaling.
type Options struct {
	Assistant Assistant
	Oracle    ConnectivityOracle
	Refresh   RefreshPublisher
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Pipeline is the command interpretation and routing engine. The store
// handle is injected; there is no ambient global state, and nothing is
// cached across requests.
type Pipeline struct {
	router    *nlp.Router
	segmenter *nlp.Segmenter
	store     store.Store
	assistant Assistant
	oracle    ConnectivityOracle
	refresh   RefreshPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// New builds a pipeline over the given store.
func New(st store.Store, opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	oracle := opts.Oracle
	if oracle == nil {
		oracle = OracleFunc(func(context.Context) bool { return false })
	}
	return &Pipeline{
		router:    nlp.NewRouter(),
		segmenter: &nlp.Segmenter{Now: now},
		store:     st,
		assistant: opts.Assistant,
		oracle:    oracle,
		refresh:   opts.Refresh,
		log:       opts.Logger,
		now:       now,
	}
}

// HandleUtterance runs one utterance through routing, segmentation,
// validation, and execution. The returned error is always a *Failure
// describing a whole-request rejection; partial per-operation failures
// live inside the Response.
func (p *Pipeline) HandleUtterance(ctx context.Context, req Request) (*Response, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, parseFailure("empty request")
	}

	route := p.router.Route(text, req.ModeFlag)
	online := p.oracle.Online(ctx)

	p.log.Debug().
		Str("session_id", req.SessionID).
		Str("domain", string(route.Domain)).
		Str("action", string(route.Action)).
		Str("rule", route.Rule).
		Bool("online", online).
		Msg("Routed utterance")

	if route.Domain == domain.DomainChat {
		return p.handleChat(ctx, text, online)
	}

	// Past-month guard: budget add/edit never touches closed months.
	// Deletes pass; removing a stale record is always allowed.
	// Checked before segmentation so the rejection is immediate.
	if isBudgetDomain(route.Domain) && (route.Action == domain.ActionUpsert || route.Action == domain.ActionAdd) {
		month, year := nlp.ExtractMonthYear(text, p.now())
		if domain.MonthSpec(month, year).BeforeMonth(p.now()) {
			f := validationFailure(fmt.Sprintf("cannot modify budgets for past months (%d/%d)", month, year))
			f.MinAllowedMonth = time.Date(p.now().Year(), p.now().Month(), 1, 0, 0, 0, 0, time.UTC)
			return nil, f
		}
	}

	ops := p.segmenter.Segment(text, route)
	if len(ops) == 0 {
		return nil, parseFailure(clarification(route))
	}

	resp := &Response{}
	for _, op := range ops {
		resp.Results = append(resp.Results, p.executeOperation(ctx, op))
	}

	p.signalRefresh(ctx, resp)
	return resp, nil
}

// handleChat forwards free-form questions to the assistant. When the
// reply carries a structured expense object, it is executed as exactly
// one add operation, the same way the offline path would.
func (p *Pipeline) handleChat(ctx context.Context, text string, online bool) (*Response, error) {
	if !online || p.assistant == nil {
		return nil, networkFailure("the assistant needs a connection for open-ended questions", nil)
	}

	instruction := ai.BuildChatInstruction(p.monthSummary(ctx))
	reply, err := p.assistant.Chat(ctx, instruction, text)
	if err != nil {
		return nil, networkFailure("assistant call failed", err)
	}

	// Structured replies become one add operation.
	if parsed, perr := ai.ParseExpenseReply(reply); perr == nil {
		op := p.operationFromReply(parsed)
		resp := &Response{Results: []OperationResult{p.executeOperation(ctx, op)}}
		p.signalRefresh(ctx, resp)
		return resp, nil
	}

	// The chat model answered in prose, but an utterance carrying digits
	// usually describes a transaction. Ask for a strict-JSON extraction
	// before settling for the prose.
	if strings.ContainsAny(text, "0123456789") {
		if parsed, perr := p.assistant.ExtractExpense(ctx, text, nlp.CategoryNames()); perr == nil {
			op := p.operationFromReply(parsed)
			resp := &Response{Results: []OperationResult{p.executeOperation(ctx, op)}}
			p.signalRefresh(ctx, resp)
			return resp, nil
		}
	}

	return &Response{Reply: reply}, nil
}

// operationFromReply translates the assistant's structured JSON into an
// add operation, re-resolving the category against the canonical table.
func (p *Pipeline) operationFromReply(reply *ai.ExpenseReply) domain.Operation {
	date := p.now()
	if reply.Year >= 2000 && reply.Month >= 1 && reply.Month <= 12 && reply.Day >= 1 && reply.Day <= 31 {
		candidate := time.Date(reply.Year, time.Month(reply.Month), reply.Day, 0, 0, 0, 0, time.UTC)
		if candidate.Day() == reply.Day {
			date = candidate
		}
	}

	category := nlp.ResolveCategory(reply.Category)
	if reply.Type == "income" && !nlp.IsIncomeCategory(category) {
		category = "Salary"
	}

	return domain.Operation{
		Action:      domain.ActionAdd,
		Domain:      domain.DomainExpense,
		Category:    category,
		Amount:      reply.Amount,
		HasAmount:   true,
		Date:        domain.DaySpec(date),
		Description: reply.Name,
	}
}

// monthSummary builds the context bundle for chat: a compact view of the
// current month's spending and budget. Best-effort; chat proceeds without
// it when the store is unhappy.
func (p *Pipeline) monthSummary(ctx context.Context) string {
	now := p.now()
	from, to := store.MonthRange(now.Month(), now.Year())

	txs, err := p.store.ListTransactionsByDateRange(ctx, from, to)
	if err != nil {
		p.log.Warn().Err(err).Msg("Month summary unavailable")
		return ""
	}

	var spent, income int64
	byCategory := make(map[string]int64)
	for _, tx := range txs {
		if tx.Amount < 0 {
			spent += -tx.Amount
			byCategory[tx.Category] += -tx.Amount
		} else {
			income += tx.Amount
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Month %d/%d: spent %d VND, income %d VND across %d transactions.\n",
		now.Month(), now.Year(), spent, income, len(txs))
	for cat, amount := range byCategory {
		fmt.Fprintf(&b, "- %s: %d VND\n", cat, amount)
	}

	if snap, err := store.Snapshot(ctx, p.store, now.Month(), now.Year()); err == nil && snap.MonthlyLimit > 0 {
		fmt.Fprintf(&b, "Monthly budget: %d VND, allocated %d VND.\n", snap.MonthlyLimit, snap.Allocated())
	}
	return b.String()
}

func (p *Pipeline) signalRefresh(ctx context.Context, resp *Response) {
	var applied []domain.Operation
	for _, res := range resp.Results {
		if res.OK() && res.Operation.Action != domain.ActionQuery {
			applied = append(applied, res.Operation)
		}
	}
	if len(applied) == 0 {
		return
	}

	scopes := refreshScopesFor(applied)
	resp.RefreshScopes = scopes
	if p.refresh == nil {
		return
	}

	// Scope the signal to the month the mutation touched; a backdated
	// expense invalidates that month's aggregates, not the current one.
	month, year := int(applied[0].Date.Month), applied[0].Date.Year
	if err := p.refresh.PublishRefresh(ctx, scopes, month, year); err != nil {
		p.log.Warn().Err(err).Msg("Failed to publish refresh signal")
	}
}

func refreshScopesFor(ops []domain.Operation) []string {
	scopes := map[string]bool{}
	for _, op := range ops {
		switch op.Domain {
		case domain.DomainExpense:
			scopes[RefreshRecentTransactions] = true
			scopes[RefreshMonthlyTotals] = true
			scopes[RefreshCategoryBreakdown] = true
		case domain.DomainMonthlyBudget:
			scopes[RefreshMonthlyTotals] = true
		case domain.DomainCategoryBudget:
			scopes[RefreshCategoryBreakdown] = true
		}
	}
	out := make([]string, 0, len(scopes))
	for _, s := range []string{RefreshRecentTransactions, RefreshMonthlyTotals, RefreshCategoryBreakdown} {
		if scopes[s] {
			out = append(out, s)
		}
	}
	return out
}

func isBudgetDomain(d domain.Domain) bool {
	return d == domain.DomainMonthlyBudget || d == domain.DomainCategoryBudget
}

func clarification(route nlp.Route) string {
	switch {
	case route.Domain == domain.DomainCategoryBudget:
		return "please name a category and an amount, e.g. \"ăn uống 2 triệu\""
	case route.Domain == domain.DomainMonthlyBudget:
		return "please include an amount, e.g. \"2 triệu\""
	case route.Action == domain.ActionDelete || route.Action == domain.ActionUpsert:
		return "please include the record id, e.g. #123"
	default:
		return "no amount found in the request"
	}
}
