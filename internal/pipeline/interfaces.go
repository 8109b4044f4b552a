package pipeline

import (
	"context"

	"github.com/dvloznov/money-assistant/internal/ai"
)

// Assistant is the generative AI collaborator. Only its input/output
// contract matters here; implementations live in internal/ai.
type Assistant interface {
	// Chat sends a free-form query with a system instruction and
	// returns the model's text reply.
	Chat(ctx context.Context, systemInstruction, userQuery string) (string, error)

	// ExtractExpense asks for one structured expense object.
	ExtractExpense(ctx context.Context, utterance string, categories []string) (*ai.ExpenseReply, error)
}

// ConnectivityOracle answers "is the device online", consulted once per
// utterance before choosing the online or offline path.
type ConnectivityOracle interface {
	Online(ctx context.Context) bool
}

// OracleFunc adapts a function to the ConnectivityOracle interface.
type OracleFunc func(ctx context.Context) bool

func (f OracleFunc) Online(ctx context.Context) bool { return f(ctx) }

// Refresh scopes name the on-screen aggregates a mutation invalidates.
const (
	RefreshRecentTransactions = "recent_transactions"
	RefreshMonthlyTotals      = "monthly_totals"
	RefreshCategoryBreakdown  = "category_breakdown"
)

// RefreshPublisher notifies the UI shell which aggregates to reload.
// A nil publisher disables signaling.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, scopes []string, month int, year int) error
}
