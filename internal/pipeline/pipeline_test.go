package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/money-assistant/internal/ai"
	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/store"
	"github.com/dvloznov/money-assistant/internal/store/memory"
)

var testNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

type mockAssistant struct {
	reply        string
	err          error
	extractReply *ai.ExpenseReply
	extractErr   error
	chatCalls    int
	extractCalls int
}

func (m *mockAssistant) Chat(ctx context.Context, systemInstruction, userQuery string) (string, error) {
	m.chatCalls++
	return m.reply, m.err
}

func (m *mockAssistant) ExtractExpense(ctx context.Context, utterance string, categories []string) (*ai.ExpenseReply, error) {
	m.extractCalls++
	if m.extractReply == nil && m.extractErr == nil {
		return nil, errors.New("no extraction configured")
	}
	return m.extractReply, m.extractErr
}

type refreshRecorder struct {
	published [][]string
	months    []int
	years     []int
}

func (r *refreshRecorder) PublishRefresh(ctx context.Context, scopes []string, month, year int) error {
	r.published = append(r.published, scopes)
	r.months = append(r.months, month)
	r.years = append(r.years, year)
	return nil
}

func newTestPipeline(st store.Store, online bool, assistant Assistant, refresh RefreshPublisher) *Pipeline {
	return New(st, Options{
		Assistant: assistant,
		Oracle:    OracleFunc(func(context.Context) bool { return online }),
		Refresh:   refresh,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return testNow },
	})
}

func TestHandleUtteranceExpenseAdd(t *testing.T) {
	st := memory.New()
	refresh := &refreshRecorder{}
	p := newTestPipeline(st, false, nil, refresh)

	resp, err := p.HandleUtterance(context.Background(), Request{Text: "Hôm qua ăn sáng 25k"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one success", resp.Results)
	}

	from, to := store.MonthRange(time.June, 2025)
	txs, err := st.ListTransactionsByDateRange(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("stored %d transactions, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Amount != -25000 {
		t.Errorf("Amount = %d, want -25000", tx.Amount)
	}
	if tx.Category != "Food" {
		t.Errorf("Category = %q, want Food", tx.Category)
	}
	if tx.Date.Day() != 14 || tx.Date.Month() != time.June {
		t.Errorf("Date = %v, want 14 June", tx.Date)
	}

	if len(refresh.published) != 1 {
		t.Errorf("published %d refresh signals, want 1", len(refresh.published))
	}
	if len(resp.RefreshScopes) == 0 || resp.RefreshScopes[0] != RefreshRecentTransactions {
		t.Errorf("RefreshScopes = %v, want recent_transactions first", resp.RefreshScopes)
	}
}

func TestHandleUtteranceMultiSegment(t *testing.T) {
	st := memory.New()
	p := newTestPipeline(st, false, nil, nil)

	resp, err := p.HandleUtterance(context.Background(), Request{Text: "ăn sáng 25k và cafe 30k"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	for _, res := range resp.Results {
		if !res.OK() {
			t.Errorf("operation failed: %v", res.Err)
		}
	}
}

// The structured domains take the same code path online and offline; only
// chat needs the assistant. Same utterance, same stored rows.
func TestOnlineOfflineEquivalence(t *testing.T) {
	text := "Hôm qua ăn sáng 25k và cafe 30k"

	run := func(online bool) []*domain.Transaction {
		st := memory.New()
		assistant := &mockAssistant{reply: "should not be called"}
		p := newTestPipeline(st, online, assistant, nil)
		if _, err := p.HandleUtterance(context.Background(), Request{Text: text}); err != nil {
			t.Fatalf("online=%v: %v", online, err)
		}
		if assistant.chatCalls != 0 {
			t.Errorf("online=%v: assistant consulted %d times for a structured request", online, assistant.chatCalls)
		}
		from, to := store.MonthRange(time.June, 2025)
		txs, err := st.ListTransactionsByDateRange(context.Background(), from, to)
		if err != nil {
			t.Fatal(err)
		}
		return txs
	}

	offline := run(false)
	online := run(true)
	if len(offline) != len(online) {
		t.Fatalf("offline stored %d rows, online %d", len(offline), len(online))
	}
	for i := range offline {
		if offline[i].Amount != online[i].Amount || offline[i].Category != online[i].Category ||
			!offline[i].Date.Equal(online[i].Date) {
			t.Errorf("row %d diverged: offline %+v, online %+v", i, offline[i], online[i])
		}
	}
}

func TestHandleUtteranceMonthlyBudgetUpsert(t *testing.T) {
	st := memory.New()
	p := newTestPipeline(st, false, nil, nil)

	if _, err := p.HandleUtterance(context.Background(), Request{Text: "Đặt ngân sách tháng này 2 triệu"}); err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}

	rec, err := st.GetBudget(context.Background(), time.June, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Limit != 2000000 {
		t.Errorf("Limit = %d, want 2000000", rec.Limit)
	}

	history, err := st.ListBudgetHistory(context.Background(), time.June, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Previous != 0 || history[0].Current != 2000000 {
		t.Errorf("history = %+v, want one 0 -> 2000000 entry", history)
	}
}

func TestHandleUtteranceBudgetIncrease(t *testing.T) {
	st := memory.New()
	p := newTestPipeline(st, false, nil, nil)

	ctx := context.Background()
	if _, err := p.HandleUtterance(ctx, Request{Text: "Đặt ngân sách tháng này 2 triệu"}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.HandleUtterance(ctx, Request{Text: "Tăng ngân sách tháng này 500k"}); err != nil {
		t.Fatal(err)
	}

	rec, err := st.GetBudget(ctx, time.June, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Limit != 2500000 {
		t.Errorf("Limit after increase = %d, want 2500000", rec.Limit)
	}
}

func TestHandleUtteranceCategoryCapRejected(t *testing.T) {
	st := memory.New()
	p := newTestPipeline(st, false, nil, nil)
	ctx := context.Background()

	for _, text := range []string{
		"Đặt ngân sách tháng này 2 triệu",
		"Đặt ngân sách ăn uống 1800000",
	} {
		resp, err := p.HandleUtterance(ctx, Request{Text: text})
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		for _, res := range resp.Results {
			if !res.OK() {
				t.Fatalf("%q: %v", text, res.Err)
			}
		}
	}

	resp, err := p.HandleUtterance(ctx, Request{Text: "Đặt ngân sách di chuyển 300000"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one rejection", resp.Results)
	}

	var f *Failure
	if !errors.As(resp.Results[0].Err, &f) {
		t.Fatalf("error %T, want *Failure", resp.Results[0].Err)
	}
	if f.Kind != FailureValidation {
		t.Errorf("Kind = %v, want validation", f.Kind)
	}
	if f.RemainingCapacity != 200000 {
		t.Errorf("RemainingCapacity = %d, want 200000", f.RemainingCapacity)
	}

	// The rejected allocation must not have been written.
	if _, err := st.GetCategoryBudget(ctx, time.June, 2025, "Transport"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCategoryBudget error = %v, want ErrNotFound", err)
	}
	if len(resp.RefreshScopes) != 0 {
		t.Errorf("RefreshScopes = %v, want none after a rejected mutation", resp.RefreshScopes)
	}
}

func TestHandleUtterancePastMonthBudgetRejected(t *testing.T) {
	st := memory.New()
	p := newTestPipeline(st, false, nil, nil)

	_, err := p.HandleUtterance(context.Background(), Request{Text: "Đặt ngân sách tháng 1 2 triệu"})
	if !IsFailure(err, FailureValidation) {
		t.Fatalf("error = %v, want validation failure", err)
	}

	var f *Failure
	errors.As(err, &f)
	want := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	if !f.MinAllowedMonth.Equal(want) {
		t.Errorf("MinAllowedMonth = %v, want %v", f.MinAllowedMonth, want)
	}
}

// The guard covers add/edit only: deleting a past month's budget is a
// cleanup, not a retroactive change.
func TestHandleUtterancePastMonthBudgetDeleteAllowed(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	if err := st.UpsertBudget(ctx, &domain.BudgetRecord{Month: time.January, Year: 2025, Limit: 2000000}); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(st, false, nil, nil)
	resp, err := p.HandleUtterance(ctx, Request{Text: "Xóa ngân sách tháng 1"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one successful delete", resp.Results)
	}

	if _, err := st.GetBudget(ctx, time.January, 2025); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetBudget error = %v, want ErrNotFound after delete", err)
	}
}

// A backdated expense invalidates the month it was recorded in, not the
// current one.
func TestHandleUtteranceBackdatedExpenseRefreshMonth(t *testing.T) {
	st := memory.New()
	refresh := &refreshRecorder{}
	p := newTestPipeline(st, false, nil, refresh)

	resp, err := p.HandleUtterance(context.Background(), Request{Text: "ăn trưa 50k ngày 5/3"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one success", resp.Results)
	}

	if len(refresh.published) != 1 {
		t.Fatalf("published %d refresh signals, want 1", len(refresh.published))
	}
	if refresh.months[0] != 3 || refresh.years[0] != 2025 {
		t.Errorf("refresh scoped to %d/%d, want 3/2025", refresh.months[0], refresh.years[0])
	}
}

func TestHandleUtteranceDeleteByIdentifier(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	id, err := st.InsertTransaction(ctx, &domain.Transaction{
		Date: testNow, Description: "cafe", Amount: -30000, Currency: "VND", Category: "Cafe & Dining Out",
	})
	if err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(st, false, nil, nil)
	resp, err := p.HandleUtterance(ctx, Request{Text: "Xóa #1"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one success", resp.Results)
	}

	if _, err := st.GetTransactionByID(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTransactionByID error = %v, want ErrNotFound", err)
	}
}

func TestHandleUtteranceDeleteMissingTransaction(t *testing.T) {
	p := newTestPipeline(memory.New(), false, nil, nil)

	resp, err := p.HandleUtterance(context.Background(), Request{Text: "Xóa #99"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one rejection", resp.Results)
	}
	if !IsFailure(resp.Results[0].Err, FailureValidation) {
		t.Errorf("error = %v, want validation failure", resp.Results[0].Err)
	}
}

func TestHandleUtteranceAmountlessBudgetAsksForClarification(t *testing.T) {
	p := newTestPipeline(memory.New(), false, nil, nil)

	_, err := p.HandleUtterance(context.Background(), Request{Text: "Đặt ngân sách tháng này"})
	if !IsFailure(err, FailureParse) {
		t.Fatalf("error = %v, want parse failure", err)
	}
}

func TestHandleUtteranceChatOffline(t *testing.T) {
	p := newTestPipeline(memory.New(), false, &mockAssistant{reply: "hi"}, nil)

	_, err := p.HandleUtterance(context.Background(), Request{Text: "Xin chào, bạn khỏe không?"})
	if !IsFailure(err, FailureNetwork) {
		t.Fatalf("error = %v, want network failure", err)
	}
}

func TestHandleUtteranceChatOnline(t *testing.T) {
	assistant := &mockAssistant{reply: "Bạn đã tiêu ít hơn tháng trước, rất tốt!"}
	p := newTestPipeline(memory.New(), true, assistant, nil)

	resp, err := p.HandleUtterance(context.Background(), Request{Text: "Xin chào, bạn khỏe không?"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if resp.Reply != assistant.reply {
		t.Errorf("Reply = %q, want the assistant's text", resp.Reply)
	}
	if assistant.chatCalls != 1 {
		t.Errorf("chatCalls = %d, want 1", assistant.chatCalls)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %+v, want none for a plain chat reply", resp.Results)
	}
}

func TestHandleUtteranceChatStructuredReply(t *testing.T) {
	assistant := &mockAssistant{
		reply: `{"name":"vé xem phim","amount":120000,"category":"Entertainment","currency":"VND","type":"expense","day":14,"month":6,"year":2025}`,
	}
	st := memory.New()
	p := newTestPipeline(st, true, assistant, nil)

	resp, err := p.HandleUtterance(context.Background(), Request{Text: "Hôm qua tốn hơi nhiều thì phải"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one executed operation", resp.Results)
	}

	from, to := store.MonthRange(time.June, 2025)
	txs, err := st.ListTransactionsByDateRange(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Amount != -120000 || txs[0].Category != "Entertainment" {
		t.Errorf("stored %+v, want one -120000 Entertainment row", txs)
	}
}

// A prose chat reply for an utterance that carries digits triggers the
// strict-JSON extraction call before the prose is returned.
func TestHandleUtteranceChatExtractionFallback(t *testing.T) {
	assistant := &mockAssistant{
		reply: "Nghe có vẻ bạn đã ăn tối khá đắt đó!",
		extractReply: &ai.ExpenseReply{
			Name: "ăn tối", Amount: 120000, Category: "Food", Currency: "VND",
			Type: "expense", Day: 14, Month: 6, Year: 2025,
		},
	}
	st := memory.New()
	p := newTestPipeline(st, true, assistant, nil)

	resp, err := p.HandleUtterance(context.Background(), Request{Text: "Hôm qua tốn 120000 thì phải"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if assistant.chatCalls != 1 || assistant.extractCalls != 1 {
		t.Errorf("chatCalls = %d, extractCalls = %d, want 1 and 1", assistant.chatCalls, assistant.extractCalls)
	}
	if len(resp.Results) != 1 || !resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one executed operation", resp.Results)
	}

	from, to := store.MonthRange(time.June, 2025)
	txs, err := st.ListTransactionsByDateRange(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Amount != -120000 || txs[0].Category != "Food" {
		t.Errorf("stored %+v, want one -120000 Food row", txs)
	}
	if txs[0].Date.Day() != 14 {
		t.Errorf("Date = %v, want day 14", txs[0].Date)
	}
}

// A prose reply with no digits in the utterance stays a conversation;
// no extraction call is made.
func TestHandleUtteranceChatProseSkipsExtraction(t *testing.T) {
	assistant := &mockAssistant{reply: "Chào bạn!"}
	p := newTestPipeline(memory.New(), true, assistant, nil)

	resp, err := p.HandleUtterance(context.Background(), Request{Text: "Xin chào, bạn khỏe không?"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if assistant.extractCalls != 0 {
		t.Errorf("extractCalls = %d, want 0 for a digitless utterance", assistant.extractCalls)
	}
	if resp.Reply != assistant.reply {
		t.Errorf("Reply = %q, want the prose answer", resp.Reply)
	}
}

func TestHandleUtteranceDeleteAllCategoryBudgets(t *testing.T) {
	st := memory.New()
	p := newTestPipeline(st, false, nil, nil)
	ctx := context.Background()

	for _, text := range []string{
		"Đặt ngân sách ăn uống 1000000",
		"Đặt ngân sách di chuyển 500000",
	} {
		if _, err := p.HandleUtterance(ctx, Request{Text: text}); err != nil {
			t.Fatalf("%q: %v", text, err)
		}
	}

	resp, err := p.HandleUtterance(ctx, Request{Text: "Xóa hết ngân sách danh mục"})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].OK() {
		t.Fatalf("results = %+v, want one success", resp.Results)
	}

	remaining, err := st.ListCategoryBudgets(ctx, time.June, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d allocations remain, want 0", len(remaining))
	}
}

func TestFormatVND(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{500, "500"},
		{25000, "25.000"},
		{2000000, "2.000.000"},
		{-120000, "-120.000"},
	}
	for _, tt := range tests {
		if got := formatVND(tt.in); got != tt.want {
			t.Errorf("formatVND(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
