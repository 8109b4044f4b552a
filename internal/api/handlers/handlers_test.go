package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/money-assistant/internal/pipeline"
	"github.com/dvloznov/money-assistant/internal/store/memory"
)

func newTestPipeline(st *memory.Store) *pipeline.Pipeline {
	return pipeline.New(st, pipeline.Options{
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) },
	})
}

func TestSubmitSync(t *testing.T) {
	st := memory.New()
	h := NewUtteranceHandler(nil, newTestPipeline(st), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/utterance?sync=true",
		strings.NewReader(`{"text":"Hôm qua ăn sáng 25k"}`))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Results []resultView `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Results) != 1 || body.Results[0].Summary == "" {
		t.Errorf("results = %+v, want one summary", body.Results)
	}
}

func TestSubmitSyncRejection(t *testing.T) {
	h := NewUtteranceHandler(nil, newTestPipeline(memory.New()), zerolog.Nop())

	// Past-month budget edits are rejected with a validation failure.
	req := httptest.NewRequest(http.MethodPost, "/api/utterance?sync=true",
		strings.NewReader(`{"text":"Đặt ngân sách tháng 1 2 triệu"}`))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["kind"] != "validation" {
		t.Errorf("kind = %q, want validation", body["kind"])
	}
}

func TestSubmitAsyncEnqueues(t *testing.T) {
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(4, 1, jobStore)
	defer queue.Close()

	h := NewUtteranceHandler(queue, newTestPipeline(memory.New()), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/utterance",
		strings.NewReader(`{"text":"cafe 30k","session_id":"s1"}`))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["job_id"] == "" {
		t.Fatal("missing job_id in response")
	}

	job, err := jobStore.GetJob(context.Background(), body["job_id"])
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.SessionID != "s1" || job.Text != "cafe 30k" {
		t.Errorf("stored job = %+v", job)
	}
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	h := NewUtteranceHandler(nil, newTestPipeline(memory.New()), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/utterance", strings.NewReader(`{"text":"  "}`))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBudgetGet(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	if err := st.UpsertBudget(ctx, &domain.BudgetRecord{Month: time.June, Year: 2025, Limit: 2000000}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertCategoryBudget(ctx, &domain.CategoryBudgetRecord{Month: time.June, Year: 2025, Category: "Food", Amount: 500000}); err != nil {
		t.Fatal(err)
	}

	h := NewBudgetHandler(st, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/api/budget/2025/6", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req, "2025", "6")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		MonthlyLimit int64            `json:"monthly_limit"`
		Allocations  map[string]int64 `json:"allocations"`
		Allocated    int64            `json:"allocated"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.MonthlyLimit != 2000000 || body.Allocated != 500000 || body.Allocations["Food"] != 500000 {
		t.Errorf("body = %+v", body)
	}
}

func TestBudgetGetRejectsBadMonth(t *testing.T) {
	h := NewBudgetHandler(memory.New(), zerolog.Nop())
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/budget/2025/13", nil), "2025", "13")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestJobsGetNotFound(t *testing.T) {
	h := NewJobsHandler(inmemory.NewStore(), zerolog.Nop())
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil), "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
