// Package handlers implements the HTTP endpoints: utterance submission,
// job polling, and read-side views over transactions and budgets.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/money-assistant/internal/api/middleware"
	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/export"
	"github.com/dvloznov/money-assistant/internal/jobs"
	"github.com/dvloznov/money-assistant/internal/pipeline"
	"github.com/dvloznov/money-assistant/internal/store"
)

// UtteranceHandler accepts raw utterances. By default it enqueues them
// for asynchronous interpretation; sync=true runs them inline.
type UtteranceHandler struct {
	publisher jobs.Publisher
	pipe      *pipeline.Pipeline
	log       zerolog.Logger
}

// NewUtteranceHandler creates a new utterance handler.
func NewUtteranceHandler(publisher jobs.Publisher, pipe *pipeline.Pipeline, log zerolog.Logger) *UtteranceHandler {
	return &UtteranceHandler{publisher: publisher, pipe: pipe, log: log}
}

type utteranceRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

// Submit handles POST /api/utterance
func (h *UtteranceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req utteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	if r.URL.Query().Get("sync") == "true" {
		h.handleSync(w, r, req)
		return
	}

	job := &jobs.UtteranceJob{
		Text:      req.Text,
		SessionID: req.SessionID,
		ModeFlag:  req.Mode,
	}
	if err := h.publisher.PublishUtterance(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue utterance job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue utterance")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Utterance job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

func (h *UtteranceHandler) handleSync(w http.ResponseWriter, r *http.Request, req utteranceRequest) {
	resp, err := h.pipe.HandleUtterance(r.Context(), pipeline.Request{
		Text:      req.Text,
		ModeFlag:  domain.Domain(req.Mode),
		SessionID: req.SessionID,
	})
	if err != nil {
		var f *pipeline.Failure
		if errors.As(err, &f) {
			status := http.StatusUnprocessableEntity
			if f.Kind == pipeline.FailureNetwork || f.Kind == pipeline.FailurePersistence {
				status = http.StatusBadGateway
			}
			middleware.WriteJSON(w, status, map[string]interface{}{
				"error": f.Reason,
				"kind":  string(f.Kind),
			})
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to handle utterance")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reply":          resp.Reply,
		"results":        resultViews(resp),
		"refresh_scopes": resp.RefreshScopes,
	})
}

type resultView struct {
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

func resultViews(resp *pipeline.Response) []resultView {
	views := make([]resultView, 0, len(resp.Results))
	for _, res := range resp.Results {
		v := resultView{Summary: res.Summary}
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		views = append(views, v)
	}
	return views
}

// TransactionsHandler serves the transaction read side.
type TransactionsHandler struct {
	store store.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(s store.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: s, log: log}
}

// List handles GET /api/transactions?month=&year=
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	month, year, ok := monthYearParams(r, time.Now())
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month or year")
		return
	}

	from, to := store.MonthRange(month, year)
	txs, err := h.store.ListTransactionsByDateRange(r.Context(), from, to)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

// BudgetHandler serves the budget read side.
type BudgetHandler struct {
	store store.Store
	log   zerolog.Logger
}

// NewBudgetHandler creates a new budget handler.
func NewBudgetHandler(s store.Store, log zerolog.Logger) *BudgetHandler {
	return &BudgetHandler{store: s, log: log}
}

// Get handles GET /api/budget/{year}/{month}
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request, yearStr, monthStr string) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	monthNum, err := strconv.Atoi(monthStr)
	if err != nil || monthNum < 1 || monthNum > 12 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month")
		return
	}
	month := time.Month(monthNum)

	ctx := r.Context()
	snap, err := store.Snapshot(ctx, h.store, month, year)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load budget snapshot")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load budget")
		return
	}

	history, err := h.store.ListBudgetHistory(ctx, month, year)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load budget history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load budget")
		return
	}
	if history == nil {
		history = []*domain.BudgetHistoryEntry{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"month":         int(month),
		"year":          year,
		"monthly_limit": snap.MonthlyLimit,
		"allocations":   snap.Allocations,
		"allocated":     snap.Allocated(),
		"history":       history,
	})
}

// JobsHandler serves utterance job state for polling clients.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// Get handles GET /api/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		SessionID: query.Get("session_id"),
		Status:    jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// ExportHandler triggers monthly report exports.
type ExportHandler struct {
	exporter *export.Exporter
	log      zerolog.Logger
}

// NewExportHandler creates a new export handler. A nil exporter means
// exports are disabled (no bucket configured).
func NewExportHandler(exporter *export.Exporter, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{exporter: exporter, log: log}
}

// Export handles POST /api/export/{year}/{month}
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request, yearStr, monthStr string) {
	if h.exporter == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Export is not configured")
		return
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	monthNum, err := strconv.Atoi(monthStr)
	if err != nil || monthNum < 1 || monthNum > 12 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month")
		return
	}

	object, err := h.exporter.ExportMonth(r.Context(), time.Month(monthNum), year)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export report")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"object": object})
}

func monthYearParams(r *http.Request, now time.Time) (time.Month, int, bool) {
	month := now.Month()
	year := now.Year()

	query := r.URL.Query()
	if s := query.Get("month"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 12 {
			return 0, 0, false
		}
		month = time.Month(n)
	}
	if s := query.Get("year"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 2000 {
			return 0, 0, false
		}
		year = n
	}
	return month, year, true
}
