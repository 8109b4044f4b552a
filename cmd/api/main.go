package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/money-assistant/internal/ai"
	"github.com/dvloznov/money-assistant/internal/api/handlers"
	"github.com/dvloznov/money-assistant/internal/api/middleware"
	"github.com/dvloznov/money-assistant/internal/config"
	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/events"
	"github.com/dvloznov/money-assistant/internal/export"
	"github.com/dvloznov/money-assistant/internal/jobs"
	"github.com/dvloznov/money-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/money-assistant/internal/logger"
	"github.com/dvloznov/money-assistant/internal/pipeline"
	"github.com/dvloznov/money-assistant/internal/store"
	"github.com/dvloznov/money-assistant/internal/store/factory"
)

func main() {
	log := logger.New()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := factory.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create store")
	}
	defer st.Close()

	// The assistant is optional: without credentials the service still
	// handles every structured request offline.
	var assistant pipeline.Assistant
	if aiClient, err := ai.NewClient(ctx, cfg.GeminiModel); err != nil {
		log.Warn().Err(err).Msg("Assistant unavailable, running offline only")
	} else {
		assistant = aiClient
	}

	var refresh pipeline.RefreshPublisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
		if err != nil {
			log.Warn().Err(err).Msg("AMQP unavailable, refresh signals disabled")
		} else {
			defer client.Close()
			refresh = client
		}
	}

	pipe := pipeline.New(st, pipeline.Options{
		Assistant: assistant,
		Oracle: pipeline.OracleFunc(func(context.Context) bool {
			return assistant != nil
		}),
		Refresh: refresh,
		Logger:  log,
	})

	var exporter *export.Exporter
	if cfg.GCSBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Cloud Storage unavailable, exports disabled")
		} else {
			defer storageClient.Close()
			exporter = export.NewExporter(st, export.NewGCSUploader(storageClient, cfg.GCSBucket), log, nil)
		}
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.QueueWorkers, jobStore)

	jobHandler := func(ctx context.Context, job *jobs.UtteranceJob) error {
		resp, err := pipe.HandleUtterance(ctx, pipeline.Request{
			Text:      job.Text,
			ModeFlag:  domain.Domain(job.ModeFlag),
			SessionID: job.SessionID,
		})
		if err != nil {
			return err
		}
		job.Result = jobResult(resp)
		return nil
	}

	if err := jobQueue.Start(ctx, jobHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start utterance workers")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      buildHandler(pipe, jobQueue, jobStore, st, exporter, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping utterance workers")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Server exited")
}

func jobResult(resp *pipeline.Response) *jobs.Result {
	result := &jobs.Result{
		Reply:         resp.Reply,
		RefreshScopes: resp.RefreshScopes,
	}
	for _, res := range resp.Results {
		if res.OK() {
			result.Summaries = append(result.Summaries, res.Summary)
		} else {
			result.Failures = append(result.Failures, res.Err.Error())
		}
	}
	return result
}

func buildHandler(
	pipe *pipeline.Pipeline,
	publisher jobs.Publisher,
	jobStore jobs.JobStore,
	st store.Store,
	exporter *export.Exporter,
	log zerolog.Logger,
) http.Handler {
	utteranceHandler := handlers.NewUtteranceHandler(publisher, pipe, log)
	transactionsHandler := handlers.NewTransactionsHandler(st, log)
	budgetHandler := handlers.NewBudgetHandler(st, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	exportHandler := handlers.NewExportHandler(exporter, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/utterance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			utteranceHandler.Submit(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/budget/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		year, month, ok := splitYearMonth(strings.TrimPrefix(r.URL.Path, "/api/budget/"))
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Expected /api/budget/{year}/{month}")
			return
		}
		budgetHandler.Get(w, r, year, month)
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.Get(w, r, jobID)
	})

	mux.HandleFunc("/api/export/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		year, month, ok := splitYearMonth(strings.TrimPrefix(r.URL.Path, "/api/export/"))
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Expected /api/export/{year}/{month}")
			return
		}
		exportHandler.Export(w, r, year, month)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)
}

func splitYearMonth(path string) (string, string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
