package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"reel-monitor-go/internal/cache"
	"reel-monitor-go/internal/classify"
	"reel-monitor-go/internal/export"
	"reel-monitor-go/internal/logger"
	"reel-monitor-go/internal/metrics"
	"reel-monitor-go/internal/openai"
	"reel-monitor-go/internal/store"
)

type classifyRequest struct {
	Username   string `json:"username"`
	Transcript string `json:"transcript"`
	URL        string `json:"url"`
}

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "reel-monitor-go").Info("starting service")

	registry := metrics.NewRegistry()
	cacheStore := cache.NewStore(envOr("CACHE_PATH", cache.DefaultPath), log.Entry)
	llm := openai.NewClient(os.Getenv("OPENAI_MODEL"), classify.SystemPrompt, registry, log.Entry)
	classifier := classify.New(llm, cacheStore, log.Entry)

	posts, err := store.Open(envOr("DB_PATH", "monitor.db"))
	if err != nil {
		log.WithError(err).Fatal("failed to open post store")
	}
	defer posts.Close()

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	// classify endpoint
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "classify")
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			reqLog.WithError(err).Warn("bad request body")
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		start := time.Now()
		analysis, err := classifier.Classify(r.Context(), req.Username, req.Transcript, req.URL)
		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("classifier finished")

		if err != nil {
			switch {
			case errors.Is(err, classify.ErrEmptyTranscript):
				http.Error(w, "empty transcript", http.StatusBadRequest)
			case errors.Is(err, classify.ErrMissingAPIKey):
				http.Error(w, "classifier not configured", http.StatusServiceUnavailable)
			default:
				http.Error(w, "classification failed", http.StatusBadGateway)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysis); err != nil {
			reqLog.WithError(err).Error("failed to write response")
		}
	})

	// process-lifetime API usage counters
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(registry.Snapshot()); err != nil {
			logger.New().WithRequest(r).WithError(err).Error("failed to write stats")
		}
	})

	// xlsx export of stored analyses
	mux.HandleFunc("/export", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "export")

		limit := 500
		if q := r.URL.Query().Get("limit"); q != "" {
			if n, err := strconv.Atoi(q); err == nil && n > 0 {
				limit = n
			}
		}

		analyses, err := posts.Analyses(limit)
		if err != nil {
			reqLog.WithError(err).Error("failed to load analyses")
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="analyses.xlsx"`)
		if err := export.Write(w, analyses); err != nil {
			reqLog.WithError(err).Error("failed to write workbook")
		}
	})

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
