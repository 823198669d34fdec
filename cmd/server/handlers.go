package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/secrag/filingcite"
	"github.com/secrag/filingcite/report"
	"github.com/secrag/filingcite/store"
)

type handler struct {
	enricher *filingcite.Enricher
}

func newHandler(e *filingcite.Enricher) *handler {
	return &handler{enricher: e}
}

func (h *handler) routes(apiKey string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)

	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		if apiKey != "" {
			r.Use(authMiddleware(apiKey))
		}

		r.Post("/api/enrich", h.handleEnrich)
		r.Get("/api/status", h.handleStatus)
		r.Get("/api/chunks", h.handleListChunks)
		r.Get("/api/chunks/sample", h.handleSampleChunk)
		r.Delete("/api/chunks", h.handleClearChunks)
	})

	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type enrichRequest struct {
	Company    string `json:"company"`
	SourceFile string `json:"source_file"`
	Count      int    `json:"count"`
	All        bool   `json:"all"`
	DryRun     bool   `json:"dry_run"`
	Force      bool   `json:"force"`
}

func (h *handler) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sourceFile := req.SourceFile
	if sourceFile == "" {
		var err error
		sourceFile, err = filingcite.SourceForCompany(req.Company)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	opts := []filingcite.RunOption{}
	if req.All {
		opts = append(opts, filingcite.WithAll())
	} else if req.Count > 0 {
		opts = append(opts, filingcite.WithCount(req.Count))
	}
	if req.DryRun {
		opts = append(opts, filingcite.WithDryRun())
	}
	if req.Force {
		opts = append(opts, filingcite.WithForce())
	}

	summary, err := h.enricher.EnrichSource(r.Context(), sourceFile, opts...)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, filingcite.ErrSourceUnavailable) {
			status = http.StatusNotFound
		}
		jsonError(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.enricher.Store().EnrichmentStats(r.Context())
	if err != nil {
		jsonError(w, "reading stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sources": stats,
		"overall": report.Overall(stats),
	})
}

func (h *handler) handleListChunks(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{
		SourceFile: r.URL.Query().Get("source"),
		Limit:      100,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		opts.Limit = n
	}
	if v := r.URL.Query().Get("enriched"); v != "" {
		enriched, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "invalid enriched filter", http.StatusBadRequest)
			return
		}
		opts.Enriched = &enriched
	}

	records, err := h.enricher.Store().ListChunks(r.Context(), opts)
	if err != nil {
		jsonError(w, "listing chunks: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(records),
		"chunks": records,
	})
}

func (h *handler) handleSampleChunk(w http.ResponseWriter, r *http.Request) {
	record, err := h.enricher.Store().SampleChunk(r.Context(), r.URL.Query().Get("source"))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "no chunks indexed", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "sampling chunk: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *handler) handleClearChunks(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	var deleted int64
	var err error
	switch {
	case source != "":
		deleted, err = h.enricher.Store().ClearSource(r.Context(), source)
	case all:
		deleted, err = h.enricher.Store().ClearAll(r.Context())
	default:
		jsonError(w, "specify ?source= or ?all=true", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, "clearing chunks: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("chunks cleared", "source", source, "all", all, "deleted", deleted)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
