// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package handlers serves the cached review summaries and the admin actions
// over a small JSON API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/mdhender/tfcreviews"
	"github.com/mdhender/tfcreviews/importer"
	"github.com/mdhender/tfcreviews/model"
	"github.com/mdhender/tfcreviews/web/auth"
)

// Reviews defines the reads and admin actions served by Handlers.
type Reviews interface {
	AllSummaryData(ctx context.Context) (map[string]model.ResultCacheRecord, error)
	SummaryData(ctx context.Context, scope model.Scope) (model.ResultCacheRecord, bool, error)
	LastImported(ctx context.Context) (string, bool, error)
	ResetAllClientTokens(ctx context.Context) error
}

// Importer runs a synchronization.
type Importer interface {
	Run(ctx context.Context, typ string) (*importer.Result, error)
}

// History lists past imports.
type History interface {
	ListImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	reviews  Reviews
	importer Importer
	history  History
	admin    auth.Admin
}

// New creates a new Handlers.
func New(r Reviews, imp Importer, hist History, admin auth.Admin) *Handlers {
	return &Handlers{reviews: r, importer: imp, history: hist, admin: admin}
}

// Router returns the API routes.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.Version)
		r.Get("/summary", h.AllSummary)
		r.Get("/stores/{storeID}/summary", h.StoreSummary)
		r.Get("/websites/{websiteID}/summary", h.WebsiteSummary)
		r.Get("/last-import", h.LastImport)
		r.Get("/imports", h.Imports)

		r.Group(func(r chi.Router) {
			r.Use(h.admin.RequireAdmin)
			r.Post("/import", h.Import)
			r.Post("/tokens/reset", h.ResetTokens)
		})
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: encode response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Version returns the application version.
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": tfcreviews.Version().String()})
}

// AllSummary returns the whole cached batch, or an empty object.
func (h *Handlers) AllSummary(w http.ResponseWriter, r *http.Request) {
	batch, err := h.reviews.AllSummaryData(r.Context())
	if err != nil {
		log.Printf("handlers: all summary: %v\n", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if batch == nil {
		batch = map[string]model.ResultCacheRecord{}
	}
	writeJSON(w, http.StatusOK, batch)
}

// StoreSummary returns the summary for a store.
func (h *Handlers) StoreSummary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid store id")
		return
	}
	h.summary(w, r, model.StoreScope(id))
}

// WebsiteSummary returns the summary for a website.
func (h *Handlers) WebsiteSummary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "websiteID"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid website id")
		return
	}
	h.summary(w, r, model.WebsiteScope(id))
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request, scope model.Scope) {
	rec, ok, err := h.reviews.SummaryData(r.Context(), scope)
	if err != nil {
		log.Printf("handlers: summary %s: %v\n", scope, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	} else if !ok {
		writeError(w, http.StatusNotFound, "no summary for "+scope.String())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// LastImport returns the last import message.
func (h *Handlers) LastImport(w http.ResponseWriter, r *http.Request) {
	msg, ok, err := h.reviews.LastImported(r.Context())
	if err != nil {
		log.Printf("handlers: last import: %v\n", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	} else if !ok {
		writeError(w, http.StatusNotFound, "never imported")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lastImport": msg})
}

// Imports returns the import history, newest first. ?limit= defaults to 20.
func (h *Handlers) Imports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := h.history.ListImportRuns(r.Context(), limit)
	if err != nil {
		log.Printf("handlers: imports: %v\n", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if runs == nil {
		runs = []model.ImportRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type importResponse struct {
	Run     model.ImportRun                    `json:"run"`
	Records map[string]model.ResultCacheRecord `json:"records"`
}

// Import runs a manual import.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	result, err := h.importer.Run(r.Context(), "manual")
	if errors.Is(err, importer.ErrImportRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	} else if err != nil {
		log.Printf("handlers: import: %v\n", err)
		writeError(w, http.StatusInternalServerError, importer.ErrorCode(err))
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Run: result.Run, Records: result.Records})
}

// ResetTokens clears every store's client token.
func (h *Handlers) ResetTokens(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.ResetAllClientTokens(r.Context()); err != nil {
		log.Printf("handlers: reset tokens: %v\n", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
