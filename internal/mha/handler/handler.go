// Package handler exposes the reconciliation control surface: exchange
// operations, batch summaries and the test-only callback synthesizer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"noticerecon/internal/mha/codec"
	"noticerecon/internal/mha/service"
	"noticerecon/pkg/platform/middleware/admin"
	"noticerecon/pkg/platform/sentinel"
)

// Service is the engine surface the handler drives.
type Service interface {
	Upload(ctx context.Context) (string, int, error)
	DownloadExecute(ctx context.Context) (*service.BatchSummary, error)
	Summary(batchID uuid.UUID) (*service.BatchSummary, bool)
	SynthesizeCallback(ctx context.Context, file *codec.BatchFile) (string, error)
}

// Handler wires the control endpoints to the reconciliation service.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
	testMode   bool
}

// New constructs the control-surface handler.
func New(svc Service, logger *slog.Logger, adminToken string, testMode bool) *Handler {
	return &Handler{
		service:    svc,
		logger:     logger,
		adminToken: adminToken,
		testMode:   testMode,
	}
}

// Router builds the full HTTP router: health and metrics are open, the
// exchange operations sit behind the admin token, and the callback
// synthesizer only exists in test mode.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Post("/mha/upload", h.HandleUpload)
		r.Post("/mha/download/execute", h.HandleDownloadExecute)
		r.Get("/mha/batches/{batchID}", h.HandleBatchSummary)
		if h.testMode {
			r.Post("/test/mha/callback", h.HandleTestCallback)
		}
	})
	return r
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleUpload handles POST /mha/upload: write the outbound request file.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	name, count, err := h.service.Upload(r.Context())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no identities pending registry confirmation")
			return
		}
		h.logger.ErrorContext(r.Context(), "upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"file":       name,
		"identities": count,
	})
}

// HandleDownloadExecute handles POST /mha/download/execute: process the
// oldest unprocessed inbound response file.
func (h *Handler) HandleDownloadExecute(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.DownloadExecute(r.Context())
	if err != nil {
		var cte *codec.ControlTotalError
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			writeError(w, http.StatusNotFound, "no unprocessed response file")
		case errors.As(err, &cte):
			h.logger.WarnContext(r.Context(), "inconsistent batch rejected", "error", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "download execute failed", "error", err)
			writeError(w, http.StatusInternalServerError, "batch processing failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleBatchSummary handles GET /mha/batches/{batchID}.
func (h *Handler) HandleBatchSummary(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed batch id")
		return
	}
	sum, ok := h.service.Summary(batchID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown batch id")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleTestCallback handles POST /test/mha/callback: synthesize an inbound
// response file from a JSON description. Registered in test mode only.
func (h *Handler) HandleTestCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	file, err := req.ToBatchFile()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := h.service.SynthesizeCallback(r.Context(), file)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "callback synthesis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "callback synthesis failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file": name})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
