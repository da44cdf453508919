// Package v1handler implements the v1 HTTP API: scan session control,
// history access and the change event stream.
package v1handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"filescan/internal/history"
	"filescan/internal/session"
	"filescan/pkg/logger"
	"filescan/pkg/scanservice"
	"filescan/pkg/serrors"

	"go.uber.org/zap"
)

// Deps carries the services the handlers operate on.
type Deps struct {
	Session *session.Controller
	History *history.Service
	Gateway scanservice.Client
}

// Handler serves the v1 routes.
type Handler struct {
	deps Deps
}

// New constructs a Handler.
func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Register attaches the v1 routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/scans", h.SubmitScan)
	mux.HandleFunc("GET /v1/scans/current", h.CurrentScan)
	mux.HandleFunc("POST /v1/scans/reset", h.ResetScan)

	mux.HandleFunc("GET /v1/history", h.ListHistory)
	mux.HandleFunc("DELETE /v1/history", h.ClearHistory)
	mux.HandleFunc("DELETE /v1/history/{id}", h.RemoveHistory)
	mux.HandleFunc("GET /v1/history/export", h.ExportHistory)
	mux.HandleFunc("GET /v1/history/stats", h.HistoryStats)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps semantic error kinds onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, serrors.ErrBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, serrors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, serrors.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, serrors.ErrRateLimited):
		code = http.StatusTooManyRequests
	case errors.Is(err, serrors.ErrTimeout):
		code = http.StatusGatewayTimeout
	case errors.Is(err, serrors.ErrUnavailable):
		code = http.StatusBadGateway
	}

	if code >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", zap.Error(err))
	}

	writeJSON(w, code, errorResponse{Error: err.Error()})
}
