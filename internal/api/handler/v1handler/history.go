package v1handler

import (
	"net/http"

	"filescan/pkg/domain"
	"filescan/pkg/serrors"
)

type historyListResponse struct {
	Items []domain.HistoryItem `json:"items"`
	Count int                  `json:"count"`
}

// ListHistory returns the retained records, most recent first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	items := h.deps.History.List(r.Context())
	if items == nil {
		items = []domain.HistoryItem{}
	}

	writeJSON(w, http.StatusOK, historyListResponse{Items: items, Count: len(items)})
}

// RemoveHistory deletes a single record by id.
func (h *Handler) RemoveHistory(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseHistoryID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid history id"))

		return
	}

	if !h.deps.History.Remove(r.Context(), id) {
		writeError(w, r, serrors.With(serrors.ErrNotFound, "history record not found"))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory deletes every record.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.deps.History.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ExportHistory serves the full history as a downloadable JSON document.
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.History.ExportJSON(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="scan-history.json"`)
	_, _ = w.Write(b)
}

// HistoryStats returns aggregate history statistics.
func (h *Handler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.History.Stats(r.Context()))
}
