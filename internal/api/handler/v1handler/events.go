package v1handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"filescan/pkg/domain"
	"filescan/pkg/logger"
)

// heartbeatInterval keeps idle SSE connections from being reaped by proxies.
const heartbeatInterval = 15 * time.Second

// Events streams history change events as server-sent events. Each event's
// SSE event name is the action (added, removed, cleared, changed) and the
// data is the JSON-encoded payload. The stream ends when the client
// disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)

		return
	}

	// subscribe before the response status goes out, so a client that has
	// seen the headers is guaranteed not to miss subsequent events
	events, cancel := h.deps.History.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.Debug(r.Context(), "event stream opened")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug(r.Context(), "event stream closed")

			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-events:
			sendEvent(w, flusher, ev)
		}
	}
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, ev domain.HistoryEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Action, data)
	flusher.Flush()
}
