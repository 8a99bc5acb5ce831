package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"focustrack-backend/internal/tracker"
)

// SignalHandler is the HTTP fallback for clients that cannot hold a
// WebSocket open (e.g. an extension service worker being torn down).
type SignalHandler struct {
	trk *tracker.Tracker
}

func NewSignalHandler(trk *tracker.Tracker) *SignalHandler {
	return &SignalHandler{trk: trk}
}

func (h *SignalHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type      string `json:"type"`
		Domain    string `json:"domain"`
		Timestamp int64  `json:"timestamp"` // epoch ms, optional
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ev := tracker.Event{Type: tracker.EventType(req.Type), Domain: req.Domain}
	switch ev.Type {
	case tracker.EventTabActivated:
		if req.Domain == "" {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "domain is required for tab_activated", r))
			return
		}
	case tracker.EventIdle, tracker.EventActive, tracker.EventShutdown:
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown signal type", r))
		return
	}
	if req.Timestamp > 0 {
		ev.At = time.UnixMilli(req.Timestamp)
	}

	h.trk.Deliver(ev)
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Signal accepted"})
}
