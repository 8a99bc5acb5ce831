package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"focustrack-backend/internal/services"
	"focustrack-backend/internal/tracker"
)

// diagnosticsTimeout bounds report generation; expiry is failure, not a
// hang.
const diagnosticsTimeout = 3 * time.Second

type StatusHandler struct {
	sync *services.SyncService
	diag *services.DiagnosticsService
	trk  *tracker.Tracker
}

func NewStatusHandler(sync *services.SyncService, diag *services.DiagnosticsService, trk *tracker.Tracker) *StatusHandler {
	return &StatusHandler{sync: sync, diag: diag, trk: trk}
}

func (h *StatusHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.sync.GetSyncStatus(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *StatusHandler) Export(w http.ResponseWriter, r *http.Request) {
	export, err := h.sync.Export(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (h *StatusHandler) AcknowledgeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SyncBatch  string   `json:"syncBatch"`
		SessionIDs []string `json:"sessionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if len(req.SessionIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "sessionIds is required", r))
		return
	}

	marked, err := h.sync.AcknowledgeBatch(r.Context(), req.SyncBatch, req.SessionIDs)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": marked})
}

func (h *StatusHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), diagnosticsTimeout)
	defer cancel()

	diag, err := h.diag.GetDiagnostics(ctx)
	if err != nil {
		if ctx.Err() != nil {
			writeJSON(w, http.StatusGatewayTimeout, errorResp("TIMEOUT", "Diagnostics generation timed out", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	state, domain := h.trk.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"diagnostics": diag,
		"tracker": map[string]string{
			"state":      string(state),
			"lastDomain": domain,
		},
	})
}
