package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"focustrack-backend/internal/models"
	"focustrack-backend/internal/services"
)

type BackupHandler struct {
	svc *services.BackupService
}

func NewBackupHandler(svc *services.BackupService) *BackupHandler {
	return &BackupHandler{svc: svc}
}

func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Backup(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.svc.ListBackups(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}

func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	backupKey := chi.URLParam(r, "key")
	if backupKey == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Backup key is required", r))
		return
	}

	result, err := h.svc.Restore(r.Context(), backupKey)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Reset clears tracking storage. The confirmation token must match the
// sentinel exactly; anything else fails closed with no mutation.
func (h *BackupHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfirmationToken string              `json:"confirmation_token"`
		Options           models.ResetOptions `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result, err := h.svc.Reset(r.Context(), req.ConfirmationToken, req.Options)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
