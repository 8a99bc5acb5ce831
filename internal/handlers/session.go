package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"focustrack-backend/internal/apperrors"
	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
	"focustrack-backend/internal/services"
)

type SessionHandler struct {
	repo          *repository.SessionRepo
	retentionDays int
}

func NewSessionHandler(repo *repository.SessionRepo, retentionDays int) *SessionHandler {
	return &SessionHandler{repo: repo, retentionDays: retentionDays}
}

// Validate checks an arbitrary JSON body against the session record shape.
// The result is always 200; validity lives in the body.
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var raw interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusOK, models.ValidationResult{Valid: false, Error: "body is not valid JSON"})
		return
	}
	writeJSON(w, http.StatusOK, services.ValidateSession(raw))
}

func (h *SessionHandler) Sanitize(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": services.SanitizeSession(raw),
	})
}

func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.repo.GetAllActiveSessions(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.SessionRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *SessionHandler) Range(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "start and end query params are required", r))
		return
	}

	sessions, err := h.repo.GetSessionsByDateRange(r.Context(), start, end)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.SessionRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *SessionHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.repo.CleanupStaleData(r.Context(), h.retentionDays, time.Now().UTC())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *apperrors.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *apperrors.RangeError:
		writeJSON(w, http.StatusBadRequest, errorResp("RANGE_ERROR", e.Message, r))
	case *apperrors.ConfirmationError:
		writeJSON(w, http.StatusForbidden, errorResp("CONFIRMATION_ERROR", e.Message, r))
	case *apperrors.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *apperrors.StorageError:
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", e.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
