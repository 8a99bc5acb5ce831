package handlers

import (
	"encoding/json"
	"net/http"

	"focustrack-backend/internal/middleware"
	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
)

type UserHandler struct {
	repo *repository.UserRepo
}

func NewUserHandler(repo *repository.UserRepo) *UserHandler {
	return &UserHandler{repo: repo}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.repo.GetUserInfo(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if info == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No user info stored", r))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *UserHandler) Put(w http.ResponseWriter, r *http.Request) {
	var info models.UserInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	// The stored identity must match the authenticated caller.
	uid := middleware.GetUserID(r.Context())
	if info.UID == "" {
		info.UID = uid
	} else if info.UID != uid {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "uid does not match the authenticated user", r))
		return
	}
	if info.Timezone == "" {
		info.Timezone = middleware.GetTimezone(r.Context())
	}

	if err := h.repo.SetUserInfo(r.Context(), &info); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
