package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
	"focustrack-backend/internal/storage"
)

func newSessionRouter(t *testing.T) (*chi.Mux, *repository.SessionRepo) {
	t.Helper()
	repo := repository.NewSessionRepo(storage.NewMemoryBackend())
	h := NewSessionHandler(repo, 30)

	r := chi.NewRouter()
	r.Post("/sessions/validate", h.Validate)
	r.Post("/sessions/sanitize", h.Sanitize)
	r.Get("/sessions/active", h.Active)
	r.Get("/sessions/range", h.Range)
	r.Post("/sessions/cleanup", h.Cleanup)
	return r, repo
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestValidateEndpoint_Always200(t *testing.T) {
	r, _ := newSessionRouter(t)

	tests := []struct {
		name  string
		body  interface{}
		valid bool
	}{
		{"well-formed", map[string]interface{}{
			"id": "session_1", "domain": "a.com",
			"startTime": 1692739200000, "startTimeUTC": "2023-08-22T20:00:00Z",
		}, true},
		{"missing id", map[string]interface{}{"domain": "a.com"}, false},
		{"not an object", []string{"x"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/sessions/validate", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200 regardless of validity, got %d", rec.Code)
			}
			var result models.ValidationResult
			decodeBody(t, rec, &result)
			if result.Valid != tc.valid {
				t.Errorf("Expected valid=%v, got %+v", tc.valid, result)
			}
		})
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	r, _ := newSessionRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sessions/sanitize", map[string]interface{}{
		"id":       "  x  ",
		"status":   "unknown",
		"duration": "fifteen",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Session models.SessionRecord `json:"session"`
	}
	decodeBody(t, rec, &resp)
	if resp.Session.ID != "x" || resp.Session.Status != models.StatusActive || resp.Session.DurationSeconds != 0 {
		t.Errorf("Unexpected sanitized record: %+v", resp.Session)
	}
}

func TestActiveEndpoint(t *testing.T) {
	r, repo := newSessionRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/sessions/active", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Sessions []models.SessionRecord `json:"sessions"`
		Count    int                    `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 0 || resp.Sessions == nil {
		t.Errorf("Expected empty list, got %+v", resp)
	}

	at := time.Date(2023, 8, 22, 10, 0, 0, 0, time.UTC)
	if err := repo.SaveSession(context.Background(), models.NewSessionRecord("a.com", "UTC", at)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	rec = doJSON(t, r, http.MethodGet, "/sessions/active", nil)
	decodeBody(t, rec, &resp)
	if resp.Count != 1 || resp.Sessions[0].Domain != "a.com" {
		t.Errorf("Expected one active session, got %+v", resp)
	}
}

func TestRangeEndpoint_ErrorMapping(t *testing.T) {
	r, _ := newSessionRouter(t)

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing params", "/sessions/range", "VALIDATION_ERROR"},
		{"bad date", "/sessions/range?start=22-08-2023&end=2023-08-25", "VALIDATION_ERROR"},
		{"inverted range", "/sessions/range?start=2023-08-25&end=2023-08-20", "RANGE_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodGet, tc.path, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rec.Code)
			}
			var resp models.ErrorResponse
			decodeBody(t, rec, &resp)
			if resp.Error.Code != tc.code {
				t.Errorf("Expected error code %s, got %s", tc.code, resp.Error.Code)
			}
		})
	}
}

func TestCleanupEndpoint(t *testing.T) {
	r, repo := newSessionRouter(t)

	stale := models.NewSessionRecord("old.com", "UTC", time.Now().UTC().AddDate(0, 0, -45))
	if err := repo.SaveSession(context.Background(), stale); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	rec := doJSON(t, r, http.MethodPost, "/sessions/cleanup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var result models.CleanupResult
	decodeBody(t, rec, &result)
	if result.Removed != 1 {
		t.Errorf("Expected 1 record removed, got %+v", result)
	}
}
