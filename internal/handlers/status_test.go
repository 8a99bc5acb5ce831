package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
	"focustrack-backend/internal/services"
	"focustrack-backend/internal/storage"
	"focustrack-backend/internal/tracker"
)

func newStatusRouter(t *testing.T) (*chi.Mux, *repository.SessionRepo, *repository.UserRepo) {
	t.Helper()
	store := storage.NewMemoryBackend()
	sessions := repository.NewSessionRepo(store)
	users := repository.NewUserRepo(store)
	meta := repository.NewMetaRepo(store)

	syncSvc := services.NewSyncService(sessions, users, meta, false, nil)
	diagSvc := services.NewDiagnosticsService(sessions, store, nil)
	trk := tracker.New(sessions, tracker.Options{})
	h := NewStatusHandler(syncSvc, diagSvc, trk)

	r := chi.NewRouter()
	r.Get("/sync/status", h.SyncStatus)
	r.Get("/sync/export", h.Export)
	r.Post("/sync/ack", h.AcknowledgeBatch)
	r.Get("/diagnostics", h.Diagnostics)
	return r, sessions, users
}

func TestSyncStatusEndpoint(t *testing.T) {
	r, sessions, users := newStatusRouter(t)
	ctx := context.Background()

	at := time.Date(2023, 8, 22, 10, 0, 0, 0, time.UTC)
	if err := sessions.SaveSession(ctx, models.NewSessionRecord("a.com", "UTC", at)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := users.SetUserInfo(ctx, &models.UserInfo{UID: "u1"}); err != nil {
		t.Fatalf("SetUserInfo: %v", err)
	}

	rec := doJSON(t, r, http.MethodGet, "/sync/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status models.SyncStatus
	decodeBody(t, rec, &status)
	if !status.Ready || status.PendingSessions != 1 {
		t.Errorf("Expected ready status with 1 pending, got %+v", status)
	}
}

func TestExportAndAckEndpoints(t *testing.T) {
	r, sessions, _ := newStatusRouter(t)
	ctx := context.Background()

	at := time.Date(2023, 8, 22, 10, 0, 0, 0, time.UTC)
	if err := sessions.SaveSession(ctx, models.NewSessionRecord("a.com", "UTC", at)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	rec := doJSON(t, r, http.MethodGet, "/sync/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var export models.SyncExport
	decodeBody(t, rec, &export)
	if export.TotalCount != 1 || len(export.Sessions) != 1 {
		t.Fatalf("Expected 1 exported record, got %+v", export)
	}

	rec = doJSON(t, r, http.MethodPost, "/sync/ack", map[string]interface{}{
		"syncBatch":  export.SyncBatch,
		"sessionIds": []string{export.Sessions[0].ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var ack map[string]int
	decodeBody(t, rec, &ack)
	if ack["marked"] != 1 {
		t.Errorf("Expected 1 record marked, got %+v", ack)
	}
}

func TestAckEndpoint_RequiresSessionIDs(t *testing.T) {
	r, _, _ := newStatusRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sync/ack", map[string]interface{}{
		"syncBatch": "batch_x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	r, sessions, _ := newStatusRouter(t)
	ctx := context.Background()

	at := time.Date(2023, 8, 22, 10, 0, 0, 0, time.UTC)
	if err := sessions.SaveSession(ctx, models.NewSessionRecord("a.com", "UTC", at)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	rec := doJSON(t, r, http.MethodGet, "/diagnostics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Diagnostics models.Diagnostics `json:"diagnostics"`
		Tracker     map[string]string  `json:"tracker"`
	}
	decodeBody(t, rec, &resp)
	if resp.Diagnostics.Sessions.Total != 1 {
		t.Errorf("Expected 1 record in diagnostics, got %+v", resp.Diagnostics.Sessions)
	}
	if resp.Tracker["state"] != string(tracker.StateIdle) {
		t.Errorf("Expected idle tracker state, got %q", resp.Tracker["state"])
	}
}
