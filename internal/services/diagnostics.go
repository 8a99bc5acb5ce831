package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"focustrack-backend/internal/apperrors"
	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
	"focustrack-backend/internal/storage"
)

// Health thresholds. Pending backlog and corruption ratio degrade the
// reported status; diagnostics itself never mutates anything.
const (
	degradedPendingSessions = 500
	criticalPendingSessions = 2000
	degradedCorruptionRatio = 0.05
	criticalCorruptionRatio = 0.20
)

type DiagnosticsService struct {
	sessions *repository.SessionRepo
	store    storage.Backend
	now      func() time.Time
}

func NewDiagnosticsService(sessions *repository.SessionRepo, store storage.Backend, now func() time.Time) *DiagnosticsService {
	if now == nil {
		now = time.Now
	}
	return &DiagnosticsService{sessions: sessions, store: store, now: now}
}

// GetDiagnostics aggregates a read-only health report. Callers are expected
// to bound it with a context timeout and treat expiry as failure.
func (s *DiagnosticsService) GetDiagnostics(ctx context.Context) (*models.Diagnostics, error) {
	started := s.now()

	all, err := s.sessions.AllSessions(ctx)
	if err != nil {
		return nil, err
	}

	sessions := models.SessionDiagnostics{Total: len(all)}
	for _, rec := range all {
		if rec.Status == models.StatusActive {
			sessions.Active++
		} else {
			sessions.Completed++
		}
		if !rec.Synced {
			sessions.Unsynced++
		}
		if !recordIsWellFormed(rec) {
			sessions.Corrupted++
		}
	}

	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, &apperrors.StorageError{Message: "failed to list storage keys", Err: err}
	}
	storageStats := models.StorageDiagnostics{TotalKeys: len(keys)}
	for _, key := range keys {
		if strings.HasPrefix(key, storage.BackupKeyPrefix) {
			storageStats.BackupKeys++
		}
	}

	health := deriveHealth(sessions)
	finished := s.now()

	return &models.Diagnostics{
		Sessions: sessions,
		Storage:  storageStats,
		Performance: models.PerformanceDiagnostics{
			GenerationTimeMs: finished.Sub(started).Milliseconds(),
		},
		Health:      health,
		GeneratedAt: finished.UnixMilli(),
	}, nil
}

// recordIsWellFormed runs the structural validator over the persisted shape
// of a record, catching legacy rows that decode but would not validate.
func recordIsWellFormed(rec models.SessionRecord) bool {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return false
	}
	return ValidateSession(asMap).Valid
}

func deriveHealth(sessions models.SessionDiagnostics) models.HealthDiagnostics {
	corruption := 0.0
	if sessions.Total > 0 {
		corruption = float64(sessions.Corrupted) / float64(sessions.Total)
	}

	status := models.HealthOK
	var reasons []string

	if sessions.Unsynced > degradedPendingSessions {
		status = models.HealthDegraded
		reasons = append(reasons, "pending sync backlog is high")
	}
	if corruption > degradedCorruptionRatio {
		status = models.HealthDegraded
		reasons = append(reasons, "corrupted session records detected")
	}
	if sessions.Unsynced > criticalPendingSessions || corruption > criticalCorruptionRatio {
		status = models.HealthCritical
	}

	return models.HealthDiagnostics{Status: status, Reasons: reasons}
}
