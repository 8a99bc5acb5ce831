package services

import (
	"context"
	"time"

	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
)

// SyncService reports sync readiness and hands batches of unsynced records
// to the caller. It never talks to the remote service itself; retry policy
// belongs to the sync layer on the other side of the boundary.
type SyncService struct {
	sessions     *repository.SessionRepo
	users        *repository.UserRepo
	meta         *repository.MetaRepo
	markOnExport bool
	now          func() time.Time
}

func NewSyncService(sessions *repository.SessionRepo, users *repository.UserRepo, meta *repository.MetaRepo, markOnExport bool, now func() time.Time) *SyncService {
	if now == nil {
		now = time.Now
	}
	return &SyncService{
		sessions:     sessions,
		users:        users,
		meta:         meta,
		markOnExport: markOnExport,
		now:          now,
	}
}

// GetSyncStatus derives readiness from pending-count and stored identity.
// No side effects.
func (s *SyncService) GetSyncStatus(ctx context.Context) (*models.SyncStatus, error) {
	totals, err := s.sessions.Totals(ctx)
	if err != nil {
		return nil, err
	}
	info, err := s.users.GetUserInfo(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := s.meta.Get(ctx)
	if err != nil {
		return nil, err
	}

	authenticated := info != nil && info.UID != ""
	return &models.SyncStatus{
		Ready:             authenticated && totals.Unsynced > 0,
		UserAuthenticated: authenticated,
		PendingSessions:   totals.Unsynced,
		LastSyncAt:        meta.LastSyncAt,
	}, nil
}

// Export collects the current unsynced batch. In mark-on-export mode the
// records are flagged synced immediately and the batch is stamped as the
// last sync; otherwise the caller acknowledges via AcknowledgeBatch.
func (s *SyncService) Export(ctx context.Context) (*models.SyncExport, error) {
	export, err := s.sessions.ExportSessionsForSync(ctx, s.markOnExport, s.now())
	if err != nil {
		return nil, err
	}

	if s.markOnExport && export.TotalCount > 0 {
		at := s.now().UnixMilli()
		if _, err := s.meta.Update(ctx, func(m *repository.SyncMeta) {
			m.LastSyncAt = &at
			m.LastBatch = export.SyncBatch
		}); err != nil {
			return nil, err
		}
	}
	return export, nil
}

// AcknowledgeBatch is the caller-driven completion step for read-only
// exports: it flips synced on the delivered ids and stamps the batch.
func (s *SyncService) AcknowledgeBatch(ctx context.Context, batch string, ids []string) (int, error) {
	marked, err := s.sessions.MarkSessionsSynced(ctx, ids)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		at := s.now().UnixMilli()
		if _, err := s.meta.Update(ctx, func(m *repository.SyncMeta) {
			m.LastSyncAt = &at
			m.LastBatch = batch
		}); err != nil {
			return marked, err
		}
	}
	return marked, nil
}
