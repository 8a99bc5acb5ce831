package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"focustrack-backend/internal/apperrors"
	"focustrack-backend/internal/models"
	"focustrack-backend/internal/storage"
)

const exportVersion = "1.0"

// SessionRepo owns the on-disk representation of domain-day usage sessions:
// a map of utcDate -> []SessionRecord under one storage key. The tracker is
// the only writer of active records; everything else reads, or flips sync
// metadata with read-then-write.
type SessionRepo struct {
	store storage.Backend
}

func NewSessionRepo(store storage.Backend) *SessionRepo {
	return &SessionRepo{store: store}
}

type sessionBuckets map[string][]models.SessionRecord

func (r *SessionRepo) loadBuckets(ctx context.Context) (sessionBuckets, error) {
	buckets := sessionBuckets{}
	err := storage.GetJSON(ctx, r.store, storage.KeySessions, &buckets)
	if err == storage.ErrKeyNotFound {
		return sessionBuckets{}, nil
	}
	if err != nil {
		return nil, &apperrors.StorageError{Message: "failed to load sessions", Err: err}
	}
	return buckets, nil
}

func (r *SessionRepo) saveBuckets(ctx context.Context, buckets sessionBuckets) error {
	if err := storage.SetJSON(ctx, r.store, storage.KeySessions, buckets); err != nil {
		return &apperrors.StorageError{Message: "failed to save sessions", Err: err}
	}
	return nil
}

// SaveSession upserts a record into its utcDate bucket. When the record is
// the live one for its domain, any other record claiming currentlyActive for
// that domain is demoted, keeping the one-live-session-per-domain invariant.
func (r *SessionRepo) SaveSession(ctx context.Context, rec *models.SessionRecord) error {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return err
	}

	if rec.CurrentlyActive {
		for date, records := range buckets {
			for i := range records {
				if records[i].Domain == rec.Domain && records[i].ID != rec.ID && records[i].CurrentlyActive {
					records[i].CurrentlyActive = false
				}
			}
			buckets[date] = records
		}
	}

	bucket := buckets[rec.UTCDate]
	replaced := false
	for i := range bucket {
		if bucket[i].ID == rec.ID {
			bucket[i] = *rec
			replaced = true
			break
		}
	}
	if !replaced {
		bucket = append(bucket, *rec)
	}
	buckets[rec.UTCDate] = bucket

	return r.saveBuckets(ctx, buckets)
}

// GetActiveSession returns the live record for a domain on a given date, or
// nil when the domain has none.
func (r *SessionRepo) GetActiveSession(ctx context.Context, domain, utcDate string) (*models.SessionRecord, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range buckets[utcDate] {
		if rec.Domain == domain && rec.Status == models.StatusActive && rec.CurrentlyActive {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

// GetAllActiveSessions scans every date bucket and returns active records,
// most recent first.
func (r *SessionRepo) GetAllActiveSessions(ctx context.Context) ([]models.SessionRecord, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return nil, err
	}

	var active []models.SessionRecord
	for _, records := range buckets {
		for _, rec := range records {
			if rec.Status == models.StatusActive {
				active = append(active, rec)
			}
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].StartTime > active[j].StartTime
	})
	return active, nil
}

// GetSessionsByDateRange returns records over an inclusive utcDate range.
func (r *SessionRepo) GetSessionsByDateRange(ctx context.Context, startDate, endDate string) ([]models.SessionRecord, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, &apperrors.ValidationError{Fields: map[string]string{"start": "must be an ISO date (YYYY-MM-DD)"}}
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, &apperrors.ValidationError{Fields: map[string]string{"end": "must be an ISO date (YYYY-MM-DD)"}}
	}
	if start.After(end) {
		return nil, &apperrors.RangeError{Message: fmt.Sprintf("start date %s is after end date %s", startDate, endDate)}
	}

	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return nil, err
	}

	var matched []models.SessionRecord
	for date, records := range buckets {
		// ISO dates compare correctly as strings.
		if date >= startDate && date <= endDate {
			matched = append(matched, records...)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].UTCDate != matched[j].UTCDate {
			return matched[i].UTCDate < matched[j].UTCDate
		}
		return matched[i].StartTime < matched[j].StartTime
	})
	return matched, nil
}

// CleanupStaleData drops whole date buckets older than the retention window.
// Re-running after a pass removes nothing further.
func (r *SessionRepo) CleanupStaleData(ctx context.Context, retentionDays int, now time.Time) (models.CleanupResult, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return models.CleanupResult{}, err
	}

	cutoff := models.UTCDateOf(now.AddDate(0, 0, -retentionDays))

	total := 0
	removed := 0
	for date, records := range buckets {
		total += len(records)
		if date < cutoff {
			removed += len(records)
			delete(buckets, date)
		}
	}

	if removed > 0 {
		if err := r.saveBuckets(ctx, buckets); err != nil {
			return models.CleanupResult{}, err
		}
	}
	return models.CleanupResult{Removed: removed, Total: total}, nil
}

// ExportSessionsForSync collects every unsynced record under a fresh batch
// tag. With markOnExport the records are flagged synced in the same call;
// otherwise the caller acknowledges the batch later via MarkSessionsSynced.
func (r *SessionRepo) ExportSessionsForSync(ctx context.Context, markOnExport bool, now time.Time) (*models.SyncExport, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return nil, err
	}

	batch := "batch_" + uuid.NewString()
	export := &models.SyncExport{
		Sessions:   []models.SyncedSessionRecord{},
		SyncBatch:  batch,
		Version:    exportVersion,
		ExportedAt: now.UnixMilli(),
	}

	dirty := false
	for date, records := range buckets {
		for i := range records {
			if records[i].Synced {
				continue
			}
			export.Sessions = append(export.Sessions, models.SyncedSessionRecord{
				SessionRecord: records[i],
				SyncBatch:     batch,
				Version:       exportVersion,
			})
			if markOnExport {
				records[i].Synced = true
				dirty = true
			}
		}
		buckets[date] = records
	}
	export.TotalCount = len(export.Sessions)

	sort.Slice(export.Sessions, func(i, j int) bool {
		return export.Sessions[i].StartTime < export.Sessions[j].StartTime
	})

	if dirty {
		if err := r.saveBuckets(ctx, buckets); err != nil {
			return nil, err
		}
	}
	return export, nil
}

// MarkSessionsSynced flips the synced flag on the given ids and reports how
// many records changed.
func (r *SessionRepo) MarkSessionsSynced(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return 0, err
	}

	marked := 0
	for date, records := range buckets {
		for i := range records {
			if wanted[records[i].ID] && !records[i].Synced {
				records[i].Synced = true
				marked++
			}
		}
		buckets[date] = records
	}

	if marked > 0 {
		if err := r.saveBuckets(ctx, buckets); err != nil {
			return 0, err
		}
	}
	return marked, nil
}

// FinalizeDanglingSessions completes records left active by an unclean
// shutdown. Durations are kept as last persisted; the gap since then was
// never confirmed activity.
func (r *SessionRepo) FinalizeDanglingSessions(ctx context.Context, now time.Time) (int, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for date, records := range buckets {
		for i := range records {
			if records[i].Status == models.StatusActive {
				records[i].Status = models.StatusCompleted
				records[i].CurrentlyActive = false
				records[i].UpdatedAt = now.UnixMilli()
				finalized++
			}
		}
		buckets[date] = records
	}

	if finalized > 0 {
		if err := r.saveBuckets(ctx, buckets); err != nil {
			return 0, err
		}
	}
	return finalized, nil
}

// SessionTotals summarizes the store for sync status and diagnostics.
type SessionTotals struct {
	Total     int
	Active    int
	Completed int
	Unsynced  int
	Dates     int
}

func (r *SessionRepo) Totals(ctx context.Context) (SessionTotals, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return SessionTotals{}, err
	}

	totals := SessionTotals{Dates: len(buckets)}
	for _, records := range buckets {
		for _, rec := range records {
			totals.Total++
			if rec.Status == models.StatusActive {
				totals.Active++
			} else {
				totals.Completed++
			}
			if !rec.Synced {
				totals.Unsynced++
			}
		}
	}
	return totals, nil
}

// AllSessions returns every record across buckets, used by diagnostics for
// corruption scoring.
func (r *SessionRepo) AllSessions(ctx context.Context) ([]models.SessionRecord, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return nil, err
	}
	var all []models.SessionRecord
	for _, records := range buckets {
		all = append(all, records...)
	}
	return all, nil
}
