package repository

import (
	"context"
	"sort"
	"strings"

	"focustrack-backend/internal/apperrors"
	"focustrack-backend/internal/models"
	"focustrack-backend/internal/storage"
)

// OverrideRepo manages fixed-length block-override grants, bucketed by
// utcDate like usage sessions. Legacy records written before the id scheme
// settled (no "override_" prefix, or no startTimeUTC) are purged whenever a
// bucket is read.
type OverrideRepo struct {
	store storage.Backend
}

func NewOverrideRepo(store storage.Backend) *OverrideRepo {
	return &OverrideRepo{store: store}
}

type overrideBuckets map[string][]models.OverrideSession

func (r *OverrideRepo) loadBuckets(ctx context.Context) (overrideBuckets, error) {
	buckets := overrideBuckets{}
	err := storage.GetJSON(ctx, r.store, storage.KeyOverrides, &buckets)
	if err == storage.ErrKeyNotFound {
		return overrideBuckets{}, nil
	}
	if err != nil {
		return nil, &apperrors.StorageError{Message: "failed to load override sessions", Err: err}
	}
	return buckets, nil
}

func (r *OverrideRepo) saveBuckets(ctx context.Context, buckets overrideBuckets) error {
	if err := storage.SetJSON(ctx, r.store, storage.KeyOverrides, buckets); err != nil {
		return &apperrors.StorageError{Message: "failed to save override sessions", Err: err}
	}
	return nil
}

func legacyOverride(ov models.OverrideSession) bool {
	return ov.StartTimeUTC == "" || !strings.HasPrefix(ov.ID, models.OverrideIDPrefix)
}

func (r *OverrideRepo) RecordOverride(ctx context.Context, ov *models.OverrideSession) error {
	if legacyOverride(*ov) {
		return &apperrors.ValidationError{Fields: map[string]string{
			"id": "override ids must carry the override_ prefix and a startTimeUTC",
		}}
	}

	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return err
	}
	buckets[ov.UTCDate] = append(buckets[ov.UTCDate], *ov)
	return r.saveBuckets(ctx, buckets)
}

// GetByDate returns the overrides for one date, purging any legacy records
// it finds along the way.
func (r *OverrideRepo) GetByDate(ctx context.Context, utcDate string) ([]models.OverrideSession, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return nil, err
	}

	kept := buckets[utcDate][:0]
	purged := false
	for _, ov := range buckets[utcDate] {
		if legacyOverride(ov) {
			purged = true
			continue
		}
		kept = append(kept, ov)
	}

	if purged {
		if len(kept) == 0 {
			delete(buckets, utcDate)
		} else {
			buckets[utcDate] = kept
		}
		if err := r.saveBuckets(ctx, buckets); err != nil {
			return nil, err
		}
	}

	out := make([]models.OverrideSession, len(kept))
	copy(out, kept)
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// PurgeLegacy sweeps every bucket and reports how many records were dropped.
func (r *OverrideRepo) PurgeLegacy(ctx context.Context) (int, error) {
	buckets, err := r.loadBuckets(ctx)
	if err != nil {
		return 0, err
	}

	purged := 0
	for date, records := range buckets {
		kept := records[:0]
		for _, ov := range records {
			if legacyOverride(ov) {
				purged++
				continue
			}
			kept = append(kept, ov)
		}
		if len(kept) == 0 {
			delete(buckets, date)
		} else {
			buckets[date] = kept
		}
	}

	if purged > 0 {
		if err := r.saveBuckets(ctx, buckets); err != nil {
			return 0, err
		}
	}
	return purged, nil
}
