package repository

import (
	"context"

	"focustrack-backend/internal/apperrors"
	"focustrack-backend/internal/storage"
)

// SyncMeta is small cold-path metadata: last sync acknowledgment plus the
// maintenance scheduler's last-run stamps. Updates are read-then-write and
// tolerate last-writer-wins.
type SyncMeta struct {
	LastSyncAt    *int64 `json:"lastSyncAt,omitempty"`
	LastBatch     string `json:"lastBatch,omitempty"`
	LastCleanupAt *int64 `json:"lastCleanupAt,omitempty"`
	LastPruneAt   *int64 `json:"lastPruneAt,omitempty"`
}

type MetaRepo struct {
	store storage.Backend
}

func NewMetaRepo(store storage.Backend) *MetaRepo {
	return &MetaRepo{store: store}
}

func (r *MetaRepo) Get(ctx context.Context) (SyncMeta, error) {
	var meta SyncMeta
	err := storage.GetJSON(ctx, r.store, storage.KeySyncMeta, &meta)
	if err == storage.ErrKeyNotFound {
		return SyncMeta{}, nil
	}
	if err != nil {
		return SyncMeta{}, &apperrors.StorageError{Message: "failed to load sync metadata", Err: err}
	}
	return meta, nil
}

func (r *MetaRepo) Update(ctx context.Context, mutate func(*SyncMeta)) (SyncMeta, error) {
	meta, err := r.Get(ctx)
	if err != nil {
		return SyncMeta{}, err
	}
	mutate(&meta)
	if err := storage.SetJSON(ctx, r.store, storage.KeySyncMeta, meta); err != nil {
		return SyncMeta{}, &apperrors.StorageError{Message: "failed to save sync metadata", Err: err}
	}
	return meta, nil
}
