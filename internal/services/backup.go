package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"focustrack-backend/internal/apperrors"
	"focustrack-backend/internal/models"
	"focustrack-backend/internal/storage"
)

// ResetConfirmationToken is the exact sentinel a caller must echo back
// before Reset will touch anything. Anything else fails closed.
const ResetConfirmationToken = "RESET ALL TRACKING DATA"

// trackedKeys are the live keys a backup snapshots and a reset clears.
var trackedKeys = []string{
	storage.KeySessions,
	storage.KeyOverrides,
	storage.KeyUserInfo,
	storage.KeySyncMeta,
}

// BackupService owns backup entities: point-in-time snapshots of the
// tracking keys, taken before destructive operations and never mutated
// afterwards.
type BackupService struct {
	store storage.Backend
	now   func() time.Time
}

func NewBackupService(store storage.Backend, now func() time.Time) *BackupService {
	if now == nil {
		now = time.Now
	}
	return &BackupService{store: store, now: now}
}

// Backup snapshots every tracked key that exists. Read-only with respect to
// the live data.
func (s *BackupService) Backup(ctx context.Context) (models.BackupResult, error) {
	at := s.now()
	backup := models.Backup{
		Key:       fmt.Sprintf("%s%d", storage.BackupKeyPrefix, at.UnixMilli()),
		CreatedAt: at.UnixMilli(),
		Type:      "full",
		Payload:   map[string]json.RawMessage{},
	}

	for _, key := range trackedKeys {
		raw, err := s.store.Get(ctx, key)
		if err == storage.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return models.BackupResult{}, &apperrors.StorageError{Message: "failed to read " + key, Err: err}
		}
		backup.Payload[key] = raw
	}

	if err := storage.SetJSON(ctx, s.store, backup.Key, backup); err != nil {
		return models.BackupResult{}, &apperrors.StorageError{Message: "failed to write backup", Err: err}
	}
	return models.BackupResult{Success: true, BackupKey: backup.Key}, nil
}

// Restore copies a backup's payload back over the live keys, then re-reads
// and compares what landed against the snapshot.
func (s *BackupService) Restore(ctx context.Context, backupKey string) (models.RestoreResult, error) {
	var backup models.Backup
	err := storage.GetJSON(ctx, s.store, backupKey, &backup)
	if err == storage.ErrKeyNotFound {
		return models.RestoreResult{}, &apperrors.NotFoundError{Message: fmt.Sprintf("backup %q does not exist", backupKey)}
	}
	if err != nil {
		return models.RestoreResult{}, &apperrors.StorageError{Message: "failed to read backup", Err: err}
	}

	restored := 0
	for key, raw := range backup.Payload {
		if err := s.store.Set(ctx, key, raw); err != nil {
			return models.RestoreResult{}, &apperrors.StorageError{Message: "failed to restore " + key, Err: err}
		}
		restored++
	}

	verification := s.verify(ctx, backup)
	return models.RestoreResult{
		Success:       true,
		RestoredItems: restored,
		Verification:  verification,
	}, nil
}

// verify re-reads each restored key and confirms it matches the snapshot
// byte-for-byte (after JSON compaction), recording record counts per key.
func (s *BackupService) verify(ctx context.Context, backup models.Backup) models.RestoreVerification {
	counts := make(map[string]int, len(backup.Payload))
	for key, want := range backup.Payload {
		live, err := s.store.Get(ctx, key)
		if err != nil {
			return models.RestoreVerification{Success: false, Detail: "failed to re-read " + key}
		}
		if !jsonEqual(want, live) {
			return models.RestoreVerification{Success: false, Detail: "restored value differs for " + key}
		}
		counts[key] = recordCount(key, live)
	}
	return models.RestoreVerification{Success: true, Counts: counts}
}

// Reset clears the targeted keys after taking a final backup. Without the
// exact confirmation token it performs no mutation at all.
func (s *BackupService) Reset(ctx context.Context, confirmationToken string, opts models.ResetOptions) (models.ResetResult, error) {
	if confirmationToken != ResetConfirmationToken {
		return models.ResetResult{}, &apperrors.ConfirmationError{
			Message: "reset requires the exact confirmation token; no data was modified",
		}
	}

	final, err := s.Backup(ctx)
	if err != nil {
		return models.ResetResult{}, err
	}

	targets := []string{storage.KeySessions, storage.KeyOverrides, storage.KeySyncMeta}
	if !opts.KeepUserInfo {
		targets = append(targets, storage.KeyUserInfo)
	}
	if !opts.KeepBackups {
		keys, err := s.store.Keys(ctx)
		if err != nil {
			return models.ResetResult{}, &apperrors.StorageError{Message: "failed to list keys", Err: err}
		}
		for _, key := range keys {
			// The final backup taken above survives the reset.
			if strings.HasPrefix(key, storage.BackupKeyPrefix) && key != final.BackupKey {
				targets = append(targets, key)
			}
		}
	}

	if err := s.store.Remove(ctx, targets...); err != nil {
		return models.ResetResult{}, &apperrors.StorageError{Message: "failed to clear storage", Err: err}
	}

	log.Printf("Storage reset: cleared %d keys, final backup %s", len(targets), final.BackupKey)
	return models.ResetResult{Success: true, FinalBackup: final.BackupKey, ClearedKeys: len(targets)}, nil
}

// ListBackups returns stored backups, newest first, without payloads.
func (s *BackupService) ListBackups(ctx context.Context) ([]models.BackupSummary, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, &apperrors.StorageError{Message: "failed to list keys", Err: err}
	}

	summaries := []models.BackupSummary{}
	for _, key := range keys {
		if !strings.HasPrefix(key, storage.BackupKeyPrefix) {
			continue
		}
		var backup models.Backup
		if err := storage.GetJSON(ctx, s.store, key, &backup); err != nil {
			log.Printf("Skipping unreadable backup %s: %v", key, err)
			continue
		}
		items := 0
		for payloadKey, raw := range backup.Payload {
			items += recordCount(payloadKey, raw)
		}
		summaries = append(summaries, models.BackupSummary{
			Key:       backup.Key,
			CreatedAt: backup.CreatedAt,
			Type:      backup.Type,
			Items:     items,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt > summaries[j].CreatedAt
	})
	return summaries, nil
}

// PruneBackups keeps the newest keep backups and removes the rest.
func (s *BackupService) PruneBackups(ctx context.Context, keep int) (int, error) {
	summaries, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(summaries) <= keep {
		return 0, nil
	}

	var stale []string
	for _, summary := range summaries[keep:] {
		stale = append(stale, summary.Key)
	}
	if err := s.store.Remove(ctx, stale...); err != nil {
		return 0, &apperrors.StorageError{Message: "failed to prune backups", Err: err}
	}
	return len(stale), nil
}

func jsonEqual(a, b json.RawMessage) bool {
	var bufA, bufB bytes.Buffer
	if json.Compact(&bufA, a) != nil || json.Compact(&bufB, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(bufA.Bytes(), bufB.Bytes())
}

// recordCount counts the records inside a bucketed map value; scalar keys
// count as one item.
func recordCount(key string, raw json.RawMessage) int {
	switch key {
	case storage.KeySessions, storage.KeyOverrides:
		var buckets map[string][]json.RawMessage
		if err := json.Unmarshal(raw, &buckets); err != nil {
			return 0
		}
		n := 0
		for _, records := range buckets {
			n += len(records)
		}
		return n
	default:
		return 1
	}
}
