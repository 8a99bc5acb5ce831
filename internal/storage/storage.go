package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Well-known storage keys. The layout mirrors the extension's local storage
// so synced state stays portable.
const (
	KeySessions     = "site_usage_sessions"
	KeyOverrides    = "override_sessions"
	KeyUserInfo     = "userInfo"
	KeySyncMeta     = "sync_meta"
	BackupKeyPrefix = "backup_"
)

// ErrKeyNotFound is returned by Get for absent keys so callers can
// distinguish "empty" from a real storage failure.
var ErrKeyNotFound = errors.New("storage: key not found")

// Backend is the key-value storage port. Implementations hold opaque JSON
// values per key and offer no multi-key transactions; callers that need
// consistency use single-writer discipline (see tracker) or tolerate
// last-writer-wins on metadata.
type Backend interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Remove(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)
}

// GetJSON reads a key and decodes it into out. A missing key returns
// ErrKeyNotFound with out untouched.
func GetJSON(ctx context.Context, b Backend, key string, out interface{}) error {
	raw, err := b.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, b Backend, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Set(ctx, key, raw)
}
