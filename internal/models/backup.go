package models

import "encoding/json"

// Backup is a point-in-time snapshot of the tracking keys. Backups are never
// mutated after creation; they live under their own "backup_<epochMillis>"
// storage key until pruned.
type Backup struct {
	Key       string                     `json:"key"`
	CreatedAt int64                      `json:"createdAt"`
	Type      string                     `json:"type"`
	Payload   map[string]json.RawMessage `json:"payload"`
}

type BackupResult struct {
	Success   bool   `json:"success"`
	BackupKey string `json:"backupKey,omitempty"`
}

type RestoreVerification struct {
	Success bool           `json:"success"`
	Counts  map[string]int `json:"counts,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

type RestoreResult struct {
	Success       bool                `json:"success"`
	RestoredItems int                 `json:"restoredItems"`
	Verification  RestoreVerification `json:"verification"`
}

type ResetOptions struct {
	// KeepBackups leaves existing backup_<ts> keys in place.
	KeepBackups bool `json:"keepBackups"`
	// KeepUserInfo leaves the stored identity in place.
	KeepUserInfo bool `json:"keepUserInfo"`
}

type ResetResult struct {
	Success     bool   `json:"success"`
	FinalBackup string `json:"finalBackup,omitempty"`
	ClearedKeys int    `json:"clearedKeys"`
}
