package models

import (
	"fmt"
	"time"
)

// SessionStatus is a closed enumeration; anything else is rejected by the
// validator and normalized by the sanitizer.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

func (s SessionStatus) Valid() bool {
	return s == StatusActive || s == StatusCompleted
}

// SessionRecord is one domain-day usage session. Records are bucketed by
// UTCDate in storage; UTCDate never changes once set. A completed record is
// immutable except for the Synced flag.
type SessionRecord struct {
	ID              string        `json:"id"`
	Domain          string        `json:"domain"`
	UserID          string        `json:"userId,omitempty"`
	StartTime       int64         `json:"startTime"`
	StartTimeUTC    string        `json:"startTimeUTC"`
	Timezone        string        `json:"timezone"`
	UTCDate         string        `json:"utcDate"`
	DurationSeconds int64         `json:"duration"`
	Visits          int           `json:"visits"`
	Status          SessionStatus `json:"status"`
	CurrentlyActive bool          `json:"currentlyActive"`
	CreatedAt       int64         `json:"createdAt"`
	UpdatedAt       int64         `json:"updatedAt"`
	Synced          bool          `json:"synced"`
}

// OverrideSession is a fixed-length grant that temporarily lifts a block for
// a domain. IDs always carry the "override_" prefix; legacy records without
// it (or without StartTimeUTC) are purged on read.
type OverrideSession struct {
	ID              string `json:"id"`
	Domain          string `json:"domain"`
	StartTime       int64  `json:"startTime"`
	StartTimeUTC    string `json:"startTimeUTC"`
	Timezone        string `json:"timezone"`
	UTCDate         string `json:"utcDate"`
	DurationMinutes int    `json:"duration"`
	CreatedAt       int64  `json:"createdAt"`
}

const OverrideIDPrefix = "override_"

// NewRecordID builds the canonical "<kind>_<epochMillis>" id.
func NewRecordID(kind string, at time.Time) string {
	return fmt.Sprintf("%s_%d", kind, at.UnixMilli())
}

// UTCDateOf formats the storage bucket key for a point in time.
func UTCDateOf(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

// NewSessionRecord opens an active record for a domain at the given instant.
func NewSessionRecord(domain, timezone string, at time.Time) *SessionRecord {
	ms := at.UnixMilli()
	return &SessionRecord{
		ID:              NewRecordID("session", at),
		Domain:          domain,
		StartTime:       ms,
		StartTimeUTC:    at.UTC().Format(time.RFC3339),
		Timezone:        timezone,
		UTCDate:         UTCDateOf(at),
		DurationSeconds: 0,
		Visits:          1,
		Status:          StatusActive,
		CurrentlyActive: true,
		CreatedAt:       ms,
		UpdatedAt:       ms,
	}
}

// ValidationResult is always returned, never raised; Error carries the first
// violation found.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// SyncExport is the payload handed to the sync layer. TotalCount always
// equals len(Sessions).
type SyncExport struct {
	Sessions   []SyncedSessionRecord `json:"sessions"`
	TotalCount int                   `json:"totalCount"`
	SyncBatch  string                `json:"syncBatch"`
	Version    string                `json:"version"`
	ExportedAt int64                 `json:"exportedAt"`
}

// SyncedSessionRecord tags an exported record with its batch.
type SyncedSessionRecord struct {
	SessionRecord
	SyncBatch string `json:"syncBatch"`
	Version   string `json:"version"`
}

// CleanupResult reports what a retention pass did.
type CleanupResult struct {
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// SyncStatus is derived state only; producing it has no side effects.
type SyncStatus struct {
	Ready             bool   `json:"ready"`
	UserAuthenticated bool   `json:"userAuthenticated"`
	PendingSessions   int    `json:"pendingSessions"`
	LastSyncAt        *int64 `json:"lastSyncAt"`
}
