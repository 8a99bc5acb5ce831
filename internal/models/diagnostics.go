package models

// Health status levels reported by diagnostics.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthCritical = "critical"
)

type SessionDiagnostics struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Unsynced  int `json:"unsynced"`
	Corrupted int `json:"corrupted"`
}

type StorageDiagnostics struct {
	TotalKeys  int `json:"totalKeys"`
	BackupKeys int `json:"backupKeys"`
}

type PerformanceDiagnostics struct {
	GenerationTimeMs int64 `json:"generationTimeMs"`
}

type HealthDiagnostics struct {
	Status  string   `json:"status"`
	Reasons []string `json:"reasons,omitempty"`
}

// Diagnostics is a purely derived health report; generating it never
// mutates storage.
type Diagnostics struct {
	Sessions    SessionDiagnostics     `json:"sessions"`
	Storage     StorageDiagnostics     `json:"storage"`
	Performance PerformanceDiagnostics `json:"performance"`
	Health      HealthDiagnostics      `json:"health"`
	GeneratedAt int64                  `json:"generatedAt"`
}

// BackupSummary lists a stored backup without its payload.
type BackupSummary struct {
	Key       string `json:"key"`
	CreatedAt int64  `json:"createdAt"`
	Type      string `json:"type"`
	Items     int    `json:"items"`
}
