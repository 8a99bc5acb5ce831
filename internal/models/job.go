package models

// Maintenance job types consumed by the worker pool.
const (
	JobCleanup      = "cleanup"
	JobPruneBackups = "prune_backups"
)

// MaintenanceQueue is the Redis list the scheduler pushes to and workers
// BLPOP from.
const MaintenanceQueue = "queue:maintenance"

type MaintenanceJob struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	EnqueuedAt int64  `json:"enqueued_at"`
}
