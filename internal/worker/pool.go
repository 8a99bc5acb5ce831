package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
	"focustrack-backend/internal/services"
)

const backupsToKeep = 10

// Pool runs maintenance jobs (retention cleanup, backup pruning) off a
// Redis list so they never overlap the tracker's hot path. Storage failures
// are logged and dropped; the core does not retry.
type Pool struct {
	redis         *redis.Client
	sessions      *repository.SessionRepo
	overrides     *repository.OverrideRepo
	backups       *services.BackupService
	retentionDays int
	workerCount   int
	stopChan      chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	sessions *repository.SessionRepo,
	overrides *repository.OverrideRepo,
	backups *services.BackupService,
	retentionDays int,
	workerCount int,
) *Pool {
	return &Pool{
		redis:         redisClient,
		sessions:      sessions,
		overrides:     overrides,
		backups:       backups,
		retentionDays: retentionDays,
		workerCount:   workerCount,
		stopChan:      make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d maintenance workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, models.MaintenanceQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.MaintenanceJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		p.process(ctx, id, job)
	}
}

func (p *Pool) process(ctx context.Context, id int, job models.MaintenanceJob) {
	switch job.Type {
	case models.JobCleanup:
		result, err := p.sessions.CleanupStaleData(ctx, p.retentionDays, time.Now().UTC())
		if err != nil {
			log.Printf("Worker %d: cleanup failed: %v", id, err)
			return
		}
		purged, err := p.overrides.PurgeLegacy(ctx)
		if err != nil {
			log.Printf("Worker %d: override purge failed: %v", id, err)
			return
		}
		log.Printf("Worker %d: cleanup removed %d/%d sessions, purged %d legacy overrides", id, result.Removed, result.Total, purged)

	case models.JobPruneBackups:
		pruned, err := p.backups.PruneBackups(ctx, backupsToKeep)
		if err != nil {
			log.Printf("Worker %d: backup prune failed: %v", id, err)
			return
		}
		log.Printf("Worker %d: pruned %d stale backups", id, pruned)

	default:
		log.Printf("Worker %d: unknown job type %q", id, job.Type)
	}
}
