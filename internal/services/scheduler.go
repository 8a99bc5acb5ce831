package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
)

const (
	maintenancePollInterval = 1 * time.Hour
	cleanupInterval         = 24 * time.Hour
	pruneInterval           = 24 * time.Hour
)

// MaintenanceScheduler enqueues retention jobs at most once per interval.
// Last-run stamps live in sync metadata, so restarts do not re-run work
// that already happened today.
type MaintenanceScheduler struct {
	redis    *redis.Client
	meta     *repository.MetaRepo
	stopChan chan struct{}
}

func NewMaintenanceScheduler(redisClient *redis.Client, meta *repository.MetaRepo) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		redis:    redisClient,
		meta:     meta,
		stopChan: make(chan struct{}),
	}
}

func (s *MaintenanceScheduler) Start() {
	if s.redis == nil || s.meta == nil {
		return
	}

	go s.loop()
	log.Printf("Maintenance scheduler started")
}

func (s *MaintenanceScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *MaintenanceScheduler) loop() {
	// Run on startup as well as by interval.
	s.tick(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(maintenancePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick(context.Background(), time.Now().UTC())
		}
	}
}

func (s *MaintenanceScheduler) tick(ctx context.Context, now time.Time) {
	meta, err := s.meta.Get(ctx)
	if err != nil {
		log.Printf("maintenance: failed to load metadata: %v", err)
		return
	}

	if due(meta.LastCleanupAt, cleanupInterval, now) {
		if s.enqueue(ctx, models.JobCleanup, now) {
			at := now.UnixMilli()
			if _, err := s.meta.Update(ctx, func(m *repository.SyncMeta) { m.LastCleanupAt = &at }); err != nil {
				// An unstamped run re-enqueues on the next tick; the job is
				// idempotent, so log and move on.
				log.Printf("maintenance: failed to stamp cleanup run: %v", err)
			}
		}
	}
	if due(meta.LastPruneAt, pruneInterval, now) {
		if s.enqueue(ctx, models.JobPruneBackups, now) {
			at := now.UnixMilli()
			if _, err := s.meta.Update(ctx, func(m *repository.SyncMeta) { m.LastPruneAt = &at }); err != nil {
				log.Printf("maintenance: failed to stamp prune run: %v", err)
			}
		}
	}
}

func (s *MaintenanceScheduler) enqueue(ctx context.Context, jobType string, now time.Time) bool {
	job := models.MaintenanceJob{
		ID:         uuid.NewString(),
		Type:       jobType,
		EnqueuedAt: now.UnixMilli(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		log.Printf("maintenance: failed to encode %s job: %v", jobType, err)
		return false
	}
	if err := s.redis.RPush(ctx, models.MaintenanceQueue, payload).Err(); err != nil {
		log.Printf("maintenance: failed to enqueue %s job: %v", jobType, err)
		return false
	}
	return true
}

func due(lastRun *int64, interval time.Duration, now time.Time) bool {
	if lastRun == nil {
		return true
	}
	return now.Sub(time.UnixMilli(*lastRun)) >= interval
}
