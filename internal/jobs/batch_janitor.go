package jobs

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"RestoLedger/api/ingest/staging"
	"RestoLedger/internal/config"
)

// JanitorConfig controls the staging cleanup job.
type JanitorConfig struct {
	Schedule            string
	StaleBatchHours     int
	StagedRetentionDays int
}

func NewDefaultJanitorConfig() *JanitorConfig {
	return &JanitorConfig{
		Schedule:            config.DefaultJanitorSchedule,
		StaleBatchHours:     config.DefaultStaleBatchHours,
		StagedRetentionDays: config.DefaultStagedRetentionDays,
	}
}

// BatchJanitor fails upload batches stuck in processing and purges staged
// rows past retention. A batch goes stale when its worker died without
// marking completion, usually a crashed process mid-chunk.
type BatchJanitor struct {
	config *JanitorConfig
	store  staging.Store
	cron   *cron.Cron
}

func RunBatchJanitor(cfg *JanitorConfig, pool *pgxpool.Pool) (*BatchJanitor, error) {
	j := &BatchJanitor{
		config: cfg,
		store:  staging.NewPgStore(pool),
		cron:   cron.New(),
	}
	if _, err := j.cron.AddFunc(cfg.Schedule, j.sweep); err != nil {
		return nil, err
	}
	j.cron.Start()
	log.Printf("[JANITOR] scheduled %q (stale after %dh, retention %dd)",
		cfg.Schedule, cfg.StaleBatchHours, cfg.StagedRetentionDays)
	return j, nil
}

func (j *BatchJanitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *BatchJanitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	staleCutoff := time.Now().UTC().Add(-time.Duration(j.config.StaleBatchHours) * time.Hour)
	batches, err := j.store.ListBatches(ctx, "")
	if err != nil {
		log.Printf("[JANITOR] listing batches failed: %v", err)
		return
	}
	failed := 0
	for _, b := range batches {
		if b.Status != staging.BatchProcessing || b.CreatedAt.After(staleCutoff) {
			continue
		}
		if err := j.store.CompleteBatch(ctx, b.ID, staging.BatchFailed); err != nil {
			log.Printf("[JANITOR] failing stale batch %s: %v", b.ID, err)
			continue
		}
		failed++
	}

	retentionCutoff := time.Now().UTC().AddDate(0, 0, -j.config.StagedRetentionDays)
	purged, err := j.store.DeleteStagedBefore(ctx, retentionCutoff)
	if err != nil {
		log.Printf("[JANITOR] purging staged rows failed: %v", err)
	}
	if failed > 0 || purged > 0 {
		log.Printf("[JANITOR] swept: %d stale batches failed, %d staged rows purged", failed, purged)
	}
}
