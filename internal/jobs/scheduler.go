package jobs

import (
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"RestoLedger/internal/logger"
	"RestoLedger/internal/serviceiface"
)

type CronService struct {
	config  map[string]interface{}
	db      *pgxpool.Pool
	janitor *BatchJanitor
}

func NewCronService(cfg map[string]interface{}, db *pgxpool.Pool) serviceiface.Service {
	return &CronService{
		config: cfg,
		db:     db,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	if s.db == nil {
		log.Println("Cron service: no database pool, janitor disabled")
		return nil
	}

	janitorConfig := NewDefaultJanitorConfig()
	if s.config != nil {
		if schedule, ok := s.config["janitor_schedule"].(string); ok && schedule != "" {
			janitorConfig.Schedule = schedule
		}
		if hours, ok := s.config["stale_batch_hours"].(int); ok && hours > 0 {
			janitorConfig.StaleBatchHours = hours
		}
		if days, ok := s.config["staged_retention_days"].(int); ok && days > 0 {
			janitorConfig.StagedRetentionDays = days
		}
	}

	janitor, err := RunBatchJanitor(janitorConfig, s.db)
	if err != nil {
		return fmt.Errorf("failed to start batch janitor: %v", err)
	}
	s.janitor = janitor

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("Batch janitor scheduled")
	}
	log.Println("Cron service started, batch janitor scheduled")
	return nil
}

func (s *CronService) Stop() error {
	if s.janitor != nil {
		s.janitor.Stop()
	}
	log.Println("Cron service stopped.")
	return nil
}
