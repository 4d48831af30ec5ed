package ingest

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"RestoLedger/api/ingest/channel"
	"RestoLedger/api/ingest/pipeline"
	"RestoLedger/api/ingest/salesdata"
	"RestoLedger/api/ingest/staging"
	"RestoLedger/api/ingest/validate"
	"RestoLedger/internal/serviceiface"
)

type IngestService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewIngestService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &IngestService{config: cfg, pool: pool}
}

func (s *IngestService) Name() string {
	return "ingest"
}

func (s *IngestService) Start() error {
	var (
		store staging.Store
		repo  salesdata.Repository
	)
	if s.pool != nil {
		store = staging.NewPgStore(s.pool)
		repo = salesdata.NewPgRepository(s.pool)
	} else {
		store = staging.NewMemoryStore()
		repo = salesdata.NewMemoryRepository()
	}

	validator := validate.New()
	coordinator := pipeline.NewCoordinator(store, validator)
	applyLimitOverrides(&coordinator.Limits, s.config)
	registry := channel.NewRegistry(configuredChannels(s.config)...)
	gateway := pipeline.NewApprovalGateway(store, repo, registry)

	go StartIngestService(store, repo, coordinator, gateway, registry)
	return nil
}

func (s *IngestService) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return StopIngestService(ctx)
}

func applyLimitOverrides(limits *pipeline.Limits, cfg map[string]interface{}) {
	if cfg == nil {
		return
	}
	if v := cfgInt(cfg, "max_files"); v > 0 {
		limits.MaxFiles = v
	}
	if v := cfgInt(cfg, "max_file_mb"); v > 0 {
		limits.MaxFileBytes = int64(v) << 20
	}
	if v := cfgInt(cfg, "max_batch_mb"); v > 0 {
		limits.MaxBatchBytes = int64(v) << 20
	}
	if v := cfgInt(cfg, "max_concurrent"); v > 0 {
		limits.MaxConcurrent = v
	}
	if v := cfgInt(cfg, "chunk_size"); v > 0 {
		limits.ChunkSize = v
	}
}

func cfgInt(cfg map[string]interface{}, key string) int {
	switch t := cfg[key].(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if v, err := strconv.Atoi(t); err == nil {
			return v
		}
	}
	return 0
}

// configuredChannels reads the channels list from the service config map in
// services.yaml.
func configuredChannels(cfg map[string]interface{}) []channel.Channel {
	raw, ok := cfg["channels"].([]interface{})
	if !ok {
		return nil
	}
	var out []channel.Channel
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ch := channel.Channel{Active: true}
		if v, ok := m["name"].(string); ok {
			ch.Name = v
		}
		if v, ok := m["commission_type"].(string); ok {
			ch.CommissionType = v
		}
		switch v := m["commission_rate"].(type) {
		case float64:
			ch.CommissionRate = v
		case int:
			ch.CommissionRate = float64(v)
		}
		switch v := m["flat_fee_amount"].(type) {
		case float64:
			ch.FlatFeeAmount = v
		case int:
			ch.FlatFeeAmount = float64(v)
		}
		if v, ok := m["active"].(bool); ok {
			ch.Active = v
		}
		if aliases, ok := m["aliases"].([]interface{}); ok {
			for _, a := range aliases {
				if s, ok := a.(string); ok {
					ch.Aliases = append(ch.Aliases, s)
				}
			}
		}
		if ch.Name != "" {
			out = append(out, ch)
		}
	}
	return out
}
