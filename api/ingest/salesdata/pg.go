package salesdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository persists sales records in Postgres. Scalar columns carry the
// headline numbers for querying; the full record including breakdowns lives
// in raw_data as JSONB.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) FindByTeamAndDate(ctx context.Context, teamID string, date time.Time) (*SalesData, error) {
	var (
		id      string
		rawData []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, raw_data
		FROM daily_sales
		WHERE team_id = $1 AND sales_date = $2`,
		teamID, date.Format("2006-01-02"),
	).Scan(&id, &rawData)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find sales record: %w", err)
	}
	var rec SalesData
	if err := json.Unmarshal(rawData, &rec); err != nil {
		return nil, fmt.Errorf("decode sales record %s: %w", id, err)
	}
	rec.ID = id
	return &rec, nil
}

func (r *PgRepository) Save(ctx context.Context, rec *SalesData, replace bool) (*SalesData, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	var existingID string
	err = tx.QueryRow(ctx, `
		SELECT id FROM daily_sales
		WHERE team_id = $1 AND sales_date = $2
		FOR UPDATE`,
		rec.TeamID, rec.DateKey(),
	).Scan(&existingID)
	switch {
	case err == nil:
		if !replace {
			return nil, ErrDuplicateEntry
		}
	case errors.Is(err, pgx.ErrNoRows):
		existingID = ""
	default:
		return nil, fmt.Errorf("duplicate check: %w", err)
	}

	saved := *rec
	now := time.Now().UTC()
	saved.UpdatedAt = now
	if existingID != "" {
		saved.ID = existingID
		rawData, merr := json.Marshal(&saved)
		if merr != nil {
			return nil, fmt.Errorf("encode sales record: %w", merr)
		}
		_, err = tx.Exec(ctx, `
			UPDATE daily_sales
			SET gross_sales = $1, net_sales = $2, order_count = $3,
			    location = $4, pos_system = $5, raw_data = $6, updated_at = $7
			WHERE id = $8`,
			saved.GrossSales, saved.NetSales, saved.OrderCount,
			saved.Location, saved.POSSystem, rawData, now, existingID)
	} else {
		saved.ID = uuid.New().String()
		saved.CreatedAt = now
		rawData, merr := json.Marshal(&saved)
		if merr != nil {
			return nil, fmt.Errorf("encode sales record: %w", merr)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO daily_sales
				(id, team_id, sales_date, location, pos_system,
				 gross_sales, net_sales, order_count, raw_data, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			saved.ID, saved.TeamID, saved.DateKey(), saved.Location, saved.POSSystem,
			saved.GrossSales, saved.NetSales, saved.OrderCount, rawData, now, now)
	}
	if err != nil {
		return nil, fmt.Errorf("save sales record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit save: %w", err)
	}
	return &saved, nil
}

func (r *PgRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM daily_sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sales record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
