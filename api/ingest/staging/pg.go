package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"RestoLedger/api/ingest/salesdata"
)

// PgStore is the Postgres staging area. Extracted payloads, findings and
// corrections live as JSONB so the record shape can evolve without
// migrations.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) CreateBatch(ctx context.Context, b *UploadBatch) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Status == "" {
		b.Status = BatchProcessing
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO upload_batches
			(id, batch_name, team_id, total_files, processed_files, failed_files, status, file_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.Name, b.TeamID, b.TotalFiles, b.ProcessedFiles, b.FailedFiles, b.Status, nullable(b.FileHash), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("create upload batch: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *PgStore) GetBatch(ctx context.Context, id string) (*UploadBatch, error) {
	b, err := scanBatch(s.pool.QueryRow(ctx, selectBatch+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	return b, err
}

const selectBatch = `
	SELECT id, batch_name, team_id, total_files, processed_files, failed_files,
	       status, COALESCE(file_hash, ''), created_at, completed_at
	FROM upload_batches`

type rowScanner interface{ Scan(dest ...any) error }

func scanBatch(row rowScanner) (*UploadBatch, error) {
	var b UploadBatch
	err := row.Scan(&b.ID, &b.Name, &b.TeamID, &b.TotalFiles, &b.ProcessedFiles,
		&b.FailedFiles, &b.Status, &b.FileHash, &b.CreatedAt, &b.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PgStore) ListBatches(ctx context.Context, teamID string) ([]*UploadBatch, error) {
	query := selectBatch + ` WHERE ($1 = '' OR team_id = $1) ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("list upload batches: %w", err)
	}
	defer rows.Close()
	var out []*UploadBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PgStore) FindBatchByHash(ctx context.Context, teamID, hash string) (*UploadBatch, error) {
	b, err := scanBatch(s.pool.QueryRow(ctx,
		selectBatch+` WHERE team_id = $1 AND file_hash = $2 ORDER BY created_at DESC LIMIT 1`,
		teamID, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	return b, err
}

func (s *PgStore) UpdateBatchProgress(ctx context.Context, id string, processedDelta, failedDelta int) (*UploadBatch, error) {
	b, err := scanBatch(s.pool.QueryRow(ctx, `
		UPDATE upload_batches
		SET processed_files = processed_files + $2,
		    failed_files = failed_files + $3
		WHERE id = $1
		RETURNING id, batch_name, team_id, total_files, processed_files, failed_files,
		          status, COALESCE(file_hash, ''), created_at, completed_at`,
		id, processedDelta, failedDelta))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	return b, err
}

func (s *PgStore) CompleteBatch(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE upload_batches
		SET status = $2, completed_at = NOW()
		WHERE id = $1 AND status = 'processing'`,
		id, status)
	if err != nil {
		return fmt.Errorf("complete upload batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := s.GetBatch(ctx, id); gerr != nil {
			return gerr
		}
		return ErrBatchTerminal
	}
	return nil
}

func (s *PgStore) Stage(ctx context.Context, rec *StagedRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	extracted, err := json.Marshal(rec.ExtractedData)
	if err != nil {
		return fmt.Errorf("encode extracted data: %w", err)
	}
	findings, err := json.Marshal(rec.ValidationFindings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}
	corrections, err := json.Marshal(rec.UserCorrections)
	if err != nil {
		return fmt.Errorf("encode corrections: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO staged_sales
			(id, batch_id, file_name, detected_format, confidence_score,
			 extracted_data, validation_findings, user_corrections, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.BatchID, rec.FileName, rec.DetectedFormat, rec.ConfidenceScore,
		extracted, findings, corrections, rec.Status, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("stage record: %w", err)
	}
	return nil
}

const selectStaged = `
	SELECT id, batch_id, file_name, detected_format, confidence_score,
	       extracted_data, validation_findings, user_corrections, status,
	       created_at, reviewed_at, COALESCE(reviewed_by, '')
	FROM staged_sales`

func scanStaged(row rowScanner) (*StagedRecord, error) {
	var (
		rec         StagedRecord
		extracted   []byte
		findings    []byte
		corrections []byte
	)
	err := row.Scan(&rec.ID, &rec.BatchID, &rec.FileName, &rec.DetectedFormat,
		&rec.ConfidenceScore, &extracted, &findings, &corrections, &rec.Status,
		&rec.CreatedAt, &rec.ReviewedAt, &rec.ReviewedBy)
	if err != nil {
		return nil, err
	}
	if len(extracted) > 0 {
		if err := json.Unmarshal(extracted, &rec.ExtractedData); err != nil {
			return nil, fmt.Errorf("decode extracted data %s: %w", rec.ID, err)
		}
	}
	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &rec.ValidationFindings); err != nil {
			return nil, fmt.Errorf("decode findings %s: %w", rec.ID, err)
		}
	}
	if len(corrections) > 0 {
		if err := json.Unmarshal(corrections, &rec.UserCorrections); err != nil {
			return nil, fmt.Errorf("decode corrections %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func (s *PgStore) GetStaged(ctx context.Context, id string) (*StagedRecord, error) {
	rec, err := scanStaged(s.pool.QueryRow(ctx, selectStaged+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStagedNotFound
	}
	return rec, err
}

func (s *PgStore) ListStaged(ctx context.Context, batchID string) ([]*StagedRecord, error) {
	rows, err := s.pool.Query(ctx,
		selectStaged+` WHERE ($1 = '' OR batch_id = $1) ORDER BY created_at`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list staged records: %w", err)
	}
	defer rows.Close()
	var out []*StagedRecord
	for rows.Next() {
		rec, err := scanStaged(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staged record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PgStore) UpdateStaged(ctx context.Context, id string, corrections map[string]interface{}, status, reviewedBy string) (*StagedRecord, error) {
	rec, err := s.GetStaged(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(corrections) > 0 {
		if rec.UserCorrections == nil {
			rec.UserCorrections = make(map[string]interface{})
		}
		for k, v := range corrections {
			rec.UserCorrections[k] = v
		}
	}
	if status != "" {
		rec.Status = status
	}
	if reviewedBy != "" {
		rec.ReviewedBy = reviewedBy
	}
	merged, err := json.Marshal(rec.UserCorrections)
	if err != nil {
		return nil, fmt.Errorf("encode corrections: %w", err)
	}
	now := time.Now().UTC()
	rec.ReviewedAt = &now
	_, err = s.pool.Exec(ctx, `
		UPDATE staged_sales
		SET user_corrections = $2, status = $3, reviewed_by = NULLIF($4, ''), reviewed_at = $5
		WHERE id = $1`,
		id, merged, rec.Status, rec.ReviewedBy, now)
	if err != nil {
		return nil, fmt.Errorf("update staged record: %w", err)
	}
	return rec, nil
}

func (s *PgStore) DeleteStaged(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM staged_sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete staged record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStagedNotFound
	}
	return nil
}

func (s *PgStore) DeleteStagedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM staged_sales
		WHERE created_at < $1
		  AND batch_id IN (SELECT id FROM upload_batches WHERE status <> 'processing')`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge staged records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PgStore) LogFindings(ctx context.Context, stagedID, batchID string, findings []salesdata.ValidationFinding) error {
	if len(findings) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, f := range findings {
		suggested, _ := json.Marshal(f.SuggestedValue)
		batch.Queue(`
			INSERT INTO validation_logs
				(id, staged_id, batch_id, validation_type, severity, field_name,
				 message, suggested_value, is_resolved, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,false,$9)`,
			uuid.New().String(), stagedID, batchID, MapValidationType(f),
			f.Severity, f.Field, f.Message, suggested, now)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range findings {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("log finding: %w", err)
		}
	}
	return nil
}

func (s *PgStore) ListValidationLogs(ctx context.Context, batchID string) ([]*ValidationLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, staged_id, batch_id, validation_type, severity, field_name,
		       message, suggested_value, is_resolved, created_at
		FROM validation_logs
		WHERE ($1 = '' OR batch_id = $1)
		ORDER BY created_at`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list validation logs: %w", err)
	}
	defer rows.Close()
	var out []*ValidationLog
	for rows.Next() {
		var (
			l         ValidationLog
			suggested []byte
		)
		err := rows.Scan(&l.ID, &l.StagedID, &l.BatchID, &l.ValidationType,
			&l.Severity, &l.FieldName, &l.Message, &suggested, &l.IsResolved, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan validation log: %w", err)
		}
		if len(suggested) > 0 {
			_ = json.Unmarshal(suggested, &l.SuggestedValue)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (s *PgStore) ResolveValidationLog(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE validation_logs SET is_resolved = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("resolve validation log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLogNotFound
	}
	return nil
}
