package staging

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"RestoLedger/api/ingest/salesdata"
)

// MemoryStore is the in-process staging area used by tests and standalone
// runs.
type MemoryStore struct {
	mu      sync.Mutex
	batches map[string]*UploadBatch
	staged  map[string]*StagedRecord
	logs    map[string]*ValidationLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches: make(map[string]*UploadBatch),
		staged:  make(map[string]*StagedRecord),
		logs:    make(map[string]*ValidationLog),
	}
}

func (s *MemoryStore) CreateBatch(ctx context.Context, b *UploadBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Status == "" {
		b.Status = BatchProcessing
	}
	cp := *b
	s.batches[b.ID] = &cp
	return nil
}

func (s *MemoryStore) GetBatch(ctx context.Context, id string) (*UploadBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListBatches(ctx context.Context, teamID string) ([]*UploadBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*UploadBatch
	for _, b := range s.batches {
		if teamID != "" && b.TeamID != teamID {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) FindBatchByHash(ctx context.Context, teamID, hash string) (*UploadBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.batches {
		if b.TeamID == teamID && b.FileHash != "" && b.FileHash == hash {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrBatchNotFound
}

func (s *MemoryStore) UpdateBatchProgress(ctx context.Context, id string, processedDelta, failedDelta int) (*UploadBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	b.ProcessedFiles += processedDelta
	b.FailedFiles += failedDelta
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) CompleteBatch(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	switch b.Status {
	case BatchCompleted, BatchFailed, BatchCancelled:
		return ErrBatchTerminal
	}
	b.Status = status
	now := time.Now().UTC()
	b.CompletedAt = &now
	return nil
}

func (s *MemoryStore) Stage(ctx context.Context, rec *StagedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	s.staged[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetStaged(ctx context.Context, id string) (*StagedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.staged[id]
	if !ok {
		return nil, ErrStagedNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListStaged(ctx context.Context, batchID string) ([]*StagedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*StagedRecord
	for _, rec := range s.staged {
		if batchID != "" && rec.BatchID != batchID {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateStaged(ctx context.Context, id string, corrections map[string]interface{}, status, reviewedBy string) (*StagedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.staged[id]
	if !ok {
		return nil, ErrStagedNotFound
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
	now := time.Now().UTC()
	rec.ReviewedAt = &now
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) DeleteStaged(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staged[id]; !ok {
		return ErrStagedNotFound
	}
	delete(s.staged, id)
	return nil
}

func (s *MemoryStore) DeleteStagedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.staged {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.staged, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) LogFindings(ctx context.Context, stagedID, batchID string, findings []salesdata.ValidationFinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, f := range findings {
		l := &ValidationLog{
			ID:             uuid.New().String(),
			StagedID:       stagedID,
			BatchID:        batchID,
			ValidationType: MapValidationType(f),
			Severity:       f.Severity,
			FieldName:      f.Field,
			Message:        f.Message,
			SuggestedValue: f.SuggestedValue,
			CreatedAt:      now,
		}
		s.logs[l.ID] = l
	}
	return nil
}

func (s *MemoryStore) ListValidationLogs(ctx context.Context, batchID string) ([]*ValidationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ValidationLog
	for _, l := range s.logs {
		if batchID != "" && l.BatchID != batchID {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ResolveValidationLog(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok {
		return ErrLogNotFound
	}
	l.IsResolved = true
	return nil
}
