// Package staging holds extracted sales records between upload and approval.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"RestoLedger/api/ingest/salesdata"
)

const (
	StagedPending     = "pending"
	StagedApproved    = "approved"
	StagedRejected    = "rejected"
	StagedNeedsReview = "needs_review"

	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchFailed     = "failed"
	BatchCancelled  = "cancelled"
)

var (
	ErrBatchNotFound  = errors.New("upload batch not found")
	ErrStagedNotFound = errors.New("staged record not found")
	ErrLogNotFound    = errors.New("validation log not found")
	ErrBatchTerminal  = errors.New("upload batch already finished")
)

// UploadBatch tracks the progress of one submitted group of files. Counters
// only move up and terminal statuses are sticky.
type UploadBatch struct {
	ID             string     `json:"id"`
	Name           string     `json:"batch_name"`
	TeamID         string     `json:"team_id"`
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	FailedFiles    int        `json:"failed_files"`
	Status         string     `json:"status"`
	FileHash       string     `json:"file_hash,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// StagedRecord is one extracted file awaiting review. ExtractedData is never
// mutated after staging; reviewer edits accumulate in UserCorrections as a
// sparse dotted-path map and only merge onto a copy at commit time.
type StagedRecord struct {
	ID                 string                         `json:"id"`
	BatchID            string                         `json:"batch_id"`
	FileName           string                         `json:"file_name"`
	DetectedFormat     string                         `json:"detected_format"`
	ConfidenceScore    float64                        `json:"confidence_score"`
	ExtractedData      *salesdata.SalesData           `json:"extracted_data"`
	ValidationFindings []salesdata.ValidationFinding  `json:"validation_findings,omitempty"`
	UserCorrections    map[string]interface{}         `json:"user_corrections,omitempty"`
	Status             string                         `json:"status"`
	CreatedAt          time.Time                      `json:"created_at"`
	ReviewedAt         *time.Time                     `json:"reviewed_at,omitempty"`
	ReviewedBy         string                         `json:"reviewed_by,omitempty"`
}

// ValidationLog is one persisted finding, resolvable by a reviewer.
type ValidationLog struct {
	ID             string      `json:"id"`
	StagedID       string      `json:"staged_id"`
	BatchID        string      `json:"batch_id"`
	ValidationType string      `json:"validation_type"`
	Severity       string      `json:"severity"`
	FieldName      string      `json:"field_name"`
	Message        string      `json:"message"`
	SuggestedValue interface{} `json:"suggested_value,omitempty"`
	IsResolved     bool        `json:"is_resolved"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Store is the staging area contract. Both the Postgres and the in-memory
// implementation satisfy it.
type Store interface {
	CreateBatch(ctx context.Context, b *UploadBatch) error
	GetBatch(ctx context.Context, id string) (*UploadBatch, error)
	ListBatches(ctx context.Context, teamID string) ([]*UploadBatch, error)
	FindBatchByHash(ctx context.Context, teamID, hash string) (*UploadBatch, error)
	UpdateBatchProgress(ctx context.Context, id string, processedDelta, failedDelta int) (*UploadBatch, error)
	CompleteBatch(ctx context.Context, id, status string) error

	Stage(ctx context.Context, rec *StagedRecord) error
	GetStaged(ctx context.Context, id string) (*StagedRecord, error)
	ListStaged(ctx context.Context, batchID string) ([]*StagedRecord, error)
	UpdateStaged(ctx context.Context, id string, corrections map[string]interface{}, status, reviewedBy string) (*StagedRecord, error)
	DeleteStaged(ctx context.Context, id string) error
	DeleteStagedBefore(ctx context.Context, cutoff time.Time) (int, error)

	LogFindings(ctx context.Context, stagedID, batchID string, findings []salesdata.ValidationFinding) error
	ListValidationLogs(ctx context.Context, batchID string) ([]*ValidationLog, error)
	ResolveValidationLog(ctx context.Context, id string) error
}

// DetermineStatus picks the initial review status from extraction confidence
// and the validation findings.
func DetermineStatus(confidence float64, findings []salesdata.ValidationFinding) string {
	counts := salesdata.CountBySeverity(findings)
	if counts[salesdata.SeverityCritical] > 0 || counts[salesdata.SeverityError] > 2 {
		return StagedNeedsReview
	}
	if confidence < 70 {
		return StagedNeedsReview
	}
	if confidence > 90 && len(findings) == 0 {
		return StagedApproved
	}
	return StagedPending
}

// MapValidationType buckets a finding into the log taxonomy.
func MapValidationType(f salesdata.ValidationFinding) string {
	msg := strings.ToLower(f.Message)
	switch {
	case strings.Contains(msg, "missing") || strings.Contains(msg, "not found") || strings.Contains(msg, "no ") && strings.Contains(msg, "present"):
		return "missing_field"
	case strings.Contains(msg, "deviat") || strings.Contains(msg, "unusual"):
		return "anomaly"
	case strings.Contains(msg, "date") || strings.Contains(msg, "format"):
		return "format_error"
	default:
		return "business_rule"
	}
}

// ApplyCorrections merges a sparse dotted-path correction map onto a copy of
// the record. "payment_breakdown.non_cash": 12.5 replaces only that leaf.
// The original record is untouched.
func ApplyCorrections(rec *salesdata.SalesData, corrections map[string]interface{}) (*salesdata.SalesData, error) {
	if len(corrections) == 0 {
		cp := *rec
		return &cp, nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	for path, value := range corrections {
		setPath(tree, strings.Split(path, "."), value)
	}
	merged, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode corrected record: %w", err)
	}
	var out salesdata.SalesData
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("apply corrections: %w", err)
	}
	return &out, nil
}

func setPath(tree map[string]interface{}, path []string, value interface{}) {
	if len(path) == 1 {
		tree[path[0]] = value
		return
	}
	child, ok := tree[path[0]].(map[string]interface{})
	if !ok {
		child = make(map[string]interface{})
		tree[path[0]] = child
	}
	setPath(child, path[1:], value)
}
