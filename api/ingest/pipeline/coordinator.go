// Package pipeline runs uploads through detection, extraction, validation
// and staging, and moves approved records into the permanent store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"RestoLedger/api/ingest/formats"
	"RestoLedger/api/ingest/salesdata"
	"RestoLedger/api/ingest/staging"
	"RestoLedger/api/ingest/validate"
	"RestoLedger/internal/checksum"
	"RestoLedger/internal/config"
)

// Limits bound one submitted batch.
type Limits struct {
	MaxFiles      int
	MaxFileBytes  int64
	MaxBatchBytes int64
	MaxConcurrent int
	ChunkSize     int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFiles:      config.DefaultMaxFiles,
		MaxFileBytes:  config.DefaultMaxFileMB << 20,
		MaxBatchBytes: config.DefaultMaxBatchMB << 20,
		MaxConcurrent: config.DefaultMaxConcurrent,
		ChunkSize:     config.DefaultChunkSize,
	}
}

var (
	ErrTooManyFiles = errors.New("batch exceeds the maximum file count")
	ErrFileTooLarge = errors.New("file exceeds the maximum size")
	ErrBatchTooBig  = errors.New("batch exceeds the maximum total size")
	ErrNoFiles      = errors.New("batch contains no files")
)

// UploadFile is one file of a submitted batch.
type UploadFile struct {
	Name string
	Data []byte
}

// SubmitOptions carry the reviewer-chosen settings for a batch.
type SubmitOptions struct {
	TeamID         string
	BatchName      string
	Date           time.Time
	ForcedFormat   formats.Format
	ManualChannels []salesdata.BreakdownItem
	SubmittedBy    string
}

// SubmitResult is returned as soon as the batch is accepted; processing
// continues in the background.
type SubmitResult struct {
	BatchID   string `json:"batch_id"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Coordinator accepts batches and processes their files in fixed-size
// chunks, files within a chunk concurrently under a semaphore. Cancellation
// takes effect at the next chunk boundary; in-flight files still stage.
type Coordinator struct {
	Staging   staging.Store
	Validator *validate.Validator
	Limits    Limits

	// Extract overrides the extractor lookup, for instrumented tests.
	Extract func(f formats.Format, doc formats.Document) formats.Extractor

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
}

func NewCoordinator(st staging.Store, v *validate.Validator) *Coordinator {
	return &Coordinator{
		Staging:   st,
		Validator: v,
		Limits:    DefaultLimits(),
		cancels:   make(map[string]context.CancelFunc),
		done:      make(map[string]chan struct{}),
	}
}

// Submit validates the batch against the limits, records it, and kicks off
// background processing. A batch whose content hash matches an earlier batch
// for the same team short-circuits to that batch instead of re-staging.
func (c *Coordinator) Submit(ctx context.Context, files []UploadFile, opts SubmitOptions) (*SubmitResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if len(files) > c.Limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrTooManyFiles, len(files), c.Limits.MaxFiles)
	}
	var total int64
	for _, f := range files {
		size := int64(len(f.Data))
		if size > c.Limits.MaxFileBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, f.Name, size, c.Limits.MaxFileBytes)
		}
		total += size
	}
	if total > c.Limits.MaxBatchBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrBatchTooBig, total, c.Limits.MaxBatchBytes)
	}

	// Guard against the double-submit of the same selection while it is
	// still processing. A deliberate later re-upload of the same files
	// stages fresh records.
	hash := batchHash(files)
	if existing, err := c.Staging.FindBatchByHash(ctx, opts.TeamID, hash); err == nil && existing.Status == staging.BatchProcessing {
		log.Printf("[SALES-UPLOAD] batch content matches in-flight batch %s, not re-staging", existing.ID)
		return &SubmitResult{BatchID: existing.ID, Duplicate: true}, nil
	}

	name := opts.BatchName
	if name == "" {
		name = fmt.Sprintf("Upload %s", time.Now().Format("2006-01-02 15:04"))
	}
	batch := &staging.UploadBatch{
		Name:       name,
		TeamID:     opts.TeamID,
		TotalFiles: len(files),
		Status:     staging.BatchProcessing,
		FileHash:   hash,
	}
	if err := c.Staging.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	doneCh := make(chan struct{})
	c.mu.Lock()
	c.cancels[batch.ID] = cancel
	c.done[batch.ID] = doneCh
	c.mu.Unlock()

	go func() {
		defer close(doneCh)
		defer func() {
			c.mu.Lock()
			delete(c.cancels, batch.ID)
			delete(c.done, batch.ID)
			c.mu.Unlock()
			cancel()
		}()
		c.processBatch(runCtx, batch.ID, files, opts)
	}()

	log.Printf("[SALES-UPLOAD] accepted batch %s (%d files, %d bytes) for team %s",
		batch.ID, len(files), total, opts.TeamID)
	return &SubmitResult{BatchID: batch.ID}, nil
}

// Cancel stops a processing batch at its next chunk boundary.
func (c *Coordinator) Cancel(batchID string) bool {
	c.mu.Lock()
	cancel, ok := c.cancels[batchID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// WaitBatch blocks until background processing for the batch has finished.
func (c *Coordinator) WaitBatch(batchID string) {
	c.mu.Lock()
	doneCh, ok := c.done[batchID]
	c.mu.Unlock()
	if ok {
		<-doneCh
	}
}

func (c *Coordinator) processBatch(ctx context.Context, batchID string, files []UploadFile, opts SubmitOptions) {
	chunkSize := c.Limits.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}
	maxConcurrent := c.Limits.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	var (
		mu        sync.Mutex
		failed    int
		succeeded int
	)
	cancelled := false

	// Cancellation only gates chunk starts; files already dispatched run to
	// completion and still stage, so per-file work gets a context that does
	// not carry the cancel.
	fileCtx := context.WithoutCancel(ctx)

	for start := 0; start < len(files); start += chunkSize {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		end := start + chunkSize
		if end > len(files) {
			end = len(files)
		}
		chunk := files[start:end]

		semaphore := make(chan struct{}, maxConcurrent)
		var wg sync.WaitGroup
		for _, f := range chunk {
			wg.Add(1)
			semaphore <- struct{}{}
			go func(f UploadFile) {
				defer wg.Done()
				defer func() { <-semaphore }()
				err := c.processFile(fileCtx, batchID, f, opts)
				mu.Lock()
				if err != nil {
					failed++
					log.Printf("[SALES-UPLOAD] batch %s file %s failed: %v", batchID, f.Name, err)
				} else {
					succeeded++
				}
				mu.Unlock()
				// A file counts as processed or failed, never both, so the
				// two counters can never add up past the file total.
				processedDelta, failedDelta := 1, 0
				if err != nil {
					processedDelta, failedDelta = 0, 1
				}
				if _, uerr := c.Staging.UpdateBatchProgress(fileCtx, batchID, processedDelta, failedDelta); uerr != nil {
					log.Printf("[SALES-UPLOAD] batch %s progress update failed: %v", batchID, uerr)
				}
			}(f)
		}
		wg.Wait()
	}
	// A cancel during the final chunk leaves no later iteration to observe
	// it.
	if ctx.Err() != nil {
		cancelled = true
	}

	status := staging.BatchCompleted
	switch {
	case cancelled:
		status = staging.BatchCancelled
	case succeeded == 0:
		status = staging.BatchFailed
	}
	bg := context.WithoutCancel(ctx)
	if err := c.Staging.CompleteBatch(bg, batchID, status); err != nil && !errors.Is(err, staging.ErrBatchTerminal) {
		log.Printf("[SALES-UPLOAD] batch %s completion update failed: %v", batchID, err)
	}
	log.Printf("[SALES-UPLOAD] batch %s finished: %s (%d ok, %d failed)", batchID, status, succeeded, failed)
}

// batchHash fingerprints the batch content for the duplicate-upload
// short-circuit. Order independent: the same files re-selected in a
// different order hash the same.
func batchHash(files []UploadFile) string {
	sums := make([]string, 0, len(files))
	for _, f := range files {
		sums = append(sums, checksum.HashBytes(f.Data))
	}
	return checksum.CombineUnordered(sums)
}
