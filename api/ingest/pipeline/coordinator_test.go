package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"RestoLedger/api/ingest/formats"
	"RestoLedger/api/ingest/salesdata"
	"RestoLedger/api/ingest/staging"
	"RestoLedger/api/ingest/validate"
)

// trackingExtractor counts concurrent Extract calls and optionally blocks
// them on a gate.
type trackingExtractor struct {
	mu      sync.Mutex
	current int
	highest int
	delay   time.Duration
	gate    chan struct{}
	started chan struct{}
}

func (e *trackingExtractor) Extract(ctx context.Context, doc formats.Document) (*formats.Extraction, error) {
	e.mu.Lock()
	e.current++
	if e.current > e.highest {
		e.highest = e.current
	}
	e.mu.Unlock()
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.gate != nil {
		<-e.gate
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	e.current--
	e.mu.Unlock()
	return &formats.Extraction{
		Data: &salesdata.SalesData{
			TeamID:     doc.TeamID,
			Date:       doc.FallbackDate,
			GrossSales: 1000,
			NetSales:   950,
			OrderCount: 40,
		},
		Confidence: 95,
	}, nil
}

func (e *trackingExtractor) highWaterMark() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highest
}

func testFiles(n int) []UploadFile {
	files := make([]UploadFile, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, UploadFile{
			Name: fmt.Sprintf("daily_%02d.csv", i),
			Data: []byte(fmt.Sprintf("Gross Sales,%d\nOrders,40\n", 1000+i)),
		})
	}
	return files
}

func testOptions() SubmitOptions {
	return SubmitOptions{
		TeamID: "team-1",
		Date:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func newTestCoordinator(ext formats.Extractor) (*Coordinator, *staging.MemoryStore) {
	store := staging.NewMemoryStore()
	c := NewCoordinator(store, validate.New())
	if ext != nil {
		c.Extract = func(f formats.Format, doc formats.Document) formats.Extractor { return ext }
	}
	return c, store
}

func TestSubmitRejectsOverLimits(t *testing.T) {
	c, _ := newTestCoordinator(nil)
	c.Limits.MaxFiles = 2
	c.Limits.MaxFileBytes = 100
	c.Limits.MaxBatchBytes = 150

	ctx := context.Background()
	if _, err := c.Submit(ctx, nil, testOptions()); !errors.Is(err, ErrNoFiles) {
		t.Fatalf("empty err = %v", err)
	}
	if _, err := c.Submit(ctx, testFiles(3), testOptions()); !errors.Is(err, ErrTooManyFiles) {
		t.Fatalf("count err = %v", err)
	}
	big := []UploadFile{{Name: "big.csv", Data: make([]byte, 200)}}
	if _, err := c.Submit(ctx, big, testOptions()); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("size err = %v", err)
	}
	two := []UploadFile{
		{Name: "a.csv", Data: make([]byte, 90)},
		{Name: "b.csv", Data: make([]byte, 90)},
	}
	if _, err := c.Submit(ctx, two, testOptions()); !errors.Is(err, ErrBatchTooBig) {
		t.Fatalf("total err = %v", err)
	}
}

func TestConcurrencyHighWaterMark(t *testing.T) {
	ext := &trackingExtractor{delay: 20 * time.Millisecond}
	c, store := newTestCoordinator(ext)

	result, err := c.Submit(context.Background(), testFiles(12), testOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.WaitBatch(result.BatchID)

	if hw := ext.highWaterMark(); hw > 3 {
		t.Fatalf("high-water mark = %d, limit is 3", hw)
	}
	batch, err := store.GetBatch(context.Background(), result.BatchID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if batch.Status != staging.BatchCompleted {
		t.Fatalf("status = %s, want completed", batch.Status)
	}
	if batch.ProcessedFiles != 12 || batch.FailedFiles != 0 {
		t.Fatalf("progress = %d/%d", batch.ProcessedFiles, batch.FailedFiles)
	}
	records, _ := store.ListStaged(context.Background(), result.BatchID)
	if len(records) != 12 {
		t.Fatalf("staged = %d, want 12", len(records))
	}
}

func TestCancelTakesEffectAtChunkBoundary(t *testing.T) {
	ext := &trackingExtractor{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 16),
	}
	c, store := newTestCoordinator(ext)

	result, err := c.Submit(context.Background(), testFiles(8), testOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Wait for the first chunk to be in flight, then cancel.
	<-ext.started
	if !c.Cancel(result.BatchID) {
		t.Fatal("cancel should find the running batch")
	}
	close(ext.gate)
	c.WaitBatch(result.BatchID)

	batch, err := store.GetBatch(context.Background(), result.BatchID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if batch.Status != staging.BatchCancelled {
		t.Fatalf("status = %s, want cancelled", batch.Status)
	}
	// The in-flight chunk of 5 finishes and stages; the second chunk never
	// starts.
	records, _ := store.ListStaged(context.Background(), result.BatchID)
	if len(records) != 5 {
		t.Fatalf("staged = %d, want the first chunk of 5", len(records))
	}
	if batch.ProcessedFiles != 5 {
		t.Fatalf("processed = %d, want 5", batch.ProcessedFiles)
	}
}

func TestDuplicateSubmitShortCircuitsWhileProcessing(t *testing.T) {
	ext := &trackingExtractor{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 16),
	}
	c, _ := newTestCoordinator(ext)
	files := testFiles(2)

	first, err := c.Submit(context.Background(), files, testOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-ext.started

	second, err := c.Submit(context.Background(), files, testOptions())
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !second.Duplicate || second.BatchID != first.BatchID {
		t.Fatalf("resubmit = %+v, want duplicate of %s", second, first.BatchID)
	}

	close(ext.gate)
	c.WaitBatch(first.BatchID)

	// A deliberate re-upload after completion stages again.
	third, err := c.Submit(context.Background(), files, testOptions())
	if err != nil {
		t.Fatalf("third submit: %v", err)
	}
	if third.Duplicate || third.BatchID == first.BatchID {
		t.Fatalf("third = %+v, want a fresh batch", third)
	}
	c.WaitBatch(third.BatchID)
}

func TestFailedFilesCounted(t *testing.T) {
	c, store := newTestCoordinator(nil)
	files := []UploadFile{
		{Name: "good.csv", Data: []byte("Gross Sales,1000\nOrders,40\n")},
		{Name: "empty.csv", Data: []byte("a,b\nc,d\n")},
	}
	result, err := c.Submit(context.Background(), files, testOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.WaitBatch(result.BatchID)

	batch, _ := store.GetBatch(context.Background(), result.BatchID)
	if batch.Status != staging.BatchCompleted {
		t.Fatalf("status = %s, one success keeps the batch completed", batch.Status)
	}
	if batch.ProcessedFiles != 1 || batch.FailedFiles != 1 {
		t.Fatalf("progress = %d processed / %d failed", batch.ProcessedFiles, batch.FailedFiles)
	}
	if batch.ProcessedFiles+batch.FailedFiles > batch.TotalFiles {
		t.Fatalf("processed %d + failed %d exceeds total %d",
			batch.ProcessedFiles, batch.FailedFiles, batch.TotalFiles)
	}
}

// ctxCheckingExtractor blocks on its gate, then fails the file if the
// context it was handed carries a cancellation.
type ctxCheckingExtractor struct {
	gate    chan struct{}
	started chan struct{}
}

func (e *ctxCheckingExtractor) Extract(ctx context.Context, doc formats.Document) (*formats.Extraction, error) {
	e.started <- struct{}{}
	<-e.gate
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &formats.Extraction{
		Data: &salesdata.SalesData{
			TeamID:     doc.TeamID,
			Date:       doc.FallbackDate,
			GrossSales: 1000,
			NetSales:   950,
			OrderCount: 40,
		},
		Confidence: 95,
	}, nil
}

func TestCancelDoesNotAbortDispatchedFiles(t *testing.T) {
	ext := &ctxCheckingExtractor{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 16),
	}
	c, store := newTestCoordinator(ext)

	// Single chunk: every file is dispatched before the cancel arrives.
	result, err := c.Submit(context.Background(), testFiles(3), testOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-ext.started
	if !c.Cancel(result.BatchID) {
		t.Fatal("cancel should find the running batch")
	}
	close(ext.gate)
	c.WaitBatch(result.BatchID)

	batch, err := store.GetBatch(context.Background(), result.BatchID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if batch.Status != staging.BatchCancelled {
		t.Fatalf("status = %s, want cancelled", batch.Status)
	}
	records, _ := store.ListStaged(context.Background(), result.BatchID)
	if len(records) != 3 {
		t.Fatalf("staged = %d, dispatched files must complete and stage", len(records))
	}
	if batch.ProcessedFiles != 3 || batch.FailedFiles != 0 {
		t.Fatalf("progress = %d processed / %d failed", batch.ProcessedFiles, batch.FailedFiles)
	}
}

func TestProgressNeverExceedsTotal(t *testing.T) {
	ext := &trackingExtractor{delay: 5 * time.Millisecond}
	c, store := newTestCoordinator(ext)

	result, err := c.Submit(context.Background(), testFiles(12), testOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	prev := 0
	deadline := time.After(10 * time.Second)
	for {
		batch, err := store.GetBatch(context.Background(), result.BatchID)
		if err != nil {
			t.Fatalf("get batch: %v", err)
		}
		sum := batch.ProcessedFiles + batch.FailedFiles
		if sum < prev {
			t.Fatalf("progress went backwards: %d after %d", sum, prev)
		}
		if sum > batch.TotalFiles {
			t.Fatalf("processed %d + failed %d exceeds total %d",
				batch.ProcessedFiles, batch.FailedFiles, batch.TotalFiles)
		}
		prev = sum
		if batch.Status != staging.BatchProcessing {
			break
		}
		select {
		case <-deadline:
			t.Fatal("batch did not finish")
		case <-time.After(time.Millisecond):
		}
	}
	c.WaitBatch(result.BatchID)
}

func TestBatchTrackingCleanedUpAfterCompletion(t *testing.T) {
	c, _ := newTestCoordinator(&trackingExtractor{})
	result, err := c.Submit(context.Background(), testFiles(2), testOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.WaitBatch(result.BatchID)

	c.mu.Lock()
	nCancels, nDone := len(c.cancels), len(c.done)
	c.mu.Unlock()
	if nCancels != 0 || nDone != 0 {
		t.Fatalf("tracking maps hold %d cancels and %d done entries after completion", nCancels, nDone)
	}
	// Waiting on a finished batch returns immediately.
	c.WaitBatch(result.BatchID)
}

func TestAllFilesFailedFailsBatch(t *testing.T) {
	c, store := newTestCoordinator(nil)
	files := []UploadFile{{Name: "empty.csv", Data: []byte("a,b\nc,d\n")}}
	result, err := c.Submit(context.Background(), files, testOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.WaitBatch(result.BatchID)
	batch, _ := store.GetBatch(context.Background(), result.BatchID)
	if batch.Status != staging.BatchFailed {
		t.Fatalf("status = %s, want failed", batch.Status)
	}
}
