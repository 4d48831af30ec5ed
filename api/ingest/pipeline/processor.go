package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"RestoLedger/api/ingest/formats"
	"RestoLedger/api/ingest/staging"
)

// processFile runs one upload through parse, detect, extract, validate and
// stage. The staged record keeps the parse result, so later corrections or
// a duplicate replace never re-read the file.
func (c *Coordinator) processFile(ctx context.Context, batchID string, f UploadFile, opts SubmitOptions) error {
	doc, err := formats.ParseUpload(f.Name, opts.TeamID, f.Data)
	if err != nil {
		return err
	}
	doc.FallbackDate = opts.Date

	det := formats.Detect(f.Name, doc, opts.ForcedFormat)
	lookup := c.Extract
	if lookup == nil {
		lookup = formats.ExtractorFor
	}
	extraction, err := lookup(det.Format, doc).Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract %s as %s: %w", f.Name, det.Format, err)
	}

	rec := extraction.Data
	if len(opts.ManualChannels) > 0 {
		rec.Destinations = append(rec.Destinations, opts.ManualChannels...)
	}

	findings := extraction.Findings
	if c.Validator != nil {
		findings = append(findings, c.Validator.Validate(rec)...)
	}

	// Detection and field confidence are independent signals; the weaker one
	// caps the score.
	confidence := extraction.Confidence
	if det.Confidence < confidence {
		confidence = det.Confidence
	}

	staged := &staging.StagedRecord{
		BatchID:            batchID,
		FileName:           f.Name,
		DetectedFormat:     string(det.Format),
		ConfidenceScore:    confidence,
		ExtractedData:      rec,
		ValidationFindings: findings,
		Status:             staging.DetermineStatus(confidence, findings),
	}
	if err := c.Staging.Stage(ctx, staged); err != nil {
		return fmt.Errorf("stage %s: %w", f.Name, err)
	}
	if err := c.Staging.LogFindings(ctx, staged.ID, batchID, findings); err != nil {
		log.Printf("[SALES-UPLOAD] logging findings for %s failed: %v", staged.ID, err)
	}
	archiveOriginal(ctx, opts.TeamID, batchID, f.Name, f.Data)
	return nil
}

// PreviewDate parses a single file just far enough to report the business
// date found inside it, for the upload form's date picker.
func PreviewDate(ctx context.Context, fileName, teamID string, data []byte, forced formats.Format) (*time.Time, string, error) {
	doc, err := formats.ParseUpload(fileName, teamID, data)
	if err != nil {
		return nil, "", err
	}
	det := formats.Detect(fileName, doc, forced)
	extraction, err := formats.ExtractorFor(det.Format, doc).Extract(ctx, doc)
	if err != nil {
		return nil, string(det.Format), err
	}
	return extraction.ExtractedDate, string(det.Format), nil
}
