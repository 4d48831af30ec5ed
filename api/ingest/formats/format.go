package formats

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"RestoLedger/api/ingest/salesdata"
)

// Format identifies a recognized POS report source.
type Format string

const (
	FormatAuto            Format = "auto"
	FormatBrink           Format = "brink"
	FormatSquare          Format = "square"
	FormatToast           Format = "toast"
	FormatLightspeed      Format = "lightspeed"
	FormatClover          Format = "clover"
	FormatGenericTabular  Format = "generic_tabular"
	FormatGenericDocument Format = "generic_document"
)

var ErrMissingRequiredField = errors.New("required sales field missing from report")

// Document is a parsed upload handed to an extractor. Tabular files carry
// Rows, documents carry Text; exactly one is set.
type Document struct {
	FileName     string
	TeamID       string
	FallbackDate time.Time
	Rows         [][]string
	Text         string
}

// Extraction is what an extractor produced for one file.
type Extraction struct {
	Data          *salesdata.SalesData
	ExtractedDate *time.Time
	Confidence    float64
	Findings      []salesdata.ValidationFinding
}

// Extractor turns one parsed document into a canonical sales record.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (*Extraction, error)
}

// Detection is the outcome of format detection for one file.
type Detection struct {
	Format     Format
	Confidence float64
}

// Detect decides which extractor should handle a file. A forced format other
// than auto wins outright. Otherwise the extension splits tabular from
// document files, content probing picks a vendor, and an unmatched file falls
// through to a generic extractor with low confidence. Detect never fails.
func Detect(fileName string, doc Document, forced Format) Detection {
	if forced != "" && forced != FormatAuto {
		return Detection{Format: forced, Confidence: 100}
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".xls", ".xlsx":
		if isToastTabular(doc.Rows) {
			return Detection{Format: FormatToast, Confidence: toastTabularConfidence(doc.Rows)}
		}
		return Detection{Format: FormatGenericTabular, Confidence: 60}
	default:
		f, score := detectDocumentFormat(doc.Text)
		if f != "" {
			return Detection{Format: f, Confidence: score}
		}
		return Detection{Format: FormatGenericDocument, Confidence: 40}
	}
}

// ExtractorFor returns the extractor implementing a detected format. Toast
// ships both section-based sheets and PDF summaries, so the document shape
// breaks the tie.
func ExtractorFor(f Format, doc Document) Extractor {
	switch f {
	case FormatToast:
		if len(doc.Rows) > 0 {
			return &ToastTabularExtractor{}
		}
		return &DocumentExtractor{Profile: profileFor(f)}
	case FormatGenericTabular:
		return &GenericTabularExtractor{}
	case FormatBrink, FormatSquare, FormatLightspeed, FormatClover, FormatGenericDocument:
		return &DocumentExtractor{Profile: profileFor(f)}
	default:
		if len(doc.Rows) > 0 {
			return &GenericTabularExtractor{}
		}
		return &DocumentExtractor{Profile: profileFor(FormatGenericDocument)}
	}
}
