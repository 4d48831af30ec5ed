package salesdata

// Severity levels for validation findings, lowest to highest.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// ValidationFinding is one observation about an extracted record. Findings
// are descriptive only; nothing in the pipeline mutates a record because of
// one.
type ValidationFinding struct {
	Field          string      `json:"field"`
	Message        string      `json:"message"`
	Severity       string      `json:"severity"`
	SuggestedValue interface{} `json:"suggested_value,omitempty"`
}

// CountBySeverity returns the number of findings at each severity.
func CountBySeverity(findings []ValidationFinding) map[string]int {
	counts := make(map[string]int, 4)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// HasBlocking reports whether findings contain anything at critical severity.
func HasBlocking(findings []ValidationFinding) bool {
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
