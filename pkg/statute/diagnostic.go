package statute

import "fmt"

// Code classifies a non-fatal condition raised while processing a document.
type Code string

const (
	CodeClassificationAmbiguity Code = "classification_ambiguity"
	CodeMalformedSection        Code = "malformed_section"
	CodeExtractionFailure       Code = "external_extraction_failure"
	CodeBudgetExhausted         Code = "budget_exhausted"
	CodeMergeConflict           Code = "merge_conflict"
	CodeValidationFailure       Code = "validation_failure"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Diagnostic records a condition that degraded output without stopping the run.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Section  string   `json:"section,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Section == "" {
		return fmt.Sprintf("[%s] %s", d.Code, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Section, d.Message)
}

// Warn builds a warning diagnostic.
func Warn(code Code, section, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: SeverityWarning,
		Section:  section,
		Message:  fmt.Sprintf(format, args...),
	}
}
