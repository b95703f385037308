// Package validate checks a reconciled statute for completeness. Validation
// never mutates the document; it returns a report.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/coolbeans/hukum/pkg/statute"
)

// ValidationStatus summarizes a report.
type ValidationStatus string

const (
	StatusPass ValidationStatus = "PASS"
	StatusFail ValidationStatus = "FAIL"
	StatusWarn ValidationStatus = "WARN"
)

// Check names the rule that produced an issue.
type Check string

const (
	CheckMetadata   Check = "metadata"
	CheckBody       Check = "body"
	CheckStructure  Check = "structure"
	CheckPreamble   Check = "preamble"
	CheckDuplicate  Check = "duplicate_pasal"
	CheckGeneric    Check = "generic_section"
	CheckFragments  Check = "fragments"
	CheckReferences Check = "references"
)

// ValidationIssue is one finding.
type ValidationIssue struct {
	Check    Check            `json:"check"`
	Severity statute.Severity `json:"severity"`
	Section  string           `json:"section,omitempty"`
	Message  string           `json:"message"`
	Examples []string         `json:"examples,omitempty"`
}

// Report is the outcome of validating a document.
type Report struct {
	IsValid     bool               `json:"is_valid"`
	Status      ValidationStatus   `json:"status"`
	ProfileName string             `json:"profile_name,omitempty"`
	Errors      []ValidationIssue  `json:"errors"`
	Warnings    []ValidationIssue  `json:"warnings"`
	Suggestions []ValidationIssue  `json:"suggestions"`
	Statistics  statute.Statistics `json:"statistics"`
}

// ToJSON serializes the report to indented JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Diagnostics returns the errors and warnings as document diagnostics.
func (r *Report) Diagnostics() []statute.Diagnostic {
	var out []statute.Diagnostic
	for _, issues := range [][]ValidationIssue{r.Errors, r.Warnings} {
		for _, issue := range issues {
			out = append(out, statute.Diagnostic{
				Code:     statute.CodeValidationFailure,
				Severity: issue.Severity,
				Section:  issue.Section,
				Message:  fmt.Sprintf("%s: %s", issue.Check, issue.Message),
			})
		}
	}
	return out
}

func (r *Report) add(issue ValidationIssue) {
	switch issue.Severity {
	case statute.SeverityError:
		r.Errors = append(r.Errors, issue)
	case statute.SeverityWarning:
		r.Warnings = append(r.Warnings, issue)
	default:
		r.Suggestions = append(r.Suggestions, issue)
	}
}

// Validator runs the completeness checks of a profile.
type Validator struct {
	profile *ValidationProfile
}

// NewValidator creates a validator. A nil profile means DefaultProfile.
func NewValidator(profile *ValidationProfile) *Validator {
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Validator{profile: profile}
}

// Validate checks doc with the default profile.
func Validate(doc *statute.Document) *Report {
	return NewValidator(nil).Validate(doc)
}

// Validate checks doc. Only an empty body makes the document invalid; every
// other finding is a warning or a suggestion.
func (v *Validator) Validate(doc *statute.Document) *Report {
	report := &Report{
		ProfileName: v.profile.Name,
		Errors:      []ValidationIssue{},
		Warnings:    []ValidationIssue{},
		Suggestions: []ValidationIssue{},
	}
	if doc == nil {
		report.add(ValidationIssue{Check: CheckBody, Severity: statute.SeverityError, Message: "no document"})
		report.finish()
		return report
	}
	report.Statistics = doc.Statistics()

	v.checkMetadata(doc, report)
	v.checkBody(doc, report)
	v.checkPreamble(doc, report)
	v.checkDuplicates(doc, report)
	v.checkGeneric(doc, report)
	v.checkFragments(doc, report)
	v.checkReferences(doc, report)

	report.finish()
	return report
}

func (r *Report) finish() {
	r.IsValid = len(r.Errors) == 0
	switch {
	case !r.IsValid:
		r.Status = StatusFail
	case len(r.Warnings) > 0:
		r.Status = StatusWarn
	default:
		r.Status = StatusPass
	}
}

func (v *Validator) checkMetadata(doc *statute.Document, report *Report) {
	fields := map[string]string{
		"title":     doc.Metadata.Title,
		"type":      doc.Metadata.Type,
		"number":    doc.Metadata.Number,
		"year":      doc.Metadata.Year,
		"subject":   doc.Metadata.Subject,
		"authority": doc.Metadata.Authority,
	}
	var missing []string
	for _, name := range v.profile.RequiredMetadata {
		value, known := fields[name]
		if known && strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		report.add(ValidationIssue{
			Check:    CheckMetadata,
			Severity: statute.SeverityWarning,
			Message:  fmt.Sprintf("missing metadata: %s", strings.Join(missing, ", ")),
		})
	}
}

func (v *Validator) checkBody(doc *statute.Document, report *Report) {
	if len(doc.Body) == 0 {
		report.add(ValidationIssue{Check: CheckBody, Severity: statute.SeverityError, Message: "document body is empty"})
		return
	}
	for i := range doc.Body {
		if doc.Body[i].Kind == statute.KindPasal {
			return
		}
	}
	report.add(ValidationIssue{
		Check:    CheckStructure,
		Severity: statute.SeveritySuggestion,
		Message:  "body has no Pasal, Bab or Bagian; consider a different chunking strategy",
	})
}

func (v *Validator) checkPreamble(doc *statute.Document, report *Report) {
	if !doc.Preamble.IsEmpty() {
		return
	}
	for _, docType := range v.profile.PreambleRequired {
		if strings.EqualFold(docType, doc.Metadata.Type) {
			report.add(ValidationIssue{
				Check:    CheckPreamble,
				Severity: statute.SeverityWarning,
				Message:  fmt.Sprintf("%s documents usually carry Menimbang and Mengingat, none found", doc.Metadata.Type),
			})
			return
		}
	}
}

func (v *Validator) checkDuplicates(doc *statute.Document, report *Report) {
	seen := make(map[int][]string)
	for i := range doc.Body {
		if p := doc.Body[i].Pasal(); p != nil {
			seen[p.Number] = append(seen[p.Number], doc.Body[i].ID)
		}
	}
	numbers := make([]int, 0, len(seen))
	for n, ids := range seen {
		if len(ids) > 1 {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		report.add(ValidationIssue{
			Check:    CheckDuplicate,
			Severity: statute.SeverityWarning,
			Section:  seen[n][0],
			Message:  fmt.Sprintf("Pasal %d appears %d times", n, len(seen[n])),
			Examples: seen[n],
		})
	}
}

func (v *Validator) checkGeneric(doc *statute.Document, report *Report) {
	var ids []string
	for _, s := range doc.Sections() {
		if s.IsGeneric() {
			ids = append(ids, s.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	report.add(ValidationIssue{
		Check:    CheckGeneric,
		Severity: statute.SeverityWarning,
		Message:  fmt.Sprintf("%d section(s) could not be structured", len(ids)),
		Examples: truncate(ids, v.profile.MaxExamples),
	})
}

func (v *Validator) checkFragments(doc *statute.Document, report *Report) {
	if doc.Ledger == nil {
		return
	}
	var failed, skipped []string
	for id, status := range doc.Ledger.Statuses {
		switch status {
		case "failed":
			failed = append(failed, id)
		case "skipped_budget":
			skipped = append(skipped, id)
		}
	}
	sort.Strings(failed)
	sort.Strings(skipped)
	if len(failed) > 0 {
		report.add(ValidationIssue{
			Check:    CheckFragments,
			Severity: statute.SeverityWarning,
			Message:  fmt.Sprintf("%d fragment(s) failed extraction", len(failed)),
			Examples: truncate(failed, v.profile.MaxExamples),
		})
	}
	if len(skipped) > 0 {
		report.add(ValidationIssue{
			Check:    CheckFragments,
			Severity: statute.SeverityWarning,
			Message:  fmt.Sprintf("%d fragment(s) skipped for budget (spent %.4f of %.4f)", len(skipped), doc.Ledger.Spent, doc.Ledger.Limit),
			Examples: truncate(skipped, v.profile.MaxExamples),
		})
	}
}

func (v *Validator) checkReferences(doc *statute.Document, report *Report) {
	if doc.References.Len() > 0 || len(doc.Body) == 0 {
		return
	}
	report.add(ValidationIssue{
		Check:    CheckReferences,
		Severity: statute.SeveritySuggestion,
		Message:  "no cross-references found; run the reference resolver if it has not run",
	})
}

func truncate(values []string, n int) []string {
	if n > 0 && len(values) > n {
		return values[:n]
	}
	return values
}
