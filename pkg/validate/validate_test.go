package validate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/hukum/pkg/statute"
)

func completeDocument() *statute.Document {
	refs := statute.NewReferenceIndex()
	refs.Add("pasal 1", statute.SourceLocation{SectionID: "pasal_2", Path: "intro"})
	return &statute.Document{
		ID:       "uu-11-2008",
		Metadata: statute.Metadata{Title: "Undang-Undang Nomor 11 Tahun 2008", Type: "UU", Number: "11", Year: "2008"},
		Preamble: &statute.Preamble{
			Menimbang: &statute.Section{Kind: statute.KindMenimbang, ID: "menimbang", Payload: &statute.ItemsPayload{}},
		},
		Body: []statute.Section{
			{Kind: statute.KindPasal, ID: "pasal_1", Identifier: "1", Payload: &statute.PasalPayload{Number: 1}},
			{Kind: statute.KindPasal, ID: "pasal_2", Identifier: "2", Payload: &statute.PasalPayload{Number: 2}},
		},
		References: refs,
	}
}

func checks(issues []ValidationIssue) []Check {
	out := []Check{}
	for _, issue := range issues {
		out = append(out, issue.Check)
	}
	return out
}

func TestValidate_CompleteDocument(t *testing.T) {
	report := Validate(completeDocument())
	if !report.IsValid || report.Status != StatusPass {
		t.Fatalf("Expected a passing report, got %s: %+v", report.Status, report)
	}
	if len(report.Warnings)+len(report.Suggestions) != 0 {
		t.Errorf("Expected no findings, got warnings=%v suggestions=%v", report.Warnings, report.Suggestions)
	}
	if report.Statistics.Pasal != 2 {
		t.Errorf("Expected 2 pasal in statistics, got %d", report.Statistics.Pasal)
	}
}

func TestValidate_EmptyBodyIsInvalid(t *testing.T) {
	doc := completeDocument()
	doc.Body = nil
	report := Validate(doc)

	if report.IsValid {
		t.Fatal("Expected an empty body to make the document invalid")
	}
	if report.Status != StatusFail {
		t.Errorf("Expected FAIL, got %s", report.Status)
	}
	if diff := cmp.Diff([]Check{CheckBody}, checks(report.Errors)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Findings(t *testing.T) {
	tests := []struct {
		name            string
		mutate          func(*statute.Document)
		wantWarnings    []Check
		wantSuggestions []Check
	}{
		{
			name:         "missing metadata",
			mutate:       func(d *statute.Document) { d.Metadata.Year = ""; d.Metadata.Title = "" },
			wantWarnings: []Check{CheckMetadata},
		},
		{
			name:         "preamble expected for UU",
			mutate:       func(d *statute.Document) { d.Preamble = &statute.Preamble{} },
			wantWarnings: []Check{CheckPreamble},
		},
		{
			name: "preamble not expected for Permen",
			mutate: func(d *statute.Document) {
				d.Preamble = &statute.Preamble{}
				d.Metadata.Type = "Permen"
			},
		},
		{
			name: "no structural kind",
			mutate: func(d *statute.Document) {
				d.Body = []statute.Section{{Kind: statute.KindGeneric, ID: "generic", Payload: &statute.GenericPayload{Raw: "..."}}}
			},
			wantWarnings:    []Check{CheckGeneric},
			wantSuggestions: []Check{CheckStructure},
		},
		{
			name: "duplicate pasal",
			mutate: func(d *statute.Document) {
				d.Body = append(d.Body, statute.Section{Kind: statute.KindPasal, ID: "pasal_2#2", Identifier: "2",
					Payload: &statute.PasalPayload{Number: 2}})
			},
			wantWarnings: []Check{CheckDuplicate},
		},
		{
			name: "failed and skipped fragments",
			mutate: func(d *statute.Document) {
				d.Ledger = &statute.LedgerSummary{Spent: 9, Limit: 10, Statuses: map[string]string{
					"f1": "completed", "f2": "failed", "f3": "skipped_budget",
				}}
			},
			wantWarnings: []Check{CheckFragments, CheckFragments},
		},
		{
			name:            "no references",
			mutate:          func(d *statute.Document) { d.References = statute.NewReferenceIndex() },
			wantSuggestions: []Check{CheckReferences},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := completeDocument()
			tt.mutate(doc)
			report := Validate(doc)

			if !report.IsValid {
				t.Errorf("Expected the document to stay valid, got errors %v", report.Errors)
			}
			want := tt.wantWarnings
			if want == nil {
				want = []Check{}
			}
			if diff := cmp.Diff(want, checks(report.Warnings)); diff != "" {
				t.Errorf("warnings mismatch (-want +got):\n%s", diff)
			}
			wantSuggestions := tt.wantSuggestions
			if wantSuggestions == nil {
				wantSuggestions = []Check{}
			}
			if diff := cmp.Diff(wantSuggestions, checks(report.Suggestions)); diff != "" {
				t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	doc := completeDocument()
	doc.Body = append(doc.Body, doc.Body[0])
	before := len(doc.Body)
	Validate(doc)
	if len(doc.Body) != before {
		t.Errorf("Expected body length %d after validation, got %d", before, len(doc.Body))
	}
}

func TestReport_Diagnostics(t *testing.T) {
	doc := completeDocument()
	doc.Body = nil
	doc.Metadata = statute.Metadata{}
	diagnostics := Validate(doc).Diagnostics()
	if len(diagnostics) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d", len(diagnostics))
	}
	for _, d := range diagnostics {
		if d.Code != statute.CodeValidationFailure {
			t.Errorf("Expected code %s, got %s", statute.CodeValidationFailure, d.Code)
		}
	}
}

func TestProfileFromYAML(t *testing.T) {
	profile, err := ProfileFromYAML([]byte("name: regional\npreamble_required: [Perda]\n"))
	if err != nil {
		t.Fatalf("ProfileFromYAML() error = %v", err)
	}
	if profile.Name != "regional" {
		t.Errorf("Expected name regional, got %q", profile.Name)
	}
	if diff := cmp.Diff([]string{"Perda"}, profile.PreambleRequired); diff != "" {
		t.Errorf("preamble_required mismatch (-want +got):\n%s", diff)
	}
	// Unset fields keep their defaults.
	if diff := cmp.Diff([]string{"title", "number", "year"}, profile.RequiredMetadata); diff != "" {
		t.Errorf("required_metadata mismatch (-want +got):\n%s", diff)
	}

	doc := completeDocument()
	doc.Preamble = nil
	doc.Metadata.Type = "Perda"
	report := NewValidator(profile).Validate(doc)
	if diff := cmp.Diff([]Check{CheckPreamble}, checks(report.Warnings)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadProfileFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	data, err := DefaultProfile().ToYAML()
	if err != nil {
		t.Fatalf("ToYAML() error = %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	profile, err := LoadProfileFromFile(path)
	if err != nil {
		t.Fatalf("LoadProfileFromFile() error = %v", err)
	}
	if diff := cmp.Diff(DefaultProfile(), profile); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadProfileFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing profile file")
	}
}

func TestReport_ToMarkdown(t *testing.T) {
	doc := completeDocument()
	doc.Body = append(doc.Body, statute.Section{Kind: statute.KindPasal, ID: "pasal_1#2", Identifier: "1",
		Payload: &statute.PasalPayload{Number: 1}})
	markdown := Validate(doc).ToMarkdown()

	for _, want := range []string{"# Validation Report `WARN`", "## Warnings", "duplicate_pasal", "pasal_1, pasal_1#2"} {
		if !strings.Contains(markdown, want) {
			t.Errorf("Expected markdown to contain %q:\n%s", want, markdown)
		}
	}
	if strings.Contains(markdown, "## Errors") {
		t.Error("Expected no Errors section")
	}
}
