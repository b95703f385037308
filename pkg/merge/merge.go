// Package merge reconciles independently extracted fragment results into a
// single statute document.
package merge

import (
	"strconv"

	"github.com/coolbeans/hukum/pkg/schedule"
	"github.com/coolbeans/hukum/pkg/statute"
)

// Part is one fragment's contribution to a merge.
type Part struct {
	FragmentID string
	Structure  *statute.PartialStructure
}

// Merger accumulates parts in fragment order.
type Merger struct {
	doc *statute.Document

	metadataFrom    string
	headerFrom      string
	closingFrom     string
	explanationFrom string
	preambleFrom    map[statute.Kind]string
}

// NewMerger creates a merger for document id.
func NewMerger(id string) *Merger {
	return &Merger{
		doc: &statute.Document{
			ID:         id,
			Preamble:   &statute.Preamble{},
			Body:       []statute.Section{},
			References: statute.NewReferenceIndex(),
		},
		preambleFrom: make(map[statute.Kind]string),
	}
}

// Add merges one part. Metadata, header, preamble slots and explanation are
// first-wins; closing is last-wins; body sections are appended in order and
// never deduplicated. Every value a rule discards is reported as a merge
// conflict.
func (m *Merger) Add(p Part) {
	ps := p.Structure
	if ps == nil {
		return
	}
	doc := m.doc

	if !ps.Metadata.IsEmpty() {
		if m.metadataFrom == "" {
			doc.Metadata = *ps.Metadata
			m.metadataFrom = p.FragmentID
		} else {
			m.conflict(p.FragmentID, "metadata already taken from %s", m.metadataFrom)
		}
	}

	if ps.Header != nil {
		if m.headerFrom == "" {
			header := *ps.Header
			doc.Header = &header
			m.headerFrom = p.FragmentID
		} else {
			m.conflict(p.FragmentID, "header already taken from %s", m.headerFrom)
		}
	}

	for _, s := range ps.Preamble.Sections() {
		if from, taken := m.preambleFrom[s.Kind]; taken {
			m.conflict(p.FragmentID, "%s already taken from %s", s.Kind, from)
			continue
		}
		section := *s
		doc.Preamble.Set(&section)
		m.preambleFrom[s.Kind] = p.FragmentID
	}

	doc.Body = append(doc.Body, ps.Body...)

	if ps.Closing != nil {
		if m.closingFrom != "" {
			m.conflict(m.closingFrom, "closing replaced by %s", p.FragmentID)
		}
		doc.Closing = ps.Closing
		m.closingFrom = p.FragmentID
	}

	if ps.Explanation != nil {
		if m.explanationFrom == "" {
			explanation := *ps.Explanation
			doc.Explanation = &explanation
			m.explanationFrom = p.FragmentID
		} else {
			m.conflict(p.FragmentID, "explanation already taken from %s", m.explanationFrom)
		}
	}

	doc.Diagnostics = append(doc.Diagnostics, ps.Diagnostics...)
}

// Warn appends a diagnostic to the document being built.
func (m *Merger) Warn(d statute.Diagnostic) {
	m.doc.Diagnostics = append(m.doc.Diagnostics, d)
}

func (m *Merger) conflict(fragmentID, format string, args ...any) {
	m.Warn(statute.Warn(statute.CodeMergeConflict, fragmentID, format, args...))
}

// Document returns the merged document with section IDs made unique across
// fragments.
func (m *Merger) Document() *statute.Document {
	renumber(m.doc)
	return m.doc
}

// Merge merges parts in order.
func Merge(id string, parts []Part) *statute.Document {
	m := NewMerger(id)
	for _, p := range parts {
		m.Add(p)
	}
	return m.Document()
}

// Reconcile merges the results of completed fragments in fragment order.
// Failed and budget-skipped fragments contribute nothing but a diagnostic;
// pending fragments (left by cancellation) are reported the same way.
func Reconcile(id string, fragments []*schedule.Fragment) *statute.Document {
	m := NewMerger(id)
	for _, f := range fragments {
		switch f.Status {
		case schedule.StatusCompleted:
			m.Add(Part{FragmentID: f.ID, Structure: f.Result})
		case schedule.StatusFailed:
			m.Warn(statute.Diagnostic{
				Code:     statute.CodeExtractionFailure,
				Severity: statute.SeverityWarning,
				Section:  f.ID,
				Message:  f.Error,
			})
		case schedule.StatusSkippedBudget:
			m.Warn(statute.Warn(statute.CodeBudgetExhausted, f.ID,
				"skipped: estimated cost %.4f did not fit the budget", f.EstimatedCost))
		default:
			m.Warn(statute.Warn(statute.CodeExtractionFailure, f.ID, "not attempted (%s)", f.Status))
		}
	}
	return m.Document()
}

// renumber reassigns section IDs in reading order so that sections from
// different fragments never share an ID.
func renumber(doc *statute.Document) {
	seen := make(map[string]int)
	for _, s := range doc.Sections() {
		base := statute.SectionID(s.Kind, s.Identifier)
		seen[base]++
		if n := seen[base]; n > 1 {
			s.ID = base + "#" + strconv.Itoa(n)
		} else {
			s.ID = base
		}
	}
}
