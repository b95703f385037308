package extract

import (
	"context"

	"github.com/coolbeans/hukum/pkg/statute"
)

// Options configures Parse.
type Options struct {
	// Initial is the segmenter's starting state. Empty means KindHeader.
	Initial statute.Kind
	// Concurrency bounds the structure building pool. Values below 1 mean 1.
	Concurrency int
	// Source is recorded as the metadata source file.
	Source string
}

// Parse segments text, builds every section and sorts the results into the
// parts of a PartialStructure: metadata and header from the header section,
// preamble slots, body, closing and explanation. A second occurrence of a
// preamble slot or explanation inside the same text is kept out of the
// structure and reported as a merge conflict.
func Parse(ctx context.Context, text string, opts Options) (*statute.PartialStructure, error) {
	initial := opts.Initial
	if initial == "" {
		initial = statute.KindHeader
	}
	sections := SegmentFrom(text, initial)
	closing := SplitClosing(sections)

	built, diagnostics, err := BuildAll(ctx, sections, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	AssignGroups(built)

	ps := &statute.PartialStructure{Closing: closing, Diagnostics: diagnostics}
	for i := range built {
		section := built[i]
		switch {
		case section.Kind == statute.KindHeader:
			if ps.Header == nil {
				ps.Header = &section
				meta := DetectMetadata(section.Text())
				meta.Source = opts.Source
				if !meta.IsEmpty() {
					ps.Metadata = &meta
				}
			}
		case section.Kind.IsPreamble():
			if ps.Preamble == nil {
				ps.Preamble = &statute.Preamble{}
			}
			if ps.Preamble.Slot(section.Kind) != nil {
				ps.Diagnostics = append(ps.Diagnostics, statute.Warn(statute.CodeMergeConflict, section.ID,
					"repeated %s block ignored", section.Kind))
				continue
			}
			ps.Preamble.Set(&section)
		case section.Kind == statute.KindPenjelasan:
			if ps.Explanation != nil {
				ps.Diagnostics = append(ps.Diagnostics, statute.Warn(statute.CodeMergeConflict, section.ID,
					"repeated explanation ignored"))
				continue
			}
			ps.Explanation = &section
		default:
			ps.Body = append(ps.Body, section)
		}
	}
	return ps, nil
}

// Regroup reapplies Bab and Bagian context across a merged document, whose
// sections were built in separate fragments.
func Regroup(doc *statute.Document) {
	var sections []statute.Section
	if s := doc.Preamble.Slot(statute.KindMemutuskan); s != nil {
		sections = append(sections, *s)
	}
	sections = append(sections, doc.Body...)
	AssignGroups(sections)
}
