// Package extract turns flat Indonesian statute text into typed sections:
// line preprocessing, segmentation, structure building, metadata detection
// and cross-reference resolution.
package extract

import (
	"strconv"

	"github.com/coolbeans/hukum/pkg/pattern"
	"github.com/coolbeans/hukum/pkg/statute"
)

// segmenterState holds the section being accumulated.
type segmenterState struct {
	kind         statute.Kind
	identifier   string
	start        int
	lines        []string
	inPenjelasan bool
}

// Segment splits text into top-level sections in reading order. Sections
// break only at Menimbang, Mengingat, Memutuskan, Pasal and Penjelasan lines.
// The returned spans are contiguous and cover text exactly: the first
// section starts at 0 and the last ends at len(text).
func Segment(text string) []statute.Section {
	return SegmentFrom(text, statute.KindHeader)
}

// SegmentFrom is Segment with a chosen initial state. A text window cut
// from the middle of a document starts in KindGeneric so its leading
// continuation text is not mistaken for a header.
func SegmentFrom(text string, initial statute.Kind) []statute.Section {
	return SegmentLines(Preprocess(text), len(text), initial)
}

// SegmentLines runs the segmentation state machine over preprocessed lines.
// textLen is the length of the source text the line offsets point into.
func SegmentLines(lines []Line, textLen int, initial statute.Kind) []statute.Section {
	if len(lines) == 0 {
		return nil
	}

	var sections []statute.Section
	state := segmenterState{kind: initial, start: 0}

	flush := func(end int) {
		if len(state.lines) == 0 {
			return
		}
		sections = append(sections, statute.Section{
			Kind:       state.kind,
			Identifier: state.identifier,
			Span:       statute.Span{Start: state.start, End: end},
			Lines:      state.lines,
		})
	}

	for _, line := range lines {
		kind := pattern.Classify(line.Text)
		next, identifier, opens := sectionOpening(kind, state.inPenjelasan)
		if !opens {
			state.lines = append(state.lines, line.Text)
			continue
		}

		start := line.Offset
		if len(sections) == 0 && len(state.lines) == 0 {
			// Nothing accumulated yet: the first section owns the text from 0.
			start = 0
		}
		flush(start)
		state = segmenterState{
			kind:         next,
			identifier:   identifier,
			start:        start,
			lines:        []string{line.Text},
			inPenjelasan: state.inPenjelasan || next == statute.KindPenjelasan,
		}
	}
	flush(textLen)

	statute.AssignIDs(sections)
	return sections
}

// sectionOpening reports whether a classified line opens a new section and,
// if so, of which kind. Inside the Penjelasan, Pasal headers belong to the
// article-by-article explanation and do not open sections.
func sectionOpening(kind pattern.LineKind, inPenjelasan bool) (statute.Kind, string, bool) {
	if !kind.OpensSection() {
		return "", "", false
	}
	switch kind.Tag {
	case pattern.Menimbang:
		return statute.KindMenimbang, "", !inPenjelasan
	case pattern.Mengingat:
		return statute.KindMengingat, "", !inPenjelasan
	case pattern.Memutuskan:
		return statute.KindMemutuskan, "", !inPenjelasan
	case pattern.PasalHeader:
		return statute.KindPasal, strconv.Itoa(kind.Number), !inPenjelasan
	case pattern.Penjelasan:
		return statute.KindPenjelasan, "", !inPenjelasan
	}
	return "", "", false
}
