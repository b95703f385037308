package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coolbeans/hukum/pkg/extract"
	"github.com/coolbeans/hukum/pkg/statute"
)

// Strategy names accepted by Plan.
const (
	StrategySections   = "sections"
	StrategySingle     = "single"
	StrategyChars      = "chars"
	StrategyWords      = "words"
	StrategyParagraphs = "paragraphs"
)

// sizedStrategies maps the "name:N" strategies and their older "by_name_N"
// spellings to a planner.
var sizedStrategies = []struct {
	name string
	plan func(text string, n int) []*Fragment
}{
	{StrategyChars, PlanWindows},
	{StrategyWords, PlanWords},
	{StrategyParagraphs, PlanParagraphs},
}

// Plan cuts text into fragments according to strategy: "sections",
// "single", "chars:N", "words:N" or "paragraphs:N". The older spellings
// "single_chunk", "by_chars_N", "by_words_N" and "by_paragraphs_N" are
// accepted too.
func Plan(text, strategy string) ([]*Fragment, error) {
	switch strategy {
	case "", StrategySections:
		return PlanSections(text), nil
	case StrategySingle, "single_chunk":
		return PlanSingle(text), nil
	}

	for _, sized := range sizedStrategies {
		var sizeText string
		switch {
		case strings.HasPrefix(strategy, sized.name+":"):
			sizeText = strings.TrimPrefix(strategy, sized.name+":")
		case strings.HasPrefix(strategy, "by_"+sized.name+"_"):
			sizeText = strings.TrimPrefix(strategy, "by_"+sized.name+"_")
		default:
			continue
		}
		size, err := strconv.Atoi(sizeText)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid size in strategy %q", strategy)
		}
		return sized.plan(text, size), nil
	}
	return nil, fmt.Errorf("unknown chunking strategy %q", strategy)
}

// PlanSections makes one fragment per segmented section.
func PlanSections(text string) []*Fragment {
	sections := extract.Segment(text)
	fragments := make([]*Fragment, 0, len(sections))
	for i, s := range sections {
		fragments = append(fragments, &Fragment{
			ID:     s.ID,
			Index:  i,
			Kind:   FragmentSection,
			Hint:   string(s.Kind),
			Text:   text[s.Span.Start:s.Span.End],
			Span:   s.Span,
			Status: StatusPending,
		})
	}
	return fragments
}

// PlanSingle makes one fragment holding the whole text.
func PlanSingle(text string) []*Fragment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []*Fragment{{
		ID:     "document",
		Kind:   FragmentWindow,
		Hint:   string(FragmentWindow),
		Text:   text,
		Span:   statute.Span{Start: 0, End: len(text)},
		Status: StatusPending,
	}}
}

// PlanWindows cuts text into windows of at most size bytes. A cut that would
// split a word backs off to the last whitespace in the window, unless that
// would shrink the window below half its size.
func PlanWindows(text string, size int) []*Fragment {
	var fragments []*Fragment
	start := 0
	for start < len(text) {
		end := windowEnd(text, start, size)
		fragments = append(fragments, &Fragment{
			ID:     fmt.Sprintf("window_%03d", len(fragments)+1),
			Index:  len(fragments),
			Kind:   FragmentWindow,
			Hint:   string(FragmentWindow),
			Text:   text[start:end],
			Span:   statute.Span{Start: start, End: end},
			Status: StatusPending,
		})
		start = end
	}
	return fragments
}

func windowEnd(text string, start, size int) int {
	end := start + size
	if end >= len(text) {
		return len(text)
	}
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		// A single rune wider than the window.
		_, width := utf8.DecodeRuneInString(text[start:])
		return start + width
	}
	if r, _ := utf8.DecodeRuneInString(text[end:]); unicode.IsSpace(r) {
		return end
	}
	cut := strings.LastIndexFunc(text[start:end], unicode.IsSpace)
	if cut < 0 || cut+1 < size/2 {
		return end
	}
	return start + cut + 1
}

// PlanWords cuts text into fragments of n words. Each fragment after the
// first starts at the first byte of a word, so whitespace between two
// fragments stays with the earlier one and the spans cover text exactly.
func PlanWords(text string, n int) []*Fragment {
	return planAt(text, "words", everyNth(wordStarts(text), n))
}

// PlanParagraphs cuts text into fragments of n paragraphs. Paragraphs are
// separated by one or more blank lines.
func PlanParagraphs(text string, n int) []*Fragment {
	return planAt(text, "paragraphs", everyNth(paragraphStarts(text), n))
}

// planAt cuts text at the given offsets. The first fragment always starts at
// zero and the last ends at len(text).
func planAt(text, prefix string, cuts []int) []*Fragment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	bounds := append([]int{0}, cuts...)
	bounds = append(bounds, len(text))
	fragments := make([]*Fragment, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		if start >= end {
			continue
		}
		fragments = append(fragments, &Fragment{
			ID:     fmt.Sprintf("%s_%03d", prefix, len(fragments)+1),
			Index:  len(fragments),
			Kind:   FragmentWindow,
			Hint:   string(FragmentWindow),
			Text:   text[start:end],
			Span:   statute.Span{Start: start, End: end},
			Status: StatusPending,
		})
	}
	return fragments
}

// everyNth returns starts[n], starts[2n], ...: the offsets at which a new
// group of n units begins.
func everyNth(starts []int, n int) []int {
	var cuts []int
	for i := n; i < len(starts); i += n {
		cuts = append(cuts, starts[i])
	}
	return cuts
}

func wordStarts(text string) []int {
	var starts []int
	inWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && !inWord {
			starts = append(starts, i)
		}
		inWord = !space
	}
	return starts
}

func paragraphStarts(text string) []int {
	var starts []int
	blank := true
	offset := 0
	for offset < len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += offset + 1
		}
		line := text[offset:end]
		if strings.TrimSpace(line) == "" {
			blank = true
		} else {
			if blank {
				starts = append(starts, offset+len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace)))
			}
			blank = false
		}
		offset = end
	}
	return starts
}
