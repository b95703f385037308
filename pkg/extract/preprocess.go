package extract

import (
	"regexp"
	"strings"

	"github.com/coolbeans/hukum/pkg/pattern"
)

// Line is one logical, trimmed line of source text together with the byte
// offset at which it starts in the original text.
type Line struct {
	Text   string
	Offset int
}

var (
	// pageNumberPattern matches lines containing only a page number,
	// optionally decorated as "- 12 -".
	pageNumberPattern = regexp.MustCompile(`^-?\s*\d+\s*-?$`)

	// hyphenatedLineEndPattern matches lines ending with a word broken across
	// a line break.
	hyphenatedLineEndPattern = regexp.MustCompile(`[a-z]-$`)

	// pageContinuationPattern matches the "Pasal 3 . . ." hints printed at the
	// foot of a page announcing what the next page starts with.
	pageContinuationPattern = regexp.MustCompile(`^[^.]*\s*(?:\.\s){2,}\.?$`)
)

// Preprocess splits text into logical lines. Blank lines, standalone page
// numbers and page continuation hints are dropped, words hyphenated across a
// line break are rejoined, and a preamble keyword sharing its line with the
// first item ("Menimbang : a. bahwa ...") is split into two lines.
func Preprocess(text string) []Line {
	var lines []Line
	offset := 0
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		if end < 0 {
			end = len(text) - offset
		}
		raw := text[offset : offset+end]
		lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\f\v"))
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lines = append(lines, Line{Text: trimmed, Offset: offset + lead})
		}
		offset += end + 1
	}

	var cleaned []Line
	for _, line := range lines {
		// Skip standalone page numbers
		if pageNumberPattern.MatchString(line.Text) {
			continue
		}
		// Skip continuation hints
		if pageContinuationPattern.MatchString(line.Text) {
			continue
		}
		cleaned = append(cleaned, line)
	}

	cleaned = rejoinHyphenatedLines(cleaned)
	return splitInlineKeywords(cleaned)
}

// rejoinHyphenatedLines merges a line ending in "word-" with the next line
// when that line continues in lowercase. The joined line keeps the offset of
// the first part.
func rejoinHyphenatedLines(lines []Line) []Line {
	var result []Line
	for i := 0; i < len(lines); i++ {
		current := lines[i]
		for i+1 < len(lines) && hyphenatedLineEndPattern.MatchString(current.Text) {
			next := lines[i+1].Text
			if next == "" || next[0] < 'a' || next[0] > 'z' {
				break
			}
			if pattern.Classify(next).Tag != pattern.Plain {
				break
			}
			if isReduplication(current.Text, next) {
				current.Text += next
			} else {
				current.Text = strings.TrimSuffix(current.Text, "-") + next
			}
			i++
		}
		result = append(result, current)
	}
	return result
}

// isReduplication reports whether a break like "undang-" / "undang ..." is a
// reduplicated word whose hyphen belongs to the text.
func isReduplication(current, next string) bool {
	fields := strings.Fields(current)
	last := strings.TrimSuffix(fields[len(fields)-1], "-")
	if i := strings.LastIndexByte(last, '-'); i >= 0 {
		last = last[i+1:]
	}
	first := strings.FieldsFunc(next, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == ';'
	})
	return len(first) > 0 && strings.EqualFold(last, first[0])
}

func splitInlineKeywords(lines []Line) []Line {
	result := make([]Line, 0, len(lines))
	for _, line := range lines {
		head, rest, restOffset, ok := pattern.SplitInline(line.Text)
		if !ok {
			result = append(result, line)
			continue
		}
		result = append(result,
			Line{Text: head, Offset: line.Offset},
			Line{Text: strings.TrimSpace(rest), Offset: line.Offset + restOffset},
		)
	}
	return result
}
