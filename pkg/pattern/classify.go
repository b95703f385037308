// Package pattern classifies single lines of Indonesian statute text into
// structural line kinds.
package pattern

import (
	"regexp"
	"strconv"
	"strings"
)

// Tag identifies the structural role of a line.
type Tag int

const (
	Plain Tag = iota
	BabHeader
	BagianHeader
	PasalHeader
	AyatMarker
	HurufMarker
	AngkaMarker
	Menimbang
	Mengingat
	Memutuskan
	Penjelasan
)

var tagNames = map[Tag]string{
	Plain:        "plain",
	BabHeader:    "bab",
	BagianHeader: "bagian",
	PasalHeader:  "pasal",
	AyatMarker:   "ayat",
	HurufMarker:  "huruf",
	AngkaMarker:  "angka",
	Menimbang:    "menimbang",
	Mengingat:    "mengingat",
	Memutuskan:   "memutuskan",
	Penjelasan:   "penjelasan",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unknown"
}

// LineKind is the classification of one line plus whatever identifier the
// matching rule captured.
type LineKind struct {
	Tag Tag
	// Number is the captured number for PasalHeader, AyatMarker and AngkaMarker.
	Number int
	// Letter is the captured letter for HurufMarker.
	Letter string
	// Label is the captured numeral or ordinal for BabHeader and BagianHeader.
	Label string
	// Rest is the text following the marker on the same line.
	Rest string
}

// OpensSection reports whether the line starts a new top-level section.
func (k LineKind) OpensSection() bool {
	switch k.Tag {
	case Menimbang, Mengingat, Memutuskan, PasalHeader, Penjelasan:
		return true
	}
	return false
}

// IsHeading reports whether the line is a Bab or Bagian heading.
func (k LineKind) IsHeading() bool {
	return k.Tag == BabHeader || k.Tag == BagianHeader
}

var (
	babPattern    = regexp.MustCompile(`(?i)^BAB\s+([IVXLC]+)\b\s*(.*)$`)
	bagianPattern = regexp.MustCompile(`^(?:Bagian|BAGIAN)\s+(\w+)\s*(.*)$`)
	pasalPattern  = regexp.MustCompile(`(?i)^Pasal\s+(\d+)\.?\s*$`)
	ayatPattern   = regexp.MustCompile(`^\((\d+)\)\s*(.*)$`)
	hurufPattern  = regexp.MustCompile(`^([a-z])\.(?:\s+(.*))?$`)
	angkaPattern  = regexp.MustCompile(`^(\d+)\.(?:\s+(.*))?$`)

	keywordPattern = regexp.MustCompile(`(?i)^(Menimbang|Mengingat|Memutuskan|Penjelasan)\s*:?\s*$`)

	// letterSpacedPattern matches keywords typeset with spaces between
	// letters, e.g. "M E M U T U S K A N :".
	letterSpacedPattern = regexp.MustCompile(`^(?:[A-Za-z]\s){4,}[A-Za-z]\s*:?\s*$`)
)

var keywordTags = map[string]Tag{
	"menimbang":  Menimbang,
	"mengingat":  Mengingat,
	"memutuskan": Memutuskan,
	"penjelasan": Penjelasan,
}

// Classify maps a line to exactly one LineKind. Rules are tried in priority
// order and the first match wins; anything unmatched is Plain. The line is
// trimmed before matching.
func Classify(line string) LineKind {
	line = strings.TrimSpace(line)
	if line == "" {
		return LineKind{Tag: Plain}
	}

	if m := babPattern.FindStringSubmatch(line); m != nil {
		return LineKind{Tag: BabHeader, Label: strings.ToUpper(m[1]), Rest: m[2]}
	}
	if m := bagianPattern.FindStringSubmatch(line); m != nil {
		return LineKind{Tag: BagianHeader, Label: m[1], Rest: m[2]}
	}
	if m := pasalPattern.FindStringSubmatch(line); m != nil {
		return LineKind{Tag: PasalHeader, Number: atoi(m[1])}
	}
	if m := ayatPattern.FindStringSubmatch(line); m != nil {
		return LineKind{Tag: AyatMarker, Number: atoi(m[1]), Rest: m[2]}
	}
	if m := hurufPattern.FindStringSubmatch(line); m != nil {
		return LineKind{Tag: HurufMarker, Letter: m[1], Rest: m[2]}
	}
	if m := angkaPattern.FindStringSubmatch(line); m != nil {
		return LineKind{Tag: AngkaMarker, Number: atoi(m[1]), Rest: m[2]}
	}
	if tag, ok := keyword(line); ok {
		return LineKind{Tag: tag}
	}
	return LineKind{Tag: Plain, Rest: line}
}

func keyword(line string) (Tag, bool) {
	if letterSpacedPattern.MatchString(line) {
		line = strings.Join(strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ":")), "")
	}
	m := keywordPattern.FindStringSubmatch(line)
	if m == nil {
		return Plain, false
	}
	tag, ok := keywordTags[strings.ToLower(m[1])]
	return tag, ok
}

// inlineKeywordPattern matches a keyword followed by content on the same
// line, e.g. "Menimbang : a. bahwa ...".
var inlineKeywordPattern = regexp.MustCompile(`(?i)^(Menimbang|Mengingat)\s*:\s*(\S.*)$`)

// SplitInline splits a line that carries a preamble keyword and its first
// item on one line. It returns the keyword part, the remainder and the byte
// offset of the remainder within line. ok is false when the line is not of
// that shape.
func SplitInline(line string) (head, rest string, restOffset int, ok bool) {
	loc := inlineKeywordPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return "", "", 0, false
	}
	return strings.TrimSpace(line[:loc[4]]), line[loc[4]:loc[5]], loc[4], true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
