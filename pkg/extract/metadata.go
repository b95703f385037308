package extract

import (
	"regexp"
	"strings"

	"github.com/coolbeans/hukum/pkg/pattern"
	"github.com/coolbeans/hukum/pkg/statute"
)

// documentTypes maps a leading title phrase to its short document type, most
// specific first.
var documentTypes = []struct {
	phrase    string
	shortName string
	longName  string
}{
	{"PERATURAN PEMERINTAH PENGGANTI UNDANG-UNDANG", "Perppu", "Peraturan Pemerintah Pengganti Undang-Undang"},
	{"UNDANG-UNDANG", "UU", "Undang-Undang"},
	{"PERATURAN PEMERINTAH", "PP", "Peraturan Pemerintah"},
	{"PERATURAN PRESIDEN", "Perpres", "Peraturan Presiden"},
	{"KEPUTUSAN PRESIDEN", "Keppres", "Keputusan Presiden"},
	{"PERATURAN MENTERI", "Permen", "Peraturan Menteri"},
	{"PERATURAN DAERAH", "Perda", "Peraturan Daerah"},
}

var (
	numberYearPattern = regexp.MustCompile(`(?i)NOMOR\s+(\d+)\s+TAHUN\s+(\d{4})`)
	subjectPattern    = regexp.MustCompile(`(?i)^TENTANG\b\s*(.*)$`)
	graceLinePattern  = regexp.MustCompile(`(?i)^DENGAN\s+RAHMAT\s+TUHAN`)
	authorityPattern  = regexp.MustCompile(`^(PRESIDEN\s+REPUBLIK\s+INDONESIA|MENTERI\s+[A-Z ]+|GUBERNUR\s+[A-Z ]+|BUPATI\s+[A-Z ]+|WALI\s?KOTA\s+[A-Z ]+)\s*,?\s*$`)
)

// DetectMetadata reads the document type, number, year, subject and issuing
// authority from a statute's header text and composes a title from them.
// Fields that cannot be found are left empty.
func DetectMetadata(header string) statute.Metadata {
	var meta statute.Metadata
	var longName string
	upper := strings.ToUpper(header)
	first := -1
	for _, t := range documentTypes {
		// The earliest phrase names the document; later ones are usually
		// part of the subject.
		if i := strings.Index(upper, t.phrase); i >= 0 && (first < 0 || i < first) {
			first = i
			meta.Type, longName = t.shortName, t.longName
		}
	}
	if m := numberYearPattern.FindStringSubmatch(header); m != nil {
		meta.Number, meta.Year = m[1], m[2]
	}

	lines := strings.Split(header, "\n")
	var subject []string
	inSubject := false
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if graceLinePattern.MatchString(line) {
			inSubject = false
			continue
		}
		if m := subjectPattern.FindStringSubmatch(line); m != nil && meta.Subject == "" && !inSubject {
			inSubject = true
			if m[1] != "" {
				subject = append(subject, m[1])
			}
			continue
		}
		if inSubject {
			if pattern.Classify(line).Tag != pattern.Plain {
				inSubject = false
				continue
			}
			subject = append(subject, line)
			continue
		}
		if m := authorityPattern.FindStringSubmatch(line); m != nil && meta.Authority == "" {
			meta.Authority = strings.TrimSpace(m[1])
		}
	}
	meta.Subject = normalizeSpace(strings.Join(subject, " "))

	if longName != "" && meta.Number != "" && meta.Year != "" {
		meta.Title = longName + " Nomor " + meta.Number + " Tahun " + meta.Year
		if meta.Subject != "" {
			meta.Title += " tentang " + meta.Subject
		}
	}
	return meta
}

// Complexity buckets a document by size.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Analysis is a quick structure map of a document used to plan processing.
type Analysis struct {
	DocumentType        string         `json:"document_type,omitempty"`
	SectionsFound       []statute.Kind `json:"sections_found"`
	PasalCount          int            `json:"pasal_count"`
	BabCount            int            `json:"bab_count"`
	AyatCount           int            `json:"ayat_count"`
	WordCount           int            `json:"word_count"`
	HasPenjelasan       bool           `json:"has_penjelasan"`
	Complexity          Complexity     `json:"complexity_estimate"`
	RecommendedStrategy string         `json:"recommended_chunking_strategy"`
}

// Analyze scans text line by line and reports which sections occur, how many
// Pasal, Bab and Ayat markers it holds, a complexity estimate and a
// recommended fragment planning strategy.
func Analyze(text string) Analysis {
	var a Analysis
	lines := Preprocess(text)
	inPenjelasan := false
	for _, line := range lines {
		a.WordCount += len(strings.Fields(line.Text))
		kind := pattern.Classify(line.Text)
		switch kind.Tag {
		case pattern.Menimbang, pattern.Mengingat, pattern.Memutuskan:
			if !inPenjelasan {
				a.SectionsFound = append(a.SectionsFound, statute.Kind(kind.Tag.String()))
			}
		case pattern.Penjelasan:
			if !inPenjelasan {
				inPenjelasan = true
				a.HasPenjelasan = true
				a.SectionsFound = append(a.SectionsFound, statute.KindPenjelasan)
			}
		case pattern.PasalHeader:
			if !inPenjelasan {
				a.PasalCount++
			}
		case pattern.BabHeader:
			a.BabCount++
		case pattern.AyatMarker:
			a.AyatCount++
		}
	}

	header := Segment(text)
	if len(header) > 0 && header[0].Kind == statute.KindHeader {
		a.DocumentType = DetectMetadata(header[0].Text()).Type
	}

	a.Complexity = ComplexityLow
	if a.PasalCount > 20 || a.HasPenjelasan {
		a.Complexity = ComplexityMedium
	}
	if a.PasalCount > 50 {
		a.Complexity = ComplexityHigh
	}

	switch {
	case a.WordCount < 1000:
		a.RecommendedStrategy = "single"
	case a.PasalCount > 0:
		a.RecommendedStrategy = "sections"
	default:
		a.RecommendedStrategy = "chars:2000"
	}
	return a
}
