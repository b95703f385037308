package extract

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/coolbeans/hukum/pkg/statute"
)

var (
	// pasalMentionPattern matches "Pasal 5", "Pasal 5 ayat (2)" and
	// "Pasal 5 ayat (2) huruf a".
	pasalMentionPattern = regexp.MustCompile(`(?i)\bpasal\s+(\d+)(?:\s+ayat\s+\((\d+)\))?(?:\s+huruf\s+([a-z])\b)?`)

	// ayatMentionPattern matches "ayat (2)" and "ayat (2) huruf a".
	ayatMentionPattern = regexp.MustCompile(`(?i)\bayat\s+\((\d+)\)(?:\s+huruf\s+([a-z])\b)?`)

	hurufMentionPattern = regexp.MustCompile(`(?i)\bhuruf\s+([a-z])\b`)

	lawMentionPattern = regexp.MustCompile(`(?i)\b(undang-undang|peraturan\s+pemerintah\s+pengganti\s+undang-undang|peraturan\s+pemerintah|peraturan\s+presiden)\s+nomor\s+(\d+)(?:\s+tahun\s+(\d{4}))?`)
)

// scope is the enclosing Pasal and Ayat of the text being scanned. Zero
// values mean the text sits outside any Pasal or Ayat.
type scope struct {
	pasal int
	ayat  int
}

// mention is one matched reference before it is attached to a location.
type mention struct {
	kind   statute.TargetKind
	target string
	raw    string
	offset int
}

// ReferenceResolver extracts cross-references from built sections and
// rebuilds a document's reference index.
type ReferenceResolver struct{}

// NewReferenceResolver creates a resolver.
func NewReferenceResolver() *ReferenceResolver {
	return &ReferenceResolver{}
}

// Resolve clears every stored reference in doc, rescans all section content
// and replaces doc.References with a freshly built index. Running it twice
// yields the same index.
func (r *ReferenceResolver) Resolve(doc *statute.Document) {
	sections := doc.Sections()
	for _, s := range sections {
		r.resolveSection(s)
	}
	doc.References = IndexSections(sections)
}

// Resolve is a convenience wrapper around a default ReferenceResolver.
func Resolve(doc *statute.Document) {
	NewReferenceResolver().Resolve(doc)
}

// IndexSections builds a reference index from the references already stored
// on sections.
func IndexSections(sections []*statute.Section) *statute.ReferenceIndex {
	idx := statute.NewReferenceIndex()
	for _, s := range sections {
		for _, ref := range statute.SectionReferences(s) {
			idx.Add(ref.TargetIdentifier, ref.Source)
		}
	}
	return idx
}

func (r *ReferenceResolver) resolveSection(s *statute.Section) {
	switch p := s.Payload.(type) {
	case *statute.PasalPayload:
		loc := func(path string) statute.SourceLocation {
			return statute.SourceLocation{SectionID: s.ID, Path: path}
		}
		p.IntroReferences = attach(findMentions(p.Intro, scope{pasal: p.Number}), loc("intro"))
		for i := range p.Ayat {
			ayat := &p.Ayat[i]
			in := scope{pasal: p.Number, ayat: ayat.Number}
			ayatPath := "ayat/" + strconv.Itoa(ayat.Number)
			ayat.References = attach(findMentions(ayat.Content, in), loc(ayatPath))
			for j := range ayat.SubItems {
				sub := &ayat.SubItems[j]
				subPath := ayatPath + "/" + string(sub.Kind) + "/" + sub.Label()
				sub.References = attach(findMentions(sub.Content, in), loc(subPath))
			}
		}
	case *statute.ItemsPayload:
		for i := range p.Items {
			item := &p.Items[i]
			label := item.Letter
			if label == "" {
				label = strconv.Itoa(i + 1)
			}
			item.References = attach(findMentions(item.Content, scope{}), statute.SourceLocation{SectionID: s.ID, Path: "item/" + label})
		}
	case *statute.PenjelasanPayload:
		for i := range p.Articles {
			article := &p.Articles[i]
			links := []string{statute.Canonical("pasal " + strconv.Itoa(article.PasalNumber))}
			for _, m := range findMentions(article.Explanation, scope{pasal: article.PasalNumber}) {
				links = append(links, m.target)
			}
			article.LinksTo = dedupe(links)
		}
	case *statute.HeaderPayload, *statute.MemutuskanPayload, *statute.GenericPayload, nil:
		// Nothing to store references on.
	}
}

func attach(mentions []mention, loc statute.SourceLocation) []statute.CrossReference {
	if len(mentions) == 0 {
		return nil
	}
	refs := make([]statute.CrossReference, 0, len(mentions))
	for _, m := range mentions {
		refs = append(refs, statute.CrossReference{
			TargetKind:       m.kind,
			TargetIdentifier: m.target,
			RawText:          m.raw,
			Source:           loc,
		})
	}
	return refs
}

// FindReferences returns the references mentioned in text, unqualified by any
// enclosing Pasal.
func FindReferences(text string) []statute.CrossReference {
	return attach(findMentions(text, scope{}), statute.SourceLocation{})
}

// findMentions scans text with the reference patterns. A Pasal mention
// yields one reference per level it names ("pasal 5", "pasal 5 ayat (2)").
// Bare ayat and huruf mentions are qualified by the enclosing scope.
func findMentions(text string, in scope) []mention {
	if text == "" {
		return nil
	}
	var mentions []mention
	var covered [][2]int

	pasalMatches := pasalMentionPattern.FindAllStringSubmatchIndex(text, -1)
	laws := externalOwners(text, pasalMatches)
	for i, m := range pasalMatches {
		covered = append(covered, [2]int{m[0], m[1]})
		raw := text[m[0]:m[1]]
		kind := func(k statute.TargetKind) statute.TargetKind {
			if laws[i] != "" {
				return statute.TargetExternalLaw
			}
			return k
		}
		qualify := func(target string) string {
			if laws[i] != "" {
				target += " " + laws[i]
			}
			return statute.Canonical(target)
		}
		target := "pasal " + text[m[2]:m[3]]
		mentions = append(mentions, mention{kind(statute.TargetPasal), qualify(target), raw, m[0]})
		if m[4] >= 0 {
			target += " ayat (" + text[m[4]:m[5]] + ")"
			mentions = append(mentions, mention{kind(statute.TargetAyat), qualify(target), raw, m[0]})
		}
		if m[6] >= 0 {
			target += " huruf " + text[m[6]:m[7]]
			mentions = append(mentions, mention{kind(statute.TargetHuruf), qualify(target), raw, m[0]})
		}
	}

	for _, m := range ayatMentionPattern.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(covered, m[0], m[1]) {
			continue
		}
		covered = append(covered, [2]int{m[0], m[1]})
		raw := text[m[0]:m[1]]
		target := "ayat (" + text[m[2]:m[3]] + ")"
		if in.pasal > 0 {
			target = "pasal " + strconv.Itoa(in.pasal) + " " + target
		}
		mentions = append(mentions, mention{statute.TargetAyat, statute.Canonical(target), raw, m[0]})
		if m[4] >= 0 {
			target += " huruf " + text[m[4]:m[5]]
			mentions = append(mentions, mention{statute.TargetHuruf, statute.Canonical(target), raw, m[0]})
		}
	}

	for _, m := range hurufMentionPattern.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(covered, m[0], m[1]) {
			continue
		}
		target := "huruf " + text[m[2]:m[3]]
		if in.ayat > 0 {
			target = "ayat (" + strconv.Itoa(in.ayat) + ") " + target
		}
		if in.pasal > 0 {
			target = "pasal " + strconv.Itoa(in.pasal) + " " + target
		}
		mentions = append(mentions, mention{statute.TargetHuruf, statute.Canonical(target), text[m[0]:m[1]], m[0]})
	}

	for _, m := range lawMentionPattern.FindAllStringSubmatchIndex(text, -1) {
		target := text[m[2]:m[3]] + " nomor " + text[m[4]:m[5]]
		if m[6] >= 0 {
			target += " tahun " + text[m[6]:m[7]]
		}
		mentions = append(mentions, mention{statute.TargetExternalLaw, statute.Canonical(target), text[m[0]:m[1]], m[0]})
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].offset < mentions[j].offset
	})
	return mentions
}

var (
	// lawSuffixPattern matches a law name directly following a Pasal
	// mention, as in "Pasal 20 Undang-Undang Dasar ... Tahun 1945".
	lawSuffixPattern = regexp.MustCompile(`(?i)^\s+(undang-undang\s+dasar(?:\s+negara\s+republik\s+indonesia)?(?:\s+tahun\s+\d{4})?|(?:undang-undang|peraturan\s+pemerintah|peraturan\s+presiden)\s+nomor\s+\d+(?:\s+tahun\s+\d{4})?|kitab\s+undang-undang\s+hukum\s+\w+)`)

	conjunctionPattern = regexp.MustCompile(`(?i)^(?:\s*,\s*|\s+dan\s+|\s+atau\s+|\s*,\s*dan\s+|\s+sampai\s+dengan\s+)$`)
)

// externalOwners returns, per Pasal mention, the name of the law it belongs
// to when the mention (or the list it ends, joined by "dan", "atau" or
// commas) is followed by a law name. Internal mentions get "".
func externalOwners(text string, matches [][]int) []string {
	owners := make([]string, len(matches))
	for i := len(matches) - 1; i >= 0; i-- {
		end := matches[i][1]
		if m := lawSuffixPattern.FindStringSubmatch(text[end:]); m != nil {
			owners[i] = m[1]
			continue
		}
		if i+1 < len(matches) && owners[i+1] != "" && conjunctionPattern.MatchString(text[end:matches[i+1][0]]) {
			owners[i] = owners[i+1]
		}
	}
	return owners
}

func overlaps(ranges [][2]int, start, end int) bool {
	for _, r := range ranges {
		if start < r[1] && end > r[0] {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
