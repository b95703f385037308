package graph

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coolbeans/hukum/pkg/statute"
)

// DefaultBaseURI prefixes every document and section URI.
const DefaultBaseURI = "https://hukum.dev/id/"

// internalTargetPattern matches canonical internal targets such as
// "pasal 5" and "pasal 5 ayat (2) huruf a".
var internalTargetPattern = regexp.MustCompile(`^pasal (\d+)(?: ayat \((\d+)\))?`)

// BuildStats counts what a build added.
type BuildStats struct {
	Sections   int `json:"sections"`
	Ayat       int `json:"ayat"`
	Citations  int `json:"citations"`
	Unresolved int `json:"unresolved_targets"`
	Triples    int `json:"triples"`
}

// GraphBuilder turns a reconciled document into triples.
type GraphBuilder struct {
	store   *TripleStore
	baseURI string
}

// NewGraphBuilder creates a builder writing into store. An empty baseURI
// means DefaultBaseURI.
func NewGraphBuilder(store *TripleStore, baseURI string) *GraphBuilder {
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}
	if !strings.HasSuffix(baseURI, "/") {
		baseURI += "/"
	}
	return &GraphBuilder{store: store, baseURI: baseURI}
}

// Build adds the document node, one node per top-level section, one per
// Ayat, and an eli:cites edge for every cross-reference. Internal targets
// that name an existing Pasal link to its node; everything else links to a
// labelled target node.
func (b *GraphBuilder) Build(doc *statute.Document) (*BuildStats, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	stats := &BuildStats{}
	docURI := b.documentURI(doc.ID)

	add := func(s, p, o string) {
		if o == "" || o == `""` {
			return
		}
		// Components are never empty here; Add only rejects empty strings.
		_ = b.store.Add(s, p, o)
	}

	add(docURI, RDFType, ClassStatute)
	add(docURI, PropTitle, Literal(doc.Metadata.Title))
	add(docURI, PropTypeDoc, Literal(doc.Metadata.Type))
	add(docURI, PropNumber, Literal(doc.Metadata.Number))
	add(docURI, PropYear, Literal(doc.Metadata.Year))

	for _, section := range doc.Sections() {
		sectionURI := b.sectionURI(doc.ID, section.ID)
		stats.Sections++

		add(sectionURI, RDFType, classFor(section.Kind))
		add(sectionURI, PropIsPartOf, docURI)
		add(sectionURI, PropKind, Literal(string(section.Kind)))
		add(sectionURI, PropLabel, Literal(section.ID))
		if section.IsGeneric() {
			add(sectionURI, PropRawText, Literal(section.Text()))
		}

		if pasal := section.Pasal(); pasal != nil {
			add(sectionURI, PropNumberText, Literal(strconv.Itoa(pasal.Number)))
			add(sectionURI, PropBab, Literal(pasal.Bab))
			add(sectionURI, PropBagian, Literal(pasal.Bagian))
			for _, ayat := range pasal.Ayat {
				ayatURI := sectionURI + "/ayat/" + strconv.Itoa(ayat.Number)
				add(ayatURI, RDFType, ClassAyat)
				add(ayatURI, PropIsPartOf, sectionURI)
				add(ayatURI, PropNumberText, Literal(strconv.Itoa(ayat.Number)))
				stats.Ayat++
			}
		}
		if penjelasan := section.Penjelasan(); penjelasan != nil {
			for _, article := range penjelasan.Articles {
				if target := doc.Pasal(article.PasalNumber); target != nil {
					add(sectionURI, PropExplains, b.sectionURI(doc.ID, target.ID))
				}
			}
		}

		for _, ref := range statute.SectionReferences(section) {
			target, resolved := b.targetURI(doc, ref)
			if !resolved {
				add(target, RDFType, ClassExternal)
				add(target, PropLabel, Literal(statute.Canonical(ref.TargetIdentifier)))
				stats.Unresolved++
			}
			add(sectionURI, PropCites, target)
			stats.Citations++
		}
	}

	stats.Triples = b.store.Count()
	return stats, nil
}

// targetURI maps a reference to a node. It reports false when the target
// is not a section of doc.
func (b *GraphBuilder) targetURI(doc *statute.Document, ref statute.CrossReference) (string, bool) {
	canonical := statute.Canonical(ref.TargetIdentifier)
	if ref.TargetKind != statute.TargetExternalLaw {
		if m := internalTargetPattern.FindStringSubmatch(canonical); m != nil {
			number, _ := strconv.Atoi(m[1])
			if target := doc.Pasal(number); target != nil {
				uri := b.sectionURI(doc.ID, target.ID)
				if m[2] != "" {
					uri += "/ayat/" + m[2]
				}
				return uri, true
			}
		}
	}
	return b.documentURI(doc.ID) + "/target/" + slug(canonical), false
}

func (b *GraphBuilder) documentURI(docID string) string {
	return b.baseURI + slug(docID)
}

func (b *GraphBuilder) sectionURI(docID, sectionID string) string {
	return b.documentURI(docID) + "/" + slug(sectionID)
}

func classFor(kind statute.Kind) string {
	switch kind {
	case statute.KindPasal:
		return ClassPasal
	case statute.KindPenjelasan:
		return ClassPenjelasan
	}
	return ClassSection
}

// slug keeps letters, digits, '-' and '_', turning everything else into '-'.
func slug(value string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteByte('-')
		}
	}
	return strings.Trim(builder.String(), "-")
}

// FromDocument builds a fresh store for doc.
func FromDocument(doc *statute.Document) (*TripleStore, *BuildStats, error) {
	store := NewTripleStore()
	stats, err := NewGraphBuilder(store, "").Build(doc)
	if err != nil {
		return nil, nil, err
	}
	return store, stats, nil
}
