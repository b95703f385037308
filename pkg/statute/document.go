package statute

import (
	"strconv"
	"strings"
)

// Metadata describes the statute as a whole. Every field is optional until
// resolved from the header or an extractor.
type Metadata struct {
	Title     string `json:"title,omitempty"`
	Type      string `json:"document_type,omitempty"` // UU, PP, Perpres, Permen, ...
	Number    string `json:"number,omitempty"`
	Year      string `json:"year,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Authority string `json:"issuing_authority,omitempty"`
	Source    string `json:"source_file,omitempty"`
}

// IsEmpty reports whether no identifying field is set.
func (m *Metadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.Title == "" && m.Type == "" && m.Number == "" && m.Year == "" && m.Subject == ""
}

// Preamble holds the three preamble slots.
type Preamble struct {
	Menimbang  *Section `json:"menimbang,omitempty"`
	Mengingat  *Section `json:"mengingat,omitempty"`
	Memutuskan *Section `json:"memutuskan,omitempty"`
}

// IsEmpty reports whether all slots are nil.
func (p *Preamble) IsEmpty() bool {
	return p == nil || (p.Menimbang == nil && p.Mengingat == nil && p.Memutuskan == nil)
}

// Sections returns the non-nil slots in reading order.
func (p *Preamble) Sections() []*Section {
	if p == nil {
		return nil
	}
	var out []*Section
	for _, s := range []*Section{p.Menimbang, p.Mengingat, p.Memutuskan} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Set places s into the slot matching its kind. It reports false when s is
// not a preamble section.
func (p *Preamble) Set(s *Section) bool {
	switch s.Kind {
	case KindMenimbang:
		p.Menimbang = s
	case KindMengingat:
		p.Mengingat = s
	case KindMemutuskan:
		p.Memutuskan = s
	default:
		return false
	}
	return true
}

// Slot returns the section currently in the slot for kind.
func (p *Preamble) Slot(kind Kind) *Section {
	if p == nil {
		return nil
	}
	switch kind {
	case KindMenimbang:
		return p.Menimbang
	case KindMengingat:
		return p.Mengingat
	case KindMemutuskan:
		return p.Memutuskan
	}
	return nil
}

// Closing holds the enactment and promulgation block (signatures, dates).
type Closing struct {
	Text string `json:"text"`
}

// PartialStructure is what one fragment contributes: any subset of the
// document's top-level parts.
type PartialStructure struct {
	Metadata    *Metadata `json:"metadata,omitempty"`
	Header      *Section  `json:"header,omitempty"`
	Preamble    *Preamble `json:"preamble,omitempty"`
	Body        []Section `json:"body,omitempty"`
	Closing     *Closing  `json:"closing,omitempty"`
	Explanation *Section  `json:"explanation,omitempty"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// LedgerSummary is the processing ledger as recorded on a finished document.
type LedgerSummary struct {
	RunID     string            `json:"run_id,omitempty"`
	Spent     float64           `json:"spent"`
	Limit     float64           `json:"limit"`
	Statuses  map[string]string `json:"fragment_statuses"`
	Completed []string          `json:"completed,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	// Overruns holds reported costs above the reservation; Spent has the
	// capped charge.
	Overruns map[string]float64 `json:"overruns,omitempty"`
}

// Document is the reconciled statute.
type Document struct {
	ID          string          `json:"id"`
	Metadata    Metadata        `json:"metadata"`
	Header      *Section        `json:"header,omitempty"`
	Preamble    *Preamble       `json:"preamble"`
	Body        []Section       `json:"body"`
	Closing     *Closing        `json:"closing"`
	Explanation *Section        `json:"explanation"`
	References  *ReferenceIndex `json:"references"`
	Ledger      *LedgerSummary  `json:"ledger,omitempty"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
}

// Sections returns pointers to every top-level section in reading order:
// header, preamble slots, body, explanation.
func (d *Document) Sections() []*Section {
	var out []*Section
	if d.Header != nil {
		out = append(out, d.Header)
	}
	out = append(out, d.Preamble.Sections()...)
	for i := range d.Body {
		out = append(out, &d.Body[i])
	}
	if d.Explanation != nil {
		out = append(out, d.Explanation)
	}
	return out
}

// Section returns the section with the given ID, or nil.
func (d *Document) Section(id string) *Section {
	for _, s := range d.Sections() {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Pasal returns the first body section for Pasal number n, or nil.
func (d *Document) Pasal(n int) *Section {
	for i := range d.Body {
		if p := d.Body[i].Pasal(); p != nil && p.Number == n {
			return &d.Body[i]
		}
	}
	return nil
}

// ReferencesFrom returns the references stored on the section with the given
// ID, including those on nested Ayat, sub-items and preamble items.
func (d *Document) ReferencesFrom(sectionID string) []CrossReference {
	s := d.Section(sectionID)
	if s == nil {
		return nil
	}
	return SectionReferences(s)
}

// SectionReferences collects every reference stored inside s, in document order.
func SectionReferences(s *Section) []CrossReference {
	var refs []CrossReference
	switch p := s.Payload.(type) {
	case *PasalPayload:
		refs = append(refs, p.IntroReferences...)
		for _, a := range p.Ayat {
			refs = append(refs, a.References...)
			for _, sub := range a.SubItems {
				refs = append(refs, sub.References...)
			}
		}
	case *ItemsPayload:
		for _, item := range p.Items {
			refs = append(refs, item.References...)
		}
	case *PenjelasanPayload:
		for _, a := range p.Articles {
			for _, link := range a.LinksTo {
				refs = append(refs, CrossReference{
					TargetKind:       inferTargetKind(link),
					TargetIdentifier: link,
					Source:           SourceLocation{SectionID: s.ID, Path: "pasal/" + strconv.Itoa(a.PasalNumber)},
				})
			}
		}
	case *HeaderPayload, *MemutuskanPayload, *GenericPayload, nil:
	}
	return refs
}

// Statistics summarizes a document's structure.
type Statistics struct {
	Pasal       int `json:"pasal"`
	Ayat        int `json:"ayat"`
	SubItems    int `json:"sub_items"`
	Generic     int `json:"generic"`
	Explained   int `json:"explained_pasal"`
	References  int `json:"reference_targets"`
	Diagnostics int `json:"diagnostics"`
}

// Statistics returns counts over the document tree.
func (d *Document) Statistics() Statistics {
	var stats Statistics
	for _, s := range d.Sections() {
		if s.IsGeneric() {
			stats.Generic++
		}
		if p := s.Pasal(); p != nil {
			stats.Pasal++
			stats.Ayat += len(p.Ayat)
			for _, a := range p.Ayat {
				stats.SubItems += len(a.SubItems)
			}
		}
		if p := s.Penjelasan(); p != nil {
			stats.Explained += len(p.Articles)
		}
	}
	stats.References = d.References.Len()
	stats.Diagnostics = len(d.Diagnostics)
	return stats
}

func inferTargetKind(identifier string) TargetKind {
	c := Canonical(identifier)
	switch {
	case strings.Contains(c, "huruf "):
		return TargetHuruf
	case strings.Contains(c, "ayat "):
		return TargetAyat
	case strings.HasPrefix(c, "pasal "):
		return TargetPasal
	default:
		return TargetExternalLaw
	}
}
