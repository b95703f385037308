// Package statute defines the typed document model for Indonesian statutes:
// sections, their kind-specific payloads, cross-references and the reference index.
package statute

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the kind of a top-level section.
type Kind string

const (
	KindHeader     Kind = "header"
	KindMenimbang  Kind = "menimbang"
	KindMengingat  Kind = "mengingat"
	KindMemutuskan Kind = "memutuskan"
	KindPasal      Kind = "pasal"
	KindPenjelasan Kind = "penjelasan"
	KindGeneric    Kind = "generic"
)

// Kinds lists every section kind in canonical order.
var Kinds = []Kind{KindHeader, KindMenimbang, KindMengingat, KindMemutuskan, KindPasal, KindPenjelasan, KindGeneric}

// ParseKind converts a string to a Kind, case-insensitively.
func ParseKind(s string) (Kind, bool) {
	lower := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds {
		if k == lower {
			return k, true
		}
	}
	return "", false
}

// IsPreamble reports whether sections of this kind belong to the preamble.
func (k Kind) IsPreamble() bool {
	return k == KindMenimbang || k == KindMengingat || k == KindMemutuskan
}

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the length of the span.
func (s Span) Len() int { return s.End - s.Start }

// Section is one top-level unit of a statute. Its Payload is one of the
// payload types in this package and always matches Kind, except that any
// kind may carry a *GenericPayload when its content could not be structured.
type Section struct {
	Kind       Kind     `json:"kind"`
	ID         string   `json:"id"`
	Identifier string   `json:"identifier,omitempty"`
	Span       Span     `json:"span"`
	Lines      []string `json:"lines,omitempty"`
	Payload    Payload  `json:"-"`
}

// Text returns the section's content lines joined by newlines.
func (s *Section) Text() string {
	return strings.Join(s.Lines, "\n")
}

// Pasal returns the section's Pasal payload, or nil.
func (s *Section) Pasal() *PasalPayload {
	p, _ := s.Payload.(*PasalPayload)
	return p
}

// Items returns the section's Menimbang/Mengingat payload, or nil.
func (s *Section) Items() *ItemsPayload {
	p, _ := s.Payload.(*ItemsPayload)
	return p
}

// Penjelasan returns the section's Penjelasan payload, or nil.
func (s *Section) Penjelasan() *PenjelasanPayload {
	p, _ := s.Payload.(*PenjelasanPayload)
	return p
}

// IsGeneric reports whether the section degraded to a generic payload.
func (s *Section) IsGeneric() bool {
	_, ok := s.Payload.(*GenericPayload)
	return ok || s.Kind == KindGeneric
}

// Payload is the closed set of kind-specific section contents.
type Payload interface {
	isPayload()
}

// HeaderPayload holds the title block that precedes the preamble.
type HeaderPayload struct {
	Text string `json:"text"`
}

// Item is one lettered consideration or legal basis in the preamble.
type Item struct {
	Letter     string           `json:"letter"`
	Content    string           `json:"content"`
	References []CrossReference `json:"references,omitempty"`
}

// ItemsPayload holds the lettered items of a Menimbang or Mengingat block.
type ItemsPayload struct {
	Items []Item `json:"items"`
}

// MemutuskanPayload holds the enacting formula ("Menetapkan: ...").
type MemutuskanPayload struct {
	Text     string    `json:"text"`
	Headings []Heading `json:"headings,omitempty"`
}

// HeadingKind distinguishes chapter and part headings.
type HeadingKind string

const (
	HeadingBab    HeadingKind = "bab"
	HeadingBagian HeadingKind = "bagian"
)

// Heading is a Bab or Bagian heading found inside a section's content.
type Heading struct {
	Kind  HeadingKind `json:"kind"`
	Label string      `json:"label"`
	Title string      `json:"title,omitempty"`
}

// SubItemKind distinguishes lettered and numbered sub-items.
type SubItemKind string

const (
	SubItemHuruf SubItemKind = "huruf"
	SubItemAngka SubItemKind = "angka"
)

// SubItem is a Huruf (a., b.) or Angka (1., 2.) item nested under an Ayat.
type SubItem struct {
	Kind       SubItemKind      `json:"type"`
	Letter     string           `json:"letter,omitempty"`
	Number     int              `json:"number,omitempty"`
	Content    string           `json:"content"`
	References []CrossReference `json:"references,omitempty"`
}

// Label returns "a" for Huruf items and "1" for Angka items.
func (s SubItem) Label() string {
	if s.Kind == SubItemHuruf {
		return s.Letter
	}
	return fmt.Sprintf("%d", s.Number)
}

// Ayat is a numbered paragraph of a Pasal.
type Ayat struct {
	Number     int              `json:"number"`
	Content    string           `json:"content"`
	SubItems   []SubItem        `json:"sub_items,omitempty"`
	References []CrossReference `json:"references,omitempty"`
}

// PasalPayload is the content of an article.
type PasalPayload struct {
	Number   int       `json:"number"`
	Intro    string    `json:"intro,omitempty"`
	Ayat     []Ayat    `json:"ayat"`
	Bab      string    `json:"bab,omitempty"`
	Bagian   string    `json:"bagian,omitempty"`
	Headings []Heading `json:"headings,omitempty"`

	IntroReferences []CrossReference `json:"intro_references,omitempty"`
}

// ArticleExplanation is the Penjelasan entry for one Pasal.
type ArticleExplanation struct {
	PasalNumber int      `json:"pasal_number"`
	Explanation string   `json:"explanation"`
	LinksTo     []string `json:"links_to,omitempty"`
}

// PenjelasanPayload holds the explanatory appendix.
type PenjelasanPayload struct {
	General  string               `json:"general_explanation"`
	Articles []ArticleExplanation `json:"article_explanations"`
}

// GenericPayload carries raw text that could not be structured.
type GenericPayload struct {
	Raw string `json:"raw"`
}

func (*HeaderPayload) isPayload()     {}
func (*ItemsPayload) isPayload()      {}
func (*MemutuskanPayload) isPayload() {}
func (*PasalPayload) isPayload()      {}
func (*PenjelasanPayload) isPayload() {}
func (*GenericPayload) isPayload()    {}

// sectionJSON is the wire form of a Section: common fields plus exactly one
// payload keyed by the section kind.
type sectionJSON struct {
	Kind       Kind            `json:"kind"`
	ID         string          `json:"id,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Span       Span            `json:"span"`
	Lines      []string        `json:"lines,omitempty"`
	Header     json.RawMessage `json:"header,omitempty"`
	Menimbang  json.RawMessage `json:"menimbang,omitempty"`
	Mengingat  json.RawMessage `json:"mengingat,omitempty"`
	Memutuskan json.RawMessage `json:"memutuskan,omitempty"`
	Pasal      json.RawMessage `json:"pasal,omitempty"`
	Penjelasan json.RawMessage `json:"penjelasan,omitempty"`
	Generic    json.RawMessage `json:"generic,omitempty"`
}

// MarshalJSON writes the payload under the key of its kind.
func (s Section) MarshalJSON() ([]byte, error) {
	wire := sectionJSON{
		Kind:       s.Kind,
		ID:         s.ID,
		Identifier: s.Identifier,
		Span:       s.Span,
		Lines:      s.Lines,
	}
	if s.Payload == nil {
		return json.Marshal(wire)
	}
	raw, err := json.Marshal(s.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", s.Kind, err)
	}
	switch p := s.Payload.(type) {
	case *HeaderPayload:
		wire.Header = raw
	case *ItemsPayload:
		if s.Kind == KindMengingat {
			wire.Mengingat = raw
		} else {
			wire.Menimbang = raw
		}
	case *MemutuskanPayload:
		wire.Memutuskan = raw
	case *PasalPayload:
		wire.Pasal = raw
	case *PenjelasanPayload:
		wire.Penjelasan = raw
	case *GenericPayload:
		wire.Generic = raw
	default:
		return nil, fmt.Errorf("unknown payload type %T", p)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads the payload from the key matching the section kind.
// A section whose kind key is absent but carries a generic payload decodes
// as generic content of that kind.
func (s *Section) UnmarshalJSON(data []byte) error {
	var wire sectionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	kind, ok := ParseKind(string(wire.Kind))
	if !ok {
		return fmt.Errorf("unknown section kind %q", wire.Kind)
	}
	*s = Section{
		Kind:       kind,
		ID:         wire.ID,
		Identifier: wire.Identifier,
		Span:       wire.Span,
		Lines:      wire.Lines,
	}

	var target Payload
	var raw json.RawMessage
	switch kind {
	case KindHeader:
		target, raw = &HeaderPayload{}, wire.Header
	case KindMenimbang:
		target, raw = &ItemsPayload{}, wire.Menimbang
	case KindMengingat:
		target, raw = &ItemsPayload{}, wire.Mengingat
	case KindMemutuskan:
		target, raw = &MemutuskanPayload{}, wire.Memutuskan
	case KindPasal:
		target, raw = &PasalPayload{}, wire.Pasal
	case KindPenjelasan:
		target, raw = &PenjelasanPayload{}, wire.Penjelasan
	case KindGeneric:
		target, raw = &GenericPayload{}, wire.Generic
	}
	if len(raw) == 0 && len(wire.Generic) > 0 {
		target, raw = &GenericPayload{}, wire.Generic
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decoding %s payload: %w", kind, err)
	}
	s.Payload = target
	return nil
}

// SectionID returns the base identifier of a section, e.g. "pasal_5" or "menimbang".
func SectionID(kind Kind, identifier string) string {
	if identifier == "" {
		return string(kind)
	}
	return string(kind) + "_" + identifier
}

// AssignIDs sets Section.ID for every section in order, suffixing repeats
// with "#2", "#3", ... so IDs stay unique when numbering recurs.
func AssignIDs(sections []Section) {
	seen := make(map[string]int, len(sections))
	for i := range sections {
		base := SectionID(sections[i].Kind, sections[i].Identifier)
		seen[base]++
		if n := seen[base]; n > 1 {
			sections[i].ID = fmt.Sprintf("%s#%d", base, n)
		} else {
			sections[i].ID = base
		}
	}
}
