package statute

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TargetKind indicates what kind of element a cross-reference points at.
type TargetKind string

const (
	TargetPasal       TargetKind = "pasal"
	TargetAyat        TargetKind = "ayat"
	TargetHuruf       TargetKind = "huruf"
	TargetExternalLaw TargetKind = "external_law"
)

// SourceLocation identifies where a reference was found: a section ID plus a
// slash-separated path inside it, e.g. "ayat/2/huruf/a" or "item/b".
type SourceLocation struct {
	SectionID string `json:"section_id"`
	Path      string `json:"path,omitempty"`
}

// String renders the location as "section_id" or "section_id/path".
func (l SourceLocation) String() string {
	if l.Path == "" {
		return l.SectionID
	}
	return l.SectionID + "/" + l.Path
}

// CrossReference is a textual reference from one location to a target.
type CrossReference struct {
	TargetKind       TargetKind     `json:"target_kind"`
	TargetIdentifier string         `json:"target_identifier"`
	RawText          string         `json:"raw_text"`
	Source           SourceLocation `json:"source"`
}

// Canonical normalizes a target identifier: NFKC, case-folded, inner
// whitespace collapsed to single spaces. "Pasal  5" and "pasal 5" are equal.
func Canonical(identifier string) string {
	s := norm.NFKC.String(identifier)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// ReferenceIndex maps canonical target identifiers to the set of locations
// that reference them. It holds no pointers into sections.
type ReferenceIndex struct {
	entries map[string]map[SourceLocation]struct{}
}

// NewReferenceIndex creates an empty index.
func NewReferenceIndex() *ReferenceIndex {
	return &ReferenceIndex{entries: make(map[string]map[SourceLocation]struct{})}
}

// Add records that loc references target. The target is canonicalized.
func (idx *ReferenceIndex) Add(target string, loc SourceLocation) {
	key := Canonical(target)
	if key == "" {
		return
	}
	if idx.entries == nil {
		idx.entries = make(map[string]map[SourceLocation]struct{})
	}
	set, ok := idx.entries[key]
	if !ok {
		set = make(map[SourceLocation]struct{})
		idx.entries[key] = set
	}
	set[loc] = struct{}{}
}

// ReferencesTo returns every location referencing target, sorted.
func (idx *ReferenceIndex) ReferencesTo(target string) []SourceLocation {
	if idx == nil {
		return nil
	}
	set := idx.entries[Canonical(target)]
	locs := make([]SourceLocation, 0, len(set))
	for loc := range set {
		locs = append(locs, loc)
	}
	sortLocations(locs)
	return locs
}

// Targets returns all indexed targets, sorted.
func (idx *ReferenceIndex) Targets() []string {
	if idx == nil {
		return nil
	}
	targets := make([]string, 0, len(idx.entries))
	for target := range idx.entries {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}

// Len returns the number of distinct targets.
func (idx *ReferenceIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Entries returns the index as a plain sorted map, suitable for comparison.
func (idx *ReferenceIndex) Entries() map[string][]SourceLocation {
	out := make(map[string][]SourceLocation, idx.Len())
	for _, target := range idx.Targets() {
		out[target] = idx.ReferencesTo(target)
	}
	return out
}

// MarshalJSON writes the index as {target: [locations]}.
func (idx *ReferenceIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal(idx.Entries())
}

// UnmarshalJSON reads the {target: [locations]} form.
func (idx *ReferenceIndex) UnmarshalJSON(data []byte) error {
	var raw map[string][]SourceLocation
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	idx.entries = make(map[string]map[SourceLocation]struct{}, len(raw))
	for target, locs := range raw {
		for _, loc := range locs {
			idx.Add(target, loc)
		}
	}
	return nil
}

func sortLocations(locs []SourceLocation) {
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].SectionID != locs[j].SectionID {
			return locs[i].SectionID < locs[j].SectionID
		}
		return locs[i].Path < locs[j].Path
	})
}
