package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Triple is an RDF Subject-Predicate-Object triple. Subjects are section
// URIs (e.g. "uu-11-2008:pasal_5"), predicates are prefixed names and objects
// are URIs, prefixed names or literals.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// String returns the triple in N-Triples-like form.
func (t Triple) String() string {
	return fmt.Sprintf("<%s> <%s> <%s> .", t.Subject, t.Predicate, t.Object)
}

// TripleStore is an in-memory triple store with SPO and OSP indexes:
// SPO answers "what does X say", OSP answers "who points at X".
type TripleStore struct {
	mu sync.RWMutex

	spo   map[string]map[string]map[string]bool
	osp   map[string]map[string]map[string]bool
	count int
}

// NewTripleStore creates an empty store.
func NewTripleStore() *TripleStore {
	return &TripleStore{
		spo: make(map[string]map[string]map[string]bool),
		osp: make(map[string]map[string]map[string]bool),
	}
}

// Add inserts a triple. Adding an existing triple is a no-op.
func (ts *TripleStore) Add(subject, predicate, object string) error {
	if subject == "" || predicate == "" || object == "" {
		return fmt.Errorf("triple components cannot be empty")
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.spo[subject][predicate][object] {
		return nil
	}
	insert(ts.spo, subject, predicate, object)
	insert(ts.osp, object, subject, predicate)
	ts.count++
	return nil
}

func insert(index map[string]map[string]map[string]bool, a, b, c string) {
	if index[a] == nil {
		index[a] = make(map[string]map[string]bool)
	}
	if index[a][b] == nil {
		index[a][b] = make(map[string]bool)
	}
	index[a][b][c] = true
}

// Find returns triples matching the pattern, sorted. Empty strings are
// wildcards.
func (ts *TripleStore) Find(subject, predicate, object string) []Triple {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	var results []Triple
	match := func(s, p, o string) {
		if (subject == "" || s == subject) && (predicate == "" || p == predicate) && (object == "" || o == object) {
			results = append(results, Triple{Subject: s, Predicate: p, Object: o})
		}
	}
	switch {
	case subject != "":
		for p, objects := range ts.spo[subject] {
			for o := range objects {
				match(subject, p, o)
			}
		}
	case object != "":
		for s, predicates := range ts.osp[object] {
			for p := range predicates {
				match(s, p, object)
			}
		}
	default:
		for s, predicates := range ts.spo {
			for p, objects := range predicates {
				for o := range objects {
					match(s, p, o)
				}
			}
		}
	}
	sortTriples(results)
	return results
}

// Count returns the number of triples.
func (ts *TripleStore) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.count
}

// All returns every triple, sorted.
func (ts *TripleStore) All() []Triple {
	return ts.Find("", "", "")
}

func sortTriples(triples []Triple) {
	sort.Slice(triples, func(i, j int) bool {
		a, b := triples[i], triples[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Predicate != b.Predicate {
			return a.Predicate < b.Predicate
		}
		return a.Object < b.Object
	})
}
