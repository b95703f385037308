package graph

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/hukum/pkg/statute"
)

func sampleDocument() *statute.Document {
	body := []statute.Section{
		{Kind: statute.KindPasal, Identifier: "1", Payload: &statute.PasalPayload{
			Number: 1,
			Bab:    "BAB I",
			Ayat: []statute.Ayat{{
				Number:  1,
				Content: "Sebagaimana dimaksud dalam Pasal 2 ayat (1).",
				References: []statute.CrossReference{
					{TargetKind: statute.TargetPasal, TargetIdentifier: "pasal 2"},
					{TargetKind: statute.TargetAyat, TargetIdentifier: "pasal 2 ayat (1)"},
				},
			}},
		}},
		{Kind: statute.KindPasal, Identifier: "2", Payload: &statute.PasalPayload{
			Number: 2,
			Ayat: []statute.Ayat{{
				Number:  1,
				Content: "Menurut Undang-Undang Nomor 11 Tahun 2008.",
				References: []statute.CrossReference{
					{TargetKind: statute.TargetExternalLaw, TargetIdentifier: "undang-undang nomor 11 tahun 2008"},
					{TargetKind: statute.TargetPasal, TargetIdentifier: "pasal 40"},
				},
			}},
		}},
	}
	statute.AssignIDs(body)
	explanation := &statute.Section{Kind: statute.KindPenjelasan, ID: "penjelasan", Payload: &statute.PenjelasanPayload{
		Articles: []statute.ArticleExplanation{{PasalNumber: 1, Explanation: "Cukup jelas."}},
	}}
	return &statute.Document{
		ID:          "UU 11 2008",
		Metadata:    statute.Metadata{Title: "Informasi dan Transaksi Elektronik", Type: "UU", Number: "11", Year: "2008"},
		Preamble:    &statute.Preamble{},
		Body:        body,
		Explanation: explanation,
		References:  statute.NewReferenceIndex(),
	}
}

func TestTripleStore_AddFind(t *testing.T) {
	store := NewTripleStore()
	if err := store.Add("a", "p", "b"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	_ = store.Add("a", "p", "b")
	_ = store.Add("c", "p", "b")
	if err := store.Add("", "p", "b"); err == nil {
		t.Error("expected an error for an empty subject")
	}

	if store.Count() != 2 {
		t.Errorf("Expected 2 triples, got %d", store.Count())
	}
	want := []Triple{{"a", "p", "b"}, {"c", "p", "b"}}
	if diff := cmp.Diff(want, store.Find("", "", "b")); diff != "" {
		t.Errorf("Find by object mismatch (-want +got):\n%s", diff)
	}
	if got := store.Find("a", "q", ""); len(got) != 0 {
		t.Errorf("Expected no triples for predicate q, got %v", got)
	}
}

func TestBuild(t *testing.T) {
	store, stats, err := FromDocument(sampleDocument())
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}

	wantStats := BuildStats{Sections: 3, Ayat: 2, Citations: 4, Unresolved: 2, Triples: store.Count()}
	if diff := cmp.Diff(wantStats, *stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	const doc = DefaultBaseURI + "uu-11-2008"
	cites := store.Find(doc+"/pasal_1", PropCites, "")
	wantCites := []Triple{
		{doc + "/pasal_1", PropCites, doc + "/pasal_2"},
		{doc + "/pasal_1", PropCites, doc + "/pasal_2/ayat/1"},
	}
	if diff := cmp.Diff(wantCites, cites); diff != "" {
		t.Errorf("internal citations mismatch (-want +got):\n%s", diff)
	}

	external := store.Find(doc+"/target/undang-undang-nomor-11-tahun-2008", RDFType, "")
	if len(external) != 1 || external[0].Object != ClassExternal {
		t.Errorf("Expected the external law node to be typed, got %v", external)
	}
	if got := store.Find(doc+"/penjelasan", PropExplains, doc+"/pasal_1"); len(got) != 1 {
		t.Errorf("Expected penjelasan to explain pasal_1, got %v", got)
	}
	if got := store.Find(doc+"/pasal_2", PropBab, ""); len(got) != 0 {
		t.Errorf("Expected no empty bab literal, got %v", got)
	}
}

func TestBuild_NilDocument(t *testing.T) {
	if _, err := NewGraphBuilder(NewTripleStore(), "").Build(nil); err == nil {
		t.Error("expected an error for a nil document")
	}
}

func TestTurtleSerializer(t *testing.T) {
	store, _, err := FromDocument(sampleDocument())
	if err != nil {
		t.Fatal(err)
	}
	ttl := NewTurtleSerializer().Serialize(store)

	for _, want := range []string{
		"@prefix eli: <http://data.europa.eu/eli/ontology#> .",
		"@prefix hukum: <https://hukum.dev/ontology#> .",
		"<https://hukum.dev/id/uu-11-2008/pasal_1> a hukum:Pasal ;",
		`hukum:bab "BAB I"`,
		`eli:title "Informasi dan Transaksi Elektronik"`,
	} {
		if !strings.Contains(ttl, want) {
			t.Errorf("Turtle output missing %q:\n%s", want, ttl)
		}
	}
}

func TestTurtleSerializer_CompactsDeclaredNamespaces(t *testing.T) {
	store := NewTripleStore()
	_ = store.Add("https://example.org/law/uu11", RDFType, "https://example.org/law/Statute")
	_ = store.Add("https://example.org/law/uu11", PropTitle, Literal("Judul \"ITE\"\nbaru"))

	ttl := NewTurtleSerializer(WithPrefix("ex", "https://example.org/law/")).Serialize(store)
	want := "ex:uu11 a ex:Statute ;\n    eli:title \"Judul \\\"ITE\\\"\\nbaru\" .\n"
	if !strings.Contains(ttl, want) {
		t.Errorf("Expected compacted subject group %q in:\n%s", want, ttl)
	}
}
