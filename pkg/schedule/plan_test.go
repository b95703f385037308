package schedule

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/hukum/pkg/statute"
)

func loadSample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "uu_sample.txt"))
	if err != nil {
		t.Fatalf("failed to read sample: %v", err)
	}
	return string(data)
}

func TestPlan_Strategies(t *testing.T) {
	text := loadSample(t)
	tests := []struct {
		strategy string
		wantKind FragmentKind
		wantErr  bool
	}{
		{"", FragmentSection, false},
		{"sections", FragmentSection, false},
		{"single", FragmentWindow, false},
		{"single_chunk", FragmentWindow, false},
		{"chars:500", FragmentWindow, false},
		{"by_chars_500", FragmentWindow, false},
		{"chars:0", "", true},
		{"chars:abc", "", true},
		{"words:200", FragmentWindow, false},
		{"by_words_200", FragmentWindow, false},
		{"words:0", "", true},
		{"paragraphs:3", FragmentWindow, false},
		{"by_paragraphs_3", FragmentWindow, false},
		{"paragraphs:-1", "", true},
		{"paragraphs", "", true},
		{"sentences:2", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			fragments, err := Plan(text, tt.strategy)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Plan(%q) returned no error", tt.strategy)
				}
				return
			}
			if err != nil {
				t.Fatalf("Plan(%q) error = %v", tt.strategy, err)
			}
			if len(fragments) == 0 {
				t.Fatalf("Plan(%q) returned no fragments", tt.strategy)
			}
			for _, f := range fragments {
				if f.Kind != tt.wantKind {
					t.Errorf("fragment %s kind = %s, want %s", f.ID, f.Kind, tt.wantKind)
				}
				if f.Status != StatusPending {
					t.Errorf("fragment %s status = %s, want pending", f.ID, f.Status)
				}
			}
		})
	}
}

func TestPlanSections_CoversText(t *testing.T) {
	text := loadSample(t)
	fragments := PlanSections(text)
	if fragments[0].Hint != string(statute.KindHeader) {
		t.Errorf("first hint = %q, want header", fragments[0].Hint)
	}
	assertCovers(t, text, fragments)
}

func TestPlanWindows_CoversText(t *testing.T) {
	text := loadSample(t)
	for _, size := range []int{64, 300, 2000, len(text) + 10} {
		fragments := PlanWindows(text, size)
		assertCovers(t, text, fragments)
		for _, f := range fragments {
			if len(f.Text) > size {
				t.Errorf("size %d: window %s has %d bytes", size, f.ID, len(f.Text))
			}
		}
	}
}

func TestPlanWindows_BacksOffToWhitespace(t *testing.T) {
	text := "alpha beta gamma delta"
	fragments := PlanWindows(text, 8)
	var got []string
	for _, f := range fragments {
		got = append(got, f.Text)
	}
	want := []string{"alpha ", "beta ", "gamma ", "delta"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("windows mismatch (-want +got):\n%s", diff)
	}
	if fragments[0].ID != "window_001" || fragments[3].ID != "window_004" {
		t.Errorf("ids = %v", IDs(fragments))
	}
}

func TestPlanWindows_LongWordIsCut(t *testing.T) {
	text := strings.Repeat("x", 25)
	fragments := PlanWindows(text, 10)
	if len(fragments) != 3 {
		t.Fatalf("got %d windows, want 3", len(fragments))
	}
	assertCovers(t, text, fragments)
}

func TestPlanWindows_RuneSafe(t *testing.T) {
	text := strings.Repeat("é", 10)
	for _, f := range PlanWindows(text, 3) {
		if !strings.HasPrefix(text[f.Span.Start:], "é") {
			t.Errorf("window %s starts inside a rune", f.ID)
		}
	}
}

func TestPlanSingle_Empty(t *testing.T) {
	if got := PlanSingle("  \n "); got != nil {
		t.Errorf("PlanSingle(blank) = %v, want nil", got)
	}
}

func TestPlanWords_GroupsWords(t *testing.T) {
	text := "alpha beta  gamma\ndelta epsilon"
	fragments := PlanWords(text, 2)
	var got []string
	for _, f := range fragments {
		got = append(got, f.Text)
	}
	want := []string{"alpha beta  ", "gamma\ndelta ", "epsilon"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("word groups mismatch (-want +got):\n%s", diff)
	}
	if fragments[0].ID != "words_001" || fragments[2].ID != "words_003" {
		t.Errorf("ids = %v", IDs(fragments))
	}
	assertCovers(t, text, fragments)
}

func TestPlanWords_CoversText(t *testing.T) {
	text := loadSample(t)
	for _, n := range []int{1, 7, 150, len(text)} {
		fragments := PlanWords(text, n)
		assertCovers(t, text, fragments)
		for _, f := range fragments[:len(fragments)-1] {
			if got := len(strings.Fields(f.Text)); got != n {
				t.Errorf("n %d: fragment %s has %d words", n, f.ID, got)
			}
		}
	}
}

func TestPlanParagraphs_GroupsParagraphs(t *testing.T) {
	text := "\nSatu.\n\nDua\nlanjut.\n\n\n  Tiga.\n\nEmpat."
	tests := []struct {
		n    int
		want []string
	}{
		{1, []string{"\nSatu.\n\n", "Dua\nlanjut.\n\n\n  ", "Tiga.\n\n", "Empat."}},
		{2, []string{"\nSatu.\n\nDua\nlanjut.\n\n\n  ", "Tiga.\n\nEmpat."}},
		{4, []string{text}},
		{10, []string{text}},
	}
	for _, tt := range tests {
		fragments := PlanParagraphs(text, tt.n)
		var got []string
		for _, f := range fragments {
			got = append(got, f.Text)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("n %d: paragraph groups mismatch (-want +got):\n%s", tt.n, diff)
		}
		assertCovers(t, text, fragments)
	}
}

func TestPlanParagraphs_CoversText(t *testing.T) {
	text := loadSample(t)
	for _, n := range []int{1, 3, 1000} {
		assertCovers(t, text, PlanParagraphs(text, n))
	}
	if got := PlanParagraphs(" \n\n ", 2); got != nil {
		t.Errorf("PlanParagraphs(blank) = %v, want nil", got)
	}
	if got := PlanWords("\t", 2); got != nil {
		t.Errorf("PlanWords(blank) = %v, want nil", got)
	}
}

func assertCovers(t *testing.T, text string, fragments []*Fragment) {
	t.Helper()
	if len(fragments) == 0 {
		t.Fatal("no fragments")
	}
	pos := 0
	var b strings.Builder
	for _, f := range fragments {
		if f.Span.Start != pos {
			t.Fatalf("fragment %s starts at %d, want %d", f.ID, f.Span.Start, pos)
		}
		if text[f.Span.Start:f.Span.End] != f.Text {
			t.Fatalf("fragment %s text does not match its span", f.ID)
		}
		b.WriteString(f.Text)
		pos = f.Span.End
	}
	if pos != len(text) {
		t.Errorf("fragments end at %d, want %d", pos, len(text))
	}
	if b.String() != text {
		t.Error("fragments do not reassemble the text")
	}
}
