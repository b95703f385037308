package extract

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/hukum/pkg/statute"
)

func TestDetectMetadata(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   statute.Metadata
	}{
		{
			name:   "undang-undang",
			header: "UNDANG-UNDANG REPUBLIK INDONESIA\nNOMOR 11 TAHUN 2008\nTENTANG\nINFORMASI DAN TRANSAKSI ELEKTRONIK\n\nDENGAN RAHMAT TUHAN YANG MAHA ESA\n\nPRESIDEN REPUBLIK INDONESIA,",
			want: statute.Metadata{
				Title:     "Undang-Undang Nomor 11 Tahun 2008 tentang INFORMASI DAN TRANSAKSI ELEKTRONIK",
				Type:      "UU",
				Number:    "11",
				Year:      "2008",
				Subject:   "INFORMASI DAN TRANSAKSI ELEKTRONIK",
				Authority: "PRESIDEN REPUBLIK INDONESIA",
			},
		},
		{
			name:   "peraturan pemerintah with inline subject",
			header: "PERATURAN PEMERINTAH REPUBLIK INDONESIA\nNOMOR 71 TAHUN 2019\nTENTANG PENYELENGGARAAN SISTEM\nDAN TRANSAKSI ELEKTRONIK",
			want: statute.Metadata{
				Title:   "Peraturan Pemerintah Nomor 71 Tahun 2019 tentang PENYELENGGARAAN SISTEM DAN TRANSAKSI ELEKTRONIK",
				Type:    "PP",
				Number:  "71",
				Year:    "2019",
				Subject: "PENYELENGGARAAN SISTEM DAN TRANSAKSI ELEKTRONIK",
			},
		},
		{
			name:   "ministerial regulation",
			header: "PERATURAN MENTERI KOMUNIKASI DAN INFORMATIKA\nNOMOR 5 TAHUN 2020\nTENTANG\nPENYELENGGARA SISTEM ELEKTRONIK LINGKUP PRIVAT\nDENGAN RAHMAT TUHAN YANG MAHA ESA\nMENTERI KOMUNIKASI DAN INFORMATIKA REPUBLIK INDONESIA,",
			want: statute.Metadata{
				Title:     "Peraturan Menteri Nomor 5 Tahun 2020 tentang PENYELENGGARA SISTEM ELEKTRONIK LINGKUP PRIVAT",
				Type:      "Permen",
				Number:    "5",
				Year:      "2020",
				Subject:   "PENYELENGGARA SISTEM ELEKTRONIK LINGKUP PRIVAT",
				Authority: "MENTERI KOMUNIKASI DAN INFORMATIKA REPUBLIK INDONESIA",
			},
		},
		{
			name:   "no recognizable header",
			header: "sebuah catatan lepas",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectMetadata(tt.header)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DetectMetadata() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	a := Analyze(loadSampleText(t))

	if a.DocumentType != "UU" {
		t.Errorf("DocumentType = %q, want UU", a.DocumentType)
	}
	if a.PasalCount != 5 {
		t.Errorf("PasalCount = %d, want 5", a.PasalCount)
	}
	if a.BabCount != 2 {
		t.Errorf("BabCount = %d, want 2", a.BabCount)
	}
	if !a.HasPenjelasan {
		t.Error("HasPenjelasan = false, want true")
	}
	want := []statute.Kind{statute.KindMenimbang, statute.KindMengingat, statute.KindMemutuskan, statute.KindPenjelasan}
	if diff := cmp.Diff(want, a.SectionsFound); diff != "" {
		t.Errorf("SectionsFound mismatch (-want +got):\n%s", diff)
	}
	if a.Complexity != ComplexityMedium {
		t.Errorf("Complexity = %s, want medium", a.Complexity)
	}
	if a.RecommendedStrategy != "single" {
		t.Errorf("RecommendedStrategy = %q, want single", a.RecommendedStrategy)
	}
}

func TestAnalyze_Complexity(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 60; i++ {
		b.WriteString("Pasal " + strconv.Itoa(i) + "\nIsi pasal.\n")
	}
	if got := Analyze(b.String()).Complexity; got != ComplexityHigh {
		t.Errorf("Complexity = %s, want high", got)
	}
	if got := Analyze("Pasal 1\nIsi.").Complexity; got != ComplexityLow {
		t.Errorf("Complexity = %s, want low", got)
	}
}

func TestParse_SampleStatute(t *testing.T) {
	ps, err := Parse(context.Background(), loadSampleText(t), Options{Source: "uu_sample.txt"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if ps.Metadata == nil || ps.Metadata.Number != "11" || ps.Metadata.Source != "uu_sample.txt" {
		t.Errorf("metadata = %+v", ps.Metadata)
	}
	if ps.Preamble == nil || ps.Preamble.Menimbang == nil || ps.Preamble.Mengingat == nil || ps.Preamble.Memutuskan == nil {
		t.Fatalf("preamble incomplete: %+v", ps.Preamble)
	}
	if got := len(ps.Preamble.Menimbang.Items().Items); got != 3 {
		t.Errorf("menimbang items = %d, want 3", got)
	}
	if len(ps.Body) != 5 {
		t.Errorf("body sections = %d, want 5", len(ps.Body))
	}
	if ps.Closing == nil || !strings.Contains(ps.Closing.Text, "Disahkan di Jakarta") {
		t.Errorf("closing = %+v", ps.Closing)
	}
	if ps.Explanation == nil || ps.Explanation.Penjelasan() == nil {
		t.Errorf("explanation = %+v", ps.Explanation)
	}
}

func TestParse_RepeatedPreambleIsReported(t *testing.T) {
	text := "Menimbang :\na. bahwa satu;\nMenimbang :\na. bahwa dua;\nPasal 1\nIsi."
	ps, err := Parse(context.Background(), text, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := ps.Preamble.Menimbang.Items().Items[0].Content; got != "bahwa satu;" {
		t.Errorf("kept menimbang = %q, want the first", got)
	}
	if !hasCode(ps.Diagnostics, statute.CodeMergeConflict) {
		t.Errorf("expected merge_conflict diagnostic, got %v", ps.Diagnostics)
	}
}
