package pattern

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want LineKind
	}{
		{"BAB I", LineKind{Tag: BabHeader, Label: "I"}},
		{"bab xiv KETENTUAN PIDANA", LineKind{Tag: BabHeader, Label: "XIV", Rest: "KETENTUAN PIDANA"}},
		{"Bagian Kesatu", LineKind{Tag: BagianHeader, Label: "Kesatu"}},
		{"BAGIAN KEDUA Umum", LineKind{Tag: BagianHeader, Label: "KEDUA", Rest: "Umum"}},
		{"Pasal 12", LineKind{Tag: PasalHeader, Number: 12}},
		{"  PASAL 3.  ", LineKind{Tag: PasalHeader, Number: 3}},
		{"(2) Setiap orang berhak.", LineKind{Tag: AyatMarker, Number: 2, Rest: "Setiap orang berhak."}},
		{"a. bahwa pembangunan;", LineKind{Tag: HurufMarker, Letter: "a", Rest: "bahwa pembangunan;"}},
		{"b.", LineKind{Tag: HurufMarker, Letter: "b"}},
		{"3. Sistem Elektronik adalah", LineKind{Tag: AngkaMarker, Number: 3, Rest: "Sistem Elektronik adalah"}},
		{"Menimbang", LineKind{Tag: Menimbang}},
		{"Menimbang :", LineKind{Tag: Menimbang}},
		{"Mengingat:", LineKind{Tag: Mengingat}},
		{"MEMUTUSKAN:", LineKind{Tag: Memutuskan}},
		{"M E M U T U S K A N :", LineKind{Tag: Memutuskan}},
		{"PENJELASAN", LineKind{Tag: Penjelasan}},
		{"", LineKind{Tag: Plain}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := Classify(tt.line); got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestClassify_PlainLines(t *testing.T) {
	lines := []string{
		"Pasal 5 ayat (1) dan Pasal 20 Undang-Undang Dasar",
		"bagian dari masyarakat informasi dunia",
		"1.000.000 (satu juta rupiah)",
		"a.n. Menteri",
		"ab. singkatan",
		"Menimbang bahwa perlu",
		"PENJELASAN ATAS",
		"Dalam Undang-Undang ini yang dimaksud dengan:",
	}
	for _, line := range lines {
		if got := Classify(line); got.Tag != Plain {
			t.Errorf("Classify(%q).Tag = %s, want plain", line, got.Tag)
		}
	}
}

func TestClassify_OpensSection(t *testing.T) {
	opening := map[string]bool{
		"Menimbang :":  true,
		"Mengingat :":  true,
		"MEMUTUSKAN:":  true,
		"Pasal 1":      true,
		"PENJELASAN":   true,
		"BAB I":        false,
		"(1) isi":      false,
		"a. huruf":     false,
		"teks biasa":   false,
		"Bagian Kedua": false,
	}
	for line, want := range opening {
		if got := Classify(line).OpensSection(); got != want {
			t.Errorf("Classify(%q).OpensSection() = %v, want %v", line, got, want)
		}
	}
}

func TestSplitInline(t *testing.T) {
	head, rest, offset, ok := SplitInline("Menimbang : a. bahwa pembangunan nasional;")
	if !ok {
		t.Fatal("SplitInline() ok = false")
	}
	if head != "Menimbang :" || rest != "a. bahwa pembangunan nasional;" || offset != 12 {
		t.Errorf("SplitInline() = %q, %q, %d", head, rest, offset)
	}

	if _, _, _, ok := SplitInline("Menimbang :"); ok {
		t.Error("bare keyword line should not split")
	}
	if _, _, _, ok := SplitInline("MEMUTUSKAN: Menetapkan"); ok {
		t.Error("only Menimbang and Mengingat carry inline items")
	}
}
