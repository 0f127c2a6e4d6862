package font

import (
	"context"
	"strings"
	"testing"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

// mockProgram is a fixed-metrics Program for embed tests
type mockProgram struct {
	name       string
	unitsPerEm int
	glyphs     map[rune]uint16
	advances   map[uint16]int
}

func (m *mockProgram) PostScriptName() string { return m.name }
func (m *mockProgram) UnitsPerEm() int        { return m.unitsPerEm }
func (m *mockProgram) NumGlyphs() int         { return len(m.advances) + 1 }

func (m *mockProgram) GlyphIndex(r rune) (uint16, bool) {
	g, ok := m.glyphs[r]
	return g, ok
}

func (m *mockProgram) GlyphAdvance(glyph uint16) (int, error) {
	return m.advances[glyph], nil
}

func (m *mockProgram) Metrics() Metrics {
	return Metrics{
		Ascent:    1600,
		Descent:   -400,
		CapHeight: 1400,
		XHeight:   1000,
		BBox:      [4]int{-200, -400, 2000, 1600},
	}
}

// mockParser returns a canned Program regardless of input
type mockParser struct {
	program Program
}

func (m *mockParser) Parse(data []byte) (Program, error) {
	return m.program, nil
}

// TestTrueTypeEmbedFull tests the full-program embed path
func TestTrueTypeEmbedFull(t *testing.T) {
	program := &mockProgram{
		name:       "TestSans",
		unitsPerEm: 2000,
		glyphs:     map[rune]uint16{' ': 1, 'A': 2, '€': 3},
		advances:   map[uint16]int{1: 500, 2: 1200, 3: 1400},
	}
	data := []byte("font program bytes")

	st := store.New()
	ref := st.NextRef()
	embedder := &TrueType{Data: data, Parser: &mockParser{program}}
	if err := embedder.Embed(context.Background(), st, ref); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	dict, ok := st.Lookup(ref).(core.Dict)
	if !ok {
		t.Fatalf("expected font Dict, got %T", st.Lookup(ref))
	}
	if name, _ := dict.GetName("Subtype"); name != "TrueType" {
		t.Errorf("expected Subtype=TrueType, got %s", name)
	}
	if name, _ := dict.GetName("BaseFont"); name != "TestSans" {
		t.Errorf("expected BaseFont=TestSans, got %s", name)
	}
	if name, _ := dict.GetName("Encoding"); name != "WinAnsiEncoding" {
		t.Errorf("expected WinAnsiEncoding, got %s", name)
	}
	if first, _ := dict.GetInt("FirstChar"); first != 32 {
		t.Errorf("expected FirstChar 32, got %d", first)
	}
	if last, _ := dict.GetInt("LastChar"); last != 255 {
		t.Errorf("expected LastChar 255, got %d", last)
	}

	// Widths scale from font units to glyph space.
	widths, ok := dict.GetArray("Widths")
	if !ok || len(widths) != 224 {
		t.Fatalf("expected 224 widths, got %d", len(widths))
	}
	if w := widths[0]; w != core.Int(250) { // space: 500 * 1000/2000
		t.Errorf("expected space width 250, got %v", w)
	}
	if w := widths['A'-32]; w != core.Int(600) {
		t.Errorf("expected A width 600, got %v", w)
	}
	if w := widths[0x80-32]; w != core.Int(700) { // euro sign via WinAnsi
		t.Errorf("expected euro width 700, got %v", w)
	}
	if w := widths['B'-32]; w != core.Int(0) { // no glyph
		t.Errorf("expected missing glyph width 0, got %v", w)
	}

	descRef, ok := dict.GetIndirectRef("FontDescriptor")
	if !ok {
		t.Fatal("expected a FontDescriptor reference")
	}
	desc, ok := st.Lookup(descRef).(core.Dict)
	if !ok {
		t.Fatalf("expected descriptor Dict, got %T", st.Lookup(descRef))
	}
	if ascent, _ := desc.GetInt("Ascent"); ascent != 800 {
		t.Errorf("expected Ascent 800, got %d", ascent)
	}
	if descent, _ := desc.GetInt("Descent"); descent != -200 {
		t.Errorf("expected Descent -200, got %d", descent)
	}

	fileRef, ok := desc.GetIndirectRef("FontFile2")
	if !ok {
		t.Fatal("expected a FontFile2 reference")
	}
	stream, ok := st.Lookup(fileRef).(*core.Stream)
	if !ok {
		t.Fatalf("expected a font program stream, got %T", st.Lookup(fileRef))
	}
	decoded, err := stream.Decode()
	if err != nil {
		t.Fatalf("failed to decode font program: %v", err)
	}
	if string(decoded) != string(data) {
		t.Error("expected the full program to be embedded unmodified")
	}
	if length1, _ := stream.Dict.GetInt("Length1"); int(length1) != len(data) {
		t.Errorf("expected Length1 %d, got %d", len(data), length1)
	}
}

// TestTrueTypeEmbedSubset tests the subset path with a real font program
func TestTrueTypeEmbedSubset(t *testing.T) {
	data, _ := buildTestFont(t)
	program := &mockProgram{
		name:       "TestSans",
		unitsPerEm: 1000,
		glyphs:     map[rune]uint16{'A': 1, 'B': 2, 'C': 3},
		advances:   map[uint16]int{1: 600, 2: 600, 3: 700},
	}

	st := store.New()
	ref := st.NextRef()
	embedder := &TrueType{
		Data:   data,
		Parser: &mockParser{program},
		Used:   map[rune]bool{'A': true},
	}
	if err := embedder.Embed(context.Background(), st, ref); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	dict := st.Lookup(ref).(core.Dict)
	base, _ := dict.GetName("BaseFont")
	name := string(base)
	if len(name) != len("ABCDEF+TestSans") || name[6] != '+' || !strings.HasSuffix(name, "+TestSans") {
		t.Fatalf("expected a six-letter subset tag prefix, got %s", name)
	}
	for _, c := range name[:6] {
		if c < 'A' || c > 'Z' {
			t.Errorf("expected an uppercase tag letter, got %q", c)
		}
	}

	descRef, _ := dict.GetIndirectRef("FontDescriptor")
	desc := st.Lookup(descRef).(core.Dict)
	if fontName, _ := desc.GetName("FontName"); fontName != base {
		t.Errorf("expected descriptor FontName %s, got %s", base, fontName)
	}

	fileRef, _ := desc.GetIndirectRef("FontFile2")
	stream := st.Lookup(fileRef).(*core.Stream)
	subset, err := stream.Decode()
	if err != nil {
		t.Fatalf("failed to decode subset program: %v", err)
	}

	// Only glyphs 0 and 1 are kept; glyph 2's outline is emptied.
	tables, _, err := parseTableDirectory(subset)
	if err != nil {
		t.Fatalf("failed to parse subset program: %v", err)
	}
	offsets, err := parseLoca(tables["loca"], 4, true)
	if err != nil {
		t.Fatalf("failed to parse loca: %v", err)
	}
	if offsets[1] == offsets[2] {
		t.Error("expected glyph 1 to keep its outline")
	}
	if offsets[2] != offsets[3] {
		t.Error("expected glyph 2 to be emptied")
	}
}

// TestTrueTypeEmbedNoParser tests the missing-parser guard
func TestTrueTypeEmbedNoParser(t *testing.T) {
	st := store.New()
	ref := st.NextRef()

	embedder := &TrueType{Data: []byte("bytes")}
	if err := embedder.Embed(context.Background(), st, ref); err == nil {
		t.Error("expected error with no parser configured")
	}
	if st.Has(ref) {
		t.Error("expected the reference to stay unset")
	}
}

// TestSubsetTagStable tests that the tag depends only on the glyph set
func TestSubsetTagStable(t *testing.T) {
	a := subsetTag([]uint16{0, 4, 9})
	b := subsetTag([]uint16{0, 4, 9})
	if a != b {
		t.Errorf("expected a stable tag, got %s and %s", a, b)
	}
	if c := subsetTag([]uint16{0, 4, 10}); c == a {
		t.Error("expected a different glyph set to produce a different tag")
	}
}

// TestWinAnsiRune tests the 0x80-0x9F departures from Latin-1
func TestWinAnsiRune(t *testing.T) {
	tests := []struct {
		code byte
		want rune
	}{
		{0x41, 'A'},
		{0x80, '€'},
		{0x99, '™'},
		{0xE9, 'é'},
	}
	for _, tt := range tests {
		if got := winAnsiRune(tt.code); got != tt.want {
			t.Errorf("winAnsiRune(%#x): expected %q, got %q", tt.code, tt.want, got)
		}
	}
}
