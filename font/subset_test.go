package font

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildTestFont assembles a minimal TrueType program with four glyphs:
// 0 empty, 1 and 2 simple, 3 a composite using glyph 1.
func buildTestFont(t *testing.T) (data []byte, glyphs [][]byte) {
	t.Helper()

	simple := func(marker byte) []byte {
		g := make([]byte, 12)
		binary.BigEndian.PutUint16(g[0:2], 1) // one contour
		g[11] = marker
		return g
	}
	glyph1 := simple(0xAA)
	glyph2 := simple(0xBB)

	composite := make([]byte, 18)
	binary.BigEndian.PutUint16(composite[0:2], 0xFFFF) // numberOfContours -1
	binary.BigEndian.PutUint16(composite[10:12], flagArgsAreWords)
	binary.BigEndian.PutUint16(composite[12:14], 1) // component glyph 1

	glyf := append(append(append([]byte{}, glyph1...), glyph2...), composite...)

	head := make([]byte, 54) // indexToLocFormat 0: short loca
	maxp := make([]byte, 6)
	binary.BigEndian.PutUint32(maxp[0:4], 0x00010000)
	binary.BigEndian.PutUint16(maxp[4:6], 4)

	loca := make([]byte, 10)
	for i, off := range []uint16{0, 0, 6, 12, 21} { // byte offsets halved
		binary.BigEndian.PutUint16(loca[2*i:], off)
	}

	tables := map[string][]byte{
		"head": head,
		"maxp": maxp,
		"loca": loca,
		"glyf": glyf,
	}
	font, err := assemble(tables, []string{"head", "maxp", "loca", "glyf"})
	if err != nil {
		t.Fatalf("failed to assemble test font: %v", err)
	}
	return font, [][]byte{nil, glyph1, glyph2, composite}
}

// TestSubsetKeepsRequestedGlyphs tests outline retention and removal
func TestSubsetKeepsRequestedGlyphs(t *testing.T) {
	data, glyphs := buildTestFont(t)

	subset, err := Subset(data, []uint16{0, 1})
	if err != nil {
		t.Fatalf("subset failed: %v", err)
	}

	tables, _, err := parseTableDirectory(subset)
	if err != nil {
		t.Fatalf("failed to parse subset: %v", err)
	}

	// The subset always uses long loca.
	if got := binary.BigEndian.Uint16(tables["head"][50:52]); got != 1 {
		t.Errorf("expected long loca format, got %d", got)
	}
	offsets, err := parseLoca(tables["loca"], 4, true)
	if err != nil {
		t.Fatalf("failed to parse loca: %v", err)
	}

	glyf := tables["glyf"]
	if !bytes.Equal(glyf[offsets[1]:offsets[2]], glyphs[1]) {
		t.Error("expected glyph 1 outline to survive")
	}
	if offsets[2] != offsets[3] {
		t.Error("expected glyph 2 outline to be emptied")
	}
	if offsets[3] != offsets[4] {
		t.Error("expected glyph 3 outline to be emptied")
	}
}

// TestSubsetFollowsComposites tests the component closure
func TestSubsetFollowsComposites(t *testing.T) {
	data, glyphs := buildTestFont(t)

	subset, err := Subset(data, []uint16{0, 3})
	if err != nil {
		t.Fatalf("subset failed: %v", err)
	}

	tables, _, err := parseTableDirectory(subset)
	if err != nil {
		t.Fatalf("failed to parse subset: %v", err)
	}
	offsets, err := parseLoca(tables["loca"], 4, true)
	if err != nil {
		t.Fatalf("failed to parse loca: %v", err)
	}

	glyf := tables["glyf"]
	if !bytes.Equal(glyf[offsets[3]:offsets[4]], glyphs[3]) {
		t.Error("expected the composite outline to survive")
	}
	if !bytes.Equal(glyf[offsets[1]:offsets[2]], glyphs[1]) {
		t.Error("expected the component glyph to be pulled in")
	}
	if offsets[1] != offsets[2]-12 || offsets[2] != offsets[3] {
		t.Error("expected glyph 2 to be emptied")
	}
}

// TestSubsetChecksums tests that every table record carries a valid checksum
func TestSubsetChecksums(t *testing.T) {
	data, _ := buildTestFont(t)

	subset, err := Subset(data, []uint16{0, 1, 2, 3})
	if err != nil {
		t.Fatalf("subset failed: %v", err)
	}

	numTables := int(binary.BigEndian.Uint16(subset[4:6]))
	for i := 0; i < numTables; i++ {
		rec := subset[12+16*i:]
		tag := string(rec[0:4])
		want := binary.BigEndian.Uint32(rec[4:8])
		offset := binary.BigEndian.Uint32(rec[8:12])
		length := binary.BigEndian.Uint32(rec[12:16])

		table := subset[offset : offset+length]
		got := tableChecksum(table)
		if tag == "head" {
			// checkSumAdjustment is patched after the directory checksum
			// is recorded; zero it for verification.
			patched := make([]byte, len(table))
			copy(patched, table)
			binary.BigEndian.PutUint32(patched[8:12], 0)
			got = tableChecksum(patched)
		}
		if got != want {
			t.Errorf("table %q: expected checksum %08x, got %08x", tag, want, got)
		}
	}
}

// TestSubsetErrors tests structural validation
func TestSubsetErrors(t *testing.T) {
	if _, err := Subset([]byte{0, 1}, []uint16{0}); err == nil {
		t.Error("expected error for a truncated program")
	}

	data, _ := buildTestFont(t)
	truncated := data[:len(data)-20]
	if _, err := Subset(truncated, []uint16{0}); err == nil {
		t.Error("expected error for a program with a short table")
	}
}
