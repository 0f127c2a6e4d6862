package font

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

// TrueType embeds a TrueType font program. With Used nil the full program is
// embedded; otherwise the program is subset to the glyphs those runes need
// and the font is named with a subset tag prefix.
type TrueType struct {
	Data   []byte
	Parser Parser
	Used   map[rune]bool
}

// Embed writes the font dictionary, descriptor, and font program at ref.
func (t *TrueType) Embed(ctx context.Context, st *store.Store, ref core.IndirectRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Parser == nil {
		return fmt.Errorf("no font parser available")
	}

	prog, err := t.Parser.Parse(t.Data)
	if err != nil {
		return err
	}
	unitsPerEm := prog.UnitsPerEm()
	baseFont := prog.PostScriptName()

	program := t.Data
	if t.Used != nil {
		glyphs := t.usedGlyphs(prog)
		subset, err := Subset(t.Data, glyphs)
		if err != nil {
			return fmt.Errorf("failed to subset %s: %w", baseFont, err)
		}
		program = subset
		baseFont = subsetTag(glyphs) + "+" + baseFont
	}

	fileStream, err := core.NewFlateStream(core.Dict{
		"Length1": core.Int(len(program)),
	}, program)
	if err != nil {
		return err
	}
	fileRef := st.Register(fileStream)

	m := prog.Metrics()
	descriptor := core.Dict{
		"Type":     core.Name("FontDescriptor"),
		"FontName": core.Name(baseFont),
		"Flags":    core.Int(32), // nonsymbolic
		"FontBBox": core.Array{
			core.Int(toGlyphSpace(m.BBox[0], unitsPerEm)),
			core.Int(toGlyphSpace(m.BBox[1], unitsPerEm)),
			core.Int(toGlyphSpace(m.BBox[2], unitsPerEm)),
			core.Int(toGlyphSpace(m.BBox[3], unitsPerEm)),
		},
		"ItalicAngle": core.Int(0),
		"Ascent":      core.Int(toGlyphSpace(m.Ascent, unitsPerEm)),
		"Descent":     core.Int(toGlyphSpace(m.Descent, unitsPerEm)),
		"CapHeight":   core.Int(toGlyphSpace(m.CapHeight, unitsPerEm)),
		"StemV":       core.Int(80),
		"FontFile2":   fileRef,
	}
	descriptorRef := st.Register(descriptor)

	firstChar, lastChar := 32, 255
	widths := make(core.Array, 0, lastChar-firstChar+1)
	for code := firstChar; code <= lastChar; code++ {
		w := 0
		if glyph, ok := prog.GlyphIndex(winAnsiRune(byte(code))); ok {
			adv, err := prog.GlyphAdvance(glyph)
			if err != nil {
				return err
			}
			w = toGlyphSpace(adv, unitsPerEm)
		}
		widths = append(widths, core.Int(w))
	}

	st.Put(ref, core.Dict{
		"Type":           core.Name("Font"),
		"Subtype":        core.Name("TrueType"),
		"BaseFont":       core.Name(baseFont),
		"Encoding":       core.Name("WinAnsiEncoding"),
		"FirstChar":      core.Int(firstChar),
		"LastChar":       core.Int(lastChar),
		"Widths":         widths,
		"FontDescriptor": descriptorRef,
	})
	return nil
}

// usedGlyphs returns the sorted glyph set for the tracked runes. Glyph 0
// (.notdef) is always retained.
func (t *TrueType) usedGlyphs(prog Program) []uint16 {
	set := map[uint16]bool{0: true}
	for r := range t.Used {
		if glyph, ok := prog.GlyphIndex(r); ok {
			set[glyph] = true
		}
	}
	glyphs := make([]uint16, 0, len(set))
	for g := range set {
		glyphs = append(glyphs, g)
	}
	sort.Slice(glyphs, func(i, j int) bool { return glyphs[i] < glyphs[j] })
	return glyphs
}

// subsetTag derives the six-uppercase-letter prefix from the glyph set, so
// the same subset always produces the same name.
func subsetTag(glyphs []uint16) string {
	h := md5.New()
	for _, g := range glyphs {
		h.Write([]byte{byte(g >> 8), byte(g)})
	}
	sum := h.Sum(nil)
	tag := make([]byte, 6)
	for i := range tag {
		tag[i] = 'A' + sum[i]%26
	}
	return string(tag)
}

// winAnsiHigh maps the 0x80-0x9F range of WinAnsiEncoding, where it departs
// from Latin-1.
var winAnsiHigh = map[byte]rune{
	0x80: '€', 0x82: '‚', 0x83: 'ƒ', 0x84: '„',
	0x85: '…', 0x86: '†', 0x87: '‡', 0x88: 'ˆ',
	0x89: '‰', 0x8A: 'Š', 0x8B: '‹', 0x8C: 'Œ',
	0x8E: 'Ž', 0x91: '‘', 0x92: '’', 0x93: '“',
	0x94: '”', 0x95: '•', 0x96: '–', 0x97: '—',
	0x98: '˜', 0x99: '™', 0x9A: 'š', 0x9B: '›',
	0x9C: 'œ', 0x9E: 'ž', 0x9F: 'Ÿ',
}

// winAnsiRune maps a WinAnsi character code to its Unicode value.
func winAnsiRune(code byte) rune {
	if r, ok := winAnsiHigh[code]; ok {
		return r
	}
	return rune(code)
}
