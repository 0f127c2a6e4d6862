package font

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// SFNTParser reads TrueType and OpenType font programs. It implements
// [Parser].
type SFNTParser struct{}

// Parse parses an SFNT font program.
func (SFNTParser) Parse(data []byte) (Program, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font program: %w", err)
	}

	p := &sfntProgram{font: f}

	// Querying at ppem equal to unitsPerEm makes one pixel one font unit,
	// so fixed-point results convert back by shifting.
	p.ppem = fixed.I(int(f.UnitsPerEm()))

	name, err := f.Name(&p.buf, sfnt.NameIDPostScript)
	if err != nil {
		return nil, fmt.Errorf("font program has no PostScript name: %w", err)
	}
	p.name = name

	metrics, err := f.Metrics(&p.buf, p.ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("failed to read font metrics: %w", err)
	}
	bounds, err := f.Bounds(&p.buf, p.ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("failed to read font bounds: %w", err)
	}

	// sfnt's y axis increases downward; flip it for PDF conventions.
	p.metrics = Metrics{
		Ascent:    metrics.Ascent.Round(),
		Descent:   -metrics.Descent.Round(),
		CapHeight: metrics.CapHeight.Round(),
		XHeight:   metrics.XHeight.Round(),
		BBox: [4]int{
			bounds.Min.X.Round(),
			-bounds.Max.Y.Round(),
			bounds.Max.X.Round(),
			-bounds.Min.Y.Round(),
		},
	}
	return p, nil
}

type sfntProgram struct {
	font    *sfnt.Font
	buf     sfnt.Buffer
	ppem    fixed.Int26_6
	name    string
	metrics Metrics
}

func (p *sfntProgram) PostScriptName() string { return p.name }

func (p *sfntProgram) UnitsPerEm() int { return int(p.font.UnitsPerEm()) }

func (p *sfntProgram) NumGlyphs() int { return p.font.NumGlyphs() }

func (p *sfntProgram) Metrics() Metrics { return p.metrics }

func (p *sfntProgram) GlyphIndex(r rune) (uint16, bool) {
	idx, err := p.font.GlyphIndex(&p.buf, r)
	if err != nil || idx == 0 {
		return 0, false
	}
	return uint16(idx), true
}

func (p *sfntProgram) GlyphAdvance(glyph uint16) (int, error) {
	adv, err := p.font.GlyphAdvance(&p.buf, sfnt.GlyphIndex(glyph), p.ppem, font.HintingNone)
	if err != nil {
		return 0, fmt.Errorf("failed to read advance for glyph %d: %w", glyph, err)
	}
	return adv.Round(), nil
}
