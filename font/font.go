package font

import (
	"context"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

// Embedder writes a font's object graph into the store at a reference the
// caller reserved earlier. It is invoked exactly once per font, at flush
// time, after all page content referring to the font has been written.
type Embedder interface {
	Embed(ctx context.Context, st *store.Store, ref core.IndirectRef) error
}

// Parser reads a font program. Implementations must not retain data beyond
// the returned Program's lifetime assumptions they document.
type Parser interface {
	Parse(data []byte) (Program, error)
}

// Program is a parsed font program. Lengths are in font units; callers scale
// by 1000/UnitsPerEm to obtain the glyph-space values PDF dictionaries use.
type Program interface {
	// PostScriptName returns the program's PostScript name, used as the
	// /BaseFont value.
	PostScriptName() string

	// UnitsPerEm returns the design grid resolution, typically 1000 or 2048.
	UnitsPerEm() int

	// NumGlyphs returns the number of glyphs in the program.
	NumGlyphs() int

	// GlyphIndex maps a rune to its glyph, reporting false for runes the
	// program has no glyph for.
	GlyphIndex(r rune) (uint16, bool)

	// GlyphAdvance returns a glyph's horizontal advance in font units.
	GlyphAdvance(glyph uint16) (int, error)

	// Metrics returns the program's vertical metrics and bounding box in
	// font units.
	Metrics() Metrics
}

// Metrics holds font-wide vertical metrics in font units.
type Metrics struct {
	Ascent    int
	Descent   int // negative below the baseline
	CapHeight int
	XHeight   int
	BBox      [4]int // xMin, yMin, xMax, yMax
}

// toGlyphSpace converts a font-unit length to PDF glyph space (1000 per em).
func toGlyphSpace(v, unitsPerEm int) int {
	if unitsPerEm == 0 {
		return v
	}
	return v * 1000 / unitsPerEm
}
