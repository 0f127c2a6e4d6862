package font

import (
	"context"
	"fmt"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

// standardNames is the fixed set of fonts every conforming reader provides.
var standardNames = map[string]bool{
	"Helvetica":             true,
	"Helvetica-Bold":        true,
	"Helvetica-Oblique":     true,
	"Helvetica-BoldOblique": true,
	"Courier":               true,
	"Courier-Bold":          true,
	"Courier-Oblique":       true,
	"Courier-BoldOblique":   true,
	"Times-Roman":           true,
	"Times-Bold":            true,
	"Times-Italic":          true,
	"Times-BoldItalic":      true,
	"Symbol":                true,
	"ZapfDingbats":          true,
}

// IsStandard reports whether name is one of the fourteen built-in fonts.
func IsStandard(name string) bool {
	return standardNames[name]
}

// Standard embeds one of the fourteen built-in fonts. No font program is
// written; the dictionary names the font and the reader supplies it.
type Standard struct {
	Name string
}

// Embed writes the Type1 font dictionary at ref.
func (s *Standard) Embed(ctx context.Context, st *store.Store, ref core.IndirectRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !IsStandard(s.Name) {
		return fmt.Errorf("%q is not a standard font", s.Name)
	}

	dict := core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name(s.Name),
	}
	// Symbolic fonts carry their own built-in encoding.
	if s.Name != "Symbol" && s.Name != "ZapfDingbats" {
		dict.Set("Encoding", core.Name("WinAnsiEncoding"))
	}

	st.Put(ref, dict)
	return nil
}
