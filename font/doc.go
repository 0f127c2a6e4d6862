// Package font embeds fonts into a PDF object store.
//
// An [Embedder] writes a complete font object graph at a reference that was
// reserved earlier, so content streams can cite a font before its bytes
// exist. Two kinds are provided:
//
//   - [Standard] - one of the fourteen built-in fonts every PDF viewer
//     carries; embedding writes only a small Type1 dictionary.
//   - [TrueType] - a custom font program embedded in full or subset to the
//     glyphs actually used.
//
// # Font Parsing
//
// Embedding a custom font requires reading its program: PostScript name,
// units per em, metrics, and glyph advances. That capability is the [Parser]
// interface; [SFNTParser] provides it for TrueType/OpenType programs.
// Keeping the parser injectable lets callers substitute their own for
// formats this package does not read.
//
// # Subsetting
//
// [Subset] rebuilds a TrueType program keeping outlines only for the given
// glyphs, following composite glyphs to the components they require. Subset
// fonts are named with a six-letter tag prefix ("ABCDEF+Name") as readers
// expect.
package font
