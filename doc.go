// Package vellum assembles PDF documents: create or load a file, add and
// remove pages, embed fonts and images, copy pages between documents, and
// serialize the result.
//
// Basic usage:
//
//	doc := vellum.Create()
//	page, err := doc.AddPage()
//	if err != nil {
//	    // handle error
//	}
//	data, err := doc.Save(context.Background())
//
// Fonts and images follow a two-phase protocol: registering one reserves a
// reference immediately, so page content can cite the resource, while the
// expensive work of parsing, subsetting, or re-encoding is deferred until
// Flush (run implicitly by Save):
//
//	f, err := doc.EmbedStandardFont("Helvetica")
//	name, err := page.AddFontResource(f)
//	// build content using name, then:
//	data, err := doc.Save(ctx)
//
// Custom fonts need a parsing capability registered first:
//
//	doc.RegisterFontParser(font.SFNTParser{})
//	f, err := doc.EmbedFontSubset(ttfBytes)
//	f.Use("Hello, world")
//
// For lower-level access, the core, store, pages, and writer packages are
// also available.
package vellum
