package vellum

import (
	"context"
	"fmt"
	"time"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/font"
	"github.com/tsawler/vellum/images"
	"github.com/tsawler/vellum/internal/memo"
	"github.com/tsawler/vellum/pages"
	"github.com/tsawler/vellum/store"
	"github.com/tsawler/vellum/writer"
)

// defaultPageWidth and defaultPageHeight are US Letter in points.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// Document is an in-memory PDF: an object store, the page tree built over
// it, and the pending resources awaiting embedding. A Document is not safe
// for concurrent use.
type Document struct {
	store      *store.Store
	catalogRef core.IndirectRef
	tree       *pages.Tree
	encrypted  bool
	fontParser font.Parser

	pageCache *memo.View[[]*Page]
	handles   map[core.IndirectRef]*Page

	pendingFonts  []pendingResource
	pendingImages []pendingResource
}

// pendingResource pairs a reserved reference with the embed step that will
// materialize the object behind it at flush time.
type pendingResource struct {
	ref   core.IndirectRef
	embed func(ctx context.Context) error
}

// Create returns an empty document: fresh store, empty page tree, and a
// catalog registered as the trailer Root.
func Create() *Document {
	st := store.New()

	rootRef := st.Register(pages.NewRootNode())
	st.Root = st.Register(core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": rootRef,
	})
	st.Info = st.Register(core.Dict{
		"Producer":     core.String("vellum"),
		"CreationDate": core.String(formatDate(time.Now())),
	})

	d, err := newDocument(st, false)
	if err != nil {
		// The graph above always satisfies newDocument's checks.
		panic(err)
	}
	return d
}

// newDocument wraps a populated store. The store's Root must resolve to a
// catalog whose /Pages names the page tree root.
func newDocument(st *store.Store, encrypted bool) (*Document, error) {
	catalog, ok := st.ResolveDict(st.Root)
	if !ok {
		return nil, fmt.Errorf("trailer Root does not resolve to a dictionary")
	}
	pagesRef, ok := catalog.GetIndirectRef("Pages")
	if !ok {
		return nil, fmt.Errorf("catalog has no /Pages reference")
	}

	d := &Document{
		store:      st,
		catalogRef: st.Root,
		tree:       pages.NewTree(st, pagesRef),
		encrypted:  encrypted,
		handles:    make(map[core.IndirectRef]*Page),
	}
	d.pageCache = memo.NewView(d.collectPages)
	return d, nil
}

// Encrypted reports whether the document was loaded from an encrypted file.
func (d *Document) Encrypted() bool { return d.encrypted }

// RegisterFontParser installs the capability used to read custom font
// programs. It must be called before EmbedFont.
func (d *Document) RegisterFontParser(p font.Parser) {
	d.fontParser = p
}

// PageCount returns the number of pages.
func (d *Document) PageCount() (int, error) {
	return d.tree.Count()
}

// GetPages returns the document's pages in order. Handles are stable:
// calling GetPages twice without a structural change in between returns the
// same *Page values.
func (d *Document) GetPages() ([]*Page, error) {
	cached, err := d.pageCache.Access()
	if err != nil {
		return nil, err
	}
	out := make([]*Page, len(cached))
	copy(out, cached)
	return out, nil
}

// GetPage returns the page at the given 0-based index.
func (d *Document) GetPage(index int) (*Page, error) {
	pp, err := d.GetPages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pp) {
		return nil, fmt.Errorf("page %d of %d: %w", index, len(pp), pages.ErrIndexOutOfRange)
	}
	return pp[index], nil
}

// collectPages is the page-cache producer: a full tree traversal gathering
// leaves, reusing wrapper handles for leaves seen before.
func (d *Document) collectPages() ([]*Page, error) {
	var out []*Page
	err := d.tree.Traverse(func(ref core.IndirectRef, node core.Dict) error {
		if name, _ := node.GetName("Type"); name != "Page" {
			return nil
		}
		handle, ok := d.handles[ref]
		if !ok {
			handle = &Page{doc: d, ref: ref}
			d.handles[ref] = handle
		}
		out = append(out, handle)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddPage appends a new blank page and returns its handle.
func (d *Document) AddPage() (*Page, error) {
	count, err := d.tree.Count()
	if err != nil {
		return nil, err
	}
	leaf := core.Dict{
		"Type": core.Name("Page"),
		"MediaBox": core.Array{
			core.Int(0), core.Int(0),
			core.Int(defaultPageWidth), core.Int(defaultPageHeight),
		},
	}
	ref := d.store.Register(leaf)
	parentRef, err := d.tree.InsertLeaf(ref, count)
	if err != nil {
		return nil, err
	}
	leaf.Set("Parent", parentRef)
	d.store.Put(ref, leaf)
	d.pageCache.Invalidate()

	handle := &Page{doc: d, ref: ref}
	d.handles[ref] = handle
	return handle, nil
}

// InsertPage attaches an existing page handle at the given 0-based position.
// The handle must belong to this document; pages from other documents are
// rejected before anything is touched.
func (d *Document) InsertPage(page *Page, index int) error {
	if page == nil || page.doc != d {
		return fmt.Errorf("insert page: %w", ErrForeignPage)
	}
	parentRef, err := d.tree.InsertLeaf(page.ref, index)
	if err != nil {
		return err
	}
	leaf, err := page.dict()
	if err != nil {
		return err
	}
	leaf.Set("Parent", parentRef)
	d.store.Put(page.ref, leaf)
	d.pageCache.Invalidate()
	return nil
}

// RemovePage detaches the page at the given 0-based position. The page
// object stays in the store; if nothing else references it, Save omits it.
func (d *Document) RemovePage(index int) error {
	if err := d.tree.RemoveLeaf(index); err != nil {
		return err
	}
	d.pageCache.Invalidate()
	return nil
}

// EmbedStandardFont registers one of the fourteen built-in fonts. The
// returned handle carries a usable reference immediately; the font
// dictionary itself is written at flush time.
func (d *Document) EmbedStandardFont(name string) (*Font, error) {
	if !font.IsStandard(name) {
		return nil, fmt.Errorf("standard font %q: %w", name, ErrInvalidInput)
	}
	ref := d.store.NextRef()
	handle := &Font{doc: d, ref: ref}
	embedder := &font.Standard{Name: name}
	d.pendingFonts = append(d.pendingFonts, pendingResource{
		ref: ref,
		embed: func(ctx context.Context) error {
			return embedder.Embed(ctx, d.store, ref)
		},
	})
	return handle, nil
}

// EmbedFont registers a custom font program for embedding in full. A font
// parser must have been registered first.
func (d *Document) EmbedFont(data []byte) (*Font, error) {
	return d.embedCustomFont(data, false)
}

// EmbedFontSubset registers a custom font program for subset embedding: at
// flush time the program is reduced to the glyphs recorded via [Font.Use].
func (d *Document) EmbedFontSubset(data []byte) (*Font, error) {
	return d.embedCustomFont(data, true)
}

func (d *Document) embedCustomFont(data []byte, subset bool) (*Font, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty font program: %w", ErrInvalidInput)
	}
	if d.fontParser == nil {
		return nil, ErrNoFontParser
	}

	ref := d.store.NextRef()
	handle := &Font{doc: d, ref: ref}
	if subset {
		handle.used = make(map[rune]bool)
	}
	parser := d.fontParser
	d.pendingFonts = append(d.pendingFonts, pendingResource{
		ref: ref,
		embed: func(ctx context.Context) error {
			embedder := &font.TrueType{Data: data, Parser: parser, Used: handle.used}
			return embedder.Embed(ctx, d.store, ref)
		},
	})
	return handle, nil
}

// EmbedJPEG registers a JPEG image. The compressed data is embedded as-is
// at flush time.
func (d *Document) EmbedJPEG(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JPEG data: %w", ErrInvalidInput)
	}
	return d.embedImage(&images.JPEG{Data: data}), nil
}

// EmbedPNG registers a PNG image, re-encoded with Flate at flush time.
func (d *Document) EmbedPNG(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PNG data: %w", ErrInvalidInput)
	}
	return d.embedImage(&images.PNG{Data: data}), nil
}

func (d *Document) embedImage(embedder images.Embedder) *Image {
	ref := d.store.NextRef()
	d.pendingImages = append(d.pendingImages, pendingResource{
		ref: ref,
		embed: func(ctx context.Context) error {
			return embedder.Embed(ctx, d.store, ref)
		},
	})
	return &Image{doc: d, ref: ref}
}

// Flush materializes every pending resource into the store: fonts first,
// then images, each in registration order and strictly sequential. The
// first failure aborts the rest, leaving the failed and unprocessed
// resources pending.
func (d *Document) Flush(ctx context.Context) error {
	var err error
	d.pendingFonts, err = runPending(ctx, d.pendingFonts)
	if err != nil {
		return fmt.Errorf("failed to embed font %s: %w", d.pendingFonts[0].ref, err)
	}
	d.pendingImages, err = runPending(ctx, d.pendingImages)
	if err != nil {
		return fmt.Errorf("failed to embed image %s: %w", d.pendingImages[0].ref, err)
	}
	return nil
}

// runPending embeds resources in order, returning the ones not completed.
func runPending(ctx context.Context, list []pendingResource) ([]pendingResource, error) {
	for i, res := range list {
		if err := res.embed(ctx); err != nil {
			return list[i:], err
		}
	}
	return nil, nil
}

// Save flushes pending resources and serializes the document. With default
// options a page-less document gets one blank page first, and the
// compressed object-stream layout is used.
func (d *Document) Save(ctx context.Context, opts ...SaveOption) ([]byte, error) {
	o := defaultSaveOptions()
	for _, opt := range opts {
		opt(&o)
	}

	count, err := d.tree.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 && o.defaultPage {
		if _, err := d.AddPage(); err != nil {
			return nil, err
		}
	}

	if err := d.Flush(ctx); err != nil {
		return nil, err
	}
	return writer.Serialize(d.store, writer.Options{
		UseObjectStreams: o.objectStreams,
	})
}

// CopyPages copies the pages of src at the given 0-based indices into this
// document, appending them in the order given. The source is flushed first
// so its resources exist as real objects, then copied without being
// modified. Resources shared between copied pages stay shared in the copy.
func (d *Document) CopyPages(ctx context.Context, src *Document, indices ...int) error {
	if src == d {
		return fmt.Errorf("cannot copy pages from a document into itself")
	}
	if err := src.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush source document: %w", err)
	}

	srcPages, err := src.GetPages()
	if err != nil {
		return err
	}
	// Every index is checked up front so a bad one fails the whole call
	// before anything is copied in.
	for _, index := range indices {
		if index < 0 || index >= len(srcPages) {
			return fmt.Errorf("source page %d of %d: %w", index, len(srcPages), pages.ErrIndexOutOfRange)
		}
	}
	copier := store.NewCopier(d.store, src.store)

	for _, index := range indices {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcLeaf, err := srcPages[index].dict()
		if err != nil {
			return err
		}

		// Copying through /Parent would drag the source's whole tree along,
		// so the leaf is copied without it and reparented after insertion.
		trimmed := make(core.Dict, len(srcLeaf))
		for key, value := range srcLeaf {
			if key != "Parent" {
				trimmed[key] = value
			}
		}
		copied, err := copier.Copy(trimmed)
		if err != nil {
			return fmt.Errorf("failed to copy page %d: %w", index, err)
		}
		leaf := copied.(core.Dict)

		ref := d.store.Register(leaf)
		count, err := d.tree.Count()
		if err != nil {
			return err
		}
		parentRef, err := d.tree.InsertLeaf(ref, count)
		if err != nil {
			return err
		}
		leaf.Set("Parent", parentRef)
		d.store.Put(ref, leaf)
	}

	d.pageCache.Invalidate()
	return nil
}

// formatDate renders a time in PDF date-string form.
func formatDate(t time.Time) string {
	return t.UTC().Format("D:20060102150405Z")
}
