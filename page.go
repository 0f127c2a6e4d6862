package vellum

import (
	"fmt"

	"github.com/tsawler/vellum/core"
)

// Page is a handle to one page leaf. Handles are 1:1 with their underlying
// object for the lifetime of the document.
type Page struct {
	doc *Document
	ref core.IndirectRef
}

// Ref returns the page object's reference.
func (p *Page) Ref() core.IndirectRef { return p.ref }

func (p *Page) dict() (core.Dict, error) {
	dict, ok := p.doc.store.ResolveDict(p.ref)
	if !ok {
		return nil, fmt.Errorf("page %s does not resolve to a dictionary", p.ref)
	}
	return dict, nil
}

// MediaBox returns the page's media box, inherited from the nearest
// ancestor tree node when the leaf does not carry its own.
func (p *Page) MediaBox() ([4]float64, error) {
	dict, err := p.dict()
	if err != nil {
		return [4]float64{}, err
	}
	seen := map[core.IndirectRef]bool{p.ref: true}
	for {
		if arr, ok := dict.GetArray("MediaBox"); ok && len(arr) == 4 {
			var box [4]float64
			for i, v := range arr {
				switch n := v.(type) {
				case core.Int:
					box[i] = float64(n)
				case core.Real:
					box[i] = float64(n)
				default:
					return [4]float64{}, fmt.Errorf("media box entry %d is %T, expected number", i, v)
				}
			}
			return box, nil
		}
		parent, ok := dict.GetIndirectRef("Parent")
		if !ok {
			return [4]float64{}, fmt.Errorf("page %s has no media box", p.ref)
		}
		if seen[parent] {
			return [4]float64{}, fmt.Errorf("page tree parent chain cycles at %s", parent)
		}
		seen[parent] = true
		dict, ok = p.doc.store.ResolveDict(parent)
		if !ok {
			return [4]float64{}, fmt.Errorf("page tree node %s does not resolve to a dictionary", parent)
		}
	}
}

// SetMediaBox sets the page's media box.
func (p *Page) SetMediaBox(x0, y0, x1, y1 float64) error {
	dict, err := p.dict()
	if err != nil {
		return err
	}
	dict.Set("MediaBox", core.Array{
		core.Real(x0), core.Real(y0), core.Real(x1), core.Real(y1),
	})
	p.doc.store.Put(p.ref, dict)
	return nil
}

// Rotate returns the page's clockwise rotation in degrees.
func (p *Page) Rotate() (int, error) {
	dict, err := p.dict()
	if err != nil {
		return 0, err
	}
	if deg, ok := dict.GetInt("Rotate"); ok {
		return int(deg), nil
	}
	return 0, nil
}

// SetRotate sets the page's clockwise rotation. The value must be a
// multiple of 90 degrees.
func (p *Page) SetRotate(degrees int) error {
	if degrees%90 != 0 {
		return fmt.Errorf("rotation %d is not a multiple of 90: %w", degrees, ErrInvalidInput)
	}
	dict, err := p.dict()
	if err != nil {
		return err
	}
	dict.Set("Rotate", core.Int(degrees))
	p.doc.store.Put(p.ref, dict)
	return nil
}

// SetContent installs data as the page's content stream, Flate-compressed.
func (p *Page) SetContent(data []byte) error {
	dict, err := p.dict()
	if err != nil {
		return err
	}
	stream, err := core.NewFlateStream(core.Dict{}, data)
	if err != nil {
		return err
	}
	dict.Set("Contents", p.doc.store.Register(stream))
	p.doc.store.Put(p.ref, dict)
	return nil
}

// AddFontResource makes f citable from the page's content and returns the
// resource name ("F1", "F2", ...) to use with the Tf operator.
func (p *Page) AddFontResource(f *Font) (string, error) {
	if f == nil || f.doc != p.doc {
		return "", fmt.Errorf("add font resource: font belongs to a different document")
	}
	return p.addResource("Font", "F", f.ref)
}

// AddImageResource makes im citable from the page's content and returns the
// resource name ("Im1", "Im2", ...) to use with the Do operator.
func (p *Page) AddImageResource(im *Image) (string, error) {
	if im == nil || im.doc != p.doc {
		return "", fmt.Errorf("add image resource: image belongs to a different document")
	}
	return p.addResource("XObject", "Im", im.ref)
}

// addResource wires ref into the page's /Resources under category, minting
// the next free name with the given prefix.
func (p *Page) addResource(category, prefix string, ref core.IndirectRef) (string, error) {
	dict, err := p.dict()
	if err != nil {
		return "", err
	}

	resources, resourcesRef, err := p.subDict(dict, "Resources")
	if err != nil {
		return "", err
	}
	slot, slotRef, err := p.subDict(resources, category)
	if err != nil {
		return "", err
	}

	name := ""
	for n := 1; ; n++ {
		name = fmt.Sprintf("%s%d", prefix, n)
		if !slot.Has(name) {
			break
		}
	}
	slot.Set(name, ref)
	if slotRef.Number != 0 {
		p.doc.store.Put(slotRef, slot)
	}
	if resourcesRef.Number != 0 {
		p.doc.store.Put(resourcesRef, resources)
	}
	p.doc.store.Put(p.ref, dict)
	return name, nil
}

// subDict returns the dictionary stored under key, following an indirect
// reference when the entry is stored as one, and creating an empty inline
// dictionary when the entry is absent. The returned reference is the one to
// write the dictionary back through, zero when it is stored inline.
func (p *Page) subDict(owner core.Dict, key string) (core.Dict, core.IndirectRef, error) {
	switch v := owner.Get(key).(type) {
	case core.Dict:
		return v, core.IndirectRef{}, nil
	case core.IndirectRef:
		dict, ok := p.doc.store.ResolveDict(v)
		if !ok {
			return nil, core.IndirectRef{}, fmt.Errorf("page %s /%s does not resolve to a dictionary", p.ref, key)
		}
		return dict, v, nil
	case nil, core.Null:
		dict := core.Dict{}
		owner.Set(key, dict)
		return dict, core.IndirectRef{}, nil
	default:
		return nil, core.IndirectRef{}, fmt.Errorf("page %s /%s is %T, expected dictionary", p.ref, key, v)
	}
}

// Font is a handle to a registered font. Its reference is valid as soon as
// the font is registered; the object behind it is written by Flush.
type Font struct {
	doc  *Document
	ref  core.IndirectRef
	used map[rune]bool
}

// Ref returns the font's reserved reference.
func (f *Font) Ref() core.IndirectRef { return f.ref }

// Use records the runes of s as used, extending the glyph set a subset
// embedding retains. It has no effect on full or standard embeddings.
func (f *Font) Use(s string) {
	if f.used == nil {
		return
	}
	for _, r := range s {
		f.used[r] = true
	}
}

// Image is a handle to a registered image. Its reference is valid as soon
// as the image is registered; the object behind it is written by Flush.
type Image struct {
	doc *Document
	ref core.IndirectRef
}

// Ref returns the image's reserved reference.
func (im *Image) Ref() core.IndirectRef { return im.ref }
