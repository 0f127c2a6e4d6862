package store

import (
	"fmt"

	"github.com/tsawler/vellum/core"
)

// Copier deep-copies reference subgraphs from one store into another. The
// memo mapping source reference to destination reference persists across
// calls, so copying several pages out of the same source preserves their
// shared resources.
type Copier struct {
	dst  *Store
	src  *Store
	memo map[core.IndirectRef]core.IndirectRef
}

// NewCopier creates a copier from src into dst. The two stores must be
// distinct.
func NewCopier(dst, src *Store) *Copier {
	return &Copier{
		dst:  dst,
		src:  src,
		memo: make(map[core.IndirectRef]core.IndirectRef),
	}
}

// Copy produces an equivalent of obj in the destination store. Every
// reference reachable from obj is rewritten to a destination reference;
// each distinct source object is copied exactly once, so aliasing and
// cycles in the source graph survive the copy. The source store is never
// mutated.
func (c *Copier) Copy(obj core.Object) (core.Object, error) {
	switch v := obj.(type) {
	case core.IndirectRef:
		return c.copyRef(v)

	case core.Dict:
		return c.copyDict(v)

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			copied, err := c.Copy(elem)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			out[i] = copied
		}
		return out, nil

	case *core.Stream:
		dict, err := c.copyDict(v.Dict)
		if err != nil {
			return nil, fmt.Errorf("stream dictionary: %w", err)
		}
		data := make([]byte, len(v.Data))
		copy(data, v.Data)
		return &core.Stream{Dict: dict, Data: data}, nil

	case core.Null, core.Bool, core.Int, core.Real, core.String, core.Name:
		return v, nil

	case nil:
		return core.Null{}, nil

	default:
		return nil, fmt.Errorf("cannot copy object of type %T", obj)
	}
}

// copyRef translates a source reference into a destination reference,
// copying the referenced object on first encounter. The memo entry is
// recorded before recursing into the object's children: a cycle reaching
// this reference again resolves to the already-allocated destination
// reference instead of recursing forever.
func (c *Copier) copyRef(ref core.IndirectRef) (core.Object, error) {
	if dstRef, ok := c.memo[ref]; ok {
		return dstRef, nil
	}

	dstRef := c.dst.NextRef()
	c.memo[ref] = dstRef

	src := c.src.Lookup(ref)
	if src == nil {
		// Dangling reference in the source; a null placeholder keeps the
		// destination graph self-contained.
		c.dst.Put(dstRef, core.Null{})
		return dstRef, nil
	}

	copied, err := c.Copy(src)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", ref, err)
	}
	c.dst.Put(dstRef, copied)
	return dstRef, nil
}

func (c *Copier) copyDict(dict core.Dict) (core.Dict, error) {
	out := make(core.Dict, len(dict))
	for key, value := range dict {
		copied, err := c.Copy(value)
		if err != nil {
			return nil, fmt.Errorf("key /%s: %w", key, err)
		}
		out[key] = copied
	}
	return out, nil
}

// Copy is a convenience wrapper for a one-shot copy of obj from src into
// dst.
func Copy(dst, src *Store, obj core.Object) (core.Object, error) {
	return NewCopier(dst, src).Copy(obj)
}
