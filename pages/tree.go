package pages

import (
	"errors"
	"fmt"

	"github.com/tsawler/vellum/core"
)

// ErrIndexOutOfRange reports a leaf index outside the valid range for the
// requested operation.
var ErrIndexOutOfRange = errors.New("page index out of range")

// Resolver is the slice of an object store the tree needs: reference
// resolution and in-place replacement of tree nodes.
type Resolver interface {
	Lookup(ref core.IndirectRef) core.Object
	Put(ref core.IndirectRef, obj core.Object)
}

// Tree is a page tree rooted at a /Pages node held in an object store.
type Tree struct {
	store Resolver
	root  core.IndirectRef
}

// NewTree creates a tree over the /Pages node at root.
func NewTree(store Resolver, root core.IndirectRef) *Tree {
	return &Tree{store: store, root: root}
}

// NewRootNode returns a fresh, empty intermediate node dictionary suitable
// as a tree root.
func NewRootNode() core.Dict {
	return core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  core.Array{},
		"Count": core.Int(0),
	}
}

// Root returns the reference of the tree's root node.
func (t *Tree) Root() core.IndirectRef { return t.root }

// Count returns the total number of leaves in the tree.
func (t *Tree) Count() (int, error) {
	node, err := t.node(t.root)
	if err != nil {
		return 0, err
	}
	count, ok := node.GetInt("Count")
	if !ok {
		return 0, fmt.Errorf("page tree root missing /Count")
	}
	return int(count), nil
}

// node resolves ref to a tree-node dictionary.
func (t *Tree) node(ref core.IndirectRef) (core.Dict, error) {
	obj := t.store.Lookup(ref)
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("page tree node %s is %T, expected dictionary", ref, obj)
	}
	return dict, nil
}

// isLeaf reports whether a node dictionary is a /Page leaf.
func isLeaf(node core.Dict) bool {
	name, _ := node.GetName("Type")
	return name == "Page"
}

// kidCount returns the number of leaves under a kid, which is 1 for a leaf
// and the node's /Count for an intermediate.
func (t *Tree) kidCount(kid core.Dict) (int, error) {
	if isLeaf(kid) {
		return 1, nil
	}
	count, ok := kid.GetInt("Count")
	if !ok {
		return 0, fmt.Errorf("intermediate page node missing /Count")
	}
	return int(count), nil
}

// InsertLeaf inserts the leaf at the given 0-based position in document
// order and returns the reference of the intermediate node that becomes
// its parent. The caller must assign that reference into the leaf's
// /Parent entry. Valid positions are [0, Count]; Count appends.
func (t *Tree) InsertLeaf(leafRef core.IndirectRef, index int) (core.IndirectRef, error) {
	total, err := t.Count()
	if err != nil {
		return core.IndirectRef{}, err
	}
	if index < 0 || index > total {
		return core.IndirectRef{}, fmt.Errorf("insert at %d with %d pages: %w", index, total, ErrIndexOutOfRange)
	}
	return t.insertInto(t.root, leafRef, index)
}

// insertInto places leafRef at position index under the subtree rooted at
// nodeRef, descending into whichever intermediate kid spans that position.
func (t *Tree) insertInto(nodeRef, leafRef core.IndirectRef, index int) (core.IndirectRef, error) {
	node, err := t.node(nodeRef)
	if err != nil {
		return core.IndirectRef{}, err
	}
	kids, ok := node.GetArray("Kids")
	if !ok {
		return core.IndirectRef{}, fmt.Errorf("intermediate page node missing /Kids")
	}

	at := len(kids)
	remaining := index
	for i, kidObj := range kids {
		if remaining == 0 {
			at = i
			break
		}
		kidRef, ok := kidObj.(core.IndirectRef)
		if !ok {
			return core.IndirectRef{}, fmt.Errorf("page tree kid %d is %T, expected reference", i, kidObj)
		}
		kid, err := t.node(kidRef)
		if err != nil {
			return core.IndirectRef{}, err
		}
		span, err := t.kidCount(kid)
		if err != nil {
			return core.IndirectRef{}, err
		}
		if !isLeaf(kid) && remaining < span {
			// The position falls strictly inside this subtree.
			parent, err := t.insertInto(kidRef, leafRef, remaining)
			if err != nil {
				return core.IndirectRef{}, err
			}
			t.bumpCount(node, nodeRef, +1)
			return parent, nil
		}
		remaining -= span
	}
	if remaining > 0 {
		return core.IndirectRef{}, fmt.Errorf("insert position unreachable: %w", ErrIndexOutOfRange)
	}

	extended := make(core.Array, 0, len(kids)+1)
	extended = append(extended, kids[:at]...)
	extended = append(extended, leafRef)
	extended = append(extended, kids[at:]...)
	node.Set("Kids", extended)
	t.bumpCount(node, nodeRef, +1)
	return nodeRef, nil
}

// RemoveLeaf detaches the leaf at the given 0-based position. Intermediate
// nodes left empty are pruned, except the root. Valid positions are
// [0, Count).
func (t *Tree) RemoveLeaf(index int) error {
	total, err := t.Count()
	if err != nil {
		return err
	}
	if index < 0 || index >= total {
		return fmt.Errorf("remove at %d with %d pages: %w", index, total, ErrIndexOutOfRange)
	}
	return t.removeFrom(t.root, index)
}

func (t *Tree) removeFrom(nodeRef core.IndirectRef, index int) error {
	node, err := t.node(nodeRef)
	if err != nil {
		return err
	}
	kids, ok := node.GetArray("Kids")
	if !ok {
		return fmt.Errorf("intermediate page node missing /Kids")
	}

	remaining := index
	for i, kidObj := range kids {
		kidRef, ok := kidObj.(core.IndirectRef)
		if !ok {
			return fmt.Errorf("page tree kid %d is %T, expected reference", i, kidObj)
		}
		kid, err := t.node(kidRef)
		if err != nil {
			return err
		}
		if isLeaf(kid) {
			if remaining == 0 {
				node.Set("Kids", removeAt(kids, i))
				t.bumpCount(node, nodeRef, -1)
				return nil
			}
			remaining--
			continue
		}
		span, err := t.kidCount(kid)
		if err != nil {
			return err
		}
		if remaining < span {
			if err := t.removeFrom(kidRef, remaining); err != nil {
				return err
			}
			// Prune the kid when the removal emptied it.
			if left, _ := kid.GetInt("Count"); left == 0 {
				node.Set("Kids", removeAt(kids, i))
			}
			t.bumpCount(node, nodeRef, -1)
			return nil
		}
		remaining -= span
	}
	return fmt.Errorf("remove position unreachable: %w", ErrIndexOutOfRange)
}

// bumpCount adjusts a node's /Count and writes the node back to the store.
func (t *Tree) bumpCount(node core.Dict, ref core.IndirectRef, delta int) {
	count, _ := node.GetInt("Count")
	node.Set("Count", core.Int(int(count)+delta))
	t.store.Put(ref, node)
}

func removeAt(arr core.Array, i int) core.Array {
	out := make(core.Array, 0, len(arr)-1)
	out = append(out, arr[:i]...)
	out = append(out, arr[i+1:]...)
	return out
}

// Visitor receives every node encountered during traversal, intermediates
// and leaves alike, together with its reference. Returning an error stops
// the walk.
type Visitor func(ref core.IndirectRef, node core.Dict) error

// Traverse walks the tree depth-first, left to right, starting at the
// root. A node reachable twice indicates a malformed tree and is reported
// as an error.
func (t *Tree) Traverse(visit Visitor) error {
	seen := make(map[core.IndirectRef]bool)
	return t.walk(t.root, visit, seen)
}

func (t *Tree) walk(ref core.IndirectRef, visit Visitor, seen map[core.IndirectRef]bool) error {
	if seen[ref] {
		return fmt.Errorf("page tree node %s reachable twice", ref)
	}
	seen[ref] = true

	node, err := t.node(ref)
	if err != nil {
		return err
	}
	if err := visit(ref, node); err != nil {
		return err
	}
	if isLeaf(node) {
		return nil
	}

	kids, ok := node.GetArray("Kids")
	if !ok {
		return fmt.Errorf("intermediate page node missing /Kids")
	}
	for i, kidObj := range kids {
		kidRef, ok := kidObj.(core.IndirectRef)
		if !ok {
			return fmt.Errorf("page tree kid %d is %T, expected reference", i, kidObj)
		}
		if err := t.walk(kidRef, visit, seen); err != nil {
			return err
		}
	}
	return nil
}
