package store

import (
	"github.com/tsawler/vellum/core"
)

// Store is a document's object store: a mapping from reference to indirect
// object plus the trailer information needed to serialize it. A store is
// exclusively owned by one document and is not safe for concurrent
// mutation.
type Store struct {
	objects map[core.IndirectRef]core.Object
	order   []core.IndirectRef // allocation order, for deterministic output
	inOrder map[core.IndirectRef]bool
	nextNum int

	// Trailer references. Root must be set before serialization; Info and
	// Encrypt are optional.
	Root    core.IndirectRef
	Info    core.IndirectRef
	Encrypt core.IndirectRef
}

// New creates an empty store. Object numbering starts at 1; number 0 is
// reserved for the head of the free list in serialized form.
func New() *Store {
	return &Store{
		objects: make(map[core.IndirectRef]core.Object),
		inOrder: make(map[core.IndirectRef]bool),
		nextNum: 1,
	}
}

// NextRef reserves a fresh reference without storing an object under it.
// The reference resolves to nothing until Put is called, which is the
// forward-referencing pattern used by deferred resource embedding.
func (s *Store) NextRef() core.IndirectRef {
	ref := core.IndirectRef{Number: s.nextNum}
	s.nextNum++
	s.order = append(s.order, ref)
	s.inOrder[ref] = true
	return ref
}

// Register allocates a fresh reference, stores obj under it, and returns
// the reference.
func (s *Store) Register(obj core.Object) core.IndirectRef {
	ref := s.NextRef()
	s.objects[ref] = obj
	return ref
}

// Put stores obj under a previously reserved or parsed reference. A
// reference at or above the allocation counter advances the counter so
// Register never reissues it.
func (s *Store) Put(ref core.IndirectRef, obj core.Object) {
	if !s.inOrder[ref] {
		s.order = append(s.order, ref)
		s.inOrder[ref] = true
	}
	s.objects[ref] = obj
	if ref.Number >= s.nextNum {
		s.nextNum = ref.Number + 1
	}
}

// Lookup resolves a reference to its object. Unset references resolve to
// nil.
func (s *Store) Lookup(ref core.IndirectRef) core.Object {
	return s.objects[ref]
}

// Has reports whether ref currently resolves to an object.
func (s *Store) Has(ref core.IndirectRef) bool {
	_, ok := s.objects[ref]
	return ok
}

// Resolve returns obj itself unless it is a reference, in which case the
// referenced object (or core.Null for an unset reference) is returned.
func (s *Store) Resolve(obj core.Object) core.Object {
	if ref, ok := obj.(core.IndirectRef); ok {
		if target := s.Lookup(ref); target != nil {
			return target
		}
		return core.Null{}
	}
	return obj
}

// ResolveDict resolves obj and asserts it is a dictionary.
func (s *Store) ResolveDict(obj core.Object) (core.Dict, bool) {
	dict, ok := s.Resolve(obj).(core.Dict)
	return dict, ok
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	return len(s.objects)
}

// MaxNumber returns the highest object number the store will have issued
// after all reservations, which is the trailer /Size minus one.
func (s *Store) MaxNumber() int {
	return s.nextNum - 1
}

// Refs returns every allocated reference in allocation order, including
// reserved references that have no object yet.
func (s *Store) Refs() []core.IndirectRef {
	refs := make([]core.IndirectRef, len(s.order))
	copy(refs, s.order)
	return refs
}
