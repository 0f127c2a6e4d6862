package vellum

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

// Load parses a complete PDF file and returns the document it describes.
// Incremental updates are resolved: the cross-reference chain is followed
// through every /Prev back-link, with later definitions of an object
// winning. Objects packed in object streams come out indistinguishable from
// directly stored ones.
//
// Encrypted files are refused with [ErrEncrypted] unless
// [WithIgnoreEncryption] is given.
func Load(data []byte, opts ...LoadOption) (*Document, error) {
	o := defaultLoadOptions()
	for _, opt := range opts {
		opt(&o)
	}

	table, err := core.NewXRefParser(bytes.NewReader(data)).ParseXRefFromEOF()
	if err != nil {
		return nil, err
	}

	ld := &loader{
		data:    data,
		table:   table,
		objstms: make(map[int]*core.ObjectStream),
	}

	st := store.New()

	// Populating in object-number order keeps the store's allocation order,
	// and so Save's output order, deterministic.
	nums := make([]int, 0, len(table.Entries))
	for num := range table.Entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	for _, num := range nums {
		if num == 0 {
			continue
		}
		entry := table.Entries[num]
		if !entry.InUse {
			continue
		}
		obj, err := ld.object(num)
		if err != nil {
			return nil, fmt.Errorf("failed to load object %d: %w", num, err)
		}
		generation := 0
		if !entry.InObjectStream {
			generation = entry.Generation
		}
		st.Put(core.IndirectRef{Number: num, Generation: generation}, obj)
	}

	root, ok := table.Trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer has no /Root reference")
	}
	st.Root = root
	if info, ok := table.Trailer.GetIndirectRef("Info"); ok {
		st.Info = info
	}

	encrypted := false
	if encrypt, ok := table.Trailer.GetIndirectRef("Encrypt"); ok {
		st.Encrypt = encrypt
		if _, isNull := st.Resolve(encrypt).(core.Null); !isNull {
			encrypted = true
		}
	}
	if encrypted && !o.ignoreEncryption {
		return nil, fmt.Errorf("load: %w", ErrEncrypted)
	}

	return newDocument(st, encrypted)
}

// loader resolves objects on demand from the raw file through the merged
// cross-reference table. It doubles as the parser's reference resolver so
// indirect stream lengths can be chased while their stream is being parsed.
type loader struct {
	data    []byte
	table   *core.XRefTable
	objstms map[int]*core.ObjectStream
}

// object reads the current definition of an object number.
func (l *loader) object(num int) (core.Object, error) {
	entry, ok := l.table.Get(num)
	if !ok || !entry.InUse {
		return core.Null{}, nil
	}

	if entry.InObjectStream {
		osm, err := l.objectStream(entry.StreamNumber)
		if err != nil {
			return nil, err
		}
		obj, _, err := osm.GetObjectByIndex(entry.StreamIndex)
		return obj, err
	}

	reader := bytes.NewReader(l.data)
	if _, err := reader.Seek(entry.Offset, 0); err != nil {
		return nil, err
	}
	parser := core.NewParser(reader)
	parser.SetReferenceResolver(l)
	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	if indirect.Ref.Number != num {
		return nil, fmt.Errorf("offset %d holds object %d, expected %d", entry.Offset, indirect.Ref.Number, num)
	}
	return indirect.Object, nil
}

// objectStream returns the parsed object-stream container with the given
// object number, reading it at most once.
func (l *loader) objectStream(num int) (*core.ObjectStream, error) {
	if osm, ok := l.objstms[num]; ok {
		return osm, nil
	}
	obj, err := l.object(num)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object %d is %T, expected an object stream", num, obj)
	}
	osm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, err
	}
	l.objstms[num] = osm
	return osm, nil
}

// ResolveReference implements core.ReferenceResolver.
func (l *loader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return l.object(ref.Number)
}
