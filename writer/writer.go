package writer

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"sort"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/internal/filters"
	"github.com/tsawler/vellum/store"
)

// Options selects the serialization layout.
type Options struct {
	// UseObjectStreams packs non-stream objects into compressed object
	// streams and writes a cross-reference stream instead of a classic
	// table.
	UseObjectStreams bool
}

// header is the file header: version line plus a binary comment so
// transfer tools treat the file as binary.
var header = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

// maximum number of objects packed into one object stream container.
const objectsPerContainer = 100

// Serialize writes the store's reachable object graph as a complete PDF
// file and returns the bytes.
func Serialize(st *store.Store, opts Options) ([]byte, error) {
	if st.Root.Number == 0 {
		return nil, fmt.Errorf("store has no trailer Root")
	}
	refs := reachable(st)
	if opts.UseObjectStreams {
		return writeObjectStreams(st, refs)
	}
	return writeClassic(st, refs)
}

// reachable returns, in allocation order, every reference that resolves to
// an object and is reachable from the trailer references.
func reachable(st *store.Store) []core.IndirectRef {
	seen := make(map[core.IndirectRef]bool)
	var visit func(obj core.Object)
	visit = func(obj core.Object) {
		switch v := obj.(type) {
		case core.IndirectRef:
			if seen[v] {
				return
			}
			seen[v] = true
			if target := st.Lookup(v); target != nil {
				visit(target)
			}
		case core.Dict:
			for _, key := range v.Keys() {
				visit(v[key])
			}
		case core.Array:
			for _, elem := range v {
				visit(elem)
			}
		case *core.Stream:
			visit(v.Dict)
		}
	}

	visit(st.Root)
	if st.Info.Number != 0 {
		visit(st.Info)
	}
	if st.Encrypt.Number != 0 {
		visit(st.Encrypt)
	}

	var refs []core.IndirectRef
	for _, ref := range st.Refs() {
		if seen[ref] && st.Lookup(ref) != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

// fileID derives the trailer /ID pair from the emitted graph. Both halves
// are equal; regenerating differs only for a changed graph, which is all a
// first-generation file needs.
func fileID(st *store.Store, bodyLen int) core.Array {
	h := md5.New()
	fmt.Fprintf(h, "%d %d %d", bodyLen, st.MaxNumber(), st.Root.Number)
	sum := string(h.Sum(nil))
	return core.Array{core.String(sum), core.String(sum)}
}

// writeBody emits "N G obj ... endobj" for each reference and returns each
// object's byte offset.
func writeBody(buf *bytes.Buffer, st *store.Store, refs []core.IndirectRef) (map[core.IndirectRef]int64, error) {
	offsets := make(map[core.IndirectRef]int64, len(refs))
	for _, ref := range refs {
		offsets[ref] = int64(buf.Len())
		if err := writeIndirect(buf, ref, st.Lookup(ref)); err != nil {
			return nil, err
		}
	}
	return offsets, nil
}

func writeIndirect(buf *bytes.Buffer, ref core.IndirectRef, obj core.Object) error {
	fmt.Fprintf(buf, "%d %d obj\n", ref.Number, ref.Generation)
	if stream, ok := obj.(*core.Stream); ok {
		stream.Dict.Set("Length", core.Int(len(stream.Data)))
		if err := formatDict(buf, stream.Dict); err != nil {
			return fmt.Errorf("object %s: %w", ref, err)
		}
		buf.WriteString("\nstream\n")
		buf.Write(stream.Data)
		buf.WriteString("\nendstream")
	} else {
		if err := formatObject(buf, obj); err != nil {
			return fmt.Errorf("object %s: %w", ref, err)
		}
	}
	buf.WriteString("\nendobj\n")
	return nil
}

// writeClassic emits the plain layout: bodies, xref table, trailer.
func writeClassic(st *store.Store, refs []core.IndirectRef) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(header)

	offsets, err := writeBody(&buf, st, refs)
	if err != nil {
		return nil, err
	}

	// One subsection covering 0..max, with free entries in the gaps.
	maxNum := 0
	byNumber := make(map[int]core.IndirectRef, len(refs))
	for _, ref := range refs {
		byNumber[ref.Number] = ref
		if ref.Number > maxNum {
			maxNum = ref.Number
		}
	}

	xrefPos := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		if ref, ok := byNumber[num]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", offsets[ref], ref.Generation)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := core.Dict{
		"Size": core.Int(maxNum + 1),
		"Root": st.Root,
		"ID":   fileID(st, buf.Len()),
	}
	if st.Info.Number != 0 {
		trailer.Set("Info", st.Info)
	}
	if st.Encrypt.Number != 0 {
		trailer.Set("Encrypt", st.Encrypt)
	}

	buf.WriteString("trailer\n")
	if err := formatDict(&buf, trailer); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return buf.Bytes(), nil
}

// xrefRow is one entry of a cross-reference stream under /W [1 4 2].
type xrefRow struct {
	number int
	typ    byte
	second uint32
	third  uint16
}

// writeObjectStreams emits the compressed layout: stream objects written
// directly, everything else packed into /ObjStm containers, indexed by a
// cross-reference stream.
func writeObjectStreams(st *store.Store, refs []core.IndirectRef) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(header)

	// Streams, generation-nonzero objects, and the Encrypt object cannot
	// live inside an object stream.
	var direct, packed []core.IndirectRef
	for _, ref := range refs {
		_, isStream := st.Lookup(ref).(*core.Stream)
		if isStream || ref.Generation != 0 || ref == st.Encrypt {
			direct = append(direct, ref)
		} else {
			packed = append(packed, ref)
		}
	}

	var rows []xrefRow
	rows = append(rows, xrefRow{number: 0, typ: 0, second: 0, third: 65535})

	offsets, err := writeBody(&buf, st, direct)
	if err != nil {
		return nil, err
	}
	for _, ref := range direct {
		rows = append(rows, xrefRow{
			number: ref.Number,
			typ:    1,
			second: uint32(offsets[ref]),
			third:  uint16(ref.Generation),
		})
	}

	// Container and xref-stream objects take numbers past the store's
	// highest; the store itself is left untouched.
	nextNum := st.MaxNumber() + 1
	for start := 0; start < len(packed); start += objectsPerContainer {
		end := start + objectsPerContainer
		if end > len(packed) {
			end = len(packed)
		}
		chunk := packed[start:end]

		containerNum := nextNum
		nextNum++

		containerOffset := int64(buf.Len())
		container, err := buildContainer(st, chunk)
		if err != nil {
			return nil, err
		}
		containerRef := core.IndirectRef{Number: containerNum}
		if err := writeIndirect(&buf, containerRef, container); err != nil {
			return nil, err
		}

		rows = append(rows, xrefRow{number: containerNum, typ: 1, second: uint32(containerOffset)})
		for i, ref := range chunk {
			rows = append(rows, xrefRow{
				number: ref.Number,
				typ:    2,
				second: uint32(containerNum),
				third:  uint16(i),
			})
		}
	}

	xrefNum := nextNum
	xrefPos := int64(buf.Len())
	rows = append(rows, xrefRow{number: xrefNum, typ: 1, second: uint32(xrefPos)})

	xrefStream, err := buildXRefStream(st, rows, xrefNum, buf.Len())
	if err != nil {
		return nil, err
	}
	if err := writeIndirect(&buf, core.IndirectRef{Number: xrefNum}, xrefStream); err != nil {
		return nil, err
	}

	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefPos)
	return buf.Bytes(), nil
}

// buildContainer assembles a /Type /ObjStm stream holding the given
// objects: a header of (number, offset) pairs, then the object bodies.
func buildContainer(st *store.Store, chunk []core.IndirectRef) (*core.Stream, error) {
	var head, body bytes.Buffer
	for _, ref := range chunk {
		fmt.Fprintf(&head, "%d %d ", ref.Number, body.Len())
		if err := formatObject(&body, st.Lookup(ref)); err != nil {
			return nil, fmt.Errorf("packed object %s: %w", ref, err)
		}
		body.WriteByte('\n')
	}

	first := head.Len()
	payload := append(head.Bytes(), body.Bytes()...)
	compressed, err := filters.FlateEncode(payload)
	if err != nil {
		return nil, err
	}
	return &core.Stream{
		Dict: core.Dict{
			"Type":   core.Name("ObjStm"),
			"N":      core.Int(len(chunk)),
			"First":  core.Int(first),
			"Filter": core.Name("FlateDecode"),
			"Length": core.Int(len(compressed)),
		},
		Data: compressed,
	}, nil
}

// buildXRefStream assembles the /Type /XRef stream covering rows, carrying
// the trailer entries in its own dictionary.
func buildXRefStream(st *store.Store, rows []xrefRow, xrefNum int, bodyLen int) (*core.Stream, error) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].number < rows[j].number })

	// Build /Index runs of consecutive numbers and the entry data.
	var data bytes.Buffer
	var index core.Array
	runStart, runLen := -1, 0
	flush := func() {
		if runLen > 0 {
			index = append(index, core.Int(runStart), core.Int(runLen))
		}
	}
	prev := -2
	for _, row := range rows {
		if row.number != prev+1 {
			flush()
			runStart, runLen = row.number, 0
		}
		runLen++
		prev = row.number

		data.WriteByte(row.typ)
		data.Write([]byte{
			byte(row.second >> 24), byte(row.second >> 16),
			byte(row.second >> 8), byte(row.second),
		})
		data.Write([]byte{byte(row.third >> 8), byte(row.third)})
	}
	flush()

	compressed, err := filters.FlateEncode(data.Bytes())
	if err != nil {
		return nil, err
	}

	dict := core.Dict{
		"Type":   core.Name("XRef"),
		"Size":   core.Int(xrefNum + 1),
		"W":      core.Array{core.Int(1), core.Int(4), core.Int(2)},
		"Index":  index,
		"Root":   st.Root,
		"ID":     fileID(st, bodyLen),
		"Filter": core.Name("FlateDecode"),
		"Length": core.Int(len(compressed)),
	}
	if st.Info.Number != 0 {
		dict.Set("Info", st.Info)
	}
	if st.Encrypt.Number != 0 {
		dict.Set("Encrypt", st.Encrypt)
	}
	return &core.Stream{Dict: dict, Data: compressed}, nil
}
