package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

// buildTestStore assembles a one-page document graph and returns the store
// plus the references of interest.
func buildTestStore(t *testing.T) (*store.Store, core.IndirectRef) {
	t.Helper()
	st := store.New()

	pageRef := st.NextRef()
	contentRef := st.Register(core.NewRawStream(core.Dict{}, []byte("BT ET")))
	treeRef := st.Register(core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  core.Array{pageRef},
		"Count": core.Int(1),
	})
	st.Put(pageRef, core.Dict{
		"Type":     core.Name("Page"),
		"Parent":   treeRef,
		"Contents": contentRef,
	})
	st.Root = st.Register(core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": treeRef,
	})
	return st, pageRef
}

// parseObjectAt parses the indirect object at the given offset of data
func parseObjectAt(t *testing.T, data []byte, offset int64) *core.IndirectObject {
	t.Helper()
	reader := bytes.NewReader(data)
	if _, err := reader.Seek(offset, 0); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	indirect, err := core.NewParser(reader).ParseIndirectObject()
	if err != nil {
		t.Fatalf("failed to parse object at offset %d: %v", offset, err)
	}
	return indirect
}

// TestSerializeClassicFraming tests header and trailer framing
func TestSerializeClassicFraming(t *testing.T) {
	st, _ := buildTestStore(t)

	data, err := Serialize(st, Options{})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF-1.7\n")) {
		t.Error("expected the PDF version header")
	}
	if !bytes.HasSuffix(data, []byte("%%EOF\n")) {
		t.Error("expected the EOF marker")
	}
	if !bytes.Contains(data, []byte("\nxref\n")) {
		t.Error("expected a classic xref table")
	}
	if !bytes.Contains(data, []byte("trailer")) {
		t.Error("expected a trailer dictionary")
	}
}

// TestSerializeClassicRoundTrip tests that the classic layout parses back
// to the same graph
func TestSerializeClassicRoundTrip(t *testing.T) {
	st, pageRef := buildTestStore(t)

	data, err := Serialize(st, Options{})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	table, err := core.NewXRefParser(bytes.NewReader(data)).ParseXRefFromEOF()
	if err != nil {
		t.Fatalf("failed to parse output xref: %v", err)
	}

	root, ok := table.Trailer.GetIndirectRef("Root")
	if !ok || root != st.Root {
		t.Fatalf("expected trailer Root %v, got %v", st.Root, table.Trailer.Get("Root"))
	}
	if size, _ := table.Trailer.GetInt("Size"); int(size) != st.MaxNumber()+1 {
		t.Errorf("expected Size %d, got %d", st.MaxNumber()+1, size)
	}
	if id, ok := table.Trailer.GetArray("ID"); !ok || len(id) != 2 {
		t.Errorf("expected a two-element /ID, got %v", table.Trailer.Get("ID"))
	}

	entry, ok := table.Get(root.Number)
	if !ok || !entry.InUse {
		t.Fatal("missing xref entry for the catalog")
	}
	catalog := parseObjectAt(t, data, entry.Offset)
	dict, ok := catalog.Object.(core.Dict)
	if !ok {
		t.Fatalf("expected catalog Dict, got %T", catalog.Object)
	}
	if name, _ := dict.GetName("Type"); name != "Catalog" {
		t.Errorf("expected Type=Catalog, got %s", name)
	}

	pageEntry, ok := table.Get(pageRef.Number)
	if !ok {
		t.Fatal("missing xref entry for the page")
	}
	page := parseObjectAt(t, data, pageEntry.Offset)
	pageDict := page.Object.(core.Dict)
	contentRef, _ := pageDict.GetIndirectRef("Contents")
	contentEntry, ok := table.Get(contentRef.Number)
	if !ok {
		t.Fatal("missing xref entry for the content stream")
	}
	content := parseObjectAt(t, data, contentEntry.Offset)
	stream, ok := content.Object.(*core.Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", content.Object)
	}
	if string(stream.Data) != "BT ET" {
		t.Errorf("expected content payload BT ET, got %q", stream.Data)
	}
}

// TestSerializeOmitsOrphans tests that unreachable objects are not written
func TestSerializeOmitsOrphans(t *testing.T) {
	st, _ := buildTestStore(t)
	orphan := st.Register(core.String("unreachable garbage"))

	data, err := Serialize(st, Options{})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	if strings.Contains(string(data), "unreachable garbage") {
		t.Error("expected the orphan to be omitted from the output")
	}

	table, err := core.NewXRefParser(bytes.NewReader(data)).ParseXRefFromEOF()
	if err != nil {
		t.Fatalf("failed to parse output xref: %v", err)
	}
	if entry, ok := table.Get(orphan.Number); ok && entry.InUse {
		t.Error("expected the orphan's number to be a free entry")
	}
}

// TestSerializeRequiresRoot tests the missing-Root error
func TestSerializeRequiresRoot(t *testing.T) {
	st := store.New()
	st.Register(core.Int(1))

	if _, err := Serialize(st, Options{}); err == nil {
		t.Error("expected error for a store without a Root")
	}
}

// TestSerializeObjectStreams tests the compressed layout end to end
func TestSerializeObjectStreams(t *testing.T) {
	st, pageRef := buildTestStore(t)

	data, err := Serialize(st, Options{UseObjectStreams: true})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	if bytes.Contains(data, []byte("trailer")) {
		t.Error("expected no classic trailer in the object-stream layout")
	}
	if !bytes.Contains(data, []byte("/ObjStm")) {
		t.Error("expected an object-stream container")
	}

	table, err := core.NewXRefParser(bytes.NewReader(data)).ParseXRefFromEOF()
	if err != nil {
		t.Fatalf("failed to parse output xref stream: %v", err)
	}

	root, ok := table.Trailer.GetIndirectRef("Root")
	if !ok || root != st.Root {
		t.Fatalf("expected trailer Root %v, got %v", st.Root, table.Trailer.Get("Root"))
	}

	// The page dictionary must be packed in a container.
	pageEntry, ok := table.Get(pageRef.Number)
	if !ok {
		t.Fatal("missing entry for the page")
	}
	if !pageEntry.InObjectStream {
		t.Fatal("expected the page to live in an object stream")
	}

	containerEntry, ok := table.Get(pageEntry.StreamNumber)
	if !ok || containerEntry.InObjectStream {
		t.Fatal("expected a direct entry for the container")
	}
	container := parseObjectAt(t, data, containerEntry.Offset)
	stream, ok := container.Object.(*core.Stream)
	if !ok {
		t.Fatalf("expected container *Stream, got %T", container.Object)
	}
	osm, err := core.NewObjectStream(stream)
	if err != nil {
		t.Fatalf("failed to open container: %v", err)
	}
	obj, err := osm.GetObjectByNumber(pageRef.Number)
	if err != nil {
		t.Fatalf("failed to unpack the page: %v", err)
	}
	pageDict, ok := obj.(core.Dict)
	if !ok {
		t.Fatalf("expected page Dict, got %T", obj)
	}
	if name, _ := pageDict.GetName("Type"); name != "Page" {
		t.Errorf("expected Type=Page, got %s", name)
	}

	// The content stream cannot be packed and must be a direct object.
	contentRef, _ := pageDict.GetIndirectRef("Contents")
	contentEntry, ok := table.Get(contentRef.Number)
	if !ok || contentEntry.InObjectStream {
		t.Error("expected the content stream to be written directly")
	}
}
