package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestParseScalars tests parsing of scalar objects
func TestParseScalars(t *testing.T) {
	tests := []struct {
		input string
		want  Object
	}{
		{"null", Null{}},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"42", Int(42)},
		{"-7", Int(-7)},
		{"3.5", Real(3.5)},
		{"(hello)", String("hello")},
		{"<48656C6C6F>", String("Hello")},
		{"/Type", Name("Type")},
		{"12 0 R", IndirectRef{Number: 12}},
		{"3 2 R", IndirectRef{Number: 3, Generation: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			parser := NewParser(strings.NewReader(tt.input))
			obj, err := parser.ParseObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj != tt.want {
				t.Errorf("expected %v, got %v", tt.want, obj)
			}
		})
	}
}

// TestParseHexStringOddDigits tests that an odd digit count pads with zero
func TestParseHexStringOddDigits(t *testing.T) {
	parser := NewParser(strings.NewReader("<901FA>"))
	obj, err := parser.ParseObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj != String("\x90\x1F\xA0") {
		t.Errorf("expected padded hex string, got %q", obj)
	}
}

// TestParseArray tests array parsing including nesting
func TestParseArray(t *testing.T) {
	parser := NewParser(strings.NewReader("[1 2.5 /Name (str) [true] 4 0 R]"))
	obj, err := parser.ParseObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	arr, ok := obj.(Array)
	if !ok {
		t.Fatalf("expected Array, got %T", obj)
	}
	if len(arr) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(arr))
	}
	if arr[0] != Int(1) {
		t.Errorf("expected element 0 to be 1, got %v", arr[0])
	}
	inner, ok := arr[4].(Array)
	if !ok || len(inner) != 1 || inner[0] != Bool(true) {
		t.Errorf("expected nested array [true], got %v", arr[4])
	}
	if arr[5] != (IndirectRef{Number: 4}) {
		t.Errorf("expected reference 4 0 R, got %v", arr[5])
	}
}

// TestParseDict tests dictionary parsing
func TestParseDict(t *testing.T) {
	parser := NewParser(strings.NewReader("<< /Type /Page /Count 3 /Kids [1 0 R 2 0 R] >>"))
	obj, err := parser.ParseObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dict, ok := obj.(Dict)
	if !ok {
		t.Fatalf("expected Dict, got %T", obj)
	}
	if name, _ := dict.GetName("Type"); name != "Page" {
		t.Errorf("expected Type=Page, got %s", name)
	}
	if count, _ := dict.GetInt("Count"); count != 3 {
		t.Errorf("expected Count=3, got %d", count)
	}
	kids, ok := dict.GetArray("Kids")
	if !ok || len(kids) != 2 {
		t.Errorf("expected 2 kids, got %v", dict.Get("Kids"))
	}
}

// TestParseNestedStructure tests a deep mixed structure in one pass
func TestParseNestedStructure(t *testing.T) {
	input := `<< /Type /Catalog
		/Pages 2 0 R
		/Names << /Dests [ (a) 3 0 R (b) 4 0 R ] >>
		/MediaBox [0 0 612 792.0]
	>>`
	parser := NewParser(strings.NewReader(input))
	obj, err := parser.ParseObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Dict{
		"Type":  Name("Catalog"),
		"Pages": IndirectRef{Number: 2},
		"Names": Dict{
			"Dests": Array{
				String("a"), IndirectRef{Number: 3},
				String("b"), IndirectRef{Number: 4},
			},
		},
		"MediaBox": Array{Int(0), Int(0), Int(612), Real(792)},
	}
	if diff := cmp.Diff(want, obj); diff != "" {
		t.Errorf("parsed structure mismatch (-want +got):\n%s", diff)
	}
}

// TestParseIndirectObject tests "num gen obj ... endobj" framing
func TestParseIndirectObject(t *testing.T) {
	parser := NewParser(strings.NewReader("7 0 obj\n<< /Type /Catalog >>\nendobj"))
	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indirect.Ref != (IndirectRef{Number: 7}) {
		t.Errorf("expected reference 7 0, got %v", indirect.Ref)
	}
	dict, ok := indirect.Object.(Dict)
	if !ok {
		t.Fatalf("expected Dict, got %T", indirect.Object)
	}
	if name, _ := dict.GetName("Type"); name != "Catalog" {
		t.Errorf("expected Type=Catalog, got %s", name)
	}
}

// TestParseStream tests stream payload extraction
func TestParseStream(t *testing.T) {
	input := "5 0 obj\n<< /Length 11 >>\nstream\nhello world\nendstream\nendobj"
	parser := NewParser(strings.NewReader(input))
	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stream, ok := indirect.Object.(*Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", indirect.Object)
	}
	if string(stream.Data) != "hello world" {
		t.Errorf("expected payload %q, got %q", "hello world", stream.Data)
	}
}

// lengthResolver resolves one reference to a fixed object
type lengthResolver struct {
	ref IndirectRef
	obj Object
}

func (r *lengthResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if ref != r.ref {
		return nil, fmt.Errorf("object %v not found", ref)
	}
	return r.obj, nil
}

// TestParseStreamIndirectLength tests /Length given as a reference
func TestParseStreamIndirectLength(t *testing.T) {
	input := "5 0 obj\n<< /Length 9 0 R >>\nstream\npayload\nendstream\nendobj"
	parser := NewParser(strings.NewReader(input))
	parser.SetReferenceResolver(&lengthResolver{
		ref: IndirectRef{Number: 9},
		obj: Int(7),
	})

	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stream, ok := indirect.Object.(*Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", indirect.Object)
	}
	if string(stream.Data) != "payload" {
		t.Errorf("expected payload %q, got %q", "payload", stream.Data)
	}
}

// TestParseObjectErrors tests malformed input reporting
func TestParseObjectErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated array", "[1 2"},
		{"unterminated dict", "<< /Key 1"},
		{"dict key not a name", "<< (Key) 1 >>"},
		{"stray close", ">>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(strings.NewReader(tt.input))
			if _, err := parser.ParseObject(); err == nil {
				t.Error("expected error, got none")
			}
		})
	}
}
