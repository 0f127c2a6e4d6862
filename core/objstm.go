package core

import (
	"bytes"
	"fmt"
)

// ObjectStream reads objects packed inside a /Type /ObjStm container
// (PDF 1.5+). The container's payload starts with N pairs of integers
// (object number, byte offset) followed by the objects themselves.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	objects map[int]Object // parsed objects keyed by index
	offsets []objectStreamOffset
	decoded []byte
}

type objectStreamOffset struct {
	ObjNum int
	Offset int
}

// NewObjectStream wraps a stream, validating its /Type, /N, and /First
// entries.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if typeName, _ := stream.Dict.GetName("Type"); typeName != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type %q", typeName)
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream missing or invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream missing or invalid /First")
	}

	return &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		objects: make(map[int]Object),
	}, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int { return os.n }

// decode decompresses the payload and parses the offset header. Lazy.
func (os *ObjectStream) decode() error {
	if os.decoded != nil {
		return nil
	}

	decoded, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	os.decoded = decoded

	if os.first > len(decoded) {
		return fmt.Errorf("/First offset %d exceeds decoded length %d", os.first, len(decoded))
	}

	parser := NewParser(bytes.NewReader(decoded[:os.first]))
	os.offsets = make([]objectStreamOffset, 0, os.n)
	for i := 0; i < os.n; i++ {
		objNum, err := parseHeaderInt(parser)
		if err != nil {
			return fmt.Errorf("failed to parse header pair %d: %w", i, err)
		}
		offset, err := parseHeaderInt(parser)
		if err != nil {
			return fmt.Errorf("failed to parse header pair %d: %w", i, err)
		}
		os.offsets = append(os.offsets, objectStreamOffset{ObjNum: objNum, Offset: offset})
	}
	return nil
}

func parseHeaderInt(parser *Parser) (int, error) {
	obj, err := parser.ParseObject()
	if err != nil {
		return 0, err
	}
	i, ok := obj.(Int)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %T", obj)
	}
	return int(i), nil
}

// GetObjectByIndex extracts the object at a 0-based position in the stream,
// returning the object and its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(os.offsets))
	}
	if obj, ok := os.objects[index]; ok {
		return obj, os.offsets[index].ObjNum, nil
	}

	start := os.first + os.offsets[index].Offset
	end := len(os.decoded)
	if index+1 < len(os.offsets) {
		end = os.first + os.offsets[index+1].Offset
	}
	if start >= len(os.decoded) {
		return nil, 0, fmt.Errorf("object offset %d exceeds decoded length %d", start, len(os.decoded))
	}
	if end > len(os.decoded) {
		end = len(os.decoded)
	}

	parser := NewParser(bytes.NewReader(os.decoded[start:end]))
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse packed object at index %d: %w", index, err)
	}
	os.objects[index] = obj
	return obj, os.offsets[index].ObjNum, nil
}

// GetObjectByNumber extracts the object with the given object number.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	for i, entry := range os.offsets {
		if entry.ObjNum == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not found in object stream", objNum)
}

// ObjectNumbers returns the object numbers stored in this stream, in
// header order.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	nums := make([]int, len(os.offsets))
	for i, entry := range os.offsets {
		nums[i] = entry.ObjNum
	}
	return nums, nil
}
