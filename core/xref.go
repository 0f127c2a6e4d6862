package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XRefEntry locates one indirect object. An in-use entry carries a byte
// offset; a compressed entry names the object stream holding the object and
// its index inside it; a free entry carries neither.
type XRefEntry struct {
	Offset     int64
	Generation int
	InUse      bool

	// Compressed entries (xref stream type 2).
	InObjectStream bool
	StreamNumber   int
	StreamIndex    int
}

// XRefTable maps object numbers to their locations, together with the
// trailer dictionary that accompanied the table in the file.
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable creates an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves the entry for an object number.
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or replaces the entry for an object number.
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries.
func (x *XRefTable) Size() int { return len(x.Entries) }

// MergeXRefTables combines tables from incremental updates, oldest first.
// Later entries override earlier definitions of the same object number and
// the newest trailer wins.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		merged.Trailer = table.Trailer
	}
	return merged
}

// XRefParser reads cross-reference data, classic tables and xref streams
// alike, from a seekable input.
type XRefParser struct {
	reader io.ReadSeeker
}

// NewXRefParser creates a parser over r.
func NewXRefParser(r io.ReadSeeker) *XRefParser {
	return &XRefParser{reader: r}
}

// FindXRef locates the offset of the last cross-reference section by
// scanning backwards from EOF for the "startxref" keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	fileSize, err := x.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end: %w", err)
	}

	readSize := int64(1024)
	if fileSize < readSize {
		readSize = fileSize
	}
	if _, err := x.reader.Seek(fileSize-readSize, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to startxref area: %w", err)
	}

	buf := make([]byte, readSize)
	n, err := io.ReadFull(x.reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}
	content := string(buf[:n])

	idx := strings.LastIndex(content, "startxref")
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found")
	}
	fields := strings.Fields(content[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("invalid startxref format")
	}
	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	return offset, nil
}

// ParseXRef parses the cross-reference section at offset, dispatching on
// whether it is a classic table or a cross-reference stream.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	isStream, err := x.isXRefStream(offset)
	if err != nil {
		return nil, err
	}
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to xref: %w", err)
	}
	if isStream {
		return x.parseXRefStream()
	}
	return x.parseXRefTable()
}

// isXRefStream reports whether the section at offset begins with an
// indirect object header rather than the "xref" keyword.
func (x *XRefParser) isXRefStream(offset int64) (bool, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return false, fmt.Errorf("failed to seek to xref: %w", err)
	}
	buf := make([]byte, 32)
	n, err := x.reader.Read(buf)
	if n == 0 && err != nil {
		return false, fmt.Errorf("failed to probe xref section: %w", err)
	}
	probe := strings.TrimLeft(string(buf[:n]), "\r\n \t")
	return !strings.HasPrefix(probe, "xref"), nil
}

// parseXRefTable parses a classic table. The reader is positioned at the
// "xref" keyword.
func (x *XRefParser) parseXRefTable() (*XRefTable, error) {
	scanner := bufio.NewScanner(x.reader)

	if !scanner.Scan() {
		return nil, fmt.Errorf("failed to read xref keyword")
	}
	if line := strings.TrimSpace(scanner.Text()); line != "xref" {
		return nil, fmt.Errorf("expected 'xref' keyword, got %q", line)
	}

	table := NewXRefTable()
	foundTrailer := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "trailer" {
			trailer, err := x.parseTrailer(scanner)
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			table.Trailer = trailer
			foundTrailer = true
			break
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid subsection header: %q", line)
		}
		firstObjNum, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid first object number: %w", err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid subsection count: %w", err)
		}

		for i := 0; i < count; i++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected end of xref subsection")
			}
			entry, err := parseTableEntry(scanner.Text())
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref entry: %w", err)
			}
			table.Set(firstObjNum+i, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	if !foundTrailer {
		return nil, fmt.Errorf("xref table missing trailer")
	}
	return table, nil
}

// parseTableEntry parses one 20-byte entry: "nnnnnnnnnn ggggg n" or
// "nnnnnnnnnn ggggg f".
func parseTableEntry(line string) (*XRefEntry, error) {
	if len(line) < 18 {
		return nil, fmt.Errorf("xref entry too short: %q", line)
	}
	offset, err := strconv.ParseInt(strings.TrimSpace(line[0:10]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset in %q: %w", line, err)
	}
	generation, err := strconv.Atoi(strings.TrimSpace(line[10:16]))
	if err != nil {
		return nil, fmt.Errorf("invalid generation in %q: %w", line, err)
	}
	var inUse bool
	switch strings.TrimSpace(line[16:18]) {
	case "n":
		inUse = true
	case "f":
		inUse = false
	default:
		return nil, fmt.Errorf("invalid in-use flag in %q", line)
	}
	return &XRefEntry{Offset: offset, Generation: generation, InUse: inUse}, nil
}

// parseTrailer parses the dictionary following the "trailer" keyword.
func (x *XRefParser) parseTrailer(scanner *bufio.Scanner) (Dict, error) {
	var dictText strings.Builder
	depth := 0
	for scanner.Scan() {
		line := scanner.Text()
		dictText.WriteString(line)
		dictText.WriteString("\n")
		depth += strings.Count(line, "<<") - strings.Count(line, ">>")
		if depth <= 0 && strings.Contains(dictText.String(), ">>") {
			break
		}
	}

	parser := NewParser(strings.NewReader(dictText.String()))
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trailer dictionary: %w", err)
	}
	dict, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
	}
	return dict, nil
}

// parseXRefStream parses a cross-reference stream. The reader is positioned
// at the stream's indirect object header.
func (x *XRefParser) parseXRefStream() (*XRefTable, error) {
	parser := NewParser(x.reader)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}
	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref section is not a stream, got %T", indObj.Object)
	}
	if typeName, _ := stream.Dict.GetName("Type"); typeName != "XRef" {
		return nil, fmt.Errorf("xref stream has type %q, expected XRef", typeName)
	}

	size, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}

	wArr, ok := stream.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream missing or invalid /W")
	}
	w := make([]int, 3)
	for i, elem := range wArr {
		wi, ok := elem.(Int)
		if !ok || wi < 0 {
			return nil, fmt.Errorf("invalid /W element %d: %v", i, elem)
		}
		w[i] = int(wi)
	}

	// Index defaults to [0 Size].
	index := []int{0, int(size)}
	if idxArr, ok := stream.Dict.GetArray("Index"); ok {
		if len(idxArr)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index has odd length %d", len(idxArr))
		}
		index = index[:0]
		for _, elem := range idxArr {
			i, ok := elem.(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index element: %v", elem)
			}
			index = append(index, int(i))
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict

	entryWidth := w[0] + w[1] + w[2]
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+entryWidth > len(data) {
				return nil, fmt.Errorf("xref stream data truncated at entry %d", first+j)
			}
			row := data[pos : pos+entryWidth]
			pos += entryWidth

			entry, err := decodeXRefStreamEntry(row, w)
			if err != nil {
				return nil, fmt.Errorf("invalid entry for object %d: %w", first+j, err)
			}
			table.Set(first+j, entry)
		}
	}
	return table, nil
}

// decodeXRefStreamEntry decodes one fixed-width binary entry using the field
// widths from /W. A zero-width first field defaults the type to 1.
func decodeXRefStreamEntry(row []byte, w []int) (*XRefEntry, error) {
	fieldType := int64(1)
	if w[0] > 0 {
		fieldType = readBigEndianInt(row[:w[0]])
	}
	second := readBigEndianInt(row[w[0] : w[0]+w[1]])
	third := readBigEndianInt(row[w[0]+w[1]:])

	switch fieldType {
	case 0: // free
		return &XRefEntry{Offset: second, Generation: int(third), InUse: false}, nil
	case 1: // in use, uncompressed
		return &XRefEntry{Offset: second, Generation: int(third), InUse: true}, nil
	case 2: // in object stream
		return &XRefEntry{
			InUse:          true,
			InObjectStream: true,
			StreamNumber:   int(second),
			StreamIndex:    int(third),
		}, nil
	default:
		return nil, fmt.Errorf("unknown xref stream entry type %d", fieldType)
	}
}

// readBigEndianInt interprets b as a big-endian unsigned integer.
func readBigEndianInt(b []byte) int64 {
	var v int64
	for _, x := range b {
		v = v<<8 | int64(x)
	}
	return v
}

// ParseAllXRefs parses the last section and every previous one reachable
// through /Prev back-links, returning them oldest first. Hybrid files that
// carry an /XRefStm companion alongside a classic table get that stream's
// entries merged in as well. Offset loops are reported as errors.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to find xref: %w", err)
	}

	var tables []*XRefTable
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			return nil, fmt.Errorf("cross-reference chain loops at offset %d", offset)
		}
		seen[offset] = true

		table, err := x.ParseXRef(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to parse xref at offset %d: %w", offset, err)
		}

		if stmOffset, ok := table.Trailer.GetInt("XRefStm"); ok {
			stmTable, err := x.ParseXRef(int64(stmOffset))
			if err != nil {
				return nil, fmt.Errorf("failed to parse hybrid xref stream: %w", err)
			}
			// Stream entries fill gaps; the table's own entries win.
			merged := MergeXRefTables(stmTable, table)
			merged.Trailer = table.Trailer
			table = merged
		}

		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	return tables, nil
}

// ParseXRefFromEOF is a convenience that locates, parses, and merges all
// cross-reference sections into a single table.
func (x *XRefParser) ParseXRefFromEOF() (*XRefTable, error) {
	tables, err := x.ParseAllXRefs()
	if err != nil {
		return nil, err
	}
	return MergeXRefTables(tables...), nil
}
