package font

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// composite glyph flags
const (
	flagArgsAreWords   = 0x0001
	flagHaveScale      = 0x0008
	flagMoreComponents = 0x0020
	flagHaveXYScale    = 0x0040
	flagHaveTwoByTwo   = 0x0080
)

// Subset rebuilds a TrueType font program keeping outlines only for the
// given glyphs, plus any component glyphs composites among them require.
// Glyph identities are preserved: the subset has the same glyph count and
// the same indices, with unused outlines emptied.
func Subset(data []byte, glyphs []uint16) ([]byte, error) {
	tables, order, err := parseTableDirectory(data)
	if err != nil {
		return nil, err
	}

	head, ok := tables["head"]
	if !ok || len(head) < 54 {
		return nil, fmt.Errorf("missing or short head table")
	}
	maxp, ok := tables["maxp"]
	if !ok || len(maxp) < 6 {
		return nil, fmt.Errorf("missing or short maxp table")
	}
	loca, ok := tables["loca"]
	if !ok {
		return nil, fmt.Errorf("missing loca table")
	}
	glyf, ok := tables["glyf"]
	if !ok {
		return nil, fmt.Errorf("missing glyf table")
	}

	numGlyphs := int(binary.BigEndian.Uint16(maxp[4:6]))
	longLoca := int16(binary.BigEndian.Uint16(head[50:52])) == 1

	offsets, err := parseLoca(loca, numGlyphs, longLoca)
	if err != nil {
		return nil, err
	}

	keep, err := glyphClosure(glyf, offsets, glyphs, numGlyphs)
	if err != nil {
		return nil, err
	}

	// Rebuild glyf with unused outlines removed and loca in long format.
	var newGlyf bytes.Buffer
	newOffsets := make([]uint32, numGlyphs+1)
	for g := 0; g < numGlyphs; g++ {
		newOffsets[g] = uint32(newGlyf.Len())
		if keep[uint16(g)] {
			newGlyf.Write(glyf[offsets[g]:offsets[g+1]])
			if newGlyf.Len()%2 != 0 {
				newGlyf.WriteByte(0)
			}
		}
	}
	newOffsets[numGlyphs] = uint32(newGlyf.Len())

	newLoca := make([]byte, 4*(numGlyphs+1))
	for i, off := range newOffsets {
		binary.BigEndian.PutUint32(newLoca[4*i:], off)
	}

	newHead := make([]byte, len(head))
	copy(newHead, head)
	binary.BigEndian.PutUint32(newHead[8:12], 0) // checkSumAdjustment, set below
	binary.BigEndian.PutUint16(newHead[50:52], 1)

	tables["glyf"] = newGlyf.Bytes()
	tables["loca"] = newLoca
	tables["head"] = newHead

	return assemble(tables, order)
}

// parseTableDirectory reads the offset table and returns each table's bytes
// plus the tag order of the directory.
func parseTableDirectory(data []byte) (map[string][]byte, []string, error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("font program too short")
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	if len(data) < 12+16*numTables {
		return nil, nil, fmt.Errorf("truncated table directory")
	}

	tables := make(map[string][]byte, numTables)
	order := make([]string, 0, numTables)
	for i := 0; i < numTables; i++ {
		rec := data[12+16*i:]
		tag := string(rec[0:4])
		offset := binary.BigEndian.Uint32(rec[8:12])
		length := binary.BigEndian.Uint32(rec[12:16])
		if int(offset)+int(length) > len(data) {
			return nil, nil, fmt.Errorf("table %q extends past end of font", tag)
		}
		tables[tag] = data[offset : offset+length]
		order = append(order, tag)
	}
	return tables, order, nil
}

// parseLoca returns numGlyphs+1 byte offsets into the glyf table.
func parseLoca(loca []byte, numGlyphs int, long bool) ([]uint32, error) {
	offsets := make([]uint32, numGlyphs+1)
	if long {
		if len(loca) < 4*(numGlyphs+1) {
			return nil, fmt.Errorf("loca table too short")
		}
		for i := range offsets {
			offsets[i] = binary.BigEndian.Uint32(loca[4*i:])
		}
	} else {
		if len(loca) < 2*(numGlyphs+1) {
			return nil, fmt.Errorf("loca table too short")
		}
		for i := range offsets {
			offsets[i] = 2 * uint32(binary.BigEndian.Uint16(loca[2*i:]))
		}
	}
	return offsets, nil
}

// glyphClosure expands the requested glyph set with every component glyph
// reachable through composite outlines.
func glyphClosure(glyf []byte, offsets []uint32, glyphs []uint16, numGlyphs int) (map[uint16]bool, error) {
	keep := make(map[uint16]bool)
	pending := append([]uint16(nil), glyphs...)
	for len(pending) > 0 {
		g := pending[0]
		pending = pending[1:]
		if keep[g] || int(g) >= numGlyphs {
			continue
		}
		keep[g] = true

		start, end := offsets[g], offsets[g+1]
		if start >= end || int(end) > len(glyf) {
			continue
		}
		outline := glyf[start:end]
		if len(outline) < 10 || int16(binary.BigEndian.Uint16(outline[0:2])) >= 0 {
			continue
		}

		// Composite glyph: walk the component records.
		pos := 10
		for {
			if pos+4 > len(outline) {
				return nil, fmt.Errorf("truncated composite glyph %d", g)
			}
			flags := binary.BigEndian.Uint16(outline[pos:])
			component := binary.BigEndian.Uint16(outline[pos+2:])
			pending = append(pending, component)
			pos += 4

			if flags&flagArgsAreWords != 0 {
				pos += 4
			} else {
				pos += 2
			}
			switch {
			case flags&flagHaveScale != 0:
				pos += 2
			case flags&flagHaveXYScale != 0:
				pos += 4
			case flags&flagHaveTwoByTwo != 0:
				pos += 8
			}
			if flags&flagMoreComponents == 0 {
				break
			}
		}
	}
	return keep, nil
}

// assemble writes the tables back into a complete font program with a fresh
// directory, per-table checksums, and head checkSumAdjustment.
func assemble(tables map[string][]byte, order []string) ([]byte, error) {
	tags := append([]string(nil), order...)
	sort.Strings(tags)
	numTables := len(tags)

	searchRange, entrySelector := 16, 0
	for searchRange*2 <= numTables*16 {
		searchRange *= 2
		entrySelector++
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(0x00010000))
	binary.Write(&buf, binary.BigEndian, uint16(numTables))
	binary.Write(&buf, binary.BigEndian, uint16(searchRange))
	binary.Write(&buf, binary.BigEndian, uint16(entrySelector))
	binary.Write(&buf, binary.BigEndian, uint16(numTables*16-searchRange))

	offset := uint32(12 + 16*numTables)
	for _, tag := range tags {
		table := tables[tag]
		buf.WriteString(tag)
		binary.Write(&buf, binary.BigEndian, tableChecksum(table))
		binary.Write(&buf, binary.BigEndian, offset)
		binary.Write(&buf, binary.BigEndian, uint32(len(table)))
		offset += uint32(padded(len(table)))
	}
	for _, tag := range tags {
		table := tables[tag]
		buf.Write(table)
		for i := len(table); i%4 != 0; i++ {
			buf.WriteByte(0)
		}
	}

	out := buf.Bytes()
	headIdx := -1
	for i, tag := range tags {
		if tag == "head" {
			headIdx = i
			break
		}
	}
	if headIdx < 0 {
		return nil, fmt.Errorf("missing head table")
	}
	headOffset := binary.BigEndian.Uint32(out[12+16*headIdx+8:])
	adjustment := 0xB1B0AFBA - tableChecksum(out)
	binary.BigEndian.PutUint32(out[headOffset+8:], adjustment)
	return out, nil
}

func padded(n int) int {
	return (n + 3) &^ 3
}

// tableChecksum sums a table as big-endian uint32s, zero-padded at the end.
func tableChecksum(table []byte) uint32 {
	var sum uint32
	for i := 0; i < len(table); i += 4 {
		var word uint32
		for j := 0; j < 4; j++ {
			word <<= 8
			if i+j < len(table) {
				word |= uint32(table[i+j])
			}
		}
		sum += word
	}
	return sum
}
