package writer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tsawler/vellum/core"
)

// formatObject appends the PDF syntax for obj to buf. Streams are not
// handled here; their payload framing is a layout concern of the caller.
func formatObject(buf *bytes.Buffer, obj core.Object) error {
	switch v := obj.(type) {
	case nil, core.Null:
		buf.WriteString("null")

	case core.Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case core.Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))

	case core.Real:
		// 'f' keeps the output exponent-free, which PDF requires.
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))

	case core.String:
		formatString(buf, string(v))

	case core.Name:
		formatName(buf, string(v))

	case core.Array:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := formatObject(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case core.Dict:
		return formatDict(buf, v)

	case core.IndirectRef:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)

	case *core.Stream:
		return fmt.Errorf("stream objects must be written indirectly")

	default:
		return fmt.Errorf("cannot serialize object of type %T", obj)
	}
	return nil
}

func formatDict(buf *bytes.Buffer, dict core.Dict) error {
	buf.WriteString("<<")
	for i, key := range dict.Keys() {
		if i > 0 {
			buf.WriteByte(' ')
		}
		formatName(buf, key)
		buf.WriteByte(' ')
		if err := formatObject(buf, dict[key]); err != nil {
			return err
		}
	}
	buf.WriteString(">>")
	return nil
}

// formatString writes a string object, choosing hexadecimal form when the
// value is mostly binary and literal form otherwise.
func formatString(buf *bytes.Buffer, s string) {
	binary := 0
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			binary++
		}
	}
	if binary > len(s)/4 {
		buf.WriteByte('<')
		for i := 0; i < len(s); i++ {
			fmt.Fprintf(buf, "%02X", s[i])
		}
		buf.WriteByte('>')
		return
	}

	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if b < 0x20 || b > 0x7E {
				fmt.Fprintf(buf, `\%03o`, b)
			} else {
				buf.WriteByte(b)
			}
		}
	}
	buf.WriteByte(')')
}

// formatName writes a name object, #-escaping bytes outside the regular
// character set.
func formatName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b <= 0x20 || b > 0x7E || b == '#' || isNameDelimiter(b) {
			fmt.Fprintf(buf, "#%02X", b)
		} else {
			buf.WriteByte(b)
		}
	}
}

func isNameDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
