package filters

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
	"io"
)

// ASCIIHexDecode decodes ASCII hexadecimal encoded data. Whitespace is
// ignored and '>' marks end of data; an odd trailing digit is padded with 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	var result bytes.Buffer
	var hi byte
	haveHi := false

	for i := 0; i < len(data); i++ {
		b := data[i]
		if isFilterWhitespace(b) {
			continue
		}
		if b == '>' {
			break
		}
		v, err := hexDigitValue(b)
		if err != nil {
			return nil, err
		}
		if haveHi {
			result.WriteByte(hi<<4 | v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	if haveHi {
		result.WriteByte(hi << 4)
	}
	return result.Bytes(), nil
}

// ASCII85Decode decodes base-85 encoded data, tolerating surrounding
// whitespace and the "~>" end marker.
func ASCII85Decode(data []byte) ([]byte, error) {
	// Strip whitespace and the EOD marker; the stdlib decoder rejects both.
	cleaned := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if isFilterWhitespace(b) {
			continue
		}
		if b == '~' {
			break
		}
		cleaned = append(cleaned, b)
	}

	decoder := ascii85.NewDecoder(bytes.NewReader(cleaned))
	var result bytes.Buffer
	if _, err := io.Copy(&result, decoder); err != nil {
		return nil, fmt.Errorf("ascii85 decode failed: %w", err)
	}
	return result.Bytes(), nil
}

func isFilterWhitespace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

func hexDigitValue(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit 0x%02x", b)
	}
}
