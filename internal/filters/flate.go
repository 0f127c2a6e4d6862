package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params carries decode parameters from a stream dictionary, translated to
// plain Go values. Common keys are Predictor, Columns, Colors, and
// BitsPerComponent.
type Params map[string]interface{}

// FlateDecode decompresses Flate (zlib) data, applying a predictor when the
// parameters request one.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	decompressed, err := zlibDecompress(data)
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor != 1 {
		decompressed, err = applyPredictor(decompressed, predictor, params)
		if err != nil {
			return nil, fmt.Errorf("predictor failed: %w", err)
		}
	}
	return decompressed, nil
}

// FlateEncode compresses data with zlib at the default level. No predictor
// is applied; the output decodes with a bare /FlateDecode filter.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func zlibDecompress(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return buf.Bytes(), nil
}

// applyPredictor undoes the prediction applied before compression.
// 1 is identity, 2 is TIFF Predictor 2, 10-15 are the PNG predictors.
func applyPredictor(data []byte, predictor int, params Params) ([]byte, error) {
	switch {
	case predictor == 1:
		return data, nil
	case predictor == 2:
		return applyTIFFPredictor2(data, params)
	case predictor >= 10 && predictor <= 15:
		return applyPNGPredictor(data, params)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}
}

// applyTIFFPredictor2 undoes TIFF Predictor 2, which predicts each sample
// from the sample to its left.
func applyTIFFPredictor2(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)

	if bpc != 8 {
		return nil, fmt.Errorf("TIFF Predictor 2 only supports 8 bits per component, got %d", bpc)
	}

	rowSize := columns * colors
	if rowSize <= 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	result := make([]byte, len(data))
	for row := 0; row < len(data)/rowSize; row++ {
		rowStart := row * rowSize
		for col := 0; col < rowSize; col++ {
			idx := rowStart + col
			if col < colors {
				result[idx] = data[idx]
			} else {
				result[idx] = data[idx] + result[idx-colors]
			}
		}
	}
	return result, nil
}

// applyPNGPredictor undoes the PNG row predictors. Each row begins with a
// predictor byte (0-4) naming the algorithm for that row.
func applyPNGPredictor(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)

	if bpc != 8 {
		return nil, fmt.Errorf("PNG predictor only supports 8 bits per component, got %d", bpc)
	}

	bytesPerPixel := colors
	rowLength := columns * colors
	rowSize := rowLength + 1 // +1 for predictor byte

	if rowSize <= 1 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	numRows := len(data) / rowSize
	result := make([]byte, numRows*rowLength)

	for row := 0; row < numRows; row++ {
		rowStart := row * rowSize
		predictorByte := data[rowStart]
		rowData := data[rowStart+1 : rowStart+rowSize]
		out := result[row*rowLength : (row+1)*rowLength]

		for i := 0; i < len(rowData); i++ {
			var left, up, upLeft byte
			if i >= bytesPerPixel {
				left = out[i-bytesPerPixel]
			}
			if row > 0 {
				up = result[(row-1)*rowLength+i]
				if i >= bytesPerPixel {
					upLeft = result[(row-1)*rowLength+i-bytesPerPixel]
				}
			}

			var predicted byte
			switch predictorByte {
			case 0: // None
			case 1: // Sub
				predicted = left
			case 2: // Up
				predicted = up
			case 3: // Average
				predicted = byte((int(left) + int(up)) / 2)
			case 4: // Paeth
				predicted = paethPredictor(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG predictor byte %d in row %d", predictorByte, row)
			}
			out[i] = rowData[i] + predicted
		}
	}
	return result, nil
}

// paethPredictor selects the neighbor closest to the linear prediction, as
// defined by the PNG specification.
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
