package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

// PNG embeds a PNG image. The pixels are re-emitted Flate-compressed; a
// PNG alpha channel becomes a separate soft-mask stream referenced from the
// image's /SMask entry.
type PNG struct {
	Data []byte
}

// Embed writes the image XObject, and its soft mask if needed, at ref.
func (p *PNG) Embed(ctx context.Context, st *store.Store, ref core.IndirectRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := png.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return fmt.Errorf("failed to decode PNG: %w", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	pixels, alpha, colorSpace := extractPixels(img)

	dict := core.Dict{
		"Type":             core.Name("XObject"),
		"Subtype":          core.Name("Image"),
		"Width":            core.Int(width),
		"Height":           core.Int(height),
		"ColorSpace":       core.Name(colorSpace),
		"BitsPerComponent": core.Int(8),
	}

	if alpha != nil {
		maskStream, err := core.NewFlateStream(core.Dict{
			"Type":             core.Name("XObject"),
			"Subtype":          core.Name("Image"),
			"Width":            core.Int(width),
			"Height":           core.Int(height),
			"ColorSpace":       core.Name("DeviceGray"),
			"BitsPerComponent": core.Int(8),
		}, alpha)
		if err != nil {
			return err
		}
		dict.Set("SMask", st.Register(maskStream))
	}

	stream, err := core.NewFlateStream(dict, pixels)
	if err != nil {
		return err
	}
	st.Put(ref, stream)
	return nil
}

// extractPixels flattens the decoded image into 8-bit samples, returning the
// color samples, the alpha channel when one carries information, and the
// matching color space name.
func extractPixels(img image.Image) (pixels, alpha []byte, colorSpace string) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		pixels = make([]byte, 0, width*height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := src.Pix[(y-bounds.Min.Y)*src.Stride:]
			pixels = append(pixels, row[:width]...)
		}
		return pixels, nil, "DeviceGray"

	case *image.NRGBA:
		pixels = make([]byte, 0, 3*width*height)
		alpha = make([]byte, 0, width*height)
		opaque := true
		for y := 0; y < height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+4*width]
			for x := 0; x < 4*width; x += 4 {
				pixels = append(pixels, row[x], row[x+1], row[x+2])
				alpha = append(alpha, row[x+3])
				if row[x+3] != 0xFF {
					opaque = false
				}
			}
		}
		if opaque {
			alpha = nil
		}
		return pixels, alpha, "DeviceRGB"
	}

	// Everything else goes through the generic accessor.
	pixels = make([]byte, 0, 3*width*height)
	alpha = make([]byte, 0, width*height)
	opaque := true
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a != 0 && a != 0xFFFF {
				// Undo premultiplication so color and mask stay independent.
				r = r * 0xFFFF / a
				g = g * 0xFFFF / a
				b = b * 0xFFFF / a
			}
			pixels = append(pixels, byte(r>>8), byte(g>>8), byte(b>>8))
			alpha = append(alpha, byte(a>>8))
			if a != 0xFFFF {
				opaque = false
			}
		}
	}
	if opaque {
		alpha = nil
	}
	return pixels, alpha, "DeviceRGB"
}
