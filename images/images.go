package images

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"image/jpeg"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

// Embedder writes an image's object graph into the store at a reference the
// caller reserved earlier. It is invoked exactly once per image, at flush
// time.
type Embedder interface {
	Embed(ctx context.Context, st *store.Store, ref core.IndirectRef) error
}

// JPEG embeds a JPEG image without re-encoding.
type JPEG struct {
	Data []byte
}

// Embed writes the image XObject at ref, carrying the original DCT data.
func (j *JPEG) Embed(ctx context.Context, st *store.Store, ref core.IndirectRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(j.Data))
	if err != nil {
		return fmt.Errorf("failed to read JPEG header: %w", err)
	}

	colorSpace := "DeviceRGB"
	switch cfg.ColorModel {
	case color.GrayModel:
		colorSpace = "DeviceGray"
	case color.CMYKModel:
		colorSpace = "DeviceCMYK"
	}

	st.Put(ref, core.NewRawStream(core.Dict{
		"Type":             core.Name("XObject"),
		"Subtype":          core.Name("Image"),
		"Width":            core.Int(cfg.Width),
		"Height":           core.Int(cfg.Height),
		"ColorSpace":       core.Name(colorSpace),
		"BitsPerComponent": core.Int(8),
		"Filter":           core.Name("DCTDecode"),
		"Length":           core.Int(len(j.Data)),
	}, j.Data))
	return nil
}
