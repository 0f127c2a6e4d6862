package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/tsawler/vellum/core"
	"github.com/tsawler/vellum/store"
)

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// TestJPEGEmbed tests the passthrough path for color JPEGs
func TestJPEGEmbed(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	data := encodeJPEG(t, img)

	st := store.New()
	ref := st.NextRef()
	if err := (&JPEG{Data: data}).Embed(context.Background(), st, ref); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	stream, ok := st.Lookup(ref).(*core.Stream)
	if !ok {
		t.Fatalf("expected an image stream, got %T", st.Lookup(ref))
	}
	dict := stream.Dict
	if w, _ := dict.GetInt("Width"); w != 8 {
		t.Errorf("expected Width 8, got %d", w)
	}
	if h, _ := dict.GetInt("Height"); h != 4 {
		t.Errorf("expected Height 4, got %d", h)
	}
	if cs, _ := dict.GetName("ColorSpace"); cs != "DeviceRGB" {
		t.Errorf("expected DeviceRGB, got %s", cs)
	}
	if f, _ := dict.GetName("Filter"); f != "DCTDecode" {
		t.Errorf("expected DCTDecode, got %s", f)
	}
	if !bytes.Equal(stream.Data, data) {
		t.Error("expected the JPEG data to pass through unmodified")
	}
}

// TestJPEGEmbedGray tests color space detection for grayscale JPEGs
func TestJPEGEmbedGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	data := encodeJPEG(t, img)

	st := store.New()
	ref := st.NextRef()
	if err := (&JPEG{Data: data}).Embed(context.Background(), st, ref); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	stream := st.Lookup(ref).(*core.Stream)
	if cs, _ := stream.Dict.GetName("ColorSpace"); cs != "DeviceGray" {
		t.Errorf("expected DeviceGray, got %s", cs)
	}
}

// TestJPEGEmbedInvalid tests rejection of data that is not a JPEG
func TestJPEGEmbedInvalid(t *testing.T) {
	st := store.New()
	ref := st.NextRef()
	if err := (&JPEG{Data: []byte("not a jpeg")}).Embed(context.Background(), st, ref); err == nil {
		t.Error("expected error for invalid JPEG data")
	}
	if st.Has(ref) {
		t.Error("expected the reference to stay unset")
	}
}

// TestPNGEmbedOpaque tests the re-encoded pixel stream without a mask
func TestPNGEmbedOpaque(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: byte(40 * x), G: byte(90 * y), B: 200, A: 255})
		}
	}
	data := encodePNG(t, img)

	st := store.New()
	ref := st.NextRef()
	if err := (&PNG{Data: data}).Embed(context.Background(), st, ref); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	stream, ok := st.Lookup(ref).(*core.Stream)
	if !ok {
		t.Fatalf("expected an image stream, got %T", st.Lookup(ref))
	}
	dict := stream.Dict
	if w, _ := dict.GetInt("Width"); w != 3 {
		t.Errorf("expected Width 3, got %d", w)
	}
	if cs, _ := dict.GetName("ColorSpace"); cs != "DeviceRGB" {
		t.Errorf("expected DeviceRGB, got %s", cs)
	}
	if dict.Has("SMask") {
		t.Error("expected no SMask for an opaque image")
	}

	pixels, err := stream.Decode()
	if err != nil {
		t.Fatalf("failed to decode pixel stream: %v", err)
	}
	if len(pixels) != 3*2*3 {
		t.Fatalf("expected %d samples, got %d", 3*2*3, len(pixels))
	}
	if pixels[0] != 0 || pixels[1] != 0 || pixels[2] != 200 {
		t.Errorf("expected first pixel (0 0 200), got %v", pixels[:3])
	}
	if pixels[3] != 40 {
		t.Errorf("expected second pixel red 40, got %d", pixels[3])
	}
}

// TestPNGEmbedAlpha tests soft-mask extraction
func TestPNGEmbedAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 128})
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 0})
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, A: 255})
	data := encodePNG(t, img)

	st := store.New()
	ref := st.NextRef()
	if err := (&PNG{Data: data}).Embed(context.Background(), st, ref); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	stream := st.Lookup(ref).(*core.Stream)
	maskRef, ok := stream.Dict.GetIndirectRef("SMask")
	if !ok {
		t.Fatal("expected an SMask reference")
	}
	mask, ok := st.Lookup(maskRef).(*core.Stream)
	if !ok {
		t.Fatalf("expected a mask stream, got %T", st.Lookup(maskRef))
	}
	if cs, _ := mask.Dict.GetName("ColorSpace"); cs != "DeviceGray" {
		t.Errorf("expected DeviceGray mask, got %s", cs)
	}

	samples, err := mask.Decode()
	if err != nil {
		t.Fatalf("failed to decode mask: %v", err)
	}
	want := []byte{255, 128, 0, 255}
	if !bytes.Equal(samples, want) {
		t.Errorf("expected alpha %v, got %v", want, samples)
	}

	pixels, err := stream.Decode()
	if err != nil {
		t.Fatalf("failed to decode pixels: %v", err)
	}
	// Color samples stay unpremultiplied.
	if pixels[4] != 255 {
		t.Errorf("expected half-transparent green to stay 255, got %d", pixels[4])
	}
}

// TestPNGEmbedGray tests the grayscale fast path
func TestPNGEmbedGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	for x := 0; x < 4; x++ {
		img.SetGray(x, 0, color.Gray{Y: byte(60 * x)})
	}
	data := encodePNG(t, img)

	st := store.New()
	ref := st.NextRef()
	if err := (&PNG{Data: data}).Embed(context.Background(), st, ref); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	stream := st.Lookup(ref).(*core.Stream)
	if cs, _ := stream.Dict.GetName("ColorSpace"); cs != "DeviceGray" {
		t.Errorf("expected DeviceGray, got %s", cs)
	}
	samples, err := stream.Decode()
	if err != nil {
		t.Fatalf("failed to decode pixel stream: %v", err)
	}
	want := []byte{0, 60, 120, 180}
	if !bytes.Equal(samples, want) {
		t.Errorf("expected %v, got %v", want, samples)
	}
}

// TestPNGEmbedInvalid tests rejection of data that is not a PNG
func TestPNGEmbedInvalid(t *testing.T) {
	st := store.New()
	ref := st.NextRef()
	if err := (&PNG{Data: []byte("not a png")}).Embed(context.Background(), st, ref); err == nil {
		t.Error("expected error for invalid PNG data")
	}
}
