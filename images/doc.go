// Package images embeds raster images into a PDF object store.
//
// An [Embedder] writes an image XObject at a reference reserved earlier, so
// page content can cite the image before its bytes exist.
//
// JPEG data passes through untouched: PDF readers decode DCT natively, so
// [JPEG] copies the compressed bytes and only inspects the header for
// dimensions and color space. PNG data has no PDF-native filter; [PNG]
// decodes the image and re-emits the pixels Flate-compressed, with any alpha
// channel split into a soft-mask stream.
package images
