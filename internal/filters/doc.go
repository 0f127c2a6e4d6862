// Package filters implements the stream filters needed for round-trip
// fidelity: Flate (decode and encode), ASCIIHexDecode, and ASCII85Decode,
// including the PNG and TIFF predictors used with Flate.
package filters
