package vellum

import "errors"

var (
	// ErrEncrypted is returned by Load when the file declares encryption and
	// the caller has not opted in with WithIgnoreEncryption.
	ErrEncrypted = errors.New("document is encrypted")

	// ErrForeignPage is returned when a page handle from one document is
	// inserted into another. Use CopyPages to move pages across documents.
	ErrForeignPage = errors.New("page belongs to a different document")

	// ErrNoFontParser is returned when custom-font embedding is attempted
	// before a parser has been registered with RegisterFontParser.
	ErrNoFontParser = errors.New("no font parser registered")

	// ErrInvalidInput is returned when an embedding input is empty or not a
	// recognized standard-font name.
	ErrInvalidInput = errors.New("invalid input")
)
