// Package core provides the PDF object model and the low-level machinery for
// turning bytes into objects.
//
// # Object Types
//
// PDF defines a closed set of object types, all implemented as types
// satisfying the Object interface:
//
//   - [Null] - the PDF null object
//   - [Bool] - boolean values (true/false)
//   - [Int] - integers
//   - [Real] - real numbers (floating point)
//   - [String] - string objects (literal or hexadecimal)
//   - [Name] - name objects (e.g., /Type, /Font)
//   - [Array] - arrays
//   - [Dict] - dictionaries
//   - [Stream] - a dictionary plus an associated byte payload
//   - [IndirectRef] - a reference to an indirect object
//
// The set is fixed: consumers (the writer, the cross-store copier, tree
// traversal) switch exhaustively over these variants.
//
// # Parsing
//
// The [Parser] type parses PDF syntax from an io.Reader, consuming tokens
// produced by [Lexer]. It can parse bare objects or complete indirect object
// definitions including streams.
//
// # Cross-Reference Data
//
// [XRefTable] maps object numbers to their location in a file. [XRefParser]
// reads both classic xref tables (PDF 1.0-1.4) and cross-reference streams
// (PDF 1.5+), following /Prev back-links so incremental updates assemble into
// a single table with later definitions overriding earlier ones.
//
// # Object Streams
//
// [ObjectStream] unpacks objects stored inside a compressed /ObjStm
// container, so a caller resolving a reference cannot tell a packed object
// from a directly stored one.
package core
