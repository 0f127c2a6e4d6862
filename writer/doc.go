// Package writer serializes an object store to PDF bytes.
//
// Two byte layouts are supported. The classic layout writes every indirect
// object in full, followed by a cross-reference table and a trailer
// dictionary. The object-stream layout packs non-stream objects into
// Flate-compressed /ObjStm containers and replaces the table and trailer
// with a cross-reference stream, producing smaller output that requires a
// PDF 1.5 reader.
//
// Only objects reachable from the trailer references (Root, Info, Encrypt)
// are written; orphaned objects left in the store by page removal are
// silently omitted.
package writer
