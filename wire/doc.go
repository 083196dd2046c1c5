// Package wire implements the document framing and format-agnostic value
// codec described in spec.md: a framed stream of meta-data/data documents
// over a store.ByteStore, a codec surface (Field/Value/ValueOut/ValueIn)
// driven by a pluggable Format, and BoundRef handles onto fixed-width
// scalars inside a written document.
//
// A Wire wraps one store.ByteStore and owns the framing state
// (write cursor bookkeeping, HeaderNumber, the insideHeader/startUse
// single-writer scope); a Format builds its readers and writers over a
// Wire. Concrete formats live in the wire/text, wire/binary and wire/raw
// subpackages.
package wire
