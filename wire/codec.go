package wire

// WriterFunc is a user-supplied callback that drives a Writer to emit one
// typed object's fields. ReaderFunc is its read-side counterpart. Together
// they replace reflective marshalling (spec.md §9 "Reflective marshalling
// of arbitrary user types"): the core never inspects a user type, it only
// invokes the pair registered for its alias.
type WriterFunc func(w Writer) error
type ReaderFunc func(r Reader) error

// SequenceOut receives one element write per call to Element.
type SequenceOut interface {
	Element() ValueOut
}

// SequenceIn yields one element read per call to Next, reporting false once
// the sequence is exhausted.
type SequenceIn interface {
	Next() (ValueIn, bool, error)
}

// ValueOut is the writer-side surface over a single field's value
// (spec.md §4.3). Exactly one method should be called per value.
type ValueOut interface {
	Null() error
	Bool(v bool) error
	Int8(v int8) error
	Int16(v int16) error
	Int32(v int32) error
	Int64(v int64) error
	Float32(v float32) error
	Float64(v float64) error
	Text(v string) error
	Enum(symbol string) error
	Bytes(v []byte) error
	// TypedObject writes alias followed by the body write's fields through
	// the given callback, wrapped per the active Format's tagging scheme.
	TypedObject(alias string, write WriterFunc) error
	// Sequence writes a sequence of elements, each emitted by one call to
	// write's SequenceOut.Element.
	Sequence(write func(seq SequenceOut) error) error
	// BoundScalar writes a fixed-width scalar seeded with initial and
	// returns a BoundRef to it, relative to the document body's start.
	BoundScalar(width int, initial int64) (*BoundRef, error)
}

// ValueIn is the reader-side surface over a single field's value.
type ValueIn interface {
	IsNull() bool
	Bool() (bool, error)
	Int8() (int8, error)
	Int16() (int16, error)
	Int32() (int32, error)
	Int64() (int64, error)
	Float32() (float32, error)
	Float64() (float64, error)
	Text() (string, error)
	Enum() (string, error)
	Bytes() ([]byte, error)
	// TypedObject invokes read with the alias recorded by the writer and
	// a Reader positioned at the body's start.
	TypedObject(read func(alias string, r Reader) error) error
	Sequence(read func(seq SequenceIn) error) error
	// BoundScalar seeks the next fixed-width scalar. If existing is
	// non-nil it is updated in place and returned; otherwise a new
	// BoundRef is allocated.
	BoundScalar(existing *BoundRef) (*BoundRef, error)
	// Value materializes the field as a generic Value, for residual
	// enumeration and cross-format conversion.
	Value() (Value, error)
}

// Writer is the field-level writer surface a Format exposes over a
// reserved document body.
type Writer interface {
	WriteField(f Field) ValueOut
	// Close finalizes any trailing bytes the format needs (padding,
	// closing brackets). Most formats are no-ops here.
	Close() error
}

// Reader is the field-level reader surface. ReadField implements the
// lazy-match algorithm of spec.md §4.3: if the next on-wire field isn't
// expected, the reader scans forward, buffering skipped fields for later
// retrieval by name/number or by Residual.
type Reader interface {
	// ReadField looks for expected. If found, (expected, its ValueIn, true,
	// nil) is returned. If the body is exhausted without finding it,
	// (expected, Missing-backed ValueIn, false, nil) is returned so the
	// caller can apply a default.
	ReadField(expected Field) (Field, ValueIn, bool, error)
	// ReadNext reads the next field in on-wire order, whether or not it
	// was already buffered by an earlier ReadField miss. ok is false at
	// end of body.
	ReadNext() (Field, ValueIn, bool, error)
	// Residual drains every field not yet consumed, in on-wire order
	// (spec.md §4.3 "unknown-field retention").
	Residual() ([]MapEntry, error)
	// OnUnknown registers a sink invoked for every field skipped while
	// searching for an expected field, before it's known whether the
	// caller will ever ask for it via Residual.
	OnUnknown(sink func(Field, Value))
}

// Format is the interface TextFormat, BinaryFormat and RawFormat each
// implement over a Wire whose read or write window is already bounded to
// one document's body (spec.md §4.4–§4.6).
type Format interface {
	// Name identifies the format for diagnostics and cross-format checks.
	Name() string
	// NewWriter returns a Writer bound to w's current write window.
	NewWriter(w *Wire) Writer
	// NewReader returns a Reader bound to w's current read window.
	NewReader(w *Wire) Reader
}

func fieldsEqual(a, b Field) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case FieldName:
		return a.Name == b.Name
	case FieldNumber:
		return a.Number == b.Number
	default:
		return true
	}
}

// FieldCursor implements the reorder-buffer / lazy-match / residual
// enumeration algorithm shared by TextFormat and BinaryFormat readers
// (spec.md §4.3). RawFormat has no field identifiers and never uses it.
// ScanNext decodes the next (Field, Value) pair from the underlying wire
// format, reporting ok=false at end of body. Exported so the text and
// binary format packages can share one implementation instead of each
// re-deriving the lazy-match algorithm.
type FieldCursor struct {
	pending  []MapEntry
	ScanNext func() (MapEntry, bool, error)
	sink     func(Field, Value)
}

func NewFieldCursor(scanNext func() (MapEntry, bool, error)) *FieldCursor {
	return &FieldCursor{ScanNext: scanNext}
}

func (c *FieldCursor) OnUnknown(sink func(Field, Value)) { c.sink = sink }

// Find looks for f first in the buffered entries, then by scanning
// forward, buffering every field it passes over that isn't f.
func (c *FieldCursor) Find(f Field) (Value, bool, error) {
	for i, e := range c.pending {
		if fieldsEqual(e.Field, f) {
			c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
			return e.Value, true, nil
		}
	}
	for {
		e, ok, err := c.ScanNext()
		if err != nil {
			return Value{}, false, err
		}
		if !ok {
			return Value{}, false, nil
		}
		if fieldsEqual(e.Field, f) {
			return e.Value, true, nil
		}
		if c.sink != nil {
			c.sink(e.Field, e.Value)
		}
		c.pending = append(c.pending, e)
	}
}

// Next returns the next field in on-wire order: the oldest buffered entry
// if any, otherwise the next scanned one.
func (c *FieldCursor) Next() (MapEntry, bool, error) {
	if len(c.pending) > 0 {
		e := c.pending[0]
		c.pending = c.pending[1:]
		return e, true, nil
	}
	return c.ScanNext()
}

func (c *FieldCursor) Residual() ([]MapEntry, error) {
	out := append([]MapEntry(nil), c.pending...)
	c.pending = nil
	for {
		e, ok, err := c.ScanNext()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, e)
	}
}
