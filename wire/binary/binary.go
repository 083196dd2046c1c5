package binary

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/ValentinKolb/wiredoc/wire"
)

// Tag byte ranges and values. The field-name and typed-string ranges below
// match the bytes observed in spec.md §8's worked scenarios (the field-name
// range differs from §4.5's prose table; see DESIGN.md). The remaining single-byte tags (bool, null, bytes, long-text) are
// not exercised by any golden scenario; they occupy otherwise-unused slots
// in the 0xB0-0xBF block next to the one exercised tag there (typed
// marshallable, 0xB6) and are documented extension points per spec.md §9.
const (
	tagFieldBase = 0xC0 // field name, length = tag-tagFieldBase, 0..31
	tagFieldMax  = tagFieldBase + 0x1F

	tagTextBase = 0xE0 // text/enum scalar, length = tag-tagTextBase, 0..15
	tagTextMax  = tagTextBase + 0x0F

	tagInt8  = 0xA0
	tagInt16 = 0xA1
	tagInt32 = 0xA3 // confirmed by spec.md §8 scenario 2 ("number")
	tagInt64 = 0xA4

	tagFloat32 = 0x90 // confirmed by scenario 2 ("price", narrowed from float64)
	tagFloat64 = 0x91

	tagBoolFalse         = 0xB3
	tagBoolTrue          = 0xB4
	tagNull              = 0xB5
	tagTypedMarshallable = 0xB6 // confirmed by scenario 4
	tagBytes             = 0xB7
	tagTextLong          = 0xB8

	// tagNestedDoc introduces a u32-LE-length-prefixed byte range: the
	// body of a typed marshallable (scenario 4) or, standing alone, a
	// sequence of values.
	tagNestedDoc = 0x82
)

// Format is wire.Format for the self-describing tagged binary layout.
type Format struct{}

func New() *Format { return &Format{} }

func (*Format) Name() string { return "binary" }

func (f *Format) NewWriter(w *wire.Wire) wire.Writer { return &writer{w: w} }

func (f *Format) NewReader(w *wire.Wire) wire.Reader {
	return newReader(func() (wire.MapEntry, bool, error) {
		if w.Store.ReadRemaining() <= 0 {
			return wire.MapEntry{}, false, nil
		}
		field, err := decodeFieldTag(w)
		if err != nil {
			return wire.MapEntry{}, false, err
		}
		val, err := decodeValue(w)
		if err != nil {
			return wire.MapEntry{}, false, err
		}
		return wire.MapEntry{Field: field, Value: val}, true, nil
	})
}

// writer is the field-level Writer bound to a document body being written
// in binary form.
type writer struct{ w *wire.Wire }

func (wr *writer) WriteField(f wire.Field) wire.ValueOut {
	if err := writeFieldTag(wr.w, f); err != nil {
		return &errValueOut{err: err}
	}
	return &valueOut{w: wr.w}
}

func (wr *writer) Close() error { return nil }

func writeFieldTag(w *wire.Wire, f wire.Field) error {
	name := f.Name
	if f.Kind == wire.FieldNumber {
		name = strconv.FormatInt(f.Number, 10)
	}
	if len(name) > 0x1F {
		return wire.ErrIllegalArgument
	}
	if err := w.Store.WriteByte(byte(tagFieldBase + len(name))); err != nil {
		return err
	}
	_, err := w.Store.Write([]byte(name))
	return err
}

// errValueOut is returned by WriteField when the field tag itself could
// not be written, so the sticky error still surfaces on the first value
// method the caller invokes instead of silently being swallowed.
type errValueOut struct{ err error }

func (e *errValueOut) Null() error                                      { return e.err }
func (e *errValueOut) Bool(bool) error                                  { return e.err }
func (e *errValueOut) Int8(int8) error                                  { return e.err }
func (e *errValueOut) Int16(int16) error                                { return e.err }
func (e *errValueOut) Int32(int32) error                                { return e.err }
func (e *errValueOut) Int64(int64) error                                { return e.err }
func (e *errValueOut) Float32(float32) error                            { return e.err }
func (e *errValueOut) Float64(float64) error                            { return e.err }
func (e *errValueOut) Text(string) error                                { return e.err }
func (e *errValueOut) Enum(string) error                                { return e.err }
func (e *errValueOut) Bytes([]byte) error                               { return e.err }
func (e *errValueOut) TypedObject(string, wire.WriterFunc) error        { return e.err }
func (e *errValueOut) Sequence(func(wire.SequenceOut) error) error      { return e.err }
func (e *errValueOut) BoundScalar(int, int64) (*wire.BoundRef, error)   { return nil, e.err }

type valueOut struct{ w *wire.Wire }

func (v *valueOut) Null() error { return v.w.Store.WriteByte(tagNull) }

func (v *valueOut) Bool(b bool) error {
	if b {
		return v.w.Store.WriteByte(tagBoolTrue)
	}
	return v.w.Store.WriteByte(tagBoolFalse)
}

func (v *valueOut) Int8(n int8) error   { return writeInt(v.w, int64(n)) }
func (v *valueOut) Int16(n int16) error { return writeInt(v.w, int64(n)) }
func (v *valueOut) Int32(n int32) error { return writeInt(v.w, int64(n)) }
func (v *valueOut) Int64(n int64) error { return writeInt(v.w, n) }

// writeInt narrows every integer write to the smallest representation that
// round-trips the value: a bare byte for 0..127, else a tagged int8/16/32/64
// form - the behaviour confirmed by scenario 2, where a declared int64 of
// 1234567890 is emitted as a tagged int32.
func writeInt(w *wire.Wire, n int64) error {
	if n >= 0 && n <= 0x7F {
		return w.Store.WriteByte(byte(n))
	}
	switch widthFor(n) {
	case 1:
		if err := w.Store.WriteByte(tagInt8); err != nil {
			return err
		}
		return w.Store.WriteByte(byte(n))
	case 2:
		if err := w.Store.WriteByte(tagInt16); err != nil {
			return err
		}
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n))
		_, err := w.Store.Write(b[:])
		return err
	case 4:
		if err := w.Store.WriteByte(tagInt32); err != nil {
			return err
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n))
		_, err := w.Store.Write(b[:])
		return err
	default:
		if err := w.Store.WriteByte(tagInt64); err != nil {
			return err
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(n))
		_, err := w.Store.Write(b[:])
		return err
	}
}

func widthFor(v int64) int {
	switch {
	case v >= -128 && v <= 127:
		return 1
	case v >= -32768 && v <= 32767:
		return 2
	case v >= -(1<<31) && v <= (1<<31)-1:
		return 4
	default:
		return 8
	}
}

func (v *valueOut) Float32(f float32) error {
	if err := v.w.Store.WriteByte(tagFloat32); err != nil {
		return err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
	_, err := v.w.Store.Write(b[:])
	return err
}

func (v *valueOut) Float64(f float64) error {
	if float64(float32(f)) == f {
		return v.Float32(float32(f))
	}
	if err := v.w.Store.WriteByte(tagFloat64); err != nil {
		return err
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	_, err := v.w.Store.Write(b[:])
	return err
}

func (v *valueOut) Text(s string) error { return writeText(v.w, s) }
func (v *valueOut) Enum(s string) error { return writeText(v.w, s) }

func writeText(w *wire.Wire, s string) error {
	if len(s) <= 0x0F {
		if err := w.Store.WriteByte(byte(tagTextBase + len(s))); err != nil {
			return err
		}
		_, err := w.Store.Write([]byte(s))
		return err
	}
	if err := w.Store.WriteByte(tagTextLong); err != nil {
		return err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	if _, err := w.Store.Write(b[:]); err != nil {
		return err
	}
	_, err := w.Store.Write([]byte(s))
	return err
}

func (v *valueOut) Bytes(b []byte) error {
	if err := v.w.Store.WriteByte(tagBytes); err != nil {
		return err
	}
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(b)))
	if _, err := v.w.Store.Write(lb[:]); err != nil {
		return err
	}
	_, err := v.w.Store.Write(b)
	return err
}

// TypedObject writes tagTypedMarshallable, the alias, and then the body as
// a nested length-prefixed document, matching scenario 4 byte-for-byte.
func (v *valueOut) TypedObject(alias string, write wire.WriterFunc) error {
	if len(alias) > 0xFF {
		return wire.ErrIllegalArgument
	}
	if err := v.w.Store.WriteByte(tagTypedMarshallable); err != nil {
		return err
	}
	if err := v.w.Store.WriteByte(byte(len(alias))); err != nil {
		return err
	}
	if _, err := v.w.Store.Write([]byte(alias)); err != nil {
		return err
	}
	return writeNestedDoc(v.w, func() error {
		return write(&writer{w: v.w})
	})
}

// writeNestedDoc reserves a u32 length prefix after a tagNestedDoc byte,
// invokes body to fill it, then patches in the actual length.
func writeNestedDoc(w *wire.Wire, body func() error) error {
	if err := w.Store.WriteByte(tagNestedDoc); err != nil {
		return err
	}
	lenOffset := w.Store.WritePosition()
	var zero [4]byte
	if _, err := w.Store.Write(zero[:]); err != nil {
		return err
	}
	start := w.Store.WritePosition()
	if err := body(); err != nil {
		return err
	}
	end := w.Store.WritePosition()
	return w.Store.WriteOrderedInt(lenOffset, uint32(end-start))
}

func (v *valueOut) Sequence(write func(seq wire.SequenceOut) error) error {
	return writeNestedDoc(v.w, func() error {
		return write(&sequenceOut{w: v.w})
	})
}

type sequenceOut struct{ w *wire.Wire }

func (s *sequenceOut) Element() wire.ValueOut { return &valueOut{w: s.w} }

func (v *valueOut) BoundScalar(width int, initial int64) (*wire.BoundRef, error) {
	var tag byte
	switch width {
	case 4:
		tag = tagInt32
	case 8:
		tag = tagInt64
	default:
		return nil, wire.ErrIllegalArgument
	}
	if err := v.w.Store.WriteByte(tag); err != nil {
		return nil, err
	}
	return v.w.BoundScalar(width, initial)
}

// reader implements wire.Reader over a FieldCursor; the same type serves
// the top-level document reader (scanNext decodes straight off the wire)
// and nested typed-object readers (scanNext walks an in-memory slice
// already materialized by decodeValue).
type reader struct {
	cursor *wire.FieldCursor
}

func newReader(scanNext func() (wire.MapEntry, bool, error)) *reader {
	return &reader{cursor: wire.NewFieldCursor(scanNext)}
}

func (r *reader) ReadField(expected wire.Field) (wire.Field, wire.ValueIn, bool, error) {
	v, ok, err := r.cursor.Find(expected)
	if err != nil {
		return expected, nil, false, err
	}
	if !ok {
		return expected, &valueIn{value: wire.Missing}, false, nil
	}
	return expected, &valueIn{value: v}, true, nil
}

func (r *reader) ReadNext() (wire.Field, wire.ValueIn, bool, error) {
	e, ok, err := r.cursor.Next()
	if err != nil {
		return wire.Field{}, nil, false, err
	}
	if !ok {
		return wire.Field{}, nil, false, nil
	}
	return e.Field, &valueIn{value: e.Value}, true, nil
}

func (r *reader) Residual() ([]wire.MapEntry, error) { return r.cursor.Residual() }

func (r *reader) OnUnknown(sink func(wire.Field, wire.Value)) { r.cursor.OnUnknown(sink) }

func mappingScanNext(entries []wire.MapEntry) func() (wire.MapEntry, bool, error) {
	idx := 0
	return func() (wire.MapEntry, bool, error) {
		if idx >= len(entries) {
			return wire.MapEntry{}, false, nil
		}
		e := entries[idx]
		idx++
		return e, true, nil
	}
}

// valueIn wraps an already-materialized wire.Value. Every field read by
// this format - whether matched immediately or buffered during a lazy-match
// scan - is decoded eagerly by decodeValue, so there is only ever this one
// ValueIn implementation; tagged int32/int64 values additionally carry a
// live BoundRef (see decodeValue), so BoundScalar works even though the
// backing bytes may already have been passed over.
type valueIn struct{ value wire.Value }

func (v *valueIn) IsNull() bool { return v.value.Kind == wire.KindNull }

func (v *valueIn) Bool() (bool, error) {
	if v.value.Kind != wire.KindBool {
		return false, wire.ErrSchemaMismatch
	}
	return v.value.Bool, nil
}

func (v *valueIn) asInt() (int64, error) {
	switch v.value.Kind {
	case wire.KindInt8, wire.KindInt16, wire.KindInt32, wire.KindInt64:
		return v.value.Int, nil
	default:
		return 0, wire.ErrSchemaMismatch
	}
}

func (v *valueIn) Int8() (int8, error) {
	n, err := v.asInt()
	return int8(n), err
}
func (v *valueIn) Int16() (int16, error) {
	n, err := v.asInt()
	return int16(n), err
}
func (v *valueIn) Int32() (int32, error) {
	n, err := v.asInt()
	return int32(n), err
}
func (v *valueIn) Int64() (int64, error) { return v.asInt() }

func (v *valueIn) Float32() (float32, error) {
	switch v.value.Kind {
	case wire.KindFloat32:
		return v.value.Float32, nil
	case wire.KindFloat64:
		return float32(v.value.Float64), nil
	default:
		return 0, wire.ErrSchemaMismatch
	}
}

func (v *valueIn) Float64() (float64, error) {
	switch v.value.Kind {
	case wire.KindFloat64:
		return v.value.Float64, nil
	case wire.KindFloat32:
		return float64(v.value.Float32), nil
	default:
		return 0, wire.ErrSchemaMismatch
	}
}

func (v *valueIn) Text() (string, error) {
	if v.value.Kind != wire.KindString && v.value.Kind != wire.KindEnum {
		return "", wire.ErrSchemaMismatch
	}
	return v.value.Str, nil
}
func (v *valueIn) Enum() (string, error) { return v.Text() }

func (v *valueIn) Bytes() ([]byte, error) {
	if v.value.Kind != wire.KindBytes {
		return nil, wire.ErrSchemaMismatch
	}
	return v.value.Bytes, nil
}

func (v *valueIn) TypedObject(read func(alias string, r wire.Reader) error) error {
	if v.value.Kind != wire.KindTyped {
		return wire.ErrSchemaMismatch
	}
	var entries []wire.MapEntry
	if v.value.TypedValue != nil {
		entries = v.value.TypedValue.Mapping
	}
	return read(v.value.TypedTag, newReader(mappingScanNext(entries)))
}

func (v *valueIn) Sequence(read func(seq wire.SequenceIn) error) error {
	if v.value.Kind != wire.KindSequence {
		return wire.ErrSchemaMismatch
	}
	return read(&sequenceIn{elems: v.value.Sequence})
}

type sequenceIn struct {
	elems []wire.Value
	idx   int
}

func (s *sequenceIn) Next() (wire.ValueIn, bool, error) {
	if s.idx >= len(s.elems) {
		return nil, false, nil
	}
	e := s.elems[s.idx]
	s.idx++
	return &valueIn{value: e}, true, nil
}

func (v *valueIn) BoundScalar(existing *wire.BoundRef) (*wire.BoundRef, error) {
	if v.value.Bound == nil {
		return nil, wire.ErrSchemaMismatch
	}
	if existing == nil {
		return v.value.Bound, nil
	}
	*existing = *v.value.Bound
	return existing, nil
}

func (v *valueIn) Value() (wire.Value, error) { return v.value, nil }

func decodeFieldTag(w *wire.Wire) (wire.Field, error) {
	tag, err := w.Store.ReadByte()
	if err != nil {
		return wire.Field{}, err
	}
	if tag < tagFieldBase || tag > tagFieldMax {
		return wire.Field{}, wire.ErrStreamCorrupted
	}
	n := int(tag - tagFieldBase)
	buf := make([]byte, n)
	if err := readFull(w, buf); err != nil {
		return wire.Field{}, err
	}
	return wire.Named(string(buf)), nil
}

func decodeValue(w *wire.Wire) (wire.Value, error) {
	tag, err := w.Store.ReadByte()
	if err != nil {
		return wire.Value{}, err
	}

	if tag < 0x80 {
		return wire.Value{Kind: wire.KindInt8, Int: int64(tag)}, nil
	}
	if tag >= tagTextBase && tag <= tagTextMax {
		n := int(tag - tagTextBase)
		buf := make([]byte, n)
		if err := readFull(w, buf); err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Kind: wire.KindString, Str: string(buf)}, nil
	}

	switch tag {
	case tagNull:
		return wire.Value{Kind: wire.KindNull}, nil
	case tagBoolFalse:
		return wire.Value{Kind: wire.KindBool, Bool: false}, nil
	case tagBoolTrue:
		return wire.Value{Kind: wire.KindBool, Bool: true}, nil
	case tagInt8:
		b, err := w.Store.ReadByte()
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Kind: wire.KindInt8, Int: int64(int8(b))}, nil
	case tagInt16:
		var b [2]byte
		if err := readFull(w, b[:]); err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Kind: wire.KindInt16, Int: int64(int16(binary.LittleEndian.Uint16(b[:])))}, nil
	case tagInt32:
		pos := w.Store.ReadPosition()
		var b [4]byte
		if err := readFull(w, b[:]); err != nil {
			return wire.Value{}, err
		}
		n := int32(binary.LittleEndian.Uint32(b[:]))
		return wire.Value{Kind: wire.KindInt32, Int: int64(n), Bound: w.BoundRefAt(pos, 4)}, nil
	case tagInt64:
		pos := w.Store.ReadPosition()
		var b [8]byte
		if err := readFull(w, b[:]); err != nil {
			return wire.Value{}, err
		}
		n := int64(binary.LittleEndian.Uint64(b[:]))
		return wire.Value{Kind: wire.KindInt64, Int: n, Bound: w.BoundRefAt(pos, 8)}, nil
	case tagFloat32:
		var b [4]byte
		if err := readFull(w, b[:]); err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Kind: wire.KindFloat32, Float32: math.Float32frombits(binary.LittleEndian.Uint32(b[:]))}, nil
	case tagFloat64:
		var b [8]byte
		if err := readFull(w, b[:]); err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Kind: wire.KindFloat64, Float64: math.Float64frombits(binary.LittleEndian.Uint64(b[:]))}, nil
	case tagTextLong:
		var lb [4]byte
		if err := readFull(w, lb[:]); err != nil {
			return wire.Value{}, err
		}
		n := binary.LittleEndian.Uint32(lb[:])
		buf := make([]byte, n)
		if err := readFull(w, buf); err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Kind: wire.KindString, Str: string(buf)}, nil
	case tagBytes:
		var lb [4]byte
		if err := readFull(w, lb[:]); err != nil {
			return wire.Value{}, err
		}
		n := binary.LittleEndian.Uint32(lb[:])
		buf := make([]byte, n)
		if err := readFull(w, buf); err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Kind: wire.KindBytes, Bytes: buf}, nil
	case tagTypedMarshallable:
		aliasLen, err := w.Store.ReadByte()
		if err != nil {
			return wire.Value{}, err
		}
		aliasBuf := make([]byte, aliasLen)
		if err := readFull(w, aliasBuf); err != nil {
			return wire.Value{}, err
		}
		entries, err := decodeNestedFields(w)
		if err != nil {
			return wire.Value{}, err
		}
		body := wire.Value{Kind: wire.KindMapping, Mapping: entries}
		return wire.Value{Kind: wire.KindTyped, TypedTag: string(aliasBuf), TypedValue: &body}, nil
	case tagNestedDoc:
		elems, err := decodeNestedSequence(w)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Value{Kind: wire.KindSequence, Sequence: elems}, nil
	default:
		return wire.Value{}, wire.ErrStreamCorrupted
	}
}

// decodeNestedFields reads a tagNestedDoc-wrapped field sequence: the tag
// itself, a u32 length, then (field, value) pairs until the length is
// exhausted. Used for a typed marshallable's body (scenario 4).
func decodeNestedFields(w *wire.Wire) ([]wire.MapEntry, error) {
	tag, err := w.Store.ReadByte()
	if err != nil {
		return nil, err
	}
	if tag != tagNestedDoc {
		return nil, wire.ErrStreamCorrupted
	}
	var lb [4]byte
	if err := readFull(w, lb[:]); err != nil {
		return nil, err
	}
	n := int64(binary.LittleEndian.Uint32(lb[:]))
	end := w.Store.ReadPosition() + n
	var entries []wire.MapEntry
	for w.Store.ReadPosition() < end {
		f, err := decodeFieldTag(w)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(w)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wire.MapEntry{Field: f, Value: v})
	}
	return entries, nil
}

// decodeNestedSequence reads the body of a tagNestedDoc value used as a
// plain sequence: the tag byte has already been consumed by decodeValue's
// dispatch, so only the u32 length and the elements remain.
func decodeNestedSequence(w *wire.Wire) ([]wire.Value, error) {
	var lb [4]byte
	if err := readFull(w, lb[:]); err != nil {
		return nil, err
	}
	n := int64(binary.LittleEndian.Uint32(lb[:]))
	end := w.Store.ReadPosition() + n
	var elems []wire.Value
	for w.Store.ReadPosition() < end {
		v, err := decodeValue(w)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	return elems, nil
}

func readFull(w *wire.Wire, buf []byte) error {
	n, err := w.Store.Read(buf)
	if err != nil {
		return err
	}
	if n < len(buf) {
		return io.ErrUnexpectedEOF
	}
	return nil
}
