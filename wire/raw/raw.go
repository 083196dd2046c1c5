package raw

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/ValentinKolb/wiredoc/wire"
)

// shortStringMax is the largest string length the one-byte length form can
// hold; 0xFF is reserved as the escape to the u16-length form (spec.md §4.6
// "lengths ≥ 256 are not supported by short-string form").
const shortStringMax = 0xFE
const longStringMarker = 0xFF

// Format is wire.Format for the field-less, positional layout.
type Format struct{}

func New() *Format { return &Format{} }

func (*Format) Name() string { return "raw" }

func (f *Format) NewWriter(w *wire.Wire) wire.Writer { return &writer{w: w} }
func (f *Format) NewReader(w *wire.Wire) wire.Reader { return &reader{w: w} }

type writer struct{ w *wire.Wire }

// WriteField ignores f: RawFormat carries no field identifiers, only a
// strict value sequence (spec.md §4.6).
func (wr *writer) WriteField(wire.Field) wire.ValueOut { return &valueOut{w: wr.w} }
func (wr *writer) Close() error                        { return nil }

type valueOut struct{ w *wire.Wire }

func (v *valueOut) Null() error { return nil }

func (v *valueOut) Bool(b bool) error {
	if b {
		return v.w.Store.WriteByte(1)
	}
	return v.w.Store.WriteByte(0)
}

func (v *valueOut) Int8(n int8) error { return v.w.Store.WriteByte(byte(n)) }

func (v *valueOut) Int16(n int16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(n))
	_, err := v.w.Store.Write(b[:])
	return err
}

func (v *valueOut) Int32(n int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	_, err := v.w.Store.Write(b[:])
	return err
}

func (v *valueOut) Int64(n int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	_, err := v.w.Store.Write(b[:])
	return err
}

func (v *valueOut) Float32(f float32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
	_, err := v.w.Store.Write(b[:])
	return err
}

func (v *valueOut) Float64(f float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	_, err := v.w.Store.Write(b[:])
	return err
}

func (v *valueOut) Text(s string) error { return writeString(v.w, s) }
func (v *valueOut) Enum(s string) error { return writeString(v.w, s) }

func writeString(w *wire.Wire, s string) error {
	n := len(s)
	if n <= shortStringMax {
		if err := w.Store.WriteByte(byte(n)); err != nil {
			return err
		}
	} else {
		if err := w.Store.WriteByte(longStringMarker); err != nil {
			return err
		}
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n))
		if _, err := w.Store.Write(b[:]); err != nil {
			return err
		}
	}
	_, err := w.Store.Write([]byte(s))
	return err
}

func (v *valueOut) Bytes(b []byte) error {
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(b)))
	if _, err := v.w.Store.Write(lb[:]); err != nil {
		return err
	}
	_, err := v.w.Store.Write(b)
	return err
}

func (v *valueOut) TypedObject(alias string, write wire.WriterFunc) error {
	if len(alias) > 255 {
		return wire.ErrIllegalArgument
	}
	if err := v.w.Store.WriteByte(byte(len(alias))); err != nil {
		return err
	}
	if _, err := v.w.Store.Write([]byte(alias)); err != nil {
		return err
	}
	return write(&writer{w: v.w})
}

func (v *valueOut) Sequence(write func(seq wire.SequenceOut) error) error {
	// The length is discovered only after writing, so sequences are
	// written to a temporary count-then-fill two-pass scheme: reserve the
	// u32, write elements, then patch the count via an ordered store.
	countOffset := v.w.Store.WritePosition()
	var zero [4]byte
	if _, err := v.w.Store.Write(zero[:]); err != nil {
		return err
	}
	count := 0
	seq := &sequenceOut{w: v.w, count: &count}
	if err := write(seq); err != nil {
		return err
	}
	return v.w.Store.WriteOrderedInt(countOffset, uint32(count))
}

func (v *valueOut) BoundScalar(width int, initial int64) (*wire.BoundRef, error) {
	return v.w.BoundScalar(width, initial)
}

type sequenceOut struct {
	w     *wire.Wire
	count *int
}

func (s *sequenceOut) Element() wire.ValueOut {
	*s.count++
	return &valueOut{w: s.w}
}

type reader struct{ w *wire.Wire }

func (r *reader) ReadField(expected wire.Field) (wire.Field, wire.ValueIn, bool, error) {
	return expected, &valueIn{w: r.w}, true, nil
}

func (r *reader) ReadNext() (wire.Field, wire.ValueIn, bool, error) {
	if r.w.Store.ReadRemaining() <= 0 {
		return wire.Anonymous, nil, false, nil
	}
	return wire.Anonymous, &valueIn{w: r.w}, true, nil
}

func (r *reader) Residual() ([]wire.MapEntry, error) { return nil, nil }
func (r *reader) OnUnknown(func(wire.Field, wire.Value)) {}

type valueIn struct{ w *wire.Wire }

func (v *valueIn) IsNull() bool { return false }

func (v *valueIn) Bool() (bool, error) {
	b, err := v.w.Store.ReadByte()
	return b != 0, err
}

func (v *valueIn) Int8() (int8, error) {
	b, err := v.w.Store.ReadByte()
	return int8(b), err
}

func (v *valueIn) Int16() (int16, error) {
	var b [2]byte
	if err := readFull(v.w, b[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b[:])), nil
}

func (v *valueIn) Int32() (int32, error) {
	var b [4]byte
	if err := readFull(v.w, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func (v *valueIn) Int64() (int64, error) {
	var b [8]byte
	if err := readFull(v.w, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func (v *valueIn) Float32() (float32, error) {
	var b [4]byte
	if err := readFull(v.w, b[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b[:])), nil
}

func (v *valueIn) Float64() (float64, error) {
	var b [8]byte
	if err := readFull(v.w, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}

func (v *valueIn) Text() (string, error)  { return readString(v.w) }
func (v *valueIn) Enum() (string, error) { return readString(v.w) }

func readString(w *wire.Wire) (string, error) {
	lb, err := w.Store.ReadByte()
	if err != nil {
		return "", err
	}
	n := int(lb)
	if lb == longStringMarker {
		var b [2]byte
		if err := readFull(w, b[:]); err != nil {
			return "", err
		}
		n = int(binary.LittleEndian.Uint16(b[:]))
	}
	buf := make([]byte, n)
	if err := readFull(w, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (v *valueIn) Bytes() ([]byte, error) {
	var lb [4]byte
	if err := readFull(v.w, lb[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lb[:])
	buf := make([]byte, n)
	if err := readFull(v.w, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (v *valueIn) TypedObject(read func(alias string, r wire.Reader) error) error {
	lb, err := v.w.Store.ReadByte()
	if err != nil {
		return err
	}
	alias := make([]byte, lb)
	if err := readFull(v.w, alias); err != nil {
		return err
	}
	return read(string(alias), &reader{w: v.w})
}

func (v *valueIn) Sequence(read func(seq wire.SequenceIn) error) error {
	var b [4]byte
	if err := readFull(v.w, b[:]); err != nil {
		return err
	}
	n := int(binary.LittleEndian.Uint32(b[:]))
	return read(&sequenceIn{w: v.w, remaining: n})
}

func (v *valueIn) BoundScalar(existing *wire.BoundRef) (*wire.BoundRef, error) {
	return v.w.ReadBoundScalar(existing)
}

func (v *valueIn) Value() (wire.Value, error) {
	return wire.Value{}, wire.ErrSchemaMismatch
}

type sequenceIn struct {
	w         *wire.Wire
	remaining int
}

func (s *sequenceIn) Next() (wire.ValueIn, bool, error) {
	if s.remaining <= 0 {
		return nil, false, nil
	}
	s.remaining--
	return &valueIn{w: s.w}, true, nil
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
