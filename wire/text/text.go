package text

import (
	"strconv"
	"strings"

	"github.com/ValentinKolb/wiredoc/wire"
)

// Format is wire.Format for the YAML-subset text layout.
type Format struct{}

func New() *Format { return &Format{} }

func (*Format) Name() string { return "text" }

func (f *Format) NewWriter(w *wire.Wire) wire.Writer { return &writer{w: w} }

func (f *Format) NewReader(w *wire.Wire) wire.Reader {
	data, rerr := readAll(w)
	var entries []wire.MapEntry
	perr := rerr
	if rerr == nil {
		entries, perr = parseDocument(data)
	}
	scanNext := func() (wire.MapEntry, bool, error) {
		if perr != nil {
			err := perr
			perr = nil
			return wire.MapEntry{}, false, err
		}
		if len(entries) == 0 {
			return wire.MapEntry{}, false, nil
		}
		e := entries[0]
		entries = entries[1:]
		return e, true, nil
	}
	return newReader(scanNext)
}

func readAll(w *wire.Wire) ([]byte, error) {
	buf := make([]byte, w.Store.ReadRemaining())
	if _, err := w.Store.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writer is the top-level document Writer: one "name: value\n" line per
// field, in call order.
type writer struct {
	w     *wire.Wire
	wrote bool
}

func (wr *writer) WriteField(f wire.Field) wire.ValueOut {
	name := fieldName(f)
	// Self-describing discovery rule (spec.md §4.4): the first content
	// byte must be printable ASCII so a polymorphic reader can tell text
	// from binary by its leading byte.
	if !wr.wrote && (len(name) == 0 || name[0] < 0x20 || name[0] >= 0x80) {
		if err := writeRaw(wr.w, " "); err != nil {
			return &errValueOut{err: err}
		}
	}
	wr.wrote = true
	if err := writeRaw(wr.w, name+": "); err != nil {
		return &errValueOut{err: err}
	}
	return &valueOut{w: wr.w, term: "\n"}
}

func (wr *writer) Close() error { return nil }

func fieldName(f wire.Field) string {
	if f.Kind == wire.FieldNumber {
		return strconv.FormatInt(f.Number, 10)
	}
	return f.Name
}

func writeRaw(w *wire.Wire, s string) error {
	_, err := w.Store.Write([]byte(s))
	return err
}

type errValueOut struct{ err error }

func (e *errValueOut) Null() error                                    { return e.err }
func (e *errValueOut) Bool(bool) error                                { return e.err }
func (e *errValueOut) Int8(int8) error                                { return e.err }
func (e *errValueOut) Int16(int16) error                              { return e.err }
func (e *errValueOut) Int32(int32) error                              { return e.err }
func (e *errValueOut) Int64(int64) error                              { return e.err }
func (e *errValueOut) Float32(float32) error                          { return e.err }
func (e *errValueOut) Float64(float64) error                          { return e.err }
func (e *errValueOut) Text(string) error                              { return e.err }
func (e *errValueOut) Enum(string) error                              { return e.err }
func (e *errValueOut) Bytes([]byte) error                             { return e.err }
func (e *errValueOut) TypedObject(string, wire.WriterFunc) error      { return e.err }
func (e *errValueOut) Sequence(func(wire.SequenceOut) error) error    { return e.err }
func (e *errValueOut) BoundScalar(int, int64) (*wire.BoundRef, error) { return nil, e.err }

// valueOut renders one value; term is appended after the rendered text -
// "\n" for a top-level field, "" for a field nested inside an inline
// sequence or typed object, where the enclosing bracket/brace carries the
// separator instead.
type valueOut struct {
	w    *wire.Wire
	term string
}

func (v *valueOut) emit(s string) error { return writeRaw(v.w, s+v.term) }

func (v *valueOut) Null() error { return v.emit("null") }

func (v *valueOut) Bool(b bool) error {
	if b {
		return v.emit("true")
	}
	return v.emit("false")
}

func (v *valueOut) Int8(n int8) error   { return v.emit(strconv.FormatInt(int64(n), 10)) }
func (v *valueOut) Int16(n int16) error { return v.emit(strconv.FormatInt(int64(n), 10)) }
func (v *valueOut) Int32(n int32) error { return v.emit(strconv.FormatInt(int64(n), 10)) }
func (v *valueOut) Int64(n int64) error { return v.emit(strconv.FormatInt(n, 10)) }

func (v *valueOut) Float32(f float32) error {
	return v.emit(strconv.FormatFloat(float64(f), 'g', -1, 32))
}
func (v *valueOut) Float64(f float64) error {
	return v.emit(strconv.FormatFloat(f, 'g', -1, 64))
}

func (v *valueOut) Text(s string) error { return v.emit(renderScalarText(s)) }
func (v *valueOut) Enum(s string) error { return v.emit(renderScalarText(s)) }

// renderScalarText writes s bare when it can be read back unambiguously
// (matches scenario 1's "Hello World" and "SECONDS" emitted unquoted),
// quoting only when that would be lossy or ambiguous with another scalar
// kind.
func renderScalarText(s string) string {
	if needsQuote(s) {
		return quoteString(s)
	}
	return s
}

func needsQuote(s string) bool {
	if s == "" || s == "true" || s == "false" || s == "null" {
		return true
	}
	if strings.ContainsAny(s, "\n\"[]{},") {
		return true
	}
	if s[0] == ' ' || s[len(s)-1] == ' ' {
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return false
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (v *valueOut) Bytes(b []byte) error {
	return v.emit(quoteString(encodeBytes(b)))
}

func (v *valueOut) TypedObject(alias string, write wire.WriterFunc) error {
	if err := writeRaw(v.w, "!"+alias+" {"); err != nil {
		return err
	}
	if err := write(&fieldWriter{w: v.w}); err != nil {
		return err
	}
	return writeRaw(v.w, "}"+v.term)
}

func (v *valueOut) Sequence(write func(seq wire.SequenceOut) error) error {
	if err := writeRaw(v.w, "["); err != nil {
		return err
	}
	if err := write(&sequenceWriter{w: v.w}); err != nil {
		return err
	}
	return writeRaw(v.w, "]"+v.term)
}

// BoundScalar is not supported: spec.md §4.4 notes text bodies support
// neither random access nor in-place update.
func (v *valueOut) BoundScalar(int, int64) (*wire.BoundRef, error) {
	return nil, wire.ErrIllegalArgument
}

// fieldWriter renders the comma-separated "name: value" pairs inside an
// inline typed-object's braces.
type fieldWriter struct {
	w     *wire.Wire
	wrote bool
}

func (fw *fieldWriter) WriteField(f wire.Field) wire.ValueOut {
	sep := ""
	if fw.wrote {
		sep = ", "
	}
	fw.wrote = true
	if err := writeRaw(fw.w, sep+fieldName(f)+": "); err != nil {
		return &errValueOut{err: err}
	}
	return &valueOut{w: fw.w, term: ""}
}

func (fw *fieldWriter) Close() error { return nil }

// sequenceWriter renders the comma-separated elements inside an inline
// sequence's brackets.
type sequenceWriter struct {
	w     *wire.Wire
	wrote bool
}

func (sw *sequenceWriter) Element() wire.ValueOut {
	sep := ""
	if sw.wrote {
		sep = ", "
	}
	sw.wrote = true
	if err := writeRaw(sw.w, sep); err != nil {
		return &errValueOut{err: err}
	}
	return &valueOut{w: sw.w, term: ""}
}

// reader drives a FieldCursor over entries already parsed from the whole
// document body, since text bodies offer no incremental/random access
// (spec.md §4.4).
type reader struct{ cursor *wire.FieldCursor }

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
	if err != nil || !ok {
		return wire.Field{}, nil, false, err
	}
	return e.Field, &valueIn{value: e.Value}, true, nil
}

func (r *reader) Residual() ([]wire.MapEntry, error) { return r.cursor.Residual() }

func (r *reader) OnUnknown(sink func(wire.Field, wire.Value)) { r.cursor.OnUnknown(sink) }

func mappingScanNext(entries []wire.MapEntry) func() (wire.MapEntry, bool, error) {
	return func() (wire.MapEntry, bool, error) {
		if len(entries) == 0 {
			return wire.MapEntry{}, false, nil
		}
		e := entries[0]
		entries = entries[1:]
		return e, true, nil
	}
}

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
	case wire.KindFloat64:
		return float32(v.value.Float64), nil
	case wire.KindFloat32:
		return v.value.Float32, nil
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
	if v.value.Kind != wire.KindString {
		return nil, wire.ErrSchemaMismatch
	}
	return decodeBytes(v.value.Str)
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

// BoundScalar is not supported for the same reason as valueOut's.
func (v *valueIn) BoundScalar(*wire.BoundRef) (*wire.BoundRef, error) {
	return nil, wire.ErrIllegalArgument
}

func (v *valueIn) Value() (wire.Value, error) { return v.value, nil }

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
