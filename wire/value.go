package wire

import "strconv"

// FieldKind distinguishes the three ways a Field can identify itself on the
// wire (spec.md §3 "Field").
type FieldKind int

const (
	// FieldAnonymous carries no identifier; only RawFormat uses it.
	FieldAnonymous FieldKind = iota
	// FieldName identifies by a UTF-8 name.
	FieldName
	// FieldNumber identifies by a small integer ordinal.
	FieldNumber
)

// Field is an identifier for a value written or read through the codec.
type Field struct {
	Kind   FieldKind
	Name   string
	Number int64
}

// Named constructs a name-identified Field.
func Named(name string) Field { return Field{Kind: FieldName, Name: name} }

// Numbered constructs an ordinal-identified Field.
func Numbered(n int64) Field { return Field{Kind: FieldNumber, Number: n} }

// Anonymous is the single anonymous Field value used by RawFormat.
var Anonymous = Field{Kind: FieldAnonymous}

func (f Field) String() string {
	switch f.Kind {
	case FieldName:
		return f.Name
	case FieldNumber:
		return strconv.FormatInt(f.Number, 10)
	default:
		return "<anonymous>"
	}
}

// ValueKind identifies which member of the closed Value union is present
// (spec.md §3 "Value").
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindEnum
	KindBytes
	KindSequence
	KindMapping
	KindTyped
	KindBound
	// KindMissing is the sentinel returned by ValueIn when a requested
	// field is absent (spec.md §4.3 "default-on-missing").
	KindMissing
)

// Value is the codec's logical value universe. Exactly one field is
// meaningful per Kind; Value is produced by ValueIn reads and is also the
// type used by text_parse/binary_parse/raw_parse in the round-trip
// properties of spec.md §8.
type Value struct {
	Kind ValueKind

	Bool    bool
	Int     int64   // holds Int8..Int64, sign-extended
	Float32 float32
	Float64 float64
	Str     string // holds String and Enum
	Bytes   []byte

	Sequence []Value
	Mapping  []MapEntry

	TypedTag   string
	TypedValue *Value

	Bound *BoundRef
}

// MapEntry is one (Field, Value) pair of a KindMapping Value, preserving
// on-wire order (spec.md §4.3 "unknown-field retention").
type MapEntry struct {
	Field Field
	Value Value
}

// Missing is the sentinel Value returned for an absent requested field.
var Missing = Value{Kind: KindMissing}

// IsMissing reports whether v is the missing-field sentinel.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }
