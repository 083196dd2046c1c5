package wire

// Header is the 32-bit word that introduces every document in a stream
// (spec.md §3). The top bit marks a slot as reserved-but-not-committed
// ("not complete"); the next bit marks a committed document as meta-data
// rather than data; the low 30 bits hold the body length. A committed,
// ready header therefore never has the top bit set - only reservations and
// the END_OF_DATA terminator do. This mirrors the original implementation
// in original_source/ (AbstractWire.writeHeader/updateHeader), which is the
// authority for this encoding: spec.md's prose description of "bit 31 =
// ready" is reconciled here against what the CAS sequences in the original
// actually do.
type Header uint32

const (
	// notCompleteBit (bit 31) set means the slot is reserved but not yet
	// committed, or is the END_OF_DATA terminator. Clear means ready
	// (subject to the NotInitialized special case below).
	notCompleteBit = uint32(1) << 31
	// metaBit (bit 30) set on a committed header means the document is
	// meta-data rather than data.
	metaBit = uint32(1) << 30

	// lengthMask isolates bits 0..29, the body length.
	lengthMask = uint32(0x3FFF_FFFF)

	// UnknownLength requests that writeHeader/writeHeader0 reserve the
	// largest possible body and let updateHeader adopt the actual
	// length written. Numerically identical to MaxLength, as in the
	// original.
	UnknownLength = int32(lengthMask)
	// MaxLength is the largest representable body length.
	MaxLength = int32(lengthMask)

	// NotInitialized marks a slot that has never been reserved.
	NotInitialized uint32 = 0x0000_0000
	// NotCompleteUnknownLength is the sentinel writeFirstHeader CASes
	// into offset 0: reserved, length not yet known.
	NotCompleteUnknownLength uint32 = notCompleteBit
	// EndOfData is the terminal sentinel written by WriteEndOfWire.
	EndOfData uint32 = notCompleteBit | metaBit
)

// HeaderType is the outcome of peeking a header: nothing ready yet, a
// ready meta-data document, or a ready data document.
type HeaderType int

const (
	HeaderNone HeaderType = iota
	HeaderMeta
	HeaderData
)

func (t HeaderType) String() string {
	switch t {
	case HeaderMeta:
		return "META"
	case HeaderData:
		return "DATA"
	default:
		return "NONE"
	}
}

// isReady reports whether h is a committed header (data, meta-data, or the
// NotInitialized sentinel - callers must check NotInitialized separately).
func isReady(h uint32) bool { return h&notCompleteBit == 0 }

func isMetaData(h uint32) bool { return isReady(h) && h != NotInitialized && h&metaBit != 0 }
func isData(h uint32) bool     { return isReady(h) && h != NotInitialized && h&metaBit == 0 }
func isNotComplete(h uint32) bool {
	return h&notCompleteBit != 0 && h != EndOfData
}
func lengthOf(h uint32) int32 { return int32(h & lengthMask) }

// reservation composes the not-ready placeholder CASed into a slot while a
// writer owns it but hasn't committed yet.
func reservation(length int32) uint32 {
	return notCompleteBit | (uint32(length) & lengthMask)
}

// commitHeader composes the ready header written at updateHeader /
// updateFirstHeader time.
func commitHeader(length int32, meta bool) uint32 {
	h := uint32(length) & lengthMask
	if meta {
		h |= metaBit
	}
	return h
}
