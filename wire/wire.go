package wire

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/wiredoc/classalias"
	"github.com/ValentinKolb/wiredoc/store"
)

// firstHeaderMaxLen is the 64 KiB ceiling on the stream's first (meta-data)
// document, per spec.md §3 "First document at offset 0 ... length ≤ 64 KiB".
const firstHeaderMaxLen = 64 * 1024

// UnsetHeaderNumber is the HeaderNumber value meaning "unknown", set after a
// skip-ahead jump in WriteHeader.
const UnsetHeaderNumber = int64(math.MinInt64)

// Wire is the AbstractWire-equivalent aggregate: a view over a ByteStore
// that knows how to frame documents and drives a Format's codec over their
// bodies. A Wire is not safe for concurrent use; StartUse/EndUse bracket the
// scope in which a single goroutine owns it (spec.md §5 "Scheduling model").
type Wire struct {
	Store   store.ByteStore
	Pauser  Pauser
	Aliases *classalias.Registry

	// Assertions gates the extra CAS-verify and post-end zero-check in
	// UpdateHeader (spec.md §9 "Assertion-mode branching").
	Assertions bool

	insideHeader bool
	headerStart  int64
	readBodyBase int64

	headerNumber int64

	// notCompleteIsNotPresent mirrors AbstractWire's constructor-time
	// notCompleteIsNotPresent = bytes.sharedMemory(): it is true on a
	// shared-memory store, where a not-yet-committed header might still be
	// finished by another process and so counts as "not present yet", and
	// false on a private, single-writer store.
	notCompleteIsNotPresent bool

	owner      int64
	ownerStack string
}

// New constructs a Wire over s. If aliases is nil, the process-wide default
// classalias.Registry is used.
func New(s store.ByteStore, p Pauser, aliases *classalias.Registry) *Wire {
	if aliases == nil {
		aliases = classalias.Default()
	}
	return &Wire{
		Store:                   s,
		Pauser:                  p,
		Aliases:                 aliases,
		notCompleteIsNotPresent: s.SharedMemory(),
		headerNumber:            0,
	}
}

// NotCompleteIsNotPresent reports the store's SharedMemory() value: true
// when a not-yet-ready header may still be completed by another process
// (shared-memory streams), false for private, single-writer streams.
// ReadDataHeader itself returns HeaderNone for any not-ready header either
// way; the flag mirrors AbstractWire's notCompleteIsNotPresent for callers.
func (w *Wire) NotCompleteIsNotPresent() bool { return w.notCompleteIsNotPresent }

// HeaderNumber returns the count of data documents this Wire has written or
// skipped since construction or the last SetHeaderNumber.
func (w *Wire) HeaderNumber() int64 { return w.headerNumber }

// SetHeaderNumber resynchronizes the counter, e.g. after recovery.
func (w *Wire) SetHeaderNumber(n int64) { w.headerNumber = n }

// goroutineID extracts the numeric id from the current goroutine's stack
// trace header ("goroutine 123 [running]:"). It exists only to give
// StartUse/EndUse something to compare against; it is not meant for
// scheduling decisions.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := string(buf[:n])
	line = strings.TrimPrefix(line, "goroutine ")
	if i := strings.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}
	id, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// StartUse captures the calling goroutine as this Wire's owner. A second
// StartUse from a different goroutine before a matching EndUse fails with
// ErrInUse, naming both goroutines.
func (w *Wire) StartUse() error {
	gid := goroutineID()
	if w.owner != 0 && w.owner != gid {
		return fmt.Errorf("%w: owned by goroutine %d, requested by goroutine %d\nacquired at:\n%s",
			ErrInUse, w.owner, gid, w.ownerStack)
	}
	if w.owner == 0 {
		var buf [4096]byte
		n := runtime.Stack(buf[:], false)
		w.ownerStack = string(buf[:n])
	}
	w.owner = gid
	return nil
}

// EndUse releases ownership captured by StartUse. Calling it from a
// goroutine other than the owner fails with ErrInUse.
func (w *Wire) EndUse() error {
	gid := goroutineID()
	if w.owner != gid {
		return fmt.Errorf("%w: ended by goroutine %d, owned by goroutine %d", ErrInUse, gid, w.owner)
	}
	w.owner = 0
	w.ownerStack = ""
	return nil
}

// WriteHeader reserves space for the next document (spec.md §4.1
// "Reservation"). requestedLen is a body length cap, or UnknownLength to
// reserve up to MaxLength (clamped to the store's remaining capacity) and
// let UpdateHeader adopt the length actually written.
// lastPosition, if non-nil, is a skip-ahead hint: once it reports an offset
// more than 1 MiB past the scan cursor, the scan jumps there and the
// HeaderNumber counter is marked unset (multi-writer append-log
// optimisation, spec.md §4.1 step 4).
func (w *Wire) WriteHeader(requestedLen int32, timeout time.Duration, lastPosition *BoundRef) (int64, error) {
	if w.insideHeader {
		return 0, ErrReentrant
	}
	if requestedLen < 0 || requestedLen > MaxLength {
		return 0, ErrIllegalArgument
	}
	maxLen := requestedLen
	if requestedLen == UnknownLength {
		maxLen = MaxLength
	}
	if w.Pauser != nil {
		w.Pauser.Reset()
	}

	pos := w.Store.WritePosition()
	for {
		if lastPosition != nil {
			if lp := lastPosition.VolatileGet(); lp > pos+1<<20 {
				pos = lp
				w.headerNumber = UnsetHeaderNumber
			}
		}

		limit := pos + 4 + int64(maxLen)
		if requestedLen == UnknownLength && limit > w.Store.Capacity() {
			limit = w.Store.Capacity()
		}
		if pos+4 > limit || limit > w.Store.Capacity() {
			return 0, ErrNotEnoughSpace
		}

		if w.Store.CompareAndSwapUint32(pos, NotInitialized, reservation(requestedLen)) {
			if err := w.Store.SetWritePosition(pos + 4); err != nil {
				return 0, err
			}
			if err := w.Store.SetWriteLimit(limit); err != nil {
				return 0, err
			}
			w.insideHeader = true
			w.headerStart = pos
			return pos, nil
		}
		metricCASRetries.Inc()

		h := w.Store.ReadVolatileInt(pos)
		switch {
		case h == EndOfData:
			metricEndOfStreamEvents.Inc()
			return 0, ErrEndOfStream
		case isNotComplete(h):
			if w.Pauser == nil {
				continue
			}
			if err := w.Pauser.PauseTimeout(timeout); err != nil {
				metricTimeouts.Inc()
				return 0, err
			}
		default:
			pos += 4 + int64(lengthOf(h))
			if isData(h) {
				w.headerNumber++
				metricDocumentsSkipped.Inc()
			}
		}
	}
}

// commit is the shared tail of UpdateHeader and UpdateFirstHeader: pad an
// empty body, compute the actual length, publish the ready header, and
// restore the write window.
func (w *Wire) commit(offset int64, expectedReservation uint32, lengthCap int32, isMeta bool) error {
	if !w.insideHeader || offset != w.headerStart {
		return ErrIllegalArgument
	}

	wp := w.Store.WritePosition()
	if wp == offset+4 {
		// Empty body: zero-length data documents are disallowed, so this
		// degenerates into a 1-byte record (spec.md §4.1 "Commit" step 1).
		if err := w.Store.WriteByte(0); err != nil {
			return err
		}
		wp = w.Store.WritePosition()
	}

	actual := wp - offset - 4
	if actual < 0 || actual > int64(MaxLength) {
		return ErrIllegalArgument
	}
	if lengthCap != UnknownLength && int32(actual) > lengthCap {
		return ErrLengthMismatch
	}

	newHeader := commitHeader(int32(actual), isMeta)

	if w.Assertions {
		if !w.Store.CompareAndSwapUint32(offset, expectedReservation, newHeader) {
			return ErrStreamCorrupted
		}
		// Detect a write that ran past this document's declared end by
		// checking the slot immediately after the cursor is still zero.
		if tail := w.Store.ReadVolatileInt(wp); tail != 0 {
			return ErrStreamCorrupted
		}
	} else {
		if err := w.Store.WriteOrderedInt(offset, newHeader); err != nil {
			return err
		}
	}

	if err := w.Store.SetWriteLimit(w.Store.Capacity()); err != nil {
		return err
	}
	w.insideHeader = false
	if !isMeta {
		w.headerNumber++
		metricDocumentsWritten.Inc()
	}
	return nil
}

// UpdateHeader commits the document reserved at offset by an earlier
// WriteHeader call (spec.md §4.1 "Commit").
func (w *Wire) UpdateHeader(reservedLen int32, offset int64, isMeta bool) error {
	return w.commit(offset, reservation(reservedLen), reservedLen, isMeta)
}

// ReadAndSetLength bounds the read window to the body of the ready header
// at position.
func (w *Wire) ReadAndSetLength(position int64) error {
	h := w.Store.ReadVolatileInt(position)
	if !isReady(h) {
		return ErrIllegalArgument
	}
	length := int64(lengthOf(h))
	w.readBodyBase = position + 4
	if err := w.Store.SetReadPosition(position + 4); err != nil {
		return err
	}
	return w.Store.SetReadLimit(position + 4 + length)
}

// BoundScalar writes a fixed-width scalar seeded with initial at the
// current write position, inside the document body currently reserved by
// WriteHeader, and returns a BoundRef to it relative to that body's start
// (spec.md §4.7).
func (w *Wire) BoundScalar(width int, initial int64) (*BoundRef, error) {
	if width != 4 && width != 8 {
		return nil, ErrIllegalArgument
	}
	if !w.insideHeader {
		return nil, ErrIllegalArgument
	}
	bodyBase := w.headerStart + 4
	pos := w.Store.WritePosition()
	ref := newBoundRef(w.Store, bodyBase, pos-bodyBase, width)
	if err := ref.OrderedSet(initial); err != nil {
		return nil, err
	}
	if err := w.Store.WriteSkip(int64(width)); err != nil {
		return nil, err
	}
	return ref, nil
}

// ReadBoundScalar seeks the next fixed-width scalar in the document body
// currently bound by ReadAndSetLength. If existing is non-nil it is
// rebound in place and returned (adopting its width); otherwise a new
// 8-byte-wide BoundRef is allocated, matching the original's LongValue
// default (spec.md §4.7).
func (w *Wire) ReadBoundScalar(existing *BoundRef) (*BoundRef, error) {
	return w.ReadBoundScalarWidth(existing, 8)
}

// ReadBoundScalarWidth is ReadBoundScalar with an explicit default width,
// for formats (such as binary, which tags the scalar before its payload)
// that know the width from the wire itself rather than from existing.
func (w *Wire) ReadBoundScalarWidth(existing *BoundRef, defaultWidth int) (*BoundRef, error) {
	width := defaultWidth
	if existing != nil {
		width = existing.width
	}
	pos := w.Store.ReadPosition()
	rel := pos - w.readBodyBase
	if err := w.Store.ReadSkip(int64(width)); err != nil {
		return nil, err
	}
	if existing != nil {
		existing.store = w.Store
		existing.baseOffset = w.readBodyBase
		existing.relativeOffset = rel
		existing.width = width
		return existing, nil
	}
	return newBoundRef(w.Store, w.readBodyBase, rel, width), nil
}

// BoundRefAt constructs a BoundRef for the fixed-width scalar located at
// absoluteOffset in the ByteStore, relative to the document body bound by
// the last ReadAndSetLength. Formats whose wire encoding already gives a
// value an addressable, tagged position (binary's tagged int32/int64) use
// this to hand back a usable BoundRef without a separate on-wire
// bound-scalar representation.
func (w *Wire) BoundRefAt(absoluteOffset int64, width int) *BoundRef {
	return newBoundRef(w.Store, w.readBodyBase, absoluteOffset-w.readBodyBase, width)
}

// ReadDataHeader peeks the header at the current read position, skipping
// meta-data documents unless includeMeta is set, and returns which kind of
// document (if any) is ready to read (spec.md §4.1 "Read").
func (w *Wire) ReadDataHeader(includeMeta bool) (HeaderType, error) {
	for {
		pos := w.Store.ReadPosition()
		h := w.Store.PeekVolatileInt()

		switch {
		case h == EndOfData:
			metricEndOfStreamEvents.Inc()
			return HeaderNone, ErrEndOfStream
		case !isReady(h):
			return HeaderNone, nil
		case h == NotInitialized:
			return HeaderNone, nil
		case isMetaData(h):
			if !includeMeta {
				if err := w.Store.SetReadPosition(pos + 4 + int64(lengthOf(h))); err != nil {
					return HeaderNone, err
				}
				continue
			}
			if err := w.ReadAndSetLength(pos); err != nil {
				return HeaderNone, err
			}
			return HeaderMeta, nil
		default:
			if err := w.ReadAndSetLength(pos); err != nil {
				return HeaderNone, err
			}
			return HeaderData, nil
		}
	}
}

// ReadMetaDataHeader requires the document at the current read position to
// be ready meta-data and bounds the read window to it.
func (w *Wire) ReadMetaDataHeader() error {
	t, err := w.ReadDataHeader(true)
	if err != nil {
		return err
	}
	if t != HeaderMeta {
		return ErrStreamCorrupted
	}
	return nil
}

// WriteFirstHeader CASes offset 0 from NotInitialized to
// NotCompleteUnknownLength, reporting whether this caller is the stream's
// initialiser (spec.md §3 "Lifecycle").
func (w *Wire) WriteFirstHeader() (bool, error) {
	if !w.Store.CompareAndSwapUint32(0, NotInitialized, NotCompleteUnknownLength) {
		return false, nil
	}
	if err := w.Store.SetWritePosition(4); err != nil {
		return false, err
	}
	if err := w.Store.SetWriteLimit(4 + int64(firstHeaderMaxLen)); err != nil {
		return false, err
	}
	w.insideHeader = true
	w.headerStart = 0
	return true, nil
}

// UpdateFirstHeader commits the stream's first (meta-data) header. A Wire
// that did not win WriteFirstHeader gets ErrStreamCorrupted, as does (with
// Assertions on) one whose reservation at offset 0 was changed meanwhile.
func (w *Wire) UpdateFirstHeader() error {
	if !w.insideHeader || w.headerStart != 0 {
		return ErrStreamCorrupted
	}
	return w.commit(0, NotCompleteUnknownLength, int32(firstHeaderMaxLen), true)
}

// ReadFirstHeader spins (via the Pauser) on offset 0 until the first header
// is ready, then validates it is meta-data within the 64 KiB cap.
func (w *Wire) ReadFirstHeader(timeout time.Duration) error {
	if w.Pauser != nil {
		w.Pauser.Reset()
	}
	for {
		h := w.Store.ReadVolatileInt(0)
		switch {
		case h == EndOfData:
			return ErrEndOfStream
		case isReady(h) && h != NotInitialized:
			if !isMetaData(h) || lengthOf(h) > int32(firstHeaderMaxLen) {
				return ErrStreamCorrupted
			}
			return w.ReadAndSetLength(0)
		default:
			metricCASRetries.Inc()
			if w.Pauser == nil {
				continue
			}
			if err := w.Pauser.PauseTimeout(timeout); err != nil {
				metricTimeouts.Inc()
				return err
			}
		}
	}
}

// WriteEndOfWire publishes the END_OF_DATA terminator at the next free
// slot, advancing past any document a concurrent writer completes in the
// meantime. It is idempotent.
func (w *Wire) WriteEndOfWire(timeout time.Duration) error {
	if w.Pauser != nil {
		w.Pauser.Reset()
	}
	pos := w.Store.WritePosition()
	for {
		if w.Store.CompareAndSwapUint32(pos, NotInitialized, EndOfData) {
			metricEndOfStreamEvents.Inc()
			return nil
		}
		metricCASRetries.Inc()

		h := w.Store.ReadVolatileInt(pos)
		switch {
		case h == EndOfData:
			return nil
		case isNotComplete(h):
			if w.Pauser == nil {
				continue
			}
			if err := w.Pauser.PauseTimeout(timeout); err != nil {
				metricTimeouts.Inc()
				return err
			}
		default:
			pos += 4 + int64(lengthOf(h))
		}
	}
}
