package store

import "errors"

// ErrOutOfBounds is returned by any operation whose offset/length would
// read or write outside the store's current capacity.
var ErrOutOfBounds = errors.New("store: offset out of bounds")

// ByteStore is the external collaborator consumed by the wire package (see
// spec §6). It is a random-access, bounded byte buffer with a write cursor,
// a read cursor, and volatile/ordered/CAS access to 32-bit words - the
// minimum primitives document framing and bound references need.
//
// Implementations must guarantee that CompareAndSwapUint32 is atomic and,
// when SharedMemory reports true, safe between independent OS processes
// mapping the same underlying storage.
type ByteStore interface {
	// Capacity returns the total addressable size of the store in bytes.
	Capacity() int64

	// RealCapacity returns the capacity actually backed by storage, which
	// may be less than Capacity for stores that reserve address space
	// lazily (mirrors Chronicle Bytes' realCapacity/capacity split).
	RealCapacity() int64

	// SharedMemory reports whether this store's storage is visible to
	// other OS processes (true for mmap-backed stores opened on a shared
	// file or POSIX shm segment, false for heap-backed stores).
	SharedMemory() bool

	// WritePosition and WriteLimit expose and constrain the write cursor.
	WritePosition() int64
	SetWritePosition(pos int64) error
	WriteLimit() int64
	SetWriteLimit(limit int64) error
	WriteRemaining() int64

	// ReadPosition, ReadLimit and ReadRemaining expose and constrain the
	// read cursor, independently of the write cursor.
	ReadPosition() int64
	SetReadPosition(pos int64) error
	ReadLimit() int64
	SetReadLimit(limit int64) error
	ReadRemaining() int64

	// Write appends p at the write cursor, advancing it by len(p).
	Write(p []byte) (int, error)
	// WriteSkip advances the write cursor by n bytes without writing,
	// zero-filling the skipped region if it was never written before.
	WriteSkip(n int64) error
	// WriteByte writes a single byte at the write cursor.
	WriteByte(b byte) error

	// Read consumes up to len(p) bytes from the read cursor into p.
	Read(p []byte) (int, error)
	// ReadSkip advances the read cursor by n bytes without copying.
	ReadSkip(n int64) error
	// ReadByte consumes a single byte from the read cursor.
	ReadByte() (byte, error)

	// PeekVolatileInt performs a volatile (acquire) read of the 32-bit
	// word at the current read position, without moving the cursor.
	PeekVolatileInt() uint32
	// ReadVolatileInt performs a volatile (acquire) read of the 32-bit
	// word at an absolute offset.
	ReadVolatileInt(offset int64) uint32
	// WriteOrderedInt performs an ordered (release) store of a 32-bit
	// word at an absolute offset - visible to any reader that later
	// observes it with a volatile read, without the full cost of a CAS.
	WriteOrderedInt(offset int64, value uint32) error
	// CompareAndSwapUint32 atomically swaps the 32-bit word at offset
	// from old to new, returning whether the swap succeeded.
	CompareAndSwapUint32(offset int64, old, new uint32) bool

	// Clear resets both cursors to the start of the store. It does not
	// zero existing bytes.
	Clear()

	// Close releases any resources (file descriptors, mappings) held by
	// the store. Implementations for which this is a no-op must still
	// provide it so callers can treat every ByteStore uniformly.
	Close() error
}
