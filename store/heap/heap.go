package heap

import (
	"io"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ValentinKolb/wiredoc/store"
)

// Store is a fixed-capacity, heap-backed store.ByteStore. The capacity is
// reserved up front (no reallocation) so that pointers handed to
// sync/atomic for CAS/volatile access stay valid for the lifetime of the
// store, even while other goroutines are reading or writing concurrently.
type Store struct {
	buf []byte

	// mu only protects the cursor fields below; byte contents are
	// accessed through sync/atomic so concurrent readers/writers never
	// need to hold it.
	mu         sync.Mutex
	writePos   int64
	writeLimit int64
	readPos    int64
	readLimit  int64
}

// New allocates a Store with the given fixed capacity.
func New(capacity int64) *Store {
	return &Store{
		buf:        make([]byte, capacity),
		writeLimit: capacity,
		readLimit:  capacity,
	}
}

func (s *Store) Capacity() int64     { return int64(len(s.buf)) }
func (s *Store) RealCapacity() int64 { return int64(len(s.buf)) }
func (s *Store) SharedMemory() bool  { return false }

func (s *Store) WritePosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writePos
}

func (s *Store) SetWritePosition(pos int64) error {
	if pos < 0 || pos > int64(len(s.buf)) {
		return store.ErrOutOfBounds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writePos = pos
	return nil
}

func (s *Store) WriteLimit() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLimit
}

func (s *Store) SetWriteLimit(limit int64) error {
	if limit < 0 || limit > int64(len(s.buf)) {
		return store.ErrOutOfBounds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLimit = limit
	return nil
}

func (s *Store) WriteRemaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLimit - s.writePos
}

func (s *Store) ReadPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPos
}

func (s *Store) SetReadPosition(pos int64) error {
	if pos < 0 || pos > int64(len(s.buf)) {
		return store.ErrOutOfBounds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readPos = pos
	return nil
}

func (s *Store) ReadLimit() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLimit
}

func (s *Store) SetReadLimit(limit int64) error {
	if limit < 0 || limit > int64(len(s.buf)) {
		return store.ErrOutOfBounds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readLimit = limit
	return nil
}

func (s *Store) ReadRemaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLimit - s.readPos
}

func (s *Store) Write(p []byte) (int, error) {
	s.mu.Lock()
	pos, limit := s.writePos, s.writeLimit
	if pos+int64(len(p)) > limit {
		s.mu.Unlock()
		return 0, store.ErrOutOfBounds
	}
	n := copy(s.buf[pos:], p)
	s.writePos = pos + int64(n)
	s.mu.Unlock()
	return n, nil
}

func (s *Store) WriteSkip(n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writePos+n > s.writeLimit {
		return store.ErrOutOfBounds
	}
	s.writePos += n
	return nil
}

func (s *Store) WriteByte(b byte) error {
	_, err := s.Write([]byte{b})
	return err
}

func (s *Store) Read(p []byte) (int, error) {
	s.mu.Lock()
	pos, limit := s.readPos, s.readLimit
	if pos >= limit {
		s.mu.Unlock()
		return 0, io.EOF
	}
	n := copy(p, s.buf[pos:limit])
	s.readPos = pos + int64(n)
	s.mu.Unlock()
	return n, nil
}

func (s *Store) ReadSkip(n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readPos+n > s.readLimit {
		return store.ErrOutOfBounds
	}
	s.readPos += n
	return nil
}

func (s *Store) ReadByte() (byte, error) {
	var b [1]byte
	_, err := s.Read(b[:])
	return b[0], err
}

// word returns a pointer to the uint32 at offset, for use with sync/atomic.
// Callers must ensure offset+4 <= len(s.buf) and offset is within the
// fixed-capacity backing array, which never gets reallocated after New.
func (s *Store) word(offset int64) *uint32 {
	return (*uint32)(unsafe.Pointer(&s.buf[offset]))
}

func (s *Store) PeekVolatileInt() uint32 {
	return s.ReadVolatileInt(s.ReadPosition())
}

func (s *Store) ReadVolatileInt(offset int64) uint32 {
	if offset < 0 || offset+4 > int64(len(s.buf)) {
		return 0
	}
	return atomic.LoadUint32(s.word(offset))
}

func (s *Store) WriteOrderedInt(offset int64, value uint32) error {
	if offset < 0 || offset+4 > int64(len(s.buf)) {
		return store.ErrOutOfBounds
	}
	// sync/atomic has no distinct "ordered" (release-only) store on
	// plain memory beyond StoreUint32, which already provides the
	// release semantics the framing layer relies on.
	atomic.StoreUint32(s.word(offset), value)
	return nil
}

func (s *Store) CompareAndSwapUint32(offset int64, old, new uint32) bool {
	if offset < 0 || offset+4 > int64(len(s.buf)) {
		return false
	}
	return atomic.CompareAndSwapUint32(s.word(offset), old, new)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writePos, s.readPos = 0, 0
	s.writeLimit, s.readLimit = int64(len(s.buf)), int64(len(s.buf))
}

func (s *Store) Close() error { return nil }
