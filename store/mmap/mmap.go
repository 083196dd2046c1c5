package mmap

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ValentinKolb/wiredoc/store"
)

// Store is an mmap-backed store.ByteStore. Opening the same path from
// multiple processes with Open gives each of them an independent Store
// value whose CompareAndSwapUint32/ReadVolatileInt/WriteOrderedInt all
// operate on the same underlying physical pages.
type Store struct {
	file *os.File
	data []byte // mmap'd region, len == capacity

	mu         sync.Mutex
	writePos   int64
	writeLimit int64
	readPos    int64
	readLimit  int64
}

// Create creates (or truncates) the file at path, sizes it to capacity,
// and maps it MAP_SHARED so writes are visible to any other process that
// maps the same file.
func Create(path string, capacity int64) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(capacity); err != nil {
		f.Close()
		return nil, err
	}
	return mapFile(f, capacity)
}

// Open maps an existing file created by Create. The file's current size is
// used as the store's capacity.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return mapFile(f, info.Size())
}

func mapFile(f *os.File, capacity int64) (*Store, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(capacity), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Store{
		file:       f,
		data:       data,
		writeLimit: capacity,
		readLimit:  capacity,
	}, nil
}

func (s *Store) Capacity() int64     { return int64(len(s.data)) }
func (s *Store) RealCapacity() int64 { return int64(len(s.data)) }
func (s *Store) SharedMemory() bool  { return true }

func (s *Store) WritePosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writePos
}

func (s *Store) SetWritePosition(pos int64) error {
	if pos < 0 || pos > int64(len(s.data)) {
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
	if limit < 0 || limit > int64(len(s.data)) {
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
	if pos < 0 || pos > int64(len(s.data)) {
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
	if limit < 0 || limit > int64(len(s.data)) {
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
	n := copy(s.data[pos:], p)
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
	n := copy(p, s.data[pos:limit])
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

func (s *Store) word(offset int64) *uint32 {
	return (*uint32)(unsafe.Pointer(&s.data[offset]))
}

func (s *Store) PeekVolatileInt() uint32 {
	return s.ReadVolatileInt(s.ReadPosition())
}

func (s *Store) ReadVolatileInt(offset int64) uint32 {
	if offset < 0 || offset+4 > int64(len(s.data)) {
		return 0
	}
	return atomic.LoadUint32(s.word(offset))
}

func (s *Store) WriteOrderedInt(offset int64, value uint32) error {
	if offset < 0 || offset+4 > int64(len(s.data)) {
		return store.ErrOutOfBounds
	}
	atomic.StoreUint32(s.word(offset), value)
	return nil
}

func (s *Store) CompareAndSwapUint32(offset int64, old, new uint32) bool {
	if offset < 0 || offset+4 > int64(len(s.data)) {
		return false
	}
	return atomic.CompareAndSwapUint32(s.word(offset), old, new)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writePos, s.readPos = 0, 0
	s.writeLimit, s.readLimit = int64(len(s.data)), int64(len(s.data))
}

// Sync flushes the mapped region back to the backing file via msync(2).
// Callers that need durability beyond process-shared visibility (e.g.
// before handing the file to journal/index) should call this explicitly;
// CAS/volatile semantics themselves don't require it.
func (s *Store) Sync() error {
	return unix.Msync(s.data, unix.MS_SYNC)
}

func (s *Store) Close() error {
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			return err
		}
		s.data = nil
	}
	return s.file.Close()
}
