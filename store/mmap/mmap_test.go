package mmap_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/ValentinKolb/wiredoc/store/mmap"
)

func TestCreateThenOpenSeesSameBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.wire")

	w, err := mmap.Create(path, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !w.SharedMemory() {
		t.Fatalf("SharedMemory() = false, want true")
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := mmap.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.Capacity() != 256 {
		t.Fatalf("Capacity() = %d, want 256", r.Capacity())
	}
	buf := make([]byte, 5)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("Read() = %q, want %q", buf, "hello")
	}
}

func TestVolatileIntAndCAS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.wire")
	s, err := mmap.Create(path, 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	if err := s.WriteOrderedInt(0, 0x12345678); err != nil {
		t.Fatalf("WriteOrderedInt: %v", err)
	}
	if got := s.ReadVolatileInt(0); got != 0x12345678 {
		t.Fatalf("ReadVolatileInt() = %#x, want 0x12345678", got)
	}
	if !s.CompareAndSwapUint32(0, 0x12345678, 0xCAFEBABE) {
		t.Fatalf("CompareAndSwapUint32 expected success")
	}
	if s.CompareAndSwapUint32(0, 0x12345678, 0) {
		t.Fatalf("CompareAndSwapUint32 succeeded against a stale expected value")
	}
}

// TestConcurrentCASOneWinner mirrors store/heap's equivalent test: opening
// the same file through two independent Store handles must CAS against the
// same physical page, exactly the inter-process sharing guarantee
// store/mmap exists to provide (spec.md §4.7's BoundRef atomics being
// "totally ordered per location across processes sharing the ByteStore").
func TestConcurrentCASOneWinner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.wire")
	a, err := mmap.Create(path, 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	b, err := mmap.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	var wg sync.WaitGroup
	wins := make([]bool, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		wins[0] = a.CompareAndSwapUint32(8, 0, 1)
	}()
	go func() {
		defer wg.Done()
		wins[1] = b.CompareAndSwapUint32(8, 0, 2)
	}()
	wg.Wait()

	if wins[0] == wins[1] {
		t.Fatalf("exactly one CAS should win, got wins=%v", wins)
	}
	got := a.ReadVolatileInt(8)
	if got != 1 && got != 2 {
		t.Fatalf("final value = %d, want 1 or 2", got)
	}
}

func TestSetWritePositionOutOfBoundsFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.wire")
	s, err := mmap.Create(path, 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	if err := s.SetWritePosition(17); err == nil {
		t.Fatalf("SetWritePosition(17) on a 16-byte store succeeded, want error")
	}
}
