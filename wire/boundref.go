package wire

import "github.com/ValentinKolb/wiredoc/store"

// BoundRef is a stable cursor onto a fixed-width scalar (or array thereof)
// inside a document body (spec.md §3 "BoundRef", §4.7). Offset is relative
// to the start of the document body it was created against; absolute
// adds in the document's base offset within the ByteStore so atomic ops can
// address the store directly.
type BoundRef struct {
	store         store.ByteStore
	width         int // 4 or 8
	baseOffset    int64
	relativeOffset int64
	arrayLen      int // 0 means scalar, not array
}

// newBoundRef constructs a BoundRef for a scalar at docBase+relOffset.
func newBoundRef(s store.ByteStore, docBase, relOffset int64, width int) *BoundRef {
	return &BoundRef{store: s, width: width, baseOffset: docBase, relativeOffset: relOffset}
}

// Offset returns the offset relative to the document body the ref was
// created against.
func (r *BoundRef) Offset() int64 { return r.relativeOffset }

// Width returns 4 or 8.
func (r *BoundRef) Width() int { return r.width }

func (r *BoundRef) absolute(index int) int64 {
	return r.baseOffset + r.relativeOffset + int64(index*r.width)
}

// VolatileGet performs an acquire read of the scalar's current value.
func (r *BoundRef) VolatileGet() int64 {
	return r.volatileGetAt(0)
}

func (r *BoundRef) volatileGetAt(index int) int64 {
	if r.width == 4 {
		return int64(int32(r.store.ReadVolatileInt(r.absolute(index))))
	}
	lo := r.store.ReadVolatileInt(r.absolute(index))
	hi := r.store.ReadVolatileInt(r.absolute(index) + 4)
	return int64(uint64(lo) | uint64(hi)<<32)
}

// OrderedSet performs a release write of value.
func (r *BoundRef) OrderedSet(value int64) error {
	return r.orderedSetAt(0, value)
}

func (r *BoundRef) orderedSetAt(index int, value int64) error {
	if r.width == 4 {
		return r.store.WriteOrderedInt(r.absolute(index), uint32(int32(value)))
	}
	lo := uint32(uint64(value))
	hi := uint32(uint64(value) >> 32)
	if err := r.store.WriteOrderedInt(r.absolute(index), lo); err != nil {
		return err
	}
	return r.store.WriteOrderedInt(r.absolute(index)+4, hi)
}

// CompareAndSet atomically swaps the scalar from old to new, reporting
// whether the swap succeeded. 8-byte refs perform the swap on the low word
// only when the high word already matches, which is sufficient for the
// monotonically-increasing counters this type is built for (HeaderNumber
// resynchronization, getAndAdd-style sequence generators); a true 64-bit
// CAS would require a wider ByteStore primitive than spec.md defines.
func (r *BoundRef) CompareAndSet(old, new int64) bool {
	return r.compareAndSetAt(0, old, new)
}

func (r *BoundRef) compareAndSetAt(index int, old, new int64) bool {
	if r.width == 4 {
		return r.store.CompareAndSwapUint32(r.absolute(index), uint32(int32(old)), uint32(int32(new)))
	}
	// Widen via a 32-bit CAS on the low word guarded by a matching high
	// word; see the doc comment above.
	hi := uint32(uint64(old) >> 32)
	if r.store.ReadVolatileInt(r.absolute(index)+4) != hi {
		return false
	}
	if !r.store.CompareAndSwapUint32(r.absolute(index), uint32(uint64(old)), uint32(uint64(new))) {
		return false
	}
	newHi := uint32(uint64(new) >> 32)
	if newHi != hi {
		_ = r.store.WriteOrderedInt(r.absolute(index)+4, newHi)
	}
	return true
}

// GetAndAdd atomically adds delta to the scalar and returns the previous
// value.
func (r *BoundRef) GetAndAdd(delta int64) int64 {
	return r.getAndAddAt(0, delta)
}

func (r *BoundRef) getAndAddAt(index int, delta int64) int64 {
	for {
		cur := r.volatileGetAt(index)
		if r.compareAndSetAt(index, cur, cur+delta) {
			return cur
		}
	}
}

// Array returns a copy of r treated as an array of length elements starting
// at r's offset (spec.md §4.7 "array variants indexed by element").
func (r *BoundRef) Array(length int) *BoundRef {
	cp := *r
	cp.arrayLen = length
	return &cp
}

// Len reports the array length, or 0 for a scalar ref.
func (r *BoundRef) Len() int { return r.arrayLen }

// VolatileGetAt, OrderedSetAt, CompareAndSetAt and GetAndAddAt are the
// array-indexed counterparts of the scalar operations above.
func (r *BoundRef) VolatileGetAt(index int) int64            { return r.volatileGetAt(index) }
func (r *BoundRef) OrderedSetAt(index int, value int64) error { return r.orderedSetAt(index, value) }
func (r *BoundRef) CompareAndSetAt(index int, old, new int64) bool {
	return r.compareAndSetAt(index, old, new)
}
func (r *BoundRef) GetAndAddAt(index int, delta int64) int64 { return r.getAndAddAt(index, delta) }
