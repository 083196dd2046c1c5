package wire

import (
	"sync"
	"testing"

	"github.com/ValentinKolb/wiredoc/store/heap"
)

func TestBoundScalarVolatileAndOrderedAccess(t *testing.T) {
	s := heap.New(64)
	w := New(s, NewBusyPauser(), nil)

	offset, err := w.WriteHeader(16, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := w.BoundScalar(8, 42)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.UpdateHeader(16, offset, false); err != nil {
		t.Fatal(err)
	}

	if got := ref.VolatileGet(); got != 42 {
		t.Fatalf("VolatileGet() = %d, want 42", got)
	}
	if err := ref.OrderedSet(99); err != nil {
		t.Fatal(err)
	}
	if got := ref.VolatileGet(); got != 99 {
		t.Fatalf("VolatileGet() after OrderedSet(99) = %d, want 99", got)
	}
	if ref.Width() != 8 {
		t.Fatalf("Width() = %d, want 8", ref.Width())
	}
}

func TestBoundRefCompareAndSet(t *testing.T) {
	s := heap.New(32)
	ref := newBoundRef(s, 0, 0, 4)
	if err := ref.OrderedSet(10); err != nil {
		t.Fatal(err)
	}
	if !ref.CompareAndSet(10, 20) {
		t.Fatalf("CompareAndSet(10, 20) should succeed")
	}
	if ref.CompareAndSet(10, 30) {
		t.Fatalf("CompareAndSet(10, 30) should fail, current value is 20")
	}
	if got := ref.VolatileGet(); got != 20 {
		t.Fatalf("VolatileGet() = %d, want 20", got)
	}
}

func TestBoundRefCompareAndSetEightByteWidth(t *testing.T) {
	s := heap.New(32)
	ref := newBoundRef(s, 0, 0, 8)
	const big = int64(1) << 40
	if err := ref.OrderedSet(big); err != nil {
		t.Fatal(err)
	}
	if got := ref.VolatileGet(); got != big {
		t.Fatalf("VolatileGet() = %d, want %d", got, big)
	}
	if !ref.CompareAndSet(big, big+1) {
		t.Fatalf("CompareAndSet(%d, %d) should succeed", big, big+1)
	}
	if got := ref.VolatileGet(); got != big+1 {
		t.Fatalf("VolatileGet() = %d, want %d", got, big+1)
	}
}

// TestConcurrentGetAndAddIsLinearizable mirrors spec.md §8's BoundRef
// property: N concurrent GetAndAdd(1) calls against one scalar must each
// observe a distinct previous value, and the final value must equal N.
func TestConcurrentGetAndAddIsLinearizable(t *testing.T) {
	s := heap.New(32)
	ref := newBoundRef(s, 0, 0, 8)
	if err := ref.OrderedSet(0); err != nil {
		t.Fatal(err)
	}

	const n = 200
	seen := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = ref.GetAndAdd(1)
		}(i)
	}
	wg.Wait()

	if got := ref.VolatileGet(); got != n {
		t.Fatalf("final value = %d, want %d", got, n)
	}

	sorted := append([]int64(nil), seen...)
	sortInt64s(sorted)
	for i, v := range sorted {
		if v != int64(i) {
			t.Fatalf("GetAndAdd previous values were not a permutation of 0..%d: got %v at sorted index %d", n-1, v, i)
		}
	}
}

func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func TestBoundRefArrayIndexing(t *testing.T) {
	s := heap.New(64)
	base := newBoundRef(s, 0, 0, 4)
	arr := base.Array(4)
	if arr.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", arr.Len())
	}
	for i := 0; i < 4; i++ {
		if err := arr.OrderedSetAt(i, int64(i*10)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 4; i++ {
		if got := arr.VolatileGetAt(i); got != int64(i*10) {
			t.Fatalf("VolatileGetAt(%d) = %d, want %d", i, got, i*10)
		}
	}
	if !arr.CompareAndSetAt(2, 20, 99) {
		t.Fatalf("CompareAndSetAt(2, 20, 99) should succeed")
	}
	if prev := arr.GetAndAddAt(0, 5); prev != 0 {
		t.Fatalf("GetAndAddAt(0, 5) previous = %d, want 0", prev)
	}
	if got := arr.VolatileGetAt(0); got != 5 {
		t.Fatalf("VolatileGetAt(0) after GetAndAddAt = %d, want 5", got)
	}
}
