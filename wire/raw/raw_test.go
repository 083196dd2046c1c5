package raw_test

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/wiredoc/store/heap"
	"github.com/ValentinKolb/wiredoc/wire"
	"github.com/ValentinKolb/wiredoc/wire/raw"
)

func writeDocument(t *testing.T, s *heap.Store, w *wire.Wire, write func(wire.Writer)) int64 {
	t.Helper()
	offset, err := w.WriteHeader(wire.UnknownLength, 0, nil)
	if err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	wr := raw.New().NewWriter(w)
	write(wr)
	if err := wr.Close(); err != nil {
		t.Fatalf("Writer.Close: %v", err)
	}
	if err := w.UpdateHeader(wire.UnknownLength, offset, false); err != nil {
		t.Fatalf("UpdateHeader: %v", err)
	}
	return offset
}

func bodyBytes(t *testing.T, s *heap.Store, offset int64, n int) []byte {
	t.Helper()
	if err := s.SetReadPosition(offset + 4); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, n)
	if _, err := s.Read(buf); err != nil {
		t.Fatalf("reading body bytes: %v", err)
	}
	return buf
}

// TestGoldenScenarioThree reproduces spec.md §8 scenario 3 byte-for-byte.
func TestGoldenScenarioThree(t *testing.T) {
	s := heap.New(256)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	want := []byte{
		0x0B, 0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x20, 0x57, 0x6F, 0x72, 0x6C, 0x64,
		0xD2, 0x02, 0x96, 0x49, 0x00, 0x00, 0x00, 0x00,
		0x07, 0x53, 0x45, 0x43, 0x4F, 0x4E, 0x44, 0x53,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x25, 0x40,
	}

	offset := writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Anonymous).Text("Hello World")
		wr.WriteField(wire.Anonymous).Int64(1234567890)
		wr.WriteField(wire.Anonymous).Enum("SECONDS")
		wr.WriteField(wire.Anonymous).Float64(10.5)
	})

	got := bodyBytes(t, s, offset, len(want))
	if !bytes.Equal(got, want) {
		t.Fatalf("body = % X, want % X", got, want)
	}
}

func TestRoundTripPositionalSchema(t *testing.T) {
	s := heap.New(512)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Anonymous).Bool(true)
		wr.WriteField(wire.Anonymous).Int32(-7)
		wr.WriteField(wire.Anonymous).Text("positional")
		wr.WriteField(wire.Anonymous).Bytes([]byte{0x01, 0x02, 0x03})
		wr.WriteField(wire.Anonymous).Float32(1.25)
	})

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := raw.New().NewReader(reader)

	_, v, ok, err := rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext (bool): %v, %v", ok, err)
	}
	if got, err := v.Bool(); err != nil || got != true {
		t.Fatalf("Bool() = %v, %v, want true, nil", got, err)
	}

	_, v, ok, err = rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext (int32): %v, %v", ok, err)
	}
	if got, err := v.Int32(); err != nil || got != -7 {
		t.Fatalf("Int32() = %v, %v, want -7, nil", got, err)
	}

	_, v, ok, err = rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext (text): %v, %v", ok, err)
	}
	if got, err := v.Text(); err != nil || got != "positional" {
		t.Fatalf("Text() = %q, %v, want %q, nil", got, err, "positional")
	}

	_, v, ok, err = rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext (bytes): %v, %v", ok, err)
	}
	if got, err := v.Bytes(); err != nil || !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("Bytes() = %x, %v, want 010203, nil", got, err)
	}

	_, v, ok, err = rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext (float32): %v, %v", ok, err)
	}
	if got, err := v.Float32(); err != nil || got != 1.25 {
		t.Fatalf("Float32() = %v, %v, want 1.25, nil", got, err)
	}

	if _, _, ok, err := rd.ReadNext(); err != nil || ok {
		t.Fatalf("ReadNext at end of body = %v, %v, want false, nil", ok, err)
	}
}

func TestLongStringEscape(t *testing.T) {
	s := heap.New(1024)
	w := wire.New(s, wire.NewBusyPauser(), nil)
	long := bytes.Repeat([]byte("x"), 300)

	offset := writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Anonymous).Text(string(long))
	})

	got := bodyBytes(t, s, offset, 1+2+len(long))
	if got[0] != 0xFF {
		t.Fatalf("length marker = %#x, want 0xFF", got[0])
	}

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := raw.New().NewReader(reader)
	_, v, ok, err := rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext: %v, %v", ok, err)
	}
	if s, err := v.Text(); err != nil || s != string(long) {
		t.Fatalf("Text() round-trip mismatch (len %d vs %d)", len(s), len(long))
	}
}

func TestNestedTypedObjectAndSequence(t *testing.T) {
	s := heap.New(512)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Anonymous).TypedObject("Point", func(inner wire.Writer) error {
			inner.WriteField(wire.Anonymous).Int32(3)
			inner.WriteField(wire.Anonymous).Int32(4)
			return nil
		})
		wr.WriteField(wire.Anonymous).Sequence(func(seq wire.SequenceOut) error {
			if err := seq.Element().Int32(1); err != nil {
				return err
			}
			if err := seq.Element().Int32(2); err != nil {
				return err
			}
			return seq.Element().Int32(3)
		})
	})

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := raw.New().NewReader(reader)

	_, pv, ok, err := rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext (typed object): %v, %v", ok, err)
	}
	var x, y int32
	if err := pv.TypedObject(func(alias string, r wire.Reader) error {
		if alias != "Point" {
			t.Fatalf("TypedObject alias = %q, want Point", alias)
		}
		_, xv, _, err := r.ReadNext()
		if err != nil {
			return err
		}
		x, err = xv.Int32()
		if err != nil {
			return err
		}
		_, yv, _, err := r.ReadNext()
		if err != nil {
			return err
		}
		y, err = yv.Int32()
		return err
	}); err != nil {
		t.Fatalf("TypedObject: %v", err)
	}
	if x != 3 || y != 4 {
		t.Fatalf("point = (%d, %d), want (3, 4)", x, y)
	}

	_, sv, ok, err := rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext (sequence): %v, %v", ok, err)
	}
	var got []int32
	if err := sv.Sequence(func(seq wire.SequenceIn) error {
		for {
			el, ok, err := seq.Next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			n, err := el.Int32()
			if err != nil {
				return err
			}
			got = append(got, n)
		}
	}); err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("sequence = %v, want [1 2 3]", got)
	}
}

func TestBoundScalarDelegatesToWire(t *testing.T) {
	s := heap.New(256)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	offset, err := w.WriteHeader(wire.UnknownLength, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	wr := raw.New().NewWriter(w)
	ref, err := wr.WriteField(wire.Anonymous).BoundScalar(8, 0)
	if err != nil {
		t.Fatalf("BoundScalar: %v", err)
	}
	if err := wr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.UpdateHeader(wire.UnknownLength, offset, false); err != nil {
		t.Fatal(err)
	}

	if got := ref.GetAndAdd(1); got != 0 {
		t.Fatalf("GetAndAdd(1) = %d, want 0", got)
	}
	if got := ref.VolatileGet(); got != 1 {
		t.Fatalf("VolatileGet() = %d, want 1", got)
	}

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := raw.New().NewReader(reader)
	_, v, ok, err := rd.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext: %v, %v", ok, err)
	}
	got, err := v.BoundScalar(nil)
	if err != nil {
		t.Fatalf("ValueIn.BoundScalar: %v", err)
	}
	if got.VolatileGet() != 1 {
		t.Fatalf("re-derived BoundRef.VolatileGet() = %d, want 1", got.VolatileGet())
	}
}
