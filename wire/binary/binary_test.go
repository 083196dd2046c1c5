package binary_test

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/wiredoc/store/heap"
	"github.com/ValentinKolb/wiredoc/wire"
	"github.com/ValentinKolb/wiredoc/wire/binary"
)

func writeDocument(t *testing.T, s *heap.Store, w *wire.Wire, write func(wire.Writer)) int64 {
	t.Helper()
	offset, err := w.WriteHeader(wire.UnknownLength, 0, nil)
	if err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	wr := binary.New().NewWriter(w)
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

// TestGoldenScenarioTwo reproduces spec.md §8 scenario 2 byte-for-byte.
func TestGoldenScenarioTwo(t *testing.T) {
	s := heap.New(256)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	want := []byte{
		0xC7, 0x6D, 0x65, 0x73, 0x73, 0x61, 0x67, 0x65,
		0xEB, 0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x20, 0x57, 0x6F, 0x72, 0x6C, 0x64,
		0xC6, 0x6E, 0x75, 0x6D, 0x62, 0x65, 0x72,
		0xA3, 0xD2, 0x02, 0x96, 0x49,
		0xC4, 0x63, 0x6F, 0x64, 0x65,
		0xE7, 0x53, 0x45, 0x43, 0x4F, 0x4E, 0x44, 0x53,
		0xC5, 0x70, 0x72, 0x69, 0x63, 0x65,
		0x90, 0x00, 0x00, 0x28, 0x41,
	}

	offset := writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Named("message")).Text("Hello World")
		wr.WriteField(wire.Named("number")).Int64(1234567890)
		wr.WriteField(wire.Named("code")).Enum("SECONDS")
		wr.WriteField(wire.Named("price")).Float32(10.5)
	})

	got := bodyBytes(t, s, offset, len(want))
	if !bytes.Equal(got, want) {
		t.Fatalf("body = % X, want % X", got, want)
	}
}

// TestGoldenScenarioFour reproduces spec.md §8 scenario 4 byte-for-byte.
func TestGoldenScenarioFour(t *testing.T) {
	s := heap.New(256)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	want := []byte{
		0xB6, 0x10,
		0x54, 0x65, 0x73, 0x74, 0x4D, 0x61, 0x72, 0x73, 0x68, 0x61, 0x6C, 0x6C, 0x61, 0x62, 0x6C, 0x65,
		0x82, 0x11, 0x00, 0x00, 0x00,
		0xC4, 0x6E, 0x61, 0x6D, 0x65,
		0xE4, 0x6E, 0x61, 0x6D, 0x65,
		0xC5, 0x63, 0x6F, 0x75, 0x6E, 0x74,
		0x01,
	}

	offset := writeDocument(t, s, w, func(wr wire.Writer) {
		err := wr.WriteField(wire.Named("ignored-top-level-ok")).TypedObject("TestMarshallable", func(inner wire.Writer) error {
			inner.WriteField(wire.Named("name")).Text("name")
			inner.WriteField(wire.Named("count")).Int32(1)
			return nil
		})
		if err != nil {
			t.Fatalf("TypedObject: %v", err)
		}
	})

	// The top-level field tag ("ignored-top-level-ok") precedes the typed
	// object bytes; skip past it before comparing against the scenario,
	// which only specifies the value's own encoding.
	fieldTagLen := 1 + len("ignored-top-level-ok")
	got := bodyBytes(t, s, offset, fieldTagLen+len(want))[fieldTagLen:]
	if !bytes.Equal(got, want) {
		t.Fatalf("body = % X, want % X", got, want)
	}
}

func TestRoundTripScalarFields(t *testing.T) {
	s := heap.New(512)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Named("a")).Bool(true)
		wr.WriteField(wire.Named("b")).Int64(-42)
		wr.WriteField(wire.Named("c")).Text("hello")
		wr.WriteField(wire.Named("d")).Bytes([]byte{0xDE, 0xAD, 0xBE, 0xEF})
		wr.WriteField(wire.Named("e")).Float64(3.5)
	})

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := binary.New().NewReader(reader)

	if _, v, ok, err := rd.ReadField(wire.Named("a")); err != nil || !ok {
		t.Fatalf("ReadField(a): %v, %v", ok, err)
	} else if got, err := v.Bool(); err != nil || got != true {
		t.Fatalf("a.Bool() = %v, %v, want true, nil", got, err)
	}

	if _, v, ok, err := rd.ReadField(wire.Named("b")); err != nil || !ok {
		t.Fatalf("ReadField(b): %v, %v", ok, err)
	} else if got, err := v.Int64(); err != nil || got != -42 {
		t.Fatalf("b.Int64() = %v, %v, want -42, nil", got, err)
	}

	if _, v, ok, err := rd.ReadField(wire.Named("c")); err != nil || !ok {
		t.Fatalf("ReadField(c): %v, %v", ok, err)
	} else if got, err := v.Text(); err != nil || got != "hello" {
		t.Fatalf("c.Text() = %q, %v, want %q, nil", got, err, "hello")
	}

	if _, v, ok, err := rd.ReadField(wire.Named("d")); err != nil || !ok {
		t.Fatalf("ReadField(d): %v, %v", ok, err)
	} else if got, err := v.Bytes(); err != nil || string(got) != "\xDE\xAD\xBE\xEF" {
		t.Fatalf("d.Bytes() = %x, %v, want deadbeef, nil", got, err)
	}

	if _, v, ok, err := rd.ReadField(wire.Named("e")); err != nil || !ok {
		t.Fatalf("ReadField(e): %v, %v", ok, err)
	} else if got, err := v.Float64(); err != nil || got != 3.5 {
		t.Fatalf("e.Float64() = %v, %v, want 3.5, nil", got, err)
	}
}

func TestSchemaEvolutionReorderAndResidual(t *testing.T) {
	s := heap.New(512)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Named("first")).Int32(1)
		wr.WriteField(wire.Named("extra")).Text("unrequested")
		wr.WriteField(wire.Named("second")).Int32(2)
	})

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := binary.New().NewReader(reader)

	_, v2, ok, err := rd.ReadField(wire.Named("second"))
	if err != nil || !ok {
		t.Fatalf("ReadField(second) out of order: %v, %v", ok, err)
	}
	if got, _ := v2.Int32(); got != 2 {
		t.Fatalf("second.Int32() = %d, want 2", got)
	}

	_, v1, ok, err := rd.ReadField(wire.Named("first"))
	if err != nil || !ok {
		t.Fatalf("ReadField(first) after reorder: %v, %v", ok, err)
	}
	if got, _ := v1.Int32(); got != 1 {
		t.Fatalf("first.Int32() = %d, want 1", got)
	}

	residual, err := rd.Residual()
	if err != nil {
		t.Fatal(err)
	}
	if len(residual) != 1 || residual[0].Field.Name != "extra" {
		t.Fatalf("Residual() = %+v, want exactly the unrequested \"extra\" field", residual)
	}
}

func TestMissingFieldReportsNotFound(t *testing.T) {
	s := heap.New(256)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Named("present")).Int32(7)
	})

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := binary.New().NewReader(reader)

	_, v, ok, err := rd.ReadField(wire.Named("absent"))
	if err != nil {
		t.Fatalf("ReadField(absent): %v", err)
	}
	if ok {
		t.Fatalf("ReadField(absent) reported found=true")
	}
	if got, err := v.Value(); err != nil || !got.IsMissing() {
		t.Fatalf("Value() for a missing field = %+v, %v, want the Missing sentinel", got, err)
	}
}

func TestNestedTypedObjectAndSequence(t *testing.T) {
	s := heap.New(512)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Named("point")).TypedObject("Point", func(inner wire.Writer) error {
			inner.WriteField(wire.Named("x")).Int32(3)
			inner.WriteField(wire.Named("y")).Int32(4)
			return nil
		})
		wr.WriteField(wire.Named("tags")).Sequence(func(seq wire.SequenceOut) error {
			if err := seq.Element().Text("a"); err != nil {
				return err
			}
			return seq.Element().Text("b")
		})
	})

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := binary.New().NewReader(reader)

	_, pv, ok, err := rd.ReadField(wire.Named("point"))
	if err != nil || !ok {
		t.Fatalf("ReadField(point): %v, %v", ok, err)
	}
	var x, y int32
	if err := pv.TypedObject(func(alias string, r wire.Reader) error {
		if alias != "Point" {
			t.Fatalf("TypedObject alias = %q, want Point", alias)
		}
		_, xv, _, err := r.ReadField(wire.Named("x"))
		if err != nil {
			return err
		}
		x, err = xv.Int32()
		if err != nil {
			return err
		}
		_, yv, _, err := r.ReadField(wire.Named("y"))
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

	_, sv, ok, err := rd.ReadField(wire.Named("tags"))
	if err != nil || !ok {
		t.Fatalf("ReadField(tags): %v, %v", ok, err)
	}
	var got []string
	if err := sv.Sequence(func(seq wire.SequenceIn) error {
		for {
			el, ok, err := seq.Next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			s, err := el.Text()
			if err != nil {
				return err
			}
			got = append(got, s)
		}
	}); err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("sequence = %v, want [a b]", got)
	}
}

func TestBoundScalarSurvivesLazyMatchScan(t *testing.T) {
	s := heap.New(256)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Named("skip-me")).Int64(99)
		// A value outside the bare-byte (0..127) and int16 (<=32767) ranges
		// is tagged int32 on the wire, so decodeValue captures a live
		// BoundRef for it (see binary.go decodeValue's tagInt32/tagInt64
		// cases).
		wr.WriteField(wire.Named("counter")).Int64(1000000)
	})

	reader := wire.New(s, wire.NewBusyPauser(), nil)
	if _, err := reader.ReadDataHeader(false); err != nil {
		t.Fatal(err)
	}
	rd := binary.New().NewReader(reader)

	// Requesting "counter" first forces a lazy-match scan past "skip-me",
	// whose bytes are fully consumed during the scan. The bound ref it
	// captured must still address live storage.
	_, v, ok, err := rd.ReadField(wire.Named("counter"))
	if err != nil || !ok {
		t.Fatalf("ReadField(counter): %v, %v", ok, err)
	}
	ref, err := v.BoundScalar(nil)
	if err != nil {
		t.Fatalf("BoundScalar: %v", err)
	}
	if ok := ref.CompareAndSet(1000000, 5); !ok {
		t.Fatalf("CompareAndSet(1000000, 5) failed")
	}
	if got := ref.VolatileGet(); got != 5 {
		t.Fatalf("VolatileGet() = %d, want 5", got)
	}
}

func TestIntegerNarrowing(t *testing.T) {
	s := heap.New(256)
	w := wire.New(s, wire.NewBusyPauser(), nil)

	offset := writeDocument(t, s, w, func(wr wire.Writer) {
		wr.WriteField(wire.Named("small")).Int64(1)
	})

	// tag 0xC5 ('small', len 5) + "small" + bare byte 0x01 (no int tag).
	got := bodyBytes(t, s, offset, 1+5+1)
	want := append([]byte{0xC5}, append([]byte("small"), 0x01)...)
	if !bytes.Equal(got, want) {
		t.Fatalf("body = % X, want % X", got, want)
	}
}
