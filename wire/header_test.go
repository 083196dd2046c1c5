package wire

import "testing"

func TestHeaderSentinels(t *testing.T) {
	if NotInitialized != 0 {
		t.Fatalf("NotInitialized = %#x, want 0", NotInitialized)
	}
	if NotCompleteUnknownLength != 0x8000_0000 {
		t.Fatalf("NotCompleteUnknownLength = %#x, want 0x8000_0000", NotCompleteUnknownLength)
	}
	if EndOfData != 0xC000_0000 {
		t.Fatalf("EndOfData = %#x, want 0xC000_0000", EndOfData)
	}
	if MaxLength != 0x3FFF_FFFF || UnknownLength != 0x3FFF_FFFF {
		t.Fatalf("MaxLength/UnknownLength = %#x/%#x, want 0x3FFFFFFF both", MaxLength, UnknownLength)
	}
}

func TestReservationAndCommitRoundTrip(t *testing.T) {
	h := reservation(123)
	if !isNotComplete(h) {
		t.Fatalf("a fresh reservation must be not-complete")
	}
	if lengthOf(h) != 123 {
		t.Fatalf("lengthOf(reservation(123)) = %d, want 123", lengthOf(h))
	}

	committed := commitHeader(123, false)
	if !isReady(committed) || !isData(committed) || isMetaData(committed) {
		t.Fatalf("commitHeader(123, false) = %#x should be a ready data header", committed)
	}
	if lengthOf(committed) != 123 {
		t.Fatalf("lengthOf(committed) = %d, want 123", lengthOf(committed))
	}

	meta := commitHeader(7, true)
	if !isReady(meta) || !isMetaData(meta) || isData(meta) {
		t.Fatalf("commitHeader(7, true) = %#x should be a ready meta-data header", meta)
	}
}

func TestHeaderTypeString(t *testing.T) {
	cases := map[HeaderType]string{HeaderNone: "NONE", HeaderMeta: "META", HeaderData: "DATA"}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("HeaderType(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestNotInitializedIsNeitherReadyDataNorMeta(t *testing.T) {
	// NotInitialized has its not-complete bit clear (isReady would say yes)
	// but callers must special-case it as "never reserved", not as a
	// zero-length ready document - isData/isMetaData both exclude it.
	if isData(NotInitialized) || isMetaData(NotInitialized) {
		t.Fatalf("NotInitialized must not read as a committed data or meta header")
	}
}

func TestEndOfDataIsNotTreatedAsNotComplete(t *testing.T) {
	// isNotComplete must exclude EndOfData even though its not-complete bit
	// is set, since WriteHeader's scan loop treats EndOfData as a distinct
	// terminal case, not something to keep waiting on.
	if isNotComplete(EndOfData) {
		t.Fatalf("EndOfData must not be reported as isNotComplete")
	}
}
