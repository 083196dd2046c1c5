package internal

import "testing"

func TestCommandSerializeRoundTrip(t *testing.T) {
	c := Command{Type: CommandTAppend, Payload: []byte("hello")}
	data := c.Serialize()

	var got Command
	if err := got.Deserialize(data); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Type != CommandTAppend || string(got.Payload) != "hello" {
		t.Fatalf("got = %+v, want Type=Append Payload=hello", got)
	}
}

func TestCommandDeserializeRejectsTruncatedInput(t *testing.T) {
	var c Command
	if err := c.Deserialize([]byte{0, 0, 0}); err == nil {
		t.Fatalf("Deserialize(3 bytes) succeeded, want error")
	}
}

func TestCommandDeserializeRejectsTruncatedPayload(t *testing.T) {
	c := Command{Type: CommandTAppend, Payload: []byte("hello")}
	data := c.Serialize()

	var got Command
	if err := got.Deserialize(data[:len(data)-2]); err == nil {
		t.Fatalf("Deserialize(truncated payload) succeeded, want error")
	}
}

func TestCommandTypeString(t *testing.T) {
	if CommandTAppend.String() != "Append" {
		t.Fatalf("CommandTAppend.String() = %q, want %q", CommandTAppend.String(), "Append")
	}
	if got := CommandType(99).String(); got != "Unknown(99)" {
		t.Fatalf("CommandType(99).String() = %q, want %q", got, "Unknown(99)")
	}
}
