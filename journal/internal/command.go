// Package internal holds the wire format of the dragonboat proposals and
// queries used by journal/cluster, mirrored on the teacher's
// lib/store/dstore/internal command/query pair.
package internal

import (
	"encoding/binary"
	"fmt"
)

// CommandType identifies a proposal applied by JournalStateMachine.Update.
type CommandType uint8

const (
	// CommandTAppend appends one raw document payload as a new data
	// document in the replicated journal.
	CommandTAppend CommandType = iota
)

func (t CommandType) String() string {
	switch t {
	case CommandTAppend:
		return "Append"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Command is a single RAFT log entry: append Payload to the journal.
type Command struct {
	Type    CommandType
	Payload []byte
}

// Serialize lays out Command as 1 byte type + 4 byte big-endian length +
// payload, the same fixed-header-then-blob shape as the teacher's
// internal.Command.Serialize.
func (c *Command) Serialize() []byte {
	out := make([]byte, 5+len(c.Payload))
	out[0] = byte(c.Type)
	binary.BigEndian.PutUint32(out[1:5], uint32(len(c.Payload)))
	copy(out[5:], c.Payload)
	return out
}

func (c *Command) Deserialize(data []byte) error {
	if len(data) < 5 {
		return fmt.Errorf("journal: command too short")
	}
	c.Type = CommandType(data[0])
	n := binary.BigEndian.Uint32(data[1:5])
	if len(data) < int(5+n) {
		return fmt.Errorf("journal: command payload truncated")
	}
	c.Payload = append([]byte(nil), data[5:5+n]...)
	return nil
}

// QueryType identifies a read-only Lookup request.
type QueryType uint8

const (
	// QueryTReadAt returns the data document whose header begins at Offset.
	QueryTReadAt QueryType = iota
	// QueryTHeaderCount returns the number of data documents appended so far.
	QueryTHeaderCount
)

// Query is sent via SyncRead/StaleRead to JournalStateMachine.Lookup.
type Query struct {
	Type   QueryType
	Offset int64
}

// QueryResult is the result of QueryTReadAt.
type QueryResult struct {
	Ok      bool
	Payload []byte
	Next    int64 // offset of the next document, for iteration
}
