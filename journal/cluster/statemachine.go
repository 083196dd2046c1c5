package cluster

import (
	"errors"
	"fmt"
	"io"

	sm "github.com/lni/dragonboat/v4/statemachine"

	"github.com/ValentinKolb/wiredoc/classalias"
	"github.com/ValentinKolb/wiredoc/journal/internal"
	"github.com/ValentinKolb/wiredoc/store/heap"
	"github.com/ValentinKolb/wiredoc/wire"
)

// JournalStateMachine is a dragonboat IConcurrentStateMachine wrapping one
// heap.Store written through a *wire.Wire. Every replica applies the same
// sequence of append proposals, so every replica's underlying byte stream
// is bit-identical - the same structure as the teacher's KVStateMachine
// (lib/store/dstore/statemachine.go), with a framed document stream in
// place of a key-value map.
type JournalStateMachine struct {
	replicaID uint64
	shardID   uint64
	store     *heap.Store
	w         *wire.Wire
}

// CreateStateMachineFactory returns a dragonboat statemachine factory whose
// instances each own an independent in-memory journal of the given
// capacity, mirroring the teacher's CreateStateMaschineFactory /
// store.DBFactory pattern.
func CreateStateMachineFactory(capacity int64) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		s := heap.New(capacity)
		return &JournalStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			store:     s,
			w:         wire.New(s, wire.NewBusyPauser(), classalias.Default()),
		}
	}
}

// Lookup answers read-only queries against the replica's local journal.
func (fsm *JournalStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, fmt.Errorf("journal: invalid query type %T", itf)
	}
	switch q.Type {
	case internal.QueryTReadAt:
		return fsm.readAt(q.Offset)
	case internal.QueryTHeaderCount:
		return fsm.w.HeaderNumber(), nil
	default:
		return nil, fmt.Errorf("journal: unknown query type %d", q.Type)
	}
}

func (fsm *JournalStateMachine) readAt(offset int64) (internal.QueryResult, error) {
	if err := fsm.store.SetReadPosition(offset); err != nil {
		return internal.QueryResult{}, err
	}
	kind, err := fsm.w.ReadDataHeader(false)
	if err != nil {
		if errors.Is(err, wire.ErrEndOfStream) {
			return internal.QueryResult{Ok: false}, nil
		}
		return internal.QueryResult{}, err
	}
	if kind != wire.HeaderData {
		return internal.QueryResult{Ok: false}, nil
	}
	body := make([]byte, fsm.store.ReadRemaining())
	if _, err := fsm.store.Read(body); err != nil {
		return internal.QueryResult{}, err
	}
	return internal.QueryResult{Ok: true, Payload: body, Next: fsm.store.ReadPosition()}, nil
}

// Update applies one batch of append proposals. Since applies to a single
// replica's statemachine are always sequential, WriteHeader's CAS always
// succeeds on its first attempt here; a zero timeout is deliberate, not a
// missing budget.
func (fsm *JournalStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	for idx, e := range entries {
		cmd := internal.Command{}
		if len(e.Cmd) == 0 || cmd.Deserialize(e.Cmd) != nil {
			entries[idx].Result = sm.Result{Value: 0, Data: []byte("malformed command")}
			continue
		}

		switch cmd.Type {
		case internal.CommandTAppend:
			offset, err := fsm.w.WriteHeader(int32(len(cmd.Payload)), 0, nil)
			if err != nil {
				entries[idx].Result = sm.Result{Value: 0, Data: []byte(err.Error())}
				continue
			}
			if _, err := fsm.store.Write(cmd.Payload); err != nil {
				entries[idx].Result = sm.Result{Value: 0, Data: []byte(err.Error())}
				continue
			}
			if err := fsm.w.UpdateHeader(int32(len(cmd.Payload)), offset, false); err != nil {
				entries[idx].Result = sm.Result{Value: 0, Data: []byte(err.Error())}
				continue
			}
			entries[idx].Result = sm.Result{Value: uint64(offset)}
		default:
			entries[idx].Result = sm.Result{Value: 0, Data: []byte(fmt.Sprintf("unknown command type %s", cmd.Type))}
		}
	}
	return entries, nil
}

// PrepareSnapshot is a no-op: the heap store is captured fuzzily straight
// from SaveSnapshot, the same choice the teacher's KVStateMachine makes.
func (fsm *JournalStateMachine) PrepareSnapshot() (interface{}, error) { return nil, nil }

func (fsm *JournalStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	n := fsm.store.RealCapacity()
	buf := make([]byte, n)
	prevPos, prevLimit := fsm.store.ReadPosition(), fsm.store.ReadLimit()
	defer func() {
		_ = fsm.store.SetReadLimit(prevLimit)
		_ = fsm.store.SetReadPosition(prevPos)
	}()
	if err := fsm.store.SetReadLimit(n); err != nil {
		return err
	}
	if err := fsm.store.SetReadPosition(0); err != nil {
		return err
	}
	if _, err := fsm.store.Read(buf); err != nil {
		return err
	}
	_, err := writer.Write(buf)
	return err
}

func (fsm *JournalStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	n := fsm.store.RealCapacity()
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if err := fsm.store.SetWritePosition(0); err != nil {
		return err
	}
	_, err := fsm.store.Write(buf)
	return err
}

func (fsm *JournalStateMachine) Close() error { return fsm.store.Close() }
