package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/ValentinKolb/wiredoc/journal/internal"
)

var (
	retries = 5
	log     = logger.GetLogger("journal")
)

// Journal is a RAFT-replicated append-only byte stream: Append proposes one
// document payload to the shard and every replica frames it identically;
// ReadAt answers a linearizable (or stale) query against a replica's local
// copy. The shape mirrors the teacher's store.IStore / storeImpl split in
// lib/store/dstore/store.go, with a single Append/ReadAt pair standing in
// for the KV store's Set/Get family.
type Journal struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration

	// ownerID is a stable cross-restart identity for this writer, handed
	// to callers that need to correlate appends with their issuing
	// process (e.g. a BoundRef "last writer" tag); dragonboat's own
	// client.Session already gives proposals exactly-once semantics, so
	// ownerID is carried for the caller's bookkeeping, not for RAFT
	// itself.
	ownerID uuid.UUID
}

// NewJournal wraps an already-started NodeHost hosting shardID with the
// Append/ReadAt surface.
func NewJournal(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) *Journal {
	return &Journal{
		nh:      nh,
		shardID: shardID,
		cs:      nh.GetNoOPSession(shardID),
		timeout: timeout,
		ownerID: uuid.New(),
	}
}

// OwnerID identifies this Journal handle across restarts.
func (j *Journal) OwnerID() uuid.UUID { return j.ownerID }

// Append proposes payload as a new data document and returns the offset it
// was committed at.
func (j *Journal) Append(payload []byte) (int64, error) {
	cmd := internal.Command{Type: internal.CommandTAppend, Payload: payload}
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		res, err := j.nh.SyncPropose(ctx, j.cs, cmd.Serialize())
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: system busy, retrying (%d/%d)", i+1, retries)
			time.Sleep(j.timeout / 10)
			continue
		}
		if err != nil {
			return 0, err
		}
		if res.Data != nil {
			return 0, fmt.Errorf("journal: append rejected: %s", string(res.Data))
		}
		return int64(res.Value), nil
	}
	return 0, fmt.Errorf("journal: append timed out after %d retries", retries)
}

// ReadAt returns the document whose header begins at offset, the offset of
// the document following it, and whether one was present. stale selects
// StaleRead over the default linearizable SyncRead, the same knob the
// teacher exposes for GetDBInfo.
func (j *Journal) ReadAt(offset int64, stale bool) ([]byte, int64, bool, error) {
	q := internal.Query{Type: internal.QueryTReadAt, Offset: offset}
	for i := 0; i < retries; i++ {
		var res interface{}
		var err error
		if stale {
			res, err = j.nh.StaleRead(j.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
			res, err = j.nh.SyncRead(ctx, j.shardID, q)
			cancel()
		}

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: system busy, retrying (%d/%d)", i+1, retries)
			time.Sleep(j.timeout / 10)
			continue
		}
		if err != nil {
			return nil, 0, false, err
		}
		qr, ok := res.(internal.QueryResult)
		if !ok {
			return nil, 0, false, fmt.Errorf("journal: unexpected query result type %T", res)
		}
		return qr.Payload, qr.Next, qr.Ok, nil
	}
	return nil, 0, false, fmt.Errorf("journal: read timed out after %d retries", retries)
}

// HeaderCount returns the number of documents appended so far, per a
// (necessarily stale) local read.
func (j *Journal) HeaderCount() (int64, error) {
	res, err := j.nh.StaleRead(j.shardID, internal.Query{Type: internal.QueryTHeaderCount})
	if err != nil {
		return 0, err
	}
	n, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("journal: unexpected header-count result type %T", res)
	}
	return n, nil
}
