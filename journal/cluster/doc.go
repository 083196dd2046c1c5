// Package cluster replicates a wiredoc byte stream across a RAFT group
// using dragonboat, the way the teacher's lib/store/dstore replicates a KV
// store: a statemachine wraps one store.ByteStore, applying "append
// document" proposals to it and answering read queries directly, so every
// replica converges on the identical framed stream.
package cluster
