// Package wiredoc implements the wiredoc CLI: a thin cobra front end over
// the wire/store/journal packages, in the same RootCmd-plus-subpackage
// layout as the teacher's cmd/kv, cmd/lock and cmd/serve.
//
//   - write/read/dump operate directly on a local heap- or mmap-backed
//     store, framing and decoding documents through a chosen wire.Format.
//   - scan additionally consults a journal/index.Index sidecar to resume a
//     long-running scan without replaying from offset 0.
//   - serve starts a dragonboat-replicated journal/cluster shard plus an
//     HTTP /metrics endpoint exposing the VictoriaMetrics/metrics counters
//     wire.go increments.
package wiredoc
