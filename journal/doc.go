// Package journal combines journal/cluster's RAFT-replicated byte stream
// with journal/index's pebble sidecar index into a resumable-scan Stream.
// cmd/wiredoc's "scan --resume" uses journal/index directly against a local
// store rather than this package.
package journal
