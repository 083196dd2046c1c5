// Package index is a pebble-backed sidecar LSM index mapping a stream's
// HeaderNumber to the byte offset its document starts at, so
// "cmd/wiredoc scan --resume" can seek directly instead of rescanning from
// offset 0. Keys and values follow the fixed-width big-endian encoding the
// teacher's lib/db engines use for their own on-disk integer keys.
package index
