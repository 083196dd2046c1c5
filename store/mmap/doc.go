// Package mmap implements store.ByteStore over a memory-mapped file,
// giving multiple OS processes a shared view of the same document stream -
// the "bound in-memory state shared across processes" use case called out
// in spec.md §1. CAS and volatile/ordered access operate directly on the
// mapped page, so two processes racing to reserve the same header really
// do race on the same physical memory, the way Chronicle Wire's ByteStore
// does over a mapped Chronicle Bytes region.
package mmap
