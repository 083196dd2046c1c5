// Package store defines ByteStore, the random-access bounded-buffer
// collaborator the wire engine is built on top of, and provides two
// concrete implementations: a heap-backed store for single-process use
// and an mmap-backed store for sharing a document stream across processes.
//
// ByteStore itself only has to provide bounds-checked bulk I/O plus
// volatile/ordered/CAS access to individual 32-bit header words; everything
// about document framing, field codecs, and bound references is built on
// top of it by the wire package. Neither implementation here knows what a
// document or a field is.
package store
