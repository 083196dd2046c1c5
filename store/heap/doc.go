// Package heap implements store.ByteStore over a plain Go byte slice.
//
// It is the simplest ByteStore: single process, fixed capacity set at
// construction (never reallocated), and reports SharedMemory() == false,
// which is the value a wire.Wire over it reports from
// NotCompleteIsNotPresent (see AbstractWire's notCompleteIsNotPresent
// field, which this package's SharedMemory() value feeds directly).
package heap
