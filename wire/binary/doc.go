// Package binary implements wire.Format for the self-describing tagged
// binary layout (spec.md §4.5). Every value is introduced by a tag byte;
// field identity and, where the value fits, its type are recoverable from
// the tag alone, which is what lets a polymorphic reader distinguish this
// layout from text by its leading byte (bit 7 set).
package binary
