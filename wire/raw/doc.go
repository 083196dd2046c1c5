// Package raw implements wire.Format for the field-less, positional binary
// layout (spec.md §4.6). Values are written strictly in the order agreed
// between writer and reader; there is no field identity, no random access,
// and no schema evolution.
package raw
