// Package text implements wire.Format for the self-describing YAML-subset
// layout (spec.md §4.4). A document body is UTF-8 "key: value" lines; the
// grammar implemented here is a deliberate subset of the full one described
// by spec.md - inline `[a, b]` sequences and inline `!alias {a: 1}` typed
// objects, but no block-indented nested mappings - documented in DESIGN.md.
package text
