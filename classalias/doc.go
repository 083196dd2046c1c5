// Package classalias provides the ClassAlias collaborator consumed by the
// wire codec (see spec.md §6): an opaque, two-way mapping between a short
// alias string (as written on the wire for typed objects and typed
// marshallables - BinaryFormat tags 0xF0..0xFB and 0xB6) and a user type
// tag. The codec never inspects the registered type itself; it only asks
// for the alias of a tag when writing and the tag for an alias when
// reading, exactly the nameOf/typeOf pair in spec.md §6.
//
// A Registry is built once at startup and frozen in steady state: readers
// after that point only ever call NameOf/TypeOf concurrently, never
// Register, mirroring the lifecycle note in spec.md §9 ("constructed once,
// mutated only before first use in steady state; concurrent readers after
// freeze").
package classalias
