// Package scale owns the canonical binary value codec.
//
// Ownership boundary:
// - fixed-width little-endian integers (u8, u32, u64, u128)
// - compact integers and length prefixes
// - text, byte vectors, bool and option tags
//
// Enum discriminants and field order belong to the message packages that
// build on this codec.
package scale
