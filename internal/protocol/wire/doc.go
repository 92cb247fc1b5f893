// Package wire owns the typed messages exchanged with the pet program.
//
// Ownership boundary:
// - pet Request and Event unions
// - pet State record
// - fungible-token and attribute-store collaborator messages
//
// Every union is encoded as a one-byte discriminant followed by the
// variant fields in declared order (see package scale). Decoders reject
// unknown discriminants and trailing bytes with ErrDecode.
package wire
