// Package pet owns the virtual pet program.
//
// Ownership boundary:
// - request dispatch and authorization
//
// - vitals decay arithmetic
//
// - token approval and attribute purchase calls
//
// - the reservation pool and the self-ping watchdog
//
// Lifecycle order:
// - init -> handle* (host serialized)
//
// - handlers mutate a working copy; the copy is committed only when the
// handler returns without error.
//
// Transport, gas accounting and persistence belong to the host.
package pet
