// Package host owns the in-process actor runtime.
//
// Ownership boundary:
// - program registry and message delivery
//
// - block clock and the delayed message queue
//
// - gas limits, out-of-gas signals and reservations
//
// - request/reply calls between programs within a reply window
//
// Lifecycle order:
// - register -> init -> send/advance*
//
// - a handler's outgoing messages are released only when it returns
// without error.
//
// Programs never see the runtime directly; they get an actor.Env per delivery.
package host
