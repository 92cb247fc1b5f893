package actor

import "context"

// Env is the host surface visible to a program for the duration of one
// delivery. Outgoing messages are buffered and released only when the
// handler returns without error.
type Env interface {
	BlockTimestamp() uint64
	Source() ID
	ProgramID() ID
	MessageID() MessageID

	// SendDelayed queues payload for dest after delay blocks.
	SendDelayed(dest ID, payload []byte, delay uint32) error
	// SendForReply delivers payload to dest and suspends until it replies
	// or the host reply window closes.
	SendForReply(ctx context.Context, dest ID, payload []byte) ([]byte, error)

	ReserveGas(amount uint64, duration uint32) (ReservationID, error)
	SendFromReservation(id ReservationID, dest ID, payload []byte) error
}

// Program is one addressable actor hosted by the runtime.
type Program interface {
	Init(ctx context.Context, env Env, payload []byte) error
	// Handle returns the reply payload, or nil when the program stays silent.
	Handle(ctx context.Context, env Env, payload []byte) ([]byte, error)
	HandleSignal(ctx context.Context, env Env) error
	State() ([]byte, error)
}
