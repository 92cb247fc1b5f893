package host

import (
	"context"

	"github.com/danmuck/tamactl/internal/actor"
)

// Delivery kinds.
const (
	KindInit   = "init"
	KindHandle = "handle"
	KindSignal = "signal"
)

// Delivery outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeOutOfGas = "out_of_gas"
)

// Record is one delivery as observed by the host.
type Record struct {
	Block     uint64
	MessageID actor.MessageID
	Kind      string
	Source    actor.ID
	Dest      actor.ID
	Payload   []byte
	Reply     []byte
	Outcome   string
	Err       string
}

// Journal receives every top-level and nested delivery record.
type Journal interface {
	Append(ctx context.Context, rec Record) error
}

// Snapshotter is implemented by journals that also persist program state
// after each successful delivery.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, block uint64, program actor.ID, state []byte) error
}
