package pet

import (
	"fmt"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/wire"
)

func (d *dispatch) reserveGas(amount uint64, duration uint32) (*wire.Event, error) {
	id, err := d.env.ReserveGas(amount, duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReservation, err)
	}
	d.st.Reservations = append(d.st.Reservations, id)
	return &wire.Event{Kind: wire.EventGasReserved}, nil
}

// popReservation removes the oldest handle.
func popReservation(st *wire.State) (actor.ReservationID, bool) {
	if len(st.Reservations) == 0 {
		return actor.ReservationID{}, false
	}
	id := st.Reservations[0]
	st.Reservations = st.Reservations[1:]
	return id, true
}

// DropReservations forgets every held handle and reports how many were
// dropped. Handles minted by an earlier host are not valid on a new one.
func (p *Program) DropReservations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil || len(p.state.Reservations) == 0 {
		return 0
	}
	next := cloneState(*p.state)
	n := len(next.Reservations)
	next.Reservations = []actor.ReservationID{}
	p.commit(next)
	return n
}
