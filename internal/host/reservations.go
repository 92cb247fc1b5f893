package host

import (
	"fmt"

	"github.com/danmuck/tamactl/internal/actor"
)

// reservation is escrowed gas owned by one program until expiresAt.
type reservation struct {
	owner     actor.ID
	amount    uint64
	expiresAt uint64
}

func (r reservation) live(block uint64) bool {
	return block < r.expiresAt
}

// ReserveGas escrows amount from the current delivery budget.
func (e *env) ReserveGas(amount uint64, duration uint32) (actor.ReservationID, error) {
	cfg := e.rt.cfg
	switch {
	case amount < cfg.MinReservation || amount > cfg.MaxReservation:
		return actor.ReservationID{}, fmt.Errorf("%w: amount %d outside [%d, %d]", ErrInvalidGas, amount, cfg.MinReservation, cfg.MaxReservation)
	case duration == 0 || duration > cfg.MaxReservationDuration:
		return actor.ReservationID{}, fmt.Errorf("%w: duration %d outside [1, %d]", ErrInvalidGas, duration, cfg.MaxReservationDuration)
	case amount > e.gasLeft:
		return actor.ReservationID{}, fmt.Errorf("%w: amount %d exceeds remaining gas %d", ErrInvalidGas, amount, e.gasLeft)
	}
	e.gasLeft -= amount

	id := actor.NewReservationID()
	if e.reserved == nil {
		e.reserved = make(map[actor.ReservationID]reservation)
	}
	e.reserved[id] = reservation{
		owner:     e.self,
		amount:    amount,
		expiresAt: e.block + uint64(duration),
	}
	return id, nil
}

// SendFromReservation queues payload for the current block paid by id.
func (e *env) SendFromReservation(id actor.ReservationID, dest actor.ID, payload []byte) error {
	e.rt.mu.Lock()
	res, ok := e.rt.reservations[id]
	e.rt.mu.Unlock()
	if !ok {
		if res, ok = e.reserved[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHandle, id)
		}
	}
	for _, spent := range e.spent {
		if spent == id {
			return fmt.Errorf("%w: %s", ErrUnknownHandle, id)
		}
	}
	if res.owner != e.self {
		return fmt.Errorf("%w: %s", ErrHandleNotOwned, id)
	}
	if !res.live(e.block) {
		return fmt.Errorf("%w: %s at block %d", ErrHandleExpired, id, res.expiresAt)
	}

	e.spent = append(e.spent, id)
	e.outgoing = append(e.outgoing, queued{
		due:     e.block,
		source:  e.self,
		dest:    dest,
		payload: append([]byte(nil), payload...),
		gas:     res.amount,
	})
	return nil
}

// Reservations reports live reservations held by owner.
func (rt *Runtime) Reservations(owner actor.ID) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	n := 0
	for _, res := range rt.reservations {
		if res.owner == owner && res.live(rt.now) {
			n++
		}
	}
	return n
}

// expireReservations drops dead reservations. Caller holds rt.mu.
func (rt *Runtime) expireReservations() int {
	n := 0
	for id, res := range rt.reservations {
		if !res.live(rt.now) {
			delete(rt.reservations, id)
			n++
		}
	}
	return n
}
