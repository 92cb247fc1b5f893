package pet

import (
	"slices"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/wire"
)

// newState builds the record created by init.
func newState(name string, owner actor.ID, now uint64) wire.State {
	full := wire.Vital{Level: MaxLevel, UpdatedAt: now}
	return wire.State{
		Name:          name,
		BirthTime:     now,
		Owner:         owner,
		Fullness:      full,
		Entertainment: full,
		Rest:          full,
		Reservations:  []actor.ReservationID{},
	}
}

// cloneState deep-copies the pointer and slice fields of st.
func cloneState(st wire.State) wire.State {
	out := st
	if st.Operator != nil {
		op := *st.Operator
		out.Operator = &op
	}
	if st.PendingApproval != nil {
		pending := *st.PendingApproval
		out.PendingApproval = &pending
	}
	out.Reservations = slices.Clone(st.Reservations)
	if out.Reservations == nil {
		out.Reservations = []actor.ReservationID{}
	}
	return out
}
