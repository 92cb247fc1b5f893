package wire

import (
	"fmt"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
)

// Vital is one decaying level with the block it was last written at.
type Vital struct {
	Level     uint64 `json:"level"`
	UpdatedAt uint64 `json:"updated_at"`
}

// PendingApproval is an issued but unconfirmed token approval.
type PendingApproval struct {
	TxID    uint64     `json:"tx_id"`
	Account actor.ID   `json:"account"`
	Amount  scale.U128 `json:"amount"`
}

// State is the full pet record served by the state endpoint.
type State struct {
	Name            string                `json:"name"`
	BirthTime       uint64                `json:"birth_time"`
	Owner           actor.ID              `json:"owner"`
	Fullness        Vital                 `json:"fullness"`
	Entertainment   Vital                 `json:"entertainment"`
	Rest            Vital                 `json:"rest"`
	Operator        *actor.ID             `json:"operator,omitempty"`
	TokenActor      actor.ID              `json:"token_actor"`
	NextTxID        uint64                `json:"next_tx_id"`
	PendingApproval *PendingApproval      `json:"pending_approval,omitempty"`
	Reservations    []actor.ReservationID `json:"reservations"`
}

func (s State) Encode() []byte {
	e := scale.NewEncoder()
	e.PutString(s.Name)
	e.PutU64(s.BirthTime)
	putID(e, s.Owner)
	for _, v := range []Vital{s.Fullness, s.Entertainment, s.Rest} {
		e.PutU64(v.Level)
		e.PutU64(v.UpdatedAt)
	}
	if s.Operator != nil {
		e.PutU8(1)
		putID(e, *s.Operator)
	} else {
		e.PutU8(0)
	}
	putID(e, s.TokenActor)
	e.PutU64(s.NextTxID)
	if s.PendingApproval != nil {
		e.PutU8(1)
		e.PutU64(s.PendingApproval.TxID)
		putID(e, s.PendingApproval.Account)
		e.PutU128(s.PendingApproval.Amount)
	} else {
		e.PutU8(0)
	}
	e.PutCompact(uint64(len(s.Reservations)))
	for _, r := range s.Reservations {
		putReservation(e, r)
	}
	return e.Bytes()
}

func DecodeState(b []byte) (State, error) {
	s, err := decodeState(scale.NewDecoder(b))
	if err != nil {
		return State{}, fmt.Errorf("%w: state: %w", ErrDecode, err)
	}
	return s, nil
}

func decodeState(d *scale.Decoder) (State, error) {
	var s State
	var err error
	if s.Name, err = d.String(); err != nil {
		return State{}, err
	}
	if s.BirthTime, err = d.U64(); err != nil {
		return State{}, err
	}
	if s.Owner, err = readID(d); err != nil {
		return State{}, err
	}
	for _, v := range []*Vital{&s.Fullness, &s.Entertainment, &s.Rest} {
		if v.Level, err = d.U64(); err != nil {
			return State{}, err
		}
		if v.UpdatedAt, err = d.U64(); err != nil {
			return State{}, err
		}
	}
	some, err := d.OptionTag()
	if err != nil {
		return State{}, err
	}
	if some {
		op, err := readID(d)
		if err != nil {
			return State{}, err
		}
		s.Operator = &op
	}
	if s.TokenActor, err = readID(d); err != nil {
		return State{}, err
	}
	if s.NextTxID, err = d.U64(); err != nil {
		return State{}, err
	}
	if some, err = d.OptionTag(); err != nil {
		return State{}, err
	}
	if some {
		var p PendingApproval
		if p.TxID, err = d.U64(); err != nil {
			return State{}, err
		}
		if p.Account, err = readID(d); err != nil {
			return State{}, err
		}
		if p.Amount, err = d.U128(); err != nil {
			return State{}, err
		}
		s.PendingApproval = &p
	}
	n, err := d.Length()
	if err != nil {
		return State{}, err
	}
	s.Reservations = make([]actor.ReservationID, 0, n)
	for i := 0; i < n; i++ {
		r, err := readReservation(d)
		if err != nil {
			return State{}, err
		}
		s.Reservations = append(s.Reservations, r)
	}
	if err := d.Finish(); err != nil {
		return State{}, err
	}
	return s, nil
}
