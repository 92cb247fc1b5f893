package pet

import (
	"context"
	"errors"

	"github.com/danmuck/tamactl/internal/actor"
)

var errNoReply = errors.New("fake: no reply")

type sentMessage struct {
	dest    actor.ID
	payload []byte
	delay   uint32
}

// fakeEnv is a scripted host for one program.
type fakeEnv struct {
	now    uint64
	source actor.ID
	self   actor.ID

	delayed      []sentMessage
	fromReserved []sentMessage
	calls        []sentMessage
	responders   map[actor.ID]func([]byte) ([]byte, error)

	reserveErr  error
	reserved    []actor.ReservationID
	spendErr    error
	spentHandle []actor.ReservationID
}

func newFakeEnv(self, source actor.ID) *fakeEnv {
	return &fakeEnv{
		self:       self,
		source:     source,
		responders: make(map[actor.ID]func([]byte) ([]byte, error)),
	}
}

func (f *fakeEnv) from(source actor.ID) *fakeEnv {
	f.source = source
	return f
}

func (f *fakeEnv) at(block uint64) *fakeEnv {
	f.now = block
	return f
}

func (f *fakeEnv) BlockTimestamp() uint64     { return f.now }
func (f *fakeEnv) Source() actor.ID           { return f.source }
func (f *fakeEnv) ProgramID() actor.ID        { return f.self }
func (f *fakeEnv) MessageID() actor.MessageID { return actor.NewMessageID() }

func (f *fakeEnv) SendDelayed(dest actor.ID, payload []byte, delay uint32) error {
	f.delayed = append(f.delayed, sentMessage{dest: dest, payload: payload, delay: delay})
	return nil
}

func (f *fakeEnv) SendForReply(_ context.Context, dest actor.ID, payload []byte) ([]byte, error) {
	f.calls = append(f.calls, sentMessage{dest: dest, payload: payload})
	respond, ok := f.responders[dest]
	if !ok {
		return nil, errNoReply
	}
	return respond(payload)
}

func (f *fakeEnv) ReserveGas(uint64, uint32) (actor.ReservationID, error) {
	if f.reserveErr != nil {
		return actor.ReservationID{}, f.reserveErr
	}
	id := actor.NewReservationID()
	f.reserved = append(f.reserved, id)
	return id, nil
}

func (f *fakeEnv) SendFromReservation(id actor.ReservationID, dest actor.ID, payload []byte) error {
	f.spentHandle = append(f.spentHandle, id)
	if f.spendErr != nil {
		return f.spendErr
	}
	f.fromReserved = append(f.fromReserved, sentMessage{dest: dest, payload: payload})
	return nil
}

var _ actor.Env = (*fakeEnv)(nil)
