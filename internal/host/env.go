package host

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/danmuck/tamactl/internal/actor"
)

// env is the per-delivery actor.Env. Effects are buffered until flush.
type env struct {
	rt      *Runtime
	block   uint64
	source  actor.ID
	self    actor.ID
	msgID   actor.MessageID
	gasLeft uint64

	outgoing []queued
	reserved map[actor.ReservationID]reservation
	spent    []actor.ReservationID
}

func (rt *Runtime) newEnv(source, self actor.ID, gas uint64) *env {
	return &env{
		rt:      rt,
		block:   rt.Now(),
		source:  source,
		self:    self,
		msgID:   actor.NewMessageID(),
		gasLeft: gas,
	}
}

var _ actor.Env = (*env)(nil)

func (e *env) BlockTimestamp() uint64     { return e.block }
func (e *env) Source() actor.ID           { return e.source }
func (e *env) ProgramID() actor.ID        { return e.self }
func (e *env) MessageID() actor.MessageID { return e.msgID }

func (e *env) SendDelayed(dest actor.ID, payload []byte, delay uint32) error {
	if _, ok := e.rt.Program(dest); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, dest.Short())
	}
	due := e.block + uint64(delay)
	if due < e.block {
		due = math.MaxUint64
	}
	e.outgoing = append(e.outgoing, queued{
		due:     due,
		source:  e.self,
		dest:    dest,
		payload: append([]byte(nil), payload...),
		gas:     e.rt.cfg.DefaultGasLimit,
	})
	return nil
}

// SendForReply runs dest synchronously under the reply window. A late
// reply is dropped; the callee keeps whatever it committed.
func (e *env) SendForReply(ctx context.Context, dest actor.ID, payload []byte) ([]byte, error) {
	if dest == e.self || e.rt.busy(dest) {
		return nil, ErrReentrantCall
	}
	if _, ok := e.rt.Program(dest); !ok {
		return nil, fmt.Errorf("%w: %w", ErrNoReply, fmt.Errorf("%w: %s", ErrUnknownProgram, dest.Short()))
	}

	ctx, cancel := context.WithTimeout(ctx, e.rt.cfg.ReplyTimeout)
	defer cancel()

	type result struct {
		reply []byte
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		reply, err := e.rt.deliver(ctx, e.self, dest, payload, e.rt.cfg.DefaultGasLimit)
		done <- result{reply: reply, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: after %s", ErrReplyTimeout, time.Since(start).Round(time.Millisecond))
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoReply, res.err)
		}
		if res.reply == nil {
			return nil, ErrEmptyReply
		}
		return res.reply, nil
	}
}

func (e *env) record(kind string, payload, reply []byte, err error) Record {
	rec := Record{
		Block:     e.block,
		MessageID: e.msgID,
		Kind:      kind,
		Source:    e.source,
		Dest:      e.self,
		Payload:   payload,
		Reply:     reply,
		Outcome:   OutcomeOK,
	}
	if err != nil {
		rec.Outcome = OutcomeFailed
		if errors.Is(err, ErrOutOfGas) {
			rec.Outcome = OutcomeOutOfGas
		}
		rec.Err = err.Error()
	}
	return rec
}
