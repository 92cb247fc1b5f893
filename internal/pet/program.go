package pet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/observability"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

// Program is a single pet instance. The mutex is held for the whole
// handler, including external call suspensions.
type Program struct {
	cfg Config

	mu    sync.Mutex
	state *wire.State
}

func New(cfg Config) *Program {
	return &Program{cfg: cfg.withDefaults()}
}

var _ actor.Program = (*Program)(nil)

// Init creates the pet from a raw UTF-8 name. The source becomes the owner.
func (p *Program) Init(_ context.Context, env actor.Env, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != nil {
		return ErrAlreadyInitialized
	}
	if len(payload) == 0 {
		return ErrEmptyName
	}
	if !utf8.Valid(payload) {
		return fmt.Errorf("%w: name is not utf-8", ErrDecode)
	}
	st := newState(string(payload), env.Source(), env.BlockTimestamp())
	p.state = &st
	log.Info().Msgf("pet.Program.Init name=%q owner=%s block=%d", st.Name, st.Owner.Short(), st.BirthTime)
	return nil
}

func (p *Program) Handle(ctx context.Context, env actor.Env, payload []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == nil {
		return nil, ErrNotInitialized
	}
	d := newDispatch(p.cfg, env, *p.state)
	ev, err := d.run(ctx, payload)
	if err != nil {
		outcome := observability.OutcomeFailed
		if errors.Is(err, ErrUnauthorized) {
			outcome = observability.OutcomeRejected
		}
		observability.RecordPetRequest(d.kind, outcome)
		log.Warn().Msgf("pet.Program.Handle kind=%s source=%s err=%v", d.kind, d.source.Short(), err)
		return nil, err
	}

	var reply []byte
	if ev != nil {
		if reply, err = ev.Encode(); err != nil {
			observability.RecordPetRequest(d.kind, observability.OutcomeFailed)
			return nil, err
		}
	}
	p.commit(d.st)
	observability.SetReservations(d.self.Short(), len(d.st.Reservations))
	observability.RecordPetRequest(d.kind, observability.OutcomeOK)
	log.Debug().Msgf("pet.Program.Handle kind=%s source=%s reply=%s", d.kind, d.source.Short(), replyName(ev))
	return reply, nil
}

// HandleSignal spends the oldest reservation on a MakeReservation message
// to self. The handle is consumed even when the host refuses it.
func (p *Program) HandleSignal(_ context.Context, env actor.Env) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == nil {
		return ErrNotInitialized
	}
	next := cloneState(*p.state)
	id, ok := popReservation(&next)
	if !ok {
		observability.RecordSignal("empty")
		log.Debug().Msgf("pet.Program.HandleSignal pool empty")
		return nil
	}
	p.commit(next)
	observability.SetReservations(env.ProgramID().Short(), len(next.Reservations))

	payload := wire.Event{Kind: wire.EventMakeReservation}.MustEncode()
	if err := env.SendFromReservation(id, env.ProgramID(), payload); err != nil {
		observability.RecordSignal(observability.OutcomeFailed)
		log.Warn().Msgf("pet.Program.HandleSignal reservation=%s err=%v", id, err)
		return fmt.Errorf("%w: %w", ErrReservation, err)
	}
	observability.RecordSignal(observability.OutcomeOK)
	log.Info().Msgf("pet.Program.HandleSignal reservation=%s remaining=%d", id, len(next.Reservations))
	return nil
}

// State returns the encoded pet record.
func (p *Program) State() ([]byte, error) {
	st, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	return st.Encode(), nil
}

// Snapshot returns a deep copy of the pet record.
func (p *Program) Snapshot() (wire.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return wire.State{}, ErrNotInitialized
	}
	return cloneState(*p.state), nil
}

// Restore replaces the record with an encoded snapshot.
func (p *Program) Restore(b []byte) error {
	st, err := wire.DecodeState(b)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if st.Name == "" {
		return ErrEmptyName
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commit(st)
	return nil
}

func (p *Program) commit(st wire.State) {
	st = cloneState(st)
	p.state = &st
}

func replyName(ev *wire.Event) string {
	if ev == nil {
		return "none"
	}
	return ev.Kind.String()
}
