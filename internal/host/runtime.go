package host

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/rs/zerolog/log"
)

// Runtime hosts programs on a shared block clock.
type Runtime struct {
	cfg Config

	// step serializes top-level entry points (Init, Send, Advance).
	step sync.Mutex

	mu           sync.Mutex
	now          uint64
	seq          uint64
	programs     map[actor.ID]actor.Program
	queue        delayQueue
	reservations map[actor.ReservationID]reservation
	inFlight     map[actor.ID]int
	records      []Record
	journal      Journal
}

func New(cfg Config) *Runtime {
	cfg = cfg.withDefaults()
	return &Runtime{
		cfg:          cfg,
		now:          cfg.StartBlock,
		programs:     make(map[actor.ID]actor.Program),
		reservations: make(map[actor.ReservationID]reservation),
		inFlight:     make(map[actor.ID]int),
	}
}

func (rt *Runtime) Config() Config {
	return rt.cfg
}

// SetJournal attaches a record sink. A nil journal disables journaling.
func (rt *Runtime) SetJournal(j Journal) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.journal = j
}

func (rt *Runtime) Register(id actor.ID, p actor.Program) error {
	if p == nil {
		return ErrNilProgram
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, ok := rt.programs[id]; ok {
		return fmt.Errorf("%w: %s", ErrProgramExists, id.Short())
	}
	rt.programs[id] = p
	log.Debug().Msgf("host.Runtime.Register program=%s", id.Short())
	return nil
}

func (rt *Runtime) Program(id actor.ID) (actor.Program, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	p, ok := rt.programs[id]
	return p, ok
}

// Programs lists registered ids in byte order.
func (rt *Runtime) Programs() []actor.ID {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]actor.ID, 0, len(rt.programs))
	for id := range rt.programs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}

func (rt *Runtime) Now() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.now
}

// Pending reports queued messages not yet delivered.
func (rt *Runtime) Pending() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.queue.Len()
}

// Records returns the retained delivery history, oldest first.
func (rt *Runtime) Records() []Record {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]Record, len(rt.records))
	copy(out, rt.records)
	return out
}

// Init runs the init entry point of dest.
func (rt *Runtime) Init(ctx context.Context, source, dest actor.ID, payload []byte) error {
	rt.step.Lock()
	defer rt.step.Unlock()

	p, ok := rt.Program(dest)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, dest.Short())
	}
	e := rt.newEnv(source, dest, rt.budget(rt.cfg.DefaultGasLimit))
	err := p.Init(ctx, e, payload)
	rec := e.record(KindInit, payload, nil, err)
	if err == nil {
		rt.flush(e)
	}
	rt.finish(ctx, rec, dest, p, err == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandlerRejected, err)
	}
	return rt.drain(ctx)
}

// Send delivers one message with gasLimit and returns the reply (nil when
// the program replied nothing). Messages that become due are drained before
// Send returns.
func (rt *Runtime) Send(ctx context.Context, source, dest actor.ID, payload []byte, gasLimit uint64) ([]byte, error) {
	rt.step.Lock()
	defer rt.step.Unlock()

	reply, err := rt.deliver(ctx, source, dest, payload, gasLimit)
	if derr := rt.drain(ctx); derr != nil && err == nil {
		err = derr
	}
	return reply, err
}

// Advance moves the clock forward n blocks, delivering queued messages in
// (due, sequence) order as their block is reached.
func (rt *Runtime) Advance(ctx context.Context, n uint64) (int, error) {
	rt.step.Lock()
	defer rt.step.Unlock()

	rt.mu.Lock()
	target := rt.now + n
	if target < rt.now {
		target = math.MaxUint64
	}
	rt.mu.Unlock()

	delivered := 0
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if delivered >= rt.cfg.MaxDeliveries {
			return delivered, ErrDeliveryLimit
		}
		rt.mu.Lock()
		item, ok := rt.queue.popDue(target)
		if ok && item.due > rt.now {
			rt.now = item.due
		}
		rt.mu.Unlock()
		if !ok {
			break
		}
		rt.deliverQueued(ctx, item)
		delivered++
	}

	rt.mu.Lock()
	rt.now = target
	expired := rt.expireReservations()
	rt.mu.Unlock()
	log.Debug().Msgf("host.Runtime.Advance block=%d delivered=%d expired=%d", target, delivered, expired)
	return delivered, nil
}

// State reads the state endpoint of dest.
func (rt *Runtime) State(dest actor.ID) ([]byte, error) {
	p, ok := rt.Program(dest)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, dest.Short())
	}
	return p.State()
}

// drain delivers queued messages due at the current block.
func (rt *Runtime) drain(ctx context.Context) error {
	for delivered := 0; ; delivered++ {
		if delivered >= rt.cfg.MaxDeliveries {
			return ErrDeliveryLimit
		}
		rt.mu.Lock()
		item, ok := rt.queue.popDue(rt.now)
		rt.mu.Unlock()
		if !ok {
			return nil
		}
		rt.deliverQueued(ctx, item)
	}
}

func (rt *Runtime) deliverQueued(ctx context.Context, item queued) {
	if _, err := rt.deliver(ctx, item.source, item.dest, item.payload, item.gas); err != nil {
		log.Debug().Msgf("host.Runtime.deliverQueued dest=%s err=%v", item.dest.Short(), err)
	}
}

// deliver runs the handle entry point, or the signal entry point when the
// gas limit cannot cover the delivery.
func (rt *Runtime) deliver(ctx context.Context, source, dest actor.ID, payload []byte, gasLimit uint64) ([]byte, error) {
	p, ok := rt.Program(dest)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, dest.Short())
	}
	if gasLimit < rt.cfg.GasPerMessage {
		rt.signal(ctx, dest, p, source, payload)
		return nil, fmt.Errorf("%w: limit=%d cost=%d", ErrOutOfGas, gasLimit, rt.cfg.GasPerMessage)
	}

	e := rt.newEnv(source, dest, rt.budget(gasLimit))
	rt.enter(dest)
	reply, err := p.Handle(ctx, e, payload)
	rt.leave(dest)

	rec := e.record(KindHandle, payload, reply, err)
	if err == nil {
		rt.flush(e)
	}
	rt.finish(ctx, rec, dest, p, err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandlerRejected, err)
	}
	return reply, nil
}

func (rt *Runtime) signal(ctx context.Context, dest actor.ID, p actor.Program, source actor.ID, payload []byte) {
	oog := rt.newEnv(source, dest, 0)
	rt.finish(ctx, oog.record(KindHandle, payload, nil, ErrOutOfGas), dest, p, false)

	e := rt.newEnv(actor.Zero, dest, rt.budget(rt.cfg.DefaultGasLimit))
	rt.enter(dest)
	err := p.HandleSignal(ctx, e)
	rt.leave(dest)
	rec := e.record(KindSignal, nil, nil, err)
	if err == nil {
		rt.flush(e)
	}
	rt.finish(ctx, rec, dest, p, err == nil)
	if err != nil {
		log.Warn().Msgf("host.Runtime.signal dest=%s err=%v", dest.Short(), err)
	}
}

// budget is the gas left to a handler after the delivery charge.
func (rt *Runtime) budget(limit uint64) uint64 {
	if limit < rt.cfg.GasPerMessage {
		return 0
	}
	return limit - rt.cfg.GasPerMessage
}

func (rt *Runtime) enter(id actor.ID) {
	rt.mu.Lock()
	rt.inFlight[id]++
	rt.mu.Unlock()
}

func (rt *Runtime) leave(id actor.ID) {
	rt.mu.Lock()
	rt.inFlight[id]--
	if rt.inFlight[id] <= 0 {
		delete(rt.inFlight, id)
	}
	rt.mu.Unlock()
}

func (rt *Runtime) busy(id actor.ID) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.inFlight[id] > 0
}

// flush releases the buffered effects of a successful handler.
func (rt *Runtime) flush(e *env) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for id, res := range e.reserved {
		rt.reservations[id] = res
	}
	for _, id := range e.spent {
		delete(rt.reservations, id)
	}
	for _, msg := range e.outgoing {
		rt.seq++
		msg.seq = rt.seq
		heap.Push(&rt.queue, msg)
	}
}

// finish appends rec to the history and forwards it to the journal.
func (rt *Runtime) finish(ctx context.Context, rec Record, dest actor.ID, p actor.Program, ok bool) {
	rt.mu.Lock()
	rt.records = append(rt.records, rec)
	if over := len(rt.records) - rt.cfg.HistoryLimit; over > 0 {
		rt.records = append([]Record(nil), rt.records[over:]...)
	}
	j := rt.journal
	rt.mu.Unlock()

	log.Debug().Msgf("host.Runtime.%s dest=%s source=%s block=%d outcome=%s", rec.Kind, dest.Short(), rec.Source.Short(), rec.Block, rec.Outcome)
	if j == nil {
		return
	}
	if err := j.Append(ctx, rec); err != nil {
		log.Warn().Msgf("host.Runtime.finish journal append err=%v", err)
	}
	snap, isSnap := j.(Snapshotter)
	if !ok || !isSnap {
		return
	}
	state, err := p.State()
	if err != nil {
		return
	}
	if err := snap.SaveSnapshot(ctx, rec.Block, dest, state); err != nil {
		log.Warn().Msgf("host.Runtime.finish snapshot err=%v", err)
	}
}
