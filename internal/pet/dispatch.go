package pet

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/observability"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

// dispatch is one handler invocation over a working copy of the state.
type dispatch struct {
	cfg    Config
	env    actor.Env
	st     wire.State
	self   actor.ID
	source actor.ID
	now    uint64
	kind   string
}

func newDispatch(cfg Config, env actor.Env, st wire.State) *dispatch {
	return &dispatch{
		cfg:    cfg,
		env:    env,
		st:     cloneState(st),
		self:   env.ProgramID(),
		source: env.Source(),
		now:    env.BlockTimestamp(),
		kind:   "unknown",
	}
}

func (d *dispatch) fromSelf() bool {
	return d.source == d.self
}

func (d *dispatch) run(ctx context.Context, payload []byte) (*wire.Event, error) {
	if d.fromSelf() && isWakeUp(payload) {
		d.kind = wire.EventMakeReservation.String()
		return d.checkState(), nil
	}

	req, err := wire.DecodeRequest(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	d.kind = req.Kind.String()
	if err := authorize(&d.st, d.self, d.source, req.Kind); err != nil {
		return nil, err
	}
	if !d.fromSelf() {
		if err := d.schedulePing(); err != nil {
			return nil, err
		}
	}

	switch req.Kind {
	case wire.RequestName:
		return &wire.Event{Kind: wire.EventName, Name: d.st.Name}, nil
	case wire.RequestAge:
		return &wire.Event{Kind: wire.EventAge, Age: d.st.BirthTime}, nil
	case wire.RequestOwner:
		return &wire.Event{Kind: wire.EventOwner, Account: d.st.Owner}, nil
	case wire.RequestFeed:
		d.st.Fullness = refill(d.st.Fullness, d.now, fullnessRule)
		return &wire.Event{Kind: wire.EventFed}, nil
	case wire.RequestPlay:
		d.st.Entertainment = refill(d.st.Entertainment, d.now, entertainmentRule)
		return &wire.Event{Kind: wire.EventEntertained}, nil
	case wire.RequestSleep:
		d.st.Rest = refill(d.st.Rest, d.now, restRule)
		return &wire.Event{Kind: wire.EventSlept}, nil
	case wire.RequestTransfer:
		d.st.Owner = req.Account
		d.st.Operator = nil
		return &wire.Event{Kind: wire.EventTransfer, Account: req.Account}, nil
	case wire.RequestApprove:
		operator := req.Account
		d.st.Operator = &operator
		return &wire.Event{Kind: wire.EventApprove, Account: req.Account}, nil
	case wire.RequestRevokeApproval:
		d.st.Operator = nil
		return &wire.Event{Kind: wire.EventRevokeApproval}, nil
	case wire.RequestSetFTokenContract:
		d.st.TokenActor = req.Account
		return &wire.Event{Kind: wire.EventSetFTokenContract}, nil
	case wire.RequestApproveTokens:
		return d.approveTokens(ctx, req.Account, req.Amount)
	case wire.RequestBuyAttribute:
		return d.buyAttribute(ctx, req.StoreID, req.AttributeID)
	case wire.RequestReserveGas:
		return d.reserveGas(req.ReservationAmount, req.Duration)
	case wire.RequestCheckState:
		return d.checkState(), nil
	default:
		return nil, fmt.Errorf("%w: unhandled request %s", ErrDecode, req.Kind)
	}
}

// schedulePing queues the delayed CheckState watchdog to this program.
func (d *dispatch) schedulePing() error {
	ping := wire.Request{Kind: wire.RequestCheckState}.MustEncode()
	if err := d.env.SendDelayed(d.self, ping, d.cfg.CheckStateDelay); err != nil {
		return fmt.Errorf("pet: schedule check state: %w", err)
	}
	return nil
}

// call is the single await point used by the external call flows.
func (d *dispatch) call(ctx context.Context, target string, dest actor.ID, payload []byte) ([]byte, error) {
	start := time.Now()
	reply, err := d.env.SendForReply(ctx, dest, payload)
	outcome := observability.OutcomeOK
	if err != nil {
		outcome = observability.OutcomeFailed
	}
	observability.RecordExternalCall(target, outcome, time.Since(start))
	log.Debug().Msgf("pet.dispatch.call target=%s dest=%s outcome=%s", target, dest.Short(), outcome)
	return reply, err
}
