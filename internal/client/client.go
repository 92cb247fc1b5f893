// Package client wraps pet requests in typed calls.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoReply         = errors.New("client: pet replied nothing")
	ErrUnexpectedReply = errors.New("client: unexpected reply")
	ErrApprovalFailed  = errors.New("client: token approval failed")
)

// RemoteError is a handler failure reported by a served world.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("client: remote status %d: %s", e.Status, e.Message)
}

// Client sends requests to one pet as one source.
type Client struct {
	t       Transport
	source  actor.ID
	backoff BackoffConfig
	rng     *rand.Rand
}

func New(t Transport, source actor.ID) *Client {
	return &Client{t: t, source: source, backoff: DefaultBackoffConfig()}
}

// WithBackoff returns a copy using cfg for approval retries.
func (c *Client) WithBackoff(cfg BackoffConfig, rng *rand.Rand) *Client {
	out := *c
	out.backoff = cfg.withDefaults()
	out.rng = rng
	return &out
}

func (c *Client) Source() actor.ID {
	return c.source
}

// Do sends req and decodes the reply. A silent pet yields a nil event.
func (c *Client) Do(ctx context.Context, req wire.Request) (*wire.Event, error) {
	payload, err := req.Encode()
	if err != nil {
		return nil, err
	}
	reply, err := c.t.Handle(ctx, c.source, payload)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}
	ev, err := wire.DecodeEvent(reply)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) expect(ctx context.Context, req wire.Request, want wire.EventKind) (wire.Event, error) {
	ev, err := c.Do(ctx, req)
	if err != nil {
		return wire.Event{}, err
	}
	if ev == nil {
		return wire.Event{}, fmt.Errorf("%w: %s", ErrNoReply, req.Kind)
	}
	if ev.Kind != want {
		return *ev, fmt.Errorf("%w: %s replied %s", ErrUnexpectedReply, req.Kind, ev.Kind)
	}
	return *ev, nil
}

func (c *Client) Name(ctx context.Context) (string, error) {
	ev, err := c.expect(ctx, wire.Request{Kind: wire.RequestName}, wire.EventName)
	return ev.Name, err
}

// Age returns the birth block.
func (c *Client) Age(ctx context.Context) (uint64, error) {
	ev, err := c.expect(ctx, wire.Request{Kind: wire.RequestAge}, wire.EventAge)
	return ev.Age, err
}

func (c *Client) Owner(ctx context.Context) (actor.ID, error) {
	ev, err := c.expect(ctx, wire.Request{Kind: wire.RequestOwner}, wire.EventOwner)
	return ev.Account, err
}

func (c *Client) Feed(ctx context.Context) error {
	_, err := c.expect(ctx, wire.Request{Kind: wire.RequestFeed}, wire.EventFed)
	return err
}

func (c *Client) Play(ctx context.Context) error {
	_, err := c.expect(ctx, wire.Request{Kind: wire.RequestPlay}, wire.EventEntertained)
	return err
}

func (c *Client) Sleep(ctx context.Context) error {
	_, err := c.expect(ctx, wire.Request{Kind: wire.RequestSleep}, wire.EventSlept)
	return err
}

func (c *Client) Transfer(ctx context.Context, to actor.ID) error {
	_, err := c.expect(ctx, wire.Request{Kind: wire.RequestTransfer, Account: to}, wire.EventTransfer)
	return err
}

func (c *Client) Approve(ctx context.Context, operator actor.ID) error {
	_, err := c.expect(ctx, wire.Request{Kind: wire.RequestApprove, Account: operator}, wire.EventApprove)
	return err
}

func (c *Client) RevokeApproval(ctx context.Context) error {
	_, err := c.expect(ctx, wire.Request{Kind: wire.RequestRevokeApproval}, wire.EventRevokeApproval)
	return err
}

func (c *Client) SetFTokenContract(ctx context.Context, token actor.ID) error {
	_, err := c.expect(ctx, wire.Request{Kind: wire.RequestSetFTokenContract, Account: token}, wire.EventSetFTokenContract)
	return err
}

func (c *Client) ReserveGas(ctx context.Context, amount uint64, duration uint32) error {
	req := wire.Request{Kind: wire.RequestReserveGas, ReservationAmount: amount, Duration: duration}
	_, err := c.expect(ctx, req, wire.EventGasReserved)
	return err
}

// ApproveTokens makes one approval attempt. ErrApprovalFailed means the
// pet kept the approval pending and the same call may be retried.
func (c *Client) ApproveTokens(ctx context.Context, account actor.ID, amount scale.U128) error {
	ev, err := c.Do(ctx, wire.Request{Kind: wire.RequestApproveTokens, Account: account, Amount: amount})
	if err != nil {
		return err
	}
	switch {
	case ev == nil:
		return fmt.Errorf("%w: %s", ErrNoReply, wire.RequestApproveTokens)
	case ev.Kind == wire.EventApproveTokens:
		return nil
	case ev.Kind == wire.EventApprovalError:
		return ErrApprovalFailed
	default:
		return fmt.Errorf("%w: %s replied %s", ErrUnexpectedReply, wire.RequestApproveTokens, ev.Kind)
	}
}

// ApproveTokensWithRetry resends an approval until it is confirmed,
// advancing the clock by the backoff between attempts. The pet reuses its
// pending transaction id so the token applies the approval at most once.
func (c *Client) ApproveTokensWithRetry(ctx context.Context, account actor.ID, amount scale.U128) (int, error) {
	cfg := c.backoff.withDefaults()
	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = c.ApproveTokens(ctx, account, amount)
		if !errors.Is(err, ErrApprovalFailed) {
			return attempt, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		wait := NextBackoff(cfg, attempt, c.rng)
		log.Debug().Msgf("client.Client.ApproveTokensWithRetry attempt=%d wait_blocks=%d", attempt, wait)
		if _, aerr := c.t.Advance(ctx, wait); aerr != nil {
			return attempt, aerr
		}
	}
	return cfg.MaxAttempts, err
}

// BuyAttribute returns the purchase outcome event.
func (c *Client) BuyAttribute(ctx context.Context, store actor.ID, attributeID uint32) (wire.Event, error) {
	ev, err := c.Do(ctx, wire.Request{Kind: wire.RequestBuyAttribute, StoreID: store, AttributeID: attributeID})
	if err != nil {
		return wire.Event{}, err
	}
	if ev == nil {
		return wire.Event{}, fmt.Errorf("%w: %s", ErrNoReply, wire.RequestBuyAttribute)
	}
	switch ev.Kind {
	case wire.EventAttributeBought, wire.EventCompletePrevPurchase, wire.EventErrorDuringPurchase:
		return *ev, nil
	default:
		return *ev, fmt.Errorf("%w: %s replied %s", ErrUnexpectedReply, wire.RequestBuyAttribute, ev.Kind)
	}
}

// Advance moves the clock through the transport.
func (c *Client) Advance(ctx context.Context, n uint64) (uint64, error) {
	return c.t.Advance(ctx, n)
}
