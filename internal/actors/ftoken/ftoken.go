// Package ftoken is a reference fungible-token program for the host.
//
// Every action arrives wrapped with a caller-chosen transaction id; the
// result is cached per (source, transaction id) so a resent message is
// answered without applying it twice.
package ftoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

var (
	ErrDecode         = errors.New("ftoken: decode failed")
	ErrNotInitialized = errors.New("ftoken: not initialized")
	ErrInitialized    = errors.New("ftoken: already initialized")
)

// reasons an action is refused with FTokenEvent::Err
var (
	errNotAdmin          = errors.New("not admin")
	errInsufficientFunds = errors.New("insufficient balance")
	errAllowance         = errors.New("insufficient allowance")
	errOverflow          = errors.New("amount overflow")
	errForbidden         = errors.New("source may not act for sender")
)

type txKey struct {
	source actor.ID
	tx     uint64
}

// Token holds balances and allowances for one token.
type Token struct {
	mu          sync.Mutex
	initialized bool
	name        string
	admin       actor.ID
	supply      scale.U128
	balances    map[actor.ID]scale.U128
	allowances  map[actor.ID]map[actor.ID]scale.U128
	results     map[txKey]bool
	silent      bool
}

func New() *Token {
	return &Token{
		balances:   make(map[actor.ID]scale.U128),
		allowances: make(map[actor.ID]map[actor.ID]scale.U128),
		results:    make(map[txKey]bool),
	}
}

var _ actor.Program = (*Token)(nil)

// Init takes an optional raw UTF-8 token name. The source becomes admin.
func (t *Token) Init(_ context.Context, env actor.Env, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.initialized {
		return ErrInitialized
	}
	t.initialized = true
	t.name = string(payload)
	t.admin = env.Source()
	log.Info().Msgf("ftoken.Token.Init name=%q admin=%s", t.name, t.admin.Short())
	return nil
}

// Silence makes the token apply messages without replying, as if every
// reply were lost in transit.
func (t *Token) Silence(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.silent = on
}

func (t *Token) Handle(_ context.Context, env actor.Env, payload []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return nil, ErrNotInitialized
	}

	msg, err := wire.DecodeFTokenMessage(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	key := txKey{source: env.Source(), tx: msg.TransactionID}
	ok, seen := t.results[key]
	if !seen {
		action, err := wire.DecodeFTLogicAction(msg.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if applyErr := t.apply(env.Source(), action); applyErr != nil {
			log.Warn().Msgf("ftoken.Token.Handle refused tx_id=%d action=%s err=%v", msg.TransactionID, action.Kind, applyErr)
		} else {
			ok = true
		}
		t.results[key] = ok
	} else {
		log.Debug().Msgf("ftoken.Token.Handle replay tx_id=%d source=%s ok=%t", msg.TransactionID, key.source.Short(), ok)
	}

	if t.silent {
		return nil, nil
	}
	return wire.EncodeFTokenReply(ok), nil
}

func (t *Token) apply(source actor.ID, a wire.FTLogicAction) error {
	switch a.Kind {
	case wire.FTLogicMint:
		if source != t.admin {
			return errNotAdmin
		}
		supply, overflow := t.supply.Add(a.Amount)
		if overflow {
			return errOverflow
		}
		bal, overflow := t.balances[a.Recipient].Add(a.Amount)
		if overflow {
			return errOverflow
		}
		t.supply = supply
		t.balances[a.Recipient] = bal
	case wire.FTLogicBurn:
		if source != a.Sender && source != t.admin {
			return errForbidden
		}
		bal, underflow := t.balances[a.Sender].Sub(a.Amount)
		if underflow {
			return errInsufficientFunds
		}
		t.balances[a.Sender] = bal
		t.supply, _ = t.supply.Sub(a.Amount)
	case wire.FTLogicTransfer:
		return t.transfer(source, a.Sender, a.Recipient, a.Amount)
	case wire.FTLogicApprove:
		if t.allowances[source] == nil {
			t.allowances[source] = make(map[actor.ID]scale.U128)
		}
		t.allowances[source][a.Recipient] = a.Amount
	default:
		return fmt.Errorf("unknown action %d", a.Kind)
	}
	return nil
}

// transfer moves amount from sender to recipient. A source other than the
// sender spends from the sender's allowance to it.
func (t *Token) transfer(source, sender, recipient actor.ID, amount scale.U128) error {
	from, underflow := t.balances[sender].Sub(amount)
	if underflow {
		return errInsufficientFunds
	}
	to, overflow := t.balances[recipient].Add(amount)
	if overflow && sender != recipient {
		return errOverflow
	}
	if source != sender {
		left, underflow := t.allowances[sender][source].Sub(amount)
		if underflow {
			return errAllowance
		}
		if t.allowances[sender] == nil {
			t.allowances[sender] = make(map[actor.ID]scale.U128)
		}
		t.allowances[sender][source] = left
	}
	if sender == recipient {
		return nil
	}
	t.balances[sender] = from
	t.balances[recipient] = to
	return nil
}

func (t *Token) HandleSignal(context.Context, actor.Env) error {
	return nil
}

func (t *Token) BalanceOf(id actor.ID) scale.U128 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[id]
}

func (t *Token) Allowance(owner, spender actor.ID) scale.U128 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner][spender]
}

// Balance is one row of the token state view.
type Balance struct {
	Account actor.ID   `json:"account"`
	Amount  scale.U128 `json:"amount"`
}

type stateView struct {
	Name     string     `json:"name"`
	Admin    actor.ID   `json:"admin"`
	Supply   scale.U128 `json:"supply"`
	Balances []Balance  `json:"balances"`
}

// State returns a JSON view of supply and balances.
func (t *Token) State() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return nil, ErrNotInitialized
	}
	view := stateView{Name: t.name, Admin: t.admin, Supply: t.supply, Balances: make([]Balance, 0, len(t.balances))}
	for id, amount := range t.balances {
		view.Balances = append(view.Balances, Balance{Account: id, Amount: amount})
	}
	sort.Slice(view.Balances, func(i, j int) bool {
		return view.Balances[i].Account.String() < view.Balances[j].Account.String()
	})
	return json.Marshal(view)
}
