// Package store is a reference attribute-store program for the host.
//
// A purchase pulls the price from the buyer's token allowance to the store.
// A buyer whose previous purchase never completed is told to finish it
// before buying a different attribute.
package store

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
	ErrDecode         = errors.New("store: decode failed")
	ErrNotInitialized = errors.New("store: not initialized")
	ErrInitialized    = errors.New("store: already initialized")
	ErrNotAdmin       = errors.New("store: not admin")
	ErrDuplicate      = errors.New("store: attribute exists")
)

type pendingTx struct {
	txID        uint64
	attributeID uint32
}

// Store sells attributes for tokens.
type Store struct {
	mu          sync.Mutex
	initialized bool
	admin       actor.ID
	token       actor.ID
	nextTx      uint64
	prices      map[uint32]scale.U128
	owners      map[actor.ID]map[uint32]bool
	pending     map[actor.ID]pendingTx
}

func New() *Store {
	return &Store{
		prices:  make(map[uint32]scale.U128),
		owners:  make(map[actor.ID]map[uint32]bool),
		pending: make(map[actor.ID]pendingTx),
	}
}

var _ actor.Program = (*Store)(nil)

// Init takes the raw 32-byte token program id. The source becomes admin.
func (s *Store) Init(_ context.Context, env actor.Env, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return ErrInitialized
	}
	if len(payload) != actor.IDLen {
		return fmt.Errorf("%w: token id must be %d bytes, got %d", ErrDecode, actor.IDLen, len(payload))
	}
	copy(s.token[:], payload)
	s.admin = env.Source()
	s.initialized = true
	log.Info().Msgf("store.Store.Init admin=%s token=%s", s.admin.Short(), s.token.Short())
	return nil
}

// Handle keeps the store mutex across the token call so purchases by
// different buyers are serialized.
func (s *Store) Handle(ctx context.Context, env actor.Env, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	action, err := wire.DecodeStoreAction(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	var ev wire.StoreEvent
	switch action.Kind {
	case wire.StoreCreateAttribute:
		if ev, err = s.create(env.Source(), action.AttributeID, action.Price); err != nil {
			return nil, err
		}
	case wire.StoreBuyAttribute:
		ev = s.buy(ctx, env, action.AttributeID)
	default:
		return nil, fmt.Errorf("%w: unhandled action %d", ErrDecode, action.Kind)
	}
	return ev.Encode()
}

func (s *Store) create(source actor.ID, attributeID uint32, price scale.U128) (wire.StoreEvent, error) {
	if source != s.admin {
		return wire.StoreEvent{}, fmt.Errorf("%w: %s", ErrNotAdmin, source.Short())
	}
	if _, ok := s.prices[attributeID]; ok {
		return wire.StoreEvent{}, fmt.Errorf("%w: %d", ErrDuplicate, attributeID)
	}
	s.prices[attributeID] = price
	log.Info().Msgf("store.Store.create attribute=%d price=%s", attributeID, price)
	return wire.StoreEvent{Kind: wire.StoreAttributeCreated, AttributeID: attributeID}, nil
}

func (s *Store) buy(ctx context.Context, env actor.Env, attributeID uint32) wire.StoreEvent {
	buyer := env.Source()
	sold := func(ok bool) wire.StoreEvent {
		return wire.StoreEvent{Kind: wire.StoreAttributeSold, Success: ok}
	}

	tx, ok := s.pending[buyer]
	switch {
	case ok && tx.attributeID != attributeID:
		return wire.StoreEvent{Kind: wire.StoreCompletePrevTx, AttributeID: tx.attributeID}
	case !ok:
		if _, listed := s.prices[attributeID]; !listed || s.owners[buyer][attributeID] {
			return sold(false)
		}
		tx = pendingTx{txID: s.nextTx, attributeID: attributeID}
		s.nextTx++
		s.pending[buyer] = tx
	}

	paid, err := s.charge(ctx, env, buyer, tx)
	if err != nil {
		log.Warn().Msgf("store.Store.buy token call failed buyer=%s tx_id=%d err=%v", buyer.Short(), tx.txID, err)
		return sold(false)
	}
	delete(s.pending, buyer)
	if !paid {
		return sold(false)
	}
	if s.owners[buyer] == nil {
		s.owners[buyer] = make(map[uint32]bool)
	}
	s.owners[buyer][attributeID] = true
	log.Info().Msgf("store.Store.buy sold buyer=%s attribute=%d tx_id=%d", buyer.Short(), attributeID, tx.txID)
	return sold(true)
}

// charge pulls the attribute price from buyer to the store. An error means
// the outcome is unknown and the pending transaction is kept for retry.
func (s *Store) charge(ctx context.Context, env actor.Env, buyer actor.ID, tx pendingTx) (bool, error) {
	logic, err := wire.FTLogicAction{
		Kind:      wire.FTLogicTransfer,
		Sender:    buyer,
		Recipient: env.ProgramID(),
		Amount:    s.prices[tx.attributeID],
	}.Encode()
	if err != nil {
		return false, err
	}
	msg := wire.FTokenMessage{TransactionID: tx.txID, Payload: logic}.Encode()
	reply, err := env.SendForReply(ctx, s.token, msg)
	if err != nil {
		return false, err
	}
	return wire.DecodeFTokenReply(reply)
}

func (s *Store) HandleSignal(context.Context, actor.Env) error {
	return nil
}

// Owns reports whether buyer owns attributeID.
func (s *Store) Owns(buyer actor.ID, attributeID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners[buyer][attributeID]
}

// Attribute is one catalog row of the store state view.
type Attribute struct {
	ID    uint32     `json:"id"`
	Price scale.U128 `json:"price"`
}

type stateView struct {
	Admin      actor.ID    `json:"admin"`
	Token      actor.ID    `json:"token"`
	Attributes []Attribute `json:"attributes"`
	Pending    int         `json:"pending"`
}

// State returns a JSON view of the catalog.
func (s *Store) State() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	view := stateView{Admin: s.admin, Token: s.token, Pending: len(s.pending), Attributes: make([]Attribute, 0, len(s.prices))}
	for id, price := range s.prices {
		view.Attributes = append(view.Attributes, Attribute{ID: id, Price: price})
	}
	sort.Slice(view.Attributes, func(i, j int) bool {
		return view.Attributes[i].ID < view.Attributes[j].ID
	})
	return json.Marshal(view)
}
