// Package world assembles a host runtime with the pet, token and store
// programs described by a WorldConfig.
package world

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/actors/ftoken"
	"github.com/danmuck/tamactl/internal/actors/store"
	"github.com/danmuck/tamactl/internal/config"
	"github.com/danmuck/tamactl/internal/host"
	"github.com/danmuck/tamactl/internal/persistence/journal"
	"github.com/danmuck/tamactl/internal/pet"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

// Options controls process-level concerns of a world.
type Options struct {
	// JournalPath enables the sqlite journal. Empty keeps the world in memory.
	JournalPath string
}

// World is one bootstrapped simulation.
type World struct {
	Config  config.WorldConfig
	Runtime *host.Runtime
	Pet     *pet.Program
	Token   *ftoken.Token
	Store   *store.Store
	Journal *journal.Journal

	PetID   actor.ID
	Owner   actor.ID
	TokenID actor.ID
	StoreID actor.ID

	restored bool
}

// Open builds the runtime, registers the programs and runs their
// bootstrap messages. When the journal holds a pet snapshot the pet is
// restored from it instead of being born again.
func Open(ctx context.Context, cfg config.WorldConfig, opts Options) (*World, error) {
	w := &World{
		Config:  cfg,
		Pet:     pet.New(cfg.Pet.Program()),
		Token:   ftoken.New(),
		Store:   store.New(),
		PetID:   cfg.Pet.ActorID(),
		Owner:   cfg.Pet.OwnerID(),
		TokenID: cfg.Token.ActorID(),
		StoreID: cfg.Store.ActorID(),
	}

	hostCfg := cfg.Host.Runtime()
	var snap journal.Snapshot
	if path := strings.TrimSpace(opts.JournalPath); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			return nil, err
		}
		w.Journal = j
		snap, err = j.Latest(ctx, w.PetID)
		switch {
		case err == nil:
			if err := w.Pet.Restore(snap.State); err != nil {
				_ = j.Close()
				return nil, fmt.Errorf("world: restore pet: %w", err)
			}
			w.restored = true
			if n := w.Pet.DropReservations(); n > 0 {
				log.Warn().Msgf("world.Open dropped %d stale reservations from snapshot block=%d", n, snap.Block)
			}
			if snap.Block > hostCfg.StartBlock {
				hostCfg.StartBlock = snap.Block
			}
		case errors.Is(err, journal.ErrNoSnapshot):
		default:
			_ = j.Close()
			return nil, err
		}
	}

	w.Runtime = host.New(hostCfg)
	if w.Journal != nil {
		w.Runtime.SetJournal(w.Journal)
	}
	if err := w.bootstrap(ctx); err != nil {
		_ = w.Close()
		return nil, err
	}
	log.Info().Msgf(
		"world.Open ready pet=%s token=%s store=%s block=%d restored=%t",
		w.PetID.Short(), w.TokenID.Short(), w.StoreID.Short(), w.Runtime.Now(), w.restored,
	)
	return w, nil
}

// Restored reports whether the pet came from a journal snapshot.
func (w *World) Restored() bool {
	return w.restored
}

func (w *World) Close() error {
	if w.Journal == nil {
		return nil
	}
	return w.Journal.Close()
}

// Send delivers payload with the default gas limit.
func (w *World) Send(ctx context.Context, source, dest actor.ID, payload []byte) ([]byte, error) {
	return w.Runtime.Send(ctx, source, dest, payload, w.Runtime.Config().DefaultGasLimit)
}

func (w *World) bootstrap(ctx context.Context) error {
	rt := w.Runtime
	for id, p := range map[actor.ID]actor.Program{w.PetID: w.Pet, w.TokenID: w.Token, w.StoreID: w.Store} {
		if err := rt.Register(id, p); err != nil {
			return err
		}
	}

	tokenAdmin := w.Config.Token.AdminID()
	if err := rt.Init(ctx, tokenAdmin, w.TokenID, []byte(w.Config.Token.Name)); err != nil {
		return fmt.Errorf("world: init token: %w", err)
	}
	for i, m := range w.Config.Token.Mint {
		if err := w.mint(ctx, tokenAdmin, uint64(i+1), m); err != nil {
			return err
		}
	}

	storeAdmin := w.Config.Store.AdminID()
	if err := rt.Init(ctx, storeAdmin, w.StoreID, w.TokenID[:]); err != nil {
		return fmt.Errorf("world: init store: %w", err)
	}
	for _, attr := range w.Config.Store.Attributes {
		payload, err := wire.StoreAction{Kind: wire.StoreCreateAttribute, AttributeID: attr.ID, Price: attr.Price}.Encode()
		if err != nil {
			return err
		}
		if _, err := w.Send(ctx, storeAdmin, w.StoreID, payload); err != nil {
			return fmt.Errorf("world: create attribute %d: %w", attr.ID, err)
		}
	}

	if w.restored {
		return nil
	}
	if err := rt.Init(ctx, w.Owner, w.PetID, []byte(w.Config.Pet.Name)); err != nil {
		return fmt.Errorf("world: init pet: %w", err)
	}
	payload, err := wire.Request{Kind: wire.RequestSetFTokenContract, Account: w.TokenID}.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Send(ctx, w.Owner, w.PetID, payload); err != nil {
		return fmt.Errorf("world: set token contract: %w", err)
	}
	return nil
}

func (w *World) mint(ctx context.Context, admin actor.ID, tx uint64, m config.MintConfig) error {
	action, err := wire.FTLogicAction{Kind: wire.FTLogicMint, Recipient: m.AccountID(), Amount: m.Amount}.Encode()
	if err != nil {
		return err
	}
	msg := wire.FTokenMessage{TransactionID: tx, Payload: action}
	reply, err := w.Send(ctx, admin, w.TokenID, msg.Encode())
	if err != nil {
		return fmt.Errorf("world: mint %s: %w", m.Account, err)
	}
	ok, err := wire.DecodeFTokenReply(reply)
	if err != nil {
		return fmt.Errorf("world: mint %s: %w", m.Account, err)
	}
	if !ok {
		return fmt.Errorf("world: mint %s refused", m.Account)
	}
	return nil
}
