package pet

import (
	"context"
	"testing"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/wire"
)

var (
	petID   = actor.NamedID("pet")
	alice   = actor.NamedID("alice")
	bob     = actor.NamedID("bob")
	carol   = actor.NamedID("carol")
	tokenID = actor.NamedID("ftoken")
	storeID = actor.NamedID("store")
)

func newPet(t *testing.T, name string, block uint64) (*Program, *fakeEnv) {
	t.Helper()
	p := New(DefaultConfig())
	env := newFakeEnv(petID, alice).at(block)
	if err := p.Init(context.Background(), env, []byte(name)); err != nil {
		t.Fatalf("init: %v", err)
	}
	return p, env
}

func send(t *testing.T, p *Program, env *fakeEnv, req wire.Request) (*wire.Event, error) {
	t.Helper()
	reply, err := p.Handle(context.Background(), env, req.MustEncode())
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}
	ev, err := wire.DecodeEvent(reply)
	if err != nil {
		t.Fatalf("decode reply %x: %v", reply, err)
	}
	return &ev, nil
}

func mustSend(t *testing.T, p *Program, env *fakeEnv, req wire.Request) *wire.Event {
	t.Helper()
	ev, err := send(t, p, env, req)
	if err != nil {
		t.Fatalf("%s: %v", req.Kind, err)
	}
	return ev
}

func expectKind(t *testing.T, ev *wire.Event, want wire.EventKind) {
	t.Helper()
	if ev == nil {
		t.Fatalf("expected %s, got no reply", want)
	}
	if ev.Kind != want {
		t.Fatalf("expected %s, got %s", want, ev.Kind)
	}
}

func snapshot(t *testing.T, p *Program) wire.State {
	t.Helper()
	st, err := p.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return st
}

// setState overwrites the committed record for fixture setup.
func setState(p *Program, mutate func(st *wire.State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mutate(p.state)
}

func ftokenResponder(ok bool) func([]byte) ([]byte, error) {
	return func([]byte) ([]byte, error) {
		return wire.EncodeFTokenReply(ok), nil
	}
}
