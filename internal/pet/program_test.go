package pet

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/danmuck/tamactl/internal/testutil/testlog"
)

func TestInitAndName(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)

	ev := mustSend(t, p, env, wire.Request{Kind: wire.RequestName})
	expectKind(t, ev, wire.EventName)
	if ev.Name != "Rex" {
		t.Fatalf("expected Rex, got %q", ev.Name)
	}

	st := snapshot(t, p)
	if st.Owner != alice {
		t.Fatalf("expected init source to own the pet")
	}
	for _, v := range []wire.Vital{st.Fullness, st.Entertainment, st.Rest} {
		if v.Level != MaxLevel || v.UpdatedAt != 0 {
			t.Fatalf("unexpected initial vital: %+v", v)
		}
	}
}

func TestInitRejectsReinitAndEmptyName(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	if err := p.Init(context.Background(), env, []byte("Max")); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}

	fresh := New(DefaultConfig())
	if err := fresh.Init(context.Background(), env, nil); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := fresh.Init(context.Background(), env, []byte{0xff, 0xfe}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := fresh.Handle(context.Background(), env, wire.Request{Kind: wire.RequestName}.MustEncode()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestAgeIsBirthBlock(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 100)

	ev := mustSend(t, p, env, wire.Request{Kind: wire.RequestAge})
	expectKind(t, ev, wire.EventAge)
	if ev.Age != 100 {
		t.Fatalf("expected age 100, got %d", ev.Age)
	}
	ev = mustSend(t, p, env.at(200), wire.Request{Kind: wire.RequestAge})
	if ev.Age != 100 {
		t.Fatalf("expected age to stay 100, got %d", ev.Age)
	}
}

func TestFeedClampsAndDecaySaturates(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)

	expectKind(t, mustSend(t, p, env, wire.Request{Kind: wire.RequestFeed}), wire.EventFed)
	st := snapshot(t, p)
	if st.Fullness.Level != MaxLevel {
		t.Fatalf("expected fullness clamped at %d, got %d", MaxLevel, st.Fullness.Level)
	}
	if got := CurrentLevels(st, 10000).Fullness; got != 0 {
		t.Fatalf("expected fullness 0 after 10000 blocks, got %d", got)
	}
	if got := CurrentLevels(st, 1<<63).Rest; got != 0 {
		t.Fatalf("expected saturated rest, got %d", got)
	}
}

func TestFeedAfterNeglectDoesNotUnderflow(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)

	mustSend(t, p, env.at(50000), wire.Request{Kind: wire.RequestFeed})
	st := snapshot(t, p)
	if st.Fullness.Level != FillPerFeed || st.Fullness.UpdatedAt != 50000 {
		t.Fatalf("expected fullness %d at 50000, got %+v", FillPerFeed, st.Fullness)
	}
}

func TestPlayAndSleepUpdateTheirVital(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)

	expectKind(t, mustSend(t, p, env.at(1000), wire.Request{Kind: wire.RequestPlay}), wire.EventEntertained)
	expectKind(t, mustSend(t, p, env.at(3000), wire.Request{Kind: wire.RequestSleep}), wire.EventSlept)

	st := snapshot(t, p)
	if st.Entertainment.Level != 9000 || st.Entertainment.UpdatedAt != 1000 {
		t.Fatalf("unexpected entertainment: %+v", st.Entertainment)
	}
	if st.Rest.Level != 5000 || st.Rest.UpdatedAt != 3000 {
		t.Fatalf("unexpected rest: %+v", st.Rest)
	}
	if st.Fullness.UpdatedAt != 0 {
		t.Fatalf("fullness should be untouched: %+v", st.Fullness)
	}
}

func TestTransferAuthorization(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)

	mustSend(t, p, env, wire.Request{Kind: wire.RequestApprove, Account: carol})
	ev := mustSend(t, p, env, wire.Request{Kind: wire.RequestTransfer, Account: bob})
	expectKind(t, ev, wire.EventTransfer)
	if ev.Account != bob {
		t.Fatalf("unexpected transfer reply: %+v", ev)
	}

	_, err := send(t, p, env.from(alice), wire.Request{Kind: wire.RequestTransfer, Account: carol})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	owner := mustSend(t, p, env.from(carol), wire.Request{Kind: wire.RequestOwner})
	expectKind(t, owner, wire.EventOwner)
	if owner.Account != bob {
		t.Fatalf("expected owner bob, got %s", owner.Account)
	}
	if st := snapshot(t, p); st.Operator != nil {
		t.Fatalf("expected transfer to clear operator")
	}
}

func TestOperatorSubset(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	expectKind(t, mustSend(t, p, env, wire.Request{Kind: wire.RequestApprove, Account: bob}), wire.EventApprove)

	env.from(bob)
	for _, kind := range []wire.RequestKind{wire.RequestFeed, wire.RequestPlay, wire.RequestSleep} {
		mustSend(t, p, env, wire.Request{Kind: kind})
	}
	for _, req := range []wire.Request{
		{Kind: wire.RequestTransfer, Account: bob},
		{Kind: wire.RequestApprove, Account: carol},
		{Kind: wire.RequestRevokeApproval},
		{Kind: wire.RequestSetFTokenContract, Account: tokenID},
		{Kind: wire.RequestReserveGas, ReservationAmount: 1, Duration: 1},
	} {
		if _, err := send(t, p, env, req); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", req.Kind, err)
		}
	}

	expectKind(t, mustSend(t, p, env.from(alice), wire.Request{Kind: wire.RequestRevokeApproval}), wire.EventRevokeApproval)
	if _, err := send(t, p, env.from(bob), wire.Request{Kind: wire.RequestFeed}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected revoked operator to be rejected, got %v", err)
	}
}

func TestFailedHandlerLeavesStateUntouched(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	before := snapshot(t, p).Encode()

	if _, err := p.Handle(context.Background(), env, []byte{0x02, 0x00}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := p.Handle(context.Background(), env, []byte{0xee}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for unknown discriminant, got %v", err)
	}
	env.reserveErr = errors.New("fake: over budget")
	if _, err := send(t, p, env, wire.Request{Kind: wire.RequestReserveGas, ReservationAmount: 10, Duration: 5}); !errors.Is(err, ErrReservation) {
		t.Fatalf("expected ErrReservation, got %v", err)
	}
	if _, err := send(t, p, env.from(bob).at(500), wire.Request{Kind: wire.RequestFeed}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if after := snapshot(t, p).Encode(); !bytes.Equal(before, after) {
		t.Fatalf("state changed after failed handlers")
	}
}

func TestSelfPingScheduledForExternalRequestsOnly(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)

	mustSend(t, p, env, wire.Request{Kind: wire.RequestName})
	if len(env.delayed) != 1 {
		t.Fatalf("expected one delayed ping, got %d", len(env.delayed))
	}
	ping := env.delayed[0]
	if ping.dest != petID || ping.delay != 60 {
		t.Fatalf("unexpected ping: dest=%s delay=%d", ping.dest.Short(), ping.delay)
	}
	req, err := wire.DecodeRequest(ping.payload)
	if err != nil || req.Kind != wire.RequestCheckState {
		t.Fatalf("expected CheckState payload, got %+v err=%v", req, err)
	}

	if ev := mustSend(t, p, env.from(petID), wire.Request{Kind: wire.RequestCheckState}); ev != nil {
		t.Fatalf("expected healthy pet to stay silent, got %s", ev.Kind)
	}
	if len(env.delayed) != 1 {
		t.Fatalf("self delivery must not reschedule, got %d pings", len(env.delayed))
	}
}

func TestCheckStateRejectsExternalSources(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	if _, err := send(t, p, env, wire.Request{Kind: wire.RequestCheckState}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(env.delayed) != 0 {
		t.Fatalf("rejected request must not leave a ping behind")
	}
}

func TestCheckStateThresholdOrder(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	env.from(petID)
	check := wire.Request{Kind: wire.RequestCheckState}

	setState(p, func(st *wire.State) {
		st.Fullness = wire.Vital{Level: 50}
		st.Rest = wire.Vital{Level: 5000}
		st.Entertainment = wire.Vital{Level: 5000}
	})
	expectKind(t, mustSend(t, p, env, check), wire.EventFeedMe)

	setState(p, func(st *wire.State) {
		st.Fullness = wire.Vital{Level: 5000}
		st.Rest = wire.Vital{Level: 50}
	})
	expectKind(t, mustSend(t, p, env, check), wire.EventWantToSleep)

	setState(p, func(st *wire.State) {
		st.Rest = wire.Vital{Level: 5000}
		st.Entertainment = wire.Vital{Level: 99}
	})
	expectKind(t, mustSend(t, p, env, check), wire.EventPlayWithMe)

	setState(p, func(st *wire.State) {
		st.Entertainment = wire.Vital{Level: 5000}
	})
	if ev := mustSend(t, p, env, check); ev != nil {
		t.Fatalf("expected no reply, got %s", ev.Kind)
	}

	// decay alone crosses the threshold: 5000 - 2460*2 = 80
	expectKind(t, mustSend(t, p, env.at(2460), check), wire.EventWantToSleep)
}

func TestMakeReservationWakeUpFromSelf(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	setState(p, func(st *wire.State) { st.Fullness = wire.Vital{Level: 10} })
	wake := wire.Event{Kind: wire.EventMakeReservation}.MustEncode()

	reply, err := p.Handle(context.Background(), env.from(petID), wake)
	if err != nil {
		t.Fatalf("wake-up: %v", err)
	}
	ev, err := wire.DecodeEvent(reply)
	if err != nil || ev.Kind != wire.EventFeedMe {
		t.Fatalf("expected FeedMe, got %+v err=%v", ev, err)
	}

	if _, err := p.Handle(context.Background(), env.from(alice), wake); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected external MakeReservation to be a decode error, got %v", err)
	}
}

func TestSetFTokenContract(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	expectKind(t, mustSend(t, p, env, wire.Request{Kind: wire.RequestSetFTokenContract, Account: tokenID}), wire.EventSetFTokenContract)
	if st := snapshot(t, p); st.TokenActor != tokenID {
		t.Fatalf("expected token actor set")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 7)
	mustSend(t, p, env, wire.Request{Kind: wire.RequestApprove, Account: bob})
	encoded, err := p.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	restored := New(Config{})
	if err := restored.Restore(encoded); err != nil {
		t.Fatalf("restore: %v", err)
	}
	st := snapshot(t, restored)
	if st.Name != "Rex" || st.BirthTime != 7 || st.Operator == nil || *st.Operator != bob {
		t.Fatalf("unexpected restored state: %+v", st)
	}
	if err := restored.Restore([]byte{0x01}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	mustSend(t, p, env, wire.Request{Kind: wire.RequestApprove, Account: bob})

	st := snapshot(t, p)
	*st.Operator = carol
	st.Reservations = append(st.Reservations, actor.NewReservationID())
	again := snapshot(t, p)
	if *again.Operator != bob || len(again.Reservations) != 0 {
		t.Fatalf("snapshot aliases program state: %+v", again)
	}
}
