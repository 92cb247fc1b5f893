package pet

import (
	"errors"
	"testing"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/danmuck/tamactl/internal/testutil/testlog"
)

func approveTokens(account actor.ID, amount uint64) wire.Request {
	return wire.Request{Kind: wire.RequestApproveTokens, Account: account, Amount: scale.U128From64(amount)}
}

func decodeApproveCall(t *testing.T, payload []byte) (uint64, wire.FTLogicAction) {
	t.Helper()
	msg, err := wire.DecodeFTokenMessage(payload)
	if err != nil {
		t.Fatalf("decode ftoken message: %v", err)
	}
	logic, err := wire.DecodeFTLogicAction(msg.Payload)
	if err != nil {
		t.Fatalf("decode logic action: %v", err)
	}
	return msg.TransactionID, logic
}

func TestApproveTokensWithoutTokenActor(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)

	expectKind(t, mustSend(t, p, env, approveTokens(bob, 50)), wire.EventApprovalError)
	st := snapshot(t, p)
	if st.PendingApproval != nil || st.NextTxID != 0 || len(env.calls) != 0 {
		t.Fatalf("expected no call and no pending approval: %+v", st)
	}
}

func TestApproveTokensRetryReusesTxID(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	mustSend(t, p, env, wire.Request{Kind: wire.RequestSetFTokenContract, Account: tokenID})

	expectKind(t, mustSend(t, p, env, approveTokens(bob, 50)), wire.EventApprovalError)
	first := snapshot(t, p)
	if first.PendingApproval == nil || first.PendingApproval.Account != bob || first.PendingApproval.Amount != scale.U128From64(50) {
		t.Fatalf("expected pending approval, got %+v", first.PendingApproval)
	}

	expectKind(t, mustSend(t, p, env, approveTokens(bob, 50)), wire.EventApprovalError)
	second := snapshot(t, p)
	if second.PendingApproval.TxID != first.PendingApproval.TxID {
		t.Fatalf("expected reused tx id %d, got %d", first.PendingApproval.TxID, second.PendingApproval.TxID)
	}
	if second.NextTxID != first.NextTxID {
		t.Fatalf("retry must not allocate: %d -> %d", first.NextTxID, second.NextTxID)
	}

	if len(env.calls) != 2 {
		t.Fatalf("expected two calls, got %d", len(env.calls))
	}
	tx1, logic := decodeApproveCall(t, env.calls[0].payload)
	tx2, _ := decodeApproveCall(t, env.calls[1].payload)
	if tx1 != tx2 || env.calls[0].dest != tokenID {
		t.Fatalf("expected identical tx ids to token actor, got %d and %d", tx1, tx2)
	}
	if logic.Kind != wire.FTLogicApprove || logic.Recipient != bob || logic.Amount != scale.U128From64(50) {
		t.Fatalf("unexpected logic action: %+v", logic)
	}

	env.responders[tokenID] = ftokenResponder(true)
	ev := mustSend(t, p, env, approveTokens(bob, 50))
	expectKind(t, ev, wire.EventApproveTokens)
	if ev.Account != bob || ev.Amount != scale.U128From64(50) {
		t.Fatalf("unexpected reply: %+v", ev)
	}
	if st := snapshot(t, p); st.PendingApproval != nil {
		t.Fatalf("expected pending approval cleared")
	}
}

func TestApproveTokensTxIDStrictlyIncreasing(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	mustSend(t, p, env, wire.Request{Kind: wire.RequestSetFTokenContract, Account: tokenID})
	env.responders[tokenID] = ftokenResponder(true)

	var last uint64
	for i := uint64(1); i <= 5; i++ {
		mustSend(t, p, env, approveTokens(bob, i))
		tx, _ := decodeApproveCall(t, env.calls[len(env.calls)-1].payload)
		if i > 1 && tx <= last {
			t.Fatalf("tx id not increasing: %d after %d", tx, last)
		}
		last = tx
	}
	if st := snapshot(t, p); st.NextTxID != 5 {
		t.Fatalf("expected next tx id 5, got %d", st.NextTxID)
	}
}

func TestApproveTokensDifferentRequestReplacesPending(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	mustSend(t, p, env, wire.Request{Kind: wire.RequestSetFTokenContract, Account: tokenID})
	env.responders[tokenID] = ftokenResponder(false)

	mustSend(t, p, env, approveTokens(bob, 50))
	mustSend(t, p, env, approveTokens(carol, 50))
	st := snapshot(t, p)
	if st.PendingApproval.TxID != 1 || st.PendingApproval.Account != carol || st.NextTxID != 2 {
		t.Fatalf("expected pending replaced with tx 1, got %+v next=%d", st.PendingApproval, st.NextTxID)
	}
}

func TestApproveTokensByOperator(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	mustSend(t, p, env, wire.Request{Kind: wire.RequestSetFTokenContract, Account: tokenID})
	mustSend(t, p, env, wire.Request{Kind: wire.RequestApprove, Account: bob})
	env.responders[tokenID] = ftokenResponder(true)

	expectKind(t, mustSend(t, p, env.from(bob), approveTokens(carol, 9)), wire.EventApproveTokens)
}

func TestApproveTokensBadReply(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	mustSend(t, p, env, wire.Request{Kind: wire.RequestSetFTokenContract, Account: tokenID})
	env.responders[tokenID] = func([]byte) ([]byte, error) { return []byte{0x09}, nil }

	expectKind(t, mustSend(t, p, env, approveTokens(bob, 1)), wire.EventApprovalError)
	if st := snapshot(t, p); st.PendingApproval == nil {
		t.Fatalf("expected pending approval kept")
	}
}

func TestBuyAttributeReplies(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		reply  func([]byte) ([]byte, error)
		want   wire.EventKind
		wantID uint32
	}{
		{"sold", storeReply(wire.StoreEvent{Kind: wire.StoreAttributeSold, Success: true}), wire.EventAttributeBought, 7},
		{"not sold", storeReply(wire.StoreEvent{Kind: wire.StoreAttributeSold}), wire.EventErrorDuringPurchase, 0},
		{"previous pending", storeReply(wire.StoreEvent{Kind: wire.StoreCompletePrevTx, AttributeID: 3}), wire.EventCompletePrevPurchase, 3},
		{"garbage", func([]byte) ([]byte, error) { return []byte{0x01}, nil }, wire.EventErrorDuringPurchase, 0},
		{"no reply", nil, wire.EventErrorDuringPurchase, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, env := newPet(t, "Rex", 0)
			if tc.reply != nil {
				env.responders[storeID] = tc.reply
			}
			ev := mustSend(t, p, env, wire.Request{Kind: wire.RequestBuyAttribute, StoreID: storeID, AttributeID: 7})
			expectKind(t, ev, tc.want)
			if ev.AttributeID != tc.wantID {
				t.Fatalf("expected attribute %d, got %d", tc.wantID, ev.AttributeID)
			}
			action, err := wire.DecodeStoreAction(env.calls[0].payload)
			if err != nil || action.Kind != wire.StoreBuyAttribute || action.AttributeID != 7 {
				t.Fatalf("unexpected store call %+v err=%v", action, err)
			}
		})
	}
}

func storeReply(ev wire.StoreEvent) func([]byte) ([]byte, error) {
	return func([]byte) ([]byte, error) {
		return ev.Encode()
	}
}

func TestBuyAttributeUnauthorized(t *testing.T) {
	testlog.Start(t)
	p, env := newPet(t, "Rex", 0)
	_, err := send(t, p, env.from(carol), wire.Request{Kind: wire.RequestBuyAttribute, StoreID: storeID, AttributeID: 1})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(env.calls) != 0 {
		t.Fatalf("unauthorized purchase must not reach the store")
	}
}
