package pet

import (
	"context"
	"fmt"
	"math"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

// pendingTx returns the tx id for (account, amount), reusing the pending
// approval when it matches and allocating a fresh id otherwise.
func (d *dispatch) pendingTx(account actor.ID, amount scale.U128) (uint64, error) {
	if p := d.st.PendingApproval; p != nil && p.Account == account && p.Amount == amount {
		return p.TxID, nil
	}
	if d.st.NextTxID == math.MaxUint64 {
		return 0, ErrTxIDExhausted
	}
	txID := d.st.NextTxID
	d.st.NextTxID++
	d.st.PendingApproval = &wire.PendingApproval{TxID: txID, Account: account, Amount: amount}
	return txID, nil
}

func (d *dispatch) approveTokens(ctx context.Context, account actor.ID, amount scale.U128) (*wire.Event, error) {
	failed := &wire.Event{Kind: wire.EventApprovalError}
	if d.st.TokenActor.IsZero() {
		log.Warn().Msgf("pet.dispatch.approveTokens rejected reason=no_token_actor account=%s", account.Short())
		return failed, nil
	}

	txID, err := d.pendingTx(account, amount)
	if err != nil {
		return nil, err
	}
	logic, err := wire.FTLogicAction{Kind: wire.FTLogicApprove, Recipient: account, Amount: amount}.Encode()
	if err != nil {
		return nil, fmt.Errorf("pet: encode approve: %w", err)
	}
	msg := wire.FTokenMessage{TransactionID: txID, Payload: logic}.Encode()

	reply, err := d.call(ctx, "ftoken", d.st.TokenActor, msg)
	if err != nil {
		log.Warn().Msgf("pet.dispatch.approveTokens call failed tx_id=%d err=%v", txID, err)
		return failed, nil
	}
	ok, err := wire.DecodeFTokenReply(reply)
	if err != nil || !ok {
		log.Warn().Msgf("pet.dispatch.approveTokens refused tx_id=%d ok=%t err=%v", txID, ok, err)
		return failed, nil
	}

	d.st.PendingApproval = nil
	log.Info().Msgf("pet.dispatch.approveTokens ok tx_id=%d account=%s amount=%s", txID, account.Short(), amount)
	return &wire.Event{Kind: wire.EventApproveTokens, Account: account, Amount: amount}, nil
}
