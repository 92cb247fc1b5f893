package pet

import (
	"fmt"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/wire"
)

type permission int

const (
	permAnyone permission = iota
	permOwner
	permOwnerOrOperator
	permSelf
)

var requestPermissions = map[wire.RequestKind]permission{
	wire.RequestName:              permAnyone,
	wire.RequestAge:               permAnyone,
	wire.RequestOwner:             permAnyone,
	wire.RequestFeed:              permOwnerOrOperator,
	wire.RequestPlay:              permOwnerOrOperator,
	wire.RequestSleep:             permOwnerOrOperator,
	wire.RequestBuyAttribute:      permOwnerOrOperator,
	wire.RequestApproveTokens:     permOwnerOrOperator,
	wire.RequestTransfer:          permOwner,
	wire.RequestApprove:           permOwner,
	wire.RequestRevokeApproval:    permOwner,
	wire.RequestSetFTokenContract: permOwner,
	wire.RequestReserveGas:        permOwner,
	wire.RequestCheckState:        permSelf,
}

func isOperator(st *wire.State, source actor.ID) bool {
	return st.Operator != nil && *st.Operator == source
}

// authorize checks source against the permission of kind.
func authorize(st *wire.State, self, source actor.ID, kind wire.RequestKind) error {
	perm, ok := requestPermissions[kind]
	if !ok {
		return fmt.Errorf("%w: no permission for %s", ErrUnauthorized, kind)
	}
	switch perm {
	case permAnyone:
		return nil
	case permOwner:
		if source == st.Owner {
			return nil
		}
	case permOwnerOrOperator:
		if source == st.Owner || isOperator(st, source) {
			return nil
		}
	case permSelf:
		if source == self {
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrUnauthorized, kind, source.Short())
}
