package wire

import (
	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/schema"
)

// RequestKind is the Request discriminant.
type RequestKind uint8

const (
	RequestName              = RequestKind(schema.ReqName)
	RequestAge               = RequestKind(schema.ReqAge)
	RequestFeed              = RequestKind(schema.ReqFeed)
	RequestPlay              = RequestKind(schema.ReqPlay)
	RequestSleep             = RequestKind(schema.ReqSleep)
	RequestTransfer          = RequestKind(schema.ReqTransfer)
	RequestApprove           = RequestKind(schema.ReqApprove)
	RequestRevokeApproval    = RequestKind(schema.ReqRevokeApproval)
	RequestApproveTokens     = RequestKind(schema.ReqApproveTokens)
	RequestSetFTokenContract = RequestKind(schema.ReqSetFTokenContract)
	RequestBuyAttribute      = RequestKind(schema.ReqBuyAttribute)
	RequestCheckState        = RequestKind(schema.ReqCheckState)
	RequestReserveGas        = RequestKind(schema.ReqReserveGas)
	RequestOwner             = RequestKind(schema.ReqOwner)
)

func (k RequestKind) String() string {
	return schema.Name(schema.UnionRequest, uint8(k))
}

// Request is the pet handle input. Only the fields of Kind are encoded:
//
//	Transfer, Approve, SetFTokenContract: Account
//	ApproveTokens: Account, Amount
//	BuyAttribute: StoreID, AttributeID
//	ReserveGas: ReservationAmount, Duration
type Request struct {
	Kind              RequestKind
	Account           actor.ID
	Amount            scale.U128
	StoreID           actor.ID
	AttributeID       uint32
	ReservationAmount uint64
	Duration          uint32
}

func (r Request) Encode() ([]byte, error) {
	e := scale.NewEncoder()
	e.PutU8(uint8(r.Kind))
	switch r.Kind {
	case RequestName, RequestAge, RequestFeed, RequestPlay, RequestSleep,
		RequestRevokeApproval, RequestCheckState, RequestOwner:
	case RequestTransfer, RequestApprove, RequestSetFTokenContract:
		putID(e, r.Account)
	case RequestApproveTokens:
		putID(e, r.Account)
		e.PutU128(r.Amount)
	case RequestBuyAttribute:
		putID(e, r.StoreID)
		e.PutU32(r.AttributeID)
	case RequestReserveGas:
		e.PutU64(r.ReservationAmount)
		e.PutU32(r.Duration)
	default:
		return nil, unknownKind(schema.UnionRequest, uint8(r.Kind))
	}
	return e.Bytes(), nil
}

// MustEncode panics on unknown kinds. Intended for literals in tests and tooling.
func (r Request) MustEncode() []byte {
	b, err := r.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

func DecodeRequest(b []byte) (Request, error) {
	var r Request
	err := decode(schema.UnionRequest, b, func(d *scale.Decoder, disc uint8) error {
		r.Kind = RequestKind(disc)
		var err error
		switch r.Kind {
		case RequestTransfer, RequestApprove, RequestSetFTokenContract:
			r.Account, err = readID(d)
		case RequestApproveTokens:
			if r.Account, err = readID(d); err != nil {
				return err
			}
			r.Amount, err = d.U128()
		case RequestBuyAttribute:
			if r.StoreID, err = readID(d); err != nil {
				return err
			}
			r.AttributeID, err = d.U32()
		case RequestReserveGas:
			if r.ReservationAmount, err = d.U64(); err != nil {
				return err
			}
			r.Duration, err = d.U32()
		}
		return err
	})
	if err != nil {
		return Request{}, err
	}
	return r, nil
}
