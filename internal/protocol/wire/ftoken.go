package wire

import (
	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/schema"
)

// FTokenMessage wraps one logic action with a caller-chosen transaction id.
// The token actor treats (source, TransactionID) as an idempotency key.
type FTokenMessage struct {
	TransactionID uint64
	Payload       []byte
}

func (m FTokenMessage) Encode() []byte {
	e := scale.NewEncoder()
	e.PutU8(schema.FTokenMessage)
	e.PutU64(m.TransactionID)
	e.PutBytes(m.Payload)
	return e.Bytes()
}

func DecodeFTokenMessage(b []byte) (FTokenMessage, error) {
	var m FTokenMessage
	err := decode(schema.UnionFTokenAction, b, func(d *scale.Decoder, _ uint8) error {
		var err error
		if m.TransactionID, err = d.U64(); err != nil {
			return err
		}
		m.Payload, err = d.Bytes()
		return err
	})
	if err != nil {
		return FTokenMessage{}, err
	}
	return m, nil
}

type FTLogicKind uint8

const (
	FTLogicMint     = FTLogicKind(schema.FTLogicMint)
	FTLogicBurn     = FTLogicKind(schema.FTLogicBurn)
	FTLogicTransfer = FTLogicKind(schema.FTLogicTransfer)
	FTLogicApprove  = FTLogicKind(schema.FTLogicApprove)
)

func (k FTLogicKind) String() string {
	return schema.Name(schema.UnionFTLogicAction, uint8(k))
}

// FTLogicAction is the token logic payload carried by FTokenMessage.
//
//	Mint: Recipient, Amount
//	Burn: Sender, Amount
//	Transfer: Sender, Recipient, Amount
//	Approve: Recipient (approved account), Amount
type FTLogicAction struct {
	Kind      FTLogicKind
	Sender    actor.ID
	Recipient actor.ID
	Amount    scale.U128
}

func (a FTLogicAction) Encode() ([]byte, error) {
	e := scale.NewEncoder()
	e.PutU8(uint8(a.Kind))
	switch a.Kind {
	case FTLogicMint, FTLogicApprove:
		putID(e, a.Recipient)
	case FTLogicBurn:
		putID(e, a.Sender)
	case FTLogicTransfer:
		putID(e, a.Sender)
		putID(e, a.Recipient)
	default:
		return nil, unknownKind(schema.UnionFTLogicAction, uint8(a.Kind))
	}
	e.PutU128(a.Amount)
	return e.Bytes(), nil
}

func DecodeFTLogicAction(b []byte) (FTLogicAction, error) {
	var a FTLogicAction
	err := decode(schema.UnionFTLogicAction, b, func(d *scale.Decoder, disc uint8) error {
		a.Kind = FTLogicKind(disc)
		var err error
		switch a.Kind {
		case FTLogicMint, FTLogicApprove:
			a.Recipient, err = readID(d)
		case FTLogicBurn:
			a.Sender, err = readID(d)
		case FTLogicTransfer:
			if a.Sender, err = readID(d); err != nil {
				return err
			}
			a.Recipient, err = readID(d)
		}
		if err != nil {
			return err
		}
		a.Amount, err = d.U128()
		return err
	})
	if err != nil {
		return FTLogicAction{}, err
	}
	return a, nil
}

// EncodeFTokenReply encodes FTokenEvent::Ok or FTokenEvent::Err.
func EncodeFTokenReply(ok bool) []byte {
	if ok {
		return []byte{schema.FTokenOk}
	}
	return []byte{schema.FTokenErr}
}

// DecodeFTokenReply reports whether the token actor replied Ok.
func DecodeFTokenReply(b []byte) (bool, error) {
	var ok bool
	err := decode(schema.UnionFTokenEvent, b, func(_ *scale.Decoder, disc uint8) error {
		ok = disc == schema.FTokenOk
		return nil
	})
	return ok, err
}
