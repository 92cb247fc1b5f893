package wire

import (
	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/schema"
)

// EventKind is the Event discriminant.
type EventKind uint8

const (
	EventName                 = EventKind(schema.EvtName)
	EventAge                  = EventKind(schema.EvtAge)
	EventFed                  = EventKind(schema.EvtFed)
	EventEntertained          = EventKind(schema.EvtEntertained)
	EventSlept                = EventKind(schema.EvtSlept)
	EventTransfer             = EventKind(schema.EvtTransfer)
	EventApprove              = EventKind(schema.EvtApprove)
	EventRevokeApproval       = EventKind(schema.EvtRevokeApproval)
	EventApproveTokens        = EventKind(schema.EvtApproveTokens)
	EventApprovalError        = EventKind(schema.EvtApprovalError)
	EventSetFTokenContract    = EventKind(schema.EvtSetFTokenContract)
	EventAttributeBought      = EventKind(schema.EvtAttributeBought)
	EventCompletePrevPurchase = EventKind(schema.EvtCompletePrevPurchase)
	EventErrorDuringPurchase  = EventKind(schema.EvtErrorDuringPurchase)
	EventFeedMe               = EventKind(schema.EvtFeedMe)
	EventPlayWithMe           = EventKind(schema.EvtPlayWithMe)
	EventWantToSleep          = EventKind(schema.EvtWantToSleep)
	EventMakeReservation      = EventKind(schema.EvtMakeReservation)
	EventGasReserved          = EventKind(schema.EvtGasReserved)
	EventOwner                = EventKind(schema.EvtOwner)
)

func (k EventKind) String() string {
	return schema.Name(schema.UnionEvent, uint8(k))
}

// Event is the pet reply. Only the fields of Kind are encoded:
//
//	Name: Name
//	Age: Age
//	Transfer, Approve, Owner: Account
//	ApproveTokens: Account, Amount
//	AttributeBought, CompletePrevPurchase: AttributeID
type Event struct {
	Kind        EventKind
	Name        string
	Age         uint64
	Account     actor.ID
	Amount      scale.U128
	AttributeID uint32
}

func (ev Event) Encode() ([]byte, error) {
	e := scale.NewEncoder()
	e.PutU8(uint8(ev.Kind))
	switch ev.Kind {
	case EventFed, EventEntertained, EventSlept, EventRevokeApproval, EventApprovalError,
		EventSetFTokenContract, EventErrorDuringPurchase, EventFeedMe, EventPlayWithMe,
		EventWantToSleep, EventMakeReservation, EventGasReserved:
	case EventName:
		e.PutString(ev.Name)
	case EventAge:
		e.PutU64(ev.Age)
	case EventTransfer, EventApprove, EventOwner:
		putID(e, ev.Account)
	case EventApproveTokens:
		putID(e, ev.Account)
		e.PutU128(ev.Amount)
	case EventAttributeBought, EventCompletePrevPurchase:
		e.PutU32(ev.AttributeID)
	default:
		return nil, unknownKind(schema.UnionEvent, uint8(ev.Kind))
	}
	return e.Bytes(), nil
}

func (ev Event) MustEncode() []byte {
	b, err := ev.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

func DecodeEvent(b []byte) (Event, error) {
	var ev Event
	err := decode(schema.UnionEvent, b, func(d *scale.Decoder, disc uint8) error {
		ev.Kind = EventKind(disc)
		var err error
		switch ev.Kind {
		case EventName:
			ev.Name, err = d.String()
		case EventAge:
			ev.Age, err = d.U64()
		case EventTransfer, EventApprove, EventOwner:
			ev.Account, err = readID(d)
		case EventApproveTokens:
			if ev.Account, err = readID(d); err != nil {
				return err
			}
			ev.Amount, err = d.U128()
		case EventAttributeBought, EventCompletePrevPurchase:
			ev.AttributeID, err = d.U32()
		}
		return err
	})
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
