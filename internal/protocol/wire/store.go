package wire

import (
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/schema"
)

type StoreActionKind uint8

const (
	StoreCreateAttribute = StoreActionKind(schema.StoreCreateAttribute)
	StoreBuyAttribute    = StoreActionKind(schema.StoreBuyAttribute)
)

// StoreAction is the attribute-store input.
//
//	CreateAttribute: AttributeID, Price
//	BuyAttribute: AttributeID
type StoreAction struct {
	Kind        StoreActionKind
	AttributeID uint32
	Price       scale.U128
}

func (a StoreAction) Encode() ([]byte, error) {
	e := scale.NewEncoder()
	e.PutU8(uint8(a.Kind))
	switch a.Kind {
	case StoreCreateAttribute:
		e.PutU32(a.AttributeID)
		e.PutU128(a.Price)
	case StoreBuyAttribute:
		e.PutU32(a.AttributeID)
	default:
		return nil, unknownKind(schema.UnionStoreAction, uint8(a.Kind))
	}
	return e.Bytes(), nil
}

func DecodeStoreAction(b []byte) (StoreAction, error) {
	var a StoreAction
	err := decode(schema.UnionStoreAction, b, func(d *scale.Decoder, disc uint8) error {
		a.Kind = StoreActionKind(disc)
		var err error
		if a.AttributeID, err = d.U32(); err != nil {
			return err
		}
		if a.Kind == StoreCreateAttribute {
			a.Price, err = d.U128()
		}
		return err
	})
	if err != nil {
		return StoreAction{}, err
	}
	return a, nil
}

type StoreEventKind uint8

const (
	StoreAttributeCreated = StoreEventKind(schema.StoreAttributeCreated)
	StoreAttributeSold    = StoreEventKind(schema.StoreAttributeSold)
	StoreCompletePrevTx   = StoreEventKind(schema.StoreCompletePrevTx)
)

// StoreEvent is the attribute-store reply.
//
//	AttributeCreated, CompletePrevTx: AttributeID
//	AttributeSold: Success
type StoreEvent struct {
	Kind        StoreEventKind
	AttributeID uint32
	Success     bool
}

func (ev StoreEvent) Encode() ([]byte, error) {
	e := scale.NewEncoder()
	e.PutU8(uint8(ev.Kind))
	switch ev.Kind {
	case StoreAttributeCreated, StoreCompletePrevTx:
		e.PutU32(ev.AttributeID)
	case StoreAttributeSold:
		e.PutBool(ev.Success)
	default:
		return nil, unknownKind(schema.UnionStoreEvent, uint8(ev.Kind))
	}
	return e.Bytes(), nil
}

func DecodeStoreEvent(b []byte) (StoreEvent, error) {
	var ev StoreEvent
	err := decode(schema.UnionStoreEvent, b, func(d *scale.Decoder, disc uint8) error {
		ev.Kind = StoreEventKind(disc)
		var err error
		switch ev.Kind {
		case StoreAttributeCreated, StoreCompletePrevTx:
			ev.AttributeID, err = d.U32()
		case StoreAttributeSold:
			ev.Success, err = d.Bool()
		}
		return err
	})
	if err != nil {
		return StoreEvent{}, err
	}
	return ev, nil
}
