package pet

import (
	"context"
	"fmt"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

func (d *dispatch) buyAttribute(ctx context.Context, store actor.ID, attributeID uint32) (*wire.Event, error) {
	failed := &wire.Event{Kind: wire.EventErrorDuringPurchase}
	msg, err := wire.StoreAction{Kind: wire.StoreBuyAttribute, AttributeID: attributeID}.Encode()
	if err != nil {
		return nil, fmt.Errorf("pet: encode buy: %w", err)
	}

	reply, err := d.call(ctx, "store", store, msg)
	if err != nil {
		log.Warn().Msgf("pet.dispatch.buyAttribute call failed store=%s attribute=%d err=%v", store.Short(), attributeID, err)
		return failed, nil
	}
	ev, err := wire.DecodeStoreEvent(reply)
	if err != nil {
		log.Warn().Msgf("pet.dispatch.buyAttribute bad reply store=%s err=%v", store.Short(), err)
		return failed, nil
	}

	switch {
	case ev.Kind == wire.StoreAttributeSold && ev.Success:
		return &wire.Event{Kind: wire.EventAttributeBought, AttributeID: attributeID}, nil
	case ev.Kind == wire.StoreCompletePrevTx:
		log.Info().Msgf("pet.dispatch.buyAttribute previous purchase pending attribute=%d", ev.AttributeID)
		return &wire.Event{Kind: wire.EventCompletePrevPurchase, AttributeID: ev.AttributeID}, nil
	default:
		return failed, nil
	}
}
