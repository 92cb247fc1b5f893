package pet

import (
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/rs/zerolog/log"
)

// checkState reports the first vital below the attention threshold, in
// fullness, rest, entertainment order. A healthy pet replies nothing.
func (d *dispatch) checkState() *wire.Event {
	lv := CurrentLevels(d.st, d.now)
	threshold := d.cfg.AttentionThreshold

	var kind wire.EventKind
	switch {
	case lv.Fullness < threshold:
		kind = wire.EventFeedMe
	case lv.Rest < threshold:
		kind = wire.EventWantToSleep
	case lv.Entertainment < threshold:
		kind = wire.EventPlayWithMe
	default:
		log.Debug().Msgf("pet.dispatch.checkState healthy fullness=%d rest=%d entertainment=%d", lv.Fullness, lv.Rest, lv.Entertainment)
		return nil
	}
	log.Info().Msgf("pet.dispatch.checkState attention event=%s fullness=%d rest=%d entertainment=%d", kind, lv.Fullness, lv.Rest, lv.Entertainment)
	return &wire.Event{Kind: kind}
}

// isWakeUp reports whether payload is the MakeReservation event a signal
// sends back to this program.
func isWakeUp(payload []byte) bool {
	ev, err := wire.DecodeEvent(payload)
	return err == nil && ev.Kind == wire.EventMakeReservation
}
