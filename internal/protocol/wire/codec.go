package wire

import (
	"errors"
	"fmt"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/schema"
)

var (
	ErrDecode      = errors.New("wire: decode failed")
	ErrUnknownKind = errors.New("wire: unknown variant kind")
)

// decode validates the leading discriminant, runs body over the remaining
// input and rejects trailing bytes. Every failure wraps ErrDecode.
func decode(union schema.Union, b []byte, body func(d *scale.Decoder, disc uint8) error) error {
	if err := schema.Validate(union, b); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	d := scale.NewDecoder(b)
	disc, err := d.U8()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := body(d, disc); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDecode, union, schema.Name(union, disc), err)
	}
	if err := d.Finish(); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDecode, union, schema.Name(union, disc), err)
	}
	return nil
}

func unknownKind(union schema.Union, disc uint8) error {
	return fmt.Errorf("%w: %s discriminant=%d", ErrUnknownKind, union, disc)
}

func putID(e *scale.Encoder, id actor.ID) {
	e.PutFixed(id[:])
}

func readID(d *scale.Decoder) (actor.ID, error) {
	b, err := d.Fixed(actor.IDLen)
	if err != nil {
		return actor.Zero, err
	}
	var id actor.ID
	copy(id[:], b)
	return id, nil
}

func putReservation(e *scale.Encoder, id actor.ReservationID) {
	e.PutFixed(id[:])
}

func readReservation(d *scale.Decoder) (actor.ReservationID, error) {
	b, err := d.Fixed(len(actor.ReservationID{}))
	if err != nil {
		return actor.ReservationID{}, err
	}
	var id actor.ReservationID
	copy(id[:], b)
	return id, nil
}
