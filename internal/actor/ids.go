// Package actor owns identity primitives shared by programs and the host.
package actor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// IDLen is the raw byte length of an actor identity.
const IDLen = 32

var ErrInvalidID = errors.New("actor: invalid id")

// ID is a 32-byte opaque actor identity.
type ID [IDLen]byte

// Zero is the null identity.
var Zero ID

func (id ID) IsZero() bool {
	return id == Zero
}

// String renders the id as 0x-prefixed lowercase hex.
func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Short renders the first four bytes for log lines.
func (id ID) Short() string {
	return hex.EncodeToString(id[:4])
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID decodes a 64-char hex id with optional 0x prefix.
func ParseID(raw string) (ID, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if len(s) != IDLen*2 {
		return Zero, fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalidID, IDLen*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// NamedID derives a stable id from a human label (sha256).
// Used for configs and scenarios that name actors instead of spelling out hex.
func NamedID(label string) ID {
	return ID(sha256.Sum256([]byte(strings.TrimSpace(label))))
}

// ResolveID accepts either a hex id or a label.
func ResolveID(raw string) ID {
	if id, err := ParseID(raw); err == nil {
		return id
	}
	return NamedID(raw)
}

// ReservationIDLen is the raw byte length of a reservation handle.
const ReservationIDLen = 32

// ReservationID is an opaque host-owned reservation handle: two random
// uuids back to back.
type ReservationID [ReservationIDLen]byte

func NewReservationID() ReservationID {
	var r ReservationID
	head, tail := uuid.New(), uuid.New()
	copy(r[:16], head[:])
	copy(r[16:], tail[:])
	return r
}

func (r ReservationID) String() string {
	return "0x" + hex.EncodeToString(r[:])
}

func (r ReservationID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *ReservationID) UnmarshalText(b []byte) error {
	id, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*r = ReservationID(id)
	return nil
}

// MessageID identifies one host delivery.
type MessageID uuid.UUID

func NewMessageID() MessageID {
	return MessageID(uuid.New())
}

func (m MessageID) String() string {
	return uuid.UUID(m).String()
}

// Uint64 folds the id into the frame header message id slot.
func (m MessageID) Uint64() uint64 {
	var v uint64
	for _, b := range m[:8] {
		v = v<<8 | uint64(b)
	}
	return v
}
