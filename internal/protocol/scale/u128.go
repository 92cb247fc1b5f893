package scale

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strings"
)

var ErrInvalidU128 = errors.New("scale: invalid u128")

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// U128 is an unsigned 128-bit integer split into two 64-bit limbs.
type U128 struct {
	Lo uint64
	Hi uint64
}

func U128From64(v uint64) U128 {
	return U128{Lo: v}
}

func (u U128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

func (u U128) Cmp(o U128) int {
	switch {
	case u.Hi < o.Hi:
		return -1
	case u.Hi > o.Hi:
		return 1
	case u.Lo < o.Lo:
		return -1
	case u.Lo > o.Lo:
		return 1
	default:
		return 0
	}
}

// Add returns u+o and whether the sum overflowed.
func (u U128) Add(o U128) (U128, bool) {
	lo, carry := bits.Add64(u.Lo, o.Lo, 0)
	hi, carry := bits.Add64(u.Hi, o.Hi, carry)
	return U128{Lo: lo, Hi: hi}, carry != 0
}

// Sub returns u-o and whether the difference underflowed.
func (u U128) Sub(o U128) (U128, bool) {
	lo, borrow := bits.Sub64(u.Lo, o.Lo, 0)
	hi, borrow := bits.Sub64(u.Hi, o.Hi, borrow)
	return U128{Lo: lo, Hi: hi}, borrow != 0
}

func (u U128) Big() *big.Int {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(u.Lo))
}

func (u U128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("%d", u.Lo)
	}
	return u.Big().String()
}

// ParseU128 parses a base-10 value.
func ParseU128(raw string) (U128, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return U128{}, fmt.Errorf("%w: %q", ErrInvalidU128, raw)
	}
	lo := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(v, 64)
	return U128{Lo: lo.Uint64(), Hi: hi.Uint64()}, nil
}

func (u U128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *U128) UnmarshalText(b []byte) error {
	v, err := ParseU128(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
