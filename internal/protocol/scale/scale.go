package scale

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"unicode/utf8"
)

var (
	ErrShortValue     = errors.New("scale: short value")
	ErrInvalidBool    = errors.New("scale: invalid bool")
	ErrInvalidOption  = errors.New("scale: invalid option tag")
	ErrInvalidCompact = errors.New("scale: invalid compact integer")
	ErrTrailingBytes  = errors.New("scale: trailing bytes")
	ErrInvalidUTF8    = errors.New("scale: invalid utf-8 text")
	ErrLengthTooLarge = errors.New("scale: length exceeds remaining input")
)

const (
	compactSingleMax = 1<<6 - 1
	compactTwoMax    = 1<<14 - 1
	compactFourMax   = 1<<30 - 1
)

// Encoder appends canonical little-endian values to an internal buffer.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

// Bytes returns the encoded output. The slice is owned by the encoder.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) PutU8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) PutBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
		return
	}
	e.buf = append(e.buf, 0)
}

func (e *Encoder) PutU32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) PutU64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) PutU128(v U128) {
	e.PutU64(v.Lo)
	e.PutU64(v.Hi)
}

// PutFixed writes raw bytes without a length prefix.
func (e *Encoder) PutFixed(b []byte) {
	e.buf = append(e.buf, b...)
}

// PutCompact writes v in compact form using the smallest mode that fits.
func (e *Encoder) PutCompact(v uint64) {
	switch {
	case v <= compactSingleMax:
		e.buf = append(e.buf, byte(v<<2))
	case v <= compactTwoMax:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v<<2|0b01))
	case v <= compactFourMax:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v<<2|0b10))
	default:
		n := (bits.Len64(v) + 7) / 8
		e.buf = append(e.buf, byte((n-4)<<2|0b11))
		for i := 0; i < n; i++ {
			e.buf = append(e.buf, byte(v>>(8*i)))
		}
	}
}

// PutBytes writes a compact length prefix followed by b.
func (e *Encoder) PutBytes(b []byte) {
	e.PutCompact(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *Encoder) PutString(s string) {
	e.PutBytes([]byte(s))
}

// Decoder reads canonical values from a byte slice.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

// Finish reports ErrTrailingBytes when input is left unread.
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingBytes, d.Remaining())
	}
	return nil
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, ErrShortValue
	}
	out := d.buf[d.off : d.off+n]
	d.off += n
	return out, nil
}

func (d *Decoder) U8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) Bool() (bool, error) {
	b, err := d.U8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidBool
	}
}

// OptionTag reads an Option discriminant and reports whether a value follows.
func (d *Decoder) OptionTag() (bool, error) {
	b, err := d.U8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidOption
	}
}

func (d *Decoder) U32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) U64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *Decoder) U128() (U128, error) {
	lo, err := d.U64()
	if err != nil {
		return U128{}, err
	}
	hi, err := d.U64()
	if err != nil {
		return U128{}, err
	}
	return U128{Lo: lo, Hi: hi}, nil
}

// Fixed reads exactly n raw bytes into a fresh slice.
func (d *Decoder) Fixed(n int) ([]byte, error) {
	b, err := d.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Compact reads a compact integer and rejects non-minimal encodings.
func (d *Decoder) Compact() (uint64, error) {
	first, err := d.U8()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case 0b00:
		return uint64(first >> 2), nil
	case 0b01:
		second, err := d.U8()
		if err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint16([]byte{first, second}) >> 2)
		if v <= compactSingleMax {
			return 0, ErrInvalidCompact
		}
		return v, nil
	case 0b10:
		rest, err := d.take(3)
		if err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint32([]byte{first, rest[0], rest[1], rest[2]}) >> 2)
		if v <= compactTwoMax {
			return 0, ErrInvalidCompact
		}
		return v, nil
	default:
		n := int(first>>2) + 4
		if n > 8 {
			return 0, ErrInvalidCompact
		}
		raw, err := d.take(n)
		if err != nil {
			return 0, err
		}
		var v uint64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(raw[i])
		}
		if v <= compactFourMax || (bits.Len64(v)+7)/8 != n {
			return 0, ErrInvalidCompact
		}
		return v, nil
	}
}

// Length reads a compact collection length bounded by the remaining input.
func (d *Decoder) Length() (int, error) {
	n, err := d.Compact()
	if err != nil {
		return 0, err
	}
	if n > uint64(d.Remaining()) {
		return 0, ErrLengthTooLarge
	}
	return int(n), nil
}

func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Length()
	if err != nil {
		return nil, err
	}
	return d.Fixed(n)
}

func (d *Decoder) String() (string, error) {
	b, err := d.Bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}
