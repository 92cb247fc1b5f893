// Package frame wraps program messages for transport and journaling.
//
// A frame is a 32-byte big-endian header, optional auth bytes, then the
// payload. The payload is opaque here; program codecs live in wire.
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic          uint32 = 0x54414d41 // "TAMA"
	Version        uint16 = 1
	FixedHeaderLen uint16 = 32

	FlagHasAuth uint32 = 0x01
	FlagIsReply uint32 = 0x02
	FlagIsError uint32 = 0x04
	FlagNoReply uint32 = 0x08
)

// Message type ids for program endpoints.
const (
	TypeInit   uint32 = 1
	TypeHandle uint32 = 2
	TypeReply  uint32 = 3
	TypeState  uint32 = 4
	TypeSignal uint32 = 5
)

var (
	ErrShortHeader       = errors.New("frame: short fixed header")
	ErrInvalidMagic      = errors.New("frame: invalid magic")
	ErrUnsupported       = errors.New("frame: unsupported version")
	ErrHeaderLenTooSmall = errors.New("frame: header_len smaller than fixed header")
	ErrHeaderLenMismatch = errors.New("frame: auth present but header_len has no auth bytes")
	ErrPayloadTooLarge   = errors.New("frame: payload too large")
	ErrAuthTooLarge      = errors.New("frame: auth too large")
)

// Header is the fixed wire header.
//
//	0  magic u32 | 4 version u16 | 6 header_len u16
//	8  message_id u64
//	16 message_type u32 | 20 flags u32
//	24 payload_len u64
type Header struct {
	Magic       uint32
	Version     uint16
	HeaderLen   uint16
	MessageID   uint64
	MessageType uint32
	Flags       uint32
	PayloadLen  uint64
}

func (h Header) Has(flag uint32) bool {
	return h.Flags&flag == flag
}

// AuthLen is the auth byte count implied by HeaderLen.
func (h Header) AuthLen() uint64 {
	if h.HeaderLen < FixedHeaderLen {
		return 0
	}
	return uint64(h.HeaderLen - FixedHeaderLen)
}

// Validate checks identity, framing and size limits of a decoded header.
func (h Header) Validate(limits Limits) error {
	switch {
	case h.Magic != Magic:
		return ErrInvalidMagic
	case h.Version != Version:
		return fmt.Errorf("%w: %d", ErrUnsupported, h.Version)
	case h.HeaderLen < FixedHeaderLen:
		return ErrHeaderLenTooSmall
	case h.Has(FlagHasAuth) && h.AuthLen() == 0:
		return ErrHeaderLenMismatch
	case h.AuthLen() > limits.MaxAuthBytes:
		return ErrAuthTooLarge
	case h.PayloadLen > limits.MaxPayloadBytes:
		return ErrPayloadTooLarge
	}
	return nil
}

// Frame is one complete wire message. Auth carries the 32-byte source
// identity for handle frames.
type Frame struct {
	Header  Header
	Auth    []byte
	Payload []byte
}

// Limits bounds the memory a single frame may claim.
type Limits struct {
	MaxAuthBytes    uint64
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxAuthBytes:    1024,
		MaxPayloadBytes: 1024 * 1024,
	}
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}
	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if err := h.Validate(limits); err != nil {
		return Frame{}, err
	}

	authLen := h.AuthLen()
	body := make([]byte, authLen+h.PayloadLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("frame: read body: %w", err)
	}
	return Frame{Header: h, Auth: body[:authLen:authLen], Payload: body[authLen:]}, nil
}

// WriteFrame fills in magic, version, lengths and the auth flag from f.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Auth)) > limits.MaxAuthBytes {
		return ErrAuthTooLarge
	}
	if uint64(len(f.Payload)) > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := f.Header
	h.Magic = Magic
	h.Version = Version
	h.HeaderLen = FixedHeaderLen + uint16(len(f.Auth))
	h.PayloadLen = uint64(len(f.Payload))
	h.Flags &^= FlagHasAuth
	if len(f.Auth) > 0 {
		h.Flags |= FlagHasAuth
	}

	buf := make([]byte, 0, int(h.HeaderLen)+len(f.Payload))
	buf = AppendHeader(buf, h)
	buf = append(buf, f.Auth...)
	buf = append(buf, f.Payload...)
	_, err := w.Write(buf)
	return err
}

// Marshal writes f into a fresh buffer using default limits.
func Marshal(f Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, f, DefaultLimits()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal reads exactly one frame from b.
func Unmarshal(b []byte) (Frame, error) {
	r := bytes.NewReader(b)
	f, err := ReadFrame(r, DefaultLimits())
	if err != nil {
		return Frame{}, err
	}
	if r.Len() != 0 {
		return Frame{}, fmt.Errorf("frame: %d trailing bytes", r.Len())
	}
	return f, nil
}

func AppendHeader(dst []byte, h Header) []byte {
	dst = binary.BigEndian.AppendUint32(dst, h.Magic)
	dst = binary.BigEndian.AppendUint16(dst, h.Version)
	dst = binary.BigEndian.AppendUint16(dst, h.HeaderLen)
	dst = binary.BigEndian.AppendUint64(dst, h.MessageID)
	dst = binary.BigEndian.AppendUint32(dst, h.MessageType)
	dst = binary.BigEndian.AppendUint32(dst, h.Flags)
	return binary.BigEndian.AppendUint64(dst, h.PayloadLen)
}

func EncodeHeader(h Header) []byte {
	return AppendHeader(make([]byte, 0, FixedHeaderLen), h)
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(FixedHeaderLen) {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	be := binary.BigEndian
	return Header{
		Magic:       be.Uint32(b),
		Version:     be.Uint16(b[4:]),
		HeaderLen:   be.Uint16(b[6:]),
		MessageID:   be.Uint64(b[8:]),
		MessageType: be.Uint32(b[16:]),
		Flags:       be.Uint32(b[20:]),
		PayloadLen:  be.Uint64(b[24:]),
	}, nil
}
