package host

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProgram  = errors.New("host: unknown program")
	ErrProgramExists   = errors.New("host: program already registered")
	ErrNilProgram      = errors.New("host: program is nil")
	ErrOutOfGas        = errors.New("host: out of gas")
	ErrDeliveryLimit   = errors.New("host: delivery limit reached")
	ErrInvalidGas      = errors.New("host: invalid gas reservation")
	ErrUnknownHandle   = errors.New("host: unknown reservation")
	ErrHandleExpired   = errors.New("host: reservation expired")
	ErrHandleNotOwned  = errors.New("host: reservation owned by another program")
	ErrHandlerRejected = errors.New("host: handler failed")

	// ErrNoReply is the family of request/reply failures seen by a caller.
	ErrNoReply       = errors.New("host: no reply")
	ErrReplyTimeout  = fmt.Errorf("%w: reply window elapsed", ErrNoReply)
	ErrReentrantCall = fmt.Errorf("%w: destination is already handling a message", ErrNoReply)
	ErrEmptyReply    = fmt.Errorf("%w: destination replied nothing", ErrNoReply)
)
