package pet

import "errors"

var (
	ErrDecode             = errors.New("pet: decode failed")
	ErrUnauthorized       = errors.New("pet: unauthorized")
	ErrReservation        = errors.New("pet: reservation failed")
	ErrNotInitialized     = errors.New("pet: not initialized")
	ErrAlreadyInitialized = errors.New("pet: already initialized")
	ErrEmptyName          = errors.New("pet: empty name")
	ErrTxIDExhausted      = errors.New("pet: transaction id exhausted")
)
