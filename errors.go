package envsenso

import "errors"

// Error kinds surfaced by an acquisition. Wrapped errors keep the underlying
// cause, classify them with errors.Is.
var (
	ErrIOUnavailable  = errors.New("ready line unavailable")
	ErrBusUnavailable = errors.New("bus unavailable")
	ErrBusWrite       = errors.New("bus write failed")
	ErrBusRead        = errors.New("bus read failed")
	ErrTimeout        = errors.New("ready signal not observed in time")
)
