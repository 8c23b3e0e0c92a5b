package rtc

import "errors"

var (
	// ErrUnexpectedSDP is returned when a session description has the wrong
	// type for the step of the exchange.
	ErrUnexpectedSDP = errors.New("unexpected session description type")

	// ErrClosed is returned when using a closed peer.
	ErrClosed = errors.New("peer closed")
)
