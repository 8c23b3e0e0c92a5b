package relay

import "errors"

var (
	// ErrWrongPlayer is returned when a publisher sends a message for a
	// player other than the one it connected as.
	ErrWrongPlayer = errors.New("message for another player")

	// ErrUnsupportedType is returned for envelopes publishers may not send.
	ErrUnsupportedType = errors.New("unsupported message type")
)
