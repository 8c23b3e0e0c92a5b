package protocol

import "errors"

var (
	// ErrMissingType is returned for an envelope without a type.
	ErrMissingType = errors.New("message has no type")

	// ErrUnexpectedType is returned when a typed getter is called on a
	// message of another type.
	ErrUnexpectedType = errors.New("unexpected message type")
)
