package recording

import "errors"

var (
	// ErrNoSession is returned when no recorded session matches.
	ErrNoSession = errors.New("no recorded session")

	// ErrDuplicateFrame is returned when a frame sequence is written twice
	// to the same session.
	ErrDuplicateFrame = errors.New("duplicate frame")

	// ErrPathRequired is returned by Open for an empty database path.
	ErrPathRequired = errors.New("recording path is required")
)
