// Package turning converts turn input into a yaw offset applied to tracked
// devices, decoupling the player's view direction from their room orientation.
//
// Callers must read RotationOffset before calling Update in the same frame so
// the movement of frame k is rotated by the offset in effect at its start.
package turning

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// Provider produces the turning yaw offset in degrees.
type Provider interface {
	// RotationOffset returns the current offset in [0, 360).
	RotationOffset() float64

	// Update consumes this frame's input. dt is in seconds.
	Update(in Input, dt float64)
}

// Input is the turn axis polled for one frame, in [-1, 1].
// Positive values turn right.
type Input struct {
	Axis float64
}

// Kind selects a Provider implementation.
type Kind int

const (
	KindNone Kind = iota
	KindSnap
	KindSmooth
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSnap:
		return "snap"
	case KindSmooth:
		return "smooth"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a configuration name. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return KindNone, nil
	case "snap":
		return KindSnap, nil
	case "smooth", "continuous":
		return KindSmooth, nil
	}
	return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Config holds the tunables of every provider kind.
type Config struct {
	// Snap
	SnapThreshold float64 // Axis magnitude that triggers a snap
	SnapStep      float64 // Degrees per snap

	// Smooth
	SmoothSpeed    float64 // Degrees per second at full deflection
	SmoothDeadZone float64 // Axis magnitude ignored around center
}

// DefaultConfig returns comfortable defaults for both turning styles.
func DefaultConfig() Config {
	return Config{
		SnapThreshold:  0.75,
		SnapStep:       45,
		SmoothSpeed:    180,
		SmoothDeadZone: 0.1,
	}
}

// New returns a provider of the given kind.
func New(kind Kind, cfg Config) (Provider, error) {
	switch kind {
	case KindNone:
		return None{}, nil
	case KindSnap:
		return NewSnap(cfg.SnapThreshold, cfg.SnapStep), nil
	case KindSmooth:
		return NewSmooth(cfg.SmoothSpeed, cfg.SmoothDeadZone), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

// None never turns.
type None struct{}

// RotationOffset always returns 0.
func (None) RotationOffset() float64 { return 0 }

// Update does nothing.
func (None) Update(Input, float64) {}

// Snap jumps the offset by a fixed step when the axis is pushed past a
// threshold. One push yields one snap: the axis must return below the
// threshold before the next snap can fire.
type Snap struct {
	threshold float64
	step      float64
	offset    float64
	armed     bool
}

// NewSnap returns a snap provider.
func NewSnap(threshold, step float64) *Snap {
	return &Snap{threshold: threshold, step: step, armed: true}
}

// RotationOffset returns the accumulated offset.
func (s *Snap) RotationOffset() float64 { return s.offset }

// Update applies at most one snap per push.
func (s *Snap) Update(in Input, _ float64) {
	switch {
	case in.Axis >= s.threshold && s.armed:
		s.offset = xr.Repeat(s.offset + s.step)
		s.armed = false
	case in.Axis <= -s.threshold && s.armed:
		s.offset = xr.Repeat(s.offset - s.step)
		s.armed = false
	case in.Axis > -s.threshold && in.Axis < s.threshold:
		s.armed = true
	}
}

// Smooth turns continuously at a rate proportional to the axis.
type Smooth struct {
	speed    float64
	deadZone float64
	offset   float64
}

// NewSmooth returns a smooth provider.
func NewSmooth(speed, deadZone float64) *Smooth {
	return &Smooth{speed: speed, deadZone: deadZone}
}

// RotationOffset returns the accumulated offset.
func (s *Smooth) RotationOffset() float64 { return s.offset }

// Update integrates the axis over dt seconds.
func (s *Smooth) Update(in Input, dt float64) {
	if in.Axis > -s.deadZone && in.Axis < s.deadZone {
		return
	}
	s.offset = xr.Repeat(s.offset + in.Axis*s.speed*dt)
}
