// Package sprint derives the avatar's sprint intensity from polled input.
package sprint

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/teslashibe/go-vrrig/pkg/timer"
)

// Config selects the sprint input mode.
type Config struct {
	// Toggle flips sprinting on each press instead of sprinting while held.
	Toggle bool

	// StopCooldown is how long the move stick must rest before a toggled
	// sprint ends on its own.
	StopCooldown time.Duration

	// CrouchBlocksSprint forces intensity to 0 while roomscale crouching.
	CrouchBlocksSprint bool
}

// DefaultConfig returns hold-to-sprint with a one second toggle cooldown.
func DefaultConfig() Config {
	return Config{
		StopCooldown:       time.Second,
		CrouchBlocksSprint: true,
	}
}

// State is the input and character state sampled for one frame.
type State struct {
	Pressed       bool   // Sprint button held this frame
	Move          r2.Vec // Move stick
	Exhausted     bool   // Character is out of stamina
	RoomCrouching bool   // Player is physically crouched
}

// Machine is the sprint state machine. Input is polled every frame and
// presses are detected by comparing against the previous frame.
type Machine struct {
	cfg Config

	sprinting  bool
	wasPressed bool
	blocked    bool
	stop       timer.Deadline
}

// New returns a machine in the not-sprinting state.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Update advances the machine to now and returns the sprint intensity.
func (m *Machine) Update(now time.Time, s State) float64 {
	pressed := s.Pressed && !m.wasPressed
	m.wasPressed = s.Pressed
	m.blocked = m.cfg.CrouchBlocksSprint && s.RoomCrouching

	if !m.cfg.Toggle {
		m.sprinting = s.Pressed
		m.stop.Cancel()
		return m.Intensity()
	}

	if m.stop.Fire(now) {
		m.sprinting = false
	}

	if pressed {
		m.sprinting = !m.sprinting
		if !m.sprinting {
			m.stop.Cancel()
		}
	}

	if s.Exhausted {
		m.sprinting = false
		m.stop.Cancel()
	}

	idle := s.Move.X == 0 && s.Move.Y == 0
	switch {
	case idle && m.sprinting && !m.stop.Pending():
		m.stop.Start(now, m.cfg.StopCooldown)
	case !idle && m.stop.Pending():
		m.stop.Cancel()
	}

	return m.Intensity()
}

// Sprinting reports the raw sprint state before crouch gating.
func (m *Machine) Sprinting() bool {
	return m.sprinting
}

// StopPending reports whether a toggled sprint is counting down to stop.
func (m *Machine) StopPending() bool {
	return m.stop.Pending()
}

// Intensity returns 1 while sprinting and not blocked by crouching, else 0.
func (m *Machine) Intensity() float64 {
	if m.sprinting && !m.blocked {
		return 1
	}
	return 0
}
