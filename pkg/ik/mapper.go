// Package ik places the targets an external full-body IK solver follows.
//
// The solver itself is a black box behind the Solver interface. This
// package decides where targets go each frame, guards one known solver
// misconfiguration, and resolves the avatar skeleton once at setup.
package ik

import (
	"log/slog"

	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// Solver is the external IK solver.
type Solver interface {
	// SetTarget points the solver's target for j at p, in world space.
	SetTarget(j xr.Joint, p xr.Pose)

	// ClearTarget releases the target for j so the solver places the limb
	// procedurally.
	ClearTarget(j xr.Joint)

	PelvisMaintain() float64
	SetPelvisMaintain(v float64)

	LocomotionWeight() float64
	SetLocomotionWeight(w float64)

	SetEnabled(enabled bool)

	// ResetRoot restores the skeleton root to its bind pose.
	ResetRoot()

	// FixTransforms restores bones the solver modified.
	FixTransforms()
}

// Space maps play-space poses into world space.
type Space interface {
	Local(p xr.Pose) xr.Pose
}

// Mapper drives a Solver from tracked poses.
type Mapper struct {
	solver  Solver
	offsets Offsets
	logger  *slog.Logger

	// locomotionWeight is the solver's configured weight, captured before
	// the mapper first overrides it.
	locomotionWeight  float64
	locomotionEnabled bool

	active       bool
	pelvisWarned bool
	tracked      [xr.JointCount]bool
	targets      [xr.JointCount]xr.Pose
}

// NewMapper returns a mapper for s. The mapper starts inactive with solver
// locomotion disabled.
func NewMapper(s Solver, offsets Offsets, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = log.For("ik")
	}
	return &Mapper{
		solver:           s,
		offsets:          offsets,
		logger:           logger,
		locomotionWeight: s.LocomotionWeight(),
	}
}

// Activate enables the solver. A pelvis-maintain weight above zero causes
// pelvis rotation artifacts, so it is forced to zero with a warning.
func (m *Mapper) Activate() {
	if v := m.solver.PelvisMaintain(); v > 0 {
		if !m.pelvisWarned {
			m.logger.Warn("pelvis maintain above zero causes pelvis rotation artifacts, forcing to 0",
				"pelvis_maintain", v)
			m.pelvisWarned = true
		}
		m.solver.SetPelvisMaintain(0)
	}
	m.solver.SetEnabled(true)
	m.applyLocomotion()
	m.active = true
}

// Deactivate disables the solver and restores the skeleton.
func (m *Mapper) Deactivate() {
	if !m.active {
		return
	}
	m.solver.SetEnabled(false)
	m.solver.ResetRoot()
	m.solver.FixTransforms()
	m.active = false
}

// Active reports whether the solver is enabled.
func (m *Mapper) Active() bool {
	return m.active
}

// SetLocomotionEnabled toggles the solver's procedural stepping.
func (m *Mapper) SetLocomotionEnabled(enabled bool) {
	m.locomotionEnabled = enabled
	m.applyLocomotion()
}

func (m *Mapper) applyLocomotion() {
	if m.locomotionEnabled {
		m.solver.SetLocomotionWeight(m.locomotionWeight)
	} else {
		m.solver.SetLocomotionWeight(0)
	}
}

// Map places a target for every tracked joint and clears the others.
// It returns the number of targets set.
func (m *Mapper) Map(space Space, f xr.Frame) int {
	n := 0
	for j := xr.Joint(0); j < xr.JointCount; j++ {
		tp := f.Pose(j)
		if tp.Tracked != m.tracked[j] {
			m.logger.Debug("tracking changed", "joint", j.String(), "tracked", tp.Tracked)
			m.tracked[j] = tp.Tracked
		}
		if !tp.Tracked {
			m.solver.ClearTarget(j)
			continue
		}
		target := space.Local(tp.Pose().Compose(m.offsets[j]))
		m.targets[j] = target
		m.solver.SetTarget(j, target)
		n++
	}
	return n
}

// Target returns the last target placed for j and whether j was tracked.
func (m *Mapper) Target(j xr.Joint) (xr.Pose, bool) {
	return m.targets[j], m.tracked[j]
}
