package sim

import (
	"sync"

	"github.com/teslashibe/go-vrrig/pkg/ik"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// Solver is an IK solver stand-in that stores the targets it is given.
// It is safe for concurrent use.
type Solver struct {
	mu sync.Mutex

	targets    [xr.JointCount]xr.Pose
	set        [xr.JointCount]bool
	pelvis     float64
	locomotion float64
	enabled    bool
	fixes      int
}

// NewSolver returns a solver configured with the given pelvis-maintain and
// locomotion weights, as an avatar file would set them.
func NewSolver(pelvisMaintain, locomotionWeight float64) *Solver {
	return &Solver{pelvis: pelvisMaintain, locomotion: locomotionWeight}
}

func (s *Solver) SetTarget(j xr.Joint, p xr.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[j] = p
	s.set[j] = true
}

func (s *Solver) ClearTarget(j xr.Joint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[j] = false
}

func (s *Solver) PelvisMaintain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pelvis
}

func (s *Solver) SetPelvisMaintain(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pelvis = v
}

func (s *Solver) LocomotionWeight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locomotion
}

func (s *Solver) SetLocomotionWeight(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locomotion = w
}

func (s *Solver) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// ResetRoot is a no-op: the stand-in has no skeleton root.
func (s *Solver) ResetRoot() {}

func (s *Solver) FixTransforms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes++
}

// Target returns the target of j and whether it is set.
func (s *Solver) Target(j xr.Joint) (xr.Pose, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets[j], s.set[j]
}

// Enabled reports whether the solver is enabled.
func (s *Solver) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Fixes returns how many times FixTransforms was called.
func (s *Solver) Fixes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixes
}

// Skeleton returns a bone lookup that resolves every default bone path.
func Skeleton() ik.Hierarchy {
	paths := ik.DefaultPaths()
	h := make(ik.Hierarchy, len(paths))
	for i, path := range paths {
		h[path] = i
	}
	return h
}

var _ ik.Solver = (*Solver)(nil)
