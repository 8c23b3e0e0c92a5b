package player_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/internal/config"
	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/internal/timeutil"
	"github.com/teslashibe/go-vrrig/pkg/fingers"
	"github.com/teslashibe/go-vrrig/pkg/ik"
	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/protocol"
	"github.com/teslashibe/go-vrrig/pkg/sim"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

const frameStep = 10 * time.Millisecond

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// scriptedTracking replays head positions one per Poll, 10ms apart. Frames
// listed in lost carry a zeroed, untracked head.
type scriptedTracking struct {
	heads []r3.Vec
	lost  map[int]bool
	i     int
}

func (s *scriptedTracking) Poll() xr.Frame {
	i := s.i
	if i >= len(s.heads) {
		i = len(s.heads) - 1
	}
	s.i++

	var f xr.Frame
	f.Time = t0.Add(time.Duration(s.i) * frameStep)
	f.DeltaTime = frameStep.Seconds()
	f.Poses[xr.Head] = xr.TrackedPose{Position: s.heads[i], Rotation: xr.Identity, Tracked: true}
	if s.lost[s.i-1] {
		f.Poses[xr.Head] = xr.TrackedPose{}
	}
	f.Poses[xr.RightHand] = xr.TrackedPose{Position: r3.Vec{X: 0.2, Y: 1.1, Z: 0.3}, Rotation: xr.Euler(0, 90, 0), Tracked: true}
	return f
}

type scriptedInput struct {
	inputs map[int]player.Input
	i      int
}

func (s *scriptedInput) Poll() player.Input {
	in := s.inputs[s.i]
	s.i++
	return in
}

type collector struct {
	states []protocol.RigState
}

func (c *collector) BroadcastRig(s protocol.RigState) { c.states = append(c.states, s) }

type fixedFingers struct{ curls fingers.Curls }

func (f *fixedFingers) FingerCurls(xr.Hand) (fingers.Curls, bool) { return f.curls, true }

func rig(turn string) config.Rig {
	r := config.Default().Rig
	r.TurnProvider = turn
	return r
}

func standing(n int, y float64) []r3.Vec {
	heads := make([]r3.Vec, n)
	for i := range heads {
		heads[i] = r3.Vec{Y: y}
	}
	return heads
}

type harness struct {
	p     *player.Player
	ctrl  *sim.Controller
	solv  *sim.Solver
	track *scriptedTracking
	input *scriptedInput
	out   *collector
}

func newHarness(t *testing.T, heads []r3.Vec, opts ...player.Option) *harness {
	t.Helper()
	h := &harness{
		ctrl:  sim.NewController(r3.Vec{}, 0),
		solv:  sim.NewSolver(0, 1),
		track: &scriptedTracking{heads: heads},
		input: &scriptedInput{inputs: map[int]player.Input{}},
		out:   &collector{},
	}
	opts = append([]player.Option{player.WithLogger(log.Discard())}, opts...)
	p, err := player.New(player.Deps{
		Tracking:    h.track,
		Input:       h.input,
		Controller:  h.ctrl,
		Solver:      h.solv,
		Broadcaster: h.out,
	}, opts...)
	require.NoError(t, err)
	h.p = p
	return h
}

func (h *harness) run(n int) {
	for i := 0; i < n; i++ {
		h.p.Update()
		h.p.LateUpdate()
	}
}

func TestNew_MissingCollaborator(t *testing.T) {
	deps := player.Deps{
		Tracking:   &scriptedTracking{heads: standing(1, 1.6)},
		Input:      &scriptedInput{},
		Controller: sim.NewController(r3.Vec{}, 0),
		Solver:     sim.NewSolver(0, 1),
	}

	for name, mutate := range map[string]func(d *player.Deps){
		"tracking":   func(d *player.Deps) { d.Tracking = nil },
		"input":      func(d *player.Deps) { d.Input = nil },
		"controller": func(d *player.Deps) { d.Controller = nil },
		"solver":     func(d *player.Deps) { d.Solver = nil },
	} {
		t.Run(name, func(t *testing.T) {
			d := deps
			mutate(&d)
			_, err := player.New(d, player.WithLogger(log.Discard()))
			assert.True(t, errors.Is(err, player.ErrMissingCollaborator), "got %v", err)
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	deps := player.Deps{
		Tracking:   &scriptedTracking{heads: standing(1, 1.6)},
		Input:      &scriptedInput{},
		Controller: sim.NewController(r3.Vec{}, 0),
		Solver:     sim.NewSolver(0, 1),
	}

	_, err := player.New(deps, player.WithLogger(log.Discard()), player.WithRig(rig("teleport")))
	assert.ErrorIs(t, err, config.ErrInvalidTurnProvider)

	bad := rig("snap")
	bad.ScaleFactor = 0
	_, err = player.New(deps, player.WithLogger(log.Discard()), player.WithRig(bad))
	assert.ErrorIs(t, err, config.ErrInvalidScale)
}

func TestNew_Skeleton(t *testing.T) {
	deps := player.Deps{
		Tracking:   &scriptedTracking{heads: standing(1, 1.6)},
		Input:      &scriptedInput{},
		Controller: sim.NewController(r3.Vec{}, 0),
		Solver:     sim.NewSolver(0, 1),
	}

	p, err := player.New(deps, player.WithLogger(log.Discard()), player.WithSkeleton(sim.Skeleton(), ik.DefaultPaths()))
	require.NoError(t, err)
	require.NotNil(t, p.Skeleton())

	bones := sim.Skeleton()
	delete(bones, ik.DefaultPaths()[ik.Chest])
	_, err = player.New(deps, player.WithLogger(log.Discard()), player.WithSkeleton(bones, ik.DefaultPaths()))
	assert.ErrorIs(t, err, ik.ErrBoneNotFound)
}

func TestNew_PelvisGuard(t *testing.T) {
	solver := sim.NewSolver(0.5, 1)
	_, err := player.New(player.Deps{
		Tracking:   &scriptedTracking{heads: standing(1, 1.6)},
		Input:      &scriptedInput{},
		Controller: sim.NewController(r3.Vec{}, 0),
		Solver:     solver,
	}, player.WithLogger(log.Discard()))
	require.NoError(t, err)
	assert.Equal(t, 0.0, solver.PelvisMaintain())
	assert.True(t, solver.Enabled())
	assert.Equal(t, 0.0, solver.LocomotionWeight(), "solver locomotion starts disabled")
}

func TestUpdate_StartupCalibration(t *testing.T) {
	h := newHarness(t, standing(40, 1.6))

	// Requested on the first frame at 10ms, settles at 210ms: frame 21.
	h.run(20)
	assert.Equal(t, 0.0, h.p.Calibration().FloorOffset, "settle delay not over")

	h.run(1)
	cal := h.p.Calibration()
	assert.InDelta(t, 2.4, cal.RealHeight, 1e-12)
	assert.InDelta(t, -0.1, cal.FloorOffset, 1e-12)
	assert.InDelta(t, -0.1, h.out.states[20].CameraFloorOffset, 1e-12)
}

func TestUpdate_ResetHeightEdge(t *testing.T) {
	heads := append(standing(30, 1.6), standing(40, 1.5)...)
	h := newHarness(t, heads)
	for i := 30; i < 35; i++ {
		h.input.inputs[i] = player.Input{ResetHeight: true}
	}

	h.run(50)
	assert.InDelta(t, 2.4, h.p.Calibration().RealHeight, 1e-12)

	// Pressed on frame 31 (time 310ms), fires at 510ms: frame 51.
	h.run(1)
	assert.InDelta(t, 2.25, h.p.Calibration().RealHeight, 1e-12)
}

func TestUpdate_DisplacementMatchesHeadTravel(t *testing.T) {
	heads := make([]r3.Vec, 100)
	for i := range heads {
		heads[i] = r3.Vec{X: 0.01 * float64(i), Y: 1.6, Z: -0.004 * float64(i)}
	}
	h := newHarness(t, heads, player.WithRig(rig(config.TurnNone)))

	h.run(100)
	pos := h.ctrl.Position()
	assert.InDelta(t, 1.5*0.99, pos.X, 1e-9)
	assert.InDelta(t, 1.5*-0.396, pos.Z, 1e-9)
	assert.Equal(t, 0.0, pos.Y)
}

func TestUpdate_HeadDropoutHoldsRoot(t *testing.T) {
	heads := make([]r3.Vec, 6)
	for i := range heads {
		heads[i] = r3.Vec{X: 0.3, Y: 1.6, Z: 0.2}
	}
	h := newHarness(t, heads, player.WithRig(rig(config.TurnNone)))
	h.track.lost = map[int]bool{2: true, 3: true}

	h.run(2)
	before := h.ctrl.Position()
	h.run(2)
	assert.Equal(t, before, h.ctrl.Position(), "root moved during dropout")
	h.run(2)
	assert.Equal(t, before, h.ctrl.Position(), "root moved when tracking resumed")
}

func TestUpdate_HeadDropoutDefersCalibration(t *testing.T) {
	h := newHarness(t, standing(40, 1.6))
	// The startup calibration is due on frame index 20.
	h.track.lost = map[int]bool{}
	for i := 15; i <= 25; i++ {
		h.track.lost[i] = true
	}

	h.run(26)
	assert.Equal(t, 0.0, h.p.Calibration().FloorOffset, "calibrated from an untracked head")

	h.run(1)
	cal := h.p.Calibration()
	assert.InDelta(t, 2.4, cal.RealHeight, 1e-12)
	assert.InDelta(t, -0.1, cal.FloorOffset, 1e-12)
}

func TestNew_NilLoggerFallsBack(t *testing.T) {
	p, err := player.New(player.Deps{
		Tracking:   &scriptedTracking{heads: standing(1, 1.6)},
		Input:      &scriptedInput{inputs: map[int]player.Input{}},
		Controller: sim.NewController(r3.Vec{}, 0),
		Solver:     sim.NewSolver(0, 1),
	}, player.WithLogger(nil))
	require.NoError(t, err)
	assert.NotPanics(t, func() { p.Update() })
}

func TestUpdate_ScriptedRootFrozen(t *testing.T) {
	heads := make([]r3.Vec, 60)
	for i := range heads {
		heads[i] = r3.Vec{X: 0.01 * float64(i), Y: 1.6}
	}
	h := newHarness(t, heads)

	h.run(10)
	h.ctrl.ApplyStatus(player.Status{Scripted: true})
	root, yaw := h.ctrl.Position(), h.ctrl.Yaw()

	h.run(50)
	assert.Equal(t, root, h.ctrl.Position())
	assert.Equal(t, yaw, h.ctrl.Yaw())
}

func TestUpdate_Snapshot(t *testing.T) {
	id := uuid.MustParse("0b7c6a0e-5d4f-4c3b-a291-8f7e6d5c4b3a")
	h := newHarness(t, standing(5, 1.6), player.WithPlayerID(id))

	h.run(3)
	require.Len(t, h.out.states, 3)
	for i, s := range h.out.states {
		assert.Equal(t, id, s.PlayerID)
		assert.Equal(t, uint64(i+1), s.Seq)
	}

	s := h.out.states[2]
	assert.Equal(t, protocol.Vec3{X: 0.2, Y: 1.1, Z: 0.3}, s.RightHandPosition)
	assert.InDelta(t, 90, s.RightHandEulers.Y, 1e-6)
	assert.Equal(t, 0.0, s.RotationOffset)
	assert.False(t, s.IsCrouching)

	target, ok := h.solv.Target(xr.RightHand)
	assert.True(t, ok)
	assert.NotEqual(t, r3.Vec{}, target.Position)
	_, ok = h.solv.Target(xr.LeftHand)
	assert.False(t, ok, "untracked hand has no target")

	_, ok = h.p.ItemHolder(xr.Right)
	assert.True(t, ok)
	_, ok = h.p.ItemHolder(xr.Left)
	assert.False(t, ok)
}

func TestUpdate_RoomCrouchBlocksSprint(t *testing.T) {
	heads := append(standing(25, 1.6), standing(10, 1.0)...)
	h := newHarness(t, heads)
	for i := 0; i < 35; i++ {
		h.input.inputs[i] = player.Input{Sprint: true}
	}

	h.run(25)
	assert.Equal(t, 1.0, h.ctrl.Sprint())

	// 1.0 / 2.4 is below half the calibrated height.
	h.run(1)
	assert.True(t, h.p.RoomCrouching())
	assert.Equal(t, 0.0, h.ctrl.Sprint())
	assert.True(t, h.out.states[25].IsCrouching)

	h.run(5)
	assert.Equal(t, 1, h.ctrl.CrouchEdges())
}

func TestLateUpdate_FingersHeldWhileHolding(t *testing.T) {
	src := &fixedFingers{curls: fingers.Curls{0.5, 0.5, 0.5, 0.5, 0.5}}
	h := &harness{
		ctrl:  sim.NewController(r3.Vec{}, 0),
		solv:  sim.NewSolver(0, 1),
		track: &scriptedTracking{heads: standing(5, 1.6)},
		input: &scriptedInput{inputs: map[int]player.Input{}},
	}
	p, err := player.New(player.Deps{
		Tracking:   h.track,
		Input:      h.input,
		Controller: h.ctrl,
		Solver:     h.solv,
		Fingers:    src,
	}, player.WithLogger(log.Discard()))
	require.NoError(t, err)
	h.p = p

	h.run(1)
	src.curls = fingers.Curls{1, 1, 1, 1, 1}
	h.ctrl.ApplyStatus(player.Status{Holding: true})
	h.run(1)

	assert.Equal(t, fingers.Curls{1, 1, 1, 1, 1}, p.Curls(xr.Left))
	assert.Equal(t, fingers.Curls{0.5, 0.5, 0.5, 0.5, 0.5}, p.Curls(xr.Right))
}

func TestLateUpdate_LookMagnitude(t *testing.T) {
	h := newHarness(t, standing(5, 1.6))
	h.run(2)
	assert.Equal(t, 0.0, h.p.LookMagnitude())

	h.p.SetTurning(nil)
	h.run(1)
	assert.Equal(t, 0.0, h.p.LookMagnitude())
}

func TestDisableRestoresSolver(t *testing.T) {
	h := newHarness(t, standing(2, 1.6))
	h.p.Disable()
	assert.False(t, h.solv.Enabled())
	assert.Equal(t, 1, h.solv.Fixes())

	h.p.Enable()
	assert.True(t, h.solv.Enabled())
}

func TestRunner(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	ctrl := sim.NewController(r3.Vec{}, 0)
	solver := sim.NewSolver(0, 1)
	p, err := player.New(player.Deps{
		Tracking:   sim.NewTracking(clock, sim.DefaultMotion()),
		Input:      sim.NewInput(clock, sim.Wander),
		Controller: ctrl,
		Solver:     solver,
		Fingers:    sim.NewFingers(clock, 0.5),
	}, player.WithLogger(log.Discard()))
	require.NoError(t, err)

	frames := make(chan uint64, 16)
	r := player.NewRunner(p, clock, frameStep)
	r.OnFrame = func(p *player.Player) {
		select {
		case frames <- p.Frames():
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	var got uint64
	deadline := time.After(5 * time.Second)
	for got < 3 {
		clock.Advance(frameStep)
		select {
		case got = <-frames:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("runner did not tick")
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, solver.Enabled())
	assert.GreaterOrEqual(t, p.Frames(), uint64(3))
}

func TestBroadcasters_FanOut(t *testing.T) {
	a, b := &collector{}, &collector{}
	bs := player.Broadcasters{a, b}
	bs.BroadcastRig(protocol.RigState{Seq: 7})
	bs.BroadcastRig(protocol.RigState{Seq: 8})

	require.Len(t, a.states, 2)
	require.Len(t, b.states, 2)
	assert.Equal(t, uint64(8), b.states[1].Seq)

	player.Broadcasters(nil).BroadcastRig(protocol.RigState{})
}
