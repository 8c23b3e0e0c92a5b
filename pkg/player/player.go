// Package player runs the per-frame rig pipeline of the local player.
//
// A Player is an explicit handle built once by New with every collaborator
// injected. Update runs the frame pass in a fixed order: turning and
// locomotion, crouch, body orientation, sprint, IK targets and finally the
// replication snapshot. LateUpdate runs after the renderer has posed the
// camera and refreshes the look metric and finger curls.
package player

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/pkg/debug"
	"github.com/teslashibe/go-vrrig/pkg/fingers"
	"github.com/teslashibe/go-vrrig/pkg/ik"
	"github.com/teslashibe/go-vrrig/pkg/locomotion"
	"github.com/teslashibe/go-vrrig/pkg/protocol"
	"github.com/teslashibe/go-vrrig/pkg/sprint"
	"github.com/teslashibe/go-vrrig/pkg/turning"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// Deps are the external collaborators of a Player.
type Deps struct {
	Tracking   TrackingSource
	Input      InputSource
	Controller CharacterController
	Solver     Solver

	// Optional
	Fingers     FingerSource
	Broadcaster Broadcaster
}

func (d Deps) validate() error {
	switch {
	case d.Tracking == nil:
		return fmt.Errorf("%w: tracking source", ErrMissingCollaborator)
	case d.Input == nil:
		return fmt.Errorf("%w: input source", ErrMissingCollaborator)
	case d.Controller == nil:
		return fmt.Errorf("%w: character controller", ErrMissingCollaborator)
	case d.Solver == nil:
		return fmt.Errorf("%w: ik solver", ErrMissingCollaborator)
	}
	return nil
}

// Player is the local player's rig.
type Player struct {
	id     uuid.UUID
	logger *slog.Logger

	tracking    TrackingSource
	input       InputSource
	ctrl        CharacterController
	fingerSrc   FingerSource
	broadcaster Broadcaster

	loco        *locomotion.Integrator
	calibrator  *locomotion.Calibrator
	crouch      locomotion.Crouch
	orientation locomotion.Orientation
	sprint      *sprint.Machine
	mapper      *ik.Mapper
	skeleton    *ik.Skeleton
	holders     ik.HolderOffsets
	curlers     [2]*fingers.Curler

	started      bool
	resetPressed bool
	seq          uint64
	frames       uint64

	frame         xr.Frame
	lastHead      xr.TrackedPose // Last tracked head pose
	headWorld     xr.Pose
	lastEulers    r3.Vec
	lookMagnitude float64
}

// New builds a Player. It fails if a required collaborator is missing, the
// rig settings are invalid, or the skeleton cannot be resolved.
func New(deps Deps, opts ...Option) (*Player, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Rig.Validate(); err != nil {
		return nil, fmt.Errorf("rig config: %w", err)
	}

	provider, err := newTurning(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = log.For("player")
	}

	p := &Player{
		id:          cfg.PlayerID,
		logger:      cfg.Logger.With("player_id", cfg.PlayerID.String()),
		tracking:    deps.Tracking,
		input:       deps.Input,
		ctrl:        deps.Controller,
		fingerSrc:   deps.Fingers,
		broadcaster: deps.Broadcaster,
		loco:        locomotion.NewIntegrator(provider, cfg.Rig.ScaleFactor),
		orientation: cfg.Orientation,
		holders:     cfg.Holders,
		lastHead:    xr.TrackedPose{Rotation: xr.Identity},
		sprint: sprint.New(sprint.Config{
			Toggle:             cfg.Rig.ToggleSprint,
			StopCooldown:       cfg.Rig.SprintStopCooldown,
			CrouchBlocksSprint: cfg.Rig.CrouchBlocksSprint,
		}),
		curlers: [2]*fingers.Curler{
			xr.Left:  fingers.NewCurler(xr.Left),
			xr.Right: fingers.NewCurler(xr.Right),
		},
	}
	p.calibrator = locomotion.NewCalibrator(
		locomotion.DefaultCalibration(cfg.Rig.ScaleFactor, cfg.Rig.TargetHeight),
		p.logger.With("component", "calibration"))
	p.mapper = ik.NewMapper(deps.Solver, cfg.Offsets, p.logger.With("component", "ik"))

	if cfg.Bones != nil {
		sk, err := ik.ResolveSkeleton(cfg.Bones, cfg.BonePaths)
		if err != nil {
			return nil, fmt.Errorf("resolve skeleton: %w", err)
		}
		p.skeleton = sk
	}

	p.mapper.Activate()
	p.logger.Info("rig initialized",
		"turn_provider", cfg.Rig.TurnProvider,
		"scale", cfg.Rig.ScaleFactor,
		"toggle_sprint", cfg.Rig.ToggleSprint)
	return p, nil
}

func newTurning(cfg *Config) (turning.Provider, error) {
	kind, err := turning.ParseKind(cfg.Rig.TurnProvider)
	if err != nil {
		return nil, err
	}
	tc := turning.DefaultConfig()
	tc.SnapStep = cfg.Rig.SnapTurnStep
	tc.SmoothSpeed = cfg.Rig.SmoothTurnSpeed
	return turning.New(kind, tc)
}

// ID returns the player identity stamped on snapshots.
func (p *Player) ID() uuid.UUID { return p.id }

// SetTurning swaps the turning provider; the turning offset restarts at 0.
func (p *Player) SetTurning(tp turning.Provider) { p.loco.SetTurning(tp) }

// ResetHeight schedules a height calibration relative to the last frame.
func (p *Player) ResetHeight() { p.calibrator.Request(p.frame.Time) }

// Enable activates the IK solver.
func (p *Player) Enable() { p.mapper.Activate() }

// Disable deactivates the IK solver and restores the skeleton.
func (p *Player) Disable() { p.mapper.Deactivate() }

// Active reports whether the pose mapper is driving the solver.
func (p *Player) Active() bool { return p.mapper.Active() }

// SetLocomotionEnabled toggles the solver's procedural stepping.
func (p *Player) SetLocomotionEnabled(enabled bool) { p.mapper.SetLocomotionEnabled(enabled) }

// Update runs the frame pass and returns the snapshot it broadcast.
func (p *Player) Update() protocol.RigState {
	f := p.tracking.Poll()
	in := p.input.Poll()
	now, dt := f.Time, f.DeltaTime
	head := f.Pose(xr.Head)
	tracked := head.Tracked
	if tracked {
		p.lastHead = head
	} else {
		// Hold the last tracked pose so a dropout neither moves the root
		// nor reaches calibration.
		head = p.lastHead
	}

	if !p.started {
		p.calibrator.Request(now)
		p.started = true
	}
	if in.ResetHeight && !p.resetPressed {
		p.calibrator.Request(now)
	}
	p.resetPressed = in.ResetHeight
	if tracked {
		p.calibrator.Poll(now, head.Position.Y)
	}
	cal := p.calibrator.Calibration()

	scripted := p.ctrl.InScriptedAnimation()
	step := p.loco.Step(head.Position, p.ctrl, locomotion.StepInput{
		Scripted:  scripted,
		Turn:      turning.Input{Axis: in.Turn},
		DeltaTime: dt,
	})

	crouchOffset := p.crouch.Update(head.Position.Y, cal.RealHeight, p.ctrl.IsCrouching(), p.ctrl)
	moved := p.loco.ApplyVertical(cal.FloorOffset, crouchOffset, p.ctrl.SinkingValue())
	origin := p.loco.Origin()

	p.headWorld = origin.Local(head.Pose())
	headYaw := xr.YawOf(p.headWorld.Rotation)
	if d := p.orientation.Update(p.ctrl.Yaw(), headYaw, moved, scripted, dt); d != 0 {
		p.ctrl.Rotate(d)
	}

	p.ctrl.SetSprint(p.sprint.Update(now, sprint.State{
		Pressed:       in.Sprint,
		Move:          in.Move,
		Exhausted:     p.ctrl.IsExhausted(),
		RoomCrouching: p.crouch.RoomCrouching(),
	}))

	p.mapper.Map(origin, f)

	p.frame = f
	p.frames++
	snap := p.buildSnapshot(f, step, cal)

	debug.FrameLog("frame %d root=%v origin=%v turn=%.1f moved=%v\n",
		p.frames, p.ctrl.Position(), origin.Position, step.RotationOffset, moved)

	if p.broadcaster != nil {
		p.broadcaster.BroadcastRig(snap)
	}
	return snap
}

// LateUpdate runs after the renderer updated the camera for the frame.
func (p *Player) LateUpdate() {
	eulers := xr.EulerAngles(p.headWorld.Rotation)
	p.lookMagnitude = r3.Norm(r3.Sub(eulers, p.lastEulers)) * p.frame.DeltaTime
	p.lastEulers = eulers

	p.curlers[xr.Left].Update(p.fingerSrc, false)
	p.curlers[xr.Right].Update(p.fingerSrc, p.ctrl.IsHoldingObject())
}

// LookMagnitude returns how far the view turned in the last late pass,
// scaled by frame time.
func (p *Player) LookMagnitude() float64 { return p.lookMagnitude }

// Origin returns the render origin of the last frame.
func (p *Player) Origin() locomotion.RenderOrigin { return p.loco.Origin() }

// Calibration returns the current height calibration.
func (p *Player) Calibration() locomotion.Calibration { return p.calibrator.Calibration() }

// RoomCrouching reports whether the player is physically crouched.
func (p *Player) RoomCrouching() bool { return p.crouch.RoomCrouching() }

// SprintIntensity returns the sprint intensity of the last frame.
func (p *Player) SprintIntensity() float64 { return p.sprint.Intensity() }

// HeadWorld returns the world pose of the camera in the last frame.
func (p *Player) HeadWorld() xr.Pose { return p.headWorld }

// Skeleton returns the resolved skeleton, or nil if none was configured.
func (p *Player) Skeleton() *ik.Skeleton { return p.skeleton }

// Curls returns the latest finger curls of hand.
func (p *Player) Curls(hand xr.Hand) fingers.Curls { return p.curlers[hand].Curls() }

// ItemHolder returns the world pose an item held in hand attaches to.
// ok is false while the hand is not tracked.
func (p *Player) ItemHolder(hand xr.Hand) (xr.Pose, bool) {
	target, ok := p.mapper.Target(hand.Joint())
	if !ok {
		return xr.Pose{}, false
	}
	return p.holders.Holder(hand, target), true
}

// Frames returns the number of frames run.
func (p *Player) Frames() uint64 { return p.frames }
