package player

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/pkg/fingers"
	"github.com/teslashibe/go-vrrig/pkg/ik"
	"github.com/teslashibe/go-vrrig/pkg/protocol"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// TrackingSource supplies the tracked device poses of each frame.
type TrackingSource interface {
	Poll() xr.Frame
}

// FingerSource supplies finger curls per hand.
type FingerSource = fingers.Source

// Input is the controller input polled once per frame.
type Input struct {
	Move        r2.Vec  // Move stick
	Turn        float64 // Turn stick horizontal axis
	Sprint      bool    // Sprint button held
	ResetHeight bool    // Reset-height button held
}

// InputSource supplies the polled controller input.
type InputSource interface {
	Poll() Input
}

// BodyController moves and turns the avatar root by relative deltas.
type BodyController interface {
	Position() r3.Vec
	Yaw() float64
	Move(delta r3.Vec)
	Rotate(deltaYaw float64)
}

// CrouchController exposes the character's crouch input and receives
// roomscale crouch transitions.
type CrouchController interface {
	IsCrouching() bool
	Crouch(crouching bool)
}

// StatusReporter exposes character state the rig reacts to.
type StatusReporter interface {
	IsExhausted() bool
	InScriptedAnimation() bool
	SinkingValue() float64
	IsHoldingObject() bool
}

// Status is the input-driven character state the rig reads each frame,
// as a value. Crouching is the crouch button, not roomscale crouching.
type Status struct {
	Crouching bool    `json:"crouching"`
	Exhausted bool    `json:"exhausted"`
	Scripted  bool    `json:"scripted"`
	Holding   bool    `json:"holding"`
	Sinking   float64 `json:"sinking"`
}

// SprintController consumes the sprint intensity.
type SprintController interface {
	SetSprint(intensity float64)
}

// CharacterController is the server-authoritative character the rig drives.
// The rig never assigns its position or yaw; it only requests deltas.
type CharacterController interface {
	BodyController
	CrouchController
	StatusReporter
	SprintController
}

// Broadcaster ships rig snapshots to remote observers. Implementations must
// not block the frame loop.
type Broadcaster interface {
	BroadcastRig(state protocol.RigState)
}

// Broadcasters fans a snapshot out to every member in order.
type Broadcasters []Broadcaster

// BroadcastRig implements Broadcaster.
func (bs Broadcasters) BroadcastRig(state protocol.RigState) {
	for _, b := range bs {
		b.BroadcastRig(state)
	}
}

// Solver is the external IK solver.
type Solver = ik.Solver
