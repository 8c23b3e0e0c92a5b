package player

import (
	"github.com/teslashibe/go-vrrig/pkg/locomotion"
	"github.com/teslashibe/go-vrrig/pkg/protocol"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// buildSnapshot assembles the outgoing rig state of the frame. Hand poses
// are sent relative to the render origin so observers can rebuild the rig
// under their copy of the avatar.
func (p *Player) buildSnapshot(f xr.Frame, step locomotion.StepResult, cal locomotion.Calibration) protocol.RigState {
	p.seq++

	left := f.Pose(xr.LeftHand)
	right := f.Pose(xr.RightHand)

	return protocol.RigState{
		PlayerID: p.id,
		Seq:      p.seq,

		LeftHandPosition: protocol.VecFrom(left.Position),
		LeftHandEulers:   protocol.VecFrom(xr.EulerAngles(left.Rotation)),
		LeftHandFingers:  protocol.Curls(p.curlers[xr.Left].Curls()),

		RightHandPosition: protocol.VecFrom(right.Position),
		RightHandEulers:   protocol.VecFrom(xr.EulerAngles(right.Rotation)),
		RightHandFingers:  protocol.Curls(p.curlers[xr.Right].Curls()),

		CameraEulers:       protocol.VecFrom(xr.EulerAngles(p.headWorld.Rotation)),
		CameraPosAccounted: protocol.VecFrom(step.HeadOffset),

		IsCrouching:       p.ctrl.IsCrouching(),
		RotationOffset:    step.RotationOffset,
		CameraFloorOffset: cal.FloorOffset,
	}
}
