package xr

import (
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a rigid transform: a position and a rotation.
type Pose struct {
	Position r3.Vec
	Rotation quat.Number
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Rotation: Identity}
}

// TransformPoint maps a point from p's local space into p's parent space.
func (p Pose) TransformPoint(local r3.Vec) r3.Vec {
	return r3.Add(p.Position, Rotate(p.Rotation, local))
}

// Compose returns the pose of a child with local transform local under p.
func (p Pose) Compose(local Pose) Pose {
	return Pose{
		Position: p.TransformPoint(local.Position),
		Rotation: Normalize(quat.Mul(p.Rotation, local.Rotation)),
	}
}

// Joint identifies a tracked device.
type Joint int

const (
	Head Joint = iota
	RightHand
	LeftHand
	RightFoot
	LeftFoot
	Waist

	// JointCount is the number of tracked joints.
	JointCount
)

// String returns the joint name used in logs and recordings.
func (j Joint) String() string {
	switch j {
	case Head:
		return "head"
	case RightHand:
		return "right_hand"
	case LeftHand:
		return "left_hand"
	case RightFoot:
		return "right_foot"
	case LeftFoot:
		return "left_foot"
	case Waist:
		return "waist"
	default:
		return "unknown"
	}
}

// Hand identifies one of the two controllers.
type Hand int

const (
	Left Hand = iota
	Right
)

// Joint returns the tracked joint of the hand's controller.
func (h Hand) Joint() Joint {
	if h == Left {
		return LeftHand
	}
	return RightHand
}

// String returns "left" or "right".
func (h Hand) String() string {
	if h == Left {
		return "left"
	}
	return "right"
}

// TrackedPose is one device pose reported by the tracking runtime.
// Position and Rotation are relative to the play-space origin.
type TrackedPose struct {
	Position r3.Vec
	Rotation quat.Number
	Tracked  bool
}

// Pose returns the transform part of the tracked pose.
func (t TrackedPose) Pose() Pose {
	return Pose{Position: t.Position, Rotation: t.Rotation}
}

// Frame is the tracking snapshot for one rendered frame.
type Frame struct {
	// Time is the frame timestamp used for deadlines.
	Time time.Time

	// DeltaTime is the time since the previous frame in seconds.
	DeltaTime float64

	Poses [JointCount]TrackedPose
}

// Pose returns the tracked pose of j.
func (f Frame) Pose(j Joint) TrackedPose {
	return f.Poses[j]
}
