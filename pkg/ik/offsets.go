package ik

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// Offsets holds the local transform from each tracked device to its IK
// target. They correct for the controller grip not lining up with the hand
// bone and are never changed at runtime.
type Offsets [xr.JointCount]xr.Pose

// IdentityOffsets returns offsets that place every target on its device.
func IdentityOffsets() Offsets {
	var o Offsets
	for i := range o {
		o[i] = xr.IdentityPose()
	}
	return o
}

// DefaultOffsets returns the hand-tuned offsets for the humanoid metarig.
// Head, feet and waist map straight onto their devices.
func DefaultOffsets() Offsets {
	o := IdentityOffsets()
	o[xr.RightHand] = xr.Pose{
		Position: r3.Vec{X: 0.0279, Y: 0.0353, Z: -0.0044},
		Rotation: xr.Euler(0, 90, 168),
	}
	o[xr.LeftHand] = xr.Pose{
		Position: r3.Vec{X: -0.0279, Y: 0.0353, Z: 0.0044},
		Rotation: xr.Euler(0, 270, 192),
	}
	return o
}

// HolderOffsets holds the local pose of the item holder under each hand bone.
type HolderOffsets [2]xr.Pose

// DefaultHolderOffsets returns the item holder poses indexed by xr.Hand.
func DefaultHolderOffsets() HolderOffsets {
	var h HolderOffsets
	h[xr.Right] = xr.Pose{
		Position: r3.Vec{X: -0.002, Y: 0.036, Z: -0.042},
		Rotation: xr.Euler(356.3837, 357.6979, 0.1453),
	}
	h[xr.Left] = xr.Pose{
		Position: r3.Vec{X: 0.018, Y: 0.045, Z: -0.042},
		Rotation: xr.Euler(360-356.3837, 357.6979, 0.1453),
	}
	return h
}

// Holder returns the world pose of an item held in hand, given the world
// pose of the hand bone.
func (h HolderOffsets) Holder(hand xr.Hand, bone xr.Pose) xr.Pose {
	return bone.Compose(h[hand])
}
