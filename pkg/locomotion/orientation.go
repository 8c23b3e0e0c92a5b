package locomotion

import (
	"math"

	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// Orientation turns the avatar body towards the head.
//
// While the player walks the body follows quickly. While idle the body stays
// put until the head is twisted past TwistThreshold, then catches up at a
// rate that grows linearly up to SharpWeight at TwistLimit.
type Orientation struct {
	SharpWeight    float64 // Interpolation weight per second while moving
	TwistThreshold float64 // Degrees of idle head twist tolerated without turning
	TwistLimit     float64 // Degrees at which the idle weight reaches SharpWeight
}

// DefaultOrientation returns the tuned turning weights.
func DefaultOrientation() Orientation {
	return Orientation{
		SharpWeight:    15,
		TwistThreshold: 120,
		TwistLimit:     170,
	}
}

// TurnWeight returns the idle catch-up weight for a body to head angle.
func (o Orientation) TurnWeight(angle float64) float64 {
	if angle <= o.TwistThreshold {
		return 0
	}
	return o.SharpWeight * xr.InverseLerp(o.TwistThreshold, o.TwistLimit, angle)
}

// Update returns the yaw delta in degrees to apply to the body this frame.
// Nothing turns while scripted.
func (o Orientation) Update(bodyYaw, headYaw float64, originMoved, scripted bool, dt float64) float64 {
	if scripted {
		return 0
	}

	diff := xr.DeltaAngle(bodyYaw, headYaw)
	var weight float64
	if originMoved {
		weight = o.SharpWeight
	} else {
		weight = o.TurnWeight(math.Abs(diff))
	}
	if weight == 0 {
		return 0
	}
	return diff * xr.Clamp01(weight*dt)
}
