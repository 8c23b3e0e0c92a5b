package locomotion

import "github.com/teslashibe/go-vrrig/pkg/xr"

const (
	// CrouchRatio is the fraction of calibrated height below which the player
	// counts as physically crouching. Exactly CrouchRatio is standing.
	CrouchRatio = 0.5

	// CrouchSmoothing is the per-frame interpolation factor of the crouch offset.
	CrouchSmoothing = 0.2
)

// CrouchNotifier receives roomscale crouch transitions.
type CrouchNotifier interface {
	Crouch(crouching bool)
}

// Crouch tracks roomscale crouching and the virtual crouch offset used when
// the player crouches with a button instead.
type Crouch struct {
	roomCrouching bool
	offset        float64
}

// RoomCrouching reports whether the head is physically lowered.
func (c *Crouch) RoomCrouching() bool {
	return c.roomCrouching
}

// Offset returns the smoothed crouch offset in [-1, 0].
func (c *Crouch) Offset() float64 {
	return c.offset
}

// Update classifies headY against realHeight, notifies n on transitions, and
// eases the offset towards -1 while input crouching without physically
// crouching. It returns the new offset.
func (c *Crouch) Update(headY, realHeight float64, inputCrouch bool, n CrouchNotifier) float64 {
	room := false
	if realHeight > 0 {
		room = headY/realHeight < CrouchRatio
	}
	if room != c.roomCrouching {
		c.roomCrouching = room
		if n != nil {
			n.Crouch(room)
		}
	}

	target := 0.0
	if inputCrouch && !c.roomCrouching {
		target = -1
	}
	c.offset = xr.Lerp(c.offset, target, CrouchSmoothing)
	return c.offset
}
