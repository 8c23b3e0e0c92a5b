package sim

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/internal/timeutil"
	"github.com/teslashibe/go-vrrig/pkg/fingers"
	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// Motion describes the synthetic player's movement around the play space.
type Motion struct {
	EyeHeight float64       // Standing head height in meters
	Radius    float64       // Radius of the circle walked in the room
	Period    time.Duration // Time for one lap

	// CrouchCycle, when set, lowers the head to CrouchDepth of EyeHeight for
	// the second half of every cycle.
	CrouchCycle time.Duration
	CrouchDepth float64

	// FullBody adds tracked feet and waist.
	FullBody bool
}

// DefaultMotion returns a slow lap of a small room at standing height.
func DefaultMotion() Motion {
	return Motion{
		EyeHeight:   1.7,
		Radius:      0.6,
		Period:      12 * time.Second,
		CrouchDepth: 0.4,
	}
}

// Tracking generates tracked poses from a Motion. Frame time comes from the
// clock, so a mock clock yields a reproducible stream.
type Tracking struct {
	clock  timeutil.Clock
	motion Motion

	start time.Time
	last  time.Time
	first bool
}

// NewTracking returns a synthetic tracking source.
func NewTracking(clock timeutil.Clock, m Motion) *Tracking {
	now := clock.Now()
	return &Tracking{clock: clock, motion: m, start: now, last: now, first: true}
}

// Poll returns the frame for the current clock time.
func (t *Tracking) Poll() xr.Frame {
	now := t.clock.Now()
	dt := now.Sub(t.last).Seconds()
	if t.first {
		dt = 0
		t.first = false
	}
	t.last = now

	f := t.motion.At(now.Sub(t.start))
	f.Time = now
	f.DeltaTime = dt
	return f
}

// At returns the poses elapsed into the motion. Time fields are left zero.
func (m Motion) At(elapsed time.Duration) xr.Frame {
	phase := 2 * math.Pi * elapsed.Seconds() / m.Period.Seconds()

	height := m.EyeHeight + 0.02*math.Sin(4*phase)
	if m.CrouchCycle > 0 {
		cycle := math.Mod(elapsed.Seconds(), m.CrouchCycle.Seconds())
		if cycle >= m.CrouchCycle.Seconds()/2 {
			height = m.EyeHeight * m.CrouchDepth
		}
	}

	// Walk tangent to the circle and glance side to side.
	yaw := xr.Repeat(xr.Degrees(phase) + 90 + 30*math.Sin(3*phase))
	headRot := xr.Euler(5*math.Sin(2*phase), yaw, 0)
	head := r3.Vec{X: m.Radius * math.Sin(phase), Y: height, Z: m.Radius * math.Cos(phase)}
	body := xr.Pose{Position: head, Rotation: xr.Yaw(yaw)}

	swing := 0.1 * math.Sin(4*phase)

	var f xr.Frame
	f.Poses[xr.Head] = xr.TrackedPose{Position: head, Rotation: headRot, Tracked: true}
	f.Poses[xr.RightHand] = xr.TrackedPose{
		Position: body.TransformPoint(r3.Vec{X: 0.22, Y: -0.55, Z: 0.15 + swing}),
		Rotation: xr.LerpQuat(body.Rotation, xr.Euler(-20, yaw, 0), 0.5),
		Tracked:  true,
	}
	f.Poses[xr.LeftHand] = xr.TrackedPose{
		Position: body.TransformPoint(r3.Vec{X: -0.22, Y: -0.55, Z: 0.15 - swing}),
		Rotation: xr.LerpQuat(body.Rotation, xr.Euler(-20, yaw, 0), 0.5),
		Tracked:  true,
	}
	if m.FullBody {
		ground := r3.Vec{X: head.X, Z: head.Z}
		feet := xr.Pose{Position: ground, Rotation: xr.Yaw(yaw)}
		f.Poses[xr.RightFoot] = xr.TrackedPose{Position: feet.TransformPoint(r3.Vec{X: 0.12, Z: swing}), Rotation: feet.Rotation, Tracked: true}
		f.Poses[xr.LeftFoot] = xr.TrackedPose{Position: feet.TransformPoint(r3.Vec{X: -0.12, Z: -swing}), Rotation: feet.Rotation, Tracked: true}
		f.Poses[xr.Waist] = xr.TrackedPose{Position: r3.Vec{X: head.X, Y: height * 0.58, Z: head.Z}, Rotation: feet.Rotation, Tracked: true}
	}
	return f
}

// Fingers produces slowly opening and closing hands.
type Fingers struct {
	clock timeutil.Clock
	start time.Time
	rate  float64 // Grip cycles per second
}

// NewFingers returns a synthetic finger source.
func NewFingers(clock timeutil.Clock, rate float64) *Fingers {
	return &Fingers{clock: clock, start: clock.Now(), rate: rate}
}

// FingerCurls returns curls for hand, offset per finger.
func (f *Fingers) FingerCurls(hand xr.Hand) (fingers.Curls, bool) {
	s := f.clock.Now().Sub(f.start).Seconds()
	var c fingers.Curls
	for i := range c {
		phase := 2*math.Pi*f.rate*s + float64(i)*0.4 + float64(hand)*math.Pi
		c[i] = 0.5 + 0.5*math.Sin(phase)
	}
	return c, true
}

// Script maps elapsed time to controller input.
type Script func(elapsed time.Duration) player.Input

// Input plays a Script against a clock.
type Input struct {
	clock  timeutil.Clock
	start  time.Time
	script Script
}

// NewInput returns an input source driven by script.
func NewInput(clock timeutil.Clock, script Script) *Input {
	if script == nil {
		script = Idle
	}
	return &Input{clock: clock, start: clock.Now(), script: script}
}

// Poll returns the scripted input at the current clock time.
func (i *Input) Poll() player.Input {
	return i.script(i.clock.Now().Sub(i.start))
}

// Idle never presses anything.
func Idle(time.Duration) player.Input {
	return player.Input{}
}

// Wander walks forward with short stops, taps sprint, and turns right now
// and then.
func Wander(elapsed time.Duration) player.Input {
	s := elapsed.Seconds()
	cycle := math.Mod(s, 8)

	var in player.Input
	if cycle < 6 {
		in.Move = r2.Vec{Y: 1}
	}
	in.Sprint = cycle >= 1 && cycle < 1.1
	if math.Mod(s, 15) >= 14 {
		in.Turn = 0.6
	}
	return in
}

var (
	_ player.TrackingSource = (*Tracking)(nil)
	_ player.FingerSource   = (*Fingers)(nil)
	_ player.InputSource    = (*Input)(nil)
)
