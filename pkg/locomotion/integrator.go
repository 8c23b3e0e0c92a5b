// Package locomotion turns head motion into avatar root motion.
//
// Each frame the Integrator moves the avatar root by the horizontal head
// delta and recomputes the render origin, the node every tracked device is
// parented under. Crouch, Orientation and Calibrator cover the vertical and
// rotational parts of the same pipeline.
package locomotion

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/pkg/turning"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

const (
	// MoveThreshold is the squared distance below which the render origin
	// counts as stationary for body orientation.
	MoveThreshold = 1e-5

	// SinkingDepth scales the controller's sinking value into a vertical drop.
	SinkingDepth = 2.5
)

// Body is the avatar root. Its state belongs to the character controller;
// the integrator only reads the position and requests relative moves.
type Body interface {
	Position() r3.Vec
	Move(delta r3.Vec)
}

// RenderOrigin is the anchor all tracked-device visuals hang under.
// It is recomputed from scratch every frame.
type RenderOrigin struct {
	Position r3.Vec
	Rotation quat.Number
	Scale    float64
}

// Pose returns the origin transform without scale.
func (o RenderOrigin) Pose() xr.Pose {
	return xr.Pose{Position: o.Position, Rotation: o.Rotation}
}

// Local maps a tracked pose from play space into world space.
func (o RenderOrigin) Local(p xr.Pose) xr.Pose {
	scaled := xr.Pose{Position: r3.Scale(o.Scale, p.Position), Rotation: p.Rotation}
	return o.Pose().Compose(scaled)
}

// StepInput carries the per-frame inputs of Step besides the head position.
type StepInput struct {
	// Scripted is true while a server-driven animation anchors the avatar.
	Scripted bool

	// Turn is the turn input handed to the turning provider after movement.
	Turn turning.Input

	// DeltaTime is the frame time in seconds.
	DeltaTime float64
}

// StepResult reports what Step derived for the frame.
type StepResult struct {
	// Movement is the horizontal root delta in world units.
	Movement r3.Vec

	// HeadOffset is the horizontal head position rotated by the turning offset,
	// before scaling.
	HeadOffset r3.Vec

	// RotationOffset is the turning yaw in effect for this frame, in degrees.
	RotationOffset float64
}

// Integrator accumulates head motion into root motion.
type Integrator struct {
	turning turning.Provider
	scale   float64

	prevHead    r3.Vec
	hasPrevHead bool

	scripted      bool
	specialOffset r3.Vec

	origin     RenderOrigin
	lastOrigin r3.Vec
}

// NewIntegrator returns an integrator that scales play-space motion by scale.
func NewIntegrator(p turning.Provider, scale float64) *Integrator {
	if p == nil {
		p = turning.None{}
	}
	return &Integrator{
		turning: p,
		scale:   scale,
		origin:  RenderOrigin{Rotation: xr.Identity, Scale: scale},
	}
}

// SetTurning swaps the turning provider. The new provider starts from its
// own offset.
func (g *Integrator) SetTurning(p turning.Provider) {
	if p == nil {
		p = turning.None{}
	}
	g.turning = p
}

// Turning returns the active turning provider.
func (g *Integrator) Turning() turning.Provider {
	return g.turning
}

// Scale returns the play-space to world scale factor.
func (g *Integrator) Scale() float64 {
	return g.scale
}

// Origin returns the render origin computed by the last frame.
func (g *Integrator) Origin() RenderOrigin {
	return g.origin
}

// SpecialOffset returns the anchor captured when the last scripted segment began.
func (g *Integrator) SpecialOffset() r3.Vec {
	return g.specialOffset
}

// Step advances one frame. head is the play-space head position.
//
// The turning offset is read before and updated after the root moves, so a
// turn input affects movement from the next frame on.
func (g *Integrator) Step(head r3.Vec, body Body, in StepInput) StepResult {
	offset := g.turning.RotationOffset()
	rot := xr.Yaw(offset)

	var raw r3.Vec
	if g.hasPrevHead {
		raw = xr.Horizontal(r3.Sub(head, g.prevHead))
	}
	movement := r3.Scale(g.scale, xr.Rotate(rot, raw))
	headOffset := xr.Rotate(rot, xr.Horizontal(head))

	if in.Scripted && !g.scripted {
		g.specialOffset = r3.Scale(-g.scale, headOffset)
	}
	g.scripted = in.Scripted

	if !in.Scripted {
		body.Move(movement)
	}

	g.turning.Update(in.Turn, in.DeltaTime)

	g.lastOrigin = g.origin.Position
	root := body.Position()
	if in.Scripted {
		g.origin.Position = r3.Add(root, g.specialOffset)
	} else {
		g.origin.Position = r3.Vec{
			X: root.X - headOffset.X*g.scale,
			Y: root.Y,
			Z: root.Z - headOffset.Z*g.scale,
		}
	}
	g.origin.Rotation = rot
	g.origin.Scale = g.scale

	if !in.Scripted {
		g.prevHead = head
		g.hasPrevHead = true
	}

	return StepResult{
		Movement:       movement,
		HeadOffset:     headOffset,
		RotationOffset: offset,
	}
}

// ApplyVertical adds the floor, crouch and sinking corrections to the render
// origin and reports whether the origin moved since the previous frame.
// It must follow Step in the same frame.
func (g *Integrator) ApplyVertical(floorOffset, crouchOffset, sinking float64) (moved bool) {
	g.origin.Position.Y += floorOffset + crouchOffset - sinking*SinkingDepth
	d := r3.Sub(g.origin.Position, g.lastOrigin)
	return r3.Dot(d, d) > MoveThreshold
}
