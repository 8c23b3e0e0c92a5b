// Package sim provides in-memory stand-ins for the rig's external
// collaborators: a character controller, an IK solver, and synthetic
// tracking, finger and input sources. The demo binary, the replay tool and
// tests run the rig against them.
package sim

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// Controller is a character controller that applies every requested delta.
// It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	pos r3.Vec
	yaw float64

	status        player.Status
	roomCrouching bool
	crouchEdges   int
	sprint        float64
}

// NewController returns a controller standing at pos facing yaw degrees.
func NewController(pos r3.Vec, yaw float64) *Controller {
	return &Controller{pos: pos, yaw: xr.Repeat(yaw)}
}

func (c *Controller) Position() r3.Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *Controller) Yaw() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.yaw
}

// Move shifts the controller horizontally. Vertical components are ignored.
func (c *Controller) Move(delta r3.Vec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = r3.Add(c.pos, xr.Horizontal(delta))
}

func (c *Controller) Rotate(deltaYaw float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yaw = xr.Repeat(c.yaw + deltaYaw)
}

func (c *Controller) IsCrouching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Crouching || c.roomCrouching
}

// Crouch records a roomscale crouch transition.
func (c *Controller) Crouch(crouching bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCrouching = crouching
	c.crouchEdges++
}

func (c *Controller) IsExhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Exhausted
}

func (c *Controller) InScriptedAnimation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Scripted
}

func (c *Controller) SinkingValue() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Sinking
}

func (c *Controller) IsHoldingObject() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Holding
}

func (c *Controller) SetSprint(intensity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sprint = intensity
}

// ApplyStatus replaces the input-driven character state.
func (c *Controller) ApplyStatus(s player.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// Status returns the input-driven character state.
func (c *Controller) Status() player.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Sprint returns the last sprint intensity set by the rig.
func (c *Controller) Sprint() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sprint
}

// CrouchEdges returns how many crouch transitions the rig reported.
func (c *Controller) CrouchEdges() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crouchEdges
}

var _ player.CharacterController = (*Controller)(nil)
