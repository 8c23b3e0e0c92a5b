package web

import (
	"github.com/gofiber/fiber/v2"
)

// Command is a dashboard control queued for the frame loop
type Command string

// Controls accepted by POST /api/controls/:name
const (
	CommandResetHeight   Command = "reset_height"
	CommandEnable        Command = "enable"
	CommandDisable       Command = "disable"
	CommandLocomotionOn  Command = "locomotion_on"
	CommandLocomotionOff Command = "locomotion_off"
)

// ControlInfo describes an available control
type ControlInfo struct {
	Name        Command `json:"name"`
	Description string  `json:"description"`
}

var availableControls = []ControlInfo{
	{Name: CommandResetHeight, Description: "Recalibrate the floor offset from the current head height"},
	{Name: CommandEnable, Description: "Activate the pose mapper and IK solver"},
	{Name: CommandDisable, Description: "Deactivate the pose mapper and IK solver"},
	{Name: CommandLocomotionOn, Description: "Enable procedural leg locomotion"},
	{Name: CommandLocomotionOff, Description: "Disable procedural leg locomotion"},
}

// Controllable is the rig surface controls act on
type Controllable interface {
	ResetHeight()
	Enable()
	Disable()
	SetLocomotionEnabled(enabled bool)
}

// Apply runs the control against rig. Must be called from the frame loop.
func (c Command) Apply(rig Controllable) {
	switch c {
	case CommandResetHeight:
		rig.ResetHeight()
	case CommandEnable:
		rig.Enable()
	case CommandDisable:
		rig.Disable()
	case CommandLocomotionOn:
		rig.SetLocomotionEnabled(true)
	case CommandLocomotionOff:
		rig.SetLocomotionEnabled(false)
	}
}

func validCommand(name string) (Command, bool) {
	for _, c := range availableControls {
		if string(c.Name) == name {
			return c.Name, true
		}
	}
	return "", false
}

// handleHealth reports liveness and hub client counts
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "ok",
		"rig_clients":   s.rigHub.ClientCount(),
		"event_clients": s.eventHub.ClientCount(),
	})
}

// handleStatus returns the current rig status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleGetEvents returns recent events
func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	return c.JSON(s.Events())
}

// handleListControls returns available controls
func (s *Server) handleListControls(c *fiber.Ctx) error {
	return c.JSON(availableControls)
}

// handleControl queues a control for the frame loop
func (s *Server) handleControl(c *fiber.Ctx) error {
	name := c.Params("name")
	cmd, ok := validCommand(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown control: " + name,
		})
	}

	select {
	case s.commands <- cmd:
	default:
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "control queue full",
		})
	}

	s.AddEvent("control", "Queued: "+name)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"control": cmd,
		"queued":  true,
	})
}
