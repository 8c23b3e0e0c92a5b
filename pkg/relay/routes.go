package relay

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RegisterRoutes registers WebSocket routes on a Fiber app
func (r *Relay) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/publish/:id", websocket.New(r.handlePublish))
	app.Get("/ws/observe", websocket.New(r.handleObserve))
}

// RegisterAPIRoutes registers the REST endpoints
func (r *Relay) RegisterAPIRoutes(api fiber.Router) {
	rigs := api.Group("/rigs")

	rigs.Get("/", func(c *fiber.Ctx) error {
		infos := r.GetRigInfos()
		return c.JSON(fiber.Map{
			"rigs":  infos,
			"count": len(infos),
		})
	})

	rigs.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(r.GetStats())
	})

	rigs.Get("/:id", func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid player id"})
		}
		state, ok := r.Latest(id)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no snapshot"})
		}
		return c.JSON(state)
	})

	api.Post("/rtc/offer", func(c *fiber.Ctx) error {
		if r.signaler == nil {
			return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "webrtc disabled"})
		}
		answer, err := r.signaler.Answer(c.UserContext(), c.Body())
		if err != nil {
			r.logger.Warn("rtc offer failed", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(answer)
	})
}
