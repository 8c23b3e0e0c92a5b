// Package web provides a real-time dashboard for the local rig
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/teslashibe/go-vrrig/pkg/hub"
	"github.com/teslashibe/go-vrrig/pkg/protocol"
)

const (
	maxEvents     = 500
	commandBuffer = 8
)

// RigStatus is the dashboard view of the local rig
type RigStatus struct {
	PlayerID    uuid.UUID `json:"player_id"`
	Frames      uint64    `json:"frames"`
	Seq         uint64    `json:"seq"` // Last broadcast snapshot
	Active      bool      `json:"active"`
	Crouching   bool      `json:"crouching"`
	Sprint      float64   `json:"sprint"`
	Look        float64   `json:"look"`
	Turn        float64   `json:"turn"`         // Turning yaw, degrees
	FloorOffset float64   `json:"floor_offset"` // Calibrated floor offset
	RealHeight  float64   `json:"real_height"`
	Relay       bool      `json:"relay"`
	Recording   bool      `json:"recording"`
}

// Event is a timestamped dashboard log line
type Event struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, control, calibration, error
	Message string `json:"message"`
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	// State
	status   RigStatus
	statusMu sync.RWMutex

	// Event buffer (last maxEvents entries)
	events   []Event
	eventsMu sync.RWMutex

	rigHub   *hub.Hub
	eventHub *hub.Hub

	commands chan Command
}

// NewServer creates a new web dashboard server
func NewServer(addr string, logger *slog.Logger) *Server {
	logger = logger.With("component", "web")
	s := &Server{
		addr:     addr,
		logger:   logger,
		events:   make([]Event, 0, maxEvents),
		rigHub:   hub.New("rig", logger),
		eventHub: hub.New("events", logger),
		commands: make(chan Command, commandBuffer),
	}

	app := fiber.New(fiber.Config{
		AppName:               "vrrig dashboard",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleGetEvents)
	api.Get("/controls", s.handleListControls)
	api.Post("/controls/:name", s.handleControl)

	s.rigHub.RegisterRoutes(app, "/ws/rig")
	s.eventHub.RegisterRoutes(app, "/ws/events")

	s.app = app
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App { return s.app }

// Run starts the hubs and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	go s.rigHub.Run(ctx)
	go s.eventHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		s.logger.Warn("shutdown error", "error", err)
	}
	return ctx.Err()
}

// BroadcastRig forwards a snapshot to rig websocket clients. It never
// blocks.
func (s *Server) BroadcastRig(state protocol.RigState) {
	s.statusMu.Lock()
	s.status.Seq = state.Seq
	s.status.Turn = state.RotationOffset
	s.statusMu.Unlock()
	s.rigHub.BroadcastRig(state)
}

// UpdateStatus updates the rig status shown on the dashboard
func (s *Server) UpdateStatus(update func(*RigStatus)) {
	s.statusMu.Lock()
	update(&s.status)
	s.statusMu.Unlock()
}

// Status returns a copy of the current rig status
func (s *Server) Status() RigStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// AddEvent adds an event and broadcasts it to event clients
func (s *Server) AddEvent(eventType, message string) {
	entry := Event{
		Time:    time.Now().Format("15:04:05"),
		Type:    eventType,
		Message: message,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, entry)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	s.eventHub.Broadcast(hub.Message{Data: data})
}

// Events returns a copy of the buffered events
func (s *Server) Events() []Event {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return append([]Event(nil), s.events...)
}

// Commands returns the queue of dashboard controls. The frame loop drains
// it between frames.
func (s *Server) Commands() <-chan Command { return s.commands }
