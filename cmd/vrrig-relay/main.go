// vrrig-relay: fans rig snapshots out from publishers to observers.
//
// Publishers connect over WebSocket at /ws/publish/:id or over a WebRTC
// data channel negotiated through POST /api/rtc/offer. Observers connect at
// /ws/observe and receive the newest snapshot of every player.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-vrrig/internal/config"
	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/pkg/debug"
	"github.com/teslashibe/go-vrrig/pkg/relay"
	"github.com/teslashibe/go-vrrig/pkg/rtc"
)

var (
	version    = "0.1.0"
	addr       = flag.String("addr", "", "Listen address (overrides VRRIG_SERVER_ADDR)")
	noRTC      = flag.Bool("no-rtc", false, "Disable WebRTC signaling")
	iceServers = flag.String("ice", "", "Comma separated STUN/TURN URLs")
	accessLog  = flag.Bool("access-log", false, "Log every HTTP request")
	debugNet   = flag.Bool("debug-net", false, "Trace every relayed envelope")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	debug.Network = *debugNet

	log.Init(cfg.Log.Level, cfg.Log.Format)
	l := log.For("relay")

	var opts []relay.Option
	var answerer *rtc.Answerer
	var r *relay.Relay
	if !*noRTC {
		rtcCfg := rtc.DefaultConfig()
		if *iceServers != "" {
			rtcCfg.ICEServers = strings.Split(*iceServers, ",")
		}
		answerer = rtc.NewAnswerer(rtcCfg, func(data []byte) error {
			return r.Ingest(data)
		}, l)
		opts = append(opts, relay.WithSignaler(answerer))
	}
	r = relay.New(l, opts...)

	app := fiber.New(fiber.Config{
		AppName:               "vrrig-relay",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if *accessLog {
		app.Use(logger.New())
	}

	r.RegisterRoutes(app)
	r.RegisterAPIRoutes(app.Group("/api"))

	app.Get("/health", func(c *fiber.Ctx) error {
		stats := r.GetStats()
		return c.JSON(fiber.Map{
			"status":     "ok",
			"version":    version,
			"publishers": stats.Publishers,
			"observers":  stats.Observers,
		})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		stats := r.GetStats()
		return c.SendString(fmt.Sprintf(`# HELP vrrig_relay_publishers Connected publisher count
# TYPE vrrig_relay_publishers gauge
vrrig_relay_publishers %d

# HELP vrrig_relay_observers Connected observer count
# TYPE vrrig_relay_observers gauge
vrrig_relay_observers %d

# HELP vrrig_relay_received Total envelopes received
# TYPE vrrig_relay_received counter
vrrig_relay_received %d

# HELP vrrig_relay_forwarded Total envelopes forwarded
# TYPE vrrig_relay_forwarded counter
vrrig_relay_forwarded %d

# HELP vrrig_relay_stale Total snapshots dropped as stale
# TYPE vrrig_relay_stale counter
vrrig_relay_stale %d
`, stats.Publishers, stats.Observers, stats.Received, stats.Forwarded, stats.Stale))
	})

	go func() {
		l.Info("relay listening",
			"addr", cfg.Server.Addr,
			"publish", "/ws/publish/:id",
			"observe", "/ws/observe",
			"rtc", answerer != nil)
		if err := app.Listen(cfg.Server.Addr); err != nil {
			l.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		l.Warn("shutdown error", "error", err)
	}
	if answerer != nil {
		if err := answerer.Close(); err != nil {
			l.Warn("close peers", "error", err)
		}
	}
}
