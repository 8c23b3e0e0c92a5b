// vrrig: runs a simulated VR player rig and streams its snapshots.
//
// The rig is driven by synthetic tracking and scripted input. Snapshots go
// to a local dashboard websocket, and optionally to a relay over WebSocket
// and/or a WebRTC data channel. Set VRRIG_RECORDING_PATH to record every
// frame for later replay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/internal/config"
	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/internal/timeutil"
	"github.com/teslashibe/go-vrrig/pkg/debug"
	"github.com/teslashibe/go-vrrig/pkg/ik"
	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/recording"
	"github.com/teslashibe/go-vrrig/pkg/remote"
	"github.com/teslashibe/go-vrrig/pkg/rtc"
	"github.com/teslashibe/go-vrrig/pkg/sim"
	"github.com/teslashibe/go-vrrig/pkg/web"
)

var (
	version   = "0.1.0"
	name      = flag.String("name", "sim", "Player display name")
	playerID  = flag.String("id", "", "Player ID (random when empty)")
	addr      = flag.String("addr", "", "Dashboard listen address (overrides VRRIG_SERVER_ADDR)")
	relayURL  = flag.String("relay", "", "Relay base URL, e.g. ws://host:8080 (overrides VRRIG_SERVER_RELAY_URL)")
	rtcURL    = flag.String("rtc", "", "Relay offer URL, e.g. http://host:8080/api/rtc/offer (overrides VRRIG_SERVER_RTC_URL)")
	record    = flag.String("record", "", "SQLite recording path (overrides VRRIG_RECORDING_PATH)")
	turn      = flag.String("turn", "", "Turn provider: none, snap or smooth")
	fullBody  = flag.Bool("fullbody", false, "Simulate waist and foot trackers")
	crouching = flag.Duration("crouch-cycle", 0, "Roomscale crouch cycle, 0 to stand still")
	debugOn   = flag.Bool("debug", false, "Enable debug traces")
	debugRig  = flag.Bool("debug-frames", false, "Trace every frame (very verbose)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(&cfg)
	debug.Enabled = *debugOn
	debug.Frames = *debugRig
	debug.Log("rig config: %+v\n", cfg.Rig)
	if err := cfg.Rig.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Format)
	logger := log.For("vrrig")

	id := uuid.New()
	if *playerID != "" {
		if id, err = uuid.Parse(*playerID); err != nil {
			logger.Error("invalid player id", "id", *playerID, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, id); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("vrrig stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("goodbye")
}

func applyFlags(cfg *config.Config) {
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *relayURL != "" {
		cfg.Server.RelayURL = *relayURL
	}
	if *rtcURL != "" {
		cfg.Server.RTCURL = *rtcURL
	}
	if *record != "" {
		cfg.Recording.Path = *record
	}
	if *turn != "" {
		cfg.Rig.TurnProvider = *turn
	}
}

func run(ctx context.Context, cfg config.Config, id uuid.UUID) error {
	logger := log.For("vrrig").With("player_id", id.String())
	clock := timeutil.RealClock{}

	motion := sim.DefaultMotion()
	motion.FullBody = *fullBody
	motion.CrouchCycle = *crouching

	ctrl := sim.NewController(r3.Vec{}, 0)
	solver := sim.NewSolver(0, 1)

	var (
		tracking  player.TrackingSource = sim.NewTracking(clock, motion)
		input     player.InputSource    = sim.NewInput(clock, sim.Wander)
		fingerSrc player.FingerSource   = sim.NewFingers(clock, 0.5)
	)

	// Recording
	var (
		tap      *recording.Tap
		recorder *recording.Recorder
	)
	if cfg.Recording.Path != "" {
		store, err := recording.Open(cfg.Recording.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		sess, err := store.StartSession(ctx, id, cfg.Rig.FrameRate, clock.Now())
		if err != nil {
			return err
		}
		tap = recording.NewTap(tracking, input, fingerSrc, ctrl)
		tracking, input, fingerSrc = tap.Tracking(), tap.Input(), tap.Fingers()

		recorder = recording.NewRecorder(store, sess.ID, int(cfg.Rig.FrameRate), logger)
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("flush recording", "error", err)
			}
			logger.Info("recording closed",
				"session", sess.ID.String(),
				"frames", recorder.Written(),
				"dropped", recorder.Dropped())
		}()
		logger.Info("recording", "path", cfg.Recording.Path, "session", sess.ID.String())
	}

	// Broadcasters
	dashboard := web.NewServer(cfg.Server.Addr, logger)
	go func() {
		if err := dashboard.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dashboard server", "error", err)
		}
	}()
	broadcasters := player.Broadcasters{dashboard}

	if cfg.Server.RelayURL != "" {
		pub := remote.NewPublisher(cfg.Server.RelayURL, id, *name, logger)
		go func() {
			if err := pub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("relay publisher", "error", err)
			}
		}()
		broadcasters = append(broadcasters, pub)
		logger.Info("publishing to relay", "url", cfg.Server.RelayURL)
	}

	if cfg.Server.RTCURL != "" {
		pub, err := rtc.NewPublisher(rtc.DefaultConfig(), logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		go func() {
			connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()
			if err := pub.Connect(connectCtx, rtc.HTTPSignal(cfg.Server.RTCURL)); err != nil {
				logger.Error("rtc connect", "error", err)
			}
		}()
		broadcasters = append(broadcasters, pub)
		logger.Info("publishing over data channel", "url", cfg.Server.RTCURL)
	}

	p, err := player.New(player.Deps{
		Tracking:    tracking,
		Input:       input,
		Controller:  ctrl,
		Solver:      solver,
		Fingers:     fingerSrc,
		Broadcaster: broadcasters,
	},
		player.WithRig(cfg.Rig),
		player.WithPlayerID(id),
		player.WithSkeleton(sim.Skeleton(), ik.DefaultPaths()),
		player.WithLogger(log.For("player")))
	if err != nil {
		return err
	}
	p.Enable()

	dashboard.UpdateStatus(func(st *web.RigStatus) {
		st.PlayerID = id
		st.Relay = cfg.Server.RelayURL != ""
		st.Recording = recorder != nil
	})
	dashboard.AddEvent("info", fmt.Sprintf("vrrig %s started, turning %s", version, cfg.Rig.TurnProvider))

	runner := player.NewRunner(p, clock, cfg.Rig.FrameInterval())
	var lastFloor float64
	runner.OnFrame = func(p *player.Player) {
	drain:
		for {
			select {
			case cmd := <-dashboard.Commands():
				cmd.Apply(p)
				if tap != nil {
					tap.Control(string(cmd))
				}
				dashboard.AddEvent("control", "Applied: "+string(cmd))
			default:
				break drain
			}
		}
		if recorder != nil {
			recorder.Record(tap.Flush())
		}

		cal := p.Calibration()
		if cal.FloorOffset != lastFloor {
			lastFloor = cal.FloorOffset
			dashboard.AddEvent("calibration", fmt.Sprintf("floor offset %.3f", cal.FloorOffset))
		}
		dashboard.UpdateStatus(func(st *web.RigStatus) {
			st.Frames = p.Frames()
			st.Active = p.Active()
			st.Crouching = p.RoomCrouching()
			st.Sprint = p.SprintIntensity()
			st.Look = p.LookMagnitude()
			st.FloorOffset = cal.FloorOffset
			st.RealHeight = cal.RealHeight
		})
	}
	return runner.Run(ctx)
}
