// vrrig-replay: replays a recorded session through a fresh rig.
//
// Lists sessions with -list. Otherwise replays the given session (or the
// latest) with the rig settings from the environment and prints a summary.
// With -relay the replayed snapshots are published at the recorded frame
// rate.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/internal/config"
	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/pkg/ik"
	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/recording"
	"github.com/teslashibe/go-vrrig/pkg/remote"
	"github.com/teslashibe/go-vrrig/pkg/sim"
	"github.com/teslashibe/go-vrrig/pkg/web"
)

var (
	path      = flag.String("db", "", "SQLite recording path (overrides VRRIG_RECORDING_PATH)")
	sessionID = flag.String("session", "", "Session ID (latest when empty)")
	list      = flag.Bool("list", false, "List recorded sessions and exit")
	relayURL  = flag.String("relay", "", "Publish replayed snapshots to this relay")
	dump      = flag.Bool("dump", false, "Print every replayed snapshot as a JSON line")
)

// Summary describes a finished replay.
type Summary struct {
	Session     string    `json:"session"`
	Player      string    `json:"player"`
	Frames      int       `json:"frames"`
	Position    r3.Vec    `json:"position"`
	Yaw         float64   `json:"yaw"`
	FloorOffset float64   `json:"floor_offset"`
	RealHeight  float64   `json:"real_height"`
	Crouches    int       `json:"crouches"`
	Duration    float64   `json:"duration_s"`
	StartedAt   time.Time `json:"started_at"`
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *path != "" {
		cfg.Recording.Path = *path
	}
	log.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	store, err := recording.Open(cfg.Recording.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if *list {
		return listSessions(ctx, store)
	}

	sess, err := findSession(ctx, store)
	if err != nil {
		return err
	}
	records, err := store.Frames(ctx, sess.ID)
	if err != nil {
		return err
	}

	ctrl := sim.NewController(r3.Vec{}, 0)
	rp := recording.NewReplay(records, ctrl)

	deps := player.Deps{
		Tracking:   rp.Tracking(),
		Input:      rp.Input(),
		Controller: ctrl,
		Solver:     sim.NewSolver(0, 1),
		Fingers:    rp.Fingers(),
	}

	var pub *remote.Publisher
	if *relayURL != "" {
		pub = remote.NewPublisher(*relayURL, sess.PlayerID, "replay", log.For("replay"))
		go func() {
			if err := pub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("relay publisher", "error", err)
			}
		}()
		deps.Broadcaster = pub
	}

	p, err := player.New(deps,
		player.WithRig(cfg.Rig),
		player.WithPlayerID(sess.PlayerID),
		player.WithSkeleton(sim.Skeleton(), ik.DefaultPaths()),
		player.WithLogger(log.For("player")))
	if err != nil {
		return err
	}
	p.Enable()

	// Pace frames only when someone is watching.
	var tick <-chan time.Time
	if pub != nil && sess.FrameRate > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / sess.FrameRate))
		defer ticker.Stop()
		tick = ticker.C
	}

	enc := json.NewEncoder(os.Stdout)
	for !rp.Done() {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		state := p.Update()
		p.LateUpdate()
		for _, c := range rp.Controls() {
			web.Command(c).Apply(p)
		}
		if *dump {
			if err := enc.Encode(state); err != nil {
				return err
			}
		}
	}
	p.Disable()

	cal := p.Calibration()
	summary := Summary{
		Session:     sess.ID.String(),
		Player:      sess.PlayerID.String(),
		Frames:      rp.Len(),
		Position:    ctrl.Position(),
		Yaw:         ctrl.Yaw(),
		FloorOffset: cal.FloorOffset,
		RealHeight:  cal.RealHeight,
		Crouches:    ctrl.CrouchEdges(),
		Duration:    duration(records),
		StartedAt:   sess.StartedAt,
	}
	if *dump {
		return nil
	}
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func findSession(ctx context.Context, store *recording.Store) (recording.Session, error) {
	if *sessionID == "" {
		return store.Latest(ctx)
	}
	id, err := uuid.Parse(*sessionID)
	if err != nil {
		return recording.Session{}, fmt.Errorf("parse session id: %w", err)
	}
	return store.Session(ctx, id)
}

func listSessions(ctx context.Context, store *recording.Store) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tPLAYER\tSTARTED\tRATE\tFRAMES")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%d\n",
			s.ID, s.PlayerID, s.StartedAt.Local().Format(time.DateTime), s.FrameRate, s.Frames)
	}
	return w.Flush()
}

// duration returns the tracked time spanned by records.
func duration(records []recording.FrameRecord) float64 {
	if len(records) < 2 {
		return 0
	}
	return records[len(records)-1].Frame.Time.Sub(records[0].Frame.Time).Seconds()
}
