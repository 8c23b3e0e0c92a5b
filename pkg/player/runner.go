package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-vrrig/internal/timeutil"
)

// Runner drives a Player from a clock ticker. A Player must only ever be
// driven by one Runner.
type Runner struct {
	player   *Player
	clock    timeutil.Clock
	interval time.Duration
	logger   *slog.Logger

	// OnFrame, when set, is called after each late pass.
	OnFrame func(p *Player)
}

// NewRunner returns a runner ticking every interval on clock.
func NewRunner(p *Player, clock timeutil.Clock, interval time.Duration) *Runner {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Runner{
		player:   p,
		clock:    clock,
		interval: interval,
		logger:   p.logger.With("component", "runner"),
	}
}

// Run ticks until ctx is cancelled, then disables the player's solver.
// Each tick runs Update followed by LateUpdate.
func (r *Runner) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("frame loop started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.player.Disable()
			r.logger.Info("frame loop stopped", "frames", r.player.Frames())
			return ctx.Err()

		case <-ticker.C():
			r.player.Update()
			r.player.LateUpdate()
			if r.OnFrame != nil {
				r.OnFrame(r.player)
			}
		}
	}
}
