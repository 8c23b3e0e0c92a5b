package locomotion

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/pkg/timer"
)

// SettleDelay is how long tracking is given to stabilize before a height
// calibration samples the head.
const SettleDelay = 200 * time.Millisecond

// Calibration maps the player's real eye height onto the avatar's.
type Calibration struct {
	ScaleFactor  float64
	RealHeight   float64 // Scaled head height at the last calibration
	TargetHeight float64 // Avatar eye height in world units
	FloorOffset  float64 // Vertical correction applied to the render origin
}

// DefaultCalibration returns the calibration used before the first sample.
func DefaultCalibration(scale, target float64) Calibration {
	return Calibration{
		ScaleFactor:  scale,
		RealHeight:   target,
		TargetHeight: target,
	}
}

// Calibrator runs deferred height calibrations. A request arms a settle
// deadline; Poll fires the calibration once the deadline passes. Requests
// made while one is pending restart the deadline.
type Calibrator struct {
	cal      Calibration
	settle   time.Duration
	deadline timer.Deadline
	logger   *slog.Logger
}

// NewCalibrator returns a calibrator starting from cal.
func NewCalibrator(cal Calibration, logger *slog.Logger) *Calibrator {
	if logger == nil {
		logger = log.For("calibration")
	}
	return &Calibrator{cal: cal, settle: SettleDelay, logger: logger}
}

// Request schedules a calibration SettleDelay after now.
func (c *Calibrator) Request(now time.Time) {
	if c.deadline.Pending() {
		c.logger.Debug("calibration restarted")
	}
	c.deadline.Start(now, c.settle)
}

// Pending reports whether a calibration is waiting for its deadline.
func (c *Calibrator) Pending() bool {
	return c.deadline.Pending()
}

// Poll samples headY and recalibrates if the settle deadline elapsed.
// headY is the play-space head height. It reports whether it recalibrated.
func (c *Calibrator) Poll(now time.Time, headY float64) bool {
	if !c.deadline.Fire(now) {
		return false
	}
	c.cal.RealHeight = headY * c.cal.ScaleFactor
	c.cal.FloorOffset = c.cal.TargetHeight - c.cal.RealHeight
	c.logger.Info("height calibrated",
		"real_height", c.cal.RealHeight,
		"floor_offset", c.cal.FloorOffset)
	return true
}

// Calibration returns the current calibration.
func (c *Calibrator) Calibration() Calibration {
	return c.cal
}
