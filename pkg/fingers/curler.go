// Package fingers samples per-finger curl values from hand tracking.
package fingers

import "github.com/teslashibe/go-vrrig/pkg/xr"

// Count is the number of fingers per hand, thumb first.
const Count = 5

// Curls holds one curl value per finger in [0, 1], 0 being fully open.
type Curls [Count]float64

// Source provides finger curls for a hand. ok is false when the runtime has
// no finger data for the hand this frame.
type Source interface {
	FingerCurls(hand xr.Hand) (curls Curls, ok bool)
}

// Curler keeps the latest curl sample of one hand. It is refreshed in the
// late pass, after the animation update.
type Curler struct {
	hand  xr.Hand
	curls Curls
}

// NewCurler returns a curler for hand with all fingers open.
func NewCurler(hand xr.Hand) *Curler {
	return &Curler{hand: hand}
}

// Hand returns the hand sampled by the curler.
func (c *Curler) Hand() xr.Hand {
	return c.hand
}

// Update samples src unless the hand is holding an object. Held or missing
// samples keep the previous curls. It reports whether the curls changed.
func (c *Curler) Update(src Source, holding bool) bool {
	if holding || src == nil {
		return false
	}
	curls, ok := src.FingerCurls(c.hand)
	if !ok {
		return false
	}
	for i := range curls {
		curls[i] = xr.Clamp01(curls[i])
	}
	changed := curls != c.curls
	c.curls = curls
	return changed
}

// Curls returns the latest curls.
func (c *Curler) Curls() Curls {
	return c.curls
}

// Scalar returns the mean curl for consumers that animate a whole hand.
func (c *Curler) Scalar() float64 {
	var sum float64
	for _, v := range c.curls {
		sum += v
	}
	return sum / Count
}
