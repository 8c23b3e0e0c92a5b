package recording

import (
	"github.com/teslashibe/go-vrrig/pkg/fingers"
	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// StatusSource exposes the raw character status of the frame.
type StatusSource interface {
	Status() player.Status
}

// Tap sits between a Player and its sources and captures what each frame
// reads. Wire Tracking, Input and Fingers into player.Deps, then call Flush
// once per frame after LateUpdate.
type Tap struct {
	tracking player.TrackingSource
	input    player.InputSource
	fingers  player.FingerSource
	status   StatusSource

	pending FrameRecord
	seq     uint64
}

// NewTap wraps the given sources. fingerSrc may be nil.
func NewTap(tracking player.TrackingSource, input player.InputSource, fingerSrc player.FingerSource, status StatusSource) *Tap {
	return &Tap{tracking: tracking, input: input, fingers: fingerSrc, status: status}
}

// Tracking returns the recording tracking source.
func (t *Tap) Tracking() player.TrackingSource { return tapTracking{t} }

// Input returns the recording input source.
func (t *Tap) Input() player.InputSource { return tapInput{t} }

// Fingers returns the recording finger source, or nil when the tap wraps
// none.
func (t *Tap) Fingers() player.FingerSource {
	if t.fingers == nil {
		return nil
	}
	return tapFingers{t}
}

// Control notes an operator control applied after the current frame. Call
// it before Flush.
func (t *Tap) Control(name string) {
	t.pending.Controls = append(t.pending.Controls, name)
}

// Flush returns the record of the frame just run and starts a new one.
func (t *Tap) Flush() FrameRecord {
	t.seq++
	rec := t.pending
	rec.Seq = t.seq
	t.pending = FrameRecord{}
	return rec
}

type tapTracking struct{ t *Tap }

func (s tapTracking) Poll() xr.Frame {
	f := s.t.tracking.Poll()
	s.t.pending.Frame = f
	if s.t.status != nil {
		s.t.pending.Status = s.t.status.Status()
	}
	return f
}

type tapInput struct{ t *Tap }

func (s tapInput) Poll() player.Input {
	in := s.t.input.Poll()
	s.t.pending.Input = in
	return in
}

type tapFingers struct{ t *Tap }

func (s tapFingers) FingerCurls(hand xr.Hand) (fingers.Curls, bool) {
	c, ok := s.t.fingers.FingerCurls(hand)
	s.t.pending.Fingers[hand] = c
	s.t.pending.FingersOK[hand] = ok
	return c, ok
}

var (
	_ player.TrackingSource = tapTracking{}
	_ player.InputSource    = tapInput{}
	_ player.FingerSource   = tapFingers{}
)
