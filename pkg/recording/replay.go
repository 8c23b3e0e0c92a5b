package recording

import (
	"github.com/teslashibe/go-vrrig/pkg/fingers"
	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// StatusSink receives the recorded character status before each frame.
type StatusSink interface {
	ApplyStatus(player.Status)
}

// Replay feeds recorded frames back into a Player. Each tracking poll
// advances to the next record; input and finger polls read the current one.
// Past the last record the final frame repeats without its controls.
type Replay struct {
	records []FrameRecord
	sink    StatusSink
	next    int
	cur     FrameRecord
}

// NewReplay returns a replay of records. sink may be nil.
func NewReplay(records []FrameRecord, sink StatusSink) *Replay {
	return &Replay{records: records, sink: sink}
}

// Len returns the number of records.
func (r *Replay) Len() int { return len(r.records) }

// Done reports whether every record has been polled.
func (r *Replay) Done() bool { return r.next >= len(r.records) }

// Controls returns the operator controls recorded after the current frame.
// Apply them once the frame pass is done.
func (r *Replay) Controls() []string { return r.cur.Controls }

// Tracking returns the replay tracking source.
func (r *Replay) Tracking() player.TrackingSource { return replayTracking{r} }

// Input returns the replay input source.
func (r *Replay) Input() player.InputSource { return replayInput{r} }

// Fingers returns the replay finger source.
func (r *Replay) Fingers() player.FingerSource { return replayFingers{r} }

func (r *Replay) advance() {
	if r.next < len(r.records) {
		r.cur = r.records[r.next]
		r.next++
	} else {
		r.cur.Controls = nil
	}
	if r.sink != nil {
		r.sink.ApplyStatus(r.cur.Status)
	}
}

type replayTracking struct{ r *Replay }

func (s replayTracking) Poll() xr.Frame {
	s.r.advance()
	return s.r.cur.Frame
}

type replayInput struct{ r *Replay }

func (s replayInput) Poll() player.Input { return s.r.cur.Input }

type replayFingers struct{ r *Replay }

func (s replayFingers) FingerCurls(hand xr.Hand) (fingers.Curls, bool) {
	return s.r.cur.Fingers[hand], s.r.cur.FingersOK[hand]
}

var (
	_ player.TrackingSource = replayTracking{}
	_ player.InputSource    = replayInput{}
	_ player.FingerSource   = replayFingers{}
)
