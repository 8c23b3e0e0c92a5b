// Package recording captures the raw per-frame inputs of a rig session to
// SQLite and replays them through a fresh Player.
//
// A FrameRecord holds everything the frame pass reads from outside: tracked
// poses, controller input, character status, finger curls and the operator
// controls applied after the frame. Replaying the records against the same
// configuration reproduces the same rig snapshots.
package recording

import (
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-vrrig/pkg/fingers"
	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

// FrameRecord is the captured input of one frame.
type FrameRecord struct {
	Seq    uint64        `json:"seq"`
	Frame  xr.Frame      `json:"frame"`
	Input  player.Input  `json:"input"`
	Status player.Status `json:"status"`

	// Fingers is indexed by xr.Hand. FingersOK is false for a hand the
	// source was not asked for or had no data for.
	Fingers   [2]fingers.Curls `json:"fingers"`
	FingersOK [2]bool          `json:"fingers_ok"`

	// Controls are the operator controls applied after the frame, in order.
	Controls []string `json:"controls,omitempty"`
}

// Session describes one recorded run.
type Session struct {
	ID        uuid.UUID
	PlayerID  uuid.UUID
	StartedAt time.Time
	FrameRate float64
	Frames    int
}
