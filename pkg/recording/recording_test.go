package recording_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-vrrig/internal/config"
	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/internal/timeutil"
	"github.com/teslashibe/go-vrrig/pkg/fingers"
	"github.com/teslashibe/go-vrrig/pkg/player"
	"github.com/teslashibe/go-vrrig/pkg/protocol"
	"github.com/teslashibe/go-vrrig/pkg/recording"
	"github.com/teslashibe/go-vrrig/pkg/sim"
	"github.com/teslashibe/go-vrrig/pkg/web"
	"github.com/teslashibe/go-vrrig/pkg/xr"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *recording.Store {
	t.Helper()
	store, err := recording.Open(filepath.Join(t.TempDir(), "frames.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func record(seq uint64) recording.FrameRecord {
	var f xr.Frame
	f.Time = t0.Add(time.Duration(seq) * 11 * time.Millisecond)
	f.DeltaTime = 0.011
	f.Poses[xr.Head] = xr.TrackedPose{Position: r3.Vec{X: 0.1 * float64(seq), Y: 1.7}, Rotation: xr.Yaw(33.3), Tracked: true}
	return recording.FrameRecord{
		Seq:       seq,
		Frame:     f,
		Input:     player.Input{Turn: -0.4, Sprint: seq%2 == 0},
		Status:    player.Status{Holding: true, Sinking: 0.25},
		Fingers:   [2]fingers.Curls{{0.1, 0.2, 0.3, 0.4, 0.5}},
		FingersOK: [2]bool{true, false},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := recording.Open(" ")
	assert.ErrorIs(t, err, recording.ErrPathRequired)
}

func TestStore_FramesRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	playerID := uuid.New()

	sess, err := store.StartSession(ctx, playerID, 90, t0)
	require.NoError(t, err)
	assert.Equal(t, playerID, sess.PlayerID)

	want := []recording.FrameRecord{record(1), record(2), record(3)}
	require.NoError(t, store.Append(ctx, sess.ID, want[2]))
	require.NoError(t, store.AppendBatch(ctx, sess.ID, want[:2]))

	got, err := store.Frames(ctx, sess.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}

	err = store.Append(ctx, sess.ID, record(2))
	assert.ErrorIs(t, err, recording.ErrDuplicateFrame)
}

func TestStore_BatchIsAtomic(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	sess, err := store.StartSession(ctx, uuid.New(), 90, t0)
	require.NoError(t, err)

	err = store.AppendBatch(ctx, sess.ID, []recording.FrameRecord{record(1), record(1)})
	assert.ErrorIs(t, err, recording.ErrDuplicateFrame)

	got, err := store.Frames(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Sessions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, recording.ErrNoSession)

	first, err := store.StartSession(ctx, uuid.New(), 90, t0)
	require.NoError(t, err)
	second, err := store.StartSession(ctx, uuid.New(), 72, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, store.AppendBatch(ctx, second.ID, []recording.FrameRecord{record(1), record(2)}))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, second.PlayerID, latest.PlayerID)
	assert.Equal(t, 72.0, latest.FrameRate)
	assert.Equal(t, 2, latest.Frames)
	assert.True(t, second.StartedAt.Equal(latest.StartedAt))

	all, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, 0, all[0].Frames)

	one, err := store.Session(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, one.ID)

	_, err = store.Session(ctx, uuid.New())
	assert.ErrorIs(t, err, recording.ErrNoSession)
}

func TestRecorder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	sess, err := store.StartSession(ctx, uuid.New(), 90, t0)
	require.NoError(t, err)

	rec := recording.NewRecorder(store, sess.ID, 32, log.Discard())
	for seq := uint64(1); seq <= 20; seq++ {
		assert.True(t, rec.Record(record(seq)))
	}
	require.NoError(t, rec.Close())
	assert.Equal(t, uint64(20), rec.Written())
	assert.Equal(t, uint64(0), rec.Dropped())
	assert.False(t, rec.Record(record(21)), "closed recorder drops")

	got, err := store.Frames(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestTap_CapturesFrame(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	ctrl := sim.NewController(r3.Vec{}, 0)
	ctrl.ApplyStatus(player.Status{Exhausted: true})
	tap := recording.NewTap(sim.NewTracking(clock, sim.DefaultMotion()), sim.NewInput(clock, sim.Wander), sim.NewFingers(clock, 1), ctrl)

	f := tap.Tracking().Poll()
	in := tap.Input().Poll()
	c, ok := tap.Fingers().FingerCurls(xr.Left)
	require.True(t, ok)

	rec := tap.Flush()
	assert.Equal(t, uint64(1), rec.Seq)
	assert.Equal(t, f, rec.Frame)
	assert.Equal(t, in, rec.Input)
	assert.True(t, rec.Status.Exhausted)
	assert.Equal(t, c, rec.Fingers[xr.Left])
	assert.Equal(t, [2]bool{true, false}, rec.FingersOK)

	assert.Equal(t, uint64(2), tap.Flush().Seq)
	assert.Nil(t, recording.NewTap(nil, nil, nil, nil).Fingers())
}

func TestReplay_Cursor(t *testing.T) {
	ctrl := sim.NewController(r3.Vec{}, 0)
	rp := recording.NewReplay([]recording.FrameRecord{record(1), record(2)}, ctrl)
	assert.Equal(t, 2, rp.Len())

	assert.Equal(t, record(1).Frame, rp.Tracking().Poll())
	assert.Equal(t, record(1).Input, rp.Input().Poll())
	assert.True(t, ctrl.IsHoldingObject())

	rp.Tracking().Poll()
	assert.True(t, rp.Done())
	assert.Equal(t, record(2).Frame, rp.Tracking().Poll(), "last frame repeats")

	_, ok := rp.Fingers().FingerCurls(xr.Right)
	assert.False(t, ok)
}

// statusChanges are applied to the live controller before the given frame.
var statusChanges = map[int]player.Status{
	40:  {Holding: true},
	80:  {Crouching: true},
	120: {Scripted: true, Sinking: 0.4},
	150: {Exhausted: true},
	170: {},
}

func newPlayer(t *testing.T, id uuid.UUID, deps player.Deps) *player.Player {
	t.Helper()
	rig := config.Default().Rig
	rig.ToggleSprint = true
	p, err := player.New(deps,
		player.WithRig(rig),
		player.WithPlayerID(id),
		player.WithLogger(log.Discard()))
	require.NoError(t, err)
	return p
}

func TestReplayReproducesLiveRun(t *testing.T) {
	const (
		frames  = 200
		resetAt = 120
	)
	id := uuid.New()

	// Live run through the tap.
	clock := timeutil.NewMockClock(t0)
	motion := sim.DefaultMotion()
	motion.CrouchCycle = 1500 * time.Millisecond
	motion.FullBody = true

	liveCtrl := sim.NewController(r3.Vec{X: 1, Z: -2}, 30)
	tap := recording.NewTap(
		sim.NewTracking(clock, motion),
		sim.NewInput(clock, sim.Wander),
		sim.NewFingers(clock, 0.7),
		liveCtrl)
	live := newPlayer(t, id, player.Deps{
		Tracking:   tap.Tracking(),
		Input:      tap.Input(),
		Controller: liveCtrl,
		Solver:     sim.NewSolver(0, 1),
		Fingers:    tap.Fingers(),
	})

	store := openStore(t)
	ctx := context.Background()
	sess, err := store.StartSession(ctx, id, 90, t0)
	require.NoError(t, err)

	var liveStates []protocol.RigState
	var records []recording.FrameRecord
	for i := 0; i < frames; i++ {
		if s, ok := statusChanges[i]; ok {
			liveCtrl.ApplyStatus(s)
		}
		clock.Advance(11 * time.Millisecond)
		liveStates = append(liveStates, live.Update())
		live.LateUpdate()
		if i == resetAt {
			web.CommandResetHeight.Apply(live)
			tap.Control(string(web.CommandResetHeight))
		}
		records = append(records, tap.Flush())
	}
	require.NotEqual(t, liveStates[resetAt].CameraFloorOffset, liveStates[frames-1].CameraFloorOffset,
		"reset did not recalibrate")
	require.NoError(t, store.AppendBatch(ctx, sess.ID, records))

	// Replay from the store into a fresh player.
	loaded, err := store.Frames(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded, frames)
	assert.Equal(t, []string{string(web.CommandResetHeight)}, loaded[resetAt].Controls)

	replayCtrl := sim.NewController(r3.Vec{X: 1, Z: -2}, 30)
	rp := recording.NewReplay(loaded, replayCtrl)
	replayed := newPlayer(t, id, player.Deps{
		Tracking:   rp.Tracking(),
		Input:      rp.Input(),
		Controller: replayCtrl,
		Solver:     sim.NewSolver(0, 1),
		Fingers:    rp.Fingers(),
	})

	var replayStates []protocol.RigState
	for !rp.Done() {
		replayStates = append(replayStates, replayed.Update())
		replayed.LateUpdate()
		for _, c := range rp.Controls() {
			web.Command(c).Apply(replayed)
		}
	}

	if diff := cmp.Diff(liveStates, replayStates); diff != "" {
		t.Errorf("replay diverged (-live +replay):\n%s", diff)
	}
	assert.Equal(t, liveCtrl.Position(), replayCtrl.Position())
	assert.Equal(t, liveCtrl.Yaw(), replayCtrl.Yaw())
	assert.Equal(t, live.Curls(xr.Right), replayed.Curls(xr.Right))
	assert.Equal(t, live.Calibration(), replayed.Calibration())
}
