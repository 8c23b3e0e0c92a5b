package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/pkg/protocol"
)

type fakeRig struct {
	calls []string
}

func (f *fakeRig) ResetHeight() { f.calls = append(f.calls, "reset") }
func (f *fakeRig) Enable()      { f.calls = append(f.calls, "enable") }
func (f *fakeRig) Disable()     { f.calls = append(f.calls, "disable") }
func (f *fakeRig) SetLocomotionEnabled(on bool) {
	if on {
		f.calls = append(f.calls, "loco-on")
		return
	}
	f.calls = append(f.calls, "loco-off")
}

func TestCommandApply(t *testing.T) {
	rig := &fakeRig{}
	for _, c := range []Command{
		CommandResetHeight, CommandEnable, CommandDisable,
		CommandLocomotionOn, CommandLocomotionOff, Command("bogus"),
	} {
		c.Apply(rig)
	}
	assert.Equal(t, []string{"reset", "enable", "disable", "loco-on", "loco-off"}, rig.calls)
}

func TestStatusRoute(t *testing.T) {
	s := NewServer(":0", log.Discard())
	id := uuid.New()
	s.UpdateStatus(func(st *RigStatus) {
		st.PlayerID = id
		st.Frames = 42
		st.Crouching = true
	})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got RigStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, id, got.PlayerID)
	assert.Equal(t, uint64(42), got.Frames)
	assert.True(t, got.Crouching)
}

func TestControlRoute(t *testing.T) {
	s := NewServer(":0", log.Discard())

	resp, err := s.App().Test(httptest.NewRequest("POST", "/api/controls/reset_height", nil))
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)

	select {
	case cmd := <-s.Commands():
		assert.Equal(t, CommandResetHeight, cmd)
	default:
		t.Fatal("control not queued")
	}

	resp, err = s.App().Test(httptest.NewRequest("POST", "/api/controls/teleport", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "control", events[0].Type)
}

func TestControlQueueFull(t *testing.T) {
	s := NewServer(":0", log.Discard())
	for i := 0; i < commandBuffer; i++ {
		resp, err := s.App().Test(httptest.NewRequest("POST", "/api/controls/enable", nil))
		require.NoError(t, err)
		require.Equal(t, 202, resp.StatusCode)
	}
	resp, err := s.App().Test(httptest.NewRequest("POST", "/api/controls/enable", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestListControls(t *testing.T) {
	s := NewServer(":0", log.Discard())
	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/controls", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"reset_height"`)
	assert.Contains(t, string(body), `"locomotion_off"`)
}

func TestEventBufferBounded(t *testing.T) {
	s := NewServer(":0", log.Discard())
	for i := 0; i < maxEvents+10; i++ {
		s.AddEvent("info", "tick")
	}
	assert.Len(t, s.Events(), maxEvents)
}

func TestRigStream(t *testing.T) {
	s := NewServer(":18480", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18480/ws/rig", nil)
	require.NoError(t, err)
	defer ws.Close()
	time.Sleep(50 * time.Millisecond)

	id := uuid.New()
	s.BroadcastRig(protocol.RigState{PlayerID: id, Seq: 3})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	state, err := protocol.DecodeRig(data)
	require.NoError(t, err)
	assert.Equal(t, id, state.PlayerID)
	assert.Equal(t, uint64(3), state.Seq)
}

func TestBroadcastTracksSnapshot(t *testing.T) {
	s := NewServer(":0", log.Discard())
	s.BroadcastRig(protocol.RigState{Seq: 9, RotationOffset: -45})
	st := s.Status()
	assert.Equal(t, uint64(9), st.Seq)
	assert.Equal(t, -45.0, st.Turn)
}
