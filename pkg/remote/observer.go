package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-vrrig/pkg/protocol"
)

// Observer mirrors the newest snapshot of every player on a relay.
// Snapshots that arrive out of order are discarded.
type Observer struct {
	url    string
	logger *slog.Logger

	mu     sync.RWMutex
	latest map[uuid.UUID]protocol.RigState

	// OnRig, when set, is called for every accepted snapshot from the read
	// goroutine.
	OnRig func(protocol.RigState)

	// OnLeave, when set, is called when a player leaves.
	OnLeave func(uuid.UUID)

	received atomic.Uint64
	stale    atomic.Uint64
}

// NewObserver returns an observer of the relay at relayURL.
func NewObserver(relayURL string, logger *slog.Logger) *Observer {
	return &Observer{
		url:    relayURL + "/ws/observe",
		logger: logger.With("component", "observer"),
		latest: make(map[uuid.UUID]protocol.RigState),
	}
}

// Run reads from the relay until ctx is cancelled or the connection drops.
func (o *Observer) Run(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, o.url, http.Header{})
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer ws.Close()
	o.logger.Info("observing relay", "url", o.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("read relay: %w", err)
		}
		o.handle(data)
	}
}

func (o *Observer) handle(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		o.logger.Debug("bad message", "error", err)
		return
	}
	switch msg.Type {
	case protocol.TypeRig:
		state, err := msg.GetRigState()
		if err != nil {
			o.logger.Debug("bad rig", "error", err)
			return
		}
		o.Apply(*state)

	case protocol.TypeLeave:
		leave, err := msg.GetLeaveData()
		if err != nil {
			return
		}
		o.mu.Lock()
		delete(o.latest, leave.PlayerID)
		o.mu.Unlock()
		if o.OnLeave != nil {
			o.OnLeave(leave.PlayerID)
		}
	}
}

// Apply stores state if it is newer than the held snapshot of its player.
// It reports whether the snapshot was accepted.
func (o *Observer) Apply(state protocol.RigState) bool {
	o.received.Add(1)

	o.mu.Lock()
	cur, ok := o.latest[state.PlayerID]
	if ok && !state.Newer(cur) {
		o.mu.Unlock()
		o.stale.Add(1)
		return false
	}
	o.latest[state.PlayerID] = state
	o.mu.Unlock()

	if o.OnRig != nil {
		o.OnRig(state)
	}
	return true
}

// Latest returns the newest snapshot of player.
func (o *Observer) Latest(player uuid.UUID) (protocol.RigState, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.latest[player]
	return s, ok
}

// Players returns the players with a snapshot.
func (o *Observer) Players() []uuid.UUID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(o.latest))
	for id := range o.latest {
		ids = append(ids, id)
	}
	return ids
}

// Stale returns how many snapshots were discarded as out of order.
func (o *Observer) Stale() uint64 { return o.stale.Load() }
