// Package relay provides the WebSocket relay between rig publishers and
// remote observers.
//
// Publishers connect to /ws/publish/:id and stream rig envelopes. The relay
// keeps the newest snapshot per player (by sequence number), forwards each
// accepted message to every observer on /ws/observe, and replays the latest
// snapshots to observers that join late. Snapshots arriving over WebRTC
// enter through Ingest.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/teslashibe/go-vrrig/pkg/debug"
	"github.com/teslashibe/go-vrrig/pkg/protocol"
)

const writeWait = 5 * time.Second

// Signaler answers WebRTC offers for the /api/rtc/offer endpoint.
type Signaler interface {
	Answer(ctx context.Context, offer []byte) ([]byte, error)
}

// Source names how a snapshot reached the relay.
type Source string

const (
	SourceWebSocket Source = "ws"
	SourceRTC       Source = "rtc"
)

// peer is a websocket connection the relay writes to.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *peer) sendMessage(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return p.send(data)
}

// rig is the latest accepted snapshot of one player.
type rig struct {
	state     protocol.RigState
	data      []byte
	source    Source
	connected time.Time
	lastSeen  time.Time
}

// Relay fans rig snapshots from publishers out to observers.
type Relay struct {
	logger   *slog.Logger
	signaler Signaler

	mu         sync.RWMutex
	publishers map[uuid.UUID]*peer
	observers  map[*peer]struct{}
	rigs       map[uuid.UUID]*rig

	// Stats
	received  atomic.Uint64
	forwarded atomic.Uint64
	stale     atomic.Uint64
	invalid   atomic.Uint64
}

// Option configures a Relay.
type Option func(*Relay)

// WithSignaler enables the WebRTC offer endpoint.
func WithSignaler(s Signaler) Option {
	return func(r *Relay) { r.signaler = s }
}

// New creates a relay.
func New(logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		logger:     logger,
		publishers: make(map[uuid.UUID]*peer),
		observers:  make(map[*peer]struct{}),
		rigs:       make(map[uuid.UUID]*rig),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ingest handles one envelope from a publisher that has no websocket, such
// as a WebRTC data channel.
func (r *Relay) Ingest(data []byte) error {
	_, err := r.handleMessage(uuid.Nil, SourceRTC, data)
	return err
}

// handleMessage applies one publisher message. from is the player bound to
// the connection, or uuid.Nil when the message names its own player. It
// returns a reply for the sender, if any.
func (r *Relay) handleMessage(from uuid.UUID, source Source, data []byte) (*protocol.Message, error) {
	r.received.Add(1)

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		r.invalid.Add(1)
		return nil, err
	}
	debug.NetLog("relay: %s %s from %s\n", source, msg.Type, from)

	switch msg.Type {
	case protocol.TypeRig:
		state, err := msg.GetRigState()
		if err != nil {
			r.invalid.Add(1)
			return nil, err
		}
		if err := r.checkBinding(from, state.PlayerID); err != nil {
			return nil, err
		}
		if !r.accept(*state, source, data) {
			r.stale.Add(1)
			return nil, nil
		}
		r.forward(data)

	case protocol.TypeJoin:
		join, err := msg.GetJoinData()
		if err != nil {
			r.invalid.Add(1)
			return nil, err
		}
		if err := r.checkBinding(from, join.PlayerID); err != nil {
			return nil, err
		}
		r.logger.Info("player joined", "player_id", join.PlayerID.String(), "name", join.Name)
		r.forward(data)

	case protocol.TypeLeave:
		leave, err := msg.GetLeaveData()
		if err != nil {
			r.invalid.Add(1)
			return nil, err
		}
		if err := r.checkBinding(from, leave.PlayerID); err != nil {
			return nil, err
		}
		r.drop(leave.PlayerID)
		r.forward(data)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			r.invalid.Add(1)
			return nil, err
		}
		return protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())

	default:
		r.invalid.Add(1)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, msg.Type)
	}
	return nil, nil
}

// checkBinding rejects messages naming a player other than the one the
// connection is bound to.
func (r *Relay) checkBinding(from, player uuid.UUID) error {
	if from == uuid.Nil || player == from {
		return nil
	}
	r.invalid.Add(1)
	return fmt.Errorf("%w: %s on connection of %s", ErrWrongPlayer, player, from)
}

// accept stores state if it is newer than what the relay holds.
func (r *Relay) accept(state protocol.RigState, source Source, data []byte) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rigs[state.PlayerID]
	if !ok {
		r.rigs[state.PlayerID] = &rig{state: state, data: data, source: source, connected: now, lastSeen: now}
		return true
	}
	if !state.Newer(cur.state) {
		return false
	}
	cur.state, cur.data, cur.source, cur.lastSeen = state, data, source, now
	return true
}

func (r *Relay) drop(player uuid.UUID) {
	r.mu.Lock()
	delete(r.rigs, player)
	r.mu.Unlock()
}

// forward writes data to every observer, removing those that fail.
func (r *Relay) forward(data []byte) {
	r.mu.RLock()
	observers := make([]*peer, 0, len(r.observers))
	for o := range r.observers {
		observers = append(observers, o)
	}
	r.mu.RUnlock()

	for _, o := range observers {
		if err := o.send(data); err != nil {
			r.logger.Debug("observer write failed", "error", err)
			r.removeObserver(o)
			o.conn.Close()
			continue
		}
		r.forwarded.Add(1)
	}
}

func (r *Relay) removeObserver(o *peer) {
	r.mu.Lock()
	delete(r.observers, o)
	r.mu.Unlock()
}

// handlePublish serves one publisher connection.
func (r *Relay) handlePublish(c *websocket.Conn) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		r.logger.Warn("rejected publisher", "id", c.Params("id"), "error", err)
		r.closeWith(c, websocket.ClosePolicyViolation, "invalid player id")
		return
	}

	p := &peer{conn: c}
	r.mu.Lock()
	if _, taken := r.publishers[id]; taken {
		r.mu.Unlock()
		r.logger.Warn("duplicate publisher", "player_id", id.String())
		r.closeWith(c, websocket.ClosePolicyViolation, "player already publishing")
		return
	}
	r.publishers[id] = p
	count := len(r.publishers)
	r.mu.Unlock()

	logger := r.logger.With("player_id", id.String())
	logger.Info("publisher connected", "publishers", count)

	defer func() {
		r.mu.Lock()
		delete(r.publishers, id)
		delete(r.rigs, id)
		count := len(r.publishers)
		r.mu.Unlock()
		logger.Info("publisher disconnected", "publishers", count)

		if leave, err := protocol.NewLeaveMessage(id, "disconnected"); err == nil {
			if data, err := leave.Bytes(); err == nil {
				r.forward(data)
			}
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			logger.Debug("publisher read error", "error", err)
			return
		}
		reply, err := r.handleMessage(id, SourceWebSocket, data)
		if err != nil {
			logger.Debug("rejected message", "error", err)
			continue
		}
		if reply != nil {
			if err := p.sendMessage(reply); err != nil {
				return
			}
		}
	}
}

// handleObserve serves one observer connection.
func (r *Relay) handleObserve(c *websocket.Conn) {
	o := &peer{conn: c}

	// Register before replaying so no snapshot is missed. A forwarded
	// snapshot may still overtake its replayed predecessor; observers drop
	// the older one by sequence.
	r.mu.Lock()
	r.observers[o] = struct{}{}
	latest := make([][]byte, 0, len(r.rigs))
	for _, rg := range r.rigs {
		latest = append(latest, rg.data)
	}
	count := len(r.observers)
	r.mu.Unlock()

	r.logger.Info("observer connected", "observers", count)
	defer func() {
		r.removeObserver(o)
		r.logger.Info("observer disconnected")
	}()

	for _, data := range latest {
		if err := o.send(data); err != nil {
			return
		}
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypePing {
			continue
		}
		ping, err := msg.GetPingData()
		if err != nil {
			continue
		}
		if pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli()); err == nil {
			if err := o.sendMessage(pong); err != nil {
				return
			}
		}
	}
}

func (r *Relay) closeWith(c *websocket.Conn, code int, text string) {
	c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	c.Close()
}

// Latest returns the newest snapshot of a player.
func (r *Relay) Latest(player uuid.UUID) (protocol.RigState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rg, ok := r.rigs[player]
	if !ok {
		return protocol.RigState{}, false
	}
	return rg.state, true
}

// PublisherCount returns the number of connected websocket publishers.
func (r *Relay) PublisherCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.publishers)
}

// ObserverCount returns the number of connected observers.
func (r *Relay) ObserverCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}

// Stats contains relay statistics
type Stats struct {
	Publishers int    `json:"publishers"`
	Observers  int    `json:"observers"`
	Rigs       int    `json:"rigs"`
	Received   uint64 `json:"received"`
	Forwarded  uint64 `json:"forwarded"`
	Stale      uint64 `json:"stale"`
	Invalid    uint64 `json:"invalid"`
}

// GetStats returns relay statistics
func (r *Relay) GetStats() Stats {
	r.mu.RLock()
	s := Stats{
		Publishers: len(r.publishers),
		Observers:  len(r.observers),
		Rigs:       len(r.rigs),
	}
	r.mu.RUnlock()
	s.Received = r.received.Load()
	s.Forwarded = r.forwarded.Load()
	s.Stale = r.stale.Load()
	s.Invalid = r.invalid.Load()
	return s
}

// RigInfo describes the latest snapshot held for a player
type RigInfo struct {
	PlayerID  uuid.UUID `json:"player_id"`
	Seq       uint64    `json:"seq"`
	Source    Source    `json:"source"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetRigInfos returns info about every player with a snapshot
func (r *Relay) GetRigInfos() []RigInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RigInfo, 0, len(r.rigs))
	for id, rg := range r.rigs {
		infos = append(infos, RigInfo{
			PlayerID:  id,
			Seq:       rg.state.Seq,
			Source:    rg.source,
			Connected: rg.connected,
			LastSeen:  rg.lastSeen,
		})
	}
	return infos
}
