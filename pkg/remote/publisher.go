// Package remote connects rigs to a relay over WebSocket: a Publisher
// streams the local player's snapshots and an Observer mirrors the newest
// snapshot of every remote player.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-vrrig/pkg/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
	pingPeriod       = 30 * time.Second

	minBackoff = 250 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// Publisher sends rig snapshots to a relay. Only the newest snapshot is
// kept while the connection is busy or down; older ones are dropped.
type Publisher struct {
	url    string
	player uuid.UUID
	name   string
	logger *slog.Logger

	pending chan []byte

	connected atomic.Bool
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

// NewPublisher returns a publisher for player. relayURL is the relay base,
// e.g. ws://host:8080.
func NewPublisher(relayURL string, player uuid.UUID, name string, logger *slog.Logger) *Publisher {
	return &Publisher{
		url:     fmt.Sprintf("%s/ws/publish/%s", relayURL, player),
		player:  player,
		name:    name,
		logger:  logger.With("component", "publisher", "player_id", player.String()),
		pending: make(chan []byte, 1),
	}
}

// BroadcastRig queues state for sending. It never blocks.
func (p *Publisher) BroadcastRig(state protocol.RigState) {
	data, err := protocol.EncodeRig(state)
	if err != nil {
		p.logger.Error("encode rig", "error", err)
		return
	}
	for {
		select {
		case p.pending <- data:
			return
		default:
		}
		// Replace the stale snapshot.
		select {
		case <-p.pending:
			p.dropped.Add(1)
		default:
		}
	}
}

// Run keeps a connection to the relay open until ctx is cancelled,
// reconnecting with exponential backoff.
func (p *Publisher) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		err := p.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("relay connection lost", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// session runs one connection.
func (p *Publisher) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, p.url, http.Header{})
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer ws.Close()

	p.connected.Store(true)
	defer p.connected.Store(false)
	p.logger.Info("connected to relay", "url", p.url)

	join, err := protocol.NewJoinMessage(p.player, p.name)
	if err != nil {
		return err
	}
	if err := writeMessage(ws, join); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	// The relay only answers pings; reading surfaces disconnects.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if leave, err := protocol.NewLeaveMessage(p.player, "shutdown"); err == nil {
				_ = writeMessage(ws, leave)
			}
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return nil

		case err := <-readErr:
			return err

		case data := <-p.pending:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
			p.sent.Add(1)

		case <-ticker.C:
			ping, err := protocol.NewPingMessage(p.player.String(), time.Now().UnixMilli())
			if err != nil {
				continue
			}
			if err := writeMessage(ws, ping); err != nil {
				return err
			}
		}
	}
}

// Connected reports whether the publisher has a live relay connection.
func (p *Publisher) Connected() bool { return p.connected.Load() }

// Sent returns the number of snapshots written.
func (p *Publisher) Sent() uint64 { return p.sent.Load() }

// Dropped returns the number of snapshots replaced before sending.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

func writeMessage(ws *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}

// isClosed reports whether err is a normal websocket shutdown.
func isClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, websocket.ErrCloseSent)
}
