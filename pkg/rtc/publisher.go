package rtc

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-vrrig/pkg/protocol"
)

// Publisher sends rig snapshots over an unreliable data channel.
type Publisher struct {
	logger *slog.Logger
	pc     *webrtc.PeerConnection
	dc     *webrtc.DataChannel

	opened chan struct{}
	open   atomic.Bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewPublisher creates the peer connection and its snapshot channel.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	pc, err := webrtc.NewPeerConnection(cfg.peerConfig())
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	dc, err := pc.CreateDataChannel(Label, channelInit())
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}

	p := &Publisher{
		logger: logger.With("component", "rtc-publisher"),
		pc:     pc,
		dc:     dc,
		opened: make(chan struct{}),
	}
	dc.OnOpen(func() {
		p.open.Store(true)
		close(p.opened)
		p.logger.Info("data channel open")
	})
	dc.OnClose(func() {
		p.open.Store(false)
		p.logger.Info("data channel closed")
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		p.logger.Debug("connection state", "state", s.String())
	})
	return p, nil
}

// Connect runs the offer/answer exchange through signal and waits until
// the data channel opens.
func (p *Publisher) Connect(ctx context.Context, signal SignalFunc) error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	local, err := gather(ctx, p.pc, offer)
	if err != nil {
		return err
	}

	answerData, err := signal(ctx, local)
	if err != nil {
		return fmt.Errorf("signal offer: %w", err)
	}
	answer, err := parseDescription(answerData, webrtc.SDPTypeAnswer)
	if err != nil {
		return err
	}
	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	select {
	case <-p.opened:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BroadcastRig sends state if the channel is open and drops it otherwise.
// The data channel queues internally, so this never blocks the frame loop.
func (p *Publisher) BroadcastRig(state protocol.RigState) {
	if !p.open.Load() {
		p.dropped.Add(1)
		return
	}
	data, err := protocol.EncodeRig(state)
	if err != nil {
		p.logger.Error("encode rig", "error", err)
		return
	}
	if err := p.dc.Send(data); err != nil {
		p.dropped.Add(1)
		p.logger.Debug("send rig", "error", err)
		return
	}
	p.sent.Add(1)
}

// Open reports whether the data channel is open.
func (p *Publisher) Open() bool { return p.open.Load() }

// Sent returns the number of snapshots handed to the channel.
func (p *Publisher) Sent() uint64 { return p.sent.Load() }

// Dropped returns the number of snapshots discarded.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Close tears down the peer connection.
func (p *Publisher) Close() error {
	p.open.Store(false)
	return p.pc.Close()
}
