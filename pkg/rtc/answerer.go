package rtc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v3"
)

// IngestFunc receives one envelope from a data channel.
type IngestFunc func(data []byte) error

// Answerer accepts publisher offers and feeds their snapshots to ingest.
type Answerer struct {
	cfg    Config
	ingest IngestFunc
	logger *slog.Logger

	mu     sync.Mutex
	peers  map[*webrtc.PeerConnection]struct{}
	closed bool

	received atomic.Uint64
	rejected atomic.Uint64
}

// NewAnswerer returns an answerer delivering envelopes to ingest.
func NewAnswerer(cfg Config, ingest IngestFunc, logger *slog.Logger) *Answerer {
	return &Answerer{
		cfg:    cfg,
		ingest: ingest,
		logger: logger.With("component", "rtc-answerer"),
		peers:  make(map[*webrtc.PeerConnection]struct{}),
	}
}

// Answer accepts a JSON offer and returns the JSON answer.
func (a *Answerer) Answer(ctx context.Context, offerData []byte) ([]byte, error) {
	offer, err := parseDescription(offerData, webrtc.SDPTypeOffer)
	if err != nil {
		return nil, err
	}

	pc, err := webrtc.NewPeerConnection(a.cfg.peerConfig())
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	if !a.track(pc) {
		_ = pc.Close()
		return nil, ErrClosed
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != Label {
			a.logger.Warn("ignoring data channel", "label", dc.Label())
			return
		}
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			a.received.Add(1)
			if err := a.ingest(msg.Data); err != nil {
				a.rejected.Add(1)
				a.logger.Debug("ingest", "error", err)
			}
		})
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		a.logger.Debug("connection state", "state", s.String())
		switch s {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			a.untrack(pc)
			_ = pc.Close()
		}
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		a.untrack(pc)
		_ = pc.Close()
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		a.untrack(pc)
		_ = pc.Close()
		return nil, fmt.Errorf("create answer: %w", err)
	}
	local, err := gather(ctx, pc, answer)
	if err != nil {
		a.untrack(pc)
		_ = pc.Close()
		return nil, err
	}
	a.logger.Info("answered offer", "peers", a.PeerCount())
	return local, nil
}

func (a *Answerer) track(pc *webrtc.PeerConnection) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.peers[pc] = struct{}{}
	return true
}

func (a *Answerer) untrack(pc *webrtc.PeerConnection) {
	a.mu.Lock()
	delete(a.peers, pc)
	a.mu.Unlock()
}

// PeerCount returns the number of live peer connections.
func (a *Answerer) PeerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.peers)
}

// Received returns the number of data channel messages received.
func (a *Answerer) Received() uint64 { return a.received.Load() }

// Close closes every peer connection and rejects further offers.
func (a *Answerer) Close() error {
	a.mu.Lock()
	a.closed = true
	peers := make([]*webrtc.PeerConnection, 0, len(a.peers))
	for pc := range a.peers {
		peers = append(peers, pc)
	}
	a.peers = make(map[*webrtc.PeerConnection]struct{})
	a.mu.Unlock()

	var firstErr error
	for _, pc := range peers {
		if err := pc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
