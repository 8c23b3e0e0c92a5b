// Package rtc carries rig snapshots over a WebRTC data channel configured
// for lossy, unordered delivery: a late snapshot is worthless once a newer
// one exists, so the channel never retransmits.
//
// A Publisher offers a channel and signals the offer over HTTP; an Answerer
// on the relay side accepts offers and hands every received envelope to an
// ingest function.
package rtc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-vrrig/internal/httpc"
)

// Label is the data channel label used for rig snapshots.
const Label = "rig"

// Config holds peer connection settings.
type Config struct {
	// ICEServers are STUN/TURN URLs. Empty works on a LAN.
	ICEServers []string
}

// DefaultConfig returns a configuration without ICE servers.
func DefaultConfig() Config {
	return Config{}
}

func (c Config) peerConfig() webrtc.Configuration {
	var cfg webrtc.Configuration
	if len(c.ICEServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: c.ICEServers}}
	}
	return cfg
}

// SignalFunc exchanges a JSON session description offer for an answer.
type SignalFunc func(ctx context.Context, offer []byte) ([]byte, error)

// HTTPSignal posts offers to url, the relay's /api/rtc/offer endpoint.
func HTTPSignal(url string) SignalFunc {
	return func(ctx context.Context, offer []byte) ([]byte, error) {
		return httpc.PostJSON(ctx, url, offer)
	}
}

// channelInit returns the data channel options for snapshots.
func channelInit() *webrtc.DataChannelInit {
	ordered := false
	var retransmits uint16
	return &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &retransmits,
	}
}

// gather sets desc as the local description and waits for ICE gathering so
// the description can be exchanged in one round trip.
func gather(ctx context.Context, pc *webrtc.PeerConnection, desc webrtc.SessionDescription) ([]byte, error) {
	done := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(desc); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return json.Marshal(pc.LocalDescription())
}

func parseDescription(data []byte, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return desc, fmt.Errorf("parse session description: %w", err)
	}
	if desc.Type != want {
		return desc, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedSDP, desc.Type, want)
	}
	return desc, nil
}
