// Package hub fans rig snapshots out to local dashboard websockets using
// the channel-based hub pattern: one goroutine owns the client set and
// every client has its own write pump.
package hub

import (
	"github.com/google/uuid"

	"github.com/teslashibe/go-vrrig/pkg/protocol"
)

// Message is an encoded envelope queued for clients.
type Message struct {
	// Player is set for rig snapshots so the hub can replay the latest one
	// to clients that connect later.
	Player uuid.UUID
	Data   []byte

	// leave drops the cached snapshot of Player instead of storing one.
	leave bool
}

// NewRigMessage encodes a rig snapshot.
func NewRigMessage(state protocol.RigState) (Message, error) {
	data, err := protocol.EncodeRig(state)
	if err != nil {
		return Message{}, err
	}
	return Message{Player: state.PlayerID, Data: data}, nil
}

// NewEnvelopeMessage wraps any other envelope.
func NewEnvelopeMessage(msg *protocol.Message) (Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}
