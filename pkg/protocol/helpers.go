package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewRigMessage creates a rig snapshot message
func NewRigMessage(state RigState) (*Message, error) {
	return NewMessage(TypeRig, state)
}

// NewJoinMessage creates a join announcement
func NewJoinMessage(playerID uuid.UUID, name string) (*Message, error) {
	return NewMessage(TypeJoin, JoinData{PlayerID: playerID, Name: name})
}

// NewLeaveMessage creates a leave announcement
func NewLeaveMessage(playerID uuid.UUID, reason string) (*Message, error) {
	return NewMessage(TypeLeave, LeaveData{PlayerID: playerID, Reason: reason})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string, ts int64) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: ts})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// EncodeRig encodes a snapshot straight to envelope bytes
func EncodeRig(state RigState) ([]byte, error) {
	msg, err := NewRigMessage(state)
	if err != nil {
		return nil, err
	}
	return msg.Bytes()
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

func (m *Message) expect(t MessageType) error {
	if m.Type != t {
		return fmt.Errorf("%w: got %q, want %q", ErrUnexpectedType, m.Type, t)
	}
	return nil
}

// GetRigState extracts a rig snapshot from a message
func (m *Message) GetRigState() (*RigState, error) {
	if err := m.expect(TypeRig); err != nil {
		return nil, err
	}
	var data RigState
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetJoinData extracts a join announcement from a message
func (m *Message) GetJoinData() (*JoinData, error) {
	if err := m.expect(TypeJoin); err != nil {
		return nil, err
	}
	var data JoinData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLeaveData extracts a leave announcement from a message
func (m *Message) GetLeaveData() (*LeaveData, error) {
	if err := m.expect(TypeLeave); err != nil {
		return nil, err
	}
	var data LeaveData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeRig parses envelope bytes that must hold a rig snapshot
func DecodeRig(b []byte) (*RigState, error) {
	msg, err := ParseMessage(b)
	if err != nil {
		return nil, err
	}
	return msg.GetRigState()
}
