// Package protocol defines the messages exchanged between rig publishers,
// the relay and remote observers. Every transport carries the same JSON
// envelope.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// MessageType identifies the type of a message
type MessageType string

const (
	// Publisher → Relay → Observers
	TypeRig   MessageType = "rig"   // Per-frame rig snapshot
	TypeJoin  MessageType = "join"  // Player started publishing
	TypeLeave MessageType = "leave" // Player stopped publishing

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the envelope for all messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into v
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("parse %s data: %w", m.Type, err)
	}
	return nil
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, ErrMissingType
	}
	return &msg, nil
}

// =============================================================================
// Rig Message Types
// =============================================================================

// Vec3 is a vector on the wire
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// VecFrom converts a math vector to its wire form
func VecFrom(v r3.Vec) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// R3 converts the wire vector back to a math vector
func (v Vec3) R3() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// Curls holds per-finger curl values, thumb first
type Curls [5]float64

// RigState is the per-frame snapshot of a player's rig. Observers apply the
// newest snapshot they have and drop anything older.
type RigState struct {
	PlayerID uuid.UUID `json:"player_id"`
	Seq      uint64    `json:"seq"` // Monotonic per player

	LeftHandPosition Vec3  `json:"left_hand_position"` // Render-origin local
	LeftHandEulers   Vec3  `json:"left_hand_eulers"`   // Degrees
	LeftHandFingers  Curls `json:"left_hand_fingers"`

	RightHandPosition Vec3  `json:"right_hand_position"`
	RightHandEulers   Vec3  `json:"right_hand_eulers"`
	RightHandFingers  Curls `json:"right_hand_fingers"`

	CameraEulers       Vec3 `json:"camera_eulers"`        // World, degrees
	CameraPosAccounted Vec3 `json:"camera_pos_accounted"` // Horizontal head offset after turning

	IsCrouching       bool    `json:"is_crouching"`
	RotationOffset    float64 `json:"rotation_offset"`     // Turning yaw, degrees
	CameraFloorOffset float64 `json:"camera_floor_offset"` // Calibrated floor offset
}

// Newer reports whether s should replace prev on an observer.
func (s RigState) Newer(prev RigState) bool {
	return s.Seq > prev.Seq
}

// JoinData announces a publisher
type JoinData struct {
	PlayerID uuid.UUID `json:"player_id"`
	Name     string    `json:"name,omitempty"`
}

// LeaveData announces that a publisher went away
type LeaveData struct {
	PlayerID uuid.UUID `json:"player_id"`
	Reason   string    `json:"reason,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
