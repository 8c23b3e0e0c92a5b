package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

func sampleRig() RigState {
	return RigState{
		PlayerID:           uuid.MustParse("6f1c2b9e-3f2a-4d7c-9b8e-0a1b2c3d4e5f"),
		Seq:                42,
		LeftHandPosition:   Vec3{X: -0.2, Y: 1.1, Z: 0.3},
		LeftHandEulers:     Vec3{X: 10, Y: 270, Z: 5},
		LeftHandFingers:    Curls{0, 0.25, 0.5, 0.75, 1},
		RightHandPosition:  Vec3{X: 0.2, Y: 1.1, Z: 0.3},
		RightHandEulers:    Vec3{X: 350, Y: 90, Z: 355},
		RightHandFingers:   Curls{1, 1, 1, 1, 1},
		CameraEulers:       Vec3{Y: 180},
		CameraPosAccounted: Vec3{X: 0.1, Z: -0.05},
		IsCrouching:        true,
		RotationOffset:     45,
		CameraFloorOffset:  -0.1,
	}
}

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantErr bool
	}{
		{
			name:    "rig message",
			msgType: TypeRig,
			data:    sampleRig(),
		},
		{
			name:    "join message",
			msgType: TypeJoin,
			data:    JoinData{PlayerID: uuid.New(), Name: "alice"},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeRig,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestRigRoundTrip(t *testing.T) {
	want := sampleRig()

	b, err := EncodeRig(want)
	if err != nil {
		t.Fatalf("EncodeRig() error = %v", err)
	}

	got, err := DecodeRig(b)
	if err != nil {
		t.Fatalf("DecodeRig() error = %v", err)
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("rig mismatch (-want +got):\n%s", diff)
	}
}

func TestRigWireFormat(t *testing.T) {
	b, err := EncodeRig(sampleRig())
	if err != nil {
		t.Fatalf("EncodeRig() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	for _, key := range []string{"type", "ts", "data"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("envelope missing %q", key)
		}
	}

	var data map[string]any
	if err := json.Unmarshal(raw["data"], &data); err != nil {
		t.Fatalf("data is not an object: %v", err)
	}
	for _, key := range []string{
		"player_id", "seq",
		"left_hand_position", "left_hand_eulers", "left_hand_fingers",
		"right_hand_position", "right_hand_eulers", "right_hand_fingers",
		"camera_eulers", "camera_pos_accounted",
		"is_crouching", "rotation_offset", "camera_floor_offset",
	} {
		if _, ok := data[key]; !ok {
			t.Errorf("rig data missing %q", key)
		}
	}
	if data["player_id"] != "6f1c2b9e-3f2a-4d7c-9b8e-0a1b2c3d4e5f" {
		t.Errorf("player_id = %v", data["player_id"])
	}
}

func TestParseMessage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"not json", "{nope", nil},
		{"no type", `{"ts":1}`, ErrMissingType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if err == nil {
				t.Fatal("ParseMessage() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetRigState_WrongType(t *testing.T) {
	msg, err := NewJoinMessage(uuid.New(), "bob")
	if err != nil {
		t.Fatalf("NewJoinMessage() error = %v", err)
	}
	if _, err := msg.GetRigState(); !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("GetRigState() error = %v, want ErrUnexpectedType", err)
	}
}

func TestGetRigState_BadData(t *testing.T) {
	msg := &Message{Type: TypeRig, Data: json.RawMessage(`{"seq":"x"}`)}
	_, err := msg.GetRigState()
	if err == nil || !strings.Contains(err.Error(), "parse rig data") {
		t.Errorf("GetRigState() error = %v, want parse error", err)
	}
}

func TestJoinLeave(t *testing.T) {
	id := uuid.New()

	join, _ := NewJoinMessage(id, "carol")
	jd, err := join.GetJoinData()
	if err != nil || jd.PlayerID != id || jd.Name != "carol" {
		t.Errorf("GetJoinData() = %+v, %v", jd, err)
	}

	leave, _ := NewLeaveMessage(id, "closed")
	ld, err := leave.GetLeaveData()
	if err != nil || ld.PlayerID != id || ld.Reason != "closed" {
		t.Errorf("GetLeaveData() = %+v, %v", ld, err)
	}
}

func TestPingPong(t *testing.T) {
	ping, _ := NewPingMessage("p1", 1000)
	pd, err := ping.GetPingData()
	if err != nil || pd.ID != "p1" || pd.Timestamp != 1000 {
		t.Errorf("GetPingData() = %+v, %v", pd, err)
	}

	pong, _ := NewPongMessage("p1", 1000, 1025)
	po, err := pong.GetPongData()
	if err != nil || po.LatencyMs != 25 {
		t.Errorf("GetPongData() = %+v, %v", po, err)
	}
}

func TestNewer(t *testing.T) {
	a := RigState{Seq: 3}
	b := RigState{Seq: 4}
	if !b.Newer(a) || a.Newer(b) || a.Newer(a) {
		t.Error("Newer() should order by sequence")
	}
}

func TestVecConversion(t *testing.T) {
	v := r3.Vec{X: 1, Y: -2, Z: 3.5}
	if got := VecFrom(v).R3(); got != v {
		t.Errorf("VecFrom().R3() = %v, want %v", got, v)
	}
}
