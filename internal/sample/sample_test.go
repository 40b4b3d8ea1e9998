package sample

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/handsignal/internal/hand"
)

func testSample() Sample {
	return Sample{
		Run:     2,
		Time:    time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.Local),
		Gesture: "left",
		Number:  3,
		Joints: map[hand.JointID]hand.Vec3{
			hand.Wrist:    {X: 0.123456, Y: -0.5, Z: 1.0049},
			hand.IndexTip: {X: 0.3, Y: 0.2, Z: 0.1},
		},
	}
}

func TestEncode_KeyOrder(t *testing.T) {
	f := Encode(testSample())

	want := []string{
		"timestamp", "gesture", "sampleNumber", "clapIndex",
		"Wrist_X", "Wrist_Y", "Wrist_Z",
		"IndexTip_X", "IndexTip_Y", "IndexTip_Z",
	}
	if got := f.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestEncode_Values(t *testing.T) {
	f := Encode(testSample())

	tests := []struct {
		key  string
		want any
	}{
		{"timestamp", "2026-03-14 09:26:53.589"},
		{"gesture", "left"},
		{"sampleNumber", 3},
		{"clapIndex", 2},
		{"Wrist_X", 0.12},
		{"Wrist_Y", -0.5},
		{"Wrist_Z", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := f.Get(tt.key)
			if !ok {
				t.Fatalf("missing key %s", tt.key)
			}
			if got != tt.want {
				t.Errorf("%s = %v (%T), want %v (%T)", tt.key, got, got, tt.want, tt.want)
			}
		})
	}

	if _, ok := f.Get("Palm_X"); ok {
		t.Error("absent joints should not be encoded")
	}
}

func TestEncode_SkipsNaNJoints(t *testing.T) {
	s := testSample()
	s.Joints[hand.Palm] = hand.Vec3{X: math.NaN()}

	f := Encode(s)
	if _, ok := f.Get("Palm_X"); ok {
		t.Error("joint with NaN coordinates should be skipped")
	}
	if _, err := json.Marshal(f); err != nil {
		t.Errorf("marshal: %v", err)
	}
}

func TestFields_MarshalJSON(t *testing.T) {
	f := Fields{{Key: "b", Value: 1}, {Key: "a", Value: "x"}}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"b":1,"a":"x"}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestPayload_Indented(t *testing.T) {
	data, err := Payload(testSample())
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}

	s := string(data)
	if !strings.HasPrefix(s, "{\n  \"timestamp\": \"2026-03-14 09:26:53.589\",\n  \"gesture\": \"left\",") {
		t.Errorf("unexpected payload prefix:\n%s", s)
	}
	if !strings.Contains(s, "\"Wrist_X\": 0.12") {
		t.Errorf("payload should carry rounded coordinates:\n%s", s)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
}

func TestToRecord(t *testing.T) {
	r := ToRecord(testSample())

	if r.ClapIndex != 2 || r.SampleNumber != 3 || r.Gesture != "left" {
		t.Errorf("unexpected metadata: %+v", r)
	}
	if r.Joints["Wrist"] != (hand.Vec3{X: 0.12, Y: -0.5, Z: 1.0}) {
		t.Errorf("Wrist = %+v", r.Joints["Wrist"])
	}
	if len(r.Joints) != 2 {
		t.Errorf("len(Joints) = %d, want 2", len(r.Joints))
	}
}

func TestNew_FromState(t *testing.T) {
	state := hand.State{
		Tracked: true,
		Poses: map[hand.JointID]hand.Pose{
			hand.Palm: {Position: hand.Vec3{X: 1, Y: 2, Z: 3}},
		},
	}
	at := time.Now()

	s := New(4, 1, "up", at, state)
	if s.Run != 4 || s.Number != 1 || s.Gesture != "up" || !s.Time.Equal(at) {
		t.Errorf("unexpected sample %+v", s)
	}
	if s.Joints[hand.Palm] != (hand.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Palm = %+v", s.Joints[hand.Palm])
	}

	untracked := New(4, 1, "up", at, hand.Untracked)
	if len(untracked.Joints) != 0 {
		t.Error("untracked hand should produce no joints")
	}
}
