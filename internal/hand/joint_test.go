package hand

import (
	"math"
	"testing"
)

func TestJointID_String(t *testing.T) {
	tests := []struct {
		id   JointID
		want string
	}{
		{Wrist, "Wrist"},
		{Palm, "Palm"},
		{IndexTip, "IndexTip"},
		{LittleTip, "LittleTip"},
		{NumJoints, "Invalid"},
		{JointID(-1), "Invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.id.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJoint(t *testing.T) {
	for _, id := range Joints() {
		got, ok := ParseJoint(id.String())
		if !ok || got != id {
			t.Errorf("ParseJoint(%q) = %v, %v; want %v", id.String(), got, ok, id)
		}
	}

	if _, ok := ParseJoint("Elbow"); ok {
		t.Error("ParseJoint should reject unknown names")
	}
}

func TestJoints_CanonicalOrder(t *testing.T) {
	ids := Joints()
	if len(ids) != int(NumJoints) {
		t.Fatalf("len(Joints()) = %d, want %d", len(ids), NumJoints)
	}
	if ids[0] != Wrist || ids[1] != Palm || ids[len(ids)-1] != LittleTip {
		t.Errorf("unexpected order: first=%v second=%v last=%v", ids[0], ids[1], ids[len(ids)-1])
	}
}

func TestDistance(t *testing.T) {
	d := Distance(Vec3{0, 0, 0}, Vec3{3, 4, 0})
	if math.Abs(d-5) > 1e-12 {
		t.Errorf("Distance = %f, want 5", d)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		name   string
		v      float64
		places int
		want   float64
	}{
		{"two places", 0.12345, 2, 0.12},
		{"half away from zero", 0.125, 2, 0.13},
		{"negative", -1.005001, 2, -1.01},
		{"four places", 1.234567, 4, 1.2346},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Round(tt.v, tt.places); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
			}
		})
	}

	if !math.IsNaN(Round(math.NaN(), 2)) {
		t.Error("Round should keep NaN")
	}
}

func TestState_Pose(t *testing.T) {
	poses := map[JointID]Pose{Palm: {Position: Vec3{X: 1}}}

	t.Run("tracked hand returns pose", func(t *testing.T) {
		s := State{Tracked: true, Poses: poses}
		p, ok := s.Pose(Palm)
		if !ok || p.Position.X != 1 {
			t.Errorf("Pose(Palm) = %v, %v", p, ok)
		}
		if _, ok := s.Pose(Wrist); ok {
			t.Error("missing joint should not resolve")
		}
	})

	t.Run("untracked hand never resolves", func(t *testing.T) {
		s := State{Tracked: false, Poses: poses}
		if _, ok := s.Pose(Palm); ok {
			t.Error("untracked hand should not return poses")
		}
		if len(s.Positions()) != 0 {
			t.Error("untracked hand should have no positions")
		}
	})
}

func TestSide_Pick(t *testing.T) {
	left := State{Tracked: true}
	right := State{Tracked: false}

	if !Left.Pick(left, right).Tracked {
		t.Error("Left.Pick should return the left hand")
	}
	if Right.Pick(left, right).Tracked {
		t.Error("Right.Pick should return the right hand")
	}
}
