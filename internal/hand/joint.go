// Package hand defines the joint enumeration and per-tick hand state shared by
// the pose sources, the clap detector and the sample encoder.
package hand

import "math"

// JointID identifies a tracked joint. The order of the constants is the
// canonical order used for CSV columns and JSON keys.
type JointID int

// Joint identifiers, wrist first, then palm, then each finger from the base
// to the tip.
const (
	Wrist JointID = iota
	Palm
	ThumbMetacarpal
	ThumbProximal
	ThumbDistal
	ThumbTip
	IndexMetacarpal
	IndexProximal
	IndexIntermediate
	IndexDistal
	IndexTip
	MiddleMetacarpal
	MiddleProximal
	MiddleIntermediate
	MiddleDistal
	MiddleTip
	RingMetacarpal
	RingProximal
	RingIntermediate
	RingDistal
	RingTip
	LittleMetacarpal
	LittleProximal
	LittleIntermediate
	LittleDistal
	LittleTip
	NumJoints
)

var jointNames = [NumJoints]string{
	"Wrist", "Palm",
	"ThumbMetacarpal", "ThumbProximal", "ThumbDistal", "ThumbTip",
	"IndexMetacarpal", "IndexProximal", "IndexIntermediate", "IndexDistal", "IndexTip",
	"MiddleMetacarpal", "MiddleProximal", "MiddleIntermediate", "MiddleDistal", "MiddleTip",
	"RingMetacarpal", "RingProximal", "RingIntermediate", "RingDistal", "RingTip",
	"LittleMetacarpal", "LittleProximal", "LittleIntermediate", "LittleDistal", "LittleTip",
}

// String returns the joint name used as a column stem, e.g. "IndexTip".
func (j JointID) String() string {
	if j < 0 || j >= NumJoints {
		return "Invalid"
	}
	return jointNames[j]
}

// Valid reports whether j is one of the enumerated joints.
func (j JointID) Valid() bool {
	return j >= 0 && j < NumJoints
}

// ParseJoint resolves a joint name back to its identifier.
func ParseJoint(name string) (JointID, bool) {
	for i, n := range jointNames {
		if n == name {
			return JointID(i), true
		}
	}
	return 0, false
}

// Joints returns every joint in canonical order.
func Joints() []JointID {
	ids := make([]JointID, NumJoints)
	for i := range ids {
		ids[i] = JointID(i)
	}
	return ids
}

// Vec3 is a position in tracking space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Round rounds every coordinate to the given number of decimal places.
func (v Vec3) Round(places int) Vec3 {
	return Vec3{X: Round(v.X, places), Y: Round(v.Y, places), Z: Round(v.Z, places)}
}

// Distance calculates the Euclidean distance between two positions.
func Distance(a, b Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Quat is a joint orientation.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose is the position and optional orientation of one joint for one tick.
type Pose struct {
	Position       Vec3
	Orientation    Quat
	HasOrientation bool
}

// State is the per-tick state of one hand. Poses only holds the joints that
// were resolved on this tick.
type State struct {
	Tracked bool
	Poses   map[JointID]Pose
}

// Untracked is the zero hand state.
var Untracked = State{}

// Pose returns the pose of a joint. It always reports false for an untracked
// hand.
func (s State) Pose(id JointID) (Pose, bool) {
	if !s.Tracked || s.Poses == nil {
		return Pose{}, false
	}
	p, ok := s.Poses[id]
	return p, ok
}

// Positions returns the positions of every resolved joint.
func (s State) Positions() map[JointID]Vec3 {
	out := make(map[JointID]Vec3, len(s.Poses))
	if !s.Tracked {
		return out
	}
	for id, p := range s.Poses {
		out[id] = p.Position
	}
	return out
}

// Side names which hand a workflow samples from.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Pick returns the state of the requested side.
func (s Side) Pick(left, right State) State {
	if s == Right {
		return right
	}
	return left
}
