package detector

import (
	"strings"

	"github.com/ayusman/handsignal/internal/hand"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// landmarkJoints maps MediaPipe landmarks onto the joint enumeration. The
// finger metacarpals have no landmark and the palm is derived.
var landmarkJoints = [NumLandmarks]hand.JointID{
	Wrist:     hand.Wrist,
	ThumbCMC:  hand.ThumbMetacarpal,
	ThumbMCP:  hand.ThumbProximal,
	ThumbIP:   hand.ThumbDistal,
	ThumbTip:  hand.ThumbTip,
	IndexMCP:  hand.IndexProximal,
	IndexPIP:  hand.IndexIntermediate,
	IndexDIP:  hand.IndexDistal,
	IndexTip:  hand.IndexTip,
	MiddleMCP: hand.MiddleProximal,
	MiddlePIP: hand.MiddleIntermediate,
	MiddleDIP: hand.MiddleDistal,
	MiddleTip: hand.MiddleTip,
	RingMCP:   hand.RingProximal,
	RingPIP:   hand.RingIntermediate,
	RingDIP:   hand.RingDistal,
	RingTip:   hand.RingTip,
	PinkyMCP:  hand.LittleProximal,
	PinkyPIP:  hand.LittleIntermediate,
	PinkyDIP:  hand.LittleDistal,
	PinkyTip:  hand.LittleTip,
}

func (p Point3D) vec() hand.Vec3 {
	return hand.Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// State converts the landmarks into a tracked hand state. The palm is the
// midpoint between the wrist and the middle finger knuckle.
func (h *HandLandmarks) State() hand.State {
	if h == nil {
		return hand.Untracked
	}

	poses := make(map[hand.JointID]hand.Pose, NumLandmarks+1)
	for i, id := range landmarkJoints {
		poses[id] = hand.Pose{Position: h.Points[i].vec()}
	}

	w, m := h.Points[Wrist], h.Points[MiddleMCP]
	poses[hand.Palm] = hand.Pose{Position: hand.Vec3{
		X: (w.X + m.X) / 2,
		Y: (w.Y + m.Y) / 2,
		Z: (w.Z + m.Z) / 2,
	}}

	return hand.State{Tracked: true, Poses: poses}
}

// Side returns the hand side named by the handedness label, defaulting to
// right for anything other than "Left".
func (h *HandLandmarks) Side() hand.Side {
	if strings.EqualFold(h.Handedness, "left") {
		return hand.Left
	}
	return hand.Right
}

// Split assigns detected hands to sides. When two hands claim the same side
// the higher score wins; hands below minScore are ignored.
func Split(hands []HandLandmarks, minScore float64) (left, right hand.State) {
	var best [2]*HandLandmarks
	for i := range hands {
		h := &hands[i]
		if h.Score < minScore {
			continue
		}
		slot := 1
		if h.Side() == hand.Left {
			slot = 0
		}
		if best[slot] == nil || h.Score > best[slot].Score {
			best[slot] = h
		}
	}

	left, right = hand.Untracked, hand.Untracked
	if best[0] != nil {
		left = best[0].State()
	}
	if best[1] != nil {
		right = best[1].State()
	}
	return left, right
}
