// Package sample encodes joint samples for publishing and persistence.
package sample

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/ayusman/handsignal/internal/hand"
)

// TimeLayout is the timestamp layout used in every encoding.
const TimeLayout = "2006-01-02 15:04:05.000"

// Sample is one tick of joint positions with its labelling metadata.
type Sample struct {
	Run     int
	Time    time.Time
	Gesture string
	Number  int
	Joints  map[hand.JointID]hand.Vec3
}

// New builds a sample from a hand state. Untracked hands yield no joints.
func New(run, number int, gesture string, at time.Time, state hand.State) Sample {
	return Sample{
		Run:     run,
		Time:    at,
		Gesture: gesture,
		Number:  number,
		Joints:  state.Positions(),
	}
}

// Field is one key/value pair of an encoded sample.
type Field struct {
	Key   string
	Value any
}

// Fields is an ordered key/value mapping that marshals to a JSON object
// with keys in insertion order.
type Fields []Field

// Get returns the value stored under key.
func (f Fields) Get(key string) (any, bool) {
	for _, kv := range f {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, kv := range f {
		keys[i] = kv.Key
	}
	return keys
}

// MarshalJSON implements json.Marshaler.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode produces the transmission mapping: timestamp, gesture, sampleNumber,
// clapIndex, then <Joint>_X/_Y/_Z rounded to two decimals for every present
// joint in canonical order. Joints with a NaN coordinate are left out since
// JSON cannot carry them.
func Encode(s Sample) Fields {
	f := Fields{
		{Key: "timestamp", Value: s.Time.Format(TimeLayout)},
		{Key: "gesture", Value: s.Gesture},
		{Key: "sampleNumber", Value: s.Number},
		{Key: "clapIndex", Value: s.Run},
	}
	for _, id := range presentJoints(s.Joints) {
		p := s.Joints[id]
		if hasNaN(p) {
			continue
		}
		r := p.Round(2)
		name := id.String()
		f = append(f,
			Field{Key: name + "_X", Value: r.X},
			Field{Key: name + "_Y", Value: r.Y},
			Field{Key: name + "_Z", Value: r.Z},
		)
	}
	return f
}

// Payload marshals the transmission mapping as indented JSON.
func Payload(s Sample) ([]byte, error) {
	return json.MarshalIndent(Encode(s), "", "  ")
}

// Record is the structured per-sample form kept in the archive.
type Record struct {
	ClapIndex    int                  `json:"clapIndex"`
	Timestamp    string               `json:"timestamp"`
	Gesture      string               `json:"gesture"`
	SampleNumber int                  `json:"sampleNumber"`
	Joints       map[string]hand.Vec3 `json:"joints"`
}

// ToRecord converts a sample to its archive record with positions rounded to
// two decimals.
func ToRecord(s Sample) Record {
	r := Record{
		ClapIndex:    s.Run,
		Timestamp:    s.Time.Format(TimeLayout),
		Gesture:      s.Gesture,
		SampleNumber: s.Number,
		Joints:       make(map[string]hand.Vec3, len(s.Joints)),
	}
	for id, p := range s.Joints {
		if !id.Valid() || hasNaN(p) {
			continue
		}
		r.Joints[id.String()] = p.Round(2)
	}
	return r
}

func presentJoints(joints map[hand.JointID]hand.Vec3) []hand.JointID {
	ids := make([]hand.JointID, 0, len(joints))
	for id := range joints {
		if id.Valid() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func hasNaN(v hand.Vec3) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}
