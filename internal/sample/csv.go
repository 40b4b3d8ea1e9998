package sample

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ayusman/handsignal/internal/hand"
)

// metaColumns precede the joint columns in every row.
var metaColumns = []string{"ClapIndex", "TimeStamp", "Gesture", "SampleNumber"}

var header = buildHeader()

func buildHeader() []string {
	h := append([]string(nil), metaColumns...)
	for _, id := range hand.Joints() {
		name := id.String()
		h = append(h, name+"_X", name+"_Y", name+"_Z")
	}
	return h
}

// Header returns the CSV column names.
func Header() []string {
	return append([]string(nil), header...)
}

// Row formats a sample as a CSV record. Coordinates use four decimals and a
// missing joint is written as NaN in each of its three columns.
func Row(s Sample) []string {
	row := make([]string, 0, len(header))
	row = append(row,
		strconv.Itoa(s.Run),
		s.Time.Format(TimeLayout),
		s.Gesture,
		strconv.Itoa(s.Number),
	)
	for _, id := range hand.Joints() {
		p, ok := s.Joints[id]
		if !ok {
			row = append(row, "NaN", "NaN", "NaN")
			continue
		}
		row = append(row, formatCoord(p.X), formatCoord(p.Y), formatCoord(p.Z))
	}
	return row
}

// ParseRow is the inverse of Row. Timestamps are read in the local zone.
func ParseRow(row []string) (Sample, error) {
	if len(row) != len(header) {
		return Sample{}, fmt.Errorf("row has %d columns, want %d", len(row), len(header))
	}

	run, err := strconv.Atoi(row[0])
	if err != nil {
		return Sample{}, fmt.Errorf("parse ClapIndex: %w", err)
	}
	at, err := time.ParseInLocation(TimeLayout, row[1], time.Local)
	if err != nil {
		return Sample{}, fmt.Errorf("parse TimeStamp: %w", err)
	}
	number, err := strconv.Atoi(row[3])
	if err != nil {
		return Sample{}, fmt.Errorf("parse SampleNumber: %w", err)
	}

	s := Sample{
		Run:     run,
		Time:    at,
		Gesture: row[2],
		Number:  number,
		Joints:  make(map[hand.JointID]hand.Vec3),
	}

	col := len(metaColumns)
	for _, id := range hand.Joints() {
		var v [3]float64
		for i := range v {
			f, err := strconv.ParseFloat(row[col+i], 64)
			if err != nil {
				return Sample{}, fmt.Errorf("parse %s: %w", header[col+i], err)
			}
			v[i] = f
		}
		col += 3
		if math.IsNaN(v[0]) && math.IsNaN(v[1]) && math.IsNaN(v[2]) {
			continue
		}
		s.Joints[id] = hand.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	return s, nil
}

func formatCoord(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
