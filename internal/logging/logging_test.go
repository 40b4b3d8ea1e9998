package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"chatty", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := NewWithOutput(tt.level, &bytes.Buffer{})
			if l.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", l.GetLevel(), tt.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("info", &buf)

	Component(l, "clap").Info("Clap detected")

	out := buf.String()
	if !strings.Contains(out, "component=clap") {
		t.Errorf("expected component field in %q", out)
	}
	if !strings.Contains(out, "Clap detected") {
		t.Errorf("expected message in %q", out)
	}
}
