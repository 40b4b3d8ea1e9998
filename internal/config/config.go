// Package config defines the process configuration and its defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/handsignal/internal/hand"
)

// Mode selects what a clap starts.
type Mode string

const (
	// ModeLive toggles continuous classification on each clap.
	ModeLive Mode = "live"
	// ModeCollect starts a timed, labelled sampling run on each clap.
	ModeCollect Mode = "collect"
)

// Layout is the tensor layout the model expects.
type Layout string

const (
	LayoutNHWC Layout = "nhwc"
	LayoutNCHW Layout = "nchw"
)

// ModelInputSize is the square resolution the classifier resizes frames to.
// Live frames must be at least this large.
const ModelInputSize = 224

// DefaultLabels is the classifier label table, indexed by class. These are
// the strings subscribers receive on the label subject.
var DefaultLabels = []string{
	"left", "up", "right", "down", "back", "forward", "turn left", "turn right",
}

// Config contains process configuration.
type Config struct {
	// Mode is either "live" or "collect".
	Mode Mode `koanf:"mode"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	Host    HostConfig    `koanf:"host"`
	Pose    PoseConfig    `koanf:"pose"`
	Clap    ClapConfig    `koanf:"clap"`
	Live    LiveConfig    `koanf:"live"`
	Collect CollectConfig `koanf:"collect"`

	// Settle is the pause after a workflow before claps are accepted again.
	Settle time.Duration `koanf:"settle"`

	Model  ModelConfig  `koanf:"model"`
	NATS   NATSConfig   `koanf:"nats"`
	Store  StoreConfig  `koanf:"store"`
	Server ServerConfig `koanf:"server"`
	Tray   TrayConfig   `koanf:"tray"`
}

// HostConfig describes the per-frame driver and the camera.
type HostConfig struct {
	FPS      int `koanf:"fps"`
	CameraID int `koanf:"camera_id"`
	// CaptureWidth and CaptureHeight are requested from the device.
	CaptureWidth  int `koanf:"capture_width"`
	CaptureHeight int `koanf:"capture_height"`
	// FrameWidth and FrameHeight are what the classifier is handed.
	FrameWidth  int `koanf:"frame_width"`
	FrameHeight int `koanf:"frame_height"`
}

// PoseConfig configures the MediaPipe hand tracker.
type PoseConfig struct {
	Script        string  `koanf:"script"`
	Python        string  `koanf:"python"`
	MaxHands      int     `koanf:"max_hands"`
	MinConfidence float64 `koanf:"min_confidence"`
}

// ClapConfig tunes the clap detector.
type ClapConfig struct {
	DistanceThreshold float64       `koanf:"distance_threshold"`
	Cooldown          time.Duration `koanf:"cooldown"`
}

// LiveConfig tunes the classification loop.
type LiveConfig struct {
	Interval     time.Duration `koanf:"interval"`
	TriggerDelay time.Duration `koanf:"trigger_delay"`
	ToggleHold   time.Duration `koanf:"toggle_hold"`
	Hand         hand.Side     `koanf:"hand"`
}

// CollectConfig tunes data-collection runs.
type CollectConfig struct {
	Wait      time.Duration `koanf:"wait"`
	Samples   int           `koanf:"samples"`
	Interval  time.Duration `koanf:"interval"`
	Gestures  []string      `koanf:"gestures"`
	Hand      hand.Side     `koanf:"hand"`
	OutputDir string        `koanf:"output_dir"`
	JSON      bool          `koanf:"json"`
}

// ModelConfig points at the classifier asset.
type ModelConfig struct {
	Path   string   `koanf:"path"`
	Layout Layout   `koanf:"layout"`
	Labels []string `koanf:"labels"`
}

// NATSConfig configures the websocket publish target.
type NATSConfig struct {
	URL          string        `koanf:"url"`
	JointSubject string        `koanf:"joint_subject"`
	LabelSubject string        `koanf:"label_subject"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	MaxRetries   uint64        `koanf:"max_retries"`
	// SendBuffer is how many frames may wait for a slow server before new
	// ones are dropped.
	SendBuffer int `koanf:"send_buffer"`
}

// StoreConfig locates the SQLite archive. An empty path disables it.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// ServerConfig configures the status server. An empty address disables it.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// TrayConfig toggles the system tray display.
type TrayConfig struct {
	Enabled bool `koanf:"enabled"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Mode:     ModeLive,
		LogLevel: "info",
		Host: HostConfig{
			FPS:           30,
			CameraID:      0,
			CaptureWidth:  640,
			CaptureHeight: 480,
			FrameWidth:    224,
			FrameHeight:   224,
		},
		Pose: PoseConfig{
			MaxHands:      2,
			MinConfidence: 0.5,
		},
		Clap: ClapConfig{
			DistanceThreshold: 0.1,
			Cooldown:          2 * time.Second,
		},
		Live: LiveConfig{
			Interval:     200 * time.Millisecond,
			TriggerDelay: 500 * time.Millisecond,
			ToggleHold:   time.Second,
			Hand:         hand.Left,
		},
		Collect: CollectConfig{
			Wait:      3 * time.Second,
			Samples:   10,
			Interval:  200 * time.Millisecond,
			Gestures:  append([]string(nil), DefaultLabels...),
			Hand:      hand.Left,
			OutputDir: "captures",
			JSON:      false,
		},
		Settle: 1500 * time.Millisecond,
		Model: ModelConfig{
			Path:   "models/gesture.onnx",
			Layout: LayoutNHWC,
			Labels: append([]string(nil), DefaultLabels...),
		},
		NATS: NATSConfig{
			URL:          "ws://localhost:8081/nats",
			JointSubject: "hand.jointData",
			LabelSubject: "hand.prediction",
			DialTimeout:  5 * time.Second,
			MaxRetries:   5,
			SendBuffer:   64,
		},
		Server: ServerConfig{Addr: ":8080"},
		Tray:   TrayConfig{Enabled: false},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string

	switch c.Mode {
	case ModeLive, ModeCollect:
	default:
		problems = append(problems, fmt.Sprintf("mode must be %q or %q, got %q", ModeLive, ModeCollect, c.Mode))
	}
	if c.Host.FPS <= 0 {
		problems = append(problems, "host.fps must be positive")
	}
	if c.Host.FrameWidth <= 0 || c.Host.FrameHeight <= 0 {
		problems = append(problems, "host frame size must be positive")
	}
	if c.Pose.MinConfidence < 0 || c.Pose.MinConfidence > 1 {
		problems = append(problems, "pose.min_confidence must be within [0, 1]")
	}
	if c.Clap.DistanceThreshold <= 0 {
		problems = append(problems, "clap.distance_threshold must be positive")
	}
	if c.Clap.Cooldown < 0 {
		problems = append(problems, "clap.cooldown must not be negative")
	}
	if c.Live.Interval < 0 || c.Collect.Interval < 0 || c.Collect.Wait < 0 || c.Settle < 0 {
		problems = append(problems, "durations must not be negative")
	}
	if !validSide(c.Live.Hand) || !validSide(c.Collect.Hand) {
		problems = append(problems, `hand must be "left" or "right"`)
	}
	if c.Mode == ModeCollect {
		if c.Collect.Samples <= 0 {
			problems = append(problems, "collect.samples must be positive")
		}
		if len(c.Collect.Gestures) == 0 {
			problems = append(problems, "collect.gestures must not be empty")
		}
	}
	if c.Mode == ModeLive {
		if c.Host.FrameWidth < ModelInputSize || c.Host.FrameHeight < ModelInputSize {
			problems = append(problems, fmt.Sprintf("host frame size must be at least %dx%d in live mode", ModelInputSize, ModelInputSize))
		}
		if c.Model.Path == "" {
			problems = append(problems, "model.path is required in live mode")
		}
		if len(c.Model.Labels) == 0 {
			problems = append(problems, "model.labels must not be empty")
		}
	}
	switch c.Model.Layout {
	case LayoutNHWC, LayoutNCHW:
	default:
		problems = append(problems, fmt.Sprintf("model.layout must be %q or %q", LayoutNHWC, LayoutNCHW))
	}
	if c.NATS.JointSubject == "" || c.NATS.LabelSubject == "" {
		problems = append(problems, "nats subjects must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func validSide(s hand.Side) bool {
	return s == hand.Left || s == hand.Right
}
