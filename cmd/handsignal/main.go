package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handsignal/internal/app"
	"github.com/ayusman/handsignal/internal/capture"
	"github.com/ayusman/handsignal/internal/classifier"
	"github.com/ayusman/handsignal/internal/config"
	"github.com/ayusman/handsignal/internal/detector"
	"github.com/ayusman/handsignal/internal/display"
	"github.com/ayusman/handsignal/internal/logging"
	"github.com/ayusman/handsignal/internal/metrics"
	"github.com/ayusman/handsignal/internal/publish"
	"github.com/ayusman/handsignal/internal/sample"
	"github.com/ayusman/handsignal/internal/server"
	"github.com/ayusman/handsignal/internal/store"
	"github.com/ayusman/handsignal/internal/tray"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		// The logger is configured from the config, so it is not available yet.
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("HandSignal stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("mode", cfg.Mode).Info("HandSignal starting")
	m := metrics.New()

	// Resources whose failure is fatal are acquired before anything runs.
	var clf *classifier.Classifier
	if cfg.Mode == config.ModeLive {
		net, err := classifier.LoadNet(cfg.Model.Path, cfg.Model.Layout)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		clf = classifier.New(net, cfg.Model.Labels)
		defer clf.Close()
		log.WithField("model", cfg.Model.Path).Info("Model loaded")
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		var err error
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	sinks := []sample.Sink{sample.NewCSVWriter(cfg.Collect.OutputDir)}
	if cfg.Collect.JSON {
		sinks = append(sinks, sample.NewJSONDir(cfg.Collect.OutputDir))
	}
	if st != nil {
		sinks = append(sinks, store.NewSampleSink(st))
	}

	// One device frame per period is shared by the pose tracker, the
	// classifier grabber and the preview stream.
	camera := capture.NewSharedCamera(capture.NewCamera(capture.Config{
		DeviceID: cfg.Host.CameraID,
		Width:    cfg.Host.CaptureWidth,
		Height:   cfg.Host.CaptureHeight,
		FPS:      cfg.Host.FPS,
	}))
	if err := camera.Open(); err != nil {
		return fmt.Errorf("open camera %d: %w", cfg.Host.CameraID, err)
	}
	defer camera.Close()

	tracker, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:      cfg.Pose.MaxHands,
		MinConfidence: cfg.Pose.MinConfidence,
		Script:        cfg.Pose.Script,
		Python:        cfg.Pose.Python,
	}, log)
	if err != nil {
		return fmt.Errorf("hand tracker: %w", err)
	}
	defer tracker.Close()
	poses := detector.NewSource(camera, tracker, cfg.Pose.MinConfidence, log)

	conn := publish.NewWSConn(publish.WSConfig{
		URL:         cfg.NATS.URL,
		DialTimeout: cfg.NATS.DialTimeout,
		MaxRetries:  cfg.NATS.MaxRetries,
		SendBuffer:  cfg.NATS.SendBuffer,
	}, log)
	pub := publish.NewPublisher(conn, publish.Subjects{
		Joints: cfg.NATS.JointSubject,
		Label:  cfg.NATS.LabelSubject,
	}, log, m)

	hub := server.NewStatusHub(log)
	displays := display.Multi{display.NewLog(log), hub}
	var tr *tray.Tray
	if cfg.Tray.Enabled {
		tr = tray.New()
		displays = append(displays, tr)
	}

	deps := app.Deps{
		Poses:     poses,
		Frames:    capture.NewGrabber(camera),
		Display:   displays,
		Publisher: pub,
		Sinks:     sinks,
		Log:       log,
		Metrics:   m,
	}
	if clf != nil {
		deps.Classifier = clf
	}
	orch := app.NewOrchestrator(deps, *cfg)
	host := app.New(orch, cfg.Host.FPS, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Publishing is best effort, so a connection that gives up is not fatal.
		if err := conn.Run(gctx); err != nil {
			log.WithError(err).Error("NATS connection gave up, frames will be dropped")
		}
		return nil
	})
	g.Go(func() error {
		return poses.Run(gctx, time.Second/time.Duration(cfg.Host.FPS))
	})
	g.Go(func() error {
		return host.Run(gctx)
	})

	if cfg.Server.Addr != "" {
		webDir := findWebDir()
		if webDir != "" {
			log.WithField("dir", webDir).Info("Serving static files")
		}
		srv := server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			Camera:    camera,
			Hub:       hub,
			Metrics:   m,
			Status:    func() any { return orch.Status() },
			Log:       log,
		})
		g.Go(func() error {
			return srv.Run(gctx, cfg.Server.Addr)
		})
	}

	if tr != nil {
		tr.OnToggle(host.SetEnabled)
		tr.OnQuit(stop)
		tr.OnOpenStatus(func() {
			if err := openBrowser(statusURL(cfg.Server.Addr)); err != nil {
				log.WithError(err).Warn("Failed to open status page")
			}
		})
		go func() {
			<-gctx.Done()
			tr.Quit()
		}()
		// systray needs the main goroutine.
		tr.Run()
		stop()
	}

	err = g.Wait()
	log.Info("HandSignal stopped")
	return err
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handsignal/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handsignal", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func statusURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/api/status"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
