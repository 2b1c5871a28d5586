package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/faceguide/internal/log"
	"github.com/gwillem/faceguide/pkg/channel"
	"github.com/gwillem/faceguide/pkg/guidance"
	"github.com/gwillem/faceguide/pkg/teleop"
	"github.com/gwillem/faceguide/pkg/tui"
	"github.com/gwillem/faceguide/pkg/vision/opencv"
)

type GuideCommand struct {
	ChannelOptions `group:"Channel Options"`

	Window   bool   `long:"window" short:"w" description:"Show the camera in an OpenCV window instead of the terminal dashboard"`
	Camera   *int   `long:"camera" env:"FACEGUIDE_CAMERA" description:"Camera device index"`
	NoMirror bool   `long:"no-mirror" description:"Do not flip the camera image horizontally"`
	Cascade  string `long:"cascade" env:"FACEGUIDE_CASCADE" description:"Haar cascade file"`
}

func (c *GuideCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c.ChannelOptions.apply(cfg)
	if c.Camera != nil {
		cfg.Camera.Device = *c.Camera
	}
	if c.NoMirror {
		cfg.Camera.Mirror = false
	}
	if c.Cascade != "" {
		cfg.Camera.Cascade = c.Cascade
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	initLogging(cfg, !c.Window)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cam, err := opencv.OpenCamera(opencv.CameraConfig{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		Mirror: cfg.Camera.Mirror,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Camera not accessible. Check the connection, close other applications using it, or try another --camera index.")
		return err
	}

	det, err := opencv.NewCascadeDetector(cfg.Camera.Cascade)
	if err != nil {
		cam.Close()
		return err
	}

	n := &notifier{}
	ch, title, err := openChannel(ctx, cfg, n)
	if err != nil {
		cam.Close()
		det.Close()
		return err
	}
	defer ch.Close()

	disp := guidance.NewDispatcher(ch, cfg.Broker.Topic, cfg.RateLimit())
	policy := guidance.NewPolicy(cfg.Guidance.Thresholds, disp)

	tcfg := teleop.Config{Source: cam, Detector: det, Policy: policy}
	if c.Window {
		tcfg.Display = opencv.NewWindow(cfg.Guidance.Thresholds.Optimal)
	}
	ctrl, err := teleop.NewController(tcfg)
	if err != nil {
		cam.Close()
		det.Close()
		return err
	}
	defer ctrl.Close()
	n.Set(ctrl.Notify)

	log.Info(log.Fields{"channel": title, "camera": cfg.Camera.Device, "cascade": det.Path()}, "face guidance starting")

	if c.Window {
		err := ctrl.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(log.Fields{"error": err}, "guidance loop stopped")
		}
	}()

	p := tea.NewProgram(tui.NewGuideModel(ctrl, title, func() bool { return channel.Connected(ch) }, cfg.Guidance.Thresholds), tea.WithAltScreen())
	final, err := p.Run()

	// The camera and detector are released by the deferred Close calls; the
	// loop must be out of Read and Detect by then.
	cancel()
	<-done

	if err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	if m, ok := final.(tui.GuideModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
