// Package teleop runs the face guidance loop: frames are read, faces detected
// and classified, and the resulting commands dispatched to the robot.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gwillem/faceguide/internal/log"
	"github.com/gwillem/faceguide/pkg/command"
	"github.com/gwillem/faceguide/pkg/guidance"
	"github.com/gwillem/faceguide/pkg/vision"
)

// Start errors.
var (
	ErrRunning = errors.New("already running")
	ErrClosed  = errors.New("controller closed")
)

// State is the result of one frame tick.
type State struct {
	Faces       []guidance.Observation
	FrameWidth  int
	FrameHeight int
	LastCommand command.Command
	Timestamp   time.Time
	Error       error
}

// Display renders a frame with its overlay and polls the keyboard.
// Show returns the pressed key code, or command.KeyNone.
type Display interface {
	Show(frame vision.Frame, s State) int
	Close() error
}

// Config holds the collaborators of a Controller.
type Config struct {
	Source   vision.Source
	Detector vision.Detector
	Policy   *guidance.Policy
	Display  Display          // optional; keys are read from it when set
	Now      func() time.Time // defaults to time.Now
}

// Controller manages the guidance loop.
type Controller struct {
	src     vision.Source
	det     vision.Detector
	policy  *guidance.Policy
	display Display
	now     func() time.Time

	mu      sync.Mutex
	running bool
	closed  bool
	loop    sync.WaitGroup
	stateCh chan State
	logCh   chan string
}

// NewController creates a controller. Source, Detector and Policy are required.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Source == nil || cfg.Detector == nil || cfg.Policy == nil {
		return nil, errors.New("create controller: source, detector and policy are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Controller{
		src:     cfg.Source,
		det:     cfg.Detector,
		policy:  cfg.Policy,
		display: cfg.Display,
		now:     cfg.Now,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 32),
	}
	c.policy.Dispatcher.OnSend(func(cmd command.Command, manual bool) {
		if manual {
			c.log("Manual command sent: %s", cmd)
			return
		}
		c.log("Sent: %s", cmd)
	})
	return c, nil
}

// States returns a channel that receives state updates. Only the latest
// state is kept when the reader falls behind.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Notify queues msg for the log stream. It never blocks.
func (c *Controller) Notify(msg string) {
	c.log("%s", msg)
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", c.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Manual dispatches a keyboard command, bypassing de-duplication.
func (c *Controller) Manual(cmd command.Command) bool {
	ok := c.policy.Dispatcher.TryManual(cmd, c.now())
	if !ok {
		log.Debug(log.Fields{"command": cmd}, "manual command rate limited")
	}
	return ok
}

// Start runs the loop until ctx is cancelled, the display reports ESC, or a
// frame cannot be read. Quitting via ESC returns nil.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.loop.Add(1)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		c.loop.Done()
	}()

	c.log("Face guidance started (topic %s, every %v)", c.policy.Dispatcher.Topic(), c.policy.Dispatcher.Interval())
	for {
		select {
		case <-ctx.Done():
			c.log("Face guidance stopped")
			return ctx.Err()
		default:
		}

		quit, err := c.Step()
		if err != nil {
			c.log("Camera error: %v", err)
			c.sendState(State{Error: err, Timestamp: c.now()})
			return err
		}
		if quit {
			c.log("Face guidance stopped")
			return nil
		}
	}
}

// Step processes a single frame. quit is true when the display reported ESC.
func (c *Controller) Step() (quit bool, err error) {
	frame, err := c.src.Read()
	if err != nil {
		return false, fmt.Errorf("read frame: %w", err)
	}
	if fc, ok := frame.(io.Closer); ok {
		defer fc.Close()
	}

	boxes := c.detect(frame)
	now := c.now()
	obs := c.policy.Process(boxes, frame.Width(), now)

	s := State{
		Faces:       obs,
		FrameWidth:  frame.Width(),
		FrameHeight: frame.Height(),
		LastCommand: c.policy.Dispatcher.State().LastCommand,
		Timestamp:   now,
	}
	c.sendState(s)

	if c.display == nil {
		return false, nil
	}
	key := c.display.Show(frame, s)
	if key == command.KeyEscape {
		return true, nil
	}
	if cmd, ok := command.FromKeyCode(key); ok {
		c.Manual(cmd)
	}
	return false, nil
}

// detect treats detector failures, including panics from native code, as zero faces.
func (c *Controller) detect(frame vision.Frame) (boxes []vision.BoundingBox) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.Fields{"panic": r}, "face detection panicked")
			c.log("Detection error: %v", r)
			boxes = nil
		}
	}()

	boxes, err := c.det.Detect(frame)
	if err != nil {
		log.Warn(log.Fields{"error": err}, "face detection failed")
		c.log("Detection error: %v", err)
		return nil
	}
	return boxes
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

// Close waits for a running loop to return, then releases the camera, the
// detector and the display. Cancel the context passed to Start first.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.loop.Wait()

	var errs []error
	if err := c.src.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.det.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.display != nil {
		if err := c.display.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close controller: %w", errors.Join(errs...))
	}
	return nil
}
