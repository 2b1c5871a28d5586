package teleop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/faceguide/pkg/command"
	"github.com/gwillem/faceguide/pkg/guidance"
	"github.com/gwillem/faceguide/pkg/vision"
)

type testFrame struct {
	w, h   int
	closed *int
}

func (f testFrame) Width() int  { return f.w }
func (f testFrame) Height() int { return f.h }
func (f testFrame) Close() error {
	if f.closed != nil {
		*f.closed++
	}
	return nil
}

// fakeSource yields n frames, then fails.
type fakeSource struct {
	n      int
	read   int
	closed int
	frames int
}

var errNoCamera = errors.New("no frame")

func (s *fakeSource) Read() (vision.Frame, error) {
	if s.read >= s.n {
		return nil, errNoCamera
	}
	s.read++
	return testFrame{w: 640, h: 480, closed: &s.frames}, nil
}

func (s *fakeSource) Close() error { s.closed++; return nil }

// fakeDetector returns boxes per call, in order; the last entry repeats.
type fakeDetector struct {
	results [][]vision.BoundingBox
	err     error
	panic   bool
	calls   int
}

func (d *fakeDetector) Detect(vision.Frame) ([]vision.BoundingBox, error) {
	if d.panic {
		panic("cv::Exception")
	}
	if d.err != nil {
		return nil, d.err
	}
	i := d.calls
	if i >= len(d.results) {
		i = len(d.results) - 1
	}
	d.calls++
	if i < 0 {
		return nil, nil
	}
	return d.results[i], nil
}

func (d *fakeDetector) Close() error { return nil }

type fakeDisplay struct {
	keys   []int
	shown  []State
	closed bool
}

func (d *fakeDisplay) Show(_ vision.Frame, s State) int {
	d.shown = append(d.shown, s)
	if len(d.keys) == 0 {
		return command.KeyNone
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k
}

func (d *fakeDisplay) Close() error { d.closed = true; return nil }

type recorder struct {
	mu   sync.Mutex
	sent []string
}

func (r *recorder) Publish(_, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, payload)
	return nil
}

func (r *recorder) payloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

func newTestController(t *testing.T, src vision.Source, det vision.Detector, disp Display, rec *recorder, now func() time.Time) *Controller {
	t.Helper()
	d := guidance.NewDispatcher(rec, "VR_control", 500*time.Millisecond)
	cfg := Config{
		Source:   src,
		Detector: det,
		Policy:   guidance.NewPolicy(guidance.DefaultThresholds(), d),
		Display:  disp,
		Now:      now,
	}
	c, err := NewController(cfg)
	require.NoError(t, err)
	return c
}

func TestNewController_RequiresCollaborators(t *testing.T) {
	_, err := NewController(Config{})
	assert.Error(t, err)
}

func TestStep_DispatchesFromFaces(t *testing.T) {
	rec := &recorder{}
	// too close and centered
	det := &fakeDetector{results: [][]vision.BoundingBox{{{X: 210, Y: 100, Width: 220, Height: 220}}}}
	src := &fakeSource{n: 1}
	c := newTestController(t, src, det, nil, rec, stepClock(time.Second))

	quit, err := c.Step()
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, []string{"Backward"}, rec.payloads())
	assert.Equal(t, 1, src.frames, "frame released after the tick")

	s := <-c.States()
	require.Len(t, s.Faces, 1)
	assert.Equal(t, guidance.TooClose, s.Faces[0].Distance)
	assert.Equal(t, command.Backward, s.LastCommand)
	assert.Equal(t, 640, s.FrameWidth)
}

func TestStep_DetectorFailureIsZeroFaces(t *testing.T) {
	for name, det := range map[string]*fakeDetector{
		"error": {err: errors.New("bad frame")},
		"panic": {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			c := newTestController(t, &fakeSource{n: 1}, det, nil, rec, stepClock(time.Second))

			quit, err := c.Step()
			require.NoError(t, err)
			assert.False(t, quit)
			assert.Empty(t, rec.payloads())

			s := <-c.States()
			assert.Empty(t, s.Faces)
		})
	}
}

func TestStep_ReadFailure(t *testing.T) {
	c := newTestController(t, &fakeSource{n: 0}, &fakeDetector{}, nil, &recorder{}, nil)

	_, err := c.Step()
	require.ErrorIs(t, err, errNoCamera)
}

func TestStep_WindowKeys(t *testing.T) {
	rec := &recorder{}
	disp := &fakeDisplay{keys: []int{'w', 'W', command.KeyEscape}}
	c := newTestController(t, &fakeSource{n: 10}, &fakeDetector{}, disp, rec, stepClock(time.Second))

	err := c.Start(context.Background())
	require.NoError(t, err, "ESC ends the loop cleanly")

	assert.Equal(t, []string{"Forward", "Forward"}, rec.payloads(), "manual repeats are not de-duplicated")
	assert.Len(t, disp.shown, 3)
}

func TestStart_ReadFailureEndsLoop(t *testing.T) {
	rec := &recorder{}
	det := &fakeDetector{results: [][]vision.BoundingBox{{{X: 0, Y: 0, Width: 50, Height: 50}}}}
	src := &fakeSource{n: 3}
	c := newTestController(t, src, det, nil, rec, stepClock(600*time.Millisecond))

	err := c.Start(context.Background())
	require.ErrorIs(t, err, errNoCamera)
	assert.Equal(t, 3, src.read)
	// One command per tick: the position command of a tick is always inside
	// the interval of its distance command, and repeats are suppressed.
	assert.Equal(t, []string{"Forward", "Right", "Forward"}, rec.payloads())

	require.NoError(t, c.Close())
	assert.Equal(t, 1, src.closed)
}

func TestStart_Cancelled(t *testing.T) {
	c := newTestController(t, &fakeSource{n: 1000}, &fakeDetector{}, nil, &recorder{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Start(ctx), context.Canceled)
}

// slowSource holds every Read for a while and counts reads that happen
// after it was closed.
type slowSource struct {
	reads     atomic.Int32
	closed    atomic.Bool
	lateReads atomic.Int32
}

func (s *slowSource) Read() (vision.Frame, error) {
	if s.closed.Load() {
		s.lateReads.Add(1)
	}
	s.reads.Add(1)
	time.Sleep(30 * time.Millisecond)
	if s.closed.Load() {
		s.lateReads.Add(1)
	}
	return testFrame{w: 640, h: 480}, nil
}

func (s *slowSource) Close() error { s.closed.Store(true); return nil }

func TestClose_WaitsForLoop(t *testing.T) {
	src := &slowSource{}
	c := newTestController(t, src, &fakeDetector{}, nil, &recorder{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	require.Eventually(t, func() bool { return src.reads.Load() > 0 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, c.Close())
	assert.Zero(t, src.lateReads.Load())
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStart_AfterClose(t *testing.T) {
	c := newTestController(t, &fakeSource{n: 1}, &fakeDetector{}, nil, &recorder{}, nil)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Start(context.Background()), ErrClosed)
}

func TestManual_RateLimited(t *testing.T) {
	rec := &recorder{}
	c := newTestController(t, &fakeSource{}, &fakeDetector{}, nil, rec, stepClock(100*time.Millisecond))

	assert.True(t, c.Manual(command.Stop))
	assert.False(t, c.Manual(command.Stop))
	assert.Equal(t, []string{"Stop"}, rec.payloads())
}

func TestLogs_ReportSends(t *testing.T) {
	c := newTestController(t, &fakeSource{}, &fakeDetector{}, nil, &recorder{}, stepClock(time.Second))

	c.Manual(command.RotateLeft)
	c.Notify("Connected to broker tcp://x:1883")

	assert.Contains(t, <-c.Logs(), "Manual command sent: RotateLeft")
	assert.Contains(t, <-c.Logs(), "Connected to broker")
}

func TestDriver(t *testing.T) {
	rec := &recorder{}
	d := guidance.NewDispatcher(rec, "VR_control", 0)
	dr := NewDriver(d, stepClock(time.Second))

	assert.True(t, dr.Manual(command.Left))
	assert.True(t, dr.Manual(command.Left))
	assert.Equal(t, []string{"Left", "Left"}, rec.payloads())
	assert.Equal(t, "VR_control", dr.Topic())
	assert.Contains(t, <-dr.Logs(), "Sent: Left")
}
