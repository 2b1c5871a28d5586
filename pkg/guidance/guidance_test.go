package guidance

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/faceguide/pkg/command"
	"github.com/gwillem/faceguide/pkg/vision"
)

const testTopic = "VR_control"

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// recorder is a Publisher that records payloads and can be told to fail.
type recorder struct {
	sent   []string
	topics []string
	fails  int // number of upcoming publishes that fail
}

var errBroker = errors.New("broker unreachable")

func (r *recorder) Publish(topic, payload string) error {
	if r.fails > 0 {
		r.fails--
		return errBroker
	}
	r.topics = append(r.topics, topic)
	r.sent = append(r.sent, payload)
	return nil
}

func newTestPolicy() (*Policy, *recorder) {
	rec := &recorder{}
	d := NewDispatcher(rec, testTopic, DefaultRateLimit)
	return NewPolicy(DefaultThresholds(), d), rec
}

// faceAt builds a box of the given width whose center lands on centerX.
func faceAt(centerX, width int) vision.BoundingBox {
	return vision.BoundingBox{X: centerX - width/2, Y: 100, Width: width, Height: width}
}

func TestClassifyDistance_Sweep(t *testing.T) {
	th := DefaultThresholds()
	for w := 0; w <= 400; w++ {
		got := th.ClassifyDistance(w)
		switch {
		case w > 200:
			assert.Equal(t, TooClose, got, "width %d", w)
		case w < 100:
			assert.Equal(t, TooFar, got, "width %d", w)
		default:
			assert.Equal(t, Optimal, got, "width %d", w)
		}
	}
}

func TestClassifyPosition_Sweep(t *testing.T) {
	th := DefaultThresholds()
	for _, frameWidth := range []int{320, 640, 641, 1280} {
		half := frameWidth / 2
		for cx := 0; cx <= frameWidth; cx++ {
			got := th.ClassifyPosition(cx, frameWidth)
			switch {
			case cx < half-50:
				assert.Equal(t, TooLeft, got, "cx %d frame %d", cx, frameWidth)
			case cx > half+50:
				assert.Equal(t, TooRight, got, "cx %d frame %d", cx, frameWidth)
			default:
				assert.Equal(t, Centered, got, "cx %d frame %d", cx, frameWidth)
			}
		}
	}
}

func TestStateCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  command.Command
		ok   bool
		got  func() (command.Command, bool)
	}{
		{"too close", command.Backward, true, TooClose.Command},
		{"too far", command.Forward, true, TooFar.Command},
		{"optimal", "", false, Optimal.Command},
		{"too left", command.Right, true, TooLeft.Command},
		{"too right", command.Left, true, TooRight.Command},
		{"centered", "", false, Centered.Command},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := tc.got()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.cmd, cmd)
		})
	}
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "TOO_CLOSE", TooClose.String())
	assert.Equal(t, "TOO_FAR", TooFar.String())
	assert.Equal(t, "OPTIMAL", Optimal.String())
	assert.Equal(t, "TOO_LEFT", TooLeft.String())
	assert.Equal(t, "TOO_RIGHT", TooRight.String())
	assert.Equal(t, "CENTERED", Centered.String())
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := []Thresholds{
		{TooClose: 100, Optimal: 150, TooFar: 200, CenterTolerance: 50},
		{TooClose: 200, Optimal: 200, TooFar: 100, CenterTolerance: 50},
		{TooClose: 200, Optimal: 150, TooFar: 0, CenterTolerance: 50},
		{TooClose: 200, Optimal: 150, TooFar: 100, CenterTolerance: -1},
	}
	for _, th := range bad {
		assert.Error(t, th.Validate(), "%+v", th)
	}
}

func TestScenario_TooCloseCentered(t *testing.T) {
	p, rec := newTestPolicy()

	obs := p.Process([]vision.BoundingBox{faceAt(320, 250)}, 640, t0)

	require.Len(t, obs, 1)
	assert.Equal(t, TooClose, obs[0].Distance)
	assert.Equal(t, Centered, obs[0].Position)
	assert.Equal(t, []string{"Backward"}, rec.sent)
	assert.Equal(t, []string{testTopic}, rec.topics)
}

func TestScenario_TooFarTooLeft_OnlyOnePasses(t *testing.T) {
	p, rec := newTestPolicy()

	obs := p.Process([]vision.BoundingBox{faceAt(100, 80)}, 640, t0)

	require.Len(t, obs, 1)
	assert.Equal(t, TooFar, obs[0].Distance)
	assert.Equal(t, TooLeft, obs[0].Position)
	assert.Equal(t, []string{"Forward"}, rec.sent, "position command falls inside the interval")

	// The position command gets through on a later tick.
	p.Process([]vision.BoundingBox{faceAt(100, 80)}, 640, t0.Add(600*time.Millisecond))
	assert.Equal(t, []string{"Forward", "Right"}, rec.sent)
}

func TestScenario_NoFaces(t *testing.T) {
	p, rec := newTestPolicy()

	obs := p.Process(nil, 640, t0)

	assert.Empty(t, obs)
	assert.Empty(t, rec.sent)
	assert.Equal(t, DispatchState{}, p.Dispatcher.State())
}

func TestScenario_StableTooFarSuppressed(t *testing.T) {
	p, rec := newTestPolicy()
	face := []vision.BoundingBox{faceAt(320, 80)}

	p.Process(face, 640, t0)
	p.Process(face, 640, t0.Add(100*time.Millisecond))
	assert.Equal(t, []string{"Forward"}, rec.sent)

	// Still suppressed after the interval reopens: same command as last.
	p.Process(face, 640, t0.Add(2*time.Second))
	assert.Equal(t, []string{"Forward"}, rec.sent)
}

func TestScenario_PublishFailureRetried(t *testing.T) {
	p, rec := newTestPolicy()
	rec.fails = 1
	face := []vision.BoundingBox{faceAt(320, 80)}

	p.Process(face, 640, t0)
	assert.Empty(t, rec.sent)
	assert.Equal(t, DispatchState{}, p.Dispatcher.State(), "failed send must not touch state")

	later := t0.Add(600 * time.Millisecond)
	p.Process(face, 640, later)
	assert.Equal(t, []string{"Forward"}, rec.sent)
	assert.Equal(t, DispatchState{LastCommand: command.Forward, LastTime: later}, p.Dispatcher.State())
}

func TestProcess_MultipleFaces(t *testing.T) {
	p, rec := newTestPolicy()

	obs := p.Process([]vision.BoundingBox{
		faceAt(320, 250), // too close, centered
		faceAt(600, 150), // optimal, too right
	}, 640, t0)

	require.Len(t, obs, 2)
	assert.Equal(t, Optimal, obs[1].Distance)
	assert.Equal(t, TooRight, obs[1].Position)
	assert.Equal(t, []string{"Backward"}, rec.sent, "second face loses to the interval")
}

func TestDispatcher_IntervalBoundary(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, testTopic, 0)
	assert.Equal(t, DefaultRateLimit, d.Interval())
	assert.Equal(t, testTopic, d.Topic())

	require.True(t, d.TryDispatch(command.Forward, t0))
	assert.False(t, d.TryDispatch(command.Left, t0.Add(499*time.Millisecond)))
	assert.True(t, d.TryDispatch(command.Left, t0.Add(500*time.Millisecond)))
	assert.Equal(t, []string{"Forward", "Left"}, rec.sent)
}

func TestDispatcher_IntervalBoundaryAnyInterval(t *testing.T) {
	for ms := 1; ms <= 2000; ms++ {
		interval := time.Duration(ms) * time.Millisecond
		d := NewDispatcher(&recorder{}, testTopic, interval)

		require.True(t, d.TryDispatch(command.Forward, t0))
		if !assert.False(t, d.TryDispatch(command.Left, t0.Add(interval-time.Nanosecond)), "interval %v", interval) {
			return
		}
		if !assert.True(t, d.TryDispatch(command.Left, t0.Add(interval)), "interval %v", interval) {
			return
		}
	}
}

func TestDispatcher_ClockGoingBackwards(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, testTopic, DefaultRateLimit)

	require.True(t, d.TryDispatch(command.Forward, t0))
	assert.False(t, d.TryDispatch(command.Left, t0.Add(-time.Hour)))
	assert.Equal(t, t0, d.State().LastTime)
}

func TestDispatcher_ManualBypassesDedup(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, testTopic, DefaultRateLimit)

	require.True(t, d.TryDispatch(command.Forward, t0))
	assert.False(t, d.TryDispatch(command.Forward, t0.Add(600*time.Millisecond)))
	assert.True(t, d.TryManual(command.Forward, t0.Add(600*time.Millisecond)))

	// Manual commands still respect the interval.
	assert.False(t, d.TryManual(command.Forward, t0.Add(700*time.Millisecond)))
	assert.True(t, d.TryManual(command.Forward, t0.Add(1200*time.Millisecond)))

	assert.Equal(t, []string{"Forward", "Forward", "Forward"}, rec.sent)
}

func TestDispatcher_ManualResetsDedupMemory(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, testTopic, DefaultRateLimit)

	require.True(t, d.TryDispatch(command.Forward, t0))
	require.True(t, d.TryManual(command.Stop, t0.Add(time.Second)))
	assert.True(t, d.TryDispatch(command.Forward, t0.Add(2*time.Second)))
	assert.Equal(t, []string{"Forward", "Stop", "Forward"}, rec.sent)
}

func TestDispatcher_OnSend(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, testTopic, DefaultRateLimit)

	type sendEvent struct {
		cmd    command.Command
		manual bool
	}
	var events []sendEvent
	d.OnSend(func(cmd command.Command, manual bool) {
		events = append(events, sendEvent{cmd, manual})
	})

	d.TryDispatch(command.Backward, t0)
	d.TryManual(command.Stop, t0.Add(time.Second))
	d.TryManual(command.Stop, t0.Add(time.Second+time.Millisecond))

	assert.Equal(t, []sendEvent{{command.Backward, false}, {command.Stop, true}}, events)
}

func TestDispatcher_RandomSequenceInvariants(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, testTopic, DefaultRateLimit)
	rng := rand.New(rand.NewSource(42))
	all := command.All()

	type accepted struct {
		cmd    command.Command
		at     time.Time
		manual bool
	}
	var log []accepted

	now := t0
	for i := 0; i < 2000; i++ {
		now = now.Add(time.Duration(rng.Intn(300)) * time.Millisecond)
		cmd := all[rng.Intn(len(all))]
		manual := rng.Intn(10) == 0
		if rng.Intn(20) == 0 {
			rec.fails = 1
		}

		var ok bool
		if manual {
			ok = d.TryManual(cmd, now)
		} else {
			ok = d.TryDispatch(cmd, now)
		}
		if ok {
			log = append(log, accepted{cmd, now, manual})
		}
	}

	require.NotEmpty(t, log)
	require.Equal(t, len(log), len(rec.sent))
	for i := 1; i < len(log); i++ {
		gap := log[i].at.Sub(log[i-1].at)
		assert.GreaterOrEqual(t, gap, DefaultRateLimit, "dispatch %d too soon", i)
		if !log[i].manual {
			assert.NotEqual(t, log[i-1].cmd, log[i].cmd, "automated repeat at %d", i)
		}
	}
}
