package guidance

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gwillem/faceguide/internal/log"
	"github.com/gwillem/faceguide/pkg/command"
)

// DefaultRateLimit is the minimum time between two dispatches.
const DefaultRateLimit = 500 * time.Millisecond

// failureLogInterval throttles warnings about a failing channel.
const failureLogInterval = 5 * time.Second

// Publisher is the command channel sink.
type Publisher interface {
	Publish(topic, payload string) error
}

// notConnected lets a publisher mark failures that are expected while the
// channel is down, so they are logged at debug level instead of flooding.
type notConnected interface {
	NotConnected() bool
}

// DispatchState is the only state carried between frames.
type DispatchState struct {
	LastCommand command.Command // empty until the first successful send
	LastTime    time.Time
}

// Dispatcher forwards commands to a Publisher, enforcing a minimum interval
// between sends and, on the automated path, suppressing repeats of the last command.
// It is safe for concurrent use.
type Dispatcher struct {
	pub      Publisher
	topic    string
	interval time.Duration

	mu       sync.Mutex
	state    DispatchState
	onSend   func(command.Command, bool)
	failures *rate.Sometimes
}

// NewDispatcher creates a dispatcher publishing to topic.
// A non-positive interval selects DefaultRateLimit.
func NewDispatcher(pub Publisher, topic string, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = DefaultRateLimit
	}
	return &Dispatcher{
		pub:      pub,
		topic:    topic,
		interval: interval,
		failures: &rate.Sometimes{First: 1, Interval: failureLogInterval},
	}
}

// OnSend registers a callback invoked after every successful send, with
// manual set for keyboard commands. It runs with the dispatcher locked.
func (d *Dispatcher) OnSend(fn func(cmd command.Command, manual bool)) {
	d.mu.Lock()
	d.onSend = fn
	d.mu.Unlock()
}

// Topic returns the publish topic.
func (d *Dispatcher) Topic() string {
	return d.topic
}

// Interval returns the minimum time between dispatches.
func (d *Dispatcher) Interval() time.Duration {
	return d.interval
}

// State returns a copy of the current dispatch state.
func (d *Dispatcher) State() DispatchState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// TryDispatch offers an automated guidance command. It returns false without
// side effects when the interval has not elapsed or cmd repeats the last command,
// and false without touching state when the publish fails.
func (d *Dispatcher) TryDispatch(cmd command.Command, now time.Time) bool {
	return d.try(cmd, now, false)
}

// TryManual offers a keyboard command. Repeats are allowed; the interval is not.
func (d *Dispatcher) TryManual(cmd command.Command, now time.Time) bool {
	return d.try(cmd, now, true)
}

func (d *Dispatcher) try(cmd command.Command, now time.Time, manual bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.LastTime.IsZero() && now.Sub(d.state.LastTime) < d.interval {
		return false
	}
	if !manual && cmd == d.state.LastCommand {
		return false
	}

	fields := log.Fields{"command": cmd, "topic": d.topic, "manual": manual}
	if err := d.pub.Publish(d.topic, cmd.String()); err != nil {
		fields["error"] = err
		var nc notConnected
		if errors.As(err, &nc) && nc.NotConnected() {
			log.Debug(fields, "command not sent, channel down")
		} else {
			logged := false
			d.failures.Do(func() {
				log.Warn(fields, "command send failed")
				logged = true
			})
			if !logged {
				log.Debug(fields, "command send failed")
			}
		}
		return false
	}

	d.state = DispatchState{LastCommand: cmd, LastTime: now}
	log.Info(fields, "command sent")

	if d.onSend != nil {
		d.onSend(cmd, manual)
	}
	return true
}
