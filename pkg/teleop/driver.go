package teleop

import (
	"fmt"
	"time"

	"github.com/gwillem/faceguide/pkg/command"
	"github.com/gwillem/faceguide/pkg/guidance"
)

// Driver sends keyboard commands without a camera.
type Driver struct {
	disp  *guidance.Dispatcher
	now   func() time.Time
	logCh chan string
}

// NewDriver creates a driver on d. A nil now defaults to time.Now.
func NewDriver(d *guidance.Dispatcher, now func() time.Time) *Driver {
	if now == nil {
		now = time.Now
	}
	dr := &Driver{disp: d, now: now, logCh: make(chan string, 32)}
	d.OnSend(func(cmd command.Command, _ bool) {
		dr.log("Sent: %s", cmd)
	})
	return dr
}

// Manual dispatches cmd. Repeats are allowed, the rate limit applies.
func (d *Driver) Manual(cmd command.Command) bool {
	return d.disp.TryManual(cmd, d.now())
}

// Logs returns a channel that receives log messages.
func (d *Driver) Logs() <-chan string {
	return d.logCh
}

// Notify queues msg for the log stream. It never blocks.
func (d *Driver) Notify(msg string) {
	d.log("%s", msg)
}

// Topic returns the publish topic.
func (d *Driver) Topic() string {
	return d.disp.Topic()
}

func (d *Driver) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", d.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case d.logCh <- msg:
	default:
	}
}
