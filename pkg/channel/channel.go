// Package channel implements the command channels that carry motion commands
// to the robot: MQTT, a serial line and a fan-out over several sinks.
package channel

import (
	"errors"
	"fmt"

	"github.com/gwillem/faceguide/internal/log"
)

// Publisher accepts a payload for a topic. Implementations do not wait for
// delivery acknowledgement.
type Publisher interface {
	Publish(topic, payload string) error
}

// Channel is a Publisher with a lifecycle.
type Channel interface {
	Publisher
	Close() error
}

type notConnectedError struct{}

func (notConnectedError) Error() string      { return "channel not connected" }
func (notConnectedError) NotConnected() bool { return true }

// ErrNotConnected is returned by Publish while the underlying link is down.
var ErrNotConnected error = notConnectedError{}

// Multi publishes every payload to all of its sinks.
type Multi []Channel

// Publish sends to every sink. The command counts as sent when at least one
// sink accepted it; the other sinks' failures are logged. Only when every
// sink fails are the failures returned, joined.
func (m Multi) Publish(topic, payload string) error {
	var errs []error
	for _, c := range m {
		if err := c.Publish(topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == len(m) {
		return errors.Join(errs...)
	}

	for _, err := range errs {
		fields := log.Fields{"topic": topic, "payload": payload, "error": err}
		if errors.Is(err, ErrNotConnected) {
			log.Debug(fields, "sink not connected")
			continue
		}
		log.Warn(fields, "sink publish failed")
	}
	return nil
}

// Connected reports whether every sink's link is up.
func (m Multi) Connected() bool {
	for _, c := range m {
		if !Connected(c) {
			return false
		}
	}
	return true
}

// Connected reports whether c's link is up. Channels that do not track a
// link, such as the pan servo, are always up.
func Connected(c Channel) bool {
	if l, ok := c.(interface{ Connected() bool }); ok {
		return l.Connected()
	}
	return true
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close channels: %w", errors.Join(errs...))
	}
	return nil
}
