package channel

import (
	"fmt"

	"github.com/gwillem/faceguide/internal/log"
)

// Handler receives asynchronous notifications from a pub/sub client. Methods
// are called from the client's own goroutines.
type Handler interface {
	OnConnect(broker string)
	OnConnectionLost(err error)
	OnMessage(topic, payload string)
	OnSubscribe(topic string, qos byte)
	OnPublish(messageID uint16)
}

// LogHandler logs every event. When Notify is set it also receives a short
// human-readable line per event, used to feed the terminal UI.
type LogHandler struct {
	Notify func(msg string)
}

func (h LogHandler) notify(format string, args ...any) {
	if h.Notify != nil {
		h.Notify(fmt.Sprintf(format, args...))
	}
}

func (h LogHandler) OnConnect(broker string) {
	log.Info(log.Fields{"broker": broker}, "connected to broker")
	h.notify("Connected to broker %s", broker)
}

func (h LogHandler) OnConnectionLost(err error) {
	log.Warn(log.Fields{"error": err}, "broker connection lost")
	h.notify("Connection lost: %v", err)
}

func (h LogHandler) OnMessage(topic, payload string) {
	log.Debug(log.Fields{"topic": topic, "payload": payload}, "message received")
	h.notify("Received '%s' on %s", payload, topic)
}

func (h LogHandler) OnSubscribe(topic string, qos byte) {
	log.Info(log.Fields{"topic": topic, "qos": qos}, "subscribed")
	h.notify("Subscribed to %s", topic)
}

func (h LogHandler) OnPublish(messageID uint16) {
	log.Debug(log.Fields{"mid": messageID}, "message delivered to broker")
}
