package channel

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/gwillem/faceguide/internal/log"
)

// MQTT defaults.
const (
	DefaultBroker    = "192.168.4.1"
	DefaultPort      = 1883
	DefaultTopic     = "VR_control"
	DefaultKeepAlive = 60 * time.Second

	disconnectQuiesce = 250 // ms
	connectRetryDelay = 5 * time.Second
)

// MQTTConfig holds broker connection parameters.
type MQTTConfig struct {
	Address   string
	Port      int
	Topic     string // subscribed on connect so our own commands are echoed back
	ClientID  string // generated when empty
	KeepAlive time.Duration
}

// BrokerURL returns the tcp:// URL of the broker.
func (c MQTTConfig) BrokerURL() string {
	return "tcp://" + net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// MQTT publishes commands to an MQTT broker. Network I/O runs on the paho
// client's goroutines; Publish never waits for delivery.
type MQTT struct {
	client  mqtt.Client
	cfg     MQTTConfig
	handler Handler
}

// NewMQTT creates an unconnected MQTT channel. A nil handler logs events only.
func NewMQTT(cfg MQTTConfig, h Handler) *MQTT {
	if cfg.ClientID == "" {
		cfg.ClientID = "faceguide-" + uuid.NewString()[:8]
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}

	m := &MQTT{cfg: cfg, handler: h}
	if m.handler == nil {
		m.handler = LogHandler{}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(cfg.ClientID).
		SetKeepAlive(cfg.KeepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryDelay).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(m.onConnectionLost).
		SetDefaultPublishHandler(m.onMessage)

	m.client = mqtt.NewClient(opts)
	return m
}

// Connect dials the broker and waits for the result or ctx. The client keeps
// retrying in the background after ctx expires, so a broker that comes up
// later is picked up without a restart.
func (m *MQTT) Connect(ctx context.Context) error {
	tok := m.client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("connect %s: %w", m.cfg.BrokerURL(), ctx.Err())
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", m.cfg.BrokerURL(), err)
	}
	return nil
}

// Connected reports whether the link to the broker is up.
func (m *MQTT) Connected() bool {
	return m.client.IsConnectionOpen()
}

// Publish sends payload at QoS 0. It fails fast with ErrNotConnected while the
// link is down and otherwise reports only errors that are already known.
func (m *MQTT) Publish(topic, payload string) error {
	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	tok := m.client.Publish(topic, 0, false, payload)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		m.published(tok)
	default:
		go func() {
			<-tok.Done()
			if err := tok.Error(); err != nil {
				log.Warn(log.Fields{"topic": topic, "payload": payload, "error": err}, "publish failed")
				return
			}
			m.published(tok)
		}()
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(disconnectQuiesce)
	return nil
}

func (m *MQTT) published(tok mqtt.Token) {
	var mid uint16
	if pt, ok := tok.(*mqtt.PublishToken); ok {
		mid = pt.MessageID()
	}
	m.handler.OnPublish(mid)
}

func (m *MQTT) onConnect(c mqtt.Client) {
	m.handler.OnConnect(m.cfg.BrokerURL())
	if m.cfg.Topic == "" {
		return
	}

	tok := c.Subscribe(m.cfg.Topic, 0, nil)
	go func() {
		<-tok.Done()
		if err := tok.Error(); err != nil {
			log.Warn(log.Fields{"topic": m.cfg.Topic, "error": err}, "subscribe failed")
			return
		}
		var qos byte
		if st, ok := tok.(*mqtt.SubscribeToken); ok {
			qos = st.Result()[m.cfg.Topic]
		}
		m.handler.OnSubscribe(m.cfg.Topic, qos)
	}()
}

func (m *MQTT) onConnectionLost(_ mqtt.Client, err error) {
	m.handler.OnConnectionLost(err)
}

func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	m.handler.OnMessage(msg.Topic(), string(msg.Payload()))
}
