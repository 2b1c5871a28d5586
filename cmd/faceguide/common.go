package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/faceguide/internal/config"
	"github.com/gwillem/faceguide/internal/log"
	"github.com/gwillem/faceguide/pkg/channel"
	"github.com/gwillem/faceguide/pkg/robot"
)

const (
	connectTimeout = 5 * time.Second
	defaultLogFile = "faceguide.log"
)

// ChannelOptions override the command channel settings of the config file.
type ChannelOptions struct {
	Broker    string `long:"broker" env:"FACEGUIDE_BROKER" description:"MQTT broker address"`
	Port      int    `long:"port" env:"FACEGUIDE_PORT" description:"MQTT broker port"`
	Topic     string `long:"topic" env:"FACEGUIDE_TOPIC" description:"Command topic"`
	Transport string `long:"transport" env:"FACEGUIDE_TRANSPORT" choice:"mqtt" choice:"serial" description:"Command transport"`
	Serial    string `long:"serial" env:"FACEGUIDE_SERIAL" description:"Serial port for the serial transport"`
	RateLimit int    `long:"rate-limit" env:"FACEGUIDE_RATE_LIMIT" description:"Minimum milliseconds between commands"`
	NoPan     bool   `long:"no-pan" description:"Do not drive the camera pan servo"`
}

func (o ChannelOptions) apply(cfg *config.Config) {
	if o.Broker != "" {
		cfg.Broker.Address = o.Broker
	}
	if o.Port != 0 {
		cfg.Broker.Port = o.Port
	}
	if o.Topic != "" {
		cfg.Broker.Topic = o.Topic
	}
	if o.Transport != "" {
		cfg.Transport = o.Transport
	}
	if o.Serial != "" {
		cfg.Serial.Port = o.Serial
	}
	if o.RateLimit != 0 {
		cfg.Guidance.RateLimitMS = o.RateLimit
	}
	if o.NoPan {
		cfg.Pan.Port = ""
	}
}

// loadConfig reads the config file named by --config, falling back to
// defaults when it does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// initLogging sets up logging. A TUI owns the terminal, so quiet mode sends
// logs to a file only.
func initLogging(cfg *config.Config, quiet bool) {
	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	file := cfg.Log.File
	if opts.LogFile != "" {
		file = opts.LogFile
	}
	if quiet && file == "" {
		file = defaultLogFile
	}
	log.Init(log.Options{Level: level, File: file, Quiet: quiet})
}

// notifier forwards channel events to a UI registered after the channel is created.
type notifier struct {
	mu sync.Mutex
	fn func(string)
}

func (n *notifier) Set(fn func(string)) {
	n.mu.Lock()
	n.fn = fn
	n.mu.Unlock()
}

func (n *notifier) Notify(msg string) {
	n.mu.Lock()
	fn := n.fn
	n.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// openChannel opens the configured transport plus the pan servo, if any.
// A broker that cannot be reached is not fatal: commands fail with
// channel.ErrNotConnected until the link is up.
func openChannel(ctx context.Context, cfg *config.Config, n *notifier) (channel.Channel, string, error) {
	var sinks channel.Multi
	var title string

	switch cfg.Transport {
	case config.TransportSerial:
		s, err := channel.OpenSerial(cfg.Serial.Port, cfg.Serial.BaudRate)
		if err != nil {
			return nil, "", err
		}
		sinks = append(sinks, s)
		title = "serial " + cfg.Serial.Port

	default:
		mcfg := channel.MQTTConfig{
			Address:   cfg.Broker.Address,
			Port:      cfg.Broker.Port,
			Topic:     cfg.Broker.Topic,
			ClientID:  cfg.Broker.ClientID,
			KeepAlive: cfg.KeepAlive(),
		}
		m := channel.NewMQTT(mcfg, channel.LogHandler{Notify: n.Notify})

		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := m.Connect(cctx)
		cancel()
		if err != nil {
			log.Warn(log.Fields{"error": err}, "broker unreachable, continuing without it")
			n.Notify(fmt.Sprintf("Failed to connect to MQTT broker: %v", err))
		}
		sinks = append(sinks, m)
		title = mcfg.BrokerURL() + " " + cfg.Broker.Topic
	}

	if cfg.Pan.Port != "" {
		pan, err := robot.NewPanHead(ctx, robot.PanConfig{
			Port:        cfg.Pan.Port,
			Calibration: cfg.Pan.Calibration,
			StepDegrees: cfg.Pan.StepDegrees,
		})
		if err != nil {
			log.Warn(log.Fields{"port": cfg.Pan.Port, "error": err}, "pan servo unavailable")
			n.Notify(fmt.Sprintf("Pan servo unavailable: %v", err))
		} else {
			sinks = append(sinks, pan)
			title += " + pan"
		}
	}

	return sinks, title, nil
}
