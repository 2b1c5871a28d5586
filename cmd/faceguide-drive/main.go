// Command faceguide-drive drives the robot from the keyboard over MQTT.
// It needs no camera and no configuration file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/faceguide/internal/log"
	"github.com/gwillem/faceguide/pkg/channel"
	"github.com/gwillem/faceguide/pkg/guidance"
	"github.com/gwillem/faceguide/pkg/teleop"
	"github.com/gwillem/faceguide/pkg/tui"
)

const connectTimeout = 5 * time.Second

func main() {
	broker := flag.String("broker", channel.DefaultBroker, "MQTT broker address")
	port := flag.Int("port", channel.DefaultPort, "MQTT broker port")
	topic := flag.String("topic", channel.DefaultTopic, "Command topic")
	interval := flag.Duration("interval", guidance.DefaultRateLimit, "Minimum time between commands")
	logFile := flag.String("log", "faceguide-drive.log", "Log file")
	flag.Parse()

	log.Init(log.Options{Level: "info", File: *logFile, Quiet: true})

	cfg := channel.MQTTConfig{Address: *broker, Port: *port, Topic: *topic}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	drv, m := connect(ctx, cfg, *interval)
	cancel()

	p := tea.NewProgram(tui.NewDriveModel(drv, cfg.BrokerURL()+" "+*topic, m.Connected), tea.WithAltScreen())
	_, err := p.Run()
	m.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// connect dials the broker. An unreachable broker is reported in the log box
// and the client keeps retrying; keys are dropped until the link is up.
func connect(ctx context.Context, cfg channel.MQTTConfig, interval time.Duration) (*teleop.Driver, *channel.MQTT) {
	// Connection events go to the driver's log box
	var drv *teleop.Driver
	handler := channel.LogHandler{Notify: func(msg string) {
		if drv != nil {
			drv.Notify(msg)
		}
	}}
	m := channel.NewMQTT(cfg, handler)
	drv = teleop.NewDriver(guidance.NewDispatcher(m, cfg.Topic, interval), nil)

	if err := m.Connect(ctx); err != nil {
		log.Warn(log.Fields{"broker": cfg.BrokerURL(), "error": err}, "broker unreachable, continuing without it")
		drv.Notify(fmt.Sprintf("Failed to connect to MQTT broker: %v", err))
	}
	return drv, m
}
