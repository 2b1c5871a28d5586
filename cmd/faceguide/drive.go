package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/faceguide/pkg/channel"
	"github.com/gwillem/faceguide/pkg/guidance"
	"github.com/gwillem/faceguide/pkg/teleop"
	"github.com/gwillem/faceguide/pkg/tui"
)

type DriveCommand struct {
	ChannelOptions `group:"Channel Options"`
}

func (c *DriveCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c.ChannelOptions.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	initLogging(cfg, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n := &notifier{}
	ch, title, err := openChannel(ctx, cfg, n)
	if err != nil {
		return err
	}
	defer ch.Close()

	drv := teleop.NewDriver(guidance.NewDispatcher(ch, cfg.Broker.Topic, cfg.RateLimit()), nil)
	n.Set(drv.Notify)

	p := tea.NewProgram(tui.NewDriveModel(drv, title, func() bool { return channel.Connected(ch) }), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run drive screen: %w", err)
	}
	return nil
}
