package robot

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/faceguide/internal/log"
	"github.com/gwillem/faceguide/pkg/command"
)

const commandTimeout = 500 * time.Millisecond

// servoGroup is the part of *feetech.ServoGroup the pan head drives.
type servoGroup interface {
	EnableAll(ctx context.Context) error
	DisableAll(ctx context.Context) error
	SetPositions(ctx context.Context, positions feetech.PositionMap) error
}

// PanConfig configures the pan head.
type PanConfig struct {
	Port        string
	Calibration MotorCalibration
	StepDegrees float64
}

// PanHead turns the camera on a single feetech servo. It implements the
// command publisher interface: RotateLeft and RotateRight move the servo one
// step, every other command is ignored.
type PanHead struct {
	mu    sync.Mutex
	bus   io.Closer
	group servoGroup
	cal   MotorCalibration
	step  int
	pos   int
}

// NewPanHead opens the servo bus, reads the current position and enables torque.
func NewPanHead(ctx context.Context, cfg PanConfig) (*PanHead, error) {
	cal := cfg.Calibration
	if cal.ID == 0 {
		cal.ID = DefaultServoID
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: BusBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	group := feetech.NewServoGroupByIDs(bus, cal.ID)

	pos := cal.Center()
	raw, err := group.Positions(ctx)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("read pan position: %w", err)
	}
	for id, p := range raw {
		if id == cal.ID {
			pos = p
		}
	}

	if err := group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable pan servo: %w", err)
	}

	return newPanHead(bus, group, cal, cfg.StepDegrees, pos), nil
}

func newPanHead(bus io.Closer, group servoGroup, cal MotorCalibration, stepDeg float64, pos int) *PanHead {
	if stepDeg <= 0 {
		stepDeg = DefaultStepDegrees
	}
	return &PanHead{
		bus:   bus,
		group: group,
		cal:   cal,
		step:  DegreesToTicks(stepDeg),
		pos:   cal.Clamp(pos),
	}
}

// Position returns the last commanded raw position.
func (p *PanHead) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

// Publish handles one command payload. The topic is ignored.
func (p *PanHead) Publish(_ string, payload string) error {
	cmd, err := command.Parse(payload)
	if err != nil {
		return err
	}

	var dir int
	switch cmd {
	case command.RotateLeft:
		dir = 1
	case command.RotateRight:
		dir = -1
	default:
		return nil
	}
	if p.cal.Invert {
		dir = -dir
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	target := p.cal.Clamp(p.pos + dir*p.step)
	if target == p.pos {
		log.Debug(log.Fields{"command": cmd, "position": p.pos}, "pan at limit")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := p.group.SetPositions(ctx, feetech.PositionMap{p.cal.ID: target}); err != nil {
		return fmt.Errorf("write pan position: %w", err)
	}
	p.pos = target
	fields := log.Fields{"command": cmd, "position": target}
	if p.cal.IsCalibrated() {
		fields["heading"] = fmt.Sprintf("%+.0f%%", p.cal.Normalize(target))
	}
	log.Debug(fields, "pan moved")
	return nil
}

// Close disables torque and closes the bus.
func (p *PanHead) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err := p.group.DisableAll(ctx)
	if cerr := p.bus.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close pan head: %w", err)
	}
	return nil
}
