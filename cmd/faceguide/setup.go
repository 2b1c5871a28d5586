package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/faceguide/internal/config"
	"github.com/gwillem/faceguide/pkg/channel"
	"github.com/gwillem/faceguide/pkg/robot"
	"github.com/gwillem/faceguide/pkg/vision/opencv"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var errAborted = errors.New("setup aborted")

type SetupCommand struct {
	SkipCamera bool `long:"skip-camera" description:"Do not probe the camera"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("faceguide Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	if config.Exists(opts.Config) {
		fmt.Println(dimStyle.Render("Updating " + opts.Config))
	} else {
		fmt.Println(dimStyle.Render("No configuration found, starting from defaults"))
	}
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Step 1: command channel
	if err := configureChannel(cfg); err != nil {
		return err
	}

	// Step 2: camera
	if !c.SkipCamera {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Camera ━━━"))
		fmt.Println()
		if err := configureCamera(cfg); err != nil {
			return err
		}
	}

	// Step 3: optional pan servo
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Camera Pan Servo ━━━"))
	fmt.Println()
	if err := configurePan(cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start face guidance with: " + headerStyle.Render("faceguide guide"))

	return nil
}

func configureChannel(cfg *config.Config) error {
	port := strconv.Itoa(cfg.Broker.Port)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How are commands sent to the robot?").
				Options(
					huh.NewOption("MQTT broker", config.TransportMQTT),
					huh.NewOption("Serial line", config.TransportSerial),
				).
				Value(&cfg.Transport),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Broker address").
				Value(&cfg.Broker.Address).
				Validate(notEmpty),
			huh.NewInput().
				Title("Broker port").
				Value(&port).
				Validate(validPort),
			huh.NewInput().
				Title("Command topic").
				Value(&cfg.Broker.Topic).
				Validate(notEmpty),
		).WithHideFunc(func() bool { return cfg.Transport != config.TransportMQTT }),
	)
	if err := form.Run(); err != nil {
		return errAborted
	}
	cfg.Broker.Port, _ = strconv.Atoi(port)

	if cfg.Transport != config.TransportSerial {
		return nil
	}

	ports, err := channel.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		return errors.New("no serial ports found")
	}
	options := make([]huh.Option[string], 0, len(ports))
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}
	sel := huh.NewSelect[string]().
		Title("Serial port of the robot").
		Options(options...).
		Value(&cfg.Serial.Port)
	if err := huh.NewForm(huh.NewGroup(sel)).Run(); err != nil {
		return errAborted
	}
	return nil
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validPort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return errors.New("must be a port number 1-65535")
	}
	return nil
}

func configureCamera(cfg *config.Config) error {
	device := strconv.Itoa(cfg.Camera.Device)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Camera index").
				Description("0 is the built-in camera on most machines").
				Value(&device).
				Validate(func(s string) error {
					if n, err := strconv.Atoi(s); err != nil || n < 0 {
						return errors.New("must be a number >= 0")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Mirror the image?").
				Value(&cfg.Camera.Mirror),
		),
	)
	if err := form.Run(); err != nil {
		return errAborted
	}
	cfg.Camera.Device, _ = strconv.Atoi(device)

	fmt.Println("Testing camera access...")
	res, err := opencv.Probe(cfg.Camera.Device)
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Camera %d not accessible: %v", cfg.Camera.Device, err)))
		return nil
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Frame captured successfully: %dx%d", res.Width, res.Height)))

	if _, err := opencv.FindCascade(cfg.Camera.Cascade); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Face model %s not found, pass --cascade when starting guidance", cfg.Camera.Cascade)))
	}
	return nil
}

func configurePan(cfg *config.Config) error {
	usePan := cfg.Pan.Port != ""
	confirm := huh.NewConfirm().
		Title("Is the camera mounted on a feetech pan servo?").
		Description("Q/E rotate commands then also turn the camera").
		Value(&usePan)
	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return errAborted
	}
	if !usePan {
		cfg.Pan.Port = ""
		return nil
	}

	fmt.Println("Scanning for servos...")
	found := findServos()
	if len(found) == 0 {
		fmt.Println(warnStyle.Render("No feetech servos found. Make sure the servo is connected and powered on."))
		cfg.Pan.Port = ""
		return nil
	}

	options := make([]huh.Option[int], 0, len(found))
	for i, s := range found {
		options = append(options, huh.NewOption(fmt.Sprintf("%s servo %d (model %d)", s.port, s.servo.ID, s.servo.Model), i))
	}
	var choice int
	sel := huh.NewSelect[int]().
		Title("Which servo pans the camera?").
		Options(options...).
		Value(&choice)
	if err := huh.NewForm(huh.NewGroup(sel)).Run(); err != nil {
		return errAborted
	}

	picked := found[choice]
	cal, err := calibratePan(picked)
	if err != nil {
		return err
	}
	cfg.Pan.Port = picked.port
	cfg.Pan.Calibration = cal
	return nil
}

type servoInfo struct {
	port  string
	servo feetech.FoundServo
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: robot.BusBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

func findServos() []servoInfo {
	ports, err := channel.Ports()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []servoInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := openBus(port)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, 1, 6)
		cancel()
		bus.Close()
		if err != nil {
			continue
		}

		for _, s := range servos {
			fmt.Printf("  Found servo %d on %s\n", s.ID, port)
			found = append(found, servoInfo{port: port, servo: s})
		}
	}
	return found
}

func calibratePan(info servoInfo) (robot.MotorCalibration, error) {
	bus, err := openBus(info.port)
	if err != nil {
		return robot.MotorCalibration{}, fmt.Errorf("open bus: %w", err)
	}
	defer bus.Close()

	servo := feetech.NewServo(bus, info.servo.ID, info.servo.Model)

	// Disable the servo so the user can turn the camera freely
	ctx := context.Background()
	servo.Disable(ctx)

	pos, err := servo.Position(ctx)
	if err != nil {
		return robot.MotorCalibration{}, fmt.Errorf("read position: %w", err)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Turn the camera to its leftmost AND rightmost positions.")
	fmt.Println()

	model := calibrationModel{servo: servo, cur: pos, min: pos, max: pos}
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return robot.MotorCalibration{}, fmt.Errorf("run calibration: %w", err)
	}
	cm := final.(calibrationModel)
	if cm.aborted {
		return robot.MotorCalibration{}, errAborted
	}

	fmt.Println()
	fmt.Println("Pan servo calibrated.")
	return robot.MotorCalibration{
		ID:       info.servo.ID,
		RangeMin: cm.min,
		RangeMax: cm.max,
	}, nil
}

// Calibration TUI model
type calibrationModel struct {
	servo    *feetech.Servo
	cur      int
	min      int
	max      int
	quitting bool
	aborted  bool
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.quitting = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.quitting = true
			m.aborted = true
			return m, tea.Quit
		}

	case tickMsg:
		pos, err := m.servo.Position(context.Background())
		if err == nil {
			m.track(pos)
		}
		return m, tick()
	}

	return m, nil
}

func (m *calibrationModel) track(pos int) {
	m.cur = pos
	if pos < m.min {
		m.min = pos
	}
	if pos > m.max {
		m.max = pos
	}
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rangeSize := m.max - m.min
	degrees := robot.TicksToDegrees(rangeSize)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Current", "Min", "Max", "Range", "Degrees").
		Rows([]string{
			strconv.Itoa(m.cur),
			strconv.Itoa(m.min),
			strconv.Itoa(m.max),
			strconv.Itoa(rangeSize),
			fmt.Sprintf("%.0f°", degrees),
		}).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableCurrentStyle
			case 3, 4:
				if degrees >= 2*robot.DefaultStepDegrees {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done, Esc to abort"))

	return sb.String()
}
