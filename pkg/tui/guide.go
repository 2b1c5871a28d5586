package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/faceguide/pkg/guidance"
	"github.com/gwillem/faceguide/pkg/teleop"
)

// Chart data sets.
const (
	seriesWidth    = "face width"
	seriesTooClose = "too close"
	seriesTooFar   = "too far"
)

var seriesColors = map[string]string{
	seriesWidth:    "51",  // cyan
	seriesTooClose: "196", // red
	seriesTooFar:   "208", // orange
}

var seriesOrder = []string{seriesWidth, seriesTooClose, seriesTooFar}

// Guide is the source of a GuideModel: the guidance controller.
type Guide interface {
	Sender
	States() <-chan teleop.State
	Logs() <-chan string
}

type stateMsg teleop.State

func waitForState(states <-chan teleop.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

// GuideModel is the guidance dashboard.
type GuideModel struct {
	ctrl       Guide
	title      string
	link       func() bool
	thresholds guidance.Thresholds
	chart      *streamlinechart.Model
	width      int // terminal width
	height     int // terminal height
	logs       logBox
	state      teleop.State
	frames     int
	started    time.Time
	err        error
	quitting   bool
}

// NewGuideModel creates the dashboard for ctrl. title names the channel, e.g.
// the broker URL, and link reports whether the channel is up.
func NewGuideModel(ctrl Guide, title string, link func() bool, t guidance.Thresholds) GuideModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, float64(t.TooClose+t.TooFar)),
	)
	for _, name := range seriesOrder {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return GuideModel{
		ctrl:       ctrl,
		title:      title,
		link:       link,
		thresholds: t,
		chart:      &chart,
	}
}

// Err returns the error that ended the guidance loop, if any.
func (m GuideModel) Err() error {
	return m.err
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *GuideModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 12 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - statusHeight - helpHeight - footerHeight - borderSize
	if height < 6 {
		height = 6
	}
	return width, height
}

func (m GuideModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl.States()),
		waitForLog(m.ctrl.Logs()),
	)
}

func (m GuideModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		cmd, quit, ok := keyAction(msg)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		if ok {
			m.ctrl.Manual(cmd)
		}
		return m, nil

	case stateMsg:
		s := teleop.State(msg)
		if s.Error != nil {
			m.err = s.Error
			m.quitting = true
			return m, tea.Quit
		}
		if m.started.IsZero() {
			m.started = s.Timestamp
		}
		m.frames++
		m.state = s
		// Freeze the chart while no face is visible
		if w, ok := widestFace(s.Faces); ok {
			m.chart.PushDataSet(seriesWidth, float64(w))
			m.chart.PushDataSet(seriesTooClose, float64(m.thresholds.TooClose))
			m.chart.PushDataSet(seriesTooFar, float64(m.thresholds.TooFar))
			m.chart.DrawAll()
		}
		return m, waitForState(m.ctrl.States())

	case logMsg:
		m.logs.add(string(msg))
		return m, waitForLog(m.ctrl.Logs())
	}

	return m, nil
}

func widestFace(faces []guidance.Observation) (int, bool) {
	if len(faces) == 0 {
		return 0, false
	}
	w := faces[0].Box.Width
	for _, f := range faces[1:] {
		if f.Box.Width > w {
			w = f.Box.Width
		}
	}
	return w, true
}

func (m GuideModel) fps() float64 {
	elapsed := m.state.Timestamp.Sub(m.started).Seconds()
	if m.frames < 2 || elapsed <= 0 {
		return 0
	}
	return float64(m.frames-1) / elapsed
}

func (m GuideModel) View() string {
	if m.quitting {
		if m.err != nil {
			return fmt.Sprintf("Face guidance stopped: %v\n", m.err)
		}
		return "Face guidance stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Face Guidance"))
	sb.WriteString(" - " + m.title)
	sb.WriteString(renderLink(m.link))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d, %.0f fps]", m.width, m.height, m.fps())))
	}
	sb.WriteString("\n\n")

	// Status
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	sb.WriteString(renderHelp())
	sb.WriteString("\n")

	sb.WriteString(m.logs.render(m.width))
	sb.WriteString("\n")

	return sb.String()
}

func (m GuideModel) renderStatus() string {
	var lines []string
	if len(m.state.Faces) == 0 {
		lines = append(lines, warnStyle.Render("No face detected"))
	} else {
		o := m.state.Faces[0]
		lines = append(lines, fmt.Sprintf("Distance: %s, Position: %s  Face Width: %dpx  Faces: %d",
			o.Distance, o.Position, o.Box.Width, len(m.state.Faces)))
	}

	last := statusStyle.Render("none")
	if m.state.LastCommand != "" {
		last = commandStyle.Render(string(m.state.LastCommand))
	}
	lines = append(lines, "Last Command: "+last)
	return strings.Join(lines, "\n")
}

func renderLegend() string {
	var items []string
	for _, name := range seriesOrder {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}
