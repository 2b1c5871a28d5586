package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/faceguide/pkg/command"
)

// Driver is the source of a DriveModel.
type Driver interface {
	Sender
	Logs() <-chan string
}

// DriveModel sends commands straight from the keyboard.
type DriveModel struct {
	drv      Driver
	title    string
	link     func() bool
	width    int
	logs     logBox
	last     command.Command
	dropped  int
	quitting bool
}

// NewDriveModel creates the drive screen. title names the channel and link
// reports whether it is up.
func NewDriveModel(drv Driver, title string, link func() bool) DriveModel {
	return DriveModel{drv: drv, title: title, link: link}
}

func (m DriveModel) Init() tea.Cmd {
	return waitForLog(m.drv.Logs())
}

func (m DriveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		cmd, quit, ok := keyAction(msg)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		if !ok {
			return m, nil
		}
		if m.drv.Manual(cmd) {
			m.last = cmd
		} else {
			m.dropped++
		}
		return m, nil

	case logMsg:
		m.logs.add(string(msg))
		return m, waitForLog(m.drv.Logs())
	}
	return m, nil
}

func (m DriveModel) View() string {
	if m.quitting {
		return "Drive stopped.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Manual Drive"))
	sb.WriteString(" - " + m.title)
	sb.WriteString(renderLink(m.link))
	sb.WriteString("\n\n")

	last := statusStyle.Render("none")
	if m.last != "" {
		last = commandStyle.Render(string(m.last))
	}
	sb.WriteString("Last Command: " + last)
	if m.dropped > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  (%d not sent)", m.dropped)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(renderHelp())
	sb.WriteString("\n")
	sb.WriteString(m.logs.render(m.width))
	sb.WriteString("\n")
	return sb.String()
}
