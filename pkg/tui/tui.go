// Package tui implements the terminal interfaces: the guidance dashboard with
// a face width chart and the keyboard-only drive screen.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/faceguide/pkg/command"
)

const (
	headerHeight = 2 // title + blank line
	statusHeight = 3 // status lines + blank
	helpHeight   = 5
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	commandStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
)

// renderLink shows whether the command channel is up. A nil link renders nothing.
func renderLink(link func() bool) string {
	switch {
	case link == nil:
		return ""
	case link():
		return commandStyle.Render("  online")
	default:
		return warnStyle.Render("  offline")
	}
}

// Sender dispatches keyboard commands.
type Sender interface {
	Manual(cmd command.Command) bool
}

type logMsg string

func waitForLog(logs <-chan string) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-logs
		if !ok {
			return nil
		}
		return logMsg(msg)
	}
}

// logBox keeps the last maxLogs messages.
type logBox struct {
	lines []string
}

func (b *logBox) add(msg string) {
	b.lines = append(b.lines, msg)
	if len(b.lines) > maxLogs {
		b.lines = b.lines[len(b.lines)-maxLogs:]
	}
}

func (b logBox) render(width int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))
	if width > 4 {
		style = style.Width(width - 4)
	}
	if len(b.lines) == 0 {
		return style.Render(statusStyle.Render("Waiting for events..."))
	}
	return style.Render(strings.Join(b.lines, "\n"))
}

// keyAction classifies a key press: quit, a command, or nothing.
func keyAction(msg tea.KeyMsg) (cmd command.Command, quit bool, ok bool) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		return "", true, false
	case tea.KeySpace:
		return command.Stop, false, true
	}
	k := msg.String()
	if k == "space" {
		k = " "
	}
	cmd, ok = command.FromKey(k)
	return cmd, false, ok
}

func renderHelp() string {
	return helpStyle.Render(strings.Join(command.Help(), "\n"))
}
