package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/procd/internal/daemon"
)

// ProcessList displays a navigable list of managed processes.
type ProcessList struct {
	width     int
	height    int
	processes []daemon.ProcessSummary
	selected  int
	focused   bool
}

// NewProcessList creates a new process list component.
func NewProcessList() ProcessList {
	return ProcessList{}
}

// SetSize updates the component dimensions.
func (l *ProcessList) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// SetFocused sets the focus state.
func (l *ProcessList) SetFocused(focused bool) {
	l.focused = focused
}

// SetProcesses updates the process list, preserving the selection by name
// across refreshes.
func (l *ProcessList) SetProcesses(processes []daemon.ProcessSummary) {
	selectedName := ""
	if p := l.Selected(); p != nil {
		selectedName = p.Name
	}

	l.processes = processes
	l.selected = 0
	for i, p := range processes {
		if p.Name == selectedName {
			l.selected = i
			break
		}
	}
}

// Selected returns the currently selected process, or nil if the list is empty.
func (l *ProcessList) Selected() *daemon.ProcessSummary {
	if len(l.processes) == 0 || l.selected < 0 || l.selected >= len(l.processes) {
		return nil
	}
	return &l.processes[l.selected]
}

// MoveUp moves selection up one item.
func (l *ProcessList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down one item.
func (l *ProcessList) MoveDown() {
	if l.selected < len(l.processes)-1 {
		l.selected++
	}
}

// MoveToTop moves selection to the first item.
func (l *ProcessList) MoveToTop() {
	l.selected = 0
}

// MoveToBottom moves selection to the last item.
func (l *ProcessList) MoveToBottom() {
	if len(l.processes) > 0 {
		l.selected = len(l.processes) - 1
	}
}

// View renders the process list.
func (l ProcessList) View() string {
	if len(l.processes) == 0 {
		return procListEmptyStyle.Width(l.width).Height(l.height).Render("No processes")
	}

	rows := make([]string, 0, len(l.processes))
	for i, p := range l.processes {
		rows = append(rows, l.renderProcess(i, p))
	}

	content := strings.Join(rows, "\n")
	return lipgloss.NewStyle().Width(l.width).Height(l.height).Render(content)
}

// renderProcess renders a single process row.
func (l ProcessList) renderProcess(index int, p daemon.ProcessSummary) string {
	statusStr := statusIndicatorStyle(p.Status).Render(statusIcon(p.Status))
	nameStr := procNameStyle.Render(p.Name)

	command := p.Command
	if len(p.Args) > 0 {
		command += " " + strings.Join(p.Args, " ")
	}
	commandStr := procCommandStyle.Render(command)

	left := lipgloss.JoinHorizontal(lipgloss.Center,
		statusStr, " ",
		nameStr, " ",
		commandStr,
	)

	right := procUptimeStyle.Render(l.renderRight(p))

	// Right-align the uptime or exit code
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	spacerWidth := l.width - leftWidth - rightWidth - 4
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	row := left + strings.Repeat(" ", spacerWidth) + right

	if index == l.selected {
		return procRowSelectedStyle.Width(l.width).Render(row)
	}
	return procRowStyle.Width(l.width).Render(row)
}

// renderRight renders the trailing cell: uptime for live processes, exit
// code for dead ones.
func (l ProcessList) renderRight(p daemon.ProcessSummary) string {
	if p.UptimeSeconds != nil {
		d := time.Duration(*p.UptimeSeconds * float64(time.Second)).Truncate(time.Second)
		return formatDuration(d)
	}
	if p.ExitCode != nil {
		return fmt.Sprintf("exit %d", *p.ExitCode)
	}
	return p.Status
}

// statusIcon returns an icon for a process status.
func statusIcon(status string) string {
	switch status {
	case "running":
		return "●"
	case "starting", "stopping":
		return "◐"
	case "stopped":
		return "○"
	case "failed":
		return "✗"
	default:
		return "?"
	}
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
