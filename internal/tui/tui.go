// Package tui provides the Bubbletea-based live process monitor for procd.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/procd/internal/daemon"
)

// Focus indicates which panel is currently focused.
type Focus int

const (
	FocusProcessList Focus = iota
	FocusOutputView
)

// Client is the subset of the daemon client the monitor needs.
type Client interface {
	ListProcesses() (*daemon.ListProcessesResponse, error)
	GetOutput(name, stream string, tail int) (*daemon.GetOutputResponse, error)
	StopProcess(name string, force bool) (*daemon.StopProcessResponse, error)
}

const (
	refreshInterval = time.Second
	outputTailChars = 8000
)

// Messages delivered by commands.
type (
	tickMsg     time.Time
	procListMsg struct {
		Processes []daemon.ProcessSummary
		Err       error
	}
	outputMsg struct {
		Name   string
		Stream string
		Text   string
		Err    error
	}
	stopResultMsg struct {
		Name string
		Err  error
	}
	clearErrorMsg struct{}
)

// Model is the main Bubbletea model for the procd monitor.
type Model struct {
	width  int
	height int
	ready  bool
	err    error

	focus    Focus
	procList ProcessList
	output   OutputView
	keys     KeyBindings

	client Client
}

// New creates a new monitor model backed by the given client.
func New(client Client) Model {
	procList := NewProcessList()
	procList.SetFocused(true)

	return Model{
		focus:    FocusProcessList,
		procList: procList,
		output:   NewOutputView(),
		keys:     DefaultKeyBindings(),
		client:   client,
	}
}

// Run starts the monitor and blocks until it exits.
func Run(client Client) error {
	p := tea.NewProgram(New(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchProcesses(), m.tickCmd())
}

// tickCmd schedules the next refresh.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchProcesses loads the process list from the daemon.
func (m Model) fetchProcesses() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		resp, err := client.ListProcesses()
		if err != nil {
			return procListMsg{Err: err}
		}
		return procListMsg{Processes: resp.Processes}
	}
}

// fetchOutput loads the tail of the selected process output.
func (m Model) fetchOutput(name, stream string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		resp, err := client.GetOutput(name, stream, outputTailChars)
		if err != nil {
			return outputMsg{Name: name, Stream: stream, Err: err}
		}
		if resp.Status == daemon.StatusNotFound {
			return outputMsg{Name: name, Stream: stream, Err: fmt.Errorf("no such process: %s", name)}
		}
		return outputMsg{Name: name, Stream: stream, Text: renderOutput(resp, stream)}
	}
}

// stopSelected asks the daemon to stop a process.
func (m Model) stopSelected(name string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		_, err := client.StopProcess(name, false)
		return stopResultMsg{Name: name, Err: err}
	}
}

// clearErrorCmd clears the error bar after a delay.
func clearErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

// renderOutput flattens an output response into displayable text.
func renderOutput(resp *daemon.GetOutputResponse, stream string) string {
	var b strings.Builder
	if resp.Stdout != nil {
		b.WriteString(*resp.Stdout)
	}
	if resp.Stderr != nil {
		if stream == "all" && b.Len() > 0 && *resp.Stderr != "" {
			if !strings.HasSuffix(b.String(), "\n") {
				b.WriteString("\n")
			}
		}
		b.WriteString(*resp.Stderr)
	}
	return b.String()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		cmds := []tea.Cmd{m.fetchProcesses(), m.tickCmd()}
		if p := m.procList.Selected(); p != nil {
			cmds = append(cmds, m.fetchOutput(p.Name, m.output.Stream()))
		}
		return m, tea.Batch(cmds...)

	case procListMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.procList.SetProcesses(msg.Processes)
		if p := m.procList.Selected(); p != nil && p.Name != m.output.Name() {
			m.output.SetProcess(p.Name)
			return m, m.fetchOutput(p.Name, m.output.Stream())
		}
		if m.procList.Selected() == nil {
			m.output.SetProcess("")
		}
		return m, nil

	case outputMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		// Ignore stale responses for a previously selected process
		if msg.Name == m.output.Name() && msg.Stream == m.output.Stream() {
			m.output.SetText(msg.Text)
		}
		return m, nil

	case stopResultMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		return m, m.fetchProcesses()

	case clearErrorMsg:
		m.err = nil
		return m, nil
	}

	return m, nil
}

// handleKey dispatches a key press based on the focused panel.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		if m.focus == FocusProcessList {
			m.focus = FocusOutputView
		} else {
			m.focus = FocusProcessList
		}
		m.procList.SetFocused(m.focus == FocusProcessList)
		m.output.SetFocused(m.focus == FocusOutputView)
		return m, nil

	case key.Matches(msg, m.keys.Stream):
		m.output.CycleStream()
		if p := m.procList.Selected(); p != nil {
			return m, m.fetchOutput(p.Name, m.output.Stream())
		}
		return m, nil

	case key.Matches(msg, m.keys.Kill):
		if p := m.procList.Selected(); p != nil {
			return m, m.stopSelected(p.Name)
		}
		return m, nil
	}

	if m.focus == FocusProcessList {
		return m.handleListKey(msg)
	}
	return m.handleOutputKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.procList.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.procList.MoveDown()
	case key.Matches(msg, m.keys.Top):
		m.procList.MoveToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.procList.MoveToBottom()
	default:
		return m, nil
	}

	if p := m.procList.Selected(); p != nil && p.Name != m.output.Name() {
		m.output.SetProcess(p.Name)
		return m, m.fetchOutput(p.Name, m.output.Stream())
	}
	return m, nil
}

func (m Model) handleOutputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.output.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.output.ScrollDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.output.ScrollUp(10)
	case key.Matches(msg, m.keys.PageDown):
		m.output.ScrollDown(10)
	case key.Matches(msg, m.keys.Top):
		m.output.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.output.GotoBottom()
	}
	return m, nil
}

// setError sets the error bar and schedules its clear.
func (m *Model) setError(err error) tea.Cmd {
	m.err = err
	return clearErrorCmd()
}

// layout recomputes component sizes from the window dimensions.
func (m *Model) layout() {
	// One line of header, one line of status bar
	bodyHeight := m.height - 2
	if bodyHeight < 2 {
		bodyHeight = 2
	}

	listWidth := m.width / 3
	if listWidth < 24 {
		listWidth = 24
	}
	outputWidth := m.width - listWidth
	if outputWidth < 1 {
		outputWidth = 1
	}

	m.procList.SetSize(listWidth, bodyHeight)
	m.output.SetSize(outputWidth, bodyHeight)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	brand := headerBrandStyle.Render("procd")
	stats := headerStatsStyle.Render(fmt.Sprintf("%d processes", len(m.procList.processes)))
	header := headerContainerStyle.Width(m.width).Render(
		lipgloss.JoinHorizontal(lipgloss.Center, brand, stats),
	)

	content := lipgloss.JoinHorizontal(lipgloss.Top, m.procList.View(), m.output.View())

	status := statusStyle.Render("q quit · tab switch pane · j/k move · s cycle stream · x stop")
	if m.err != nil {
		status = errorBarStyle.Render("error: " + m.err.Error())
	}

	return fmt.Sprintf("%s\n%s\n%s", header, content, status)
}
