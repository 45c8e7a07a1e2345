package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/muesli/reflow/wordwrap"
)

// OutputView displays the captured output of the selected process in a
// scrollable viewport.
type OutputView struct {
	width    int
	height   int
	focused  bool
	ready    bool
	name     string
	stream   string
	text     string
	viewport viewport.Model
}

// NewOutputView creates a new output view component.
func NewOutputView() OutputView {
	return OutputView{stream: "all"}
}

// SetSize updates the component dimensions.
func (v *OutputView) SetSize(width, height int) {
	v.width = width
	v.height = height

	// Account for the border and the header line
	contentWidth := width - 2
	contentHeight := height - 3
	if contentWidth < 1 {
		contentWidth = 1
	}
	if contentHeight < 1 {
		contentHeight = 1
	}

	if !v.ready {
		v.viewport = viewport.New(contentWidth, contentHeight)
		v.ready = true
	} else {
		v.viewport.Width = contentWidth
		v.viewport.Height = contentHeight
	}

	v.updateContent()
}

// SetFocused sets the focus state.
func (v *OutputView) SetFocused(focused bool) {
	v.focused = focused
}

// Name returns the name of the process currently shown.
func (v *OutputView) Name() string {
	return v.name
}

// Stream returns the stream selector currently shown.
func (v *OutputView) Stream() string {
	return v.stream
}

// CycleStream advances the stream selector: all, stdout, stderr.
func (v *OutputView) CycleStream() {
	switch v.stream {
	case "all":
		v.stream = "stdout"
	case "stdout":
		v.stream = "stderr"
	default:
		v.stream = "all"
	}
}

// SetProcess switches the view to a different process, clearing stale text.
func (v *OutputView) SetProcess(name string) {
	if v.name != name {
		v.name = name
		v.text = ""
		v.updateContent()
	}
}

// SetText replaces the displayed output.
func (v *OutputView) SetText(text string) {
	atBottom := v.viewport.AtBottom()
	v.text = text
	v.updateContent()
	if atBottom {
		v.viewport.GotoBottom()
	}
}

// ScrollUp scrolls the viewport up.
func (v *OutputView) ScrollUp(n int) {
	v.viewport.LineUp(n)
}

// ScrollDown scrolls the viewport down.
func (v *OutputView) ScrollDown(n int) {
	v.viewport.LineDown(n)
}

// GotoTop scrolls to the start of the output.
func (v *OutputView) GotoTop() {
	v.viewport.GotoTop()
}

// GotoBottom scrolls to the end of the output.
func (v *OutputView) GotoBottom() {
	v.viewport.GotoBottom()
}

// updateContent re-wraps the text for the current viewport width.
func (v *OutputView) updateContent() {
	if !v.ready {
		return
	}
	if v.text == "" {
		v.viewport.SetContent(outputEmptyStyle.Render("No output"))
		return
	}
	wrapped := wordwrap.String(v.text, v.viewport.Width)
	v.viewport.SetContent(wrapped)
}

// View renders the output pane.
func (v OutputView) View() string {
	headerStyle := outputHeaderStyle
	borderStyle := outputBorderStyle
	if v.focused {
		headerStyle = outputHeaderFocusedStyle
		borderStyle = outputFocusedBorderStyle
	}

	title := "no selection"
	if v.name != "" {
		title = fmt.Sprintf("%s [%s]", v.name, v.stream)
	}
	headerWidth := v.width - 2
	if headerWidth < 1 {
		headerWidth = 1
	}
	header := headerStyle.Width(headerWidth).Render(outputTitleStyle.Render(title))

	body := v.viewport.View()
	content := strings.Join([]string{header, body}, "\n")
	return borderStyle.Render(content)
}
