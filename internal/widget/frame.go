package widget

import (
	"github.com/charmbracelet/lipgloss"
)

// LoadingText is shown in place of a body that has not loaded yet.
const LoadingText = "Loading…"

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	focusedFrameStyle = frameStyle.
				BorderForeground(lipgloss.Color("63"))
	editingFrameStyle = frameStyle.
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("214"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	removeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Renderable is a resolved widget ready to draw.
type Renderable struct {
	ID     string
	Name   string
	Icon   Icon
	Cols   int
	Rows   int
	Config Config
	Body   Body
}

// FrameOptions adjusts how a frame is drawn.
type FrameOptions struct {
	Focused bool
	Editing bool
}

// View draws the widget inside a titled frame of exactly width x height
// cells. The title shows the icon glyph and the widget name; in edit mode
// it also carries a remove marker.
func (r *Renderable) View(width, height int, opts FrameOptions) string {
	style := frameStyle
	switch {
	case opts.Editing:
		style = editingFrameStyle
	case opts.Focused:
		style = focusedFrameStyle
	}
	if opts.Editing && opts.Focused {
		style = style.BorderForeground(lipgloss.Color("196"))
	}

	// Border takes two cells each way, padding two more columns, title one line.
	innerW := max(width-4, 1)
	innerH := max(height-3, 0)

	title := r.Icon.Glyph() + " " + r.Name
	if opts.Editing {
		title += " " + removeStyle.Render("✕")
	}
	title = titleStyle.MaxWidth(innerW).Render(title)

	var body string
	switch {
	case innerH == 0:
	case r.Body == nil || !r.Body.Ready():
		body = loadingStyle.Render(LoadingText)
	default:
		body = r.Body.View(innerW, innerH)
	}

	content := lipgloss.NewStyle().
		Width(innerW).
		Height(innerH + 1).
		MaxHeight(innerH + 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body))

	return style.Width(max(width-2, 1)).Render(content)
}
