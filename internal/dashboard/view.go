package dashboard

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/nerrad567/gohome/internal/grid"
	"github.com/nerrad567/gohome/internal/widget"
)

// EmptyText is shown when no widget is active.
const EmptyText = "No widgets active. Press m to add some."

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	badgeStyle  = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("214")).
			Padding(0, 1)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
)

// View renders the dashboard.
func (m *Model) View() string {
	if !m.ready {
		return widget.LoadingText
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.viewport.View(),
		m.help.View(m.keys),
	)
}

func (m *Model) header() string {
	parts := []string{headerStyle.Render("GoHome")}
	switch {
	case m.confirm != nil:
		parts = append(parts, badgeStyle.Render("DELETE"))
	case m.form != nil:
		parts = append(parts, badgeStyle.Render("NEW DEVICE"))
	case m.detail != nil:
		parts = append(parts, badgeStyle.Render("DEVICE"))
	case m.managing:
		parts = append(parts, badgeStyle.Render("WIDGETS"))
	case m.editing:
		parts = append(parts, badgeStyle.Render("EDIT"))
	}
	if m.status != "" {
		style := dimStyle
		if m.failed {
			style = errStyle
		}
		parts = append(parts, style.Render(m.status))
	}
	return lipgloss.NewStyle().MaxWidth(max(m.width, 1)).Render(strings.Join(parts, "  "))
}

// content is what the viewport scrolls.
func (m *Model) content() string {
	if m.form != nil {
		return m.form.View()
	}
	if m.detail != nil {
		return m.detailView()
	}
	if m.managing {
		return m.managerView()
	}
	if m.layout.Len() == 0 {
		return dimStyle.Render(EmptyText)
	}
	return m.layout.Render(m.cellWidth())
}

func (m *Model) cellWidth() int {
	return max(m.width/grid.Columns, minCellWidth)
}

func (m *Model) managerView() string {
	lines := []string{nameStyle.Render("Widgets") + dimStyle.Render("  enter toggles, esc closes"), ""}
	for i, id := range m.registry.IDs(widget.MountRoot) {
		d, _ := m.registry.Descriptor(id)
		var glyph string
		if entry, err := m.registry.Lookup(d.Type); err == nil {
			glyph = entry.Icon.Glyph()
		}
		mark := "[ ]"
		if m.store.Contains(id) {
			mark = linkedStyle.Render("[x]")
		}
		line := mark + " " + glyph + " " + d.Name
		if i == m.cursor {
			line = cursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// resizeViewport fits the viewport between the header and the help footer.
func (m *Model) resizeViewport() {
	footer := lipgloss.Height(m.help.View(m.keys))
	h := max(m.height-1-footer, 1)
	if !m.ready {
		m.viewport = viewport.New(m.width, h)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = h
	}
	m.syncViewport()
}

func (m *Model) syncViewport() {
	if m.ready {
		m.viewport.SetContent(m.content())
	}
}
