package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Columns is the fixed width of the grid in cells.
const Columns = 4

// DefaultRowHeight is the height of one grid row in terminal lines.
const DefaultRowHeight = 9

var (
	// ErrNotEditing is returned by Remove outside edit mode.
	ErrNotEditing = errors.New("grid: not in edit mode")

	// ErrUnknownItem is returned by Remove for an id not in the layout.
	ErrUnknownItem = errors.New("grid: unknown item")
)

// CellState tells a render function how the item is being shown.
type CellState struct {
	Focused bool
	Editing bool
}

// RenderFunc draws an item into a block of exactly width x height cells.
type RenderFunc func(width, height int, state CellState) string

// Item is one widget to place.
type Item struct {
	ID   string
	Cols int
	Rows int

	Render RenderFunc

	// OnRemove is called by Layout.Remove in edit mode.
	OnRemove func() error
}

// Placement is the position assigned to an item, in cells from the origin.
type Placement struct {
	ID   string
	Row  int
	Col  int
	Cols int
	Rows int
}

// Engine arranges items into layouts.
type Engine struct {
	rowHeight int
}

// NewEngine creates an engine whose rows are rowHeight lines tall
// (DefaultRowHeight when rowHeight < 1).
func NewEngine(rowHeight int) *Engine {
	if rowHeight < 1 {
		rowHeight = DefaultRowHeight
	}
	return &Engine{rowHeight: rowHeight}
}

// RowHeight returns the row height in lines.
func (e *Engine) RowHeight() int {
	return e.rowHeight
}

// Arrange places items in order using dense auto-flow. Column spans are
// clamped to [1, Columns] and row spans to at least 1.
func (e *Engine) Arrange(items []Item) *Layout {
	l := &Layout{
		rowHeight:  e.rowHeight,
		items:      make([]Item, len(items)),
		placements: make([]Placement, len(items)),
	}

	var occupied [][Columns]bool
	for i, it := range items {
		it.Cols = min(max(it.Cols, 1), Columns)
		it.Rows = max(it.Rows, 1)
		l.items[i] = it

		row, col := firstFit(occupied, it.Cols, it.Rows)
		for len(occupied) < row+it.Rows {
			occupied = append(occupied, [Columns]bool{})
		}
		for r := row; r < row+it.Rows; r++ {
			for c := col; c < col+it.Cols; c++ {
				occupied[r][c] = true
			}
		}
		l.placements[i] = Placement{ID: it.ID, Row: row, Col: col, Cols: it.Cols, Rows: it.Rows}
	}
	l.rows = len(occupied)
	return l
}

// firstFit returns the first origin, in row-major order, where a
// cols x rows block is free. Rows past the end of occupied are free.
func firstFit(occupied [][Columns]bool, cols, rows int) (int, int) {
	for row := 0; ; row++ {
		for col := 0; col+cols <= Columns; col++ {
			if blockFree(occupied, row, col, cols, rows) {
				return row, col
			}
		}
	}
}

func blockFree(occupied [][Columns]bool, row, col, cols, rows int) bool {
	for r := row; r < row+rows && r < len(occupied); r++ {
		for c := col; c < col+cols; c++ {
			if occupied[r][c] {
				return false
			}
		}
	}
	return true
}

// Layout is an arranged set of items. It is not safe for concurrent use;
// the dashboard owns it from its update loop.
type Layout struct {
	rowHeight  int
	items      []Item
	placements []Placement
	rows       int

	editing bool
	focus   int
}

// Placements returns the item positions in item order.
func (l *Layout) Placements() []Placement {
	return append([]Placement(nil), l.placements...)
}

// Rows returns the number of grid rows in use.
func (l *Layout) Rows() int {
	return l.rows
}

// Len returns the number of items.
func (l *Layout) Len() int {
	return len(l.items)
}

// SetEditing turns edit mode on or off.
func (l *Layout) SetEditing(editing bool) {
	l.editing = editing
}

// Editing reports whether edit mode is on.
func (l *Layout) Editing() bool {
	return l.editing
}

// Focused returns the id of the focused item.
func (l *Layout) Focused() (string, bool) {
	if len(l.items) == 0 {
		return "", false
	}
	return l.items[l.focus].ID, true
}

// FocusNext moves focus to the next item, wrapping around.
func (l *Layout) FocusNext() {
	if len(l.items) > 0 {
		l.focus = (l.focus + 1) % len(l.items)
	}
}

// FocusPrev moves focus to the previous item, wrapping around.
func (l *Layout) FocusPrev() {
	if len(l.items) > 0 {
		l.focus = (l.focus + len(l.items) - 1) % len(l.items)
	}
}

// Focus moves focus to id. It reports false when id is not in the layout.
func (l *Layout) Focus(id string) bool {
	for i, it := range l.items {
		if it.ID == id {
			l.focus = i
			return true
		}
	}
	return false
}

// Remove calls the OnRemove hook of item id. It does not change the
// layout itself; the owner re-arranges from the updated item list.
func (l *Layout) Remove(id string) error {
	if !l.editing {
		return ErrNotEditing
	}
	for _, it := range l.items {
		if it.ID != id {
			continue
		}
		if it.OnRemove == nil {
			return nil
		}
		return it.OnRemove()
	}
	return fmt.Errorf("%w: %s", ErrUnknownItem, id)
}

// Render draws the grid with cells cellWidth columns wide.
func (l *Layout) Render(cellWidth int) string {
	if len(l.items) == 0 {
		return ""
	}
	cellWidth = max(cellWidth, 1)

	// Render every item to a block of fixed-size lines.
	blocks := make([][]string, len(l.items))
	for i, it := range l.items {
		p := l.placements[i]
		w, h := p.Cols*cellWidth, p.Rows*l.rowHeight
		var out string
		if it.Render != nil {
			out = it.Render(w, h, CellState{Focused: i == l.focus, Editing: l.editing})
		}
		blocks[i] = fitBlock(out, w, h)
	}

	// owner[r][c] is the index of the item covering cell (r, c), or -1.
	owner := make([][Columns]int, l.rows)
	for r := range owner {
		for c := range owner[r] {
			owner[r][c] = -1
		}
	}
	for i, p := range l.placements {
		for r := p.Row; r < p.Row+p.Rows; r++ {
			for c := p.Col; c < p.Col+p.Cols; c++ {
				owner[r][c] = i
			}
		}
	}

	blank := strings.Repeat(" ", cellWidth)
	var sb strings.Builder
	for y := 0; y < l.rows*l.rowHeight; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		row := y / l.rowHeight
		for c := 0; c < Columns; {
			i := owner[row][c]
			if i < 0 {
				sb.WriteString(blank)
				c++
				continue
			}
			p := l.placements[i]
			sb.WriteString(blocks[i][y-p.Row*l.rowHeight])
			c += p.Cols
		}
	}
	return sb.String()
}

// fitBlock splits s into exactly h lines of exactly w cells, truncating
// or padding as needed.
func fitBlock(s string, w, h int) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, h)
	clip := lipgloss.NewStyle().MaxWidth(w)
	for y := range out {
		var line string
		if y < len(lines) {
			line = lines[y]
		}
		if lipgloss.Width(line) > w {
			line = clip.Render(line)
		}
		if pad := w - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		out[y] = line
	}
	return out
}
