package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keybindings of the dashboard.
type KeyMap struct {
	// Grid
	Next      key.Binding
	Prev      key.Binding
	Edit      key.Binding
	Remove    key.Binding
	Action    key.Binding
	NewDevice key.Binding
	// Device list
	Left    key.Binding
	Right   key.Binding
	Link    key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Open    key.Binding
	// Widget manager
	Manage key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Close  key.Binding
	// Device form
	Cycle  key.Binding
	Submit key.Binding
	Cancel key.Binding
	// General
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next widget"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous widget"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit mode"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "remove widget"),
		),
		Action: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start/stop plugin"),
		),
		NewDevice: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "register peer"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "previous adapter"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next adapter"),
		),
		Link: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "link/unlink adapter"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete device"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "device details"),
		),
		Manage: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manage widgets"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "toggle widget"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "m"),
			key.WithHelp("esc", "close"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next protocol"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "create device"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the short help text for the keymap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Edit, k.Manage, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns the full help text for the keymap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Action, k.NewDevice, k.Refresh},
		{k.Up, k.Down, k.Left, k.Right, k.Link, k.Delete, k.Open},
		{k.Edit, k.Remove, k.Manage, k.Toggle},
		{k.Help, k.Quit},
	}
}
