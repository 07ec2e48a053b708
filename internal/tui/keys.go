package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the dashboard TUI.
type KeyMap struct {
	// List navigation.
	Up   key.Binding
	Down key.Binding

	// Filter tabs.
	FilterAll          key.Binding
	FilterPending      key.Binding
	FilterAutoResolved key.Binding
	FilterEscalated    key.Binding

	// Actions.
	Refresh    key.Binding
	Replay     key.Binding // Start or stop the trace replay animation.
	ToggleStep key.Binding // Expand or collapse the highlighted step's reasoning.
	StepUp     key.Binding // Move the step highlight in the trace pane.
	StepDown   key.Binding
	Override   key.Binding // Open the override form for the selected ticket.

	// Override form.
	Submit key.Binding
	Cancel key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	FilterAll: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "all"),
	),
	FilterPending: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "pending"),
	),
	FilterAutoResolved: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "auto-resolved"),
	),
	FilterEscalated: key.NewBinding(
		key.WithKeys("4"),
		key.WithHelp("4", "escalated"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Replay: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space", "replay"),
	),
	ToggleStep: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "expand step"),
	),
	StepUp: key.NewBinding(
		key.WithKeys("K", "shift+up"),
		key.WithHelp("K", "step up"),
	),
	StepDown: key.NewBinding(
		key.WithKeys("J", "shift+down"),
		key.WithHelp("J", "step down"),
	),
	Override: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "override"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "submit"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
