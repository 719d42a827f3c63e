package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keyboard bindings. View-local bindings
// (table movement, form fields) live in the view packages.
type KeyMap struct {
	Dashboard key.Binding
	Products  key.Binding
	Users     key.Binding
	Audit     key.Binding
	Logout    key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		Products: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "products"),
		),
		Users: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "users"),
		),
		Audit: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "audit"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "logout"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
