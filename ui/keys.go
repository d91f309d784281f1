package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the editor surface's key bindings. The chords mirror
// the web client so muscle memory transfers.
type KeyMap struct {
	Save     key.Binding
	Edit     key.Binding
	New      key.Binding
	Raw      key.Binding
	Share    key.Binding
	Delete   key.Binding
	Language key.Binding
	Public   key.Binding
	Focus    key.Binding
	Dismiss  key.Binding
	Quit     key.Binding
}

var DefaultKeyMap = KeyMap{
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "save"),
	),
	Edit: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("C-e", "edit"),
	),
	New: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("C-n", "new"),
	),
	Raw: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "raw"),
	),
	Share: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("C-x", "copy link"),
	),
	Delete: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("C-d", "delete"),
	),
	Language: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("C-l", "language"),
	),
	Public: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("C-p", "public/private"),
	),
	Focus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "title/body"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "dismiss"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}
