package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the sync monitor.
type KeyMap struct {
	// Sync starts a pass immediately.
	Sync key.Binding

	// Online and Offline override the connectivity state.
	Online  key.Binding
	Offline key.Binding

	// Help toggle
	Help key.Binding

	Quit key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Sync: key.NewBinding(
			key.WithKeys("s", "r"),
			key.WithHelp("s", "sync now"),
		),
		Online: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "go online"),
		),
		Offline: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "go offline"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Sync, k.Help, k.Quit}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Sync, k.Online, k.Offline},
		{k.Help, k.Quit},
	}
}
