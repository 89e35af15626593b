package ui

// Keybinding represents a keyboard shortcut with its display name.
type Keybinding struct {
	Key  string // actual key(s) to match
	Desc string // description for help display
}

// Global keybindings (always available)
var (
	KeyQuit    = Keybinding{Key: "q", Desc: "Quit"}
	KeyQuitAlt = Keybinding{Key: "ctrl+c", Desc: "Quit"}
	KeyPause   = Keybinding{Key: "p", Desc: "Pause/resume ping"}
	KeyHost    = Keybinding{Key: "h", Desc: "Change target host"}
)

// Host editor keybindings
var (
	KeyEnter = Keybinding{Key: "enter", Desc: "Apply"}
	KeyEsc   = Keybinding{Key: "esc", Desc: "Cancel"}
)

// matchKey checks if the input matches the keybinding.
func matchKey(input string, keys ...Keybinding) bool {
	for _, k := range keys {
		if input == k.Key {
			return true
		}
	}
	return false
}
