package tui

// Key bindings shared by the views.
const (
	keyQuit   = "q"
	keyCtrlC  = "ctrl+c"
	keyEnter  = "enter"
	keyEsc    = "esc"
	keySlash  = "/"
	keySort   = "s"
	keyVerify = "v"
)

const (
	defaultWidth  = 100
	defaultHeight = 24
	chromeHeight  = 4
	minHeight     = 5
	borderPadding = 2
)
