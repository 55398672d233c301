package theme

import "os"

// Nerd Font icons
const (
	nerdIconSuccess = "󰄬"
	nerdIconError   = ""
	nerdIconWarning = ""
	nerdIconInfo    = "󰋼"
	nerdIconRunning = ""
	nerdIconIdle    = "󰏤"
)

// ASCII fallback icons
const (
	asciiIconSuccess = "✓"
	asciiIconError   = "✗"
	asciiIconWarning = "⚠"
	asciiIconInfo    = "i"
	asciiIconRunning = "*"
	asciiIconIdle    = "-"
)

// Icons is the icon set in use.
type Icons struct {
	Success string
	Error   string
	Warning string
	Info    string
	Running string
	Idle    string
}

// DefaultIcons follows PMD_NERD_FONTS or tui.nerd_fonts.
var DefaultIcons = NewIcons(useNerdFonts())

// NewIcons returns the Nerd Font set or the ASCII fallback.
func NewIcons(nerd bool) Icons {
	if nerd {
		return Icons{
			Success: nerdIconSuccess,
			Error:   nerdIconError,
			Warning: nerdIconWarning,
			Info:    nerdIconInfo,
			Running: nerdIconRunning,
			Idle:    nerdIconIdle,
		}
	}
	return Icons{
		Success: asciiIconSuccess,
		Error:   asciiIconError,
		Warning: asciiIconWarning,
		Info:    asciiIconInfo,
		Running: asciiIconRunning,
		Idle:    asciiIconIdle,
	}
}

func useNerdFonts() bool {
	switch os.Getenv("PMD_NERD_FONTS") {
	case "1", "true":
		return true
	case "0", "false":
		return false
	}
	return loadTUIConfig().NerdFonts
}
