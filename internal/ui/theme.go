package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/zsprackett/ai-battery/internal/display"
)

// Theme colors for the TUI.
var (
	ColorBackground = tcell.NewHexColor(0x1e1e2e)
	ColorPrimary    = tcell.NewHexColor(0x89b4fa) // blue
	ColorText       = tcell.NewHexColor(0xcdd6f4)
	ColorTextMuted  = tcell.NewHexColor(0x6c7086)
	ColorSuccess    = tcell.NewHexColor(0xa6e3a1) // green
	ColorWarning    = tcell.NewHexColor(0xf9e2af) // yellow
	ColorError      = tcell.NewHexColor(0xf38ba8) // red
	ColorBorder     = tcell.NewHexColor(0x45475a)
)

// TierColor maps a battery tier onto the palette.
func TierColor(t display.Tier) tcell.Color {
	switch t {
	case display.TierCritical:
		return ColorError
	case display.TierWarning:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// TierHex is TierColor as "#rrggbb", for tview color tags and lipgloss.
func TierHex(t display.Tier) string {
	return Hex(TierColor(t))
}

func Hex(c tcell.Color) string {
	r, g, b := c.RGB()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
