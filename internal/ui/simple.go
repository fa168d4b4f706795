package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/usage"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(Hex(ColorPrimary)))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(Hex(ColorTextMuted)))
)

func tierStyle(t display.Tier) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(TierHex(t)))
}

// RenderSimple writes the menu's status lines as plain text, for pipes and
// `status --simple`. color enables lipgloss styling.
func RenderSimple(w io.Writer, st display.State, now time.Time, color bool) error {
	render := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var sb strings.Builder
	sb.WriteString(render(headerStyle, display.MenuHeader))
	if !st.Loaded {
		sb.WriteString("\n" + display.MenuWaiting + "\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}
	sb.WriteString("  " + render(mutedStyle, display.Tooltip(st, now)) + "\n")

	for _, name := range usage.Buckets {
		b := st.Snapshot.Claude.Get(name)
		remaining := b.Remaining()
		line := display.StatusLine(name, remaining)
		sb.WriteString(render(tierStyle(display.TierFor(remaining)), line))
		if phrase, ok := display.ResetPhrase(b, now); ok {
			sb.WriteString(render(mutedStyle, fmt.Sprintf("  resets %s", phrase)))
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
