package dialogs

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/zsprackett/ai-battery/internal/db"
	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/usage"
)

const sparkChars = "▁▂▃▄▅▆▇█"

// HistoryLimit is how many history rows feed the sparklines.
const HistoryLimit = 48

// UsageDialog is a tview.TextView showing the battery for each bucket.
type UsageDialog struct {
	*tview.TextView
	state func() display.State
	store *db.DB
	now   func() time.Time
}

// NewUsageDialog creates a usage dialog. state supplies the current
// snapshot; store may be nil, in which case no history is drawn.
// onClose is called when the user presses Q or Escape.
// onRefresh is called when the user presses R; it should fetch and then
// call Reload from the UI goroutine.
func NewUsageDialog(state func() display.State, store *db.DB, onClose func(), onRefresh func()) *UsageDialog {
	d := &UsageDialog{
		TextView: tview.NewTextView(),
		state:    state,
		store:    store,
		now:      time.Now,
	}
	d.SetBorder(true).SetTitle(" AI Battery ").SetTitleAlign(tview.AlignLeft)
	d.SetDynamicColors(true)
	d.SetBackgroundColor(tcell.ColorDefault)

	d.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape, event.Rune() == 'q', event.Rune() == 'Q':
			onClose()
			return nil
		case event.Rune() == 'r', event.Rune() == 'R':
			d.SetText(d.buildText(d.state(), d.history()) + "\n\n  [yellow]Refreshing...[-]")
			go onRefresh()
			return nil
		}
		return event
	})

	d.Reload()
	return d
}

// Reload redraws from the current state and history.
func (d *UsageDialog) Reload() {
	d.SetText(d.buildText(d.state(), d.history()))
}

func (d *UsageDialog) history() []db.UsageSnapshot {
	if d.store == nil {
		return nil
	}
	rows, _ := d.store.GetUsageSnapshots(HistoryLimit)
	return rows
}

func (d *UsageDialog) buildText(st display.State, history []db.UsageSnapshot) string {
	var sb strings.Builder

	if !st.Loaded {
		sb.WriteString("\n  [yellow]No usage data yet.[-]\n\n")
		sb.WriteString("  Press [green]R[-] to fetch current usage.\n")
		sb.WriteString("\n  [gray]Press Q or Esc to close.[-]")
		return sb.String()
	}

	now := d.now()
	sb.WriteString("\n  [::b]Claude[::-]\n\n")
	for _, name := range usage.Buckets {
		b := st.Snapshot.Claude.Get(name)
		remaining := b.Remaining()
		sb.WriteString(fmt.Sprintf("  %s [yellow]%-8s[-] %s  %s\n",
			display.TierFor(remaining).Icon(), display.Label(name), progressBar(remaining, 30), formatRemaining(remaining)))
		if phrase, ok := display.ResetPhrase(b, now); ok {
			sb.WriteString(fmt.Sprintf("              [gray]Resets %s[-]\n", phrase))
		}
		sb.WriteString("\n")
	}

	// Sparklines of percent used (history[0] is newest).
	if len(history) > 1 {
		sb.WriteString("  [yellow]History (newest right)[-]\n")
		sb.WriteString(fmt.Sprintf("  Session %s\n", Sparkline(history, func(s db.UsageSnapshot) int { return s.SessionUsed })))
		sb.WriteString(fmt.Sprintf("  Weekly  %s\n", Sparkline(history, func(s db.UsageSnapshot) int { return s.WeeklyUsed })))
		sb.WriteString(fmt.Sprintf("  Sonnet  %s\n", Sparkline(history, func(s db.UsageSnapshot) int { return s.SonnetUsed })))

		oldest := history[len(history)-1].Time()
		newest := history[0].Time()
		sb.WriteString(fmt.Sprintf("  [gray]%s  →  %s[-]\n",
			oldest.Local().Format("Jan 2 15:04"),
			newest.Local().Format("Jan 2 15:04")))
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("  [gray]Last updated: %s[-]\n", st.Snapshot.LastUpdated.Local().Format("Jan 2 15:04:05")))
	sb.WriteString("\n  [green]R[-] refresh  [green]Q/Esc[-] close")

	return sb.String()
}

func tierTag(remaining int) string {
	switch display.TierFor(remaining) {
	case display.TierCritical:
		return "red"
	case display.TierWarning:
		return "yellow"
	default:
		return "green"
	}
}

// formatRemaining formats a remaining percentage in its tier color.
func formatRemaining(remaining int) string {
	return fmt.Sprintf("[%s]%d%% left[-]", tierTag(remaining), remaining)
}

// progressBar renders remaining as a bar of width cells in its tier color.
func progressBar(remaining, width int) string {
	filled := display.Filled(remaining, width)
	return fmt.Sprintf("[%s][%s%s][-]", tierTag(remaining), strings.Repeat("█", filled), strings.Repeat("░", width-filled))
}

// Sparkline renders val (a percentage) for each row, oldest leftmost.
func Sparkline(history []db.UsageSnapshot, val func(db.UsageSnapshot) int) string {
	runes := []rune(sparkChars)
	var sb strings.Builder
	for i := len(history) - 1; i >= 0; i-- {
		v := usage.Clamp(val(history[i]))
		sb.WriteRune(runes[v*(len(runes)-1)/100])
	}
	return sb.String()
}
