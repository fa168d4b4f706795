package usage

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/zsprackett/ai-battery/internal/claudeusage"
)

var (
	sessionUsedRe  = regexp.MustCompile(`(?s)Current session.*?(\d+)%\s*used`)
	sessionResetRe = regexp.MustCompile(`(?si)Current session.*?Resets\s+(\d+(?::\d+)?[ap]m)`)
	weeklyUsedRe   = regexp.MustCompile(`(?s)all models.*?(\d+)%\s*used`)
	weeklyResetRe  = regexp.MustCompile(`(?si)all models.*?Resets\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d+),?\s*(\d+(?::\d+)?[ap]m)`)
	sonnetUsedRe   = regexp.MustCompile(`(?s)Sonnet only.*?(\d+)%\s*used`)

	clockRe = regexp.MustCompile(`^(\d+)(?::(\d+))?([ap]m)$`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseText extracts a snapshot from the rendered `/usage` screen. Every
// pattern is independent; a miss leaves that field at its default.
func ParseText(output string, now time.Time) Snapshot {
	text := ansi.Strip(output)
	snap := Default(now)
	c := &snap.Claude

	if m := sessionUsedRe.FindStringSubmatch(text); m != nil {
		c.Session.PercentUsed = atoiPct(m[1])
	}
	if m := sessionResetRe.FindStringSubmatch(text); m != nil {
		if t, ok := sessionReset(m[1], now); ok {
			c.Session.ResetAt = t.Format(time.RFC3339)
		}
	}
	if m := weeklyUsedRe.FindStringSubmatch(text); m != nil {
		c.Weekly.PercentUsed = atoiPct(m[1])
	}
	if m := weeklyResetRe.FindStringSubmatch(text); m != nil {
		if t, ok := weeklyReset(m[1], m[2], m[3], now); ok {
			c.Weekly.ResetAt = t.Format(time.RFC3339)
			c.WeeklySonnet.ResetAt = c.Weekly.ResetAt
		}
	}
	if m := sonnetUsedRe.FindStringSubmatch(text); m != nil {
		c.WeeklySonnet.PercentUsed = atoiPct(m[1])
	}
	return snap
}

// FromAPI maps the usage endpoint response. A nil response yields the
// default snapshot.
func FromAPI(resp *claudeusage.UsageResponse, now time.Time) Snapshot {
	snap := Default(now)
	if resp == nil {
		return snap
	}
	c := &snap.Claude
	applyWindow(&c.Session, resp.FiveHour)
	applyWindow(&c.Weekly, resp.SevenDay)
	if resp.Sonnet != nil {
		applyWindow(&c.WeeklySonnet, resp.Sonnet)
	} else {
		applyWindow(&c.WeeklySonnet, resp.SevenDaySonnet)
	}
	return snap
}

func applyWindow(b *Bucket, w *claudeusage.WindowUsage) {
	if w == nil {
		return
	}
	b.PercentUsed = Clamp(int(math.Round(w.Utilization)))
	if w.ResetsAt != "" {
		b.ResetAt = w.ResetsAt
	}
}

func atoiPct(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return Clamp(n)
}

// clock converts "1am", "12:59pm" into 24h hour and minute.
func clock(s string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 12 || minute > 59 {
		return 0, 0, false
	}
	switch {
	case m[3] == "pm" && hour != 12:
		hour += 12
	case m[3] == "am" && hour == 12:
		hour = 0
	}
	return hour, minute, true
}

// sessionReset resolves a bare time of day to the next occurrence after now.
func sessionReset(s string, now time.Time) (time.Time, bool) {
	hour, minute, ok := clock(s)
	if !ok {
		return time.Time{}, false
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

// weeklyReset resolves "Jan 15, 6am". The year is the current one unless the
// month has already passed.
func weeklyReset(mon, day, tod string, now time.Time) (time.Time, bool) {
	month, ok := months[strings.ToLower(mon)]
	if !ok {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	hour, minute, ok := clock(tod)
	if !ok {
		return time.Time{}, false
	}
	year := now.Year()
	if month < now.Month() {
		year++
	}
	t := time.Date(year, month, d, hour, minute, 0, 0, now.Location())
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
