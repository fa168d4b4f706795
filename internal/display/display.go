// Package display turns a usage snapshot into the strings shown in the tray
// menu and status views.
package display

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/zsprackett/ai-battery/internal/usage"
)

type Tier int

const (
	TierNormal Tier = iota
	TierWarning
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierWarning:
		return "warning"
	default:
		return "normal"
	}
}

// TierFor classifies a remaining percentage: below 5 is critical, 5 through
// 20 is warning, anything above is normal.
func TierFor(remaining int) Tier {
	switch {
	case remaining < 5:
		return TierCritical
	case remaining <= 20:
		return TierWarning
	default:
		return TierNormal
	}
}

// Status icons
const (
	IconNormal   = "🟢"
	IconWarning  = "🟡"
	IconCritical = "🔴"
)

func (t Tier) Icon() string {
	switch t {
	case TierCritical:
		return IconCritical
	case TierWarning:
		return IconWarning
	default:
		return IconNormal
	}
}

const BarSegments = 10

// Filled returns how many of width segments represent remaining.
func Filled(remaining, width int) int {
	remaining = usage.Clamp(remaining)
	return int(math.Round(float64(remaining) / 100 * float64(width)))
}

// Bar renders the bracketed 10-segment battery bar.
func Bar(remaining int) string {
	filled := Filled(remaining, BarSegments)
	return "[" + strings.Repeat("▓", filled) + strings.Repeat("░", BarSegments-filled) + "]"
}

// RelativeTime describes how far reset is from now. Anything less than a
// minute away, including the past, is "now".
func RelativeTime(reset, now time.Time) string {
	d := reset.Sub(now)
	if d < time.Minute {
		return "now"
	}
	if d < time.Hour {
		return "in " + plural(int(d/time.Minute), "minute")
	}
	if d < 24*time.Hour {
		return "in " + plural(int(d/time.Hour), "hour")
	}
	return "in " + plural(int(d/(24*time.Hour)), "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ResetPhrase is RelativeTime for a bucket; ok is false when the bucket has
// no usable reset time.
func ResetPhrase(b usage.Bucket, now time.Time) (string, bool) {
	t, ok := b.ResetTime()
	if !ok {
		return "", false
	}
	return RelativeTime(t, now), true
}

// Label is the short name shown for a bucket.
func Label(name usage.BucketName) string {
	switch name {
	case usage.BucketWeekly:
		return "Weekly"
	case usage.BucketWeeklySonnet:
		return "Sonnet"
	default:
		return "Session"
	}
}
