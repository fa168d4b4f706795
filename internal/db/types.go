package db

import (
	"time"

	"github.com/zsprackett/ai-battery/internal/usage"
)

// UsageSnapshot is one recorded refresh. Percentages are percent used, as
// in the snapshot file.
type UsageSnapshot struct {
	ID            int64
	TsMs          int64
	CycleID       string
	Source        string
	SessionUsed   int
	SessionReset  string
	WeeklyUsed    int
	WeeklyReset   string
	SonnetUsed    int
	SonnetReset   string
	LastUpdatedMs int64 // lastUpdated from the snapshot file
}

// FromUsage flattens s into a history row recorded at ts.
func FromUsage(s usage.Snapshot, ts time.Time, cycleID, source string) UsageSnapshot {
	return UsageSnapshot{
		TsMs:          ts.UnixMilli(),
		CycleID:       cycleID,
		Source:        source,
		SessionUsed:   s.Claude.Session.PercentUsed,
		SessionReset:  s.Claude.Session.ResetAt,
		WeeklyUsed:    s.Claude.Weekly.PercentUsed,
		WeeklyReset:   s.Claude.Weekly.ResetAt,
		SonnetUsed:    s.Claude.WeeklySonnet.PercentUsed,
		SonnetReset:   s.Claude.WeeklySonnet.ResetAt,
		LastUpdatedMs: s.LastUpdated.UnixMilli(),
	}
}

// Snapshot rebuilds the usage snapshot a row was recorded from.
func (u UsageSnapshot) Snapshot() usage.Snapshot {
	return usage.Snapshot{
		LastUpdated: time.UnixMilli(u.LastUpdatedMs),
		Claude: usage.Claude{
			Session:      usage.Bucket{PercentUsed: u.SessionUsed, ResetAt: u.SessionReset},
			Weekly:       usage.Bucket{PercentUsed: u.WeeklyUsed, ResetAt: u.WeeklyReset},
			WeeklySonnet: usage.Bucket{PercentUsed: u.SonnetUsed, ResetAt: u.SonnetReset},
		},
	}
}

func (u UsageSnapshot) Time() time.Time {
	return time.UnixMilli(u.TsMs)
}
