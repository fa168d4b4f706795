package usage_test

import (
	"strings"
	"testing"
	"time"

	"github.com/zsprackett/ai-battery/internal/claudeusage"
	"github.com/zsprackett/ai-battery/internal/usage"
)

const usageScreen = "\x1b[1mSettings\x1b[0m  Usage\n" +
	"  Current session\n" +
	"  ████████████████████████████████████████████▌  91% used\n" +
	"  Resets 1am (America/Chicago)\n\n" +
	"  Current week (all models)\n" +
	"  █████▌  11% used\n" +
	"  Resets Jan 15, 6am (America/Chicago)\n\n" +
	"  Current week (Sonnet only)\n" +
	"  ▌  3% used\n"

func TestParseText_FullScreen(t *testing.T) {
	now := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)
	snap := usage.ParseText(usageScreen, now)

	if snap.Claude.Session.PercentUsed != 91 {
		t.Errorf("session: got %d want 91", snap.Claude.Session.PercentUsed)
	}
	if snap.Claude.Weekly.PercentUsed != 11 {
		t.Errorf("weekly: got %d want 11", snap.Claude.Weekly.PercentUsed)
	}
	if snap.Claude.WeeklySonnet.PercentUsed != 3 {
		t.Errorf("sonnet: got %d want 3", snap.Claude.WeeklySonnet.PercentUsed)
	}

	// 1am already passed today, so it rolls to tomorrow.
	if want := "2026-01-11T01:00:00Z"; snap.Claude.Session.ResetAt != want {
		t.Errorf("session reset: got %q want %q", snap.Claude.Session.ResetAt, want)
	}
	if want := "2026-01-15T06:00:00Z"; snap.Claude.Weekly.ResetAt != want {
		t.Errorf("weekly reset: got %q want %q", snap.Claude.Weekly.ResetAt, want)
	}
	if snap.Claude.WeeklySonnet.ResetAt != snap.Claude.Weekly.ResetAt {
		t.Errorf("sonnet should inherit weekly reset, got %q", snap.Claude.WeeklySonnet.ResetAt)
	}
	if !snap.LastUpdated.Equal(now) {
		t.Errorf("lastUpdated: got %v", snap.LastUpdated)
	}
}

func TestParseText_SessionOnly(t *testing.T) {
	snap := usage.ParseText("Current session ... 91% used", time.Now())
	if snap.Claude.Session.PercentUsed != 91 {
		t.Errorf("session: got %d want 91", snap.Claude.Session.PercentUsed)
	}
	if snap.Claude.Weekly.PercentUsed != 0 {
		t.Errorf("weekly: got %d want 0", snap.Claude.Weekly.PercentUsed)
	}
	if snap.Claude.Weekly.ResetAt != "" {
		t.Errorf("weekly reset should be absent, got %q", snap.Claude.Weekly.ResetAt)
	}

	data, err := usage.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"resetAt"`) {
		t.Errorf("expected no resetAt key, got %s", data)
	}
}

func TestParseText_SessionResetLaterToday(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	snap := usage.ParseText("Current session 5% used Resets 12:30pm", now)
	if want := "2026-03-02T12:30:00Z"; snap.Claude.Session.ResetAt != want {
		t.Errorf("got %q want %q", snap.Claude.Session.ResetAt, want)
	}
}

func TestParseText_SessionResetRollsAcrossMonth(t *testing.T) {
	now := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
	snap := usage.ParseText("Current session 5% used Resets 12am", now)
	if want := "2026-02-01T00:00:00Z"; snap.Claude.Session.ResetAt != want {
		t.Errorf("got %q want %q", snap.Claude.Session.ResetAt, want)
	}
}

func TestParseText_WeeklyResetNextYear(t *testing.T) {
	now := time.Date(2026, 12, 28, 10, 0, 0, 0, time.UTC)
	snap := usage.ParseText("Current week (all models) 40% used Resets Jan 3, 6:15pm", now)
	if want := "2027-01-03T18:15:00Z"; snap.Claude.Weekly.ResetAt != want {
		t.Errorf("got %q want %q", snap.Claude.Weekly.ResetAt, want)
	}
}

func TestParseText_WeeklyResetImpossibleDate(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	snap := usage.ParseText("Current week (all models) 40% used Resets Feb 31, 6am", now)
	if snap.Claude.Weekly.PercentUsed != 40 {
		t.Errorf("weekly used: got %d want 40", snap.Claude.Weekly.PercentUsed)
	}
	if snap.Claude.Weekly.ResetAt != "" || snap.Claude.WeeklySonnet.ResetAt != "" {
		t.Errorf("Feb 31 should not produce a reset time, got %q", snap.Claude.Weekly.ResetAt)
	}
}

func TestParseText_ClampsOutOfRange(t *testing.T) {
	snap := usage.ParseText("Current session 250% used", time.Now())
	if snap.Claude.Session.PercentUsed != 100 {
		t.Errorf("got %d want 100", snap.Claude.Session.PercentUsed)
	}
}

func TestParseText_Idempotent(t *testing.T) {
	now := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)
	a := usage.ParseText(usageScreen, now)
	b := usage.ParseText(usageScreen, now)
	if a.Claude != b.Claude {
		t.Errorf("parses differ: %+v vs %+v", a.Claude, b.Claude)
	}
}

func TestFromAPI(t *testing.T) {
	now := time.Now()
	snap := usage.FromAPI(&claudeusage.UsageResponse{
		FiveHour: &claudeusage.WindowUsage{Utilization: 47.6, ResetsAt: "2025-01-15T06:00:00Z"},
	}, now)
	if snap.Claude.Session.PercentUsed != 48 {
		t.Errorf("session: got %d want 48", snap.Claude.Session.PercentUsed)
	}
	if snap.Claude.Session.ResetAt != "2025-01-15T06:00:00Z" {
		t.Errorf("session reset: got %q", snap.Claude.Session.ResetAt)
	}
	if snap.Claude.Weekly != (usage.Bucket{}) {
		t.Errorf("weekly should be default, got %+v", snap.Claude.Weekly)
	}
}

func TestFromAPI_SonnetKeys(t *testing.T) {
	snap := usage.FromAPI(&claudeusage.UsageResponse{
		SevenDaySonnet: &claudeusage.WindowUsage{Utilization: 12.2},
	}, time.Now())
	if snap.Claude.WeeklySonnet.PercentUsed != 12 {
		t.Errorf("seven_day_sonnet fallback: got %d", snap.Claude.WeeklySonnet.PercentUsed)
	}

	snap = usage.FromAPI(&claudeusage.UsageResponse{
		Sonnet:         &claudeusage.WindowUsage{Utilization: 70},
		SevenDaySonnet: &claudeusage.WindowUsage{Utilization: 12},
	}, time.Now())
	if snap.Claude.WeeklySonnet.PercentUsed != 70 {
		t.Errorf("sonnet should win: got %d", snap.Claude.WeeklySonnet.PercentUsed)
	}
}

func TestFromAPI_Nil(t *testing.T) {
	now := time.Now()
	snap := usage.FromAPI(nil, now)
	if snap.Claude != (usage.Claude{}) {
		t.Errorf("expected default buckets, got %+v", snap.Claude)
	}
	if !snap.LastUpdated.Equal(now) {
		t.Error("expected lastUpdated to be stamped")
	}
}

func TestRemaining(t *testing.T) {
	for used := -5; used <= 105; used++ {
		r := usage.Bucket{PercentUsed: used}.Remaining()
		if r < 0 || r > 100 {
			t.Fatalf("remaining(%d) = %d out of range", used, r)
		}
		if used >= 0 && used <= 100 && r != 100-used {
			t.Fatalf("remaining(%d) = %d want %d", used, r, 100-used)
		}
	}
}

func TestResetTime(t *testing.T) {
	b := usage.Bucket{ResetAt: "2025-01-15T06:00:00Z"}
	got, ok := b.ResetTime()
	if !ok || !got.Equal(time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("rfc3339: got %v %v", got, ok)
	}

	b = usage.Bucket{ResetAt: "2025-01-15T06:00:00"}
	if _, ok := b.ResetTime(); !ok {
		t.Error("expected naive timestamp to parse")
	}

	if _, ok := (usage.Bucket{}).ResetTime(); ok {
		t.Error("empty resetAt should not parse")
	}
	if _, ok := (usage.Bucket{ResetAt: "soon"}).ResetTime(); ok {
		t.Error("garbage resetAt should not parse")
	}
}
