package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/usage"
)

func TestRenderSimple(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	st := display.State{
		Loaded: true,
		Snapshot: usage.Snapshot{
			LastUpdated: now.Add(-3 * time.Minute),
			Claude: usage.Claude{
				Session: usage.Bucket{PercentUsed: 45, ResetAt: "2026-01-10T12:30:00Z"},
				Weekly:  usage.Bucket{PercentUsed: 90},
			},
		},
	}
	var buf bytes.Buffer
	if err := RenderSimple(&buf, st, now, false); err != nil {
		t.Fatal(err)
	}
	want := "AI Battery  Updated 3 minutes ago\n" +
		"🟢  Session  [▓▓▓▓▓▓░░░░]  55% left  resets in 30 minutes\n" +
		"🟡  Weekly  [▓░░░░░░░░░]  10% left\n" +
		"🟢  Sonnet  [▓▓▓▓▓▓▓▓▓▓]  100% left\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderSimple_NotLoaded(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSimple(&buf, display.State{}, time.Now(), true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), display.MenuWaiting) {
		t.Errorf("got %q", buf.String())
	}
}
