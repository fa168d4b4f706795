package tray_test

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/gauge"
	"github.com/zsprackett/ai-battery/internal/tray"
	"github.com/zsprackett/ai-battery/internal/usage"
)

func TestIconBytes(t *testing.T) {
	st := display.State{
		Loaded: true,
		Snapshot: usage.Snapshot{
			LastUpdated: time.Now(),
			Claude: usage.Claude{
				Session: usage.Bucket{PercentUsed: 100},
				Weekly:  usage.Bucket{PercentUsed: 0},
			},
		},
	}
	b, err := tray.IconBytes(st)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != gauge.TraySize || img.Bounds().Dy() != gauge.TraySize {
		t.Fatalf("size %v", img.Bounds())
	}

	// Outer ring (weekly, full) is opaque at the top; inner ring (session,
	// empty) only shows its faint track.
	_, _, _, outer := img.At(11, 2).RGBA()
	_, _, _, inner := img.At(11, 7).RGBA()
	if outer>>8 < 200 {
		t.Errorf("outer alpha %d, want opaque", outer>>8)
	}
	if inner>>8 > 120 {
		t.Errorf("inner alpha %d, want track only", inner>>8)
	}
}

func TestIconBytes_NotLoaded(t *testing.T) {
	if _, err := tray.IconBytes(display.State{}); err != nil {
		t.Fatal(err)
	}
}
