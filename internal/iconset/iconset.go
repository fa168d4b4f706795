// Package iconset writes the generated image assets: the 101 pre-rendered
// dial icons, the dual-metric preview images and the application icon.
package iconset

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackmordaunt/icns/v3"
	"github.com/nfnt/resize"

	"github.com/zsprackett/ai-battery/internal/gauge"
)

const (
	DialSize    = 22
	ExampleSize = 64

	// Preview values: session 32% remaining, weekly 85% remaining.
	ExampleSession = 32
	ExampleWeekly  = 85

	AppWeeklyPct  = 90
	AppSessionPct = 75

	appMasterSize = 1024
)

// GenerateDials writes battery_0.png through battery_100.png into dir and
// returns the number of files written.
func GenerateDials(dir string, logger *slog.Logger) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create icon dir: %w", err)
	}
	n := 0
	for pct := 0; pct <= 100; pct++ {
		name := fmt.Sprintf("battery_%d.png", pct)
		if err := savePNG(filepath.Join(dir, name), gauge.Dial(DialSize, pct)); err != nil {
			return n, err
		}
		n++
		if pct%10 == 0 && logger != nil {
			logger.Debug("iconset: wrote dial", "file", name)
		}
	}
	return n, nil
}

// ExampleFiles maps output file names to their renderers.
var ExampleFiles = []struct {
	Name   string
	Render func() image.Image
}{
	{"example_1_nested_arcs.png", func() image.Image {
		return gauge.NestedArcs(ExampleSize, ExampleSession, ExampleWeekly, gauge.ExampleStyle)
	}},
	{"example_2_split_arc.png", func() image.Image {
		return gauge.SplitArc(ExampleSize, ExampleSession, ExampleWeekly)
	}},
	{"example_3_stacked_dots.png", func() image.Image {
		return gauge.StackedDots(ExampleSize, ExampleSession, ExampleWeekly)
	}},
}

// GenerateExamples writes the three preview images into dir.
func GenerateExamples(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create example dir: %w", err)
	}
	var written []string
	for _, ex := range ExampleFiles {
		path := filepath.Join(dir, ex.Name)
		if err := savePNG(path, ex.Render()); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// IconsetEntry is one file of a macOS .iconset directory.
type IconsetEntry struct {
	Name string
	Size int
}

// IconsetEntries lists the standard iconset files: 16 through 512 points at
// 1x and 2x.
func IconsetEntries() []IconsetEntry {
	var out []IconsetEntry
	for _, pt := range []int{16, 32, 128, 256, 512} {
		out = append(out,
			IconsetEntry{Name: fmt.Sprintf("icon_%dx%d.png", pt, pt), Size: pt},
			IconsetEntry{Name: fmt.Sprintf("icon_%dx%d@2x.png", pt, pt), Size: pt * 2},
		)
	}
	return out
}

// AppIconResult reports where BuildAppIcon put things.
type AppIconResult struct {
	IconsetDir string
	ICNSPath   string
}

// BuildAppIcon renders the app icon once at 1024px, writes the downsampled
// AppIcon.iconset into dir and encodes AppIcon.icns next to it.
func BuildAppIcon(dir string) (AppIconResult, error) {
	res := AppIconResult{
		IconsetDir: filepath.Join(dir, "AppIcon.iconset"),
		ICNSPath:   filepath.Join(dir, "AppIcon.icns"),
	}
	if err := os.MkdirAll(res.IconsetDir, 0o755); err != nil {
		return res, fmt.Errorf("create iconset dir: %w", err)
	}

	master := gauge.AppIcon(appMasterSize, AppWeeklyPct, AppSessionPct)
	for _, e := range IconsetEntries() {
		img := master
		if e.Size != appMasterSize {
			img = resize.Resize(uint(e.Size), uint(e.Size), master, resize.Lanczos3)
		}
		if err := savePNG(filepath.Join(res.IconsetDir, e.Name), img); err != nil {
			return res, err
		}
	}

	f, err := os.Create(res.ICNSPath)
	if err != nil {
		return res, fmt.Errorf("create icns: %w", err)
	}
	if err := icns.Encode(f, master); err != nil {
		f.Close()
		return res, fmt.Errorf("encode icns: %w", err)
	}
	if err := f.Close(); err != nil {
		return res, fmt.Errorf("close icns: %w", err)
	}
	return res, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
