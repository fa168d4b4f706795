// Package gauge draws the arc-style battery icons.
//
// All gauges share the same geometry: a 270 degree arc starting at 135
// degrees (measured clockwise from 3 o'clock) so the gap sits at the bottom.
// A faint track is drawn under an opaque fill proportional to the percent.
package gauge

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/fogleman/gg"
)

const (
	StartAngle = 135.0
	Sweep      = 270.0
)

var (
	Black = color.NRGBA{A: 255}
	Track = color.NRGBA{A: 70}
)

// Ring is one arc of a gauge. Radius is the outer edge of the stroke, the
// way bounding-box arc APIs measure it.
type Ring struct {
	Radius  float64
	Width   float64
	Start   float64
	Sweep   float64
	Percent float64
	Track   color.Color
	Fill    color.Color
}

// FillEnd is the angle in degrees where the filled portion stops.
func (r Ring) FillEnd() float64 {
	return r.Start + clampPct(r.Percent)/100*r.Sweep
}

// center is the radius of the stroke's centerline. gg strokes straddle the
// path, so the path sits half a width inside the outer edge.
func (r Ring) center() float64 {
	return r.Radius - r.Width/2
}

func (r Ring) draw(dc *gg.Context, cx, cy float64) {
	dc.SetLineWidth(r.Width)
	dc.SetLineCapButt()
	if r.Track != nil {
		dc.SetColor(r.Track)
		dc.DrawArc(cx, cy, r.center(), gg.Radians(r.Start), gg.Radians(r.Start+r.Sweep))
		dc.Stroke()
	}
	if r.Fill != nil && clampPct(r.Percent) > 0 {
		dc.SetColor(r.Fill)
		dc.DrawArc(cx, cy, r.center(), gg.Radians(r.Start), gg.Radians(r.FillEnd()))
		dc.Stroke()
	}
}

// point returns the position on the ring's centerline at angle deg, offset
// outward by delta pixels.
func (r Ring) point(cx, cy, deg, delta float64) (float64, float64) {
	rad := gg.Radians(deg)
	d := r.center() + delta
	return cx + d*math.Cos(rad), cy + d*math.Sin(rad)
}

func newCanvas(size int) (*gg.Context, float64) {
	dc := gg.NewContext(size, size)
	return dc, float64(size / 2)
}

func arc(radius, width, pct float64) Ring {
	return Ring{
		Radius:  radius,
		Width:   width,
		Start:   StartAngle,
		Sweep:   Sweep,
		Percent: pct,
		Track:   Track,
		Fill:    Black,
	}
}

// NestedStyle sizes the two rings of a nested-arc icon.
type NestedStyle struct {
	Inset float64 // total space left around the outer ring
	Gap   float64 // outer radius minus inner radius
	Width float64
}

var (
	// TrayStyle fits the 22px menu bar icon.
	TrayStyle = NestedStyle{Inset: 2, Gap: 5, Width: 2}
	// ExampleStyle is used for the larger preview images.
	ExampleStyle = NestedStyle{Inset: 4, Gap: 8, Width: 3}
)

// NestedArcs draws weekly remaining on the outer ring and session remaining
// on the inner ring.
func NestedArcs(size int, sessionPct, weeklyPct int, style NestedStyle) image.Image {
	dc, c := newCanvas(size)
	outer := float64((size - int(style.Inset)) / 2)
	arc(outer, style.Width, float64(weeklyPct)).draw(dc, c, c)
	arc(outer-style.Gap, style.Width, float64(sessionPct)).draw(dc, c, c)
	return dc.Image()
}

// TrayIcon is the menu bar icon. It is drawn in black on transparent so it
// can be used as a template image.
func TrayIcon(sessionPct, weeklyPct int) image.Image {
	return NestedArcs(TraySize, sessionPct, weeklyPct, TrayStyle)
}

const TraySize = 22

// Dial is a single arc with a dot marking the fill end.
func Dial(size, pct int) image.Image {
	dc, c := newCanvas(size)
	r := arc(float64(size/2-3), 3, float64(pct))
	r.draw(dc, c, c)
	if clampPct(float64(pct)) > 0 {
		x, y := r.point(c, c, r.FillEnd(), 0)
		dc.SetColor(Black)
		dc.DrawCircle(x, y, 2)
		dc.Fill()
	}
	return dc.Image()
}

// SplitArc gives session the left half of the gauge and weekly the right,
// each with a 135 degree sweep, and marks the boundary with a small dot.
func SplitArc(size int, sessionPct, weeklyPct int) image.Image {
	dc, c := newCanvas(size)
	radius := float64((size - 6) / 2)

	left := arc(radius, 4, float64(sessionPct))
	left.Sweep = Sweep / 2
	left.draw(dc, c, c)

	right := arc(radius, 4, float64(weeklyPct))
	right.Start = StartAngle + Sweep/2
	right.Sweep = Sweep / 2
	right.draw(dc, c, c)

	x, y := right.point(c, c, right.Start, -1)
	dc.SetColor(color.NRGBA{A: 100})
	dc.DrawCircle(x, y, 2)
	dc.Fill()
	return dc.Image()
}

// StackedDots draws one arc filled to the higher value in a lighter shade
// and to the lower value in black. Session is a solid dot just inside the
// arc, weekly a ring just outside it.
func StackedDots(size int, sessionPct, weeklyPct int) image.Image {
	dc, c := newCanvas(size)
	radius := float64((size - 6) / 2)

	hi, lo := max(sessionPct, weeklyPct), min(sessionPct, weeklyPct)
	base := arc(radius, 4, float64(hi))
	base.Fill = color.NRGBA{A: 180}
	base.draw(dc, c, c)

	inner := arc(radius, 4, float64(lo))
	inner.Track = nil
	inner.draw(dc, c, c)

	session := arc(radius, 4, float64(sessionPct))
	x, y := session.point(c, c, session.FillEnd(), -1)
	dc.SetColor(Black)
	dc.DrawCircle(x, y, 3)
	dc.Fill()

	weekly := arc(radius, 4, float64(weeklyPct))
	x, y = weekly.point(c, c, weekly.FillEnd(), 1)
	dc.SetLineWidth(2)
	dc.DrawCircle(x, y, 3)
	dc.Stroke()
	return dc.Image()
}

// App icon colors.
var (
	AppWeekly  = color.NRGBA{R: 100, G: 180, B: 255, A: 255}
	AppSession = color.NRGBA{R: 80, G: 220, B: 140, A: 255}
	AppTrack   = color.NRGBA{R: 60, G: 60, B: 70, A: 255}
)

// AppIcon is the colored nested-arc application icon. Ring sizes scale with
// size so it can be rendered once large and downsampled.
func AppIcon(size int, weeklyPct, sessionPct int) image.Image {
	dc, c := newCanvas(size)
	width := float64(int(float64(size) * 0.08))
	for _, r := range []struct {
		scale float64
		pct   int
		fill  color.Color
	}{
		{0.42, weeklyPct, AppWeekly},
		{0.28, sessionPct, AppSession},
	} {
		ring := arc(float64(int(float64(size)*r.scale)), width, float64(r.pct))
		ring.Track = AppTrack
		ring.Fill = r.fill
		ring.draw(dc, c, c)
	}
	return dc.Image()
}

// EncodePNG encodes img as PNG bytes, the form the tray and the status
// server want.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func clampPct(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}
