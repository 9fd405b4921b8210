package app

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	amplitudeColor = traceColor(210, 0.85, 0.75)
	phaseColor     = traceColor(10, 0.85, 0.80)
	gridColor      = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
)

// traceColor returns an opaque color for a hue in degrees [0-360) with
// saturation and value in [0-1].
func traceColor(hue, saturation, value float64) color.RGBA {
	r, g, b := colorful.Hsv(hue, saturation, value).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
