package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/vlf-monitor/internal/recording"
)

const (
	dpi            = 120.0
	fontSize       = 9.0
	tickMarkLength = 5
	pixelsPerLabel = 150.0
	panelGap       = 30

	// Default border sizes in pixels
	defaultTopBorder    = 20
	defaultLeftBorder   = 90
	defaultBottomBorder = 60
	defaultRightBorder  = 30

	// Borders when annotations are disabled
	plainBorder = 10

	minAmplitudeSpan = 10.0 // dB
	minPhaseSpan     = 1.0  // degrees
)

// BorderConfig defines the sizes of white space around the panels
type BorderConfig struct {
	Top    int
	Left   int // Space for value scales
	Bottom int // Space for time scale and information bar
	Right  int
}

// RenderConfig holds all configuration options for plot rendering
type RenderConfig struct {
	FontSize      float64
	NoAnnotations bool
	BorderConfig  BorderConfig
}

// Plot is what gets drawn: a session with its amplitude and phase traces.
type Plot struct {
	Session   *recording.Session
	StartUT   float64 // Hour UT of the first column
	Amplitude *Trace
	Phase     *Trace
}

// Renderer draws amplitude over phase, sharing the UT time axis.
type Renderer struct {
	config RenderConfig
}

func NewRenderer(config RenderConfig) *Renderer {
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}

	b := &config.BorderConfig
	if config.NoAnnotations {
		*b = BorderConfig{Top: plainBorder, Left: plainBorder, Bottom: plainBorder, Right: plainBorder}
	}
	if b.Top == 0 {
		b.Top = defaultTopBorder
	}
	if b.Left == 0 {
		b.Left = defaultLeftBorder
	}
	if b.Bottom == 0 {
		b.Bottom = defaultBottomBorder
	}
	if b.Right == 0 {
		b.Right = defaultRightBorder
	}

	return &Renderer{config: config}
}

// Render draws plot into an image of width x height plot pixels plus borders.
func (r *Renderer) Render(plot *Plot, width, height int) (*image.RGBA, error) {
	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, width+b.Left+b.Right, height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	panelHeight := (height - panelGap) / 2
	top := image.Rect(b.Left, b.Top, b.Left+width, b.Top+panelHeight)
	bottom := image.Rect(b.Left, b.Top+height-panelHeight, b.Left+width, b.Top+height)

	panels := []struct {
		area  image.Rectangle
		trace *Trace
		color color.RGBA
	}{
		{top, plot.Amplitude, amplitudeColor},
		{bottom, plot.Phase, phaseColor},
	}

	if !r.config.NoAnnotations {
		ann, err := newAnnotator(r.config)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		ann.context.SetClip(img.Bounds())
		ann.context.SetDst(img)

		for _, p := range panels {
			if p.trace == nil {
				continue
			}
			if err = ann.drawValueScale(img, p.area, p.trace); err != nil {
				return nil, fmt.Errorf("drawing %s scale: %w", p.trace.Name, err)
			}
		}
		if err = ann.drawTimeScale(img, bottom, plot.StartUT); err != nil {
			return nil, fmt.Errorf("drawing time scale: %w", err)
		}
		if err = ann.drawInfoBar(img, plot); err != nil {
			return nil, fmt.Errorf("drawing info bar: %w", err)
		}
	}

	for _, p := range panels {
		drawFrame(img, p.area)
		if p.trace != nil {
			drawTrace(img, p.area, p.trace, p.color)
		}
	}

	return img, nil
}

// drawTrace draws every populated column as a min..max bar joined to the
// previous column's mean.
func drawTrace(img *image.RGBA, area image.Rectangle, trace *Trace, c color.RGBA) {
	toY := func(v float64) int {
		ratio := (v - trace.Bounds.Min) / trace.Bounds.Span()
		return area.Max.Y - 1 - int(ratio*float64(area.Dy()-1))
	}

	prev := -1
	for x, col := range trace.Columns {
		if col.Count == 0 || x >= area.Dx() {
			continue
		}
		imgX := area.Min.X + x
		lo, hi := toY(col.Max), toY(col.Min)
		if prev >= 0 {
			mean := toY(trace.Columns[prev].Mean)
			lo, hi = min(lo, mean), max(hi, mean)
		}
		for y := max(lo, area.Min.Y); y <= min(hi, area.Max.Y-1); y++ {
			img.SetRGBA(imgX, y, c)
		}
		prev = x
	}
}

func drawFrame(img *image.RGBA, area image.Rectangle) {
	for x := area.Min.X - 1; x <= area.Max.X; x++ {
		img.Set(x, area.Min.Y-1, color.Black)
		img.Set(x, area.Max.Y, color.Black)
	}
	for y := area.Min.Y - 1; y <= area.Max.Y; y++ {
		img.Set(area.Min.X-1, y, color.Black)
		img.Set(area.Max.X, y, color.Black)
	}
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(config RenderConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawValueScale(img *image.RGBA, area image.Rectangle, trace *Trace) error {
	bounds := trace.Bounds
	step := niceStep(bounds.Span(), float64(area.Dy())/(pixelsPerLabel/2))
	descent := a.fontFace.Metrics().Descent.Round()

	for v := math.Ceil(bounds.Min/step) * step; v <= bounds.Max; v += step {
		y := area.Max.Y - 1 - int((v-bounds.Min)/bounds.Span()*float64(area.Dy()-1))

		for x := area.Min.X; x < area.Max.X; x += 4 {
			img.Set(x, y, gridColor)
		}
		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := humanize.FtoaWithDigits(v, 2)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(area.Min.X-tickMarkLength-4-width, y+a.fontHeight()/2-descent)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing value label: %w", err)
		}
	}

	label := trace.Unit
	if label == "" {
		label = trace.Name
	}
	pt := freetype.Pt(4, area.Min.Y+a.fontHeight())
	if _, err := a.context.DrawString(label, pt); err != nil {
		return fmt.Errorf("drawing unit label: %w", err)
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, area image.Rectangle, startUT float64) error {
	step := calculateNiceHourStep(area.Dx())
	pixelsPerHour := float64(area.Dx()) / 24

	textY := area.Max.Y + tickMarkLength + a.fontHeight()
	for h := math.Ceil(startUT/step) * step; h <= startUT+24; h += step {
		x := area.Min.X + int((h-startUT)*pixelsPerHour)
		for y := area.Max.Y; y < area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%02d", int(math.Mod(math.Mod(h, 24)+24, 24)))
		width := font.MeasureString(a.fontFace, label).Round()
		if _, err := a.context.DrawString(label, freetype.Pt(x-width/2, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}

	width := font.MeasureString(a.fontFace, "UT").Round()
	pt := freetype.Pt(area.Min.X-tickMarkLength-4-width, textY)
	if _, err := a.context.DrawString("UT", pt); err != nil {
		return fmt.Errorf("drawing time unit: %w", err)
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, plot *Plot) error {
	var parts []string
	if s := plot.Session; s != nil {
		m := s.Metadata
		parts = append(parts,
			fmt.Sprintf("%s (%s)", m.Station, m.Location),
			fmt.Sprintf("%s %s %s", m.Date, m.StartTime, m.TimeZone),
			fmt.Sprintf("Carrier: %s", humanize.SIWithDigits(m.Carrier, 1, "Hz")),
			fmt.Sprintf("GPS: %s", m.GPS),
		)
	}
	for _, t := range []*Trace{plot.Amplitude, plot.Phase} {
		if t != nil {
			parts = append(parts, fmt.Sprintf("%s: %s values", t.Name, humanize.Comma(int64(t.Total))))
		}
	}

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - metrics.Descent.Round() - 4

	pt := freetype.Pt(a.config.BorderConfig.Left, textY)
	if _, err := a.context.DrawString(strings.Join(parts, "; "), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// niceStep returns a 1, 2 or 5 times a power of ten step that splits span
// into about n labels.
func niceStep(span, n float64) float64 {
	if span <= 0 || n < 1 {
		return math.Max(span, 1)
	}

	rough := span / n
	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * magnitude; step >= rough {
			return step
		}
	}
	return 10 * magnitude
}

func calculateNiceHourStep(width int) float64 {
	labels := float64(width) / pixelsPerLabel
	for _, step := range []float64{1, 2, 3, 4, 6} {
		if 24/step <= labels {
			return step
		}
	}
	return 12
}
