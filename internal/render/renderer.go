package render

import (
	"errors"
	"image/color"

	"certigen/internal/fontfit"
	"certigen/internal/model"
)

// Package render composites a template background with positioned text fields
// onto a fixed-size canvas. Two output modes share the same layout math: a
// durable PDF document and a transient PNG preview. Divergence between the
// two would make the preview lie about the final document, so everything that
// affects geometry or font sizing lives in layout().

var (
	ErrMissingBackground = errors.New("template background image is missing")
	ErrBackgroundDecode  = errors.New("cannot decode template background image")
)

// PrimaryNameField is the field-values key a text field falls back to when no
// value is present under its own fieldId.
const PrimaryNameField = "recipientName"

// MinFontSize is the fixed floor handed to the font-fit calculator.
const MinFontSize = 20.0

// Renderer renders templates using a shared font set so that measurement,
// fitting, and drawing all agree.
type Renderer struct {
	fonts *fontfit.FontSet
}

func NewRenderer(fonts *fontfit.FontSet) *Renderer {
	return &Renderer{fonts: fonts}
}

// PercentToPixels converts a percentage coordinate to absolute pixels against
// a canvas dimension.
func PercentToPixels(pct float64, dim int) float64 {
	return pct / 100 * float64(dim)
}

// PixelsToPercent is the inverse conversion.
func PixelsToPercent(px float64, dim int) float64 {
	return px / float64(dim) * 100
}

// placedText is one fully resolved text field, ready to draw.
type placedText struct {
	text     string
	size     float64
	x        float64
	baseline float64
	weight   model.FontWeight
	col      color.RGBA
}

// layout resolves field values, converts percentage geometry to pixels, runs
// the font-fit calculator, and computes the draw anchor per alignment. Fields
// that resolve to an empty value are skipped.
func (r *Renderer) layout(tpl *model.Template, values map[string]string) ([]placedText, error) {
	placed := make([]placedText, 0, len(tpl.TextFields))

	for _, f := range tpl.TextFields {
		value := values[f.FieldID]
		if value == "" {
			value = values[PrimaryNameField]
		}
		if value == "" {
			continue
		}

		x := PercentToPixels(f.X, tpl.Width)
		y := PercentToPixels(f.Y, tpl.Height)
		fieldWidth := PercentToPixels(f.Width, tpl.Width)

		size, text, err := r.fonts.Fit(value, fieldWidth, f.FontSize, MinFontSize, f.FontWeight)
		if err != nil {
			return nil, err
		}

		textWidth, err := r.fonts.Measure(text, f.FontWeight, size)
		if err != nil {
			return nil, err
		}

		// Alignment moves the horizontal anchor only; the baseline stays at
		// y + fontSize regardless.
		drawX := x
		switch f.Alignment {
		case model.AlignCenter:
			drawX = x + fieldWidth/2 - textWidth/2
		case model.AlignRight:
			drawX = x + fieldWidth - textWidth
		}

		placed = append(placed, placedText{
			text:     text,
			size:     size,
			x:        drawX,
			baseline: y + size,
			weight:   f.FontWeight,
			col:      parseHexColor(f.Color),
		})
	}

	return placed, nil
}

// parseHexColor parses #RGB and #RRGGBB. Anything unparseable falls back to
// black rather than failing the render.
func parseHexColor(s string) color.RGBA {
	black := color.RGBA{A: 255}
	if len(s) == 0 || s[0] != '#' {
		return black
	}

	hexVal := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}

	switch len(s) {
	case 4: // #RGB
		var out [3]uint8
		for i := 0; i < 3; i++ {
			v, ok := hexVal(s[i+1])
			if !ok {
				return black
			}
			out[i] = v*16 + v
		}
		return color.RGBA{R: out[0], G: out[1], B: out[2], A: 255}
	case 7: // #RRGGBB
		var out [3]uint8
		for i := 0; i < 3; i++ {
			hi, ok1 := hexVal(s[1+i*2])
			lo, ok2 := hexVal(s[2+i*2])
			if !ok1 || !ok2 {
				return black
			}
			out[i] = hi*16 + lo
		}
		return color.RGBA{R: out[0], G: out[1], B: out[2], A: 255}
	}
	return black
}
