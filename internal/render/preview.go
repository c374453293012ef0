package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"certigen/internal/model"
)

// RenderPreview produces a transient PNG raster of the certificate for
// interactive feedback. It shares layout() with RenderPDF, so fitted sizes,
// truncation, anchors, and baselines match the final document exactly.
func (r *Renderer) RenderPreview(tpl *model.Template, background []byte, values map[string]string) ([]byte, error) {
	if len(background) == 0 {
		return nil, ErrMissingBackground
	}
	src, _, err := image.Decode(bytes.NewReader(background))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackgroundDecode, err)
	}

	placed, err := r.layout(tpl, values)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, tpl.Width, tpl.Height))
	xdraw.BiLinear.Scale(canvas, canvas.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	for _, p := range placed {
		face, err := r.fonts.Face(p.weight, p.size)
		if err != nil {
			return nil, err
		}
		d := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(p.col),
			Face: face,
			Dot: fixed.Point26_6{
				X: floatToFixed(p.x),
				Y: floatToFixed(p.baseline),
			},
		}
		d.DrawString(p.text)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
