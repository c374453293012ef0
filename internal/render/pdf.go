package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"certigen/internal/model"
)

// fontFamily is the name the embedded Go fonts are registered under in each
// generated document.
const fontFamily = "certfont"

// RenderPDF produces the durable certificate document: the background image
// stretched to exactly fill a page of the template's pixel dimensions, with
// every resolved text field drawn on top. A missing or undecodable background
// is fatal for this render and is not retried.
func (r *Renderer) RenderPDF(tpl *model.Template, background []byte, values map[string]string) ([]byte, error) {
	if len(background) == 0 {
		return nil, ErrMissingBackground
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(background))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackgroundDecode, err)
	}

	placed, err := r.layout(tpl, values)
	if err != nil {
		return nil, err
	}

	w, h := float64(tpl.Width), float64(tpl.Height)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opt := gofpdf.ImageOptions{ImageType: strings.ToUpper(format)}
	pdf.RegisterImageOptionsReader("background", opt, bytes.NewReader(background))
	pdf.ImageOptions("background", 0, 0, w, h, false, opt, 0, "")

	pdf.AddUTF8FontFromBytes(fontFamily, "", r.fonts.TTF(model.WeightNormal))
	pdf.AddUTF8FontFromBytes(fontFamily, "B", r.fonts.TTF(model.WeightBold))

	for _, p := range placed {
		style := ""
		if p.weight == model.WeightBold || p.weight == model.WeightBolder {
			style = "B"
		}
		pdf.SetFont(fontFamily, style, p.size)
		pdf.SetTextColor(int(p.col.R), int(p.col.G), int(p.col.B))
		pdf.Text(p.x, p.baseline, p.text)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
