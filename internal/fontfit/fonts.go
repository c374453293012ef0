package fontfit

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"certigen/internal/model"
)

// FontSet holds the parsed OpenType fonts used for measurement and drawing.
// Weights collapse onto two embedded faces: bold/bolder map to Go Bold,
// normal/lighter to Go Regular. The document renderer registers the same TTF
// bytes with the PDF writer, so preview and final output measure identically.
//
// Faces and fit results are cached; a bulk run over a recipient list hits the
// same (text, width, size) combinations repeatedly and the measurement loop
// is the expensive part.
type FontSet struct {
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
	fits  map[fitKey]fitResult
}

type faceKey struct {
	bold bool
	size float64
}

// NewFontSet parses the embedded Go fonts.
func NewFontSet() (*FontSet, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &FontSet{
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]font.Face),
		fits:    make(map[fitKey]fitResult),
	}, nil
}

// TTF returns the raw font bytes backing the given weight, for registration
// with the PDF writer.
func (s *FontSet) TTF(weight model.FontWeight) []byte {
	if isBold(weight) {
		return gobold.TTF
	}
	return goregular.TTF
}

// Face returns a cached font.Face for the weight at the given pixel size.
// Faces are not safe for concurrent use; callers must serialize drawing, which
// the sequential batch model already guarantees.
func (s *FontSet) Face(weight model.FontWeight, size float64) (font.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.face(weight, size)
}

func (s *FontSet) face(weight model.FontWeight, size float64) (font.Face, error) {
	key := faceKey{bold: isBold(weight), size: size}
	if f, ok := s.faces[key]; ok {
		return f, nil
	}

	parsed := s.regular
	if key.bold {
		parsed = s.bold
	}
	// DPI 72 makes point size equal pixel size, matching the percent->pixel
	// geometry used by the renderer.
	f, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face at %.1f: %w", size, err)
	}
	s.faces[key] = f
	return f, nil
}

// Measure returns the advance width of text in pixels at the given size.
func (s *FontSet) Measure(text string, weight model.FontWeight, size float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measure(text, weight, size)
}

func (s *FontSet) measure(text string, weight model.FontWeight, size float64) (float64, error) {
	f, err := s.face(weight, size)
	if err != nil {
		return 0, err
	}
	return float64(font.MeasureString(f, text)) / 64, nil
}

func isBold(weight model.FontWeight) bool {
	return weight == model.WeightBold || weight == model.WeightBolder
}
