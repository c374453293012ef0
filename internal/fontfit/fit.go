package fontfit

import "certigen/internal/model"

// Ellipsis is appended when text must be truncated to fit its field.
const Ellipsis = "…"

// step is the font size decrement used while shrinking text.
const step = 0.5

type fitKey struct {
	text        string
	maxWidth    float64
	initialSize float64
	minSize     float64
	bold        bool
}

type fitResult struct {
	size float64
	text string
}

// Fit finds the largest font size, decrementing from initialSize down to
// minSize, at which text fits within maxWidth pixels. If the text still
// overflows at minSize, trailing runes are stripped and Ellipsis appended
// until it fits; stripping everything yields the ellipsis alone. Overflow is
// never an error: degradation is always graphical (shrink, then truncate).
//
// Both the PDF renderer and the preview renderer call this with identical
// parameters, which keeps the two outputs visually consistent.
func (s *FontSet) Fit(text string, maxWidth, initialSize, minSize float64, weight model.FontWeight) (float64, string, error) {
	key := fitKey{
		text:        text,
		maxWidth:    maxWidth,
		initialSize: initialSize,
		minSize:     minSize,
		bold:        isBold(weight),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.fits[key]; ok {
		return r.size, r.text, nil
	}

	size := initialSize
	width, err := s.measure(text, weight, size)
	if err != nil {
		return 0, "", err
	}

	for width > maxWidth && size > minSize {
		size -= step
		if size < minSize {
			size = minSize
		}
		width, err = s.measure(text, weight, size)
		if err != nil {
			return 0, "", err
		}
	}

	resolved := text
	if width > maxWidth {
		runes := []rune(text)
		for len(runes) > 0 {
			w, err := s.measure(string(runes)+Ellipsis, weight, minSize)
			if err != nil {
				return 0, "", err
			}
			if w <= maxWidth {
				break
			}
			runes = runes[:len(runes)-1]
		}
		size = minSize
		resolved = string(runes) + Ellipsis
	}

	s.fits[key] = fitResult{size: size, text: resolved}
	return size, resolved, nil
}
