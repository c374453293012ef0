package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// A4 landscape at 96 DPI renders to roughly 1122x794 device pixels. Template
// backgrounds must match that aspect ratio within tolerance so the generated
// document prints cleanly on A4 paper.
const (
	A4LandscapeRatio = 1122.0 / 794.0
	RatioTolerance   = 0.05
)

// FontWeight is the CSS-style weight attached to a text field.
type FontWeight string

const (
	WeightNormal  FontWeight = "normal"
	WeightBold    FontWeight = "bold"
	WeightBolder  FontWeight = "bolder"
	WeightLighter FontWeight = "lighter"
)

// Alignment controls the horizontal anchor of a text field.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// TextField is one positioned, styled text slot on a template. Geometry is
// percentage-based so fields stay resolution-independent; conversion to
// absolute pixels happens only at render time.
type TextField struct {
	FieldID    string     `json:"fieldId"`
	FieldName  string     `json:"fieldName"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	FontSize   float64    `json:"fontSize"`
	FontFamily string     `json:"fontFamily"`
	FontWeight FontWeight `json:"fontWeight"`
	Alignment  Alignment  `json:"alignment"`
	Color      string     `json:"color"`
}

// Template is a certificate background plus its field layout definition.
type Template struct {
	ID         string      `json:"templateId"`
	Name       string      `json:"templateName"`
	ImageKey   string      `json:"-"`
	ImageURL   string      `json:"imageUrl"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	TextFields []TextField `json:"textFields"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

var (
	ErrInvalidDimensions = errors.New("template dimensions must be positive")
	ErrAspectRatio       = errors.New("template aspect ratio outside A4 landscape tolerance")
	ErrInvalidField      = errors.New("invalid text field")
	ErrInvalidFontWeight = errors.New("font weight must be one of normal, bold, bolder, lighter")
	ErrInvalidAlignment  = errors.New("alignment must be one of left, center, right")
)

// ValidateDimensions rejects non-positive dimensions and backgrounds whose
// aspect ratio deviates from A4 landscape by more than the tolerance.
func ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidDimensions
	}
	ratio := float64(width) / float64(height)
	if math.Abs(ratio-A4LandscapeRatio) > RatioTolerance {
		return fmt.Errorf("%w: expected %.2f, got %.2f", ErrAspectRatio, A4LandscapeRatio, ratio)
	}
	return nil
}

// applyFieldDefaults mirrors the persisted schema defaults for optional
// attributes so a sparse field definition still renders.
func applyFieldDefaults(f *TextField) {
	if f.FontSize == 0 {
		f.FontSize = 48
	}
	if f.FontFamily == "" {
		f.FontFamily = "Arial"
	}
	if f.FontWeight == "" {
		f.FontWeight = WeightBold
	}
	if f.Alignment == "" {
		f.Alignment = AlignCenter
	}
	if f.Color == "" {
		f.Color = "#000000"
	}
}

// ValidateTextField checks one field definition, filling defaults first.
func ValidateTextField(f *TextField) error {
	applyFieldDefaults(f)

	if f.FieldID == "" || f.FieldName == "" {
		return fmt.Errorf("%w: fieldId and fieldName are required", ErrInvalidField)
	}
	if f.X < 0 || f.X > 100 || f.Y < 0 || f.Y > 100 {
		return fmt.Errorf("%w: position must be within [0,100] percent", ErrInvalidField)
	}
	if f.Width <= 0 || f.Width > 100 || f.Height <= 0 || f.Height > 100 {
		return fmt.Errorf("%w: size must be within (0,100] percent", ErrInvalidField)
	}
	if f.FontSize < 12 || f.FontSize > 200 {
		return fmt.Errorf("%w: fontSize must be within [12,200]", ErrInvalidField)
	}
	switch f.FontWeight {
	case WeightNormal, WeightBold, WeightBolder, WeightLighter:
	default:
		return ErrInvalidFontWeight
	}
	switch f.Alignment {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		return ErrInvalidAlignment
	}
	return nil
}

// ValidateTextFields validates a full layout and rejects duplicate field ids.
func ValidateTextFields(fields []TextField) error {
	seen := make(map[string]struct{}, len(fields))
	for i := range fields {
		if err := ValidateTextField(&fields[i]); err != nil {
			return err
		}
		if _, dup := seen[fields[i].FieldID]; dup {
			return fmt.Errorf("%w: duplicate fieldId %q", ErrInvalidField, fields[i].FieldID)
		}
		seen[fields[i].FieldID] = struct{}{}
	}
	return nil
}
