package fontfit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certigen/internal/model"
)

func TestFit_TextAlreadyFits(t *testing.T) {
	fonts, err := NewFontSet()
	require.NoError(t, err)

	size, text, err := fonts.Fit("Jane", 500, 48, 20, model.WeightBold)
	require.NoError(t, err)

	assert.Equal(t, 48.0, size)
	assert.Equal(t, "Jane", text)
}

func TestFit_ShrinksUntilItFits(t *testing.T) {
	fonts, err := NewFontSet()
	require.NoError(t, err)

	name := "A Very Long Recipient Name That Overflows"
	maxWidth := 0.6 * 1122 // 60% field on a 1122px canvas

	size, text, err := fonts.Fit(name, maxWidth, 48, 20, model.WeightBold)
	require.NoError(t, err)

	assert.Less(t, size, 48.0)
	assert.GreaterOrEqual(t, size, 20.0)
	assert.Equal(t, name, text, "shrinking alone should fit without truncation")

	width, err := fonts.Measure(text, model.WeightBold, size)
	require.NoError(t, err)
	assert.LessOrEqual(t, width, maxWidth)
}

func TestFit_TruncatesWithEllipsisAtFloor(t *testing.T) {
	fonts, err := NewFontSet()
	require.NoError(t, err)

	long := strings.Repeat("Wide Name ", 30)

	size, text, err := fonts.Fit(long, 200, 48, 20, model.WeightNormal)
	require.NoError(t, err)

	assert.Equal(t, 20.0, size)
	assert.True(t, strings.HasSuffix(text, Ellipsis))
	assert.Less(t, len(text), len(long))

	width, err := fonts.Measure(text, model.WeightNormal, 20)
	require.NoError(t, err)
	assert.LessOrEqual(t, width, 200.0)
}

func TestFit_ImpossibleWidthDegradesToEllipsis(t *testing.T) {
	fonts, err := NewFontSet()
	require.NoError(t, err)

	// Nothing fits in one pixel; every rune is stripped and the bare
	// ellipsis remains. No error either way.
	size, text, err := fonts.Fit("anything", 1, 48, 20, model.WeightBold)
	require.NoError(t, err)

	assert.Equal(t, 20.0, size)
	assert.Equal(t, Ellipsis, text)
}

func TestFit_OutputAlwaysWithinBudget(t *testing.T) {
	fonts, err := NewFontSet()
	require.NoError(t, err)

	cases := []struct {
		text     string
		maxWidth float64
		initial  float64
		weight   model.FontWeight
	}{
		{"John Doe", 400, 48, model.WeightBold},
		{"John Doe", 60, 48, model.WeightNormal},
		{"名前が長い受賞者", 120, 64, model.WeightBold},
		{strings.Repeat("x", 500), 300, 200, model.WeightLighter},
		{"", 100, 48, model.WeightBold},
	}

	for _, tc := range cases {
		size, text, err := fonts.Fit(tc.text, tc.maxWidth, tc.initial, 20, tc.weight)
		require.NoError(t, err)

		width, err := fonts.Measure(text, tc.weight, size)
		require.NoError(t, err)

		if width > tc.maxWidth {
			// The only permitted overflow is the degenerate floor case
			// where even the ellipsis alone does not fit.
			assert.Equal(t, 20.0, size)
			assert.True(t, strings.HasSuffix(text, Ellipsis))
		}
		assert.GreaterOrEqual(t, size, 20.0)
		assert.LessOrEqual(t, size, tc.initial)
	}
}

func TestFit_CachedResultIsStable(t *testing.T) {
	fonts, err := NewFontSet()
	require.NoError(t, err)

	s1, t1, err := fonts.Fit("Repeated Recipient", 150, 48, 20, model.WeightBold)
	require.NoError(t, err)
	s2, t2, err := fonts.Fit("Repeated Recipient", 150, 48, 20, model.WeightBold)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Equal(t, t1, t2)
}

func TestFontSet_WeightMapping(t *testing.T) {
	fonts, err := NewFontSet()
	require.NoError(t, err)

	assert.Equal(t, fonts.TTF(model.WeightBold), fonts.TTF(model.WeightBolder))
	assert.Equal(t, fonts.TTF(model.WeightNormal), fonts.TTF(model.WeightLighter))
	assert.NotEqual(t, string(fonts.TTF(model.WeightBold)[:64]), string(fonts.TTF(model.WeightNormal)[:64]))

	// Bold glyphs are wider than regular at the same size.
	bold, err := fonts.Measure("Certificate", model.WeightBold, 48)
	require.NoError(t, err)
	normal, err := fonts.Measure("Certificate", model.WeightNormal, 48)
	require.NoError(t, err)
	assert.Greater(t, bold, normal)
}
