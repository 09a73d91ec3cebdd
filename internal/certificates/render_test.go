package certificates

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#1a2B3c")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}, c)

	c, err = ParseHexColor("f00")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, c)

	for _, bad := range []string{"", "#12345", "#gggggg", "red"} {
		_, err := ParseHexColor(bad)
		assert.ErrorIs(t, err, ErrInvalidColor, bad)
	}
}

func TestLayoutValidate(t *testing.T) {
	assert.NoError(t, DefaultLayout.Validate())
	assert.ErrorIs(t, Layout{NameX: 1.2, NameY: 0.5, FontSize: 40, Color: "#000"}.Validate(), ErrInvalidLayout)
	assert.ErrorIs(t, Layout{NameX: 0.5, NameY: 0.5, FontSize: 2, Color: "#000"}.Validate(), ErrInvalidLayout)
	assert.ErrorIs(t, Layout{NameX: 0.5, NameY: 0.5, FontSize: 40, Color: "nope"}.Validate(), ErrInvalidColor)
}

func TestLayoutValidateRejectsNonFinite(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	for _, l := range []Layout{
		{NameX: nan, NameY: 0.5, FontSize: 40, Color: "#000"},
		{NameX: 0.5, NameY: nan, FontSize: 40, Color: "#000"},
		{NameX: 0.5, NameY: 0.5, FontSize: nan, Color: "#000"},
		{NameX: 0.5, NameY: -inf, FontSize: 40, Color: "#000"},
		{NameX: 0.5, NameY: 0.5, FontSize: inf, Color: "#000"},
	} {
		assert.ErrorIs(t, l.Validate(), ErrInvalidLayout)
	}
}

func countColored(img *image.NRGBA, r image.Rectangle, want color.NRGBA) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.NRGBAAt(x, y) == want {
				n++
			}
		}
	}
	return n
}

func TestRenderDrawsNameAroundAnchor(t *testing.T) {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	tmpl := imaging.New(400, 200, white)
	red := color.NRGBA{R: 255, A: 255}

	out, err := Render(tmpl, Layout{NameX: 0.5, NameY: 0.6, FontSize: 32, Color: "#ff0000"}, "Sara Ahmed")
	require.NoError(t, err)

	// Glyphs sit above the baseline at y=120, straddling x=200.
	assert.Greater(t, countColored(out, image.Rect(100, 90, 300, 125), red), 0)
	assert.Equal(t, 0, countColored(out, image.Rect(0, 0, 400, 60), red))
	assert.Equal(t, 0, countColored(out, image.Rect(0, 150, 400, 200), red))
	left := countColored(out, image.Rect(0, 90, 200, 125), red)
	right := countColored(out, image.Rect(200, 90, 400, 125), red)
	assert.Greater(t, left, 0)
	assert.Greater(t, right, 0)

	assert.Equal(t, white, tmpl.NRGBAAt(200, 110), "template must stay untouched")
}

func TestRenderRejectsBadLayout(t *testing.T) {
	_, err := Render(imaging.New(10, 10, color.White), Layout{NameX: 2, NameY: 0.5, FontSize: 20, Color: "#000"}, "x")
	assert.ErrorIs(t, err, ErrInvalidLayout)
}
