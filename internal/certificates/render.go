// Package certificates composes participant names onto a hackathon's
// certificate template image.
package certificates

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Layout positions the name on the template. NameX and NameY are fractions
// of the image width and height; the name is centered on NameX with its
// baseline at NameY.
type Layout struct {
	NameX    float64 `json:"name_x"`
	NameY    float64 `json:"name_y"`
	FontSize float64 `json:"font_size"`
	Color    string  `json:"color"`
}

// DefaultLayout centers a 48pt black name.
var DefaultLayout = Layout{NameX: 0.5, NameY: 0.5, FontSize: 48, Color: "#000000"}

var (
	ErrInvalidLayout = errors.New("invalid certificate layout")
	ErrInvalidColor  = errors.New("invalid color")
)

// Validate checks the layout bounds and color.
func (l Layout) Validate() error {
	if !within(l.NameX, 0, 1) || !within(l.NameY, 0, 1) || !within(l.FontSize, 8, 400) {
		return ErrInvalidLayout
	}
	_, err := ParseHexColor(l.Color)
	return err
}

func within(v, lo, hi float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= lo && v <= hi
}

// ParseHexColor parses #rgb or #rrggbb.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, ErrInvalidColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, ErrInvalidColor
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

var (
	fontOnce sync.Once
	fontErr  error
	regular  *opentype.Font
)

func regularFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		regular, fontErr = opentype.Parse(goregular.TTF)
	})
	return regular, fontErr
}

// Render draws name onto a copy of tmpl. The template is not modified.
func Render(tmpl image.Image, l Layout, name string) (*image.NRGBA, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	col, _ := ParseHexColor(l.Color)
	f, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: l.FontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	dst := imaging.Clone(tmpl)
	b := dst.Bounds()
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	width := d.MeasureString(name)
	x := fixed.I(b.Min.X+int(l.NameX*float64(b.Dx()))) - width/2
	y := fixed.I(b.Min.Y + int(l.NameY*float64(b.Dy())))
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(name)
	return dst, nil
}
