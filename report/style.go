// Package report renders permutation-importance bar charts and the console
// summaries printed by the pipelines.
package report

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"gonum.org/v1/plot/vg"
)

var (
	// DefaultColor is the default bar fill (matplotlib "C0").
	DefaultColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	// OrangeColor is the alternative bar fill, RGBA (1, 0.4, 0, 1).
	OrangeColor = color.RGBA{R: 0xff, G: 0x66, B: 0x00, A: 0xff}
)

// MarkerStyle configures the significance marker overlay. A marker is drawn
// at mean+Lift+Offset above every bar whose p-value is below Alpha.
type MarkerStyle struct {
	Enabled bool    `yaml:"enabled"`
	Alpha   float64 `yaml:"alpha"`
	Lift    float64 `yaml:"lift"`
	Offset  float64 `yaml:"offset"`
}

// Style controls the look of a bar chart.
type Style struct {
	Color   color.Color
	Markers MarkerStyle

	Width         vg.Length
	Height        vg.Length
	TickFontSize  vg.Length
	LabelFontSize vg.Length
	YMax          float64
	YTickStep     float64
	ErrorCap      vg.Length
}

// DefaultStyle returns the chart layout used for all four conditions.
func DefaultStyle() Style {
	return Style{
		Color:         DefaultColor,
		Width:         16 * vg.Inch,
		Height:        9 * vg.Inch,
		TickFontSize:  vg.Points(12),
		LabelFontSize: vg.Points(24),
		YMax:          0.7,
		YTickStep:     0.1,
		ErrorCap:      vg.Points(5),
		Markers: MarkerStyle{
			Alpha: 0.01,
			Lift:  0.02,
		},
	}
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, errors.NewValidationError("color", "expected #rrggbb or #rrggbbaa", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.NewValidationError("color", "invalid hex digits", s)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
