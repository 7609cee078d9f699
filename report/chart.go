package report

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/stats"
	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// errPoints supplies bar tops and symmetric error extents to YErrorBars.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

// BarChart draws one bar per parameter at x = 1..n with height means[i] and
// a symmetric error bar of sems[i], labelled with names along the x axis.
func BarChart(names []string, means, sems []float64, style Style) (*plot.Plot, error) {
	if err := stats.CheckAligned(names, means, sems); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.ErrEmptyData
	}
	if style.Color == nil {
		style.Color = DefaultColor
	}

	p := plot.New()
	p.X.Label.Text = "Parameter Name"
	p.Y.Label.Text = "Importance Score"
	for _, l := range []*plot.Axis{&p.X, &p.Y} {
		l.Label.TextStyle.Font.Size = style.LabelFontSize
		l.Label.TextStyle.Font.Weight = xfont.WeightBold
		l.Tick.Label.Font.Size = style.TickFontSize
		l.Tick.Label.Font.Weight = xfont.WeightBold
	}

	bars, err := plotter.NewBarChart(plotter.Values(means), vg.Points(12))
	if err != nil {
		return nil, errors.Wrap(err, "bar chart")
	}
	bars.Color = style.Color
	bars.LineStyle.Width = 0
	bars.XMin = 1

	pts := errPoints{
		XYs:     make(plotter.XYs, len(means)),
		YErrors: make(plotter.YErrors, len(means)),
	}
	for i := range means {
		pts.XYs[i] = plotter.XY{X: float64(i + 1), Y: means[i]}
		pts.YErrors[i].Low = sems[i]
		pts.YErrors[i].High = sems[i]
	}
	errBars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, errors.Wrap(err, "error bars")
	}
	errBars.CapWidth = style.ErrorCap * 2

	p.Add(bars, errBars)

	ticks := make([]plot.Tick, len(names))
	for i, name := range names {
		ticks[i] = plot.Tick{Value: float64(i + 1), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Min, p.X.Max = 0, float64(len(names)+1)

	if style.YMax > 0 {
		p.Y.Min, p.Y.Max = 0, style.YMax
	}
	if style.YTickStep > 0 && style.YMax > 0 {
		p.Y.Tick.Marker = plot.ConstantTicks(yTicks(style.YMax, style.YTickStep))
	}
	return p, nil
}

// yTicks returns labelled ticks 0, step, ... strictly below yMax.
func yTicks(yMax, step float64) []plot.Tick {
	var ticks []plot.Tick
	for i := 0; ; i++ {
		v := float64(i) * step
		if v >= yMax-step/2 {
			break
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf("%.1f", v)})
	}
	return ticks
}

// AddSignificanceMarkers overlays a glyph above every bar whose p-value is
// below m.Alpha. It is a no-op unless m.Enabled.
func AddSignificanceMarkers(p *plot.Plot, means, pValues []float64, m MarkerStyle) error {
	if !m.Enabled {
		return nil
	}
	if len(means) != len(pValues) {
		return errors.NewDimensionError("AddSignificanceMarkers", len(means), len(pValues), 0)
	}
	var pts plotter.XYs
	for i, pv := range pValues {
		if pv < m.Alpha {
			pts = append(pts, plotter.XY{X: float64(i + 1), Y: means[i] + m.Lift + m.Offset})
		}
	}
	if len(pts) == 0 {
		return nil
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "markers")
	}
	sc.GlyphStyle.Shape = draw.PyramidGlyph{}
	sc.GlyphStyle.Radius = vg.Points(6)
	p.Add(sc)
	return nil
}

// SaveChart writes p to path; the format follows the extension
// (png, svg, pdf, eps, jpg, tif).
func SaveChart(p *plot.Plot, style Style, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".svg", ".pdf", ".eps", ".jpg", ".jpeg", ".tif", ".tiff":
	default:
		return errors.Wrapf(errors.ErrUnsupportedFormat, "chart %s", path)
	}
	if err := p.Save(style.Width, style.Height, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
