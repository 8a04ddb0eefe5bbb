// Package plot renders the figures the tabular agent can produce. The
// Renderer interface is the boundary the conversation loop depends on; the
// gonum implementation is the only one shipped.
package plot

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Renderer produces base64-encoded PNG figures.
type Renderer interface {
	Histogram(values []float64, column string, bins int, logScale bool) (string, error)
	CorrHeatmap(m CorrMatrix, method string) (string, error)
}

// GonumRenderer implements Renderer with gonum.org/v1/plot.
type GonumRenderer struct{}

// NewRenderer returns the default renderer.
func NewRenderer() *GonumRenderer { return &GonumRenderer{} }

// Histogram renders a frequency histogram of the given values.
func (GonumRenderer) Histogram(values []float64, column string, bins int, logScale bool) (string, error) {
	if len(values) == 0 {
		return "", eris.Errorf("plot: column %q has no numeric values", column)
	}
	if bins <= 0 {
		bins = 30
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Histograma – %s", column)
	p.X.Label.Text = column
	p.Y.Label.Text = "Frequência"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return "", eris.Wrap(err, "plot: histogram")
	}
	p.Add(h)

	if logScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
		p.Y.Min = 0.5
	}

	return encodePNG(p, 6*vg.Inch, 4*vg.Inch)
}

// heatGrid adapts a CorrMatrix to the plotter.GridXYZ interface.
type heatGrid struct {
	m CorrMatrix
}

func (g heatGrid) Dims() (int, int)   { return len(g.m.Columns), len(g.m.Columns) }
func (g heatGrid) X(c int) float64    { return float64(c) }
func (g heatGrid) Y(r int) float64    { return float64(r) }
func (g heatGrid) Z(c, r int) float64 { return g.m.Data[r][c] }

// CorrHeatmap renders a correlation matrix as a heat map.
func (GonumRenderer) CorrHeatmap(m CorrMatrix, method string) (string, error) {
	if len(m.Columns) == 0 {
		return "", eris.New("plot: empty correlation matrix")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Matriz de correlação (%s)", method)

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(heatGrid{m: m}, pal)
	p.Add(hm)

	ticks := make([]plot.Tick, len(m.Columns))
	for i, c := range m.Columns {
		ticks[i] = plot.Tick{Value: float64(i), Label: c}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Tick.Label.Rotation = 1.5708 // 90°
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	return encodePNG(p, 6*vg.Inch, 6*vg.Inch)
}

func encodePNG(p *plot.Plot, w, h vg.Length) (string, error) {
	writer, err := p.WriterTo(w, h, "png")
	if err != nil {
		return "", eris.Wrap(err, "plot: writer")
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return "", eris.Wrap(err, "plot: encode png")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
