// Package chart draws distribution and correlation charts with gonum/plot.
// The output format follows the file extension.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/tabprof/internal/analysis"
	"github.com/KaramelBytes/tabprof/internal/dataset"
	"github.com/KaramelBytes/tabprof/internal/utils"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported chart format")
	ErrNothingToPlot     = errors.New("nothing to plot")
)

const (
	gridCols       = 3
	defaultColumns = 6
	defaultBins    = 30
)

var (
	barFill = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	nanFill = color.Gray{Y: 200}
)

// Options controls chart size and binning. Zero values pick defaults.
type Options struct {
	// Width of the whole figure. Defaults to 15in.
	Width vg.Length
	// Height of the whole figure. Defaults to 5in per grid row, or 10in for
	// a heatmap.
	Height vg.Length
	// Bins per histogram. Defaults to 30.
	Bins   int
	Logger *zerolog.Logger
}

func (o Options) log() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Formats lists the accepted file extensions.
var Formats = []string{"png", "jpg", "jpeg", "svg", "pdf", "eps", "tif", "tiff"}

func formatOf(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range Formats {
		if f == ext {
			return ext, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%q (use %s)", filepath.Ext(path), strings.Join(Formats, "|"))
}

// pickColumns resolves the named numeric columns, defaulting to the first six.
func pickColumns(t *dataset.Table, names []string) ([]*dataset.Column, error) {
	if len(names) == 0 {
		names = t.NumericNames()
		if len(names) > defaultColumns {
			names = names[:defaultColumns]
		}
	}
	if len(names) == 0 {
		return nil, errors.Wrapf(ErrNothingToPlot, "%s has no numeric columns", t.Name())
	}
	cols := make([]*dataset.Column, len(names))
	for i, n := range names {
		c, err := t.NumericColumn(n)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

// Histograms draws one histogram per column in a grid three plots wide.
func Histograms(t *dataset.Table, columns []string, path string, opt Options) error {
	bins := opt.Bins
	if bins <= 0 {
		bins = defaultBins
	}
	return grid(t, columns, path, opt, "histograms", func(c *dataset.Column) (*plot.Plot, error) {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Distribution of %s", c.Name())
		p.X.Label.Text = c.Name()
		p.Y.Label.Text = "Frequency"
		vals := c.Present()
		if len(vals) == 0 {
			p.Title.Text += " (no data)"
			return p, nil
		}
		n := bins
		if floats.Min(vals) == floats.Max(vals) {
			n = 1
		}
		h, err := plotter.NewHist(plotter.Values(vals), n)
		if err != nil {
			return nil, errors.Wrapf(err, "histogram of %s", c.Name())
		}
		h.FillColor = barFill
		h.LineStyle.Color = color.Black
		p.Add(h)
		return p, nil
	})
}

// Boxplots draws one box plot per column in a grid three plots wide.
func Boxplots(t *dataset.Table, columns []string, path string, opt Options) error {
	return grid(t, columns, path, opt, "boxplots", func(c *dataset.Column) (*plot.Plot, error) {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Boxplot of %s", c.Name())
		p.Y.Label.Text = c.Name()
		vals := c.Present()
		if len(vals) == 0 {
			p.Title.Text += " (no data)"
			return p, nil
		}
		b, err := plotter.NewBoxPlot(vg.Points(40), 0, plotter.Values(vals))
		if err != nil {
			return nil, errors.Wrapf(err, "box plot of %s", c.Name())
		}
		b.FillColor = barFill
		p.Add(b)
		p.NominalX(c.Name())
		return p, nil
	})
}

func grid(t *dataset.Table, columns []string, path string, opt Options, kind string, draw1 func(*dataset.Column) (*plot.Plot, error)) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	cols, err := pickColumns(t, columns)
	if err != nil {
		return err
	}
	rows := (len(cols) + gridCols - 1) / gridCols
	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, gridCols)
	}
	for i, c := range cols {
		p, err := draw1(c)
		if err != nil {
			return err
		}
		plots[i/gridCols][i%gridCols] = p
	}

	w, h := opt.Width, opt.Height
	if w <= 0 {
		w = 15 * vg.Inch
	}
	if h <= 0 {
		h = vg.Length(rows) * 5 * vg.Inch
	}
	img, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return errors.Wrapf(ErrUnsupportedFormat, "%s: %v", format, err)
	}
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows, Cols: gridCols,
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i, p := range plots[j] {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}
	if err := save(img, path); err != nil {
		return err
	}
	log := opt.log()
	log.Info().Str("path", path).Int("columns", len(cols)).Msgf("%s written", kind)
	return nil
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is drawn at
// the top.
type corrGrid struct{ m *analysis.CorrelationMatrix }

func (g corrGrid) Dims() (c, r int)   { return g.m.Len(), g.m.Len() }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(g.m.Len()-1-r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// CorrelationHeatmap draws m on a blue-red diverging scale over [-1, 1] and
// prints each coefficient in its cell. Undefined coefficients are grey.
func CorrelationHeatmap(m *analysis.CorrelationMatrix, path string, opt Options) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	n := m.Len()
	if n == 0 {
		return errors.Wrap(ErrNothingToPlot, "correlation matrix is empty")
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	cmap.SetConvergePoint(0)
	hm := plotter.NewHeatMap(corrGrid{m}, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = nanFill

	labels := plotter.XYLabels{XYs: make(plotter.XYs, 0, n*n), Labels: make([]string, 0, n*n)}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := m.At(r, c)
			s := "NaN"
			if !math.IsNaN(v) {
				s = fmt.Sprintf("%.2f", v)
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(n - 1 - r)})
			labels.Labels = append(labels.Labels, s)
		}
	}
	lbl, err := plotter.NewLabels(labels)
	if err != nil {
		return errors.Wrap(err, "heatmap labels")
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = draw.XCenter
		lbl.TextStyle[i].YAlign = draw.YCenter
	}

	p := plot.New()
	p.Title.Text = "Correlation Matrix"
	p.Add(hm, lbl)
	p.NominalX(m.Columns...)
	rev := make([]string, n)
	for i, c := range m.Columns {
		rev[n-1-i] = c
	}
	p.NominalY(rev...)

	w, h := opt.Width, opt.Height
	if w <= 0 {
		w = 12 * vg.Inch
	}
	if h <= 0 {
		h = 10 * vg.Inch
	}
	img, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return errors.Wrapf(ErrUnsupportedFormat, "%s: %v", format, err)
	}
	p.Draw(draw.New(img))
	if err := save(img, path); err != nil {
		return err
	}
	log := opt.log()
	log.Info().Str("path", path).Int("columns", n).Msg("correlation heatmap written")
	return nil
}

func save(img vg.CanvasWriterTo, path string) error {
	var buf bytes.Buffer
	if _, err := img.WriteTo(&buf); err != nil {
		return errors.Wrapf(err, "render %s", path)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
