package metrics

import (
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveBarChart renders one bar per value, labelled on the x axis, and saves
// it to path. The image format follows the file extension (.png, .svg, .pdf).
func SaveBarChart(path, title, yLabel string, labels []string, values []float64) error {
	if len(values) == 0 {
		return errors.NewValueError("SaveBarChart", "no values to plot")
	}
	if len(labels) != len(values) {
		return errors.NewDimensionError("SaveBarChart", len(values), len(labels), 0)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "SaveBarChart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
