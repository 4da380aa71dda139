package features

import (
	"math"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

// Rain indicator column names.
const (
	NoRain       = "no_rain"
	WeakRain     = "weak_rain"
	ModerateRain = "moderate_rain"
)

// AddRainIndicators appends three 0/1 columns bucketing the hourly
// precipitation: no_rain (x = 0), weak_rain (0 < x < 2) and moderate_rain
// (2 ≤ x < 7). Heavy rain (x ≥ 7) and missing values set none of them.
func AddRainIndicators(f *frame.Frame, precipColumn string) (*frame.Frame, error) {
	s, err := f.Column(precipColumn)
	if err != nil {
		return nil, errors.Wrap(err, "AddRainIndicators")
	}
	if s.Kind() != frame.Numerical {
		return nil, errors.NewKindMismatchError("AddRainIndicators", precipColumn, frame.Numerical.String(), s.Kind().String())
	}

	n := s.Len()
	none, weak, moderate := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		x := s.Float(i)
		switch {
		case math.IsNaN(x):
		case x == 0:
			none[i] = 1
		case x > 0 && x < 2:
			weak[i] = 1
		case x >= 2 && x < 7:
			moderate[i] = 1
		}
	}

	out := f
	for _, col := range []*frame.Series{
		frame.NewNumerical(NoRain, none),
		frame.NewNumerical(WeakRain, weak),
		frame.NewNumerical(ModerateRain, moderate),
	} {
		if out, err = out.With(col); err != nil {
			return nil, errors.Wrap(err, "AddRainIndicators")
		}
	}
	return out, nil
}
