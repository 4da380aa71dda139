// Package features holds the row-level feature steps applied between the
// weather merge and preprocessing: imputation, selection and rain buckets.
package features

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"gonum.org/v1/gonum/stat"
)

// NullImputer fills missing numerical values with a per-column statistic.
// Statistics are computed from the frame being imputed on every call; train
// statistics are not carried over to test.
type NullImputer struct {
	Mean   []string
	Median []string
}

// NewNullImputer builds an imputer from the configured column lists.
func NewNullImputer(tables *dataset.Tables) *NullImputer {
	return &NullImputer{
		Mean:   append([]string(nil), tables.MeanImputed...),
		Median: append([]string(nil), tables.MedianImputed...),
	}
}

// FillValues computes the fill value of every configured column. Columns
// without any observed value map to NaN.
func (n *NullImputer) FillValues(f *frame.Frame) (map[string]float64, error) {
	out := make(map[string]float64, len(n.Mean)+len(n.Median))
	for _, spec := range []struct {
		cols []string
		fn   func([]float64) float64
	}{
		{n.Mean, mean},
		{n.Median, median},
	} {
		for _, name := range spec.cols {
			s, err := f.Column(name)
			if err != nil {
				return nil, errors.NewColumnNotFoundError("NullImputer", name, f.Names())
			}
			if s.Kind() != frame.Numerical {
				return nil, errors.NewKindMismatchError("NullImputer", name, frame.Numerical.String(), s.Kind().String())
			}
			out[name] = spec.fn(observed(s))
		}
	}
	return out, nil
}

// Transform returns f with the configured columns imputed.
func (n *NullImputer) Transform(f *frame.Frame) (*frame.Frame, error) {
	logger := log.GetLoggerWithName("features.imputer")

	fills, err := n.FillValues(f)
	if err != nil {
		return nil, err
	}
	out := f
	for _, name := range append(append([]string(nil), n.Mean...), n.Median...) {
		s, _ := f.Column(name)
		fill := fills[name]
		missing := s.NullCount()
		if missing == 0 || math.IsNaN(fill) {
			continue
		}
		vals := s.Floats()
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = fill
			}
		}
		if out, err = out.With(frame.NewNumerical(name, vals)); err != nil {
			return nil, errors.Wrap(err, "NullImputer")
		}
		logger.Debug("Column imputed",
			log.ColumnKey, name,
			"missing", missing,
			"fill_value", fill,
		)
	}
	return out, nil
}

func observed(s *frame.Series) []float64 {
	vals := make([]float64, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if v := s.Float(i); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// median averages the two middle values for even counts.
func median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
