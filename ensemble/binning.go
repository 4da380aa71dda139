package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/bikecount/core/parallel"
	"gonum.org/v1/gonum/mat"
)

// binMapper maps raw feature values to bin indices. A value v of feature j
// lands in bin k where k is the number of thresholds strictly below v, so
// v <= thresholds[j][k] for every k at or above its bin. NaN goes to
// missingBin.
type binMapper struct {
	thresholds [][]float64
	missingBin int
}

// fitBinMapper computes per-feature thresholds from the rows of X listed in
// rows. When there are more than subsample rows, a seeded random subset is
// used instead.
func fitBinMapper(X mat.Matrix, rows []int, maxBins, subsample int, rng *rand.Rand, workers int) *binMapper {
	sample := rows
	if len(rows) > subsample {
		perm := rng.Perm(len(rows))[:subsample]
		sample = make([]int, subsample)
		for k, p := range perm {
			sample[k] = rows[p]
		}
	}

	_, cols := X.Dims()
	bm := &binMapper{thresholds: make([][]float64, cols), missingBin: maxBins}
	parallel.Parallelize(cols, workers, func(start, end int) {
		values := make([]float64, 0, len(sample))
		for j := start; j < end; j++ {
			values = values[:0]
			for _, i := range sample {
				if v := X.At(i, j); !math.IsNaN(v) {
					values = append(values, v)
				}
			}
			bm.thresholds[j] = findThresholds(values, maxBins)
		}
	})
	return bm
}

// findThresholds returns ascending split candidates: midpoints between
// distinct values when they fit in maxBins, otherwise midpoint percentiles.
// values is sorted in place.
func findThresholds(values []float64, maxBins int) []float64 {
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)

	distinct := values[:1:1]
	for _, v := range values[1:] {
		if v != distinct[len(distinct)-1] {
			distinct = append(distinct, v)
		}
	}

	if len(distinct) <= maxBins {
		out := make([]float64, len(distinct)-1)
		for k := range out {
			out[k] = (distinct[k] + distinct[k+1]) / 2
		}
		return out
	}

	n := len(values)
	out := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		pos := float64(k) / float64(maxBins) * float64(n-1)
		q := (values[int(math.Floor(pos))] + values[int(math.Ceil(pos))]) / 2
		if len(out) == 0 || q != out[len(out)-1] {
			out = append(out, q)
		}
	}
	return out
}

// nonMissingBins is the number of bins a feature uses for observed values.
func (bm *binMapper) nonMissingBins(feature int) int {
	return len(bm.thresholds[feature]) + 1
}

// binValue returns the bin index of v for the given feature.
func (bm *binMapper) binValue(feature int, v float64) uint8 {
	if math.IsNaN(v) {
		return uint8(bm.missingBin)
	}
	return uint8(sort.SearchFloat64s(bm.thresholds[feature], v))
}

// transform bins the listed rows of X. The result is feature-major:
// binned[j][k] is the bin of row rows[k] for feature j.
func (bm *binMapper) transform(X mat.Matrix, rows []int, workers int) [][]uint8 {
	binned := make([][]uint8, len(bm.thresholds))
	parallel.Parallelize(len(binned), workers, func(start, end int) {
		for j := start; j < end; j++ {
			col := make([]uint8, len(rows))
			for k, i := range rows {
				col[k] = bm.binValue(j, X.At(i, j))
			}
			binned[j] = col
		}
	})
	return binned
}
