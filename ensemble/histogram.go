package ensemble

import "github.com/YuminosukeSato/bikecount/core/parallel"

// minParallelSamples is the node size below which histograms are built on
// the calling goroutine.
const minParallelSamples = 2048

// histBin accumulates the gradient sum and sample count of one bin. The
// squared-error hessian is constant, so the count stands in for the hessian
// sum.
type histBin struct {
	sumGrad float64
	count   int
}

// histogram holds one bin slice per feature.
type histogram [][]histBin

// buildHistogram accumulates gradients of the samples in idx for every
// feature, one feature per task.
func buildHistogram(binned [][]uint8, idx []int, grad []float64, nBins, workers int) histogram {
	h := make(histogram, len(binned))
	if len(idx) < minParallelSamples {
		workers = 1
	}
	parallel.Parallelize(len(binned), workers, func(start, end int) {
		for j := start; j < end; j++ {
			bins := make([]histBin, nBins)
			col := binned[j]
			for _, i := range idx {
				b := &bins[col[i]]
				b.sumGrad += grad[i]
				b.count++
			}
			h[j] = bins
		}
	})
	return h
}

// subtract returns h - child. The sibling of a freshly built child is the
// parent minus that child.
func (h histogram) subtract(child histogram) histogram {
	out := make(histogram, len(h))
	for j := range h {
		bins := make([]histBin, len(h[j]))
		for b := range bins {
			bins[b] = histBin{
				sumGrad: h[j][b].sumGrad - child[j][b].sumGrad,
				count:   h[j][b].count - child[j][b].count,
			}
		}
		out[j] = bins
	}
	return out
}
