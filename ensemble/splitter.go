package ensemble

import "math"

// splitInfo describes a candidate split of a node. Samples with an observed
// bin <= bin go left; missing samples go left when missingLeft is set.
type splitInfo struct {
	feature     int
	bin         int
	threshold   float64
	gain        float64
	missingLeft bool
	leftGrad    float64
	leftCount   int
	rightGrad   float64
	rightCount  int
}

// splitter finds the best split of a node from its histogram.
type splitter struct {
	bins           *binMapper
	l2             float64
	minSamplesLeaf int
}

func (s *splitter) score(sumGrad float64, count int) float64 {
	return sumGrad * sumGrad / (float64(count) + s.l2)
}

// leafValue is the Newton step for a node under squared error with L2
// regularisation.
func (s *splitter) leafValue(sumGrad float64, count int) float64 {
	return -sumGrad / (float64(count) + s.l2)
}

// bestSplit scans every feature in both missing-value directions and
// returns the split with the highest positive gain. ok is false when no
// split satisfies the leaf-size constraint with a positive gain.
func (s *splitter) bestSplit(h histogram, sumGrad float64, count int) (best splitInfo, ok bool) {
	parent := s.score(sumGrad, count)
	best.gain = math.Inf(-1)

	for f := range h {
		bins := h[f]
		missing := bins[s.bins.missingBin]
		hasMissing := missing.count > 0
		nBins := s.bins.nonMissingBins(f)

		// With missing values present, the last candidate separates
		// observed values from missing ones.
		end := nBins - 1
		if hasMissing {
			end = nBins
		}

		var grad float64
		var n int
		for b := 0; b < end; b++ {
			grad += bins[b].sumGrad
			n += bins[b].count

			tries := 1
			if hasMissing && b < nBins-1 {
				tries = 2
			}
			for d := 0; d < tries; d++ {
				missingLeft := d == 1
				lg, ln := grad, n
				if missingLeft {
					lg += missing.sumGrad
					ln += missing.count
				}
				rn := count - ln
				if ln < s.minSamplesLeaf || rn < s.minSamplesLeaf {
					continue
				}
				rg := sumGrad - lg
				gain := s.score(lg, ln) + s.score(rg, rn) - parent
				if gain <= best.gain {
					continue
				}
				threshold := math.Inf(1)
				if b < nBins-1 {
					threshold = s.bins.thresholds[f][b]
				}
				best = splitInfo{
					feature:     f,
					bin:         b,
					threshold:   threshold,
					gain:        gain,
					missingLeft: missingLeft,
					leftGrad:    lg,
					leftCount:   ln,
					rightGrad:   rg,
					rightCount:  rn,
				}
			}
		}
		if !hasMissing && best.feature == f {
			// No missing values seen for this feature: unseen NaN follows
			// the larger child.
			best.missingLeft = best.leftCount >= best.rightCount
		}
	}
	return best, best.gain > 0
}
