// Package model_selection provides the time-ordered cross-validation used to
// score the bike-count pipeline.
package model_selection

import (
	"fmt"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

// CVFold represents a single fold in cross-validation
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter generates train/test indices for n time-ordered rows
type Splitter interface {
	Split(n int) ([]CVFold, error)
	GetNSplits() int
}

// TimeSeriesSplit yields folds whose test block always follows its
// training block. Fold k trains on every row before its test block, so
// training sets grow fold by fold.
type TimeSeriesSplit struct {
	NSplits      int
	TestSize     int // 0 means n / (NSplits+1)
	Gap          int // rows dropped between train and test
	MaxTrainSize int // 0 means no limit
}

// NewTimeSeriesSplit creates a new time series splitter
func NewTimeSeriesSplit(nSplits int) *TimeSeriesSplit {
	if nSplits < 2 {
		nSplits = 5
	}
	return &TimeSeriesSplit{NSplits: nSplits}
}

// GetNSplits returns the number of splits
func (ts *TimeSeriesSplit) GetNSplits() int {
	return ts.NSplits
}

// Split generates train/test indices for each fold. The last test block
// ends at the last row.
func (ts *TimeSeriesSplit) Split(n int) ([]CVFold, error) {
	if ts.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be >= 2", ts.NSplits)
	}
	nFolds := ts.NSplits + 1
	if nFolds > n {
		return nil, errors.NewValueError("TimeSeriesSplit.Split",
			fmt.Sprintf("cannot have number of folds=%d greater than the number of samples=%d", nFolds, n))
	}
	testSize := ts.TestSize
	if testSize <= 0 {
		testSize = n / nFolds
	}
	if n-ts.Gap-testSize*ts.NSplits <= 0 {
		return nil, errors.NewValueError("TimeSeriesSplit.Split",
			fmt.Sprintf("too many splits=%d for number of samples=%d with test_size=%d and gap=%d", ts.NSplits, n, testSize, ts.Gap))
	}

	folds := make([]CVFold, 0, ts.NSplits)
	for testStart := n - ts.NSplits*testSize; testStart < n; testStart += testSize {
		trainEnd := testStart - ts.Gap
		trainStart := 0
		if ts.MaxTrainSize > 0 && ts.MaxTrainSize < trainEnd {
			trainStart = trainEnd - ts.MaxTrainSize
		}
		folds = append(folds, CVFold{
			TrainIndices: indexRange(trainStart, trainEnd),
			TestIndices:  indexRange(testStart, testStart+testSize),
		})
	}
	return folds, nil
}

func indexRange(start, end int) []int {
	out := make([]int, end-start)
	for i := range out {
		out[i] = start + i
	}
	return out
}
