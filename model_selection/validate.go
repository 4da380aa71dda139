package model_selection

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/metrics"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Estimator is a full model, preprocessing included, fitted on a feature
// frame and a target column.
type Estimator interface {
	Fit(x *frame.Frame, y []float64) error
	Predict(x *frame.Frame) ([]float64, error)
}

// CVResult holds the per-fold scores of a cross-validation run.
type CVResult struct {
	FoldRMSE  []float64
	FitTimes  []time.Duration
	TrainRows []int
	TestRows  []int
	Elapsed   time.Duration
}

// MeanRMSE is the average RMSE over folds.
func (r *CVResult) MeanRMSE() float64 {
	return stat.Mean(r.FoldRMSE, nil)
}

// StdRMSE is the population standard deviation of the fold RMSEs.
func (r *CVResult) StdRMSE() float64 {
	_, std := stat.PopMeanStdDev(r.FoldRMSE, nil)
	return std
}

// CrossValidate refits a fresh estimator on every training block and
// scores it on the following test block. Cancellation is checked between
// folds.
func CrossValidate(ctx context.Context, newEstimator func() Estimator, x *frame.Frame, y []float64, splitter Splitter) (*CVResult, error) {
	if x.NumRows() != len(y) {
		return nil, errors.NewDimensionError("CrossValidate", x.NumRows(), len(y), 0)
	}
	folds, err := splitter.Split(len(y))
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("model_selection.cv")
	start := time.Now()
	res := &CVResult{}

	for k, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "cross-validation stopped before fold %d", k)
		}

		est := newEstimator()
		fitStart := time.Now()
		if err := est.Fit(x.Take(fold.TrainIndices), takeFloats(y, fold.TrainIndices)); err != nil {
			return nil, errors.Wrapf(err, "fold %d: fit", k)
		}
		fitTime := time.Since(fitStart)

		pred, err := est.Predict(x.Take(fold.TestIndices))
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d: predict", k)
		}
		truth := takeFloats(y, fold.TestIndices)
		rmse, err := metrics.RMSE(mat.NewVecDense(len(truth), truth), mat.NewVecDense(len(pred), pred))
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d: score", k)
		}

		res.FoldRMSE = append(res.FoldRMSE, rmse)
		res.FitTimes = append(res.FitTimes, fitTime)
		res.TrainRows = append(res.TrainRows, len(fold.TrainIndices))
		res.TestRows = append(res.TestRows, len(fold.TestIndices))

		logger.Info("Fold scored",
			log.FoldKey, k,
			log.RMSEKey, rmse,
			log.SamplesKey, len(fold.TrainIndices),
			log.DurationMsKey, fitTime.Milliseconds(),
		)
	}

	res.Elapsed = time.Since(start)
	mean := res.MeanRMSE()
	if math.IsNaN(mean) {
		return nil, errors.NewValueError("CrossValidate", "fold RMSE is NaN")
	}
	logger.Info("Cross-validation done",
		log.RMSEKey, mean,
		"rmse_std", res.StdRMSE(),
		log.DurationSecondsKey, res.Elapsed.Seconds(),
	)
	return res, nil
}

func takeFloats(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = v[i]
	}
	return out
}
