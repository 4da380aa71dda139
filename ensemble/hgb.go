// Package ensemble implements a histogram-based gradient boosting regressor
// for squared error: features are bucketed once into at most 255 bins plus a
// missing-value bin, and each boosting round grows one tree leaf-wise from
// per-node gradient histograms.
package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/bikecount/core/model"
	"github.com/YuminosukeSato/bikecount/core/parallel"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Early stopping modes.
const (
	EarlyStoppingAuto = "auto"
	EarlyStoppingOn   = "on"
	EarlyStoppingOff  = "off"
)

const (
	// binSubsample bounds the number of rows used to compute bin thresholds.
	binSubsample = 200_000
	// autoEarlyStoppingRows is the training size above which "auto" turns
	// early stopping on.
	autoEarlyStoppingRows = 10_000
)

// HistGradientBoostingRegressor は勾配ブースティング回帰モデル
type HistGradientBoostingRegressor struct {
	model.BaseEstimator

	// ハイパーパラメータ
	MaxIter            int     // ブースティングの反復回数の上限
	LearningRate       float64 // 各木の寄与に掛ける縮小率
	MaxLeafNodes       int     // 木あたりの葉の上限 (0 は無制限)
	MaxDepth           int     // 木の深さの上限 (0 は無制限)
	MinSamplesLeaf     int     // 葉あたりの最小サンプル数
	L2Regularization   float64 // 葉の値に対するL2正則化
	MaxBins            int     // 観測値に使うビン数 (2-255)
	EarlyStopping      string  // "auto", "on", "off"
	ValidationFraction float64 // 早期終了用の検証データの割合
	NIterNoChange      int     // 改善のない反復がこの回数続くと終了
	Tol                float64 // 改善とみなす最小の差
	RandomState        int     // 乱数シード
	Workers            int     // ヒストグラム構築の並列数 (0 は CPU 数)

	// 学習結果
	baseline         float64
	trees            []*tree
	bins             *binMapper
	nFeatures        int
	trainScores      []float64
	validationScores []float64
}

// NewHistGradientBoostingRegressor returns a regressor with the tuned
// defaults of the bike-count model.
func NewHistGradientBoostingRegressor() *HistGradientBoostingRegressor {
	return &HistGradientBoostingRegressor{
		MaxIter:            1855,
		LearningRate:       0.07364924738942269,
		MaxLeafNodes:       31,
		MaxDepth:           14,
		MinSamplesLeaf:     20,
		L2Regularization:   0,
		MaxBins:            255,
		EarlyStopping:      EarlyStoppingAuto,
		ValidationFraction: 0.1,
		NIterNoChange:      10,
		Tol:                1e-7,
		RandomState:        8,
	}
}

// WithMaxIter sets the number of boosting iterations
func (r *HistGradientBoostingRegressor) WithMaxIter(n int) *HistGradientBoostingRegressor {
	r.MaxIter = n
	return r
}

// WithMaxDepth sets the maximum depth
func (r *HistGradientBoostingRegressor) WithMaxDepth(d int) *HistGradientBoostingRegressor {
	r.MaxDepth = d
	return r
}

// WithLearningRate sets the learning rate
func (r *HistGradientBoostingRegressor) WithLearningRate(lr float64) *HistGradientBoostingRegressor {
	r.LearningRate = lr
	return r
}

// WithRandomState sets the random seed
func (r *HistGradientBoostingRegressor) WithRandomState(seed int) *HistGradientBoostingRegressor {
	r.RandomState = seed
	return r
}

// WithWorkers sets the number of histogram workers
func (r *HistGradientBoostingRegressor) WithWorkers(n int) *HistGradientBoostingRegressor {
	r.Workers = n
	return r
}

// WithEarlyStopping sets the early stopping mode
func (r *HistGradientBoostingRegressor) WithEarlyStopping(mode string) *HistGradientBoostingRegressor {
	r.EarlyStopping = mode
	return r
}

func (r *HistGradientBoostingRegressor) validate() error {
	switch {
	case r.MaxIter < 1:
		return errors.NewValidationError("max_iter", "must be >= 1", r.MaxIter)
	case !(r.LearningRate > 0):
		return errors.NewValidationError("learning_rate", "must be > 0", r.LearningRate)
	case r.MaxLeafNodes != 0 && r.MaxLeafNodes < 2:
		return errors.NewValidationError("max_leaf_nodes", "must be >= 2 or 0 for no limit", r.MaxLeafNodes)
	case r.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", r.MaxDepth)
	case r.MinSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", r.MinSamplesLeaf)
	case r.L2Regularization < 0:
		return errors.NewValidationError("l2_regularization", "must be >= 0", r.L2Regularization)
	case r.MaxBins < 2 || r.MaxBins > 255:
		return errors.NewValidationError("max_bins", "must be in [2, 255]", r.MaxBins)
	case r.EarlyStopping != EarlyStoppingAuto && r.EarlyStopping != EarlyStoppingOn && r.EarlyStopping != EarlyStoppingOff:
		return errors.NewValidationError("early_stopping", "must be auto, on or off", r.EarlyStopping)
	case !(r.ValidationFraction > 0 && r.ValidationFraction < 1):
		return errors.NewValidationError("validation_fraction", "must be in (0, 1)", r.ValidationFraction)
	case r.NIterNoChange < 1:
		return errors.NewValidationError("n_iter_no_change", "must be >= 1", r.NIterNoChange)
	}
	return nil
}

// Fit は訓練データからブースティング木を学習する
func (r *HistGradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "HistGradientBoostingRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("HistGradientBoostingRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("HistGradientBoostingRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("HistGradientBoostingRegressor.Fit", 1, yCols, 1)
	}
	if err := r.validate(); err != nil {
		return err
	}

	target := make([]float64, rows)
	for i := range target {
		target[i] = y.At(i, 0)
		if math.IsNaN(target[i]) || math.IsInf(target[i], 0) {
			return errors.NewValueError("HistGradientBoostingRegressor.Fit", fmt.Sprintf("target has non-finite value at row %d", i))
		}
	}

	logger := log.GetLoggerWithName("ensemble.hgb")
	start := time.Now()
	rng := rand.New(rand.NewPCG(uint64(r.RandomState), 0))
	workers := parallel.Workers(r.Workers)

	r.Reset()
	r.trees = nil
	r.trainScores = nil
	r.validationScores = nil
	r.nFeatures = cols

	trainRows, valRows := r.splitRows(rows, rng)
	earlyStop := len(valRows) > 0

	r.bins = fitBinMapper(X, trainRows, r.MaxBins, binSubsample, rng, workers)
	binned := r.bins.transform(X, trainRows, workers)

	yTrain := make([]float64, len(trainRows))
	for k, i := range trainRows {
		yTrain[k] = target[i]
	}
	r.baseline = stat.Mean(yTrain, nil)

	raw := make([]float64, len(yTrain))
	for k := range raw {
		raw[k] = r.baseline
	}
	grad := make([]float64, len(yTrain))

	var valX [][]float64
	var valRaw, yVal []float64
	if earlyStop {
		valX = make([][]float64, len(valRows))
		valRaw = make([]float64, len(valRows))
		yVal = make([]float64, len(valRows))
		for k, i := range valRows {
			valX[k] = mat.Row(nil, i, X)
			valRaw[k] = r.baseline
			yVal[k] = target[i]
		}
		r.trainScores = append(r.trainScores, -halfSquaredError(yTrain, raw))
		r.validationScores = append(r.validationScores, -halfSquaredError(yVal, valRaw))
	}

	g := &grower{
		splitter: splitter{
			bins:           r.bins,
			l2:             r.L2Regularization,
			minSamplesLeaf: r.MinSamplesLeaf,
		},
		binned:       binned,
		grad:         grad,
		nBins:        r.MaxBins + 1,
		maxLeafNodes: r.MaxLeafNodes,
		maxDepth:     r.MaxDepth,
		learningRate: r.LearningRate,
		workers:      workers,
	}
	all := make([]int, len(yTrain))
	for k := range all {
		all[k] = k
	}

	for iter := 0; iter < r.MaxIter; iter++ {
		for k := range grad {
			grad[k] = raw[k] - yTrain[k]
		}
		t, leaves := g.grow(all)
		r.trees = append(r.trees, t)

		for _, leaf := range leaves {
			v := t.nodes[leaf.id].Value
			for _, k := range leaf.idx {
				raw[k] += v
			}
		}

		if earlyStop {
			for k, row := range valX {
				valRaw[k] += t.predict(row)
			}
			r.trainScores = append(r.trainScores, -halfSquaredError(yTrain, raw))
			r.validationScores = append(r.validationScores, -halfSquaredError(yVal, valRaw))
			if r.shouldStop(r.validationScores) {
				logger.Debug("Early stopping",
					log.IterationKey, iter+1,
					log.LossKey, -r.validationScores[len(r.validationScores)-1],
				)
				break
			}
		}

		if (iter+1)%100 == 0 {
			logger.Debug("Training progress",
				log.IterationKey, iter+1,
				log.LossKey, halfSquaredError(yTrain, raw),
			)
		}
	}

	r.SetFitted()
	logger.Info("Model fitted",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, "HistGradientBoostingRegressor",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, len(r.trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// splitRows shuffles off a validation set when early stopping applies.
func (r *HistGradientBoostingRegressor) splitRows(rows int, rng *rand.Rand) (train, val []int) {
	use := r.EarlyStopping == EarlyStoppingOn ||
		(r.EarlyStopping == EarlyStoppingAuto && rows > autoEarlyStoppingRows)
	nVal := int(math.Ceil(r.ValidationFraction * float64(rows)))
	if !use || nVal >= rows {
		train = make([]int, rows)
		for i := range train {
			train[i] = i
		}
		return train, nil
	}
	perm := rng.Perm(rows)
	return perm[nVal:], perm[:nVal]
}

// shouldStop reports whether none of the last NIterNoChange scores beat the
// score just before them by more than Tol.
func (r *HistGradientBoostingRegressor) shouldStop(scores []float64) bool {
	ref := r.NIterNoChange + 1
	if len(scores) < ref {
		return false
	}
	reference := scores[len(scores)-ref] + r.Tol
	for _, s := range scores[len(scores)-ref+1:] {
		if s > reference {
			return false
		}
	}
	return true
}

// Predict は学習済みモデルで予測を行う
func (r *HistGradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.CheckFitted("HistGradientBoostingRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != r.nFeatures {
		return nil, errors.NewDimensionError("HistGradientBoostingRegressor.Predict", r.nFeatures, cols, 1)
	}

	out := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, 1000, r.Workers, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			v := r.baseline
			for _, t := range r.trees {
				v += t.predict(row)
			}
			out[i] = v
		}
	})
	if rows == 0 {
		return &mat.Dense{}, nil
	}
	return mat.NewDense(rows, 1, out), nil
}

// NIter returns the number of boosting rounds actually run.
func (r *HistGradientBoostingRegressor) NIter() int {
	return len(r.trees)
}

// ValidationScores returns the negated half squared error on the held-out
// rows, starting with the baseline. It is empty when early stopping was off.
func (r *HistGradientBoostingRegressor) ValidationScores() []float64 {
	return append([]float64(nil), r.validationScores...)
}

// GetParams はハイパーパラメータを返す
func (r *HistGradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_iter":            r.MaxIter,
		"learning_rate":       r.LearningRate,
		"max_leaf_nodes":      r.MaxLeafNodes,
		"max_depth":           r.MaxDepth,
		"min_samples_leaf":    r.MinSamplesLeaf,
		"l2_regularization":   r.L2Regularization,
		"max_bins":            r.MaxBins,
		"early_stopping":      r.EarlyStopping,
		"validation_fraction": r.ValidationFraction,
		"n_iter_no_change":    r.NIterNoChange,
		"tol":                 r.Tol,
		"random_state":        r.RandomState,
	}
}

func halfSquaredError(y, pred []float64) float64 {
	var s float64
	for i := range y {
		d := y[i] - pred[i]
		s += d * d
	}
	return 0.5 * s / float64(len(y))
}
