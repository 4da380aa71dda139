// Package linear provides the ridge regression baseline.
package linear

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/bikecount/core/model"
	"github.com/YuminosukeSato/bikecount/core/parallel"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Ridge は L2 正則化付きの線形回帰モデル
type Ridge struct {
	model.BaseEstimator

	Alpha        float64 // L2 正則化の強さ
	FitIntercept bool    // 切片を学習するかどうか
	Workers      int     // 並列数 (0 は CPU 数)

	coef      *mat.VecDense // 重み（係数）
	intercept float64       // 切片
	nFeatures int           // 特徴量の数
}

// NewRidge は新しい Ridge モデルを作成する
func NewRidge(opts ...Option) *Ridge {
	r := &Ridge{Alpha: 1.0, FitIntercept: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fit はモデルを訓練データで学習させる
// 中心化したデータで (X^T X + αI) w = X^T y を解く
func (r *Ridge) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Ridge.Fit")

	n, c := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || c == 0 {
		return errors.NewModelError("Ridge.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return errors.NewDimensionError("Ridge.Fit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("Ridge.Fit", "y must be a column vector")
	}
	if r.Alpha < 0 || math.IsNaN(r.Alpha) {
		return errors.NewValidationError("alpha", "must be >= 0", r.Alpha)
	}

	xc := mat.DenseCopyOf(X)
	yc := mat.NewVecDense(n, mat.Col(nil, 0, y))
	if err := checkFinite("Ridge.Fit", xc); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if v := yc.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValueError("Ridge.Fit", fmt.Sprintf("target has non-finite value at row %d", i))
		}
	}

	xMean := make([]float64, c)
	var yMean float64
	if r.FitIntercept {
		for j := 0; j < c; j++ {
			var s float64
			for i := 0; i < n; i++ {
				s += xc.At(i, j)
			}
			xMean[j] = s / float64(n)
		}
		for i := 0; i < n; i++ {
			yMean += yc.AtVec(i)
		}
		yMean /= float64(n)

		parallel.ParallelizeWithThreshold(n, 1000, r.Workers, func(start, end int) {
			for i := start; i < end; i++ {
				for j := 0; j < c; j++ {
					xc.Set(i, j, xc.At(i, j)-xMean[j])
				}
				yc.SetVec(i, yc.AtVec(i)-yMean)
			}
		})
	}

	// X^T X + αI
	gram := mat.NewSymDense(c, nil)
	gram.SymOuterK(1, xc.T())
	for j := 0; j < c; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return errors.NewModelError("Ridge.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	var xty mat.VecDense
	xty.MulVec(xc.T(), yc)

	coef := mat.NewVecDense(c, nil)
	if err := chol.SolveVecTo(coef, &xty); err != nil {
		return errors.NewModelError("Ridge.Fit", "singular matrix", err)
	}

	r.coef = coef
	r.intercept = 0
	if r.FitIntercept {
		r.intercept = yMean - mat.Dot(mat.NewVecDense(c, xMean), coef)
	}
	r.nFeatures = c
	r.SetFitted()

	log.GetLoggerWithName("linear.ridge").Debug("Model fitted",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, "Ridge",
		log.SamplesKey, n,
		log.FeaturesKey, c,
	)
	return nil
}

// Predict は入力データに対する予測を行う
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.CheckFitted("Ridge", "Predict"); err != nil {
		return nil, err
	}
	n, c := X.Dims()
	if c != r.nFeatures {
		return nil, errors.NewDimensionError("Ridge.Predict", r.nFeatures, c, 1)
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}
	if err := checkFinite("Ridge.Predict", X); err != nil {
		return nil, err
	}

	var pred mat.VecDense
	pred.MulVec(X, r.coef)
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, pred.AtVec(i)+r.intercept)
	}
	return out, nil
}

// Weights は学習された重み（係数）を返す
func (r *Ridge) Weights() []float64 {
	if r.coef == nil {
		return nil
	}
	return mat.Col(nil, 0, r.coef)
}

// Intercept は学習された切片を返す
func (r *Ridge) Intercept() float64 {
	return r.intercept
}

// GetParams はハイパーパラメータを返す
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         r.Alpha,
		"fit_intercept": r.FitIntercept,
	}
}

// checkFinite rejects NaN and infinite inputs; the ridge solution has no
// notion of a missing value.
func checkFinite(op string, X mat.Matrix) error {
	n, c := X.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			if v := X.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValueError(op, fmt.Sprintf("input has non-finite value at row %d, column %d", i, j))
			}
		}
	}
	return nil
}
