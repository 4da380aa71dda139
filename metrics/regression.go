// Package metrics scores regression predictions and exports run results as
// a Prometheus textfile and a bar chart.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// residuals validates the pair and returns yTrue - yPred.
func residuals(op string, yTrue, yPred *mat.VecDense) ([]float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	diff := make([]float64, n)
	for i := range diff {
		diff[i] = yTrue.AtVec(i) - yPred.AtVec(i)
	}
	return diff, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Dot(diff, diff) / float64(len(diff)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Norm(diff, 1) / float64(len(diff)), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	truth := mat.Col(nil, 0, yTrue)
	mean := stat.Mean(truth, nil)
	var tss float64
	for _, v := range truth {
		tss += (v - mean) * (v - mean)
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - floats.Dot(diff, diff)/tss, nil
}

// columnVectors converts two n×1 matrices into vectors.
func columnVectors(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	return mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue)), mat.NewVecDense(rPred, mat.Col(nil, 0, yPred)), nil
}

// MSEMatrix は行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnVectors("MSEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return MSE(t, p)
}

// RMSEMatrix は行列形式の入力に対してRMSEを計算する
func RMSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnVectors("RMSEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return RMSE(t, p)
}

// Summary holds the regression scores reported after a hold-out evaluation.
type Summary struct {
	RMSE float64
	MAE  float64
	R2   float64
}

// Summarize computes RMSE, MAE and R² for n×1 matrices. R² is NaN when the
// truth has no variance.
func Summarize(yTrue, yPred mat.Matrix) (Summary, error) {
	t, p, err := columnVectors("Summarize", yTrue, yPred)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	if s.RMSE, err = RMSE(t, p); err != nil {
		return Summary{}, err
	}
	if s.MAE, err = MAE(t, p); err != nil {
		return Summary{}, err
	}
	if s.R2, err = R2Score(t, p); err != nil {
		s.R2 = math.NaN()
	}
	return s, nil
}
