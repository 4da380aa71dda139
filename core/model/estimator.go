// Package model defines the estimator contracts shared by the regressors and
// the training driver.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	// 戻り値は X と同じ行数の n×1 行列
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is the contract the training driver needs from a model: fit on a
// numeric feature matrix and a target column, then predict one value per row.
type Regressor interface {
	Fitter
	Predictor
}

// LinearModel は線形モデルのインターフェース
type LinearModel interface {
	Regressor
	// Weights は学習された重み（係数）を返す
	Weights() []float64
	// Intercept は学習された切片を返す
	Intercept() float64
}

// ParameterGetter is implemented by models that expose their hyperparameters,
// used when logging a run configuration.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
