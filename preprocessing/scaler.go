package preprocessing

import (
	"math"

	"github.com/YuminosukeSato/bikecount/core/model"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
// NaN は欠損値として統計量の計算から除外され、変換後も NaN のまま残る
// 学習済みの統計量は非公開で、Fit 以外からは変更できない
type StandardScaler struct {
	model.BaseEstimator

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool

	mean      []float64
	scale     []float64
	nFeatures int
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	mean := make([]float64, c)
	scale := make([]float64, c)
	for j := 0; j < c; j++ {
		sum, n := 0.0, 0
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if s.WithMean && n > 0 {
			mean[j] = sum / float64(n)
		}

		scale[j] = 1.0
		if !s.WithStd || n == 0 {
			continue
		}
		mu := sum / float64(n)
		sumSquares := 0.0
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				diff := v - mu
				sumSquares += diff * diff
			}
		}
		scale[j] = math.Sqrt(sumSquares / float64(n))

		// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
		if math.Abs(scale[j]) < 1e-8 {
			scale[j] = 1.0
		}
	}

	s.mean, s.scale, s.nFeatures = mean, scale, c
	s.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.CheckFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.nFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.nFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.mean[j])/s.scale[j])
		}
	}
	return result, nil
}

// Mean は学習済みの各特徴量の平均値のコピーを返す
func (s *StandardScaler) Mean() []float64 {
	return append([]float64(nil), s.mean...)
}

// Scale は学習済みの各特徴量の標準偏差のコピーを返す
func (s *StandardScaler) Scale() []float64 {
	return append([]float64(nil), s.scale...)
}
