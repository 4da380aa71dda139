// Package pipeline drives training, evaluation and tuning of the bike-count
// model: it prepares merged frames, fits preprocessing plus a regressor and
// exposes the run entry points used by the CLI.
package pipeline

import (
	"context"

	"github.com/YuminosukeSato/bikecount/core/model"
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"github.com/YuminosukeSato/bikecount/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Pipeline chains the column transformer and a regressor. Every Fit starts
// from a fresh regressor so a Pipeline can be refitted per fold.
type Pipeline struct {
	Preprocessor *preprocessing.ColumnTransformer
	NewRegressor func() model.Regressor

	fitted    *preprocessing.FittedColumnTransformer
	regressor model.Regressor
}

// New returns a pipeline with the default column transformer.
func New(newRegressor func() model.Regressor) *Pipeline {
	return &Pipeline{
		Preprocessor: preprocessing.NewColumnTransformer(),
		NewRegressor: newRegressor,
	}
}

// Fit は前処理と回帰モデルを学習する
func (p *Pipeline) Fit(x *frame.Frame, y []float64) error {
	if x.NumRows() != len(y) {
		return errors.NewDimensionError("Pipeline.Fit", x.NumRows(), len(y), 0)
	}
	fitted, features, err := p.Preprocessor.FitTransform(x)
	if err != nil {
		return errors.Wrap(err, "Pipeline.Fit: preprocessing")
	}
	reg := p.NewRegressor()
	if err := reg.Fit(features.X, mat.NewDense(len(y), 1, append([]float64(nil), y...))); err != nil {
		return errors.Wrap(err, "Pipeline.Fit: regressor")
	}
	p.fitted, p.regressor = fitted, reg

	logger := log.GetLoggerWithName("pipeline")
	if pg, ok := reg.(model.ParameterGetter); ok && logger.Enabled(context.Background(), log.LevelDebug) {
		logger.Debug("Pipeline fitted",
			log.SamplesKey, len(y),
			log.FeaturesKey, len(fitted.Names()),
			log.HyperParamsKey, pg.GetParams(),
		)
	}
	return nil
}

// Predict は学習済みパイプラインで予測を行う
func (p *Pipeline) Predict(x *frame.Frame) ([]float64, error) {
	if p.fitted == nil || p.regressor == nil {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	features, err := p.fitted.Transform(x)
	if err != nil {
		return nil, errors.Wrap(err, "Pipeline.Predict: preprocessing")
	}
	pred, err := p.regressor.Predict(features.X)
	if err != nil {
		return nil, errors.Wrap(err, "Pipeline.Predict: regressor")
	}
	return mat.Col(nil, 0, pred), nil
}

// FeatureNames returns the names of the fitted feature matrix columns.
func (p *Pipeline) FeatureNames() []string {
	if p.fitted == nil {
		return nil
	}
	return p.fitted.Names()
}
