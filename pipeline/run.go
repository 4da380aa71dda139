package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/metrics"
	"github.com/YuminosukeSato/bikecount/model_selection"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"github.com/YuminosukeSato/bikecount/tuning"
	"github.com/YuminosukeSato/bikecount/weather"
)

// PredictResult summarises a predict run.
type PredictResult struct {
	TrainRows   int
	TestRows    int
	Predictions []float64
	Elapsed     time.Duration
}

// load reads and merges the inputs, then prepares the model frames.
func load(ctx context.Context, cfg Config, withTest bool) (*Prepared, error) {
	tables, err := cfg.Tables()
	if err != nil {
		return nil, err
	}
	loader := &weather.Loader{
		TrainPath:   cfg.TrainPath,
		WeatherPath: cfg.WeatherPath,
		Tables:      tables,
		Workers:     cfg.Workers,
	}
	if withTest {
		loader.TestPath = cfg.TestPath
	}
	data, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Prepare(data.Train, data.Test, tables)
}

// RunPredict fits the pipeline on the whole train set, predicts the test set
// and writes the submission file.
func RunPredict(ctx context.Context, cfg Config) (*PredictResult, error) {
	if err := cfg.Validate(CommandPredict); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("pipeline.run")
	start := time.Now()

	prep, err := load(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := New(cfg.RegressorFactory())
	if err := p.Fit(prep.XTrain, prep.YTrain); err != nil {
		return nil, err
	}
	pred, err := p.Predict(prep.XTest)
	if err != nil {
		return nil, err
	}
	if err := dataset.WriteSubmissionFile(cfg.OutputPath, pred); err != nil {
		return nil, err
	}

	res := &PredictResult{
		TrainRows:   prep.XTrain.NumRows(),
		TestRows:    prep.XTest.NumRows(),
		Predictions: pred,
		Elapsed:     time.Since(start),
	}
	logger.Info("Submission written",
		log.OperationKey, log.OperationPredict,
		log.PathKey, cfg.OutputPath,
		log.SamplesKey, res.TestRows,
		log.FeaturesKey, len(p.FeatureNames()),
		log.DurationSecondsKey, res.Elapsed.Seconds(),
	)

	return res, export(cfg, metrics.RunReport{
		Command:   CommandPredict,
		TrainRows: res.TrainRows,
		TestRows:  res.TestRows,
		Elapsed:   res.Elapsed,
	}, nil, nil)
}

// RunEvaluate cross-validates the pipeline on the train set with
// time-ordered folds.
func RunEvaluate(ctx context.Context, cfg Config) (*model_selection.CVResult, error) {
	if err := cfg.Validate(CommandEvaluate); err != nil {
		return nil, err
	}
	start := time.Now()
	prep, err := load(ctx, cfg, false)
	if err != nil {
		return nil, err
	}
	res, err := crossValidate(ctx, cfg, prep)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(res.FoldRMSE))
	for i := range labels {
		labels[i] = "fold " + strconv.Itoa(i)
	}
	return res, export(cfg, metrics.RunReport{
		Command:   CommandEvaluate,
		TrainRows: prep.XTrain.NumRows(),
		FoldRMSE:  res.FoldRMSE,
		Elapsed:   time.Since(start),
	}, labels, res.FoldRMSE)
}

// RunTune searches the boosting hyperparameters, scoring each draw by the
// mean cross-validated RMSE.
func RunTune(ctx context.Context, cfg Config) (*tuning.Study, error) {
	if err := cfg.Validate(CommandTune); err != nil {
		return nil, err
	}
	start := time.Now()
	prep, err := load(ctx, cfg, false)
	if err != nil {
		return nil, err
	}

	space := tuning.DefaultSpace()
	study, err := tuning.NewStudy(cfg.Seed)
	if err != nil {
		return nil, err
	}
	objective := func(ctx context.Context, t *tuning.Trial) (float64, error) {
		params, err := space.Suggest(t)
		if err != nil {
			return 0, err
		}
		trialCfg := cfg
		trialCfg.Model.Kind = ModelHGB
		trialCfg.Model.MaxIter = params.MaxIter
		trialCfg.Model.MaxDepth = params.MaxDepth
		trialCfg.Model.LearningRate = params.LearningRate
		res, err := crossValidate(ctx, trialCfg, prep)
		if err != nil {
			return 0, err
		}
		return res.MeanRMSE(), nil
	}
	if err := study.Optimize(ctx, objective, cfg.Trials); err != nil {
		return nil, err
	}

	best, err := study.BestTrial()
	if err != nil {
		return nil, err
	}
	log.GetLoggerWithName("pipeline.run").Info("Best hyperparameters",
		log.HyperParamsKey, tuning.FormatParams(best.Params),
		"best_value", best.Value,
	)

	trials := study.Trials()
	labels := make([]string, len(trials))
	values := make([]float64, len(trials))
	for i, t := range trials {
		labels[i] = strconv.Itoa(t.Number)
		values[i] = t.Value
	}
	return study, export(cfg, metrics.RunReport{
		Command:     CommandTune,
		TrainRows:   prep.XTrain.NumRows(),
		Elapsed:     time.Since(start),
		TrialValues: values,
		BestValue:   best.Value,
		BestParams:  best.Params,
	}, labels, values)
}

func crossValidate(ctx context.Context, cfg Config, prep *Prepared) (*model_selection.CVResult, error) {
	newRegressor := cfg.RegressorFactory()
	newEstimator := func() model_selection.Estimator { return New(newRegressor) }
	return model_selection.CrossValidate(ctx, newEstimator, prep.XTrain, prep.YTrain, model_selection.NewTimeSeriesSplit(cfg.CVSplits))
}

// export writes the optional metrics textfile and chart.
func export(cfg Config, rep metrics.RunReport, labels []string, values []float64) error {
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, rep); err != nil {
			return err
		}
	}
	if cfg.PlotPath != "" && len(values) > 0 {
		title, yLabel := "Cross-validated RMSE per fold", "RMSE"
		if rep.Command == CommandTune {
			title, yLabel = "Mean CV RMSE per trial", "mean RMSE"
		}
		if err := metrics.SaveBarChart(cfg.PlotPath, title, yLabel, labels, values); err != nil {
			return errors.Wrap(err, "export chart")
		}
	}
	return nil
}
