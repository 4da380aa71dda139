package pipeline

import (
	"github.com/YuminosukeSato/bikecount/core/model"
	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/ensemble"
	"github.com/YuminosukeSato/bikecount/linear"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

// Regressor kinds.
const (
	ModelHGB   = "hgb"
	ModelRidge = "ridge"
)

// Commands validated by Config.Validate.
const (
	CommandPredict  = "predict"
	CommandEvaluate = "evaluate"
	CommandTune     = "tune"
)

// ModelConfig selects and parameterises the regressor.
type ModelConfig struct {
	Kind             string  `mapstructure:"kind" yaml:"kind"`
	MaxIter          int     `mapstructure:"max_iter" yaml:"max_iter"`
	MaxDepth         int     `mapstructure:"max_depth" yaml:"max_depth"`
	LearningRate     float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	MaxLeafNodes     int     `mapstructure:"max_leaf_nodes" yaml:"max_leaf_nodes"`
	MinSamplesLeaf   int     `mapstructure:"min_samples_leaf" yaml:"min_samples_leaf"`
	L2Regularization float64 `mapstructure:"l2_regularization" yaml:"l2_regularization"`
	EarlyStopping    string  `mapstructure:"early_stopping" yaml:"early_stopping"`
	RandomState      int     `mapstructure:"random_state" yaml:"random_state"`
	Alpha            float64 `mapstructure:"alpha" yaml:"alpha"`
}

// Config collects everything a run needs. Zero-valued optional paths
// disable the matching output.
type Config struct {
	TrainPath   string `mapstructure:"train_path" yaml:"train_path"`
	TestPath    string `mapstructure:"test_path" yaml:"test_path"`
	WeatherPath string `mapstructure:"weather_path" yaml:"weather_path"`
	TablesPath  string `mapstructure:"tables_path" yaml:"tables_path"`
	OutputPath  string `mapstructure:"output_path" yaml:"output_path"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
	PlotPath    string `mapstructure:"plot" yaml:"plot"`

	Model    ModelConfig `mapstructure:"model" yaml:"model"`
	CVSplits int         `mapstructure:"cv_splits" yaml:"cv_splits"`
	Trials   int         `mapstructure:"trials" yaml:"trials"`
	Seed     uint64      `mapstructure:"seed" yaml:"seed"`
	Workers  int         `mapstructure:"workers" yaml:"workers"`
}

// DefaultConfig returns the configuration of the submitted model.
func DefaultConfig() Config {
	hgb := ensemble.NewHistGradientBoostingRegressor()
	return Config{
		OutputPath: "submission.csv",
		Model: ModelConfig{
			Kind:             ModelHGB,
			MaxIter:          hgb.MaxIter,
			MaxDepth:         hgb.MaxDepth,
			LearningRate:     hgb.LearningRate,
			MaxLeafNodes:     hgb.MaxLeafNodes,
			MinSamplesLeaf:   hgb.MinSamplesLeaf,
			L2Regularization: hgb.L2Regularization,
			EarlyStopping:    hgb.EarlyStopping,
			RandomState:      hgb.RandomState,
			Alpha:            1.0,
		},
		CVSplits: 5,
		Trials:   20,
		Seed:     8,
	}
}

// Validate checks the fields the given command uses.
func (c *Config) Validate(command string) error {
	required := map[string]string{"train_path": c.TrainPath, "weather_path": c.WeatherPath}
	switch command {
	case CommandPredict:
		required["test_path"] = c.TestPath
		required["output_path"] = c.OutputPath
	case CommandEvaluate, CommandTune:
		if c.CVSplits < 2 {
			return errors.NewValidationError("cv_splits", "must be >= 2", c.CVSplits)
		}
		if command == CommandTune && c.Trials < 1 {
			return errors.NewValidationError("trials", "must be >= 1", c.Trials)
		}
	default:
		return errors.NewValidationError("command", "unknown command", command)
	}
	for _, key := range []string{"train_path", "test_path", "weather_path", "output_path"} {
		if v, ok := required[key]; ok && v == "" {
			return errors.NewValidationError(key, "is required", v)
		}
	}

	switch c.Model.Kind {
	case ModelHGB, ModelRidge:
	default:
		return errors.NewValidationError("model.kind", "must be hgb or ridge", c.Model.Kind)
	}
	if c.Model.Kind == ModelRidge && c.Model.Alpha < 0 {
		return errors.NewValidationError("model.alpha", "must be >= 0", c.Model.Alpha)
	}
	return nil
}

// Tables loads the configured tables file, or the defaults.
func (c *Config) Tables() (*dataset.Tables, error) {
	return dataset.LoadTables(c.TablesPath)
}

// RegressorFactory returns a constructor for the configured regressor.
func (c *Config) RegressorFactory() func() model.Regressor {
	m := c.Model
	workers := c.Workers
	if m.Kind == ModelRidge {
		return func() model.Regressor {
			return linear.NewRidge(linear.WithAlpha(m.Alpha), linear.WithWorkers(workers))
		}
	}
	return func() model.Regressor {
		r := ensemble.NewHistGradientBoostingRegressor().
			WithMaxIter(m.MaxIter).
			WithMaxDepth(m.MaxDepth).
			WithLearningRate(m.LearningRate).
			WithRandomState(m.RandomState).
			WithWorkers(workers)
		r.MaxLeafNodes = m.MaxLeafNodes
		r.MinSamplesLeaf = m.MinSamplesLeaf
		r.L2Regularization = m.L2Regularization
		if m.EarlyStopping != "" {
			r.EarlyStopping = m.EarlyStopping
		}
		return r
	}
}
