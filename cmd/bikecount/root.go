package main

import (
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/bikecount/pipeline"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
)

// EnvPrefix prefixes every environment override, e.g. BIKECOUNT_MODEL_MAX_ITER.
const EnvPrefix = "BIKECOUNT"

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"train":        "train_path",
	"test":         "test_path",
	"weather":      "weather_path",
	"tables":       "tables_path",
	"output":       "output_path",
	"metrics-file": "metrics_file",
	"plot":         "plot",
	"model":        "model.kind",
	"cv-splits":    "cv_splits",
	"trials":       "trials",
	"seed":         "seed",
	"workers":      "workers",
}

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}
	def := pipeline.DefaultConfig()

	root := &cobra.Command{
		Use:           "bikecount",
		Short:         "Forecast hourly bike counts from counter and weather data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.setupLogging()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "console", "log format (console or json)")
	pf.String("train", def.TrainPath, "training counts (parquet or csv)")
	pf.String("test", def.TestPath, "test counts (parquet or csv)")
	pf.String("weather", def.WeatherPath, "hourly weather observations (csv, optionally gzipped)")
	pf.String("tables", def.TablesPath, "YAML overlay of the rename and feature tables")
	pf.String("output", def.OutputPath, "submission file written by predict")
	pf.String("metrics-file", def.MetricsFile, "Prometheus textfile written after the run")
	pf.String("plot", def.PlotPath, "PNG chart of fold or trial scores")
	pf.String("model", def.Model.Kind, "regressor: hgb or ridge")
	pf.Int("cv-splits", def.CVSplits, "number of time-ordered folds")
	pf.Int("trials", def.Trials, "number of tuning trials")
	pf.Uint64("seed", def.Seed, "tuning sampler seed")
	pf.Int("workers", def.Workers, "worker goroutines, < 1 means one per CPU")

	for flag, key := range flagKeys {
		if err := opts.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(newPredictCmd(opts), newEvaluateCmd(opts), newTuneCmd(opts))
	return root
}

func (o *rootOptions) setupLogging() error {
	level := log.ToLogLevel(o.logLevel)
	switch o.logFormat {
	case "json":
		log.SetProvider(log.NewZerologProvider(level))
	case "console", "":
		log.SetProvider(log.NewConsoleProvider(level))
	default:
		return errors.NewValidationError("log-format", "must be console or json", o.logFormat)
	}
	return nil
}

// config resolves the run configuration. Precedence from lowest to highest
// is defaults, the YAML file, the environment and explicit flags.
func (o *rootOptions) config() (pipeline.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return pipeline.Config{}, errors.Wrapf(err, "load %s", o.envFile)
		}
	}
	return loadConfig(o.v, o.configPath)
}

func loadConfig(v *viper.Viper, path string) (pipeline.Config, error) {
	setDefaults(v, pipeline.DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return pipeline.Config{}, errors.NewInputFileError(path, err)
		}
	}

	var cfg pipeline.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return pipeline.Config{}, errors.Wrap(err, "decode configuration")
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides reach
// Unmarshal even when no file or flag mentions them.
func setDefaults(v *viper.Viper, c pipeline.Config) {
	v.SetDefault("train_path", c.TrainPath)
	v.SetDefault("test_path", c.TestPath)
	v.SetDefault("weather_path", c.WeatherPath)
	v.SetDefault("tables_path", c.TablesPath)
	v.SetDefault("output_path", c.OutputPath)
	v.SetDefault("metrics_file", c.MetricsFile)
	v.SetDefault("plot", c.PlotPath)
	v.SetDefault("cv_splits", c.CVSplits)
	v.SetDefault("trials", c.Trials)
	v.SetDefault("seed", c.Seed)
	v.SetDefault("workers", c.Workers)

	m := c.Model
	v.SetDefault("model.kind", m.Kind)
	v.SetDefault("model.max_iter", m.MaxIter)
	v.SetDefault("model.max_depth", m.MaxDepth)
	v.SetDefault("model.learning_rate", m.LearningRate)
	v.SetDefault("model.max_leaf_nodes", m.MaxLeafNodes)
	v.SetDefault("model.min_samples_leaf", m.MinSamplesLeaf)
	v.SetDefault("model.l2_regularization", m.L2Regularization)
	v.SetDefault("model.early_stopping", m.EarlyStopping)
	v.SetDefault("model.random_state", m.RandomState)
	v.SetDefault("model.alpha", m.Alpha)
}
