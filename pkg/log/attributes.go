package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator or transformer.
	// Examples: "HistGradientBoostingRegressor", "ColumnTransformer"
	ModelNameKey = "model.name"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "merge", "load"
	OperationKey = "ml.operation"

	// PhaseKey indicates the phase of the run.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnsKey  = "data.columns"
	ColumnKey   = "data.column"
	DatasetKey  = "data.set"
	PathKey     = "data.path"
)

// Geography.
const (
	CounterKey       = "geo.counter"
	StationKey       = "geo.station"
	DistanceKmKey    = "geo.distance_km"
	StationsKey      = "geo.stations"
	CountersKey      = "geo.counters"
	UnmatchedRowsKey = "geo.unmatched_rows"
)

// Performance and evaluation.
const (
	DurationMsKey      = "perf.duration_ms"
	DurationSecondsKey = "perf.duration_seconds"
	LossKey            = "metrics.loss"
	RMSEKey            = "metrics.rmse"
	FoldKey            = "cv.fold"
	TrialKey           = "tuning.trial"
	IterationKey       = "training.iteration"
	HyperParamsKey     = "model.hyperparams"
	RandomSeedKey      = "config.random_seed"
)

// Error context.
const (
	ErrorKey      = "error"
	StacktraceKey = "stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationLoad      = "load"
	OperationMerge     = "merge"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
	PhaseTuning        = "tuning"
)
