// Package bikecount forecasts hourly bike counts at Paris counting stations
// from counter history and Météo-France hourly weather observations.
//
// The module is organised as a batch pipeline:
//
//   - dataset reads the count files (parquet or csv), the weather file and
//     the rename and feature tables.
//   - geo assigns every counter its nearest weather station.
//   - weather builds the global and local weather frames and merges them
//     onto the counts.
//   - features imputes missing weather values, selects the model columns
//     and adds the rain indicators.
//   - preprocessing encodes dates, one-hot encodes categories and scales
//     numerical columns.
//   - ensemble and linear provide the regressors, model_selection the
//     time-ordered cross-validation and tuning the hyperparameter search.
//   - pipeline ties the stages together and cmd/bikecount exposes them as
//     the predict, evaluate and tune commands.
//
// # Quick Start
//
//	cfg := pipeline.DefaultConfig()
//	cfg.TrainPath = "data/train.parquet"
//	cfg.TestPath = "data/final_test.parquet"
//	cfg.WeatherPath = "data/H_75_previous-2020-2022.csv.gz"
//
//	res, err := pipeline.RunPredict(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("wrote %d predictions\n", len(res.Predictions))
//
// The same run from the command line:
//
//	bikecount predict --train data/train.parquet --test data/final_test.parquet \
//	    --weather data/H_75_previous-2020-2022.csv.gz --output submission.csv
//
// Every option can also come from a YAML file passed with --config or from
// BIKECOUNT_* environment variables, e.g. BIKECOUNT_MODEL_MAX_ITER=1500.
package bikecount
