package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/pipeline"
	"github.com/YuminosukeSato/bikecount/weather/weathertest"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	yaml := "train_path: data/train.parquet\nweather_path: data/weather.csv.gz\ncv_splits: 3\nseed: 42\nmodel:\n  kind: ridge\n  alpha: 0.5\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BIKECOUNT_TRIALS", "7")
	t.Setenv("BIKECOUNT_MODEL_ALPHA", "2.5")

	cfg, err := loadConfig(viper.New(), path)
	if err != nil {
		t.Fatal(err)
	}
	def := pipeline.DefaultConfig()
	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"train_path", cfg.TrainPath, "data/train.parquet"},
		{"weather_path", cfg.WeatherPath, "data/weather.csv.gz"},
		{"cv_splits", cfg.CVSplits, 3},
		{"seed", cfg.Seed, uint64(42)},
		{"trials from env", cfg.Trials, 7},
		{"model.kind", cfg.Model.Kind, pipeline.ModelRidge},
		{"model.alpha from env", cfg.Model.Alpha, 2.5},
		{"default output_path", cfg.OutputPath, def.OutputPath},
		{"default max_iter", cfg.Model.MaxIter, def.Model.MaxIter},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.csv")
	weatherPath := filepath.Join(dir, "weather.csv")
	hours := []time.Time{
		time.Date(2021, 3, 1, 7, 0, 0, 0, time.UTC),
		time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	weathertest.WriteObservations(t, weatherPath, dataset.DefaultTables(), []weathertest.Station{
		{ID: "75114001", Name: "PARIS-MONTSOURIS", Lat: 48.8217, Lon: 2.3378},
		{ID: "75106001", Name: "LUXEMBOURG", Lat: 48.8447, Lon: 2.3325},
	}, hours, false)
	weathertest.WriteCounts(t, train, []weathertest.Counter{
		{ID: "100-south", Lat: 48.8220, Lon: 2.3380},
		{ID: "200-north", Lat: 48.8450, Lon: 2.3330},
	}, hours, true)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{
		"evaluate",
		"--train", train,
		"--weather", weatherPath,
		"--model", "ridge",
		"--cv-splits", "2",
		"--env-file", "",
		"--log-level", "error",
	})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"fold 0: rmse", "fold 1: rmse", "mean rmse"} {
		if !strings.Contains(text, want) {
			t.Errorf("output %q lacks %q", text, want)
		}
	}
}

func TestRootCommand_BadLogFormat(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"evaluate", "--log-format", "xml", "--env-file", ""})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for an unknown log format")
	}
}
