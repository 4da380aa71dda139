package metrics

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestRegressionScores(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		mse     float64
		mae     float64
		r2      float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			yPred: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			mse:   0,
			mae:   0,
			r2:    1,
		},
		{
			name:  "simple case",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			mse:   0.25,
			mae:   0.5,
			r2:    0.8, // 1 - 1.0/5.0
		},
		{
			name:  "worse than mean baseline",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{4, 3, 2, 1}),
			mse:   5,
			mae:   2,
			r2:    -3,
		},
		{
			name:    "dimension mismatch",
			yTrue:   mat.NewVecDense(3, []float64{1, 2, 3}),
			yPred:   mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mse, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			rmse, _ := RMSE(tt.yTrue, tt.yPred)
			mae, _ := MAE(tt.yTrue, tt.yPred)
			r2, err := R2Score(tt.yTrue, tt.yPred)
			if err != nil {
				t.Fatal(err)
			}
			for _, c := range []struct {
				metric    string
				got, want float64
			}{
				{"MSE", mse, tt.mse},
				{"RMSE", rmse, math.Sqrt(tt.mse)},
				{"MAE", mae, tt.mae},
				{"R2", r2, tt.r2},
			} {
				if math.Abs(c.got-c.want) > 1e-10 {
					t.Errorf("%s = %v, want %v", c.metric, c.got, c.want)
				}
			}
		})
	}
}

func TestR2Score_NoVariance(t *testing.T) {
	y := mat.NewVecDense(3, []float64{3, 3, 3})
	_, err := R2Score(y, mat.NewVecDense(3, []float64{2, 3, 4}))
	var ve *errors.ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValueError, got %v", err)
	}
}

func TestMatrixScores(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{10, 20, 30})
	yPred := mat.NewDense(3, 1, []float64{12, 18, 33})

	mse, err := MSEMatrix(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mse-17.0/3.0) > 1e-10 {
		t.Errorf("MSEMatrix = %v", mse)
	}
	rmse, err := RMSEMatrix(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rmse-math.Sqrt(17.0/3.0)) > 1e-10 {
		t.Errorf("RMSEMatrix = %v", rmse)
	}

	if _, err := MSEMatrix(yTrue, mat.NewDense(3, 2, nil)); err == nil {
		t.Error("expected error for non-column prediction")
	}

	s, err := Summarize(mat.NewDense(2, 1, []float64{1, 1}), mat.NewDense(2, 1, []float64{1, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if s.RMSE != math.Sqrt(2) || s.MAE != 1 || !math.IsNaN(s.R2) {
		t.Errorf("Summarize = %+v", s)
	}
}

func TestRunReport_MeanRMSE(t *testing.T) {
	tests := []struct {
		name string
		fold []float64
		want float64
	}{
		{"no folds", nil, 0},
		{"single fold", []float64{0.4}, 0.4},
		{"several folds", []float64{0.5, 0.75, 1}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RunReport{FoldRMSE: tt.fold}.MeanRMSE()
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("MeanRMSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bikecount.prom")
	rep := RunReport{
		Command:     "evaluate",
		TrainRows:   120,
		TestRows:    30,
		FoldRMSE:    []float64{0.5, 0.75},
		Elapsed:     1500 * time.Millisecond,
		TrialValues: []float64{0.7, 0.6},
		BestValue:   0.6,
		BestParams:  map[string]float64{"max_depth": 12},
	}
	if err := WriteTextfile(path, rep); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`bikecount_rows{command="evaluate",set="train"} 120`,
		`bikecount_cv_fold_rmse{command="evaluate",fold="1"} 0.75`,
		`bikecount_cv_rmse_mean{command="evaluate"} 0.625`,
		`bikecount_run_duration_seconds{command="evaluate"} 1.5`,
		`bikecount_tuning_trials_total{command="evaluate"} 2`,
		`bikecount_tuning_best_param{command="evaluate",name="max_depth"} 12`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestSaveBarChart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folds.png")
	if err := SaveBarChart(path, "CV RMSE", "RMSE", []string{"0", "1", "2"}, []float64{0.5, 0.6, 0.55}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("chart file is empty")
	}

	if err := SaveBarChart(filepath.Join(dir, "empty.png"), "", "", nil, nil); err == nil {
		t.Error("expected error for empty chart")
	}
}
