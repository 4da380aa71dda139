package model_selection

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

func TestTimeSeriesSplit(t *testing.T) {
	tests := []struct {
		name      string
		split     TimeSeriesSplit
		n         int
		wantTrain [][]int
		wantTest  [][]int
		wantErr   bool
	}{
		{
			name:      "default test size",
			split:     TimeSeriesSplit{NSplits: 3},
			n:         10,
			wantTrain: [][]int{{0, 1, 2, 3}, {0, 1, 2, 3, 4, 5}, {0, 1, 2, 3, 4, 5, 6, 7}},
			wantTest:  [][]int{{4, 5}, {6, 7}, {8, 9}},
		},
		{
			name:      "gap and max train size",
			split:     TimeSeriesSplit{NSplits: 2, Gap: 1, MaxTrainSize: 2},
			n:         9,
			wantTrain: [][]int{{0, 1}, {3, 4}},
			wantTest:  [][]int{{3, 4, 5}, {6, 7, 8}},
		},
		{
			name:    "more folds than samples",
			split:   TimeSeriesSplit{NSplits: 5},
			n:       5,
			wantErr: true,
		},
		{
			name:    "single split",
			split:   TimeSeriesSplit{NSplits: 1},
			n:       5,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folds, err := tt.split.Split(tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Split() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(folds) != len(tt.wantTest) {
				t.Fatalf("got %d folds, want %d", len(folds), len(tt.wantTest))
			}
			for k, f := range folds {
				if !reflect.DeepEqual(f.TrainIndices, tt.wantTrain[k]) || !reflect.DeepEqual(f.TestIndices, tt.wantTest[k]) {
					t.Errorf("fold %d = %v / %v", k, f.TrainIndices, f.TestIndices)
				}
			}
		})
	}
}

func TestTimeSeriesSplit_TestAfterTrain(t *testing.T) {
	folds, err := NewTimeSeriesSplit(5).Split(103)
	if err != nil {
		t.Fatal(err)
	}
	for k, f := range folds {
		if f.TrainIndices[len(f.TrainIndices)-1] >= f.TestIndices[0] {
			t.Errorf("fold %d trains on rows after its test block", k)
		}
	}
	last := folds[len(folds)-1].TestIndices
	if last[len(last)-1] != 102 {
		t.Errorf("last test row = %d, want 102", last[len(last)-1])
	}
}

// meanEstimator predicts the training mean.
type meanEstimator struct {
	mean float64
	fits *int
}

func (m *meanEstimator) Fit(_ *frame.Frame, y []float64) error {
	*m.fits++
	var s float64
	for _, v := range y {
		s += v
	}
	m.mean = s / float64(len(y))
	return nil
}

func (m *meanEstimator) Predict(x *frame.Frame) ([]float64, error) {
	out := make([]float64, x.NumRows())
	for i := range out {
		out[i] = m.mean
	}
	return out, nil
}

func TestCrossValidate(t *testing.T) {
	x := frame.MustNew(frame.NewNumerical("f", make([]float64, 6)))
	y := []float64{0, 0, 0, 3, 3, 6}
	fits := 0
	newEstimator := func() Estimator { return &meanEstimator{fits: &fits} }

	res, err := CrossValidate(context.Background(), newEstimator, x, y, &TimeSeriesSplit{NSplits: 2})
	if err != nil {
		t.Fatal(err)
	}
	// test size 2: fold 0 trains on rows 0-1 (mean 0) and tests rows 2-3;
	// fold 1 trains on rows 0-3 (mean 0.75) and tests rows 4-5
	want := []float64{math.Sqrt(4.5), math.Sqrt((2.25*2.25 + 5.25*5.25) / 2)}
	if fits != 2 {
		t.Errorf("estimator fitted %d times, want 2", fits)
	}
	for k := range want {
		if math.Abs(res.FoldRMSE[k]-want[k]) > 1e-12 {
			t.Errorf("fold %d RMSE = %v, want %v", k, res.FoldRMSE[k], want[k])
		}
	}
	if math.Abs(res.MeanRMSE()-(want[0]+want[1])/2) > 1e-12 {
		t.Errorf("mean RMSE = %v", res.MeanRMSE())
	}
	if !reflect.DeepEqual(res.TrainRows, []int{2, 4}) {
		t.Errorf("train rows = %v", res.TrainRows)
	}
}

func TestCrossValidate_Cancelled(t *testing.T) {
	x := frame.MustNew(frame.NewNumerical("f", make([]float64, 6)))
	y := make([]float64, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fits := 0
	_, err := CrossValidate(ctx, func() Estimator { return &meanEstimator{fits: &fits} }, x, y, &TimeSeriesSplit{NSplits: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fits != 0 {
		t.Errorf("estimator fitted %d times after cancellation", fits)
	}
}

func TestCrossValidate_LengthMismatch(t *testing.T) {
	x := frame.MustNew(frame.NewNumerical("f", make([]float64, 6)))
	var de *errors.DimensionError
	_, err := CrossValidate(context.Background(), nil, x, make([]float64, 5), &TimeSeriesSplit{NSplits: 2})
	if !errors.As(err, &de) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
}
