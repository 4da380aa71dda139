package pipeline

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/features"
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
)

// Prepared holds the model inputs derived from merged datasets.
type Prepared struct {
	XTrain *frame.Frame
	YTrain []float64
	XTest  *frame.Frame // nil without a test set
}

// Prepare imputes, selects and adds the rain indicators to the merged
// train and test frames, then splits the target off the train frame. test
// may be nil.
func Prepare(train, test *frame.Frame, tables *dataset.Tables) (*Prepared, error) {
	out := &Prepared{}

	xTrain, err := prepareOne(train, tables, false)
	if err != nil {
		return nil, errors.Wrap(err, "prepare train")
	}
	target, err := xTrain.Column(tables.Target)
	if err != nil {
		return nil, errors.Wrap(err, "prepare train")
	}
	out.YTrain = target.Floats()
	for i, v := range out.YTrain {
		if math.IsNaN(v) {
			return nil, errors.NewValueError("Prepare", fmt.Sprintf("target %s is missing at row %d", tables.Target, i))
		}
	}
	out.XTrain = xTrain.Drop(tables.Target)

	if test != nil {
		if out.XTest, err = prepareOne(test, tables, true); err != nil {
			return nil, errors.Wrap(err, "prepare test")
		}
	}

	log.GetLoggerWithName("pipeline.prepare").Info("Features prepared",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, out.XTrain.NumRows(),
		log.ColumnsKey, out.XTrain.Names(),
	)
	return out, nil
}

func prepareOne(f *frame.Frame, tables *dataset.Tables, testSet bool) (*frame.Frame, error) {
	imputed, err := features.NewNullImputer(tables).Transform(f)
	if err != nil {
		return nil, err
	}
	selected, err := features.Select(imputed, tables, testSet)
	if err != nil {
		return nil, err
	}
	return features.AddRainIndicators(selected, tables.PrecipColumn)
}
