package weather

import (
	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/geo"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
)

// Mode selects the row ordering of a merge.
type Mode int

const (
	// ModeTrain sorts the merged rows ascending by date.
	ModeTrain Mode = iota
	// ModeTest restores the original row order of the counts.
	ModeTest
)

func (m Mode) String() string {
	if m == ModeTest {
		return "test"
	}
	return "train"
}

const rowIndexColumn = "__row_index"

// Merge attaches the nearest weather station of every counter, then left
// joins the global table on date and the local table on (date, station).
// Count rows without a weather match keep nulls.
func Merge(counts, global, local *frame.Frame, stations *geo.StationMap, tables *dataset.Tables, mode Mode) (*frame.Frame, error) {
	logger := log.GetLoggerWithName("weather.merger")

	merged := counts
	if mode == ModeTest {
		idx := make([]float64, counts.NumRows())
		for i := range idx {
			idx[i] = float64(i)
		}
		var err error
		if merged, err = merged.With(frame.NewNumerical(rowIndexColumn, idx)); err != nil {
			return nil, errors.Wrap(err, "Merge")
		}
	}

	suffixes := [2]string{tables.CounterSuffix, tables.StationSuffix}
	merged, err := merged.LeftJoin(stations.Frame(tables.CounterKey, tables.StationKey), []string{tables.CounterKey}, suffixes)
	if err != nil {
		return nil, errors.Wrap(err, "Merge station map")
	}
	merged, err = merged.LeftJoin(global, []string{tables.DateKey}, suffixes)
	if err != nil {
		return nil, errors.Wrap(err, "Merge global weather")
	}
	merged, err = merged.LeftJoin(local, []string{tables.DateKey, tables.StationKey}, [2]string{"_x", "_y"})
	if err != nil {
		return nil, errors.Wrap(err, "Merge local weather")
	}

	if mode == ModeTest {
		if merged, err = merged.SortBy(rowIndexColumn); err != nil {
			return nil, errors.Wrap(err, "Merge")
		}
		merged = merged.Drop(rowIndexColumn)
	} else {
		if merged, err = merged.SortBy(tables.DateKey); err != nil {
			return nil, errors.Wrap(err, "Merge")
		}
	}

	unmatched := 0
	if ids, err := merged.Column(tables.StationKey); err == nil {
		unmatched = ids.NullCount()
	}
	logger.Info("Weather merged",
		log.OperationKey, log.OperationMerge,
		log.DatasetKey, mode.String(),
		log.SamplesKey, merged.NumRows(),
		log.ColumnsKey, merged.NumCols(),
		log.UnmatchedRowsKey, unmatched,
	)
	return merged, nil
}
