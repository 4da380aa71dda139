// Package weather loads Météo-France hourly observations and merges them onto
// bike counts through the nearest weather station of each counter.
package weather

import (
	"strings"

	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
)

// DateLayout is the AAAAMMJJHH observation timestamp, in UTC.
const DateLayout = "2006010215"

// LoadObservations reads a ';'-separated observation file (gzip detected
// automatically). Columns empty across the whole file are dropped, the
// remaining ones are projected onto the rename table and renamed, and rows of
// excluded stations are removed. A code of the rename table missing from the
// file is an error.
func LoadObservations(path string, tables *dataset.Tables) (obs *frame.Frame, err error) {
	logger := log.GetLoggerWithName("weather.observations")

	in, err := dataset.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = errors.NewInputFileError(path, cerr)
		}
	}()

	header, records, err := dataset.ReadDelimited(in, ';')
	if err != nil {
		return nil, errors.NewInputFileError(path, err)
	}

	position := make(map[string]int, len(header))
	present := make([]string, 0, len(header))
	for j, code := range header {
		if columnEmpty(records, j) {
			continue
		}
		position[code] = j
		present = append(present, code)
	}

	categorical := make(map[string]bool, len(tables.WeatherCategorical))
	for _, code := range tables.WeatherCategorical {
		categorical[code] = true
	}

	cols := make([]*frame.Series, 0, len(tables.Rename))
	for _, entry := range tables.Rename {
		j, ok := position[entry.Code]
		if !ok {
			return nil, errors.NewColumnNotFoundError("LoadObservations", entry.Code, present)
		}
		kind := frame.Numerical
		switch {
		case entry.Code == tables.WeatherDateCode:
			kind = frame.Temporal
		case categorical[entry.Code]:
			kind = frame.Categorical
		}
		s, err := dataset.ParseColumn(entry.Name, kind, records, j, []string{DateLayout})
		if err != nil {
			return nil, errors.NewInputFileError(path, err)
		}
		cols = append(cols, s)
	}
	obs, err = frame.New(cols...)
	if err != nil {
		return nil, errors.Wrap(err, "LoadObservations")
	}

	obs, err = excludeStations(obs, tables)
	if err != nil {
		return nil, err
	}

	logger.Info("Weather observations loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.SamplesKey, obs.NumRows(),
		log.ColumnsKey, obs.NumCols(),
		"dropped_empty_columns", len(header)-len(present),
	)
	return obs, nil
}

func columnEmpty(records [][]string, j int) bool {
	for _, rec := range records {
		if strings.TrimSpace(rec[j]) != "" {
			return false
		}
	}
	return true
}

func excludeStations(obs *frame.Frame, tables *dataset.Tables) (*frame.Frame, error) {
	if len(tables.ExcludedStations) == 0 {
		return obs, nil
	}
	ids, err := obs.Column(tables.StationKey)
	if err != nil {
		return nil, errors.Wrap(err, "exclude stations")
	}
	excluded := make(map[string]bool, len(tables.ExcludedStations))
	for _, id := range tables.ExcludedStations {
		excluded[id] = true
	}
	return obs.Filter(func(i int) bool {
		id, ok := ids.Str(i)
		return !ok || !excluded[id]
	}), nil
}

// Split separates observations into the global table (reference station rows
// restricted to the city-wide attributes) and the local table (every station,
// restricted to the station key, the date and the local attributes).
func Split(obs *frame.Frame, tables *dataset.Tables) (global, local *frame.Frame, err error) {
	ids, err := obs.Column(tables.StationKey)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Split")
	}
	reference := obs.Filter(func(i int) bool {
		id, ok := ids.Str(i)
		return ok && id == tables.ReferenceStation
	})
	global, err = reference.Select(tables.GlobalColumns...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Split global")
	}

	localCols := append([]string{tables.StationKey, tables.DateKey}, tables.LocalColumns...)
	local, err = obs.Select(localCols...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Split local")
	}
	return global, local, nil
}
