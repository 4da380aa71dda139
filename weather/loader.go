package weather

import (
	"context"
	"time"

	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/geo"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
)

// Loader reads the count and weather files and produces merged datasets.
type Loader struct {
	TrainPath   string
	TestPath    string // optional
	WeatherPath string
	Tables      *dataset.Tables
	// Workers bounds the nearest-station query goroutines; < 1 means one per CPU.
	Workers int
}

// Data is the outcome of Loader.Load.
type Data struct {
	Train *frame.Frame
	Test  *frame.Frame // nil when no test path is configured

	TrainStations *geo.StationMap
	TestStations  *geo.StationMap
}

// Load reads every input and merges the weather onto each dataset. The
// station map of a dataset is built once from its distinct counter
// coordinates. A missing input file is returned as an InputFileError.
func (l *Loader) Load(ctx context.Context) (*Data, error) {
	logger := log.GetLoggerWithName("weather.loader")
	start := time.Now()

	tables := l.Tables
	if tables == nil {
		tables = dataset.DefaultTables()
	}

	obs, err := LoadObservations(l.WeatherPath, tables)
	if err != nil {
		return nil, err
	}
	global, local, err := Split(obs, tables)
	if err != nil {
		return nil, err
	}
	stationSites, err := geo.SitesFromFrame(obs, tables.StationKey, tables.Latitude, tables.Longitude)
	if err != nil {
		return nil, errors.Wrap(err, "weather station sites")
	}

	out := &Data{}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out.Train, out.TrainStations, err = l.loadOne(l.TrainPath, global, local, stationSites, tables, ModeTrain)
	if err != nil {
		return nil, err
	}

	if l.TestPath != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.Test, out.TestStations, err = l.loadOne(l.TestPath, global, local, stationSites, tables, ModeTest)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Datasets ready",
		log.StationsKey, len(stationSites),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (l *Loader) loadOne(path string, global, local *frame.Frame, stationSites []geo.Site, tables *dataset.Tables, mode Mode) (*frame.Frame, *geo.StationMap, error) {
	logger := log.GetLoggerWithName("weather.loader")

	counts, err := dataset.LoadCounts(path, tables)
	if err != nil {
		return nil, nil, err
	}
	counterSites, err := geo.SitesFromFrame(counts, tables.CounterKey, tables.Latitude, tables.Longitude)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s counter sites", mode)
	}
	stations, err := geo.NearestStations(counterSites, stationSites, l.Workers)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s nearest stations", mode)
	}
	if far, ok := stations.Farthest(); ok {
		logger.Info("Farthest station assignment",
			log.DatasetKey, mode.String(),
			log.CounterKey, far.Counter.ID,
			log.StationKey, far.Station.ID,
			log.DistanceKmKey, far.DistanceKM(),
		)
	}

	merged, err := Merge(counts, global, local, stations, tables, mode)
	if err != nil {
		return nil, nil, err
	}
	return merged, stations, nil
}
