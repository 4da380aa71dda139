package weather

import (
	"context"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/geo"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/weather/weathertest"
)

var (
	fixtureStations = []weathertest.Station{
		{ID: "75114001", Name: "PARIS-MONTSOURIS", Lat: 48.8217, Lon: 2.3378},
		{ID: "75106001", Name: "LUXEMBOURG", Lat: 48.8447, Lon: 2.3325},
		{ID: "75114007", Name: "MONTSOURIS-BIS", Lat: 48.8218, Lon: 2.3379},
	}
	fixtureHours = []time.Time{
		time.Date(2021, 3, 1, 7, 0, 0, 0, time.UTC),
		time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC),
	}
)

func loadFixture(t *testing.T, gz bool) *frame.Frame {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.csv")
	weathertest.WriteObservations(t, path, dataset.DefaultTables(), fixtureStations, fixtureHours, gz)
	obs, err := LoadObservations(path, dataset.DefaultTables())
	if err != nil {
		t.Fatal(err)
	}
	return obs
}

func categoricalValues(t *testing.T, f *frame.Frame, name string) []string {
	t.Helper()
	s, err := f.Column(name)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, s.Len())
	for i := range out {
		out[i], _ = s.Str(i)
	}
	return out
}

func TestLoadObservations(t *testing.T) {
	for _, gz := range []bool{false, true} {
		obs := loadFixture(t, gz)

		if obs.Has(weathertest.EmptyCode) {
			t.Error("empty column should be dropped")
		}
		if obs.NumCols() != 41 {
			t.Errorf("columns = %d, want 41", obs.NumCols())
		}
		// 75114007 is excluded: 2 stations × 3 hours remain.
		if obs.NumRows() != 6 {
			t.Fatalf("rows = %d, want 6", obs.NumRows())
		}
		for _, id := range categoricalValues(t, obs, "id_poste") {
			if id == "75114007" {
				t.Fatal("excluded station still present")
			}
		}

		kinds := obs.Kinds()
		if kinds["id_poste"] != frame.Categorical || kinds["nom_poste"] != frame.Categorical {
			t.Error("station id and name should be categorical")
		}
		if kinds["date"] != frame.Temporal || kinds["precip_1h"] != frame.Numerical {
			t.Error("unexpected kinds for date/precip_1h")
		}
		date, _ := obs.Column("date")
		if ts, _ := date.Time(1); !ts.Equal(fixtureHours[1]) {
			t.Errorf("date[1] = %v", ts)
		}
		temp, _ := obs.Column("temp_surface")
		if !math.IsNaN(temp.Float(3)) {
			t.Error("empty cell should load as null")
		}
	}
}

func TestLoadObservations_MissingCode(t *testing.T) {
	tables := dataset.DefaultTables()
	tables.Rename = append(tables.Rename, dataset.CodeName{Code: "NOPE", Name: "nope"})

	path := filepath.Join(t.TempDir(), "weather.csv")
	weathertest.WriteObservations(t, path, dataset.DefaultTables(), fixtureStations, fixtureHours, false)

	_, err := LoadObservations(path, tables)
	var cnf *errors.ColumnNotFoundError
	if !errors.As(err, &cnf) || cnf.Column != "NOPE" {
		t.Fatalf("expected ColumnNotFoundError for NOPE, got %v", err)
	}

	_, err = LoadObservations(filepath.Join(t.TempDir(), "missing.csv"), tables)
	var ife *errors.InputFileError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InputFileError, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	tables := dataset.DefaultTables()
	global, local, err := Split(loadFixture(t, false), tables)
	if err != nil {
		t.Fatal(err)
	}
	if global.NumRows() != 3 {
		t.Errorf("global rows = %d, want 3", global.NumRows())
	}
	if !reflect.DeepEqual(global.Names(), tables.GlobalColumns) {
		t.Errorf("global columns = %v", global.Names())
	}
	for _, name := range categoricalValues(t, global, "nom_poste") {
		if name != "PARIS-MONTSOURIS" {
			t.Fatalf("global row from %s", name)
		}
	}
	if local.NumRows() != 6 {
		t.Errorf("local rows = %d, want 6", local.NumRows())
	}
	wantLocal := append([]string{"id_poste", "date"}, tables.LocalColumns...)
	if !reflect.DeepEqual(local.Names(), wantLocal) {
		t.Errorf("local columns = %v", local.Names())
	}
}

func counts(markers, counters []string, hours []int) *frame.Frame {
	dates := make([]time.Time, len(hours))
	lats := make([]float64, len(hours))
	lons := make([]float64, len(hours))
	for i, h := range hours {
		dates[i] = time.Date(2021, 3, 1, h, 0, 0, 0, time.UTC)
		lats[i], lons[i] = 48.83, 2.33
	}
	return frame.MustNew(
		frame.NewCategorical("counter_id", counters, nil),
		frame.NewCategorical("marker", markers, nil),
		frame.NewTemporal("date", dates, nil),
		frame.NewNumerical("latitude", lats),
		frame.NewNumerical("longitude", lons),
	)
}

func stationMap(t *testing.T) *geo.StationMap {
	t.Helper()
	m, err := geo.NearestStations(
		[]geo.Site{{ID: "north", Lat: 48.85, Lon: 2.33}, {ID: "south", Lat: 48.82, Lon: 2.33}},
		[]geo.Site{{ID: "75114001", Lat: 48.8217, Lon: 2.3378}, {ID: "75106001", Lat: 48.8447, Lon: 2.3325}},
		1,
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMerge_TestModeKeepsRowOrder(t *testing.T) {
	tables := dataset.DefaultTables()
	global, local, err := Split(loadFixture(t, false), tables)
	if err != nil {
		t.Fatal(err)
	}

	in := counts(
		[]string{"A", "B", "C", "D"},
		[]string{"south", "north", "unknown", "south"},
		[]int{9, 7, 8, 23},
	)
	out, err := Merge(in, global, local, stationMap(t), tables, ModeTest)
	if err != nil {
		t.Fatal(err)
	}
	if got := categoricalValues(t, out, "marker"); !reflect.DeepEqual(got, []string{"A", "B", "C", "D"}) {
		t.Fatalf("markers = %v", got)
	}
	if out.Has(rowIndexColumn) {
		t.Error("row index should be dropped")
	}
	for _, name := range []string{"latitude_counter", "latitude_poste", "temp_surface", "precip_1h"} {
		if !out.Has(name) {
			t.Errorf("missing column %s in %v", name, out.Names())
		}
	}

	ids, _ := out.Column("id_poste")
	if v, _ := ids.Str(0); v != "75114001" {
		t.Errorf("A station = %q", v)
	}
	if v, _ := ids.Str(1); v != "75106001" {
		t.Errorf("B station = %q", v)
	}
	if !ids.IsNull(2) {
		t.Error("unknown counter should have a null station")
	}

	precip, _ := out.Column("precip_1h")
	// A: reference station at 09:00 (hour index 2).
	if got := precip.Float(0); got != weathertest.Precipitation[2] {
		t.Errorf("A precip = %v", got)
	}
	// B: second station at 07:00 is empty in the fixture.
	if !math.IsNaN(precip.Float(1)) {
		t.Errorf("B precip = %v, want null", precip.Float(1))
	}
	// D: no weather at 23:00.
	if !math.IsNaN(precip.Float(3)) {
		t.Errorf("D precip = %v, want null", precip.Float(3))
	}
}

func TestMerge_TrainModeSortsByDate(t *testing.T) {
	tables := dataset.DefaultTables()
	global, local, err := Split(loadFixture(t, false), tables)
	if err != nil {
		t.Fatal(err)
	}
	in := counts(
		[]string{"A", "B", "C", "D"},
		[]string{"south", "north", "south", "north"},
		[]int{9, 7, 8, 7},
	)
	out, err := Merge(in, global, local, stationMap(t), tables, ModeTrain)
	if err != nil {
		t.Fatal(err)
	}
	if got := categoricalValues(t, out, "marker"); !reflect.DeepEqual(got, []string{"B", "D", "C", "A"}) {
		t.Fatalf("markers = %v", got)
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	tables := dataset.DefaultTables()
	weatherPath := filepath.Join(dir, "weather.csv.gz")
	trainPath := filepath.Join(dir, "train.csv")
	testPath := filepath.Join(dir, "test.csv")

	counters := []weathertest.Counter{
		{ID: "north", Lat: 48.85, Lon: 2.33},
		{ID: "south", Lat: 48.82, Lon: 2.33},
	}
	weathertest.WriteObservations(t, weatherPath, tables, fixtureStations, fixtureHours, true)
	weathertest.WriteCounts(t, trainPath, counters, fixtureHours, true)
	weathertest.WriteCounts(t, testPath, counters[:1], fixtureHours, false)

	l := &Loader{TrainPath: trainPath, TestPath: testPath, WeatherPath: weatherPath, Tables: tables, Workers: 2}
	data, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if data.Train.NumRows() != 6 || data.Test.NumRows() != 3 {
		t.Fatalf("rows train=%d test=%d", data.Train.NumRows(), data.Test.NumRows())
	}
	if data.TrainStations.Len() != 2 || data.TestStations.Len() != 1 {
		t.Fatalf("station maps: train=%d test=%d", data.TrainStations.Len(), data.TestStations.Len())
	}
	if got := categoricalValues(t, data.Test, "marker"); !reflect.DeepEqual(got, []string{"row0", "row1", "row2"}) {
		t.Fatalf("test order = %v", got)
	}

	l.TrainPath = filepath.Join(dir, "missing.csv")
	_, err = l.Load(context.Background())
	var ife *errors.InputFileError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InputFileError, got %v", err)
	}
}

func TestLoader_Cancelled(t *testing.T) {
	dir := t.TempDir()
	weatherPath := filepath.Join(dir, "weather.csv")
	weathertest.WriteObservations(t, weatherPath, dataset.DefaultTables(), fixtureStations, fixtureHours, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &Loader{TrainPath: filepath.Join(dir, "train.csv"), WeatherPath: weatherPath}
	if _, err := l.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
