package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/klauspost/compress/gzip"
)

func TestDefaultTables_RenameIsBidirectional(t *testing.T) {
	tables := DefaultTables()
	if len(tables.Rename) != 41 {
		t.Fatalf("rename table has %d entries, want 41", len(tables.Rename))
	}
	if err := tables.Validate(); err != nil {
		t.Fatalf("default tables invalid: %v", err)
	}

	tests := []struct {
		code, name string
	}{
		{"NUM_POSTE", "id_poste"},
		{"AAAAMMJJHH", "date"},
		{"RR1", "precip_1h"},
		{"TCHAUSSEE", "temp_surface"},
		{"TD", "point_rosée"},
		{"INS2", "duree_ensoleillement_tsv"},
	}
	for _, tt := range tests {
		name, ok := tables.NameOf(tt.code)
		if !ok || name != tt.name {
			t.Errorf("NameOf(%s) = %q, %v", tt.code, name, ok)
		}
		code, ok := tables.CodeOf(tt.name)
		if !ok || code != tt.code {
			t.Errorf("CodeOf(%s) = %q, %v", tt.name, code, ok)
		}
	}
	if _, ok := tables.NameOf("XYZ"); ok {
		t.Error("unknown code should not resolve")
	}
}

func TestLoadTables_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	content := "selected_columns: [counter_id, date, precip_1h]\nexcluded_stations: []\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	tables, err := LoadTables(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables.SelectedColumns) != 3 || tables.SelectedColumns[2] != "precip_1h" {
		t.Errorf("selected columns = %v", tables.SelectedColumns)
	}
	if len(tables.ExcludedStations) != 0 {
		t.Errorf("excluded stations = %v", tables.ExcludedStations)
	}
	if tables.Target != "log_bike_count" || len(tables.Rename) != 41 {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoadTables_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, []byte("count_schema: {date: datetime}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadTables(path)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	for _, content := range []string{
		"mean_imputed: [temp_surface, temperature_air]\n",
		"weather_categorical: [NUM_POSTE, STATION]\n",
		"precip_column: rain\n",
	} {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTables(path); !errors.As(err, &ve) || ve.ParamName != "rename" {
			t.Errorf("%q: expected rename ValidationError, got %v", content, err)
		}
	}

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	var ife *errors.InputFileError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InputFileError, got %v", err)
	}
}

const countsCSV = `counter_id,date,latitude,longitude,bike_count,log_bike_count
100007049-102007049,2021-03-01 02:00:00,48.846,2.375,3,1.386
100007049-102007049,2021-03-01 03:00:00,48.846,2.375,,
`

func TestLoadCounts_CSV(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "train.csv")
	if err := os.WriteFile(plain, []byte(countsCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(countsCSV)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	compressed := filepath.Join(dir, "train.csv.gz")
	if err := os.WriteFile(compressed, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			f, err := LoadCounts(path, DefaultTables())
			if err != nil {
				t.Fatal(err)
			}
			if f.NumRows() != 2 {
				t.Fatalf("rows = %d", f.NumRows())
			}
			kinds := f.Kinds()
			if kinds["counter_id"] != frame.Categorical || kinds["date"] != frame.Temporal || kinds["bike_count"] != frame.Numerical {
				t.Fatalf("kinds = %v", kinds)
			}
			date, _ := f.Column("date")
			ts, ok := date.Time(1)
			if !ok || !ts.Equal(time.Date(2021, 3, 1, 3, 0, 0, 0, time.UTC)) {
				t.Errorf("date[1] = %v", ts)
			}
			target, _ := f.Column("log_bike_count")
			if !math.IsNaN(target.Float(1)) {
				t.Error("empty cell should be null")
			}
		})
	}
}

func TestLoadCounts_MissingFile(t *testing.T) {
	_, err := LoadCounts(filepath.Join(t.TempDir(), "nope.parquet"), DefaultTables())
	var ife *errors.InputFileError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InputFileError, got %v", err)
	}
}

func TestWriteSubmission(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSubmission(&buf, []float64{1.5, 0, 3.25}); err != nil {
		t.Fatal(err)
	}
	want := "Id,log_bike_count\n0,1.5\n1,0\n2,3.25\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
