// Package weathertest writes small observation and count files for tests.
package weathertest

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/klauspost/compress/gzip"
)

// Station is a weather station of a fixture file.
type Station struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Counter is a counting station of a fixture file.
type Counter struct {
	ID  string
	Lat float64
	Lon float64
}

// EmptyCode is an extra column left empty on every row.
const EmptyCode = "EMPTY_COL"

// Precipitation cycles through the rain bands by hour index.
var Precipitation = []float64{0, 1, 3, 8}

// Observations renders a ';'-separated observation file with one row per
// station and hour. Every code of the rename table is filled except TCHAUSSEE
// and RR1, which are left empty for the second station's first hour.
func Observations(tables *dataset.Tables, stations []Station, hours []time.Time) []byte {
	codes := append(tables.Codes(), EmptyCode)
	var b bytes.Buffer
	b.WriteString(strings.Join(codes, ";"))
	b.WriteByte('\n')

	for si, st := range stations {
		for hi, h := range hours {
			row := make([]string, len(codes))
			for ci, code := range codes {
				row[ci] = cell(tables, code, st, si, hi, h)
			}
			b.WriteString(strings.Join(row, ";"))
			b.WriteByte('\n')
		}
	}
	return b.Bytes()
}

func cell(tables *dataset.Tables, code string, st Station, si, hi int, h time.Time) string {
	switch code {
	case EmptyCode:
		return ""
	case "NUM_POSTE":
		return st.ID
	case "NOM_USUEL":
		return st.Name
	case "LAT":
		return fmt.Sprint(st.Lat)
	case "LON":
		return fmt.Sprint(st.Lon)
	case tables.WeatherDateCode:
		return h.UTC().Format("2006010215")
	case "TCHAUSSEE", "RR1":
		if si == 1 && hi == 0 {
			return ""
		}
		if code == "RR1" {
			return fmt.Sprint(Precipitation[hi%len(Precipitation)])
		}
	}
	return fmt.Sprintf("%.1f", float64(si*10+hi)+0.5)
}

// WriteObservations writes Observations to path, gzip compressed when gz is true.
func WriteObservations(t testing.TB, path string, tables *dataset.Tables, stations []Station, hours []time.Time, gz bool) {
	t.Helper()
	content := Observations(tables, stations, hours)
	if gz {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(content); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		content = buf.Bytes()
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
}

// WriteCounts writes a count CSV with one row per counter and hour. A marker
// column records the row order. The target columns are written when withTarget.
func WriteCounts(t testing.TB, path string, counters []Counter, hours []time.Time, withTarget bool) {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("counter_id,marker,date,latitude,longitude")
	if withTarget {
		b.WriteString(",bike_count,log_bike_count")
	}
	b.WriteByte('\n')
	row := 0
	for hi, h := range hours {
		for ci, c := range counters {
			fmt.Fprintf(&b, "%s,row%d,%s,%v,%v", c.ID, row, h.UTC().Format("2006-01-02 15:04:05"), c.Lat, c.Lon)
			if withTarget {
				count := float64(10*ci + hi)
				fmt.Fprintf(&b, ",%v,%v", count, math.Log1p(count))
			}
			b.WriteByte('\n')
			row++
		}
	}
	if err := os.WriteFile(path, b.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}
