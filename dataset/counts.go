package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
)

// timestampLayouts are tried in order when parsing temporal CSV cells.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadCounts reads a count file. Parquet files carry their own column kinds;
// CSV files (optionally gzip compressed) take kinds from tables.CountSchema,
// undeclared columns being categorical.
func LoadCounts(path string, tables *Tables) (*frame.Frame, error) {
	logger := log.GetLoggerWithName("dataset.counts")

	var (
		f   *frame.Frame
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		f, err = ReadParquet(path)
	} else {
		f, err = readCountsCSV(path, tables)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Counts loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.SamplesKey, f.NumRows(),
		log.ColumnsKey, f.NumCols(),
	)
	return f, nil
}

func readCountsCSV(path string, tables *Tables) (f *frame.Frame, err error) {
	in, err := OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = errors.NewInputFileError(path, cerr)
		}
	}()

	kinds := make(map[string]frame.Kind, len(tables.CountSchema))
	for name, k := range tables.CountSchema {
		kind, err := ParseKind(k)
		if err != nil {
			return nil, err
		}
		kinds[name] = kind
	}

	header, records, err := ReadDelimited(in, ',')
	if err != nil {
		return nil, errors.NewInputFileError(path, err)
	}

	cols := make([]*frame.Series, 0, len(header))
	for j, name := range header {
		kind, ok := kinds[name]
		if !ok {
			kind = frame.Categorical
		}
		s, err := ParseColumn(name, kind, records, j, timestampLayouts)
		if err != nil {
			return nil, errors.NewInputFileError(path, err)
		}
		cols = append(cols, s)
	}
	return frame.New(cols...)
}

// ReadDelimited returns the header and the data records of a delimited stream.
func ReadDelimited(r io.Reader, sep rune) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, errors.ErrEmptyData
		}
		return nil, nil, errors.Wrap(err, "read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read records")
	}
	return header, records, nil
}

// ParseColumn converts column j of records into a series of the given kind.
// Empty cells are nulls.
func ParseColumn(name string, kind frame.Kind, records [][]string, j int, layouts []string) (*frame.Series, error) {
	n := len(records)
	switch kind {
	case frame.Numerical:
		vals := make([]float64, n)
		for i, rec := range records {
			cell := strings.TrimSpace(rec[j])
			if cell == "" {
				vals[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "column %s row %d", name, i+1)
			}
			vals[i] = v
		}
		return frame.NewNumerical(name, vals), nil

	case frame.Temporal:
		vals := make([]time.Time, n)
		valid := make([]bool, n)
		for i, rec := range records {
			cell := strings.TrimSpace(rec[j])
			if cell == "" {
				continue
			}
			ts, err := parseTime(cell, layouts)
			if err != nil {
				return nil, errors.Wrapf(err, "column %s row %d", name, i+1)
			}
			vals[i], valid[i] = ts, true
		}
		return frame.NewTemporal(name, vals, valid), nil

	default:
		vals := make([]string, n)
		valid := make([]bool, n)
		for i, rec := range records {
			cell := strings.TrimSpace(rec[j])
			vals[i], valid[i] = cell, cell != ""
		}
		return frame.NewCategorical(name, vals, valid), nil
	}
}

func parseTime(cell string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, cell, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.Newf("unrecognised timestamp %q", cell)
}
