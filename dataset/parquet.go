package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/schema"
)

const parquetBatchSize = 8192

// columnBuffer accumulates one parquet leaf column across row groups.
type columnBuffer struct {
	name  string
	kind  frame.Kind
	unit  time.Duration
	str   []string
	num   []float64
	ts    []time.Time
	valid []bool
}

func (b *columnBuffer) series() *frame.Series {
	switch b.kind {
	case frame.Categorical:
		return frame.NewCategorical(b.name, b.str, b.valid)
	case frame.Temporal:
		return frame.NewTemporal(b.name, b.ts, b.valid)
	default:
		return frame.NewNumerical(b.name, b.num)
	}
}

// ReadParquet reads a flat parquet file into a frame. BYTE_ARRAY columns are
// categorical, INT64 timestamps temporal, other numeric types numerical.
// Pandas index columns and unsupported physical types are skipped.
func ReadParquet(path string) (*frame.Frame, error) {
	logger := log.GetLoggerWithName("dataset.parquet")

	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.NewInputFileError(path, err)
	}
	defer pf.Close()

	sc := pf.MetaData().Schema
	buffers := make([]*columnBuffer, sc.NumColumns())
	for i := 0; i < sc.NumColumns(); i++ {
		col := sc.Column(i)
		if strings.HasPrefix(col.Name(), "__index_level_") {
			continue
		}
		b, ok := newColumnBuffer(col)
		if !ok {
			logger.Warn("Skipping unsupported parquet column",
				log.ColumnKey, col.Name(),
				"physical_type", fmt.Sprint(col.PhysicalType()),
			)
			continue
		}
		buffers[i] = b
	}

	for rg := 0; rg < pf.NumRowGroups(); rg++ {
		rgr := pf.RowGroup(rg)
		numRows := int(rgr.NumRows())
		for i, b := range buffers {
			if b == nil {
				continue
			}
			chunk, err := rgr.Column(i)
			if err != nil {
				return nil, errors.NewInputFileError(path, err)
			}
			maxDef := sc.Column(i).MaxDefinitionLevel()
			if err := b.read(chunk, numRows, maxDef); err != nil {
				return nil, errors.NewInputFileError(path, errors.Wrapf(err, "column %s", b.name))
			}
		}
	}

	cols := make([]*frame.Series, 0, len(buffers))
	for _, b := range buffers {
		if b != nil {
			cols = append(cols, b.series())
		}
	}
	f, err := frame.New(cols...)
	if err != nil {
		return nil, errors.NewInputFileError(path, err)
	}
	return f, nil
}

func newColumnBuffer(col *schema.Column) (*columnBuffer, bool) {
	b := &columnBuffer{name: col.Name()}
	switch col.PhysicalType() {
	case parquet.Types.ByteArray:
		b.kind = frame.Categorical
	case parquet.Types.Int64:
		if unit, ok := timestampUnit(col); ok {
			b.kind, b.unit = frame.Temporal, unit
		} else {
			b.kind = frame.Numerical
		}
	case parquet.Types.Int32, parquet.Types.Double, parquet.Types.Float, parquet.Types.Boolean:
		b.kind = frame.Numerical
	default:
		return nil, false
	}
	return b, true
}

func timestampUnit(col *schema.Column) (time.Duration, bool) {
	if ts, ok := col.LogicalType().(*schema.TimestampLogicalType); ok {
		switch ts.TimeUnit() {
		case schema.TimeUnitMillis:
			return time.Millisecond, true
		case schema.TimeUnitNanos:
			return time.Nanosecond, true
		default:
			return time.Microsecond, true
		}
	}
	switch col.ConvertedType() {
	case schema.ConvertedTypes.TimestampMillis:
		return time.Millisecond, true
	case schema.ConvertedTypes.TimestampMicros:
		return time.Microsecond, true
	}
	return 0, false
}

type batchReader[T any] interface {
	HasNext() bool
	ReadBatch(batchSize int64, values []T, defLvls, repLvls []int16) (int64, int, error)
}

// readLevels drains a column chunk. Values come back packed, so nulls are
// located through the definition levels.
func readLevels[T any](r batchReader[T], numRows int, maxDef int16, emit func(v T, ok bool)) error {
	values := make([]T, parquetBatchSize)
	defLevels := make([]int16, parquetBatchSize)
	var zero T
	read := 0
	for read < numRows && r.HasNext() {
		total, n, err := r.ReadBatch(parquetBatchSize, values, defLevels, nil)
		if err != nil {
			return err
		}
		if total == 0 {
			break
		}
		if maxDef == 0 {
			for i := 0; i < n; i++ {
				emit(values[i], true)
			}
			read += n
			continue
		}
		v := 0
		for i := 0; i < int(total); i++ {
			if defLevels[i] == maxDef {
				emit(values[v], true)
				v++
			} else {
				emit(zero, false)
			}
		}
		read += int(total)
	}
	if read != numRows {
		return errors.Newf("read %d rows, expected %d", read, numRows)
	}
	return nil
}

func (b *columnBuffer) read(chunk file.ColumnChunkReader, numRows int, maxDef int16) error {
	pushNum := func(v float64, ok bool) {
		if !ok {
			v = math.NaN()
		}
		b.num = append(b.num, v)
	}

	switch r := chunk.(type) {
	case *file.ByteArrayColumnChunkReader:
		return readLevels[parquet.ByteArray](r, numRows, maxDef, func(v parquet.ByteArray, ok bool) {
			b.str = append(b.str, string(v))
			b.valid = append(b.valid, ok)
		})
	case *file.Int64ColumnChunkReader:
		if b.kind == frame.Temporal {
			return readLevels[int64](r, numRows, maxDef, func(v int64, ok bool) {
				var ts time.Time
				if ok {
					ts = time.Unix(0, v*int64(b.unit)).UTC()
				}
				b.ts = append(b.ts, ts)
				b.valid = append(b.valid, ok)
			})
		}
		return readLevels[int64](r, numRows, maxDef, func(v int64, ok bool) { pushNum(float64(v), ok) })
	case *file.Int32ColumnChunkReader:
		return readLevels[int32](r, numRows, maxDef, func(v int32, ok bool) { pushNum(float64(v), ok) })
	case *file.Float64ColumnChunkReader:
		return readLevels[float64](r, numRows, maxDef, pushNum)
	case *file.Float32ColumnChunkReader:
		return readLevels[float32](r, numRows, maxDef, func(v float32, ok bool) { pushNum(float64(v), ok) })
	case *file.BooleanColumnChunkReader:
		return readLevels[bool](r, numRows, maxDef, func(v bool, ok bool) {
			f := 0.0
			if v {
				f = 1
			}
			pushNum(f, ok)
		})
	default:
		return errors.Newf("unsupported column reader %T", chunk)
	}
}
