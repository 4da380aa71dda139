package frame

import (
	"sort"
	"strings"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

// Frame is an ordered collection of equal-length series.
type Frame struct {
	cols  []*Series
	index map[string]int
	nrows int
}

// New builds a frame; all series must have the same length and distinct names.
func New(cols ...*Series) (*Frame, error) {
	f := &Frame{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.Name()]; dup {
			return nil, errors.NewValueError("frame.New", "duplicate column "+c.Name())
		}
		f.index[c.Name()] = i
		if i == 0 {
			f.nrows = c.Len()
		} else if c.Len() != f.nrows {
			return nil, errors.NewDimensionError("frame.New", f.nrows, c.Len(), 0)
		}
	}
	return f, nil
}

// MustNew is New for statically known inputs; it panics on error.
func MustNew(cols ...*Series) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.nrows }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.cols) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name()
	}
	return names
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named series or a ColumnNotFoundError.
func (f *Frame) Column(name string) (*Series, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError("Column", name, f.Names())
	}
	return f.cols[i], nil
}

// Columns returns the series in order.
func (f *Frame) Columns() []*Series {
	return append([]*Series(nil), f.cols...)
}

// Kinds maps every column name to its kind.
func (f *Frame) Kinds() map[string]Kind {
	out := make(map[string]Kind, len(f.cols))
	for _, c := range f.cols {
		out[c.Name()] = c.Kind()
	}
	return out
}

// Select projects the frame onto names in the given order. It fails on the
// first absent column.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Series, 0, len(names))
	for _, n := range names {
		i, ok := f.index[n]
		if !ok {
			return nil, errors.NewColumnNotFoundError("Select", n, f.Names())
		}
		cols = append(cols, f.cols[i])
	}
	return New(cols...)
}

// Drop removes the named columns; absent names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	cols := make([]*Series, 0, len(f.cols))
	for _, c := range f.cols {
		if !drop[c.Name()] {
			cols = append(cols, c)
		}
	}
	return &Frame{cols: cols, index: indexOf(cols), nrows: f.nrows}
}

// Rename renames columns by an old→new mapping; absent names are ignored.
func (f *Frame) Rename(mapping map[string]string) (*Frame, error) {
	cols := make([]*Series, len(f.cols))
	for i, c := range f.cols {
		if to, ok := mapping[c.Name()]; ok {
			cols[i] = c.Rename(to)
			continue
		}
		cols[i] = c
	}
	return New(cols...)
}

// With adds s, or replaces the column of the same name in place.
func (f *Frame) With(s *Series) (*Frame, error) {
	if len(f.cols) > 0 && s.Len() != f.nrows {
		return nil, errors.NewDimensionError("With", f.nrows, s.Len(), 0)
	}
	cols := append([]*Series(nil), f.cols...)
	if i, ok := f.index[s.Name()]; ok {
		cols[i] = s
	} else {
		cols = append(cols, s)
	}
	return New(cols...)
}

// Take gathers rows by index; index -1 yields a row of nulls.
func (f *Frame) Take(idx []int) *Frame {
	cols := make([]*Series, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.Take(idx)
	}
	return &Frame{cols: cols, index: indexOf(cols), nrows: len(idx)}
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	idx := make([]int, 0, f.nrows)
	for i := 0; i < f.nrows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// SortBy stably sorts rows ascending by the named column, nulls last.
func (f *Frame) SortBy(name string) (*Frame, error) {
	s, err := f.Column(name)
	if err != nil {
		return nil, errors.Wrap(err, "SortBy")
	}
	idx := make([]int, f.nrows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return s.less(idx[a], idx[b]) })
	return f.Take(idx), nil
}

// DropAllNull removes columns where every row is missing.
func (f *Frame) DropAllNull() *Frame {
	var empty []string
	for _, c := range f.cols {
		if c.NullCount() == f.nrows {
			empty = append(empty, c.Name())
		}
	}
	return f.Drop(empty...)
}

// Distinct projects onto names and keeps the first occurrence of each
// combination. Nulls compare equal to each other.
func (f *Frame) Distinct(names ...string) (*Frame, error) {
	proj, err := f.Select(names...)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, proj.nrows)
	idx := make([]int, 0)
	var b strings.Builder
	for i := 0; i < proj.nrows; i++ {
		b.Reset()
		for _, c := range proj.cols {
			if k, ok := c.key(i); ok {
				b.WriteByte('v')
				b.WriteString(k)
			} else {
				b.WriteByte('n')
			}
			b.WriteByte(0)
		}
		k := b.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		idx = append(idx, i)
	}
	return proj.Take(idx), nil
}

func indexOf(cols []*Series) map[string]int {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name()] = i
	}
	return index
}
