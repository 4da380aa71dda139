// Package frame is the column-oriented table model used by the pipeline.
//
// Every column carries an explicit Kind assigned at load time, so downstream
// code dispatches on declared schema instead of inspecting values. Frames and
// series are immutable: every operation returns a new value.
package frame

import (
	"math"
	"strconv"
	"time"
)

// Kind is the declared semantic type of a column.
type Kind int

const (
	// Categorical columns hold text or enumerated identifiers.
	Categorical Kind = iota
	// Numerical columns hold float64 values, NaN meaning missing.
	Numerical
	// Temporal columns hold timestamps.
	Temporal
)

func (k Kind) String() string {
	switch k {
	case Categorical:
		return "categorical"
	case Numerical:
		return "numerical"
	case Temporal:
		return "temporal"
	default:
		return "unknown"
	}
}

// Series is a named, typed column. Numerical nulls are NaN; categorical and
// temporal nulls are tracked by a validity mask.
type Series struct {
	name  string
	kind  Kind
	str   []string
	num   []float64
	ts    []time.Time
	valid []bool // nil means every row is valid
}

// NewCategorical creates a categorical series. valid may be nil.
func NewCategorical(name string, values []string, valid []bool) *Series {
	return &Series{
		name:  name,
		kind:  Categorical,
		str:   append([]string(nil), values...),
		valid: copyMask(valid),
	}
}

// NewNumerical creates a numerical series; NaN entries are nulls.
func NewNumerical(name string, values []float64) *Series {
	return &Series{
		name: name,
		kind: Numerical,
		num:  append([]float64(nil), values...),
	}
}

// NewTemporal creates a temporal series. valid may be nil.
func NewTemporal(name string, values []time.Time, valid []bool) *Series {
	return &Series{
		name:  name,
		kind:  Temporal,
		ts:    append([]time.Time(nil), values...),
		valid: copyMask(valid),
	}
}

func copyMask(valid []bool) []bool {
	if valid == nil {
		return nil
	}
	return append([]bool(nil), valid...)
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// Kind returns the declared column kind.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of rows.
func (s *Series) Len() int {
	switch s.kind {
	case Categorical:
		return len(s.str)
	case Numerical:
		return len(s.num)
	default:
		return len(s.ts)
	}
}

// IsNull reports whether row i is missing.
func (s *Series) IsNull(i int) bool {
	if s.kind == Numerical {
		return math.IsNaN(s.num[i])
	}
	return s.valid != nil && !s.valid[i]
}

// NullCount returns the number of missing rows.
func (s *Series) NullCount() int {
	n := 0
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			n++
		}
	}
	return n
}

// Str returns the categorical value at row i.
func (s *Series) Str(i int) (string, bool) {
	if s.kind != Categorical || s.IsNull(i) {
		return "", false
	}
	return s.str[i], true
}

// Float returns the numerical value at row i, NaN for nulls and non-numerical columns.
func (s *Series) Float(i int) float64 {
	if s.kind != Numerical {
		return math.NaN()
	}
	return s.num[i]
}

// Time returns the temporal value at row i.
func (s *Series) Time(i int) (time.Time, bool) {
	if s.kind != Temporal || s.IsNull(i) {
		return time.Time{}, false
	}
	return s.ts[i], true
}

// Floats returns a copy of the numerical values.
func (s *Series) Floats() []float64 {
	return append([]float64(nil), s.num...)
}

// Rename returns the same data under a new name.
func (s *Series) Rename(name string) *Series {
	out := *s
	out.name = name
	return &out
}

// Take gathers rows by index; index -1 yields a null.
func (s *Series) Take(idx []int) *Series {
	out := &Series{name: s.name, kind: s.kind}
	switch s.kind {
	case Numerical:
		out.num = make([]float64, len(idx))
		for k, i := range idx {
			if i < 0 {
				out.num[k] = math.NaN()
				continue
			}
			out.num[k] = s.num[i]
		}
		return out
	case Categorical:
		out.str = make([]string, len(idx))
	case Temporal:
		out.ts = make([]time.Time, len(idx))
	}

	var valid []bool
	for k, i := range idx {
		if i < 0 || s.IsNull(i) {
			if valid == nil {
				valid = make([]bool, len(idx))
				for j := 0; j < k; j++ {
					valid[j] = true
				}
			}
			continue
		}
		if valid != nil {
			valid[k] = true
		}
		if s.kind == Categorical {
			out.str[k] = s.str[i]
		} else {
			out.ts[k] = s.ts[i]
		}
	}
	out.valid = valid
	return out
}

// key renders row i as a hashable join key. ok is false for nulls.
func (s *Series) key(i int) (string, bool) {
	if s.IsNull(i) {
		return "", false
	}
	switch s.kind {
	case Categorical:
		return s.str[i], true
	case Numerical:
		return strconv.FormatFloat(s.num[i], 'g', -1, 64), true
	default:
		return strconv.FormatInt(s.ts[i].UnixNano(), 10), true
	}
}

// less orders rows i and j; nulls sort last.
func (s *Series) less(i, j int) bool {
	ni, nj := s.IsNull(i), s.IsNull(j)
	if ni || nj {
		return !ni && nj
	}
	switch s.kind {
	case Categorical:
		return s.str[i] < s.str[j]
	case Numerical:
		return s.num[i] < s.num[j]
	default:
		return s.ts[i].Before(s.ts[j])
	}
}
