package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

// OneHotEncoding is the fitted vocabulary of one categorical column.
type OneHotEncoding struct {
	Column     string
	Categories []string // sorted ascending
	position   map[string]int
}

// FitOneHot learns the sorted distinct non-null values of s.
func FitOneHot(s *frame.Series) (*OneHotEncoding, error) {
	if s.Kind() != frame.Categorical {
		return nil, errors.NewKindMismatchError("OneHot.Fit", s.Name(), frame.Categorical.String(), s.Kind().String())
	}
	seen := make(map[string]bool)
	for i := 0; i < s.Len(); i++ {
		if v, ok := s.Str(i); ok {
			seen[v] = true
		}
	}
	cats := make([]string, 0, len(seen))
	for v := range seen {
		cats = append(cats, v)
	}
	sort.Strings(cats)
	return newOneHotEncoding(s.Name(), cats), nil
}

func newOneHotEncoding(column string, cats []string) *OneHotEncoding {
	pos := make(map[string]int, len(cats))
	for i, c := range cats {
		pos[c] = i
	}
	return &OneHotEncoding{Column: column, Categories: cats, position: pos}
}

// Names returns the output column names, "<column>_<category>".
func (o *OneHotEncoding) Names() []string {
	names := make([]string, len(o.Categories))
	for i, c := range o.Categories {
		names[i] = o.Column + "_" + c
	}
	return names
}

// Index returns the output offset of row i of s, or -1 for unknown and null
// values, which encode as all zeros.
func (o *OneHotEncoding) Index(s *frame.Series, i int) int {
	v, ok := s.Str(i)
	if !ok {
		return -1
	}
	if p, known := o.position[v]; known {
		return p
	}
	return -1
}
