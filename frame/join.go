package frame

import (
	"strings"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

// LeftJoin joins right onto f by the key columns in on.
//
// Every left row appears in its original order; a left row matching several
// right rows is repeated once per match, in right order. Rows whose key holds
// a null never match. Key columns are taken from the left side. Non-key
// columns present on both sides get suffixes[0] (left) and suffixes[1] (right).
func (f *Frame) LeftJoin(right *Frame, on []string, suffixes [2]string) (*Frame, error) {
	if len(on) == 0 {
		return nil, errors.NewValueError("LeftJoin", "no join keys")
	}

	leftKeys := make([]*Series, len(on))
	rightKeys := make([]*Series, len(on))
	isKey := make(map[string]bool, len(on))
	for i, name := range on {
		l, err := f.Column(name)
		if err != nil {
			return nil, errors.Wrap(err, "LeftJoin left")
		}
		r, err := right.Column(name)
		if err != nil {
			return nil, errors.Wrap(err, "LeftJoin right")
		}
		if l.Kind() != r.Kind() {
			return nil, errors.NewKindMismatchError("LeftJoin", name, l.Kind().String(), r.Kind().String())
		}
		leftKeys[i], rightKeys[i] = l, r
		isKey[name] = true
	}

	buckets := make(map[string][]int, right.nrows)
	for i := 0; i < right.nrows; i++ {
		if k, ok := rowKey(rightKeys, i); ok {
			buckets[k] = append(buckets[k], i)
		}
	}

	leftIdx := make([]int, 0, f.nrows)
	rightIdx := make([]int, 0, f.nrows)
	for i := 0; i < f.nrows; i++ {
		k, ok := rowKey(leftKeys, i)
		matches := buckets[k]
		if !ok || len(matches) == 0 {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, -1)
			continue
		}
		for _, j := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}

	cols := make([]*Series, 0, len(f.cols)+len(right.cols))
	for _, c := range f.cols {
		taken := c.Take(leftIdx)
		if !isKey[c.Name()] && right.Has(c.Name()) {
			taken = taken.Rename(c.Name() + suffixes[0])
		}
		cols = append(cols, taken)
	}
	for _, c := range right.cols {
		if isKey[c.Name()] {
			continue
		}
		taken := c.Take(rightIdx)
		if f.Has(c.Name()) {
			taken = taken.Rename(c.Name() + suffixes[1])
		}
		cols = append(cols, taken)
	}

	out, err := New(cols...)
	if err != nil {
		return nil, errors.Wrap(err, "LeftJoin")
	}
	if len(cols) == 0 {
		out.nrows = len(leftIdx)
	}
	return out, nil
}

func rowKey(keys []*Series, i int) (string, bool) {
	if len(keys) == 1 {
		return keys[0].key(i)
	}
	var b strings.Builder
	for _, s := range keys {
		k, ok := s.key(i)
		if !ok {
			return "", false
		}
		b.WriteString(k)
		b.WriteByte(0)
	}
	return b.String(), true
}
