package features

import (
	"github.com/YuminosukeSato/bikecount/dataset"
	"github.com/YuminosukeSato/bikecount/frame"
)

// Select projects f onto the curated allowlist in its fixed order. Unless
// testSet is set, the target column is appended last. Any absent column is
// returned as a ColumnNotFoundError.
func Select(f *frame.Frame, tables *dataset.Tables, testSet bool) (*frame.Frame, error) {
	cols := append([]string(nil), tables.SelectedColumns...)
	if !testSet {
		cols = append(cols, tables.Target)
	}
	return f.Select(cols...)
}
