// Package preprocessing turns a selected feature frame into the numeric
// matrix consumed by the regressors: one-hot encoding for categorical
// columns, standardisation for numerical ones and calendar expansion for
// temporal ones.
package preprocessing

import "github.com/YuminosukeSato/bikecount/frame"

// ClassifyColumns partitions column names by their declared kind, keeping
// frame order inside each group.
func ClassifyColumns(f *frame.Frame) (categorical, numerical, temporal []string) {
	for _, s := range f.Columns() {
		switch s.Kind() {
		case frame.Categorical:
			categorical = append(categorical, s.Name())
		case frame.Numerical:
			numerical = append(numerical, s.Name())
		case frame.Temporal:
			temporal = append(temporal, s.Name())
		}
	}
	return categorical, numerical, temporal
}
