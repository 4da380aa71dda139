package preprocessing

import (
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// FeatureMatrix is the encoded numeric table handed to a regressor.
type FeatureMatrix struct {
	X     *mat.Dense
	Names []string
}

// Rows returns the number of rows.
func (m *FeatureMatrix) Rows() int {
	r, _ := m.X.Dims()
	return r
}

// ColumnTransformer composes the per-kind encoders. Fit returns the learned
// parameters as a separate value; the transformer itself holds no state.
type ColumnTransformer struct {
	Calendar HolidayCalendar
}

// NewColumnTransformer returns a transformer using the French holiday calendar.
func NewColumnTransformer() *ColumnTransformer {
	return &ColumnTransformer{Calendar: FrenchCalendar{}}
}

// FittedColumnTransformer holds the vocabularies and scaling statistics
// learned from a training frame. It is never modified after Fit, so
// Transform is safe for concurrent use.
type FittedColumnTransformer struct {
	encodings []*OneHotEncoding
	numerical []string
	scaler    *StandardScaler
	temporal  []string
	dates     DateEncoder
	names     []string
}

// Fit classifies the columns of f by kind and learns the one-hot
// vocabularies and the scaler statistics.
func (ct *ColumnTransformer) Fit(f *frame.Frame) (*FittedColumnTransformer, error) {
	if f.NumRows() == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}
	categorical, numerical, temporal := ClassifyColumns(f)

	fitted := &FittedColumnTransformer{
		numerical: numerical,
		temporal:  temporal,
		dates:     DateEncoder{Calendar: ct.Calendar},
	}

	for _, name := range categorical {
		s, _ := f.Column(name)
		enc, err := FitOneHot(s)
		if err != nil {
			return nil, err
		}
		fitted.encodings = append(fitted.encodings, enc)
		fitted.names = append(fitted.names, enc.Names()...)
	}

	if len(numerical) > 0 {
		block, err := numericBlock(f, numerical)
		if err != nil {
			return nil, err
		}
		fitted.scaler = NewStandardScalerDefault()
		if err := fitted.scaler.Fit(block); err != nil {
			return nil, errors.Wrap(err, "ColumnTransformer.Fit")
		}
		fitted.names = append(fitted.names, numerical...)
	}

	for _, name := range temporal {
		fitted.names = append(fitted.names, fitted.dates.Names(name)...)
	}
	if len(fitted.names) == 0 {
		return nil, errors.NewValueError("ColumnTransformer.Fit", "no feature columns")
	}

	log.GetLoggerWithName("preprocessing.column_transformer").Info("Preprocessor fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, f.NumRows(),
		log.FeaturesKey, len(fitted.names),
		"categorical", len(categorical),
		"numerical", len(numerical),
		"temporal", len(temporal),
	)
	return fitted, nil
}

// Names returns the output feature names: the one-hot block, then the scaled
// numerical block, then the date block.
func (ft *FittedColumnTransformer) Names() []string {
	return append([]string(nil), ft.names...)
}

// Transform encodes f with the fitted parameters. Columns not seen at fit
// time are ignored; a fitted column that is absent or of another kind is an
// error.
func (ft *FittedColumnTransformer) Transform(f *frame.Frame) (*FeatureMatrix, error) {
	n := f.NumRows()
	if n == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Transform", "empty data", errors.ErrEmptyData)
	}
	X := mat.NewDense(n, len(ft.names), nil)
	offset := 0

	for _, enc := range ft.encodings {
		s, err := columnOfKind(f, enc.Column, frame.Categorical)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if p := enc.Index(s, i); p >= 0 {
				X.Set(i, offset+p, 1)
			}
		}
		offset += len(enc.Categories)
	}

	if ft.scaler != nil {
		block, err := numericBlock(f, ft.numerical)
		if err != nil {
			return nil, err
		}
		scaled, err := ft.scaler.Transform(block)
		if err != nil {
			return nil, errors.Wrap(err, "ColumnTransformer.Transform")
		}
		X.Slice(0, n, offset, offset+len(ft.numerical)).(*mat.Dense).Copy(scaled)
		offset += len(ft.numerical)
	}

	for _, name := range ft.temporal {
		s, err := columnOfKind(f, name, frame.Temporal)
		if err != nil {
			return nil, err
		}
		derived, err := ft.dates.Encode(s)
		if err != nil {
			return nil, err
		}
		for _, d := range derived {
			X.SetCol(offset, d.Floats())
			offset++
		}
	}

	return &FeatureMatrix{X: X, Names: ft.Names()}, nil
}

// FitTransform fits on f and encodes it.
func (ct *ColumnTransformer) FitTransform(f *frame.Frame) (*FittedColumnTransformer, *FeatureMatrix, error) {
	fitted, err := ct.Fit(f)
	if err != nil {
		return nil, nil, err
	}
	m, err := fitted.Transform(f)
	if err != nil {
		return nil, nil, err
	}
	return fitted, m, nil
}

func columnOfKind(f *frame.Frame, name string, kind frame.Kind) (*frame.Series, error) {
	s, err := f.Column(name)
	if err != nil {
		return nil, errors.NewColumnNotFoundError("ColumnTransformer.Transform", name, f.Names())
	}
	if s.Kind() != kind {
		return nil, errors.NewKindMismatchError("ColumnTransformer.Transform", name, kind.String(), s.Kind().String())
	}
	return s, nil
}

func numericBlock(f *frame.Frame, names []string) (*mat.Dense, error) {
	block := mat.NewDense(f.NumRows(), len(names), nil)
	for j, name := range names {
		s, err := columnOfKind(f, name, frame.Numerical)
		if err != nil {
			return nil, err
		}
		block.SetCol(j, s.Floats())
	}
	return block, nil
}
