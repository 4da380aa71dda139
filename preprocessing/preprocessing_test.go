package preprocessing

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func ts(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func encodeOne(t *testing.T, enc DateEncoder, at time.Time) map[string]float64 {
	t.Helper()
	derived, err := enc.Encode(frame.NewTemporal("date", []time.Time{at}, nil))
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]float64, len(derived))
	for _, s := range derived {
		out[s.Name()] = s.Float(0)
	}
	return out
}

func TestClassifyColumns(t *testing.T) {
	f := frame.MustNew(
		frame.NewCategorical("counter_id", []string{"a"}, nil),
		frame.NewNumerical("precip_1h", []float64{0}),
		frame.NewTemporal("date", []time.Time{ts(2021, 1, 1, 0)}, nil),
		frame.NewNumerical("temp_surface", []float64{1}),
	)
	cat, num, tmp := ClassifyColumns(f)
	if !reflect.DeepEqual(cat, []string{"counter_id"}) ||
		!reflect.DeepEqual(num, []string{"precip_1h", "temp_surface"}) ||
		!reflect.DeepEqual(tmp, []string{"date"}) {
		t.Fatalf("got %v %v %v", cat, num, tmp)
	}
}

func TestDateEncoder(t *testing.T) {
	enc := DateEncoder{Calendar: FrenchCalendar{}}

	tests := []struct {
		name string
		at   time.Time
		want map[string]float64
	}{
		{
			name: "saturday morning",
			at:   ts(2023, time.July, 1, 8),
			want: map[string]float64{
				"date_year": 2023, "date_month": 7, "date_day": 1, "date_hour": 8,
				"date_weekday": 5, "date_is_weekend": 1, "date_is_holiday": 0, "date_is_night": 0,
				"date_is_morning_peak_hours_working_day": 0, "date_is_afternoon_peak_hours_working_day": 0,
				"date_is_afternoon_peak_hours_week_end": 0,
			},
		},
		{
			name: "monday commute",
			at:   ts(2023, time.July, 3, 7),
			want: map[string]float64{
				"date_weekday": 0, "date_is_weekend": 0, "date_is_morning_peak_hours_working_day": 1,
			},
		},
		{
			name: "bastille day evening",
			at:   ts(2023, time.July, 14, 17),
			want: map[string]float64{"date_is_holiday": 1, "date_is_afternoon_peak_hours_working_day": 1},
		},
		{
			name: "sunday afternoon",
			at:   ts(2023, time.July, 2, 14),
			want: map[string]float64{"date_weekday": 6, "date_is_afternoon_peak_hours_week_end": 1},
		},
		{
			name: "late night",
			at:   ts(2023, time.July, 4, 23),
			want: map[string]float64{"date_is_night": 1},
		},
		{
			name: "early night",
			at:   ts(2023, time.July, 4, 4),
			want: map[string]float64{"date_is_night": 1},
		},
		{
			name: "dawn",
			at:   ts(2023, time.July, 4, 5),
			want: map[string]float64{"date_is_night": 0},
		},
		{
			name: "easter monday",
			at:   ts(2023, time.April, 10, 12),
			want: map[string]float64{"date_is_holiday": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeOne(t, enc, tt.at)
			if len(got) != 11 {
				t.Fatalf("derived %d columns, want 11", len(got))
			}
			for k, w := range tt.want {
				if got[k] != w {
					t.Errorf("%s = %v, want %v", k, got[k], w)
				}
			}
		})
	}
}

func TestDateEncoder_PrefixesAndNulls(t *testing.T) {
	enc := DateEncoder{Calendar: FixedCalendar{ts(2021, time.March, 1, 0)}}
	s := frame.NewTemporal("counter_installation_date",
		[]time.Time{ts(2021, time.March, 1, 9), {}},
		[]bool{true, false},
	)
	derived, err := enc.Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range derived {
		if !strings.HasPrefix(d.Name(), "counter_installation_date_") {
			t.Fatalf("column %s not prefixed", d.Name())
		}
	}
	if derived[6].Float(0) != 1 {
		t.Error("fixed calendar holiday not detected")
	}
	if !math.IsNaN(derived[0].Float(1)) || derived[5].Float(1) != 0 {
		t.Error("null timestamp should give NaN parts and zero indicators")
	}

	_, err = enc.Encode(frame.NewNumerical("date", []float64{1}))
	var km *errors.KindMismatchError
	if !errors.As(err, &km) {
		t.Fatalf("expected KindMismatchError, got %v", err)
	}
}

func TestStandardScaler_NaNAware(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 5,
		math.NaN(), 5,
		3, 5,
	})
	s := NewStandardScalerDefault()
	if err := s.Fit(X); err != nil {
		t.Fatal(err)
	}
	out, err := s.Transform(X)
	if err != nil {
		t.Fatal(err)
	}
	mean, scale := s.Mean(), s.Scale()
	if mean[0] != 2 || scale[0] != 1 {
		t.Errorf("column 0 mean/scale = %v/%v", mean[0], scale[0])
	}
	if scale[1] != 1 {
		t.Errorf("constant column scale = %v, want 1", scale[1])
	}
	if out.At(0, 0) != -1 || out.At(2, 0) != 1 || !math.IsNaN(out.At(1, 0)) {
		t.Errorf("scaled column 0 = %v", mat.Col(nil, 0, out))
	}

	mean[0], scale[0] = 100, 100
	again, err := s.Transform(X)
	if err != nil {
		t.Fatal(err)
	}
	if again.At(0, 0) != -1 {
		t.Errorf("fitted statistics changed through an accessor: %v", again.At(0, 0))
	}

	if _, err := s.Transform(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected a DimensionError for a wrong column count")
	}
	_, err = NewStandardScalerDefault().Transform(X)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
}

func trainFrame() *frame.Frame {
	return frame.MustNew(
		frame.NewCategorical("counter_id", []string{"b", "a", "b", "c"}, nil),
		frame.NewTemporal("date", []time.Time{
			ts(2021, 3, 1, 7), ts(2021, 3, 1, 8), ts(2021, 3, 6, 14), ts(2021, 3, 7, 23),
		}, nil),
		frame.NewNumerical("precip_1h", []float64{0, 2, 4, 6}),
	)
}

func TestColumnTransformer(t *testing.T) {
	ct := &ColumnTransformer{Calendar: FixedCalendar{}}
	fitted, train, err := ct.FitTransform(trainFrame())
	if err != nil {
		t.Fatal(err)
	}

	wantNames := append([]string{"counter_id_a", "counter_id_b", "counter_id_c", "precip_1h"},
		DateEncoder{}.Names("date")...)
	if !reflect.DeepEqual(train.Names, wantNames) {
		t.Fatalf("names = %v", train.Names)
	}
	if r, c := train.X.Dims(); r != 4 || c != len(wantNames) {
		t.Fatalf("dims = %d×%d", r, c)
	}
	// Row 0 is counter b.
	if got := mat.Row(nil, 0, train.X)[:3]; !reflect.DeepEqual(got, []float64{0, 1, 0}) {
		t.Errorf("one-hot row 0 = %v", got)
	}

	test := frame.MustNew(
		frame.NewNumerical("precip_1h", []float64{3, math.NaN()}),
		frame.NewCategorical("counter_id", []string{"zzz", ""}, []bool{true, false}),
		frame.NewTemporal("date", []time.Time{ts(2021, 4, 1, 7), ts(2021, 4, 1, 8)}, nil),
		frame.NewNumerical("unused", []float64{1, 2}),
	)
	first, err := fitted.Transform(test)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if got := mat.Row(nil, i, first.X)[:3]; !reflect.DeepEqual(got, []float64{0, 0, 0}) {
			t.Errorf("unknown/null category row %d = %v", i, got)
		}
	}
	// precip scaled with train statistics: mean 3.
	if got := first.X.At(0, 3); got != 0 {
		t.Errorf("scaled precip = %v, want 0", got)
	}
	if !math.IsNaN(first.X.At(1, 3)) {
		t.Error("missing numeric value should pass through")
	}

	second, err := fitted.Transform(test)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(first.X.Slice(0, 1, 0, len(wantNames)), second.X.Slice(0, 1, 0, len(wantNames)), 0) {
		t.Error("Transform is not repeatable")
	}

	_, err = fitted.Transform(frame.MustNew(frame.NewNumerical("precip_1h", []float64{1})))
	var cnf *errors.ColumnNotFoundError
	if !errors.As(err, &cnf) {
		t.Fatalf("expected ColumnNotFoundError, got %v", err)
	}
}
