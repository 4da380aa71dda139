package preprocessing

import (
	"math"
	"sort"
	"time"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

// Derived column suffixes, appended to the source column name.
var dateSuffixes = []string{
	"_year",
	"_month",
	"_day",
	"_hour",
	"_weekday",
	"_is_weekend",
	"_is_holiday",
	"_is_night",
	"_is_morning_peak_hours_working_day",
	"_is_afternoon_peak_hours_working_day",
	"_is_afternoon_peak_hours_week_end",
}

// DateEncoder expands a temporal column into calendar and peak-hour features.
type DateEncoder struct {
	Calendar HolidayCalendar
}

// Names returns the derived column names for a source column.
func (e DateEncoder) Names(column string) []string {
	names := make([]string, len(dateSuffixes))
	for i, suffix := range dateSuffixes {
		names[i] = column + suffix
	}
	return names
}

// Encode derives the calendar features of s. Weekdays count from Monday = 0;
// nights span 23:00 to 04:59. A null timestamp gives NaN date parts and zero
// indicators.
func (e DateEncoder) Encode(s *frame.Series) ([]*frame.Series, error) {
	if s.Kind() != frame.Temporal {
		return nil, errors.NewKindMismatchError("DateEncoder", s.Name(), frame.Temporal.String(), s.Kind().String())
	}
	n := s.Len()
	holidays := e.holidaySet(s)

	cols := make([][]float64, len(dateSuffixes))
	for k := range cols {
		cols[k] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		t, ok := s.Time(i)
		if !ok {
			for k := 0; k < 5; k++ {
				cols[k][i] = math.NaN()
			}
			continue
		}
		hour := t.Hour()
		weekday := (int(t.Weekday()) + 6) % 7
		weekend := weekday >= 5

		cols[0][i] = float64(t.Year())
		cols[1][i] = float64(t.Month())
		cols[2][i] = float64(t.Day())
		cols[3][i] = float64(hour)
		cols[4][i] = float64(weekday)
		cols[5][i] = indicator(weekend)
		cols[6][i] = indicator(holidays[civilDate(t)])
		cols[7][i] = indicator(hour >= 23 || hour <= 4)
		cols[8][i] = indicator(hour >= 6 && hour <= 7 && !weekend)
		cols[9][i] = indicator(hour >= 15 && hour <= 18 && !weekend)
		cols[10][i] = indicator(hour >= 13 && hour <= 16 && weekend)
	}

	names := e.Names(s.Name())
	out := make([]*frame.Series, len(names))
	for k, name := range names {
		out[k] = frame.NewNumerical(name, cols[k])
	}
	return out, nil
}

// holidaySet asks the calendar once for the distinct years of s.
func (e DateEncoder) holidaySet(s *frame.Series) map[time.Time]bool {
	if e.Calendar == nil {
		return nil
	}
	seen := make(map[int]bool)
	for i := 0; i < s.Len(); i++ {
		if t, ok := s.Time(i); ok {
			seen[t.Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)

	set := make(map[time.Time]bool)
	for _, d := range e.Calendar.Holidays(years) {
		set[civilDate(d)] = true
	}
	return set
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
