package preprocessing

import (
	"time"

	"github.com/rickar/cal/v2/fr"
)

// HolidayCalendar returns the public holidays of one jurisdiction for a set
// of years, as midnight UTC dates.
type HolidayCalendar interface {
	Holidays(years []int) []time.Time
}

// FrenchCalendar lists the national public holidays of metropolitan France.
type FrenchCalendar struct{}

// Holidays implements HolidayCalendar.
func (FrenchCalendar) Holidays(years []int) []time.Time {
	var out []time.Time
	for _, year := range years {
		for _, h := range fr.Holidays {
			actual, _ := h.Calc(year)
			if actual.IsZero() {
				continue
			}
			out = append(out, civilDate(actual))
		}
	}
	return out
}

// FixedCalendar is a HolidayCalendar over an explicit date list.
type FixedCalendar []time.Time

// Holidays implements HolidayCalendar.
func (c FixedCalendar) Holidays(years []int) []time.Time {
	want := make(map[int]bool, len(years))
	for _, y := range years {
		want[y] = true
	}
	var out []time.Time
	for _, d := range c {
		if want[d.Year()] {
			out = append(out, civilDate(d))
		}
	}
	return out
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
