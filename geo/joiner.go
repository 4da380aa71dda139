// Package geo associates counting stations with their nearest weather station.
package geo

import (
	"math"
	"strconv"

	"github.com/YuminosukeSato/bikecount/core/parallel"
	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/YuminosukeSato/bikecount/pkg/log"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Site is an identified location in raw latitude/longitude degrees.
type Site struct {
	ID  string
	Lat float64
	Lon float64
}

// Assignment links a counting station to its nearest weather station.
type Assignment struct {
	Counter  Site
	Station  Site
	Distance float64 // planar, in degrees
}

// DistanceKM returns the great-circle length of the assignment.
func (a Assignment) DistanceKM() float64 {
	return GreatCircleKM(a.Counter, a.Station)
}

// StationMap maps every counting station id to exactly one weather station id.
type StationMap struct {
	assignments []Assignment
	byCounter   map[string]int
}

// Station returns the weather station assigned to counterID.
func (m *StationMap) Station(counterID string) (string, bool) {
	i, ok := m.byCounter[counterID]
	if !ok {
		return "", false
	}
	return m.assignments[i].Station.ID, true
}

// Len returns the number of mapped counting stations.
func (m *StationMap) Len() int { return len(m.assignments) }

// Assignments returns the assignments in counter input order.
func (m *StationMap) Assignments() []Assignment {
	return append([]Assignment(nil), m.assignments...)
}

// Farthest returns the assignment with the largest great-circle distance.
func (m *StationMap) Farthest() (Assignment, bool) {
	if len(m.assignments) == 0 {
		return Assignment{}, false
	}
	best, bestKM := 0, -1.0
	for i, a := range m.assignments {
		if km := a.DistanceKM(); km > bestKM {
			best, bestKM = i, km
		}
	}
	return m.assignments[best], true
}

// Frame renders the map as a two-column categorical table for joining.
func (m *StationMap) Frame(counterKey, stationKey string) *frame.Frame {
	counters := make([]string, len(m.assignments))
	stations := make([]string, len(m.assignments))
	for i, a := range m.assignments {
		counters[i], stations[i] = a.Counter.ID, a.Station.ID
	}
	return frame.MustNew(
		frame.NewCategorical(counterKey, counters, nil),
		frame.NewCategorical(stationKey, stations, nil),
	)
}

// NearestStations assigns each counting station to the weather station with
// the smallest planar Euclidean distance. A k-d tree is built once over the
// stations and queried from workers goroutines (< 1 means one per CPU); each
// query writes its own slot so the result does not depend on workers.
//
// A counter id listed more than once keeps its first coordinates. Counters
// with missing coordinates are left unmapped. Ties are broken by the tree.
func NearestStations(counters, stations []Site, workers int) (*StationMap, error) {
	logger := log.GetLoggerWithName("geo.joiner")

	pts := make(points, 0, len(stations))
	for i, s := range stations {
		if math.IsNaN(s.Lat) || math.IsNaN(s.Lon) {
			continue
		}
		pts = append(pts, point{idx: i, lat: s.Lat, lon: s.Lon})
	}
	if len(pts) == 0 {
		return nil, errors.NewValueError("NearestStations", "no weather station with coordinates")
	}
	tree := kdtree.New(pts, false)

	queries := make([]Site, 0, len(counters))
	seen := make(map[string]bool, len(counters))
	skipped := 0
	for _, c := range counters {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
			skipped++
			continue
		}
		queries = append(queries, c)
	}
	if skipped > 0 {
		logger.Warn("Counters without coordinates left unmapped", log.CountersKey, skipped)
	}

	out := make([]Assignment, len(queries))
	parallel.ParallelizeWithThreshold(len(queries), 64, workers, func(start, end int) {
		for i := start; i < end; i++ {
			q := queries[i]
			got, _ := tree.Nearest(point{idx: -1, lat: q.Lat, lon: q.Lon})
			station := stations[got.(point).idx]
			out[i] = Assignment{
				Counter:  q,
				Station:  station,
				Distance: PlanarDistance(q, station),
			}
		}
	})

	m := &StationMap{assignments: out, byCounter: make(map[string]int, len(out))}
	for i, a := range out {
		m.byCounter[a.Counter.ID] = i
	}

	logger.Debug("Nearest stations computed",
		log.CountersKey, len(out),
		log.StationsKey, len(pts),
	)
	return m, nil
}

// SitesFromFrame extracts the distinct (id, latitude, longitude) triples of f
// in first-occurrence order. Rows with a null id are dropped.
func SitesFromFrame(f *frame.Frame, idCol, latCol, lonCol string) ([]Site, error) {
	distinct, err := f.Distinct(idCol, latCol, lonCol)
	if err != nil {
		return nil, errors.Wrap(err, "SitesFromFrame")
	}
	ids, _ := distinct.Column(idCol)
	lats, _ := distinct.Column(latCol)
	lons, _ := distinct.Column(lonCol)
	if lats.Kind() != frame.Numerical {
		return nil, errors.NewKindMismatchError("SitesFromFrame", latCol, frame.Numerical.String(), lats.Kind().String())
	}
	if lons.Kind() != frame.Numerical {
		return nil, errors.NewKindMismatchError("SitesFromFrame", lonCol, frame.Numerical.String(), lons.Kind().String())
	}

	sites := make([]Site, 0, distinct.NumRows())
	for i := 0; i < distinct.NumRows(); i++ {
		var id string
		switch ids.Kind() {
		case frame.Categorical:
			v, ok := ids.Str(i)
			if !ok {
				continue
			}
			id = v
		case frame.Numerical:
			if ids.IsNull(i) {
				continue
			}
			id = strconv.FormatFloat(ids.Float(i), 'f', -1, 64)
		default:
			return nil, errors.NewKindMismatchError("SitesFromFrame", idCol, frame.Categorical.String(), ids.Kind().String())
		}
		sites = append(sites, Site{ID: id, Lat: lats.Float(i), Lon: lons.Float(i)})
	}
	return sites, nil
}
