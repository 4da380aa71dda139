package geo

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

func randomSites(r *rand.Rand, prefix string, n int) []Site {
	sites := make([]Site, n)
	for i := range sites {
		sites[i] = Site{
			ID:  fmt.Sprintf("%s%d", prefix, i),
			Lat: 48.8 + r.Float64()*0.1,
			Lon: 2.25 + r.Float64()*0.2,
		}
	}
	return sites
}

func bruteForce(c Site, stations []Site) (Site, float64) {
	best, bestD := stations[0], math.Inf(1)
	for _, s := range stations {
		if d := PlanarDistance(c, s); d < bestD {
			best, bestD = s, d
		}
	}
	return best, bestD
}

func TestNearestStations_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	stations := randomSites(r, "st", 40)
	counters := randomSites(r, "c", 300)

	for _, workers := range []int{1, 3, 0} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			m, err := NearestStations(counters, stations, workers)
			if err != nil {
				t.Fatal(err)
			}
			if m.Len() != len(counters) {
				t.Fatalf("mapped %d counters, want %d", m.Len(), len(counters))
			}
			for _, c := range counters {
				got, ok := m.Station(c.ID)
				if !ok {
					t.Fatalf("counter %s missing", c.ID)
				}
				want, wantD := bruteForce(c, stations)
				if got != want.ID {
					// Equal distances are allowed to resolve either way.
					var gotSite Site
					for _, s := range stations {
						if s.ID == got {
							gotSite = s
						}
					}
					if math.Abs(PlanarDistance(c, gotSite)-wantD) > 1e-12 {
						t.Fatalf("counter %s: got %s, want %s", c.ID, got, want.ID)
					}
				}
			}
		})
	}
}

func TestNearestStations_EveryCounterOnceAndStationFromInput(t *testing.T) {
	stations := []Site{
		{ID: "75114001", Lat: 48.8217, Lon: 2.3378},
		{ID: "75106001", Lat: 48.8447, Lon: 2.3325},
	}
	counters := []Site{
		{ID: "a", Lat: 48.82, Lon: 2.33},
		{ID: "b", Lat: 48.85, Lon: 2.33},
		{ID: "a", Lat: 48.85, Lon: 2.33}, // duplicate id keeps first coordinates
		{ID: "c", Lat: math.NaN(), Lon: 2.33},
	}

	m, err := NearestStations(counters, stations, 2)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if got, _ := m.Station("a"); got != "75114001" {
		t.Errorf("a -> %s", got)
	}
	if got, _ := m.Station("b"); got != "75106001" {
		t.Errorf("b -> %s", got)
	}
	if _, ok := m.Station("c"); ok {
		t.Error("counter without coordinates should be unmapped")
	}

	f := m.Frame("counter_id", "id_poste")
	if f.NumRows() != 2 || f.Names()[1] != "id_poste" {
		t.Fatalf("unexpected frame %v rows=%d", f.Names(), f.NumRows())
	}
	far, ok := m.Farthest()
	if !ok || far.Counter.ID != "b" && far.Counter.ID != "a" {
		t.Fatalf("Farthest = %+v", far)
	}
}

func TestNearestStations_MissingCoordinatesUnmapped(t *testing.T) {
	stations := []Site{
		{ID: "75114001", Lat: 48.8217, Lon: 2.3378},
		{ID: "75106001", Lat: 48.8447, Lon: 2.3325},
	}
	counters := []Site{
		{ID: "no-lat", Lat: math.NaN(), Lon: 2.33},
		{ID: "mapped", Lat: 48.85, Lon: 2.34},
		{ID: "no-lon", Lat: 48.82, Lon: math.NaN()},
	}

	m, err := NearestStations(counters, stations, 1)
	if err != nil {
		t.Fatal(err)
	}
	as := m.Assignments()
	if len(as) != 1 || as[0].Counter.ID != "mapped" {
		t.Fatalf("assignments = %+v", as)
	}
	for _, id := range []string{"no-lat", "no-lon"} {
		if _, ok := m.Station(id); ok {
			t.Errorf("%s should be unmapped", id)
		}
	}
	if rows := m.Frame("counter_id", "id_poste").NumRows(); rows != 1 {
		t.Errorf("join frame has %d rows, want 1", rows)
	}

	want := math.Hypot(48.85-48.8447, 2.34-2.3325)
	if math.Abs(as[0].Distance-want) > 1e-12 {
		t.Errorf("Distance = %v, want %v", as[0].Distance, want)
	}
}

func TestNearestStations_NoStations(t *testing.T) {
	_, err := NearestStations([]Site{{ID: "a", Lat: 1, Lon: 1}}, nil, 1)
	var ve *errors.ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValueError, got %v", err)
	}
}

func TestDistances(t *testing.T) {
	a := Site{Lat: 48.0, Lon: 2.35}
	b := Site{Lat: 49.0, Lon: 2.35}

	if got := PlanarDistance(a, b); math.Abs(got-1) > 1e-12 {
		t.Errorf("PlanarDistance = %v, want 1", got)
	}
	// One degree of latitude is about 111.2 km.
	if got := GreatCircleKM(a, b); math.Abs(got-111.195) > 0.01 {
		t.Errorf("GreatCircleKM = %v", got)
	}
}

func TestSitesFromFrame(t *testing.T) {
	f := frame.MustNew(
		frame.NewCategorical("id_poste", []string{"1", "2", "1", ""}, []bool{true, true, true, false}),
		frame.NewNumerical("latitude", []float64{48.1, 48.2, 48.1, 48.3}),
		frame.NewNumerical("longitude", []float64{2.1, 2.2, 2.1, 2.3}),
		frame.NewNumerical("temperature", []float64{10, 11, 12, 13}),
	)
	sites, err := SitesFromFrame(f, "id_poste", "latitude", "longitude")
	if err != nil {
		t.Fatal(err)
	}
	want := []Site{{"1", 48.1, 2.1}, {"2", 48.2, 2.2}}
	if len(sites) != len(want) {
		t.Fatalf("got %v", sites)
	}
	for i := range want {
		if sites[i] != want[i] {
			t.Errorf("site %d = %+v, want %+v", i, sites[i], want[i])
		}
	}

	_, err = SitesFromFrame(f, "id_poste", "latitude", "missing")
	var cnf *errors.ColumnNotFoundError
	if !errors.As(err, &cnf) {
		t.Fatalf("expected ColumnNotFoundError, got %v", err)
	}
}
