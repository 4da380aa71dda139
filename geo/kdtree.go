package geo

import "gonum.org/v1/gonum/spatial/kdtree"

// point is a site position in raw (latitude, longitude) coordinates.
type point struct {
	idx      int
	lat, lon float64
}

// Compare implements kdtree.Comparable.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	if d == 0 {
		return p.lat - q.lat
	}
	return p.lon - q.lon
}

// Dims implements kdtree.Comparable.
func (p point) Dims() int { return 2 }

// Distance implements kdtree.Comparable as squared planar distance.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dlat, dlon := p.lat-q.lat, p.lon-q.lon
	return dlat*dlat + dlon*dlon
}

// points implements kdtree.Interface.
type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, Dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median selection.
type plane struct {
	kdtree.Dim
	points
}

func (p plane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.points[i].lat < p.points[j].lat
	}
	return p.points[i].lon < p.points[j].lon
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
