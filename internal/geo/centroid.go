// Package geo aggregates incident coordinates into per-area centroids.
package geo

import (
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/crime-map/internal/incident"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Geom returns p as a go-geom point with SRID 4326 (X = lon, Y = lat).
func (p Point) Geom() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(4326)
}

// Centroids maps an area id to the mean coordinate of its incidents.
type Centroids map[int]Point

// Aggregate computes the centroid of every area from records that carry an
// area and both coordinates. Areas without such a record are absent.
func Aggregate(records []incident.Record) Centroids {
	flat := make(map[int][]float64)
	for _, r := range records {
		if r.Area == nil || !r.HasCoordinates() {
			continue
		}
		flat[*r.Area] = append(flat[*r.Area], *r.Lon, *r.Lat)
	}

	out := make(Centroids, len(flat))
	for area, coords := range flat {
		c := xy.MultiPointCentroid(geom.NewMultiPointFlat(geom.XY, coords))
		out[area] = Point{Lat: c.Y(), Lon: c.X()}
	}
	return out
}

// Lookup returns the centroid of area. The boolean is false when the area
// has no known centroid; the Point is then zero and must not be used.
func (c Centroids) Lookup(area int) (Point, bool) {
	p, ok := c[area]
	return p, ok
}

// Areas returns the known area ids in ascending order.
func (c Centroids) Areas() []int {
	areas := make([]int, 0, len(c))
	for a := range c {
		areas = append(areas, a)
	}
	sort.Ints(areas)
	return areas
}
