package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-map/internal/incident"
)

func fptr(f float64) *float64 { return &f }

func rec(area int, lat, lon *float64) incident.Record {
	return incident.Record{Area: &area, Lat: lat, Lon: lon}
}

func TestAggregate_MeanPerArea(t *testing.T) {
	records := []incident.Record{
		rec(1, fptr(34.0), fptr(-118.0)),
		rec(1, fptr(34.2), fptr(-118.2)),
		rec(2, nil, nil),
	}

	c := Aggregate(records)

	require.Len(t, c, 1)
	p, ok := c.Lookup(1)
	require.True(t, ok)
	assert.InDelta(t, 34.1, p.Lat, 1e-9)
	assert.InDelta(t, -118.1, p.Lon, 1e-9)

	_, ok = c.Lookup(2)
	assert.False(t, ok)
}

func TestAggregate_PartialCoordinatesExcluded(t *testing.T) {
	records := []incident.Record{
		rec(5, fptr(34.0), fptr(-118.0)),
		rec(5, fptr(99.0), nil),
		rec(5, nil, fptr(-10.0)),
		rec(5, fptr(36.0), fptr(-120.0)),
	}

	p, ok := Aggregate(records).Lookup(5)
	require.True(t, ok)
	assert.InDelta(t, 35.0, p.Lat, 1e-9)
	assert.InDelta(t, -119.0, p.Lon, 1e-9)
}

func TestAggregate_Empty(t *testing.T) {
	c := Aggregate(nil)
	assert.NotNil(t, c)
	assert.Empty(t, c)

	p, ok := c.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, Point{}, p)
}

func TestAggregate_SingleRow(t *testing.T) {
	p, ok := Aggregate([]incident.Record{rec(21, fptr(34.18), fptr(-118.58))}).Lookup(21)
	require.True(t, ok)
	assert.InDelta(t, 34.18, p.Lat, 1e-9)
	assert.InDelta(t, -118.58, p.Lon, 1e-9)
}

func TestAreas_Sorted(t *testing.T) {
	c := Centroids{7: {}, 1: {}, 21: {}}
	assert.Equal(t, []int{1, 7, 21}, c.Areas())
}

func TestPointGeom(t *testing.T) {
	g := Point{Lat: 34.1, Lon: -118.1}.Geom()
	assert.Equal(t, 4326, g.SRID())
	assert.InDelta(t, -118.1, g.X(), 1e-9)
	assert.InDelta(t, 34.1, g.Y(), 1e-9)
}

func TestAggregate_SkipsEmptyArea(t *testing.T) {
	records := []incident.Record{
		rec(1, fptr(34.0), fptr(-118.0)),
		{Lat: fptr(10.0), Lon: fptr(10.0)},
	}

	c := Aggregate(records)

	assert.Equal(t, []int{1}, c.Areas())
	p, ok := c.Lookup(1)
	require.True(t, ok)
	assert.InDelta(t, 34.0, p.Lat, 1e-9)
	assert.InDelta(t, -118.0, p.Lon, 1e-9)
}
