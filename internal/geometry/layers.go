// Package geometry converts plot polygon layers to go-geom shapes and
// derives planar areas when the upstream subsystem supplied none.
package geometry

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/landgrid/geoaudit/internal/model"
)

// Ring converts layer points to a closed go-geom linear ring. Returns nil for
// degenerate input (fewer than three vertices).
func Ring(points []model.Point) *geom.LinearRing {
	if len(points) < 3 {
		return nil
	}

	coords := make([]float64, 0, (len(points)+1)*2)
	for _, p := range points {
		coords = append(coords, p[0], p[1])
	}
	// Close the ring if the source left it open.
	first, last := points[0], points[len(points)-1]
	if first != last {
		coords = append(coords, first[0], first[1])
	}

	return geom.NewLinearRingFlat(geom.XY, coords)
}

// Polygon converts layer points to a single-ring go-geom polygon, or nil for
// degenerate input.
func Polygon(points []model.Point) *geom.Polygon {
	ring := Ring(points)
	if ring == nil {
		return nil
	}
	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, ring.FlatCoords())); err != nil {
		return nil
	}
	return poly
}

// LayerArea returns the layer's recorded area, falling back to the planar
// polygon area when the upstream value is zero but geometry exists. Winding
// order is irrelevant: the result is always non-negative.
func LayerArea(layer model.PolygonLayer) float64 {
	if layer.AreaSqM > 0 {
		return layer.AreaSqM
	}
	poly := Polygon(layer.Points)
	if poly == nil {
		return 0
	}
	return math.Abs(poly.Area())
}
