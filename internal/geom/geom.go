// Package geom adapts orb geometries to the navigation core.
//
// Records carry an orb.Geometry; the core only ever asks for its bounding
// box. Coordinates are planar (x, y); any extra ordinate in the source
// encoding (z, m) is dropped on decode.
package geom

import (
	"github.com/paulmach/orb"
)

// Geometry is the geometry carried by a record. A nil Geometry means the
// record has none.
type Geometry = orb.Geometry

// Bounds returns the box around g. It reports false for a nil geometry and
// for geometries without coordinates. Polygons are bounded by their
// exterior ring.
func Bounds(g Geometry) (BoundingBox, bool) {
	if g == nil {
		return BoundingBox{}, false
	}
	b := g.Bound()
	if b.IsEmpty() {
		return BoundingBox{}, false
	}
	return FromBound(b), true
}

// Kind names the GeoJSON type of g, or "none" for a nil geometry.
func Kind(g Geometry) string {
	if g == nil {
		return "none"
	}
	return g.GeoJSONType()
}
