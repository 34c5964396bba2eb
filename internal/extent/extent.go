// Package extent derives viewport boxes from records.
package extent

import (
	"iter"

	"featnav/internal/feature"
	"featnav/internal/geom"
)

// Of returns the minimal axis-aligned box around the record's geometry.
// It reports false when the record has no geometry or the geometry has no
// coordinates. No padding is applied.
func Of(r feature.Record) (geom.BoundingBox, bool) {
	return geom.Bounds(r.Geometry)
}

// Union folds the extents of records into one box. It reports false when no
// record had an extent.
func Union(records iter.Seq[feature.Record]) (geom.BoundingBox, bool) {
	var out geom.BoundingBox
	found := false
	for r := range records {
		box, ok := Of(r)
		if !ok {
			continue
		}
		if !found {
			out, found = box, true
			continue
		}
		out = out.Union(box)
	}
	return out, found
}
