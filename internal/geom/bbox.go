package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox is an axis-aligned rectangle. A box whose min equals its max
// on both axes is valid and frames a single point.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// FromBound converts an orb bound.
func FromBound(b orb.Bound) BoundingBox {
	return BoundingBox{MinX: b.Min.X(), MinY: b.Min.Y(), MaxX: b.Max.X(), MaxY: b.Max.Y()}
}

// Bound converts the box back to an orb bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

func (b BoundingBox) Width() float64  { return b.MaxX - b.MinX }
func (b BoundingBox) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of the box.
func (b BoundingBox) Center() orb.Point {
	return b.Bound().Center()
}

// Diagonal returns the length of the box diagonal.
func (b BoundingBox) Diagonal() float64 {
	return math.Hypot(b.Width(), b.Height())
}

// IsPoint reports whether the box has zero width and height.
func (b BoundingBox) IsPoint() bool {
	return b.Width() == 0 && b.Height() == 0
}

// Union returns the smallest box enclosing both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return FromBound(b.Bound().Union(o.Bound()))
}

// Pad grows the box by ratio of its size on every side. When the box is a
// point, minSize is used as the side length instead so the result still has
// an area.
func (b BoundingBox) Pad(ratio, minSize float64) BoundingBox {
	w, h := b.Width(), b.Height()
	if w == 0 && h == 0 {
		half := minSize / 2
		return BoundingBox{MinX: b.MinX - half, MinY: b.MinY - half, MaxX: b.MaxX + half, MaxY: b.MaxY + half}
	}
	dx, dy := w*ratio, h*ratio
	return BoundingBox{MinX: b.MinX - dx, MinY: b.MinY - dy, MaxX: b.MaxX + dx, MaxY: b.MaxY + dy}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%g %g, %g %g]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}
