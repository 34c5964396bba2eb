// Package query scans the record store for attribute matches.
//
// Scans are linear; results are collected in a Roaring bitmap so callers get
// positions in ascending store order and cheap set algebra when combining
// scans.
package query

import (
	"github.com/RoaringBitmap/roaring/v2"

	"featnav/internal/extent"
	"featnav/internal/feature"
	"featnav/internal/store"
)

// Predicate decides whether the record at a position is selected.
type Predicate func(position int, r feature.Record) bool

// Select returns the positions of all records matching pred.
func Select(s *store.Store, pred Predicate) *roaring.Bitmap {
	bm := roaring.New()
	for pos, r := range s.All() {
		if pred(pos, r) {
			bm.Add(uint32(pos))
		}
	}
	return bm
}

// Equals matches records whose field holds a value equal to want. A record
// without the field never matches.
func Equals(field string, want feature.Value) Predicate {
	return func(_ int, r feature.Record) bool {
		got, ok := r.Attributes.Get(field)
		return ok && got.Equal(want)
	}
}

// WithoutExtent matches records that cannot be framed in a viewport.
func WithoutExtent() Predicate {
	return func(_ int, r feature.Record) bool {
		_, ok := extent.Of(r)
		return !ok
	}
}

// Filter returns, in ascending order, the positions whose attribute field
// equals value. The result is never nil.
func Filter(s *store.Store, field string, value feature.Value) []int {
	return Positions(Select(s, Equals(field, value)))
}

// Positions converts a bitmap to a position slice in ascending order.
func Positions(bm *roaring.Bitmap) []int {
	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
