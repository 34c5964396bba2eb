// Package feature defines the records the navigator walks over: an integer
// identifier, an optional geometry and a bag of typed attributes.
package feature

import (
	"sort"

	"featnav/internal/geom"
)

// IDField is the attribute under which every record carries its identifier.
const IDField = "OID"

// Attributes maps field names to values.
type Attributes map[string]Value

// Get returns the value of field and whether the field is present.
func (a Attributes) Get(field string) (Value, bool) {
	v, ok := a[field]
	return v, ok
}

// Names returns the field names in sorted order.
func (a Attributes) Names() []string {
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy; Values are immutable so this is a full copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Record is one loaded feature. Geometry is nil when the source row had none.
type Record struct {
	ID         int64
	Geometry   geom.Geometry
	Attributes Attributes
}

// NewRecord builds a record whose attributes are extra plus the identifier
// under IDField. A source-supplied IDField is overwritten.
func NewRecord(id int64, g geom.Geometry, extra Attributes) Record {
	attrs := make(Attributes, len(extra)+1)
	for k, v := range extra {
		attrs[k] = v
	}
	attrs[IDField] = Int(id)
	return Record{ID: id, Geometry: g, Attributes: attrs}
}
