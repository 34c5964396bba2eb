package geom

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// ErrInvalidGeoJSON is wrapped by every decode failure.
var ErrInvalidGeoJSON = errors.New("invalid GeoJSON geometry")

// UnmarshalGeoJSON decodes a GeoJSON geometry object. A JSON null (or empty
// input) decodes to a nil Geometry without error.
func UnmarshalGeoJSON(data []byte) (Geometry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGeoJSON, err)
	}
	out := g.Geometry()
	if out == nil {
		return nil, fmt.Errorf("%w: type %q has no coordinates", ErrInvalidGeoJSON, g.Type)
	}
	return out, nil
}

// MarshalGeoJSON encodes g as a GeoJSON geometry object. A nil geometry
// encodes as null.
func MarshalGeoJSON(g Geometry) ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	return geojson.NewGeometry(g).MarshalJSON()
}
