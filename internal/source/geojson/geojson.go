// Package geojson reads records from a GeoJSON FeatureCollection file.
//
// The identifier is the feature's "id" member, or a named property when
// IDProperty is set. It must be an integer (a JSON number without a
// fraction, or a string holding one); a missing or null id yields a row
// without identifier. Properties become attributes: integral numbers are
// Int, other numbers Float, and nested objects or arrays are kept as their
// JSON text. Geometries are decoded with orb; a feature whose geometry does
// not decode is logged and kept without geometry.
//
// The collection envelope and properties are decoded feature by feature
// from raw JSON so one bad geometry cannot fail the whole collection and
// property numbers keep their integer or fractional form.
package geojson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"featnav/internal/feature"
	"featnav/internal/geom"
	"featnav/internal/logging"
	"featnav/internal/source"
)

var geojsonlog = logging.For("geojson")

// ErrInvalidFeature is wrapped by errors about a single feature.
var ErrInvalidFeature = errors.New("invalid feature")

// Options controls how features map to rows.
type Options struct {
	// IDProperty names the property holding the identifier. Empty means
	// the feature's top-level "id" member.
	IDProperty string
}

// Source reads a FeatureCollection file on every Scan.
type Source struct {
	path string
	opts Options
}

// New returns a source for the file at path. The file is not read until
// Scan.
func New(path string, opts Options) *Source {
	return &Source{path: path, opts: opts}
}

func (s *Source) Name() string {
	return "geojson:" + s.path
}

type collection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type rawFeature struct {
	Type       string                     `json:"type"`
	ID         json.RawMessage            `json:"id"`
	Geometry   json.RawMessage            `json:"geometry"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// Scan decodes the collection and yields its features in file order.
func (s *Source) Scan(ctx context.Context, fn func(source.Row) error) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var fc collection
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	if fc.Type != "FeatureCollection" {
		return fmt.Errorf("decode %s: type %q is not a FeatureCollection", s.path, fc.Type)
	}

	for i, raw := range fc.Features {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := s.decode(raw, i)
		if err != nil {
			return fmt.Errorf("features[%d]: %w", i, err)
		}
		if err := fn(row); err != nil {
			if errors.Is(err, source.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *Source) decode(raw json.RawMessage, n int) (source.Row, error) {
	var f rawFeature
	if err := json.Unmarshal(raw, &f); err != nil {
		return source.Row{}, fmt.Errorf("%w: %w", ErrInvalidFeature, err)
	}
	if f.Type != "Feature" {
		return source.Row{}, fmt.Errorf("%w: type %q", ErrInvalidFeature, f.Type)
	}

	row := source.Row{Attributes: make(feature.Attributes, len(f.Properties))}

	idRaw := f.ID
	if s.opts.IDProperty != "" {
		idRaw = f.Properties[s.opts.IDProperty]
	}
	for name, v := range f.Properties {
		if s.opts.IDProperty != "" && name == s.opts.IDProperty {
			continue
		}
		val, err := property(v)
		if err != nil {
			return source.Row{}, fmt.Errorf("%w: property %s: %w", ErrInvalidFeature, name, err)
		}
		row.Attributes[name] = val
	}
	id, ok, err := identifier(idRaw)
	if err != nil {
		return source.Row{}, fmt.Errorf("%w: %w", ErrInvalidFeature, err)
	}
	if ok {
		row.ID = source.ID(id)
	}

	g, err := geom.UnmarshalGeoJSON(f.Geometry)
	if err != nil {
		geojsonlog.Warn("geometry dropped", "file", s.path, "feature", n, "id", source.LogID(row.ID), "err", err)
	}
	row.Geometry = g
	return row, nil
}

func identifier(raw json.RawMessage) (int64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false, err
		}
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("id %s is not an integer", raw)
	}
	return id, true, nil
}

func property(raw json.RawMessage) (feature.Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return feature.Null(), nil
	}
	switch raw[0] {
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return feature.Value{}, err
		}
		return feature.String(buf.String()), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return feature.Value{}, err
		}
		return feature.String(s), nil
	}

	switch string(raw) {
	case "null":
		return feature.Null(), nil
	case "true":
		return feature.Bool(true), nil
	case "false":
		return feature.Bool(false), nil
	}
	if i, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return feature.Int(i), nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return feature.Value{}, fmt.Errorf("unsupported value %s", raw)
	}
	return feature.Float(f), nil
}
