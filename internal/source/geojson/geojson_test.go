package geojson

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featnav/internal/feature"
	"featnav/internal/logging"
	"featnav/internal/source"
	"featnav/internal/store"
)

const parcels = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 30,
     "geometry": {"type": "Point", "coordinates": [1, 2]},
     "properties": {"ZONE": "R1", "AREA": 12.5, "FLOORS": 3, "ACTIVE": true, "NOTE": null,
                    "TAGS": ["a", "b"], "META": {"k": 1}}},
    {"type": "Feature", "id": "10", "geometry": null, "properties": {"ZONE": "7"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]}, "properties": {}},
    {"type": "Feature", "id": 20,
     "geometry": {"type": "LineString", "coordinates": [[0, 0], [3, 4]]},
     "properties": {"AREA": 2.0}}
  ]
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parcels.geojson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func collect(t *testing.T, src source.Source) []source.Row {
	t.Helper()
	var rows []source.Row
	require.NoError(t, src.Scan(context.Background(), func(r source.Row) error {
		rows = append(rows, r)
		return nil
	}))
	return rows
}

func TestScanFeatures(t *testing.T) {
	path := writeFile(t, parcels)
	src := New(path, Options{})
	assert.Equal(t, "geojson:"+path, src.Name())

	rows := collect(t, src)
	require.Len(t, rows, 4)

	assert.Equal(t, int64(30), *rows[0].ID)
	assert.Equal(t, orb.Point{1, 2}, rows[0].Geometry)
	assert.Equal(t, feature.Attributes{
		"ZONE":   feature.String("R1"),
		"AREA":   feature.Float(12.5),
		"FLOORS": feature.Int(3),
		"ACTIVE": feature.Bool(true),
		"NOTE":   feature.Null(),
		"TAGS":   feature.String(`["a","b"]`),
		"META":   feature.String(`{"k":1}`),
	}, rows[0].Attributes)

	assert.Equal(t, int64(10), *rows[1].ID, "string identifiers are parsed")
	assert.Nil(t, rows[1].Geometry)
	assert.Equal(t, feature.String("7"), rows[1].Attributes["ZONE"])

	assert.Nil(t, rows[2].ID)

	assert.Equal(t, feature.Float(2), rows[3].Attributes["AREA"], "2.0 keeps its fraction")
}

func TestLoadIntoStore(t *testing.T) {
	s := store.New()
	n, err := s.Load(context.Background(), New(writeFile(t, parcels), Options{}))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pos, ok := s.PositionOf(20)
	require.True(t, ok)
	assert.Equal(t, 2, pos)
}

func TestIDProperty(t *testing.T) {
	path := writeFile(t, `{"type": "FeatureCollection", "features": [
		{"type": "Feature", "id": 1, "geometry": null, "properties": {"FID": 77, "NAME": "x"}},
		{"type": "Feature", "id": 2, "geometry": null, "properties": {"NAME": "y"}}
	]}`)

	rows := collect(t, New(path, Options{IDProperty: "FID"}))
	require.Len(t, rows, 2)
	assert.Equal(t, int64(77), *rows[0].ID)
	assert.Equal(t, feature.Attributes{"NAME": feature.String("x")}, rows[0].Attributes)
	assert.Nil(t, rows[1].ID, "the member id is ignored when a property is configured")
}

func TestScanErrors(t *testing.T) {
	cases := map[string]string{
		"not a collection": `{"type": "Feature", "geometry": null, "properties": {}}`,
		"fractional id":    `{"type": "FeatureCollection", "features": [{"type": "Feature", "id": 1.5, "geometry": null}]}`,
		"text id":          `{"type": "FeatureCollection", "features": [{"type": "Feature", "id": "abc", "geometry": null}]}`,
		"bad member":       `{"type": "FeatureCollection", "features": [{"type": "Point"}]}`,
		"truncated":        `{"type": "FeatureCollection", "features": [`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			err := New(writeFile(t, content), Options{}).Scan(context.Background(), func(source.Row) error { return nil })
			assert.Error(t, err)
		})
	}

	t.Run("invalid feature is wrapped", func(t *testing.T) {
		err := New(writeFile(t, cases["fractional id"]), Options{}).Scan(context.Background(), func(source.Row) error { return nil })
		assert.ErrorIs(t, err, ErrInvalidFeature)
		assert.ErrorContains(t, err, "features[0]")
	})

	t.Run("missing file", func(t *testing.T) {
		err := New(filepath.Join(t.TempDir(), "nope.geojson"), Options{}).Scan(context.Background(), func(source.Row) error { return nil })
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestMalformedGeometryKeepsFeature(t *testing.T) {
	capture := logging.CaptureForTest()
	defer capture.Restore()

	path := writeFile(t, `{"type": "FeatureCollection", "features": [
		{"type": "Feature", "id": 1, "geometry": {"type": "Point", "coordinates": [1, 1]}, "properties": {}},
		{"type": "Feature", "id": 2, "geometry": {"type": "Circle", "coordinates": [2, 2]}, "properties": {"ZONE": "R2"}},
		{"type": "Feature", "id": 3, "geometry": {"type": "Point", "coordinates": [3, 3]}, "properties": {}}
	]}`)

	s := store.New()
	n, err := s.Load(context.Background(), New(path, Options{}))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rec := s.Get(1)
	assert.Equal(t, int64(2), rec.ID)
	assert.Nil(t, rec.Geometry)
	assert.Equal(t, feature.String("R2"), rec.Attributes["ZONE"])
	assert.Equal(t, orb.Point{3, 3}, s.Get(2).Geometry)

	assert.True(t, capture.HasAttr(slog.LevelWarn, "geometry dropped", "id", "2"))
}

func TestScanStopAndCancel(t *testing.T) {
	src := New(writeFile(t, parcels), Options{})

	calls := 0
	err := src.Scan(context.Background(), func(source.Row) error {
		calls++
		return source.ErrStop
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = src.Scan(ctx, func(source.Row) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
