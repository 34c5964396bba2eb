package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featnav/internal/extent"
	"featnav/internal/feature"
	"featnav/internal/geom"
	"featnav/internal/logging"
	"featnav/internal/navigator"
	"featnav/internal/source"
	"featnav/internal/store"
)

func createDB(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parcels.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

const parcels = `CREATE TABLE parcels (
	OBJECTID INTEGER,
	geometry TEXT,
	ZONE TEXT,
	AREA REAL,
	FLOORS INTEGER
)`

func collect(t *testing.T, src source.Source) []source.Row {
	t.Helper()
	var rows []source.Row
	require.NoError(t, src.Scan(context.Background(), func(r source.Row) error {
		rows = append(rows, r)
		return nil
	}))
	return rows
}

func TestScanTypesAndOrder(t *testing.T) {
	path := createDB(t, parcels,
		`INSERT INTO parcels VALUES (30, '{"type":"Point","coordinates":[1,2]}', 'R1', 12.5, 3)`,
		`INSERT INTO parcels VALUES (10, NULL, NULL, NULL, NULL)`,
		`INSERT INTO parcels VALUES (NULL, '{"type":"Point","coordinates":[0,0]}', 'C2', 1, 1)`,
		`INSERT INTO parcels VALUES (20, '{"type":"LineString","coordinates":[[0,0],[3,4]]}', '7', 2.0, 7)`,
	)
	src, err := Open(path, Options{Table: "parcels"})
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, "sqlite:"+path+"#parcels", src.Name())

	rows := collect(t, src)
	require.Len(t, rows, 4)

	require.NotNil(t, rows[0].ID)
	assert.Equal(t, int64(30), *rows[0].ID)
	assert.Equal(t, orb.Point{1, 2}, rows[0].Geometry)
	assert.Equal(t, feature.Attributes{
		"ZONE":   feature.String("R1"),
		"AREA":   feature.Float(12.5),
		"FLOORS": feature.Int(3),
	}, rows[0].Attributes)

	assert.Nil(t, rows[1].Geometry)
	assert.True(t, rows[1].Attributes["ZONE"].IsNull())

	assert.Nil(t, rows[2].ID)

	assert.Equal(t, feature.String("7"), rows[3].Attributes["ZONE"], "TEXT stays a string")
	assert.Equal(t, feature.Float(2), rows[3].Attributes["AREA"], "REAL stays a float")
}

func TestLoadIntoStore(t *testing.T) {
	path := createDB(t, parcels,
		`INSERT INTO parcels VALUES (10, '{"type":"Point","coordinates":[1,2]}', 'R1', 1, 1)`,
		`INSERT INTO parcels VALUES (NULL, NULL, NULL, NULL, NULL)`,
		`INSERT INTO parcels VALUES (20, NULL, 'C2', 2, 2)`,
	)
	src, err := Open(path, Options{Table: "parcels"})
	require.NoError(t, err)
	defer src.Close()

	s := store.New()
	n, err := s.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	pos, ok := s.PositionOf(20)
	require.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestSelectedAttributes(t *testing.T) {
	path := createDB(t, parcels,
		`INSERT INTO parcels VALUES (1, NULL, 'R1', 5, 2)`,
	)
	src, err := Open(path, Options{Table: "parcels", Attributes: []string{"FLOORS"}})
	require.NoError(t, err)
	defer src.Close()

	rows := collect(t, src)
	require.Len(t, rows, 1)
	assert.Equal(t, feature.Attributes{"FLOORS": feature.Int(2)}, rows[0].Attributes)
}

func TestCustomColumns(t *testing.T) {
	path := createDB(t,
		`CREATE TABLE "odd table" (fid INTEGER, shape TEXT, name TEXT)`,
		`INSERT INTO "odd table" VALUES (4, '{"type":"Point","coordinates":[9,9]}', 'x')`,
	)
	src, err := Open(path, Options{Table: "odd table", IDColumn: "fid", GeometryColumn: "shape"})
	require.NoError(t, err)
	defer src.Close()

	rows := collect(t, src)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), *rows[0].ID)
	assert.Equal(t, feature.Attributes{"name": feature.String("x")}, rows[0].Attributes)
}

func TestScanErrors(t *testing.T) {
	path := createDB(t, parcels,
		`INSERT INTO parcels VALUES (1, '{"type":"Point","coordinates":[1,2]}', 'R1', 1, 1)`,
		`INSERT INTO parcels VALUES ('abc', NULL, NULL, NULL, NULL)`,
	)

	t.Run("bad identifier", func(t *testing.T) {
		src, err := Open(path, Options{Table: "parcels"})
		require.NoError(t, err)
		defer src.Close()

		s := store.New()
		_, err = s.Load(context.Background(), src)
		assert.ErrorIs(t, err, store.ErrSourceRead)
		assert.ErrorIs(t, err, ErrBadIdentifier)
		assert.Zero(t, s.Count())
	})

	t.Run("missing table", func(t *testing.T) {
		src, err := Open(path, Options{Table: "nope"})
		require.NoError(t, err)
		defer src.Close()
		assert.Error(t, src.Scan(context.Background(), func(source.Row) error { return nil }))
	})

	t.Run("missing id column", func(t *testing.T) {
		src, err := Open(path, Options{Table: "parcels", IDColumn: "fid"})
		require.NoError(t, err)
		defer src.Close()
		err = src.Scan(context.Background(), func(source.Row) error { return nil })
		assert.ErrorContains(t, err, "no column fid")
	})

	t.Run("no table configured", func(t *testing.T) {
		_, err := Open(path, Options{})
		assert.Error(t, err)
	})
}

func TestMalformedGeometryKeepsRow(t *testing.T) {
	capture := logging.CaptureForTest()
	defer capture.Restore()

	path := createDB(t, parcels,
		`INSERT INTO parcels VALUES (1, '{"type":"Point","coordinates":[1,1]}', 'R1', NULL, NULL)`,
		`INSERT INTO parcels VALUES (2, 'not json', 'R2', NULL, NULL)`,
		`INSERT INTO parcels VALUES (3, '{"type":"Point","coordinates":[3,3]}', 'R3', NULL, NULL)`,
		`INSERT INTO parcels VALUES (4, 42, 'R4', NULL, NULL)`,
	)
	src, err := Open(path, Options{Table: "parcels"})
	require.NoError(t, err)
	defer src.Close()

	var framed []geom.BoundingBox
	nav := navigator.New(src, navigator.WithViewport(navigator.ViewportFunc(func(b geom.BoundingBox) {
		framed = append(framed, b)
	})))
	n, err := nav.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var s *store.Store
	require.NoError(t, nav.Export(func(st *store.Store) error { s = st; return nil }))
	rec := s.Get(1)
	assert.Equal(t, int64(2), rec.ID)
	assert.Nil(t, rec.Geometry)
	_, ok := extent.Of(rec)
	assert.False(t, ok)
	assert.Equal(t, feature.String("R2"), rec.Attributes["ZONE"])
	assert.Nil(t, s.Get(3).Geometry)

	framed = nil
	rec, err = nav.GoToID(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.ID)
	assert.Empty(t, framed, "a record without geometry is not framed")

	_, err = nav.GoToID(3)
	require.NoError(t, err)
	assert.Len(t, framed, 1)

	assert.True(t, capture.HasAttr(slog.LevelWarn, "geometry dropped", "id", "2"))
	assert.True(t, capture.HasAttr(slog.LevelWarn, "geometry dropped", "id", "4"))
}

func TestScanStop(t *testing.T) {
	path := createDB(t, parcels,
		`INSERT INTO parcels VALUES (1, NULL, NULL, NULL, NULL)`,
		`INSERT INTO parcels VALUES (2, NULL, NULL, NULL, NULL)`,
	)
	src, err := Open(path, Options{Table: "parcels"})
	require.NoError(t, err)
	defer src.Close()

	calls := 0
	err = src.Scan(context.Background(), func(source.Row) error {
		calls++
		return source.ErrStop
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
