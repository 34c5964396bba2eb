// Package sqlite reads records from a SQLite table.
//
// The identifier column must hold integers (NULL rows are skipped by the
// store). The geometry column holds GeoJSON geometry text; a cell that does
// not decode is logged and the row is kept without geometry. Every other
// selected column becomes an attribute: INTEGER, REAL, TEXT, BLOB and NULL map
// to Int, Float, String, String and Null values. Rows are read in rowid
// order, which is insertion order for ordinary tables.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"featnav/internal/feature"
	"featnav/internal/geom"
	"featnav/internal/logging"
	"featnav/internal/source"
)

var sqlitelog = logging.For("sqlite")

// Defaults for Options.
const (
	DefaultIDColumn       = "OBJECTID"
	DefaultGeometryColumn = "geometry"
)

// ErrBadIdentifier is returned when an identifier cell is not an integer.
var ErrBadIdentifier = errors.New("identifier is not an integer")

// Options selects what to read.
type Options struct {
	Table          string
	IDColumn       string
	GeometryColumn string
	// Attributes lists the attribute columns. Empty means every column
	// except the identifier and geometry columns.
	Attributes []string
}

// Source is a read-only SQLite table reader.
type Source struct {
	db   *sql.DB
	path string
	opts Options
}

// Open opens the database at path read-only.
func Open(path string, opts Options) (*Source, error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("sqlite source %s: table is required", path)
	}
	if opts.IDColumn == "" {
		opts.IDColumn = DefaultIDColumn
	}
	if opts.GeometryColumn == "" {
		opts.GeometryColumn = DefaultGeometryColumn
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Source{db: db, path: path, opts: opts}, nil
}

// Close closes the database connection.
func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Source) Name() string {
	return "sqlite:" + s.path + "#" + s.opts.Table
}

// Scan reads every row of the table in rowid order.
func (s *Source) Scan(ctx context.Context, fn func(source.Row) error) error {
	attrs, err := s.attributeColumns(ctx)
	if err != nil {
		return err
	}

	cols := make([]string, 0, len(attrs)+2)
	cols = append(cols, quote(s.opts.IDColumn), quote(s.opts.GeometryColumn))
	for _, a := range attrs {
		cols = append(cols, quote(a))
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(cols, ", "), quote(s.opts.Table))
	sqlitelog.Debug("scanning table", "query", query)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query %s: %w", s.opts.Table, err)
	}
	defer rows.Close()

	cells := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range cells {
		ptrs[i] = &cells[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row %d: %w", n, err)
		}
		row, err := s.decode(cells, attrs, n)
		if err != nil {
			return fmt.Errorf("row %d: %w", n, err)
		}
		if err := fn(row); err != nil {
			if errors.Is(err, source.ErrStop) {
				return nil
			}
			return err
		}
		n++
	}
	return rows.Err()
}

func (s *Source) decode(cells []any, attrs []string, n int) (source.Row, error) {
	var row source.Row

	switch id := cells[0].(type) {
	case nil:
	case int64:
		row.ID = source.ID(id)
	default:
		return row, fmt.Errorf("%w: %s holds %T", ErrBadIdentifier, s.opts.IDColumn, id)
	}

	row.Geometry = s.geometry(cells[1], n, row.ID)

	row.Attributes = make(feature.Attributes, len(attrs))
	for i, name := range attrs {
		v, err := value(cells[i+2])
		if err != nil {
			return row, fmt.Errorf("column %s: %w", name, err)
		}
		row.Attributes[name] = v
	}
	return row, nil
}

// geometry decodes the geometry cell of row n. A malformed cell is logged and
// yields no geometry.
func (s *Source) geometry(cell any, n int, id *int64) geom.Geometry {
	var data []byte
	switch g := cell.(type) {
	case nil:
		return nil
	case string:
		data = []byte(g)
	case []byte:
		data = g
	default:
		sqlitelog.Warn("geometry dropped", "table", s.opts.Table, "row", n, "id", source.LogID(id),
			"err", fmt.Sprintf("column %s holds %T", s.opts.GeometryColumn, g))
		return nil
	}
	g, err := geom.UnmarshalGeoJSON(data)
	if err != nil {
		sqlitelog.Warn("geometry dropped", "table", s.opts.Table, "row", n, "id", source.LogID(id), "err", err)
		return nil
	}
	return g
}

func value(cell any) (feature.Value, error) {
	if t, ok := cell.(time.Time); ok {
		return feature.String(t.UTC().Format(time.RFC3339Nano)), nil
	}
	return feature.FromAny(cell)
}

// attributeColumns returns the configured attribute columns, or discovers
// them from the table when none are configured.
func (s *Source) attributeColumns(ctx context.Context) ([]string, error) {
	if len(s.opts.Attributes) > 0 {
		return s.opts.Attributes, nil
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", quote(s.opts.Table)))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", s.opts.Table, err)
	}
	defer rows.Close()
	all, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", s.opts.Table, err)
	}

	out := make([]string, 0, len(all))
	seenID, seenGeom := false, false
	for _, c := range all {
		switch {
		case strings.EqualFold(c, s.opts.IDColumn):
			seenID = true
		case strings.EqualFold(c, s.opts.GeometryColumn):
			seenGeom = true
		case strings.EqualFold(c, feature.IDField):
			// the identifier is always exposed as OID
		default:
			out = append(out, c)
		}
	}
	if !seenID {
		return nil, fmt.Errorf("table %s has no column %s", s.opts.Table, s.opts.IDColumn)
	}
	if !seenGeom {
		return nil, fmt.Errorf("table %s has no column %s", s.opts.Table, s.opts.GeometryColumn)
	}
	return out, nil
}

// quote renders an SQL identifier.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
