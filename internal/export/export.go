// Package export writes the loaded records as a table.
//
// Columns are Index (zero-based store position), OID, every other attribute
// name in sorted order, then the record extent as minx, miny, maxx, maxy.
// An attribute named like a built-in column is exported as attr_<name>.
// Records missing an attribute or an extent get null cells.
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"featnav/internal/extent"
	"featnav/internal/feature"
	"featnav/internal/logging"
	"featnav/internal/store"
)

var exportlog = logging.For("export")

// ErrUnknownFormat is returned for an unsupported format name or extension.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an output table format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Column names that frame the attribute columns.
const (
	ColumnIndex = "Index"
	ColumnMinX  = "minx"
	ColumnMinY  = "miny"
	ColumnMaxX  = "maxx"
	ColumnMaxY  = "maxy"
)

// ParseFormat accepts csv, json, yaml and yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Options controls an export.
type Options struct {
	// Format of the table. Empty means infer from the file name.
	Format Format
}

// table is the store flattened to columns and cells.
type table struct {
	columns []string
	rows    [][]feature.Value
}

// AttributePrefix is prepended to an attribute whose name collides with a
// built-in column, until the name is unique.
const AttributePrefix = "attr_"

// Columns returns the export header for s.
func Columns(s *store.Store) []string {
	cols, _ := layout(s)
	return cols
}

// layout returns the header and, in header order, the attribute each
// attribute column reads.
func layout(s *store.Store) ([]string, []string) {
	names := map[string]struct{}{}
	for _, r := range s.All() {
		for name := range r.Attributes {
			if name != feature.IDField {
				names[name] = struct{}{}
			}
		}
	}
	attrs := make([]string, 0, len(names))
	for name := range names {
		attrs = append(attrs, name)
	}
	slices.Sort(attrs)

	reserved := map[string]bool{
		ColumnIndex: true, feature.IDField: true,
		ColumnMinX: true, ColumnMinY: true, ColumnMaxX: true, ColumnMaxY: true,
	}
	cols := make([]string, 0, len(attrs)+6)
	cols = append(cols, ColumnIndex, feature.IDField)
	for _, name := range attrs {
		col := name
		for {
			_, attr := names[col]
			if !reserved[col] && (col == name || !attr) {
				break
			}
			col = AttributePrefix + col
		}
		if col != name {
			exportlog.Debug("attribute renamed", "attribute", name, "column", col)
		}
		reserved[col] = true
		cols = append(cols, col)
	}
	return append(cols, ColumnMinX, ColumnMinY, ColumnMaxX, ColumnMaxY), attrs
}

func build(s *store.Store) table {
	cols, attrs := layout(s)
	t := table{columns: cols, rows: make([][]feature.Value, 0, s.Count())}
	for pos, r := range s.All() {
		row := make([]feature.Value, 0, len(t.columns))
		row = append(row, feature.Int(int64(pos)), feature.Int(r.ID))
		for _, name := range attrs {
			v, ok := r.Attributes.Get(name)
			if !ok {
				v = feature.Null()
			}
			row = append(row, v)
		}
		if box, ok := extent.Of(r); ok {
			row = append(row, feature.Float(box.MinX), feature.Float(box.MinY), feature.Float(box.MaxX), feature.Float(box.MaxY))
		} else {
			row = append(row, feature.Null(), feature.Null(), feature.Null(), feature.Null())
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// Write renders every record of s to w and returns the number of rows.
func Write(w io.Writer, s *store.Store, opts Options) (int, error) {
	t := build(s)
	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(w, t)
	case FormatJSON:
		err = writeJSON(w, t)
	case FormatYAML:
		err = writeYAML(w, t)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if err != nil {
		return 0, err
	}
	return len(t.rows), nil
}

// FormatForPath infers the table format from a file name, ignoring a
// trailing compression suffix.
func FormatForPath(path string) (Format, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(path, SuffixZstd), SuffixLZ4)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: no extension on %s", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}
