// Package source defines the reader contract the record store loads from.
//
// A Source yields rows in a stable order. Each row exposes a nullable
// identifier, a nullable geometry and any extra attributes the backing data
// carries. Concrete readers live in the sqlite, bolt and geojson
// subpackages.
package source

import (
	"context"
	"errors"

	"featnav/internal/feature"
	"featnav/internal/geom"
)

// ErrStop can be returned from a scan callback to end the scan early without
// reporting an error.
var ErrStop = errors.New("stop scan")

// Row is one record as read from a source. ID is nil when the source value
// was null. Geometry is nil when the source value was null or malformed;
// such rows are still stored but cannot be framed.
type Row struct {
	ID         *int64
	Geometry   geom.Geometry
	Attributes feature.Attributes
}

// Source is a bulk reader of rows.
type Source interface {
	// Name identifies the source in logs and status output.
	Name() string
	// Scan calls fn for every row in stable order. A non-nil error from fn
	// stops the scan and is returned unchanged (except ErrStop, which
	// ends the scan with a nil error).
	Scan(ctx context.Context, fn func(Row) error) error
}

// ID returns a pointer to id, for building rows.
func ID(id int64) *int64 {
	return &id
}

// LogID renders a row identifier for log attributes.
func LogID(id *int64) any {
	if id == nil {
		return "null"
	}
	return *id
}

// Memory is an in-process source over a fixed slice of rows. Err, when set,
// is returned after FailAfter rows have been delivered.
type Memory struct {
	Label     string
	Rows      []Row
	Err       error
	FailAfter int
}

func (m *Memory) Name() string {
	if m.Label == "" {
		return "memory"
	}
	return m.Label
}

func (m *Memory) Scan(ctx context.Context, fn func(Row) error) error {
	for i, row := range m.Rows {
		if m.Err != nil && i >= m.FailAfter {
			return m.Err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	if m.Err != nil {
		return m.Err
	}
	return nil
}
