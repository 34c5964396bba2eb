// Package store holds the loaded records in scan order together with an
// identifier index.
//
// The store is rebuilt only by Load. For every stored record
// index[id] == position and records[index[id]].ID == id; identifiers are
// unique. A failed load leaves the store empty, never half-built and never
// holding the previous contents.
//
// Store is not safe for concurrent use; the navigator owns it and serializes
// access.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"featnav/internal/feature"
	"featnav/internal/logging"
	"featnav/internal/source"
)

var (
	// ErrEmptySource is returned when a scan produced no row with an identifier.
	ErrEmptySource = errors.New("source has no records with an identifier")
	// ErrSourceRead wraps any failure reported by the source during a scan.
	ErrSourceRead = errors.New("reading source")
	// ErrDuplicateIdentifier is returned when two rows share an identifier.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

var logger = logging.For("store")

// Store is the ordered record collection plus identifier index.
type Store struct {
	records []feature.Record
	index   map[int64]int
}

// New returns an empty store.
func New() *Store {
	return &Store{index: make(map[int64]int)}
}

// Load clears the store and rebuilds it from src. It returns the number of
// records loaded. Rows whose identifier is null are skipped.
//
// On any error the store is left empty.
func (s *Store) Load(ctx context.Context, src source.Source) (int, error) {
	records := make([]feature.Record, 0)
	index := make(map[int64]int)
	skipped := 0

	err := src.Scan(ctx, func(row source.Row) error {
		if row.ID == nil {
			skipped++
			return nil
		}
		id := *row.ID
		if prev, dup := index[id]; dup {
			return fmt.Errorf("%w: %d at positions %d and %d", ErrDuplicateIdentifier, id, prev, len(records))
		}
		index[id] = len(records)
		records = append(records, feature.NewRecord(id, row.Geometry, row.Attributes))
		return nil
	})
	if err != nil {
		s.reset()
		if errors.Is(err, ErrDuplicateIdentifier) {
			return 0, err
		}
		return 0, fmt.Errorf("%w %s: %w", ErrSourceRead, src.Name(), err)
	}

	if skipped > 0 {
		logger.Debug("skipped rows without identifier", "source", src.Name(), "skipped", skipped)
	}
	if len(records) == 0 {
		s.reset()
		return 0, fmt.Errorf("%w: %s", ErrEmptySource, src.Name())
	}

	s.records = records
	s.index = index
	return len(records), nil
}

func (s *Store) reset() {
	s.records = nil
	s.index = make(map[int64]int)
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	return len(s.records)
}

// Get returns the record at position. Positions outside [0, Count()) are a
// caller bug and panic.
func (s *Store) Get(position int) feature.Record {
	return s.records[position]
}

// PositionOf resolves an identifier to its position.
func (s *Store) PositionOf(id int64) (int, bool) {
	pos, ok := s.index[id]
	return pos, ok
}

// All iterates records in store order.
func (s *Store) All() iter.Seq2[int, feature.Record] {
	return func(yield func(int, feature.Record) bool) {
		for i, r := range s.records {
			if !yield(i, r) {
				return
			}
		}
	}
}
