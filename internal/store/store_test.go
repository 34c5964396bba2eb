package store

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featnav/internal/feature"
	"featnav/internal/source"
)

func rowsWithIDs(ids ...int64) []source.Row {
	rows := make([]source.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, source.Row{
			ID:       source.ID(id),
			Geometry: orb.Point{float64(id), float64(id)},
		})
	}
	return rows
}

func TestLoadKeepsScanOrderAndIndex(t *testing.T) {
	s := New()
	n, err := s.Load(context.Background(), &source.Memory{Rows: rowsWithIDs(30, 10, 20)})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, s.Count())

	for pos, r := range s.All() {
		got, ok := s.PositionOf(r.ID)
		require.True(t, ok)
		assert.Equal(t, pos, got)
		assert.Equal(t, r.ID, s.Get(got).ID)
	}
	assert.Equal(t, int64(30), s.Get(0).ID)
	assert.Equal(t, int64(20), s.Get(2).ID)
}

func TestLoadSeedsIdentifierAttribute(t *testing.T) {
	s := New()
	rows := []source.Row{{
		ID:         source.ID(7),
		Attributes: feature.Attributes{"ZONE": feature.String("R1")},
	}}
	_, err := s.Load(context.Background(), &source.Memory{Rows: rows})
	require.NoError(t, err)

	r := s.Get(0)
	v, ok := r.Attributes.Get(feature.IDField)
	require.True(t, ok)
	assert.True(t, feature.Int(7).Equal(v))
	v, ok = r.Attributes.Get("ZONE")
	require.True(t, ok)
	assert.True(t, feature.String("R1").Equal(v))
}

func TestLoadSkipsNullIdentifiers(t *testing.T) {
	rows := []source.Row{
		{ID: source.ID(1)},
		{ID: nil},
		{ID: source.ID(2)},
		{ID: nil},
		{ID: source.ID(3)},
	}
	s := New()
	n, err := s.Load(context.Background(), &source.Memory{Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// positions stay contiguous even though rows were skipped
	pos, ok := s.PositionOf(3)
	require.True(t, ok)
	assert.Equal(t, 2, pos)
}

func TestLoadEmptySource(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), &source.Memory{Rows: rowsWithIDs(1, 2)})
	require.NoError(t, err)

	n, err := s.Load(context.Background(), &source.Memory{})
	assert.ErrorIs(t, err, ErrEmptySource)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.Count())
	_, ok := s.PositionOf(1)
	assert.False(t, ok)
}

func TestLoadOnlyNullIdentifiersIsEmpty(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), &source.Memory{Rows: []source.Row{{}, {}}})
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestLoadReadFailureLeavesStoreEmpty(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), &source.Memory{Rows: rowsWithIDs(1, 2, 3)})
	require.NoError(t, err)

	cause := errors.New("disk on fire")
	failing := &source.Memory{Label: "broken", Rows: rowsWithIDs(4, 5, 6), Err: cause, FailAfter: 2}
	_, err = s.Load(context.Background(), failing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceRead)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broken")

	assert.Equal(t, 0, s.Count())
	for _, id := range []int64{1, 2, 3, 4, 5} {
		_, ok := s.PositionOf(id)
		assert.False(t, ok, "id %d must not survive a failed load", id)
	}
}

func TestLoadDuplicateIdentifier(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), &source.Memory{Rows: rowsWithIDs(1, 2, 1)})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	assert.NotErrorIs(t, err, ErrSourceRead)
	assert.Equal(t, 0, s.Count())
}

func TestLoadReplacesPreviousContents(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), &source.Memory{Rows: rowsWithIDs(1, 2, 3)})
	require.NoError(t, err)
	_, err = s.Load(context.Background(), &source.Memory{Rows: rowsWithIDs(9)})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Count())
	_, ok := s.PositionOf(1)
	assert.False(t, ok)
	pos, ok := s.PositionOf(9)
	assert.True(t, ok)
	assert.Equal(t, 0, pos)
}

func TestGetOutOfRangePanics(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), &source.Memory{Rows: rowsWithIDs(1)})
	require.NoError(t, err)
	assert.Panics(t, func() { s.Get(1) })
	assert.Panics(t, func() { s.Get(-1) })
}

func TestAllStopsEarly(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), &source.Memory{Rows: rowsWithIDs(1, 2, 3)})
	require.NoError(t, err)

	seen := 0
	for range s.All() {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}
