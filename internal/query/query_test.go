package query

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featnav/internal/feature"
	"featnav/internal/source"
	"featnav/internal/store"
)

func loaded(t *testing.T, rows ...source.Row) *store.Store {
	t.Helper()
	s := store.New()
	_, err := s.Load(context.Background(), &source.Memory{Rows: rows})
	require.NoError(t, err)
	return s
}

func zoned(id int64, zone feature.Value) source.Row {
	attrs := feature.Attributes{}
	if !zone.IsNull() {
		attrs["ZONE"] = zone
	}
	return source.Row{ID: source.ID(id), Geometry: orb.Point{1, 1}, Attributes: attrs}
}

func TestFilterByIdentifier(t *testing.T) {
	s := loaded(t, zoned(10, feature.Null()), zoned(20, feature.Null()), zoned(30, feature.Null()))
	assert.Equal(t, []int{2}, Filter(s, feature.IDField, feature.Int(30)))
	assert.Equal(t, []int{}, Filter(s, feature.IDField, feature.Int(99)))
}

func TestFilterIsTypeSensitive(t *testing.T) {
	s := loaded(t, zoned(1, feature.String("1")), zoned(2, feature.Int(1)), zoned(3, feature.Float(1)))
	assert.Equal(t, []int{0}, Filter(s, "ZONE", feature.String("1")))
	assert.Equal(t, []int{1}, Filter(s, "ZONE", feature.Int(1)))
	assert.Equal(t, []int{2}, Filter(s, "ZONE", feature.Float(1)))
	assert.Empty(t, Filter(s, feature.IDField, feature.String("30")))
}

func TestFilterOrderAndExactness(t *testing.T) {
	zones := []string{"R1", "C2", "R1", "", "R1", "C2"}
	rows := make([]source.Row, 0, len(zones))
	for i, z := range zones {
		v := feature.Null()
		if z != "" {
			v = feature.String(z)
		}
		rows = append(rows, zoned(int64(100+i), v))
	}
	s := loaded(t, rows...)

	got := Filter(s, "ZONE", feature.String("R1"))
	assert.Equal(t, []int{0, 2, 4}, got)

	selected := map[int]bool{}
	for _, p := range got {
		selected[p] = true
	}
	for pos, r := range s.All() {
		v, ok := r.Attributes.Get("ZONE")
		matches := ok && v.Equal(feature.String("R1"))
		assert.Equal(t, matches, selected[pos], "position %d", pos)
	}
}

func TestFilterMissingFieldIsNotAnError(t *testing.T) {
	s := loaded(t, zoned(1, feature.Null()))
	assert.Empty(t, Filter(s, "NOPE", feature.String("x")))
}

func TestFilterEmptyStore(t *testing.T) {
	assert.Empty(t, Filter(store.New(), feature.IDField, feature.Int(1)))
}

func TestSelectWithoutExtent(t *testing.T) {
	s := loaded(t,
		source.Row{ID: source.ID(1), Geometry: orb.Point{0, 0}},
		source.Row{ID: source.ID(2)},
		source.Row{ID: source.ID(3), Geometry: orb.LineString{}},
	)
	bm := Select(s, WithoutExtent())
	assert.Equal(t, uint64(2), bm.GetCardinality())
	assert.Equal(t, []int{1, 2}, Positions(bm))
}
