// Package navigator moves a cursor over the record store and frames the
// current record in a viewport.
//
// Next and Previous treat the collection as a ring. GoToID, GoToIndex and
// JumpToFirstMatch jump directly; identifier lookups go through the store's
// index and are O(1).
//
// Every operation either succeeds and performs its side effects (cursor
// update, viewport, status) or fails and changes nothing. Reload is the one
// exception: a failed reload leaves the store empty, as documented on
// store.Store.Load.
//
// A Navigator is safe for concurrent use. All operations are serialized by
// one mutex and sinks are driven while it is held, so two commands never
// interleave and status events arrive in command order.
package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"featnav/internal/extent"
	"featnav/internal/feature"
	"featnav/internal/geom"
	"featnav/internal/logging"
	"featnav/internal/query"
	"featnav/internal/source"
	"featnav/internal/store"
)

// DefaultListLimit is the number of entries ListIDs returns for limit <= 0.
const DefaultListLimit = 50

// noPosition is the cursor value of an empty navigator.
const noPosition = -1

// Navigator owns a record store and the cursor over it.
type Navigator struct {
	mu sync.Mutex

	src    source.Source
	store  *store.Store
	cursor int

	view   Viewport
	status StatusSink

	loadID    string
	loadedAt  time.Time
	newLoadID func() string
	now       func() time.Time
	log       *slog.Logger
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithViewport sets the sink that frames the current record.
func WithViewport(v Viewport) Option {
	return func(n *Navigator) { n.view = v }
}

// WithStatus sets the sink that observes moves and loads.
func WithStatus(s StatusSink) Option {
	return func(n *Navigator) { n.status = s }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Navigator) { n.log = l }
}

// WithLoadIDs overrides the load ID generator (default: UUIDv7).
func WithLoadIDs(gen func() string) Option {
	return func(n *Navigator) { n.newLoadID = gen }
}

// WithClock overrides the clock used to stamp loads.
func WithClock(now func() time.Time) Option {
	return func(n *Navigator) { n.now = now }
}

// New creates a navigator over src. Nothing is loaded until Reload.
func New(src source.Source, opts ...Option) *Navigator {
	n := &Navigator{
		src:       src,
		store:     store.New(),
		cursor:    noPosition,
		view:      nopViewport{},
		status:    nopStatus{},
		newLoadID: func() string { return uuid.Must(uuid.NewV7()).String() },
		now:       time.Now,
		log:       logging.For("navigator"),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.view == nil {
		n.view = nopViewport{}
	}
	if n.status == nil {
		n.status = nopStatus{}
	}
	return n
}

// SetViewport swaps the viewport sink, e.g. when the operator switches
// between the map and the scene. A nil viewport disables framing.
func (n *Navigator) SetViewport(v Viewport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if v == nil {
		v = nopViewport{}
	}
	n.view = v
}

// Source returns the source the navigator loads from.
func (n *Navigator) Source() source.Source {
	return n.src
}

// Reload rebuilds the store from the source. On success the cursor moves to
// position 0 and a load status is emitted; the viewport is not moved. On
// failure the store is empty and the cursor is cleared.
func (n *Navigator) Reload(ctx context.Context) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	start := n.now()
	count, err := n.store.Load(ctx, n.src)
	if err != nil {
		n.cursor = noPosition
		n.loadID = ""
		n.loadedAt = time.Time{}
		return 0, err
	}

	n.cursor = 0
	n.loadID = n.newLoadID()
	n.loadedAt = n.now()
	n.log.Info("records loaded",
		"source", n.src.Name(),
		"count", count,
		"load_id", n.loadID,
		"elapsed", n.loadedAt.Sub(start))

	n.status.Status(n.statusLocked(EventLoaded))
	return count, nil
}

// Next advances to the following record, wrapping from the last to the first.
func (n *Navigator) Next() (feature.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := n.store.Count()
	if count == 0 {
		return feature.Record{}, ErrEmptyCollection
	}
	return n.moveLocked((n.cursor + 1) % count), nil
}

// Previous retreats to the preceding record, wrapping from the first to the last.
func (n *Navigator) Previous() (feature.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := n.store.Count()
	if count == 0 {
		return feature.Record{}, ErrEmptyCollection
	}
	return n.moveLocked((n.cursor - 1 + count) % count), nil
}

// GoToID jumps to the record with the given identifier.
func (n *Navigator) GoToID(id int64) (feature.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	pos, ok := n.store.PositionOf(id)
	if !ok {
		return feature.Record{}, fmt.Errorf("%w: %d", ErrIdentifierNotFound, id)
	}
	return n.moveLocked(pos), nil
}

// GoToIndex jumps to a zero-based position.
func (n *Navigator) GoToIndex(position int) (feature.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goToIndexLocked(position)
}

func (n *Navigator) goToIndexLocked(position int) (feature.Record, error) {
	count := n.store.Count()
	if position < 0 || position >= count {
		return feature.Record{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, position, count)
	}
	return n.moveLocked(position), nil
}

// Current returns the record under the cursor, or false when nothing is
// loaded.
func (n *Navigator) Current() (feature.Record, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cursor == noPosition {
		return feature.Record{}, false
	}
	return n.store.Get(n.cursor), true
}

// Position returns the zero-based cursor and the record count. ok is false
// when nothing is loaded.
func (n *Navigator) Position() (position, count int, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cursor, n.store.Count(), n.cursor != noPosition
}

// Filter returns the positions, in store order, whose attribute field equals
// value.
func (n *Navigator) Filter(field string, value feature.Value) []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return query.Filter(n.store, field, value)
}

// JumpToFirstMatch moves to the first record whose attribute field equals
// value. It fails with ErrNoMatch, leaving the cursor alone, when none does.
func (n *Navigator) JumpToFirstMatch(field string, value feature.Value) (feature.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	matches := query.Filter(n.store, field, value)
	if len(matches) == 0 {
		return feature.Record{}, fmt.Errorf("%w: %s=%s", ErrNoMatch, field, value)
	}
	return n.goToIndexLocked(matches[0])
}

// Entry is one line of ListIDs.
type Entry struct {
	Position int
	ID       int64
	Current  bool
}

// ListIDs returns up to limit entries from the start of the store and the
// total record count. limit <= 0 means DefaultListLimit.
func (n *Navigator) ListIDs(limit int) ([]Entry, int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	total := n.store.Count()
	out := make([]Entry, 0, min(limit, total))
	for pos, r := range n.store.All() {
		if pos >= limit {
			break
		}
		out = append(out, Entry{Position: pos, ID: r.ID, Current: pos == n.cursor})
	}
	return out, total
}

// Stats summarizes the loaded collection.
type Stats struct {
	Source        string
	LoadID        string
	LoadedAt      time.Time
	Total         int
	Position      int // -1 when empty
	CurrentID     int64
	WithoutExtent int
	Extent        geom.BoundingBox
	HasExtent     bool
}

// Stats computes collection statistics. It scans the store.
func (n *Navigator) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()

	st := Stats{
		Source:   n.src.Name(),
		LoadID:   n.loadID,
		LoadedAt: n.loadedAt,
		Total:    n.store.Count(),
		Position: n.cursor,
	}
	if n.cursor != noPosition {
		st.CurrentID = n.store.Get(n.cursor).ID
	}
	st.WithoutExtent = int(query.Select(n.store, query.WithoutExtent()).GetCardinality())
	st.Extent, st.HasExtent = extent.Union(func(yield func(feature.Record) bool) {
		for _, r := range n.store.All() {
			if !yield(r) {
				return
			}
		}
	})
	return st
}

// Export gives fn read-only access to the store while holding the navigator
// lock. fn must not call back into the navigator or retain the store.
func (n *Navigator) Export(fn func(*store.Store) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn(n.store)
}

// moveLocked sets the cursor and drives the sinks. position must be valid.
func (n *Navigator) moveLocked(position int) feature.Record {
	n.cursor = position
	rec := n.store.Get(position)

	if box, ok := extent.Of(rec); ok {
		n.view.ApplyExtent(box)
	} else {
		n.log.Warn("record has no extent; viewport left unchanged", "oid", rec.ID, "position", position)
	}
	n.status.Status(n.statusLocked(EventMoved))
	return rec
}

func (n *Navigator) statusLocked(ev Event) Status {
	rec := n.store.Get(n.cursor)
	_, hasExtent := extent.Of(rec)
	return Status{
		Event:     ev,
		Position:  n.cursor,
		Total:     n.store.Count(),
		ID:        rec.ID,
		HasExtent: hasExtent,
		Source:    n.src.Name(),
		LoadID:    n.loadID,
	}
}
