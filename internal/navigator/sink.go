package navigator

import (
	"fmt"

	"featnav/internal/geom"
)

// Viewport receives the box to frame after every successful move. Records
// without an extent never reach the viewport.
//
// Implementations are called with the navigator lock held and must not call
// back into the navigator.
type Viewport interface {
	ApplyExtent(box geom.BoundingBox)
}

// StatusSink observes position changes and loads. It is never consulted for
// control flow. The same locking rule as Viewport applies.
type StatusSink interface {
	Status(s Status)
}

// Event says why a Status was emitted.
type Event uint8

const (
	EventMoved Event = iota + 1
	EventLoaded
)

func (e Event) String() string {
	switch e {
	case EventMoved:
		return "moved"
	case EventLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("event(%d)", uint8(e))
	}
}

// Status describes the cursor after a move or load. Position is zero-based.
type Status struct {
	Event     Event
	Position  int
	Total     int
	ID        int64
	HasExtent bool
	Source    string
	LoadID    string
}

// String renders the status the way operators read it: one-based position.
func (s Status) String() string {
	return fmt.Sprintf("Record %d/%d - OID: %d", s.Position+1, s.Total, s.ID)
}

// ViewportFunc adapts a function to Viewport.
type ViewportFunc func(box geom.BoundingBox)

func (f ViewportFunc) ApplyExtent(box geom.BoundingBox) { f(box) }

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(s Status)

func (f StatusFunc) Status(s Status) { f(s) }

type nopViewport struct{}

func (nopViewport) ApplyExtent(geom.BoundingBox) {}

type nopStatus struct{}

func (nopStatus) Status(Status) {}
