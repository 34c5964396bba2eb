// Package status delivers navigator status lines to operators.
//
// The Hub fans every status out to all attached sessions (the local console
// and each SSH session) so every operator sees the same cursor. It is a
// navigator.StatusSink and never blocks the navigator: a session whose
// buffer is full misses the line.
package status

import (
	"fmt"
	"slices"
	"sync/atomic"

	"featnav/internal/logging"
	"featnav/internal/navigator"
)

var statuslog = logging.For("status")

// sessionBuffer is the number of undelivered lines a session may hold.
const sessionBuffer = 64

// Hub manages operator sessions using channels only (no mutexes).
// A single goroutine owns the session map; all operations go through channels.
type Hub struct {
	fmt Formatter

	join      chan joinReq
	leave     chan *Session
	broadcast chan bcastMsg
	who       chan whoReq
	stop      chan struct{}
	done      chan struct{}
}

// Session is an attached operator.
type Session struct {
	ID       uint64
	Operator string
	Send     chan string // lines to display to this session
}

type joinReq struct {
	operator string
	result   chan *Session
}

type whoReq struct {
	result chan []string
}

type bcastMsg struct {
	from *Session // excluded from delivery when set
	text string
}

var sessionCounter atomic.Uint64

// NewHub creates a hub formatting with f. Call Run in a goroutine to start it.
func NewHub(f Formatter) *Hub {
	return &Hub{
		fmt:       f,
		join:      make(chan joinReq),
		leave:     make(chan *Session),
		broadcast: make(chan bcastMsg, sessionBuffer),
		who:       make(chan whoReq),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run is the hub's main loop. It owns the session map and processes
// all operations sequentially. Run blocks until Stop is called.
func (h *Hub) Run() {
	defer close(h.done)
	sessions := make(map[uint64]*Session)

	for {
		select {
		case req := <-h.join:
			id := sessionCounter.Add(1)
			s := &Session{
				ID:       id,
				Operator: req.operator,
				Send:     make(chan string, sessionBuffer),
			}
			sessions[id] = s
			req.result <- s
			statuslog.Debug("session attached", "operator", s.Operator, "session", s.ID)
			h.sendAll(sessions, s, fmt.Sprintf("* %s attached", s.Operator))

		case s := <-h.leave:
			if _, ok := sessions[s.ID]; ok {
				delete(sessions, s.ID)
				close(s.Send)
				statuslog.Debug("session detached", "operator", s.Operator, "session", s.ID)
				h.sendAll(sessions, nil, fmt.Sprintf("* %s detached", s.Operator))
			}

		case msg := <-h.broadcast:
			h.sendAll(sessions, msg.from, msg.text)

		case req := <-h.who:
			ops := make([]string, 0, len(sessions))
			for _, s := range sessions {
				ops = append(ops, s.Operator)
			}
			slices.Sort(ops)
			req.result <- ops

		case <-h.stop:
			for _, s := range sessions {
				close(s.Send)
			}
			return
		}
	}
}

// Stop shuts down the hub and waits for Run to return. Sessions' Send
// channels are closed.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Join attaches an operator session.
func (h *Hub) Join(operator string) *Session {
	result := make(chan *Session, 1)
	h.join <- joinReq{operator: operator, result: result}
	return <-result
}

// Leave detaches a session.
func (h *Hub) Leave(s *Session) {
	select {
	case h.leave <- s:
	case <-h.done:
	}
}

// Status implements navigator.StatusSink. It is called with the navigator
// lock held, so it only queues the line.
func (h *Hub) Status(s navigator.Status) {
	h.enqueue(bcastMsg{text: h.fmt.Format(s)})
}

// SystemMessage sends a line to every session.
func (h *Hub) SystemMessage(text string) {
	h.enqueue(bcastMsg{text: text})
}

// Announce sends a line from one session to every other session.
func (h *Hub) Announce(from *Session, text string) {
	h.enqueue(bcastMsg{from: from, text: fmt.Sprintf("[%s] %s", from.Operator, text)})
}

// Who returns the operators of all attached sessions, sorted.
func (h *Hub) Who() []string {
	result := make(chan []string, 1)
	select {
	case h.who <- whoReq{result: result}:
		return <-result
	case <-h.done:
		return nil
	}
}

// Formatter returns the hub's formatter.
func (h *Hub) Formatter() Formatter {
	return h.fmt
}

func (h *Hub) enqueue(m bcastMsg) {
	select {
	case h.broadcast <- m:
	default:
		statuslog.Warn("status queue full, line dropped", "line", m.text)
	}
}

func (h *Hub) sendAll(sessions map[uint64]*Session, exclude *Session, line string) {
	for _, s := range sessions {
		if exclude != nil && s.ID == exclude.ID {
			continue
		}
		select {
		case s.Send <- line:
		default:
			// drop line if session buffer is full
		}
	}
}
