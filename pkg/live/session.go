package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solarfluxx/atlas/pkg/atom"
	"github.com/solarfluxx/atlas/pkg/middleware"
)

// stateFrame is a server-to-client frame carrying one rendered view.
// Sequence numbers are monotonic per session so clients can detect gaps.
type stateFrame struct {
	Type  string `json:"type"`
	Seq   uint64 `json:"seq"`
	State any    `json:"state"`
}

// clientOp is a client-to-server frame. "set" writes Value to Key on the
// session's root atom; "call" invokes the method stored under Key.
type clientOp struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
	Args  []any  `json:"args,omitempty"`
}

// Session is one live connection: a root atom, a render loop, and the
// WebSocket transport. It implements atom.Host, so its render scope
// re-renders it whenever a field the view read changes.
//
// All writes and renders execute on the Run goroutine; the read loop only
// queues operations. That keeps the write-then-notify fan-out on a single
// logical thread, which is the concurrency model the core is built around.
type Session struct {
	ID string

	conn   *websocket.Conn
	root   *atom.Atom
	view   View
	scope  *atom.RenderScope
	logger *slog.Logger

	events   chan clientOp
	renderCh chan struct{}
	done     chan struct{}

	closed  atomic.Bool
	sendSeq atomic.Uint64
	writeMu sync.Mutex

	cleanups   []func()
	cleanupsMu sync.Mutex

	// onClose is set by the server to deregister the session.
	onClose func()
}

func newSession(id string, conn *websocket.Conn, root *atom.Atom, view View, logger *slog.Logger) *Session {
	s := &Session{
		ID:       id,
		conn:     conn,
		root:     root,
		view:     view,
		logger:   logger.With("session", id),
		events:   make(chan clientOp, 64),
		renderCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	s.scope = atom.NewRenderScope(s)
	return s
}

// Invalidate implements atom.Host: it nudges the render channel. The
// 1-buffered channel coalesces bursts of notifications between renders.
func (s *Session) Invalidate() {
	select {
	case s.renderCh <- struct{}{}:
	default:
	}
}

// OnCommit implements atom.Host: fn runs when the session tears down.
func (s *Session) OnCommit(fn func()) {
	s.cleanupsMu.Lock()
	s.cleanups = append(s.cleanups, fn)
	s.cleanupsMu.Unlock()
}

// Root returns the session's root atom.
func (s *Session) Root() *atom.Atom {
	return s.root
}

// Run drives the session: an initial render, then the event loop. Blocks
// until the session closes.
func (s *Session) Run() {
	defer s.Close()

	s.render()

	for {
		select {
		case op := <-s.events:
			s.apply(op)
		case <-s.renderCh:
			s.render()
		case <-s.done:
			return
		}
	}
}

// render runs the view inside the render scope and pushes the result.
func (s *Session) render() {
	start := time.Now()

	s.scope.Observe()
	var view any
	func() {
		defer s.scope.Commit()
		view = s.view(s.root)
	}()

	middleware.RecordRender(time.Since(start).Seconds())

	s.send(stateFrame{
		Type:  "state",
		Seq:   s.sendSeq.Add(1),
		State: atom.Distill(view),
	})
}

// apply executes one client operation on the root atom. Writes notify
// through the core, which re-renders via Invalidate.
func (s *Session) apply(op clientOp) {
	switch op.Op {
	case "set":
		s.root.Set(op.Key, op.Value)
	case "call":
		if _, err := s.root.Invoke(op.Key, op.Args...); err != nil {
			s.logger.Warn("call failed", "method", op.Key, "error", err)
		}
	case "ping":
		s.send(stateFrame{Type: "pong", Seq: s.sendSeq.Load()})
	default:
		s.logger.Warn("unknown client op", "op", op.Op)
	}
}

func (s *Session) send(frame stateFrame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return
	}
	if err := s.conn.WriteJSON(frame); err != nil {
		s.logger.Error("write error", "error", err)
		middleware.RecordWebSocketError("write")
		s.Close()
		return
	}
	if frame.Type == "state" {
		middleware.RecordPatches(1)
	}
}

// ReadLoop reads client frames until the connection closes and queues their
// operations for the Run goroutine.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				middleware.RecordWebSocketError("read")
			}
			return
		}

		var op clientOp
		if err := json.Unmarshal(msg, &op); err != nil {
			s.logger.Warn("bad client frame", "error", err)
			continue
		}

		select {
		case s.events <- op:
		case <-s.done:
			return
		}
	}
}

// Close shuts the session down: the event loop stops, registered cleanups
// (including the render scope disposal) run, and the connection closes.
// Idempotent.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	_ = s.conn.Close()

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	// Unpin the session's state graph so it can be collected with the
	// session instead of living for the process lifetime.
	atom.Release(s.root)

	if s.onClose != nil {
		s.onClose()
	}
}
