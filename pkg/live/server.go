// Package live binds the atom reactivity core to browsers over WebSocket.
//
// Each connection gets a Session with its own root atom and render loop. The
// application supplies a View function; every render runs it inside a
// render-scoped observation, so the session re-renders exactly when a field
// the view actually read changes. Rendered state is pushed to the client as
// JSON frames; client frames apply writes back onto the root atom.
package live

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/solarfluxx/atlas/pkg/atom"
	"github.com/solarfluxx/atlas/pkg/middleware"
)

// View renders a session's UI state from its root atom. It runs inside a
// tracked observation: every field it reads becomes a re-render trigger.
// The returned value is distilled and sent to the client, so it may contain
// atoms freely.
type View func(root *atom.Atom) any

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMiddleware installs HTTP middleware on the server's router.
func WithMiddleware(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithCheckOrigin overrides the WebSocket origin check. The default accepts
// all origins, which is only appropriate behind a trusted proxy.
func WithCheckOrigin(fn func(*http.Request) bool) ServerOption {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// Server accepts live sessions and routes them to the application view.
type Server struct {
	newRoot    func() *atom.Atom
	view       View
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	middleware []func(http.Handler) http.Handler

	sessions map[string]*Session
	mu       sync.Mutex
}

// NewServer creates a live server. newRoot builds the per-session root atom;
// view renders it.
func NewServer(newRoot func() *atom.Atom, view View, opts ...ServerOption) *Server {
	s := &Server{
		newRoot:  newRoot,
		view:     view,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler: GET /live upgrades to a session
// WebSocket, GET /healthz reports liveness.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range s.middleware {
		r.Use(mw)
	}
	r.Get("/live", s.handleLive)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown closes every active session.
func (s *Server) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		middleware.RecordWebSocketError("upgrade")
		return
	}

	sess := newSession(newSessionID(), conn, s.newRoot(), s.view, s.logger)
	sess.onClose = func() { s.removeSession(sess.ID) }

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	middleware.RecordSessionCreate()

	s.logger.Info("session connected", "session", sess.ID, "remote", r.RemoteAddr)

	go sess.ReadLoop()
	sess.Run()
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		middleware.RecordSessionDestroy()
		s.logger.Info("session closed", "session", id)
	}
}

// newSessionID returns a random 128-bit hex session identifier.
func newSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("live: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
