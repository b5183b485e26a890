package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"co2dash/internal/config"
	"co2dash/internal/infrastructure"
	"co2dash/internal/services"
)

// ErrManagerClosed is returned by Attach after Shutdown
var ErrManagerClosed = errors.New("websocket session manager is shut down")

// Options configures the upgrader and the keepalive timings
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingPeriod      time.Duration
	PongWait        time.Duration
	// AllowedOrigins lists the browser origins allowed to connect.
	// Requests without an Origin header are always accepted.
	AllowedOrigins []string
	// AllowAllOrigins skips the origin check, for development
	AllowAllOrigins bool
}

func (o Options) withDefaults() Options {
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = 1024
	}
	if o.WriteBufferSize <= 0 {
		o.WriteBufferSize = 1024
	}
	if o.PongWait <= 0 {
		o.PongWait = config.WebSocketPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	return o
}

// Manager upgrades connections and tracks the open sessions
type Manager struct {
	service   SnapshotService
	validator ControlsValidator
	opts      Options
	upgrader  websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	metrics   *OTelMetrics
	dashboard *infrastructure.DashboardMetrics
	logger    *slog.Logger
}

// NewManager creates a session manager. metrics and dashboard may be nil.
func NewManager(
	service SnapshotService,
	validator ControlsValidator,
	opts Options,
	metrics *OTelMetrics,
	dashboard *infrastructure.DashboardMetrics,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	opts = opts.withDefaults()

	m := &Manager{
		service:   service,
		validator: validator,
		opts:      opts,
		sessions:  make(map[string]*Session),
		metrics:   metrics,
		dashboard: dashboard,
		logger:    infrastructure.WithComponent(logger, "websocket"),
	}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     m.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			m.logger.WarnContext(r.Context(), "websocket upgrade rejected",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
	return m
}

func (m *Manager) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || m.opts.AllowAllOrigins {
		return true
	}
	for _, allowed := range m.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeHTTP handles GET /ws
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the response
		return
	}

	// The request context ends when ServeHTTP returns
	ctx := context.WithoutCancel(r.Context())
	session, err := m.Attach(ctx, gorillaConn{conn}, middleware.GetReqID(r.Context()))
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go session.WritePump(ctx)
	go session.ReadPump(ctx)
}

// Attach registers a session on conn, queues the greeting and the initial
// snapshot, and returns the session. The caller starts the pumps.
func (m *Manager) Attach(ctx context.Context, conn Connection, traceID string) (*Session, error) {
	session := newSession(m, conn, traceID)
	ctx = session.context(ctx)

	if err := m.register(ctx, session); err != nil {
		return nil, err
	}

	session.enqueue(ctx, ServerMessage{
		Type: TypeConnection,
		Data: map[string]interface{}{
			"session_id": session.id,
			"status":     "connected",
		},
	})
	session.applyControls(ctx, services.Controls{}, false)
	return session, nil
}

func (m *Manager) register(ctx context.Context, s *Session) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	m.sessions[s.id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordSessionOpened(ctx)
	if m.dashboard != nil {
		m.dashboard.WebSocketSessions.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "session opened",
		slog.String("remote_addr", s.remoteAddr),
		slog.Int("sessions", count))
	return nil
}

// unregister removes s and closes its send channel. Only the read pump calls it.
func (m *Manager) unregister(ctx context.Context, s *Session) {
	m.mu.Lock()
	if _, ok := m.sessions[s.id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, s.id)
	close(s.send)
	count := len(m.sessions)
	m.mu.Unlock()

	duration := time.Since(s.connectedAt)
	m.metrics.RecordSessionClosed(ctx, duration)
	if m.dashboard != nil {
		m.dashboard.WebSocketSessions.Add(ctx, -1)
	}

	s.mu.Lock()
	received := s.messagesReceived
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "session closed",
		slog.Duration("duration", duration),
		slog.Int64("messages_received", received),
		slog.Int("sessions", count))
}

// SessionCount returns the number of open sessions
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown refuses new sessions and closes the open ones. It waits for the
// read pumps to unregister until ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "closing websocket sessions", slog.Int("sessions", len(open)))
	for _, s := range open {
		s.conn.Close()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for m.SessionCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
