package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"co2dash/internal/infrastructure"
	"co2dash/internal/services"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound messages buffered per session
	sendBuffer = 16
)

// outbound is an encoded ServerMessage waiting for the write pump
type outbound struct {
	kind string
	data []byte
}

// Session is one browser connection with its own dashboard controls.
// Sessions share only the immutable dataset behind the snapshot service.
type Session struct {
	id      string
	traceID string
	conn    Connection
	send    chan outbound
	manager *Manager

	controls services.Controls

	remoteAddr  string
	connectedAt time.Time
	logger      *slog.Logger

	mu               sync.Mutex
	messagesSent     int64
	messagesReceived int64
}

func newSession(m *Manager, conn Connection, traceID string) *Session {
	id := uuid.New().String()
	logger := m.logger.With(slog.String("session_id", id))
	if traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	return &Session{
		id:          id,
		traceID:     traceID,
		conn:        conn,
		send:        make(chan outbound, sendBuffer),
		manager:     m,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      logger,
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Controls returns the controls the session last applied successfully
func (s *Session) Controls() services.Controls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls
}

func (s *Session) context(ctx context.Context) context.Context {
	if s.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, s.traceID)
	}
	return ctx
}

// ReadPump reads client messages until the connection fails, then
// unregisters the session. Each controls message is handled to completion
// before the next one is read.
func (s *Session) ReadPump(ctx context.Context) {
	ctx = s.context(ctx)
	defer func() {
		s.manager.unregister(ctx, s)
		s.conn.Close()
	}()

	pongWait := s.manager.opts.PongWait
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { return s.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure) {
				s.logger.ErrorContext(ctx, "unexpected websocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		message = bytes.TrimSpace(message)

		s.mu.Lock()
		s.messagesReceived++
		s.mu.Unlock()

		s.handle(ctx, message)
	}
}

// handle applies one client message
func (s *Session) handle(ctx context.Context, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.manager.metrics.RecordMessage(ctx, "in", "invalid", len(data))
		s.sendError(ctx, &ErrorPayload{Code: CodeInvalidMessage, Message: "message is not valid JSON"})
		return
	}
	s.manager.metrics.RecordMessage(ctx, "in", msg.Type, len(data))

	switch msg.Type {
	case TypeHeartbeat:
		s.logger.DebugContext(ctx, "heartbeat received")
	case TypeControls:
		update, latest := msg.update()
		s.applyControls(ctx, update, latest)
	default:
		s.sendError(ctx, &ErrorPayload{Code: CodeInvalidMessage, Message: "unknown message type: " + msg.Type})
	}
}

// applyControls merges update into the session controls and sends a fresh
// snapshot. latest clears the selected year. Rejected controls leave the
// session unchanged.
func (s *Session) applyControls(ctx context.Context, update services.Controls, latest bool) {
	if err := s.manager.validator.ValidateStruct(update); err != nil {
		s.sendError(ctx, errorPayload(err))
		return
	}

	next := s.Controls().Merge(update)
	if latest {
		next.Year = 0
	}
	snap, err := s.manager.service.Snapshot(ctx, next)
	if err != nil {
		s.sendError(ctx, errorPayload(err))
		return
	}

	s.mu.Lock()
	s.controls = next
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "controls applied",
		slog.Int("year", snap.Controls.Year),
		slog.String("metric", string(snap.Controls.Metric)),
		slog.Int("countries", len(snap.Controls.Countries)),
		slog.Int("warnings", len(snap.Warnings)))
	s.enqueue(ctx, ServerMessage{Type: TypeSnapshot, Data: snap})
}

func (s *Session) sendError(ctx context.Context, payload *ErrorPayload) {
	s.manager.metrics.RecordMessageError(ctx, payload.Code)
	s.logger.InfoContext(ctx, "client message rejected",
		slog.String("code", payload.Code),
		slog.String("message", payload.Message))
	s.enqueue(ctx, ServerMessage{Type: TypeError, Error: payload})
}

// enqueue queues msg without blocking. A full buffer drops the message.
func (s *Session) enqueue(ctx context.Context, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode message",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return
	}

	select {
	case s.send <- outbound{kind: msg.Type, data: data}:
	default:
		s.manager.metrics.RecordDroppedMessage(ctx, msg.Type)
		s.logger.WarnContext(ctx, "send buffer full, message dropped",
			slog.String("type", msg.Type))
	}
}

// WritePump writes queued messages and pings until the send channel is
// closed or a write fails.
func (s *Session) WritePump(ctx context.Context) {
	ctx = s.context(ctx)
	ticker := time.NewTicker(s.manager.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()

		s.mu.Lock()
		sent := s.messagesSent
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "write pump stopped", slog.Int64("messages_sent", sent))
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message.data); err != nil {
				s.logger.ErrorContext(ctx, "websocket write failed",
					slog.String("error", err.Error()))
				return
			}
			s.mu.Lock()
			s.messagesSent++
			s.mu.Unlock()
			s.manager.metrics.RecordMessage(ctx, "out", message.kind, len(message.data))

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.DebugContext(ctx, "ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
