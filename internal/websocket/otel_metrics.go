package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics records session traffic. A nil *OTelMetrics records nothing.
type OTelMetrics struct {
	sessionsTotal   metric.Int64Counter
	sessionDuration metric.Float64Histogram
	messagesTotal   metric.Int64Counter
	messageBytes    metric.Int64Counter
	messageErrors   metric.Int64Counter
	droppedMessages metric.Int64Counter
}

// NewOTelMetrics creates the websocket instruments on meter
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	if m.sessionsTotal, err = meter.Int64Counter(
		"websocket_sessions_total",
		metric.WithDescription("Total number of dashboard sessions opened"),
	); err != nil {
		return nil, err
	}

	if m.sessionDuration, err = meter.Float64Histogram(
		"websocket_session_duration_seconds",
		metric.WithDescription("Duration of dashboard sessions"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.messagesTotal, err = meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of WebSocket messages"),
	); err != nil {
		return nil, err
	}

	if m.messageBytes, err = meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("Total bytes of WebSocket messages"),
	); err != nil {
		return nil, err
	}

	if m.messageErrors, err = meter.Int64Counter(
		"websocket_message_errors_total",
		metric.WithDescription("Total number of rejected client messages"),
	); err != nil {
		return nil, err
	}

	if m.droppedMessages, err = meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Messages dropped because the send buffer was full"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordSessionOpened counts a new session
func (m *OTelMetrics) RecordSessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsTotal.Add(ctx, 1)
}

// RecordSessionClosed records how long a session lasted
func (m *OTelMetrics) RecordSessionClosed(ctx context.Context, duration time.Duration) {
	if m == nil {
		return
	}
	m.sessionDuration.Record(ctx, duration.Seconds())
}

// RecordMessage counts one message. direction is "in" or "out".
func (m *OTelMetrics) RecordMessage(ctx context.Context, direction, messageType string, size int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("message_type", messageType))
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, int64(size), attrs)
}

// RecordMessageError counts a rejected client message by error code
func (m *OTelMetrics) RecordMessageError(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.messageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordDroppedMessage counts a message dropped on a full send buffer
func (m *OTelMetrics) RecordDroppedMessage(ctx context.Context, messageType string) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("message_type", messageType)))
}
