package websocket

import (
	"context"
	"time"

	"co2dash/internal/services"
)

// Connection is the part of a websocket connection a Session uses.
// It lets tests drive sessions without a network.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// SnapshotService computes every dashboard chart for a set of controls
type SnapshotService interface {
	Snapshot(ctx context.Context, controls services.Controls) (*services.Snapshot, error)
}

// ControlsValidator checks the struct tags of incoming controls
type ControlsValidator interface {
	ValidateStruct(v interface{}) error
}
