package websocket

import (
	"errors"
	"sync"
	"time"
)

// ErrMockClosed is returned by a MockConnection after Close
var ErrMockClosed = errors.New("connection closed")

// MockConnection is an in-memory Connection for tests. ReadMessage blocks
// until a message is pushed with Push or the connection is closed.
type MockConnection struct {
	mu sync.Mutex

	inbox  chan MockMessage
	done   chan struct{}
	closed bool

	// WriteErr fails every write when set
	WriteErr error
	written  []MockMessage
	notify   chan struct{}

	ReadDeadline  time.Time
	WriteDeadline time.Time
	ReadLimit     int64
	PongHandler   func(string) error
	RemoteAddress string
}

// MockMessage is one frame read or written on a MockConnection
type MockMessage struct {
	Type int
	Data []byte
}

// NewMockConnection creates an open mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		inbox:         make(chan MockMessage, 64),
		done:          make(chan struct{}),
		notify:        make(chan struct{}, 1),
		RemoteAddress: "127.0.0.1:50000",
	}
}

// Push queues a frame for ReadMessage
func (m *MockConnection) Push(messageType int, data []byte) {
	m.inbox <- MockMessage{Type: messageType, Data: data}
}

// WriteMessage records the frame
func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMockClosed
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.written = append(m.written, MockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// ReadMessage returns the next pushed frame, or ErrMockClosed once closed
func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.inbox:
		return msg.Type, msg.Data, nil
	case <-m.done:
		return 0, nil, ErrMockClosed
	}
}

// Close unblocks ReadMessage and fails later writes
func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// IsClosed reports whether Close was called
func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() string {
	return m.RemoteAddress
}

// Written returns a copy of the frames written so far
func (m *MockConnection) Written() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.written))
	copy(out, m.written)
	return out
}

// WaitForWrites blocks until at least n frames were written or timeout passes
func (m *MockConnection) WaitForWrites(n int, timeout time.Duration) []MockMessage {
	deadline := time.After(timeout)
	for {
		if written := m.Written(); len(written) >= n {
			return written
		}
		select {
		case <-m.notify:
		case <-deadline:
			return m.Written()
		}
	}
}
