package notify

import (
	"sync"
	"time"
)

type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Error   Level = "error"
)

// Notification is transient user feedback produced by staging, validation
// and submission operations. Core packages return structured results; the
// session layer publishes them here and the HTTP layer drains the queue, so
// the core stays side-effect-free.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(sessionID string, level Level, message string)
	Drain(sessionID string) []Notification
	Forget(sessionID string)
}

type inMemory struct {
	mu        sync.Mutex
	bySession map[string][]Notification
	capacity  int
}

func NewInMemory(capacity int) Publisher {
	if capacity <= 0 {
		capacity = 64
	}
	return &inMemory{bySession: make(map[string][]Notification), capacity: capacity}
}

func (m *inMemory) Publish(sessionID string, level Level, message string) {
	if message == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q := append(m.bySession[sessionID], Notification{Level: level, Message: message, At: time.Now()})
	if len(q) > m.capacity {
		q = q[len(q)-m.capacity:]
	}
	m.bySession[sessionID] = q
}

func (m *inMemory) Drain(sessionID string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.bySession[sessionID]
	delete(m.bySession, sessionID)
	return q
}

func (m *inMemory) Forget(sessionID string) {
	m.mu.Lock()
	delete(m.bySession, sessionID)
	m.mu.Unlock()
}
