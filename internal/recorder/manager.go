package recorder

import (
	"fmt"
	"sync"
)

// Manager tracks live recording sessions by id. Sessions survive Stop
// so their logs can be learned from and saved; CleanupSession removes
// them once persisted.
type Manager struct {
	mu        sync.RWMutex
	recorders map[string]*Recorder
}

func NewManager() *Manager {
	return &Manager{recorders: make(map[string]*Recorder)}
}

// Register adds a session. Duplicate ids are rejected.
func (m *Manager) Register(sessionID string, r *Recorder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.recorders[sessionID]; exists {
		return fmt.Errorf("recording session %s already exists", sessionID)
	}
	m.recorders[sessionID] = r
	return nil
}

// Get returns a session by id.
func (m *Manager) Get(sessionID string) (*Recorder, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recorders[sessionID]
	return r, ok
}

// Status reports whether a session is recording and its captured
// actions so far.
func (m *Manager) Status(sessionID string) (bool, []RecordedAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recorders[sessionID]
	if !ok {
		return false, nil, fmt.Errorf("recording session %s not found", sessionID)
	}
	return r.IsRecording(), r.Actions(), nil
}

// CleanupSession drops a finished session.
func (m *Manager) CleanupSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recorders, sessionID)
}
