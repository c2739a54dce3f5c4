package session

import "sync"

// State of one connection's canvas binding.
type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateClosed
)

// Session binds one connection to at most one (canvasId, userId) pair.
// It holds no canvas state itself; the registry owns that.
type Session struct {
	connID string

	mu       sync.Mutex
	state    State
	canvasID string
	userID   string
}

func New(connID string) *Session {
	return &Session{connID: connID}
}

func (s *Session) ConnID() string { return s.connID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Current returns the joined canvas and user, and whether the session is
// in the Joined state.
func (s *Session) Current() (canvasID, userID string, joined bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return "", "", false
	}
	return s.canvasID, s.userID, true
}

// Bind moves the session to Joined for the given pair and returns the
// previous binding so the caller can run the leave transition for it
// first. Binding a closed session is refused.
func (s *Session) Bind(canvasID, userID string) (prevCanvas, prevUser string, wasJoined, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return "", "", false, false
	}

	prevCanvas, prevUser = s.canvasID, s.userID
	wasJoined = s.state == StateJoined

	s.state = StateJoined
	s.canvasID = canvasID
	s.userID = userID
	return prevCanvas, prevUser, wasJoined, true
}

// Close moves the session to its terminal state and reports whether a
// registry leave is owed. Idempotent.
func (s *Session) Close() (canvasID, userID string, wasJoined bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasJoined = s.state == StateJoined
	canvasID, userID = s.canvasID, s.userID
	s.state = StateClosed
	s.canvasID, s.userID = "", ""
	return canvasID, userID, wasJoined
}

// Manager tracks live sessions by connection id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new Unjoined session for the connection.
func (m *Manager) Create(connID string) *Session {
	s := New(connID)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[connID] = s
	return s
}

func (m *Manager) Get(connID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[connID]
	return s, ok
}

func (m *Manager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, connID)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
