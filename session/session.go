// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/murderboard/logger"
	"github.com/wfunc/murderboard/network"
)

// SendQueueSize is how many packets may wait for a slow connection.
const SendQueueSize = 64

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSendQueueFull = errors.New("send queue full")
)

type outgoing struct {
	msgID uint16
	data  []byte
}

// Session 一个客户端连接
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	gameID     string
	lastActive time.Time
	mutex      sync.RWMutex
	send       chan outgoing
	done       chan struct{}
	closeOnce  sync.Once
}

// NewSession starts the session's writer goroutine; Close stops it.
func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	s := &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		send:       make(chan outgoing, SendQueueSize),
		done:       make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Send queues a packet and never waits on the connection. A session whose
// queue overflows is closed; the client has to join again to resync.
func (s *Session) Send(msgID uint16, data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- outgoing{msgID: msgID, data: data}:
		s.Touch()
		return nil
	default:
		logger.Log.Warnf("session %s send queue full, closing", s.ID)
		s.Close()
		return ErrSendQueueFull
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case p := <-s.send:
			if err := s.Conn.Send(p.msgID, p.data); err != nil {
				logger.Log.Debugf("session %s write: %v", s.ID, err)
				s.Close()
				return
			}
		}
	}
}

func (s *Session) GetID() string {
	return s.ID
}

// GameID returns the game the session is attached to, or "".
func (s *Session) GameID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.gameID
}

func (s *Session) SetGameID(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.gameID = id
}

func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// Close stops the writer and closes the connection. Packets still queued are dropped.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.Conn.Close()
	})
	return err
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByGameID returns every session attached to the game.
func (m *Manager) GetByGameID(gameID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GameID() == gameID {
			result = append(result, session)
		}
	}
	return result
}

// All returns a copy of every session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
