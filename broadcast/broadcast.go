// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/murderboard/logger"
	"github.com/wfunc/murderboard/session"
)

var (
	ErrNoSessions = errors.New("game has no sessions")
)

// 广播接口
type Broadcaster interface {
	BroadcastToGame(gameID string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
}

// 基于游戏的广播器
type GameBroadcaster struct {
	sessionManager *session.Manager
}

func NewGameBroadcaster(sessionManager *session.Manager) *GameBroadcaster {
	return &GameBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToGame sends the packet to every session attached to gameID.
// A send failure on one session does not stop the others.
func (b *GameBroadcaster) BroadcastToGame(gameID string, msgID uint16, data []byte) error {
	sessions := b.sessionManager.GetByGameID(gameID)
	if len(sessions) == 0 {
		return ErrNoSessions
	}

	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("send message %d to session %s: %v", msgID, s.ID, err)
			continue
		}
	}
	return nil
}

func (b *GameBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("send message %d to session %s: %v", msgID, s.ID, err)
		}
	}
	return nil
}
