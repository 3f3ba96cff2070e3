package game

import (
	"context"

	"github.com/wfunc/murderboard/models"
)

// Broadcaster defines the interface for pushing packets to every session of a game.
// This is defined here to break the import cycle between game and broadcast.
type Broadcaster interface {
	BroadcastToGame(gameID string, msgID uint16, data []byte) error
}

// Recorder stores finished sessions.
type Recorder interface {
	Record(ctx context.Context, record models.SessionRecord) error
}
