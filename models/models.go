// models/models.go
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSettings is returned when settings cannot produce a playable board.
var ErrInvalidSettings = errors.New("invalid settings")

// A board is pushed to clients in one network frame, whose body length is a
// uint16. A generated room encodes to at most roomBytes and a character
// (two uuids and a name) to at most characterBytes, so MaxRooms rooms and
// MaxCharacters characters always fit.
const (
	frameBodyLimit = math.MaxUint16
	roomBytes      = 128
	characterBytes = 192

	MaxRooms      = 64
	MaxCharacters = (frameBodyLimit - MaxRooms*roomBytes) / characterBytes
)

// Room 是一个房间，角色分布在房间中
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Character 角色，通过 RoomID 属于唯一的房间
type Character struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RoomID string `json:"roomId"`
}

// Lives is a life counter that also accepts numeric strings when decoded.
type Lives int

func (l *Lives) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}

	// Whole numbers are accepted in any spelling: 2, 2.0, "2", " 2.0 ".
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("lives %q: %w", raw, err)
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return fmt.Errorf("lives %q is not a whole number", raw)
	}
	*l = Lives(f)
	return nil
}

// Settings 游戏设置
type Settings struct {
	NumberOfRooms         int
	NumberOfCharacters    int
	Lives                 Lives
	SessionTime           time.Duration
	CharactersToEndOfGame int
}

type settingsJSON struct {
	NumberOfRooms         int   `json:"numberOfRooms"`
	NumberOfCharacters    int   `json:"numberOfCharacters"`
	Lives                 Lives `json:"lives"`
	SessionTime           int64 `json:"sessionTime"` // milliseconds
	CharactersToEndOfGame int   `json:"charactersToEndOfGame"`
}

func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingsJSON{
		NumberOfRooms:         s.NumberOfRooms,
		NumberOfCharacters:    s.NumberOfCharacters,
		Lives:                 s.Lives,
		SessionTime:           s.SessionTime.Milliseconds(),
		CharactersToEndOfGame: s.CharactersToEndOfGame,
	})
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw settingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Settings{
		NumberOfRooms:         raw.NumberOfRooms,
		NumberOfCharacters:    raw.NumberOfCharacters,
		Lives:                 raw.Lives,
		SessionTime:           time.Duration(raw.SessionTime) * time.Millisecond,
		CharactersToEndOfGame: raw.CharactersToEndOfGame,
	}
	return nil
}

// Validate reports whether a board can be set up from s.
func (s Settings) Validate() error {
	switch {
	case s.NumberOfRooms < 1:
		return fmt.Errorf("%w: numberOfRooms must be at least 1", ErrInvalidSettings)
	case s.NumberOfRooms > MaxRooms:
		return fmt.Errorf("%w: numberOfRooms must be at most %d", ErrInvalidSettings, MaxRooms)
	case s.NumberOfCharacters < 1:
		return fmt.Errorf("%w: numberOfCharacters must be at least 1", ErrInvalidSettings)
	case s.NumberOfCharacters > MaxCharacters:
		return fmt.Errorf("%w: numberOfCharacters must be at most %d", ErrInvalidSettings, MaxCharacters)
	case s.Lives < 0:
		return fmt.Errorf("%w: lives must not be negative", ErrInvalidSettings)
	case s.SessionTime <= 0:
		return fmt.Errorf("%w: sessionTime must be positive", ErrInvalidSettings)
	case s.CharactersToEndOfGame < 0:
		return fmt.Errorf("%w: charactersToEndOfGame must not be negative", ErrInvalidSettings)
	}
	return nil
}

// Board 当前棋盘状态
type Board struct {
	Rooms      []Room      `json:"rooms"`
	Characters []Character `json:"characters"`
	MurdererID string      `json:"murdererId"`
	Lives      Lives       `json:"lives"`
	Eliminated []string    `json:"eliminated"`
}

// Character returns the active character with the given id.
func (b Board) Character(id string) (Character, bool) {
	for _, c := range b.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}

// Public strips the murderer so the board can be sent to players.
func (b Board) Public() Board {
	b.MurdererID = ""
	return b
}

// Outcome 一局的结果
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeLost    Outcome = "lost"
	OutcomeTimeout Outcome = "timeout"
)

// SessionRecord 会话记录
type SessionRecord struct {
	GameID          string    `json:"game_id"`
	Outcome         Outcome   `json:"outcome"`
	MurdererID      string    `json:"murderer_id"`
	LivesLeft       int       `json:"lives_left"`
	CharactersLeft  int       `json:"characters_left"`
	EliminatedCount int       `json:"eliminated_count"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// SessionStats 会话统计
type SessionStats struct {
	TotalSessions int `json:"total_sessions"`
	Successes     int `json:"successes"`
	Failures      int `json:"failures"`
	Losses        int `json:"losses"`
	Timeouts      int `json:"timeouts"`
}

// Add counts one finished session.
func (s *SessionStats) Add(o Outcome) {
	s.TotalSessions++
	switch o {
	case OutcomeSuccess:
		s.Successes++
	case OutcomeFailed:
		s.Failures++
	case OutcomeLost:
		s.Losses++
	case OutcomeTimeout:
		s.Timeouts++
	}
}
