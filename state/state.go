package state

import (
	"slices"
	"sync"

	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/models"
)

// SystemState 系统状态
type SystemState struct {
	Settings models.Settings `json:"settings"`
}

// AppState is the whole state of one game. Values are never mutated in place.
type AppState struct {
	System SystemState  `json:"system"`
	Board  models.Board `json:"board"`
}

// Reduce returns the state that results from applying a to s.
func Reduce(s AppState, a actions.Action) AppState {
	switch a.Type {
	case actions.UpdateSettings:
		if p, ok := a.Payload.(actions.UpdateSettingsPayload); ok {
			s.System.Settings = p.Settings
		}

	case actions.SetupBoardComplete:
		if p, ok := a.Payload.(actions.SetupBoardCompletePayload); ok {
			s.Board = models.Board{
				Rooms:      slices.Clone(p.Rooms),
				Characters: slices.Clone(p.Characters),
				MurdererID: p.MurdererID,
				Lives:      p.Lives,
			}
		}

	case actions.EliminateCharacter:
		id, ok := a.EliminatedID()
		if !ok {
			break
		}
		idx := slices.IndexFunc(s.Board.Characters, func(c models.Character) bool { return c.ID == id })
		if idx < 0 {
			break
		}
		s.Board.Characters = slices.Delete(slices.Clone(s.Board.Characters), idx, idx+1)
		s.Board.Eliminated = append(slices.Clone(s.Board.Eliminated), id)

	case actions.GuessFailed:
		if s.Board.Lives > 0 {
			s.Board.Lives--
		}
	}
	return s
}

// Store 持有游戏状态，只能通过 Apply 修改
type Store struct {
	current AppState
	mutex   sync.RWMutex
}

func NewStore(initial AppState) *Store {
	return &Store{current: initial}
}

// Apply reduces a into the store and returns the new state.
func (st *Store) Apply(a actions.Action) AppState {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.current = Reduce(st.current, a)
	return st.current
}

// Snapshot returns the most recently applied state.
func (st *Store) Snapshot() AppState {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	return st.current
}
