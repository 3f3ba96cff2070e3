package state

import (
	"testing"
	"time"

	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/models"
)

func setupComplete() actions.Action {
	return actions.NewSetupBoardComplete(actions.SetupBoardCompletePayload{
		Rooms: []models.Room{{ID: "r1"}, {ID: "r2"}},
		Characters: []models.Character{
			{ID: "a", RoomID: "r1"},
			{ID: "b", RoomID: "r1"},
			{ID: "c", RoomID: "r2"},
		},
		MurdererID: "a",
		Lives:      1,
	})
}

func TestReduce_SetupBoardComplete(t *testing.T) {
	s := AppState{Board: models.Board{Eliminated: []string{"old"}}}
	s = Reduce(s, setupComplete())

	if len(s.Board.Characters) != 3 {
		t.Fatalf("Expected 3 characters, got %d", len(s.Board.Characters))
	}
	if s.Board.MurdererID != "a" {
		t.Errorf("Expected murderer a, got %s", s.Board.MurdererID)
	}
	if s.Board.Lives != 1 {
		t.Errorf("Expected 1 life, got %d", s.Board.Lives)
	}
	if len(s.Board.Eliminated) != 0 {
		t.Errorf("Expected elimination history to be reset, got %v", s.Board.Eliminated)
	}
}

func TestReduce_EliminateCharacter(t *testing.T) {
	before := Reduce(AppState{}, setupComplete())
	after := Reduce(before, actions.NewEliminateCharacter("b"))

	if len(after.Board.Characters) != 2 {
		t.Fatalf("Expected 2 characters after elimination, got %d", len(after.Board.Characters))
	}
	if _, ok := after.Board.Character("b"); ok {
		t.Error("Eliminated character should not be on the board")
	}
	if len(after.Board.Eliminated) != 1 || after.Board.Eliminated[0] != "b" {
		t.Errorf("Expected elimination history [b], got %v", after.Board.Eliminated)
	}
	// The previous state must not be touched.
	if len(before.Board.Characters) != 3 {
		t.Errorf("Reduce mutated the previous state: %d characters", len(before.Board.Characters))
	}

	unchanged := Reduce(after, actions.NewEliminateNobody())
	if len(unchanged.Board.Characters) != 2 || len(unchanged.Board.Eliminated) != 1 {
		t.Error("Elimination without a victim should not change the board")
	}

	again := Reduce(after, actions.NewEliminateCharacter("b"))
	if len(again.Board.Eliminated) != 1 {
		t.Error("Eliminating an absent character should not grow the history")
	}
}

func TestReduce_GuessFailed(t *testing.T) {
	s := Reduce(AppState{}, setupComplete())

	s = Reduce(s, actions.NewGuessFailed())
	if s.Board.Lives != 0 {
		t.Fatalf("Expected 0 lives, got %d", s.Board.Lives)
	}

	s = Reduce(s, actions.NewGuessFailed())
	if s.Board.Lives != 0 {
		t.Errorf("Lives should not go below zero, got %d", s.Board.Lives)
	}
}

func TestReduce_UpdateSettings(t *testing.T) {
	settings := models.Settings{NumberOfRooms: 2, NumberOfCharacters: 4, Lives: 3, SessionTime: time.Second}
	s := Reduce(AppState{}, actions.NewUpdateSettings(settings))
	if s.System.Settings != settings {
		t.Errorf("Expected settings %+v, got %+v", settings, s.System.Settings)
	}
}

func TestStore_ApplyAndSnapshot(t *testing.T) {
	store := NewStore(AppState{})
	applied := store.Apply(setupComplete())

	snapshot := store.Snapshot()
	if snapshot.Board.MurdererID != applied.Board.MurdererID {
		t.Error("Snapshot should return the most recently applied state")
	}

	store.Apply(actions.NewGuessFailed())
	if snapshot.Board.Lives != 1 {
		t.Error("An earlier snapshot must not change after later actions")
	}
	if store.Snapshot().Board.Lives != 0 {
		t.Error("Store should reflect the latest action")
	}
}
