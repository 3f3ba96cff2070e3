// Package actions defines the typed events that flow through a game's action stream.
package actions

import (
	"encoding/json"
	"fmt"

	"github.com/wfunc/murderboard/models"
)

type Type string

const (
	SetupBoard         Type = "SETUP_BOARD"
	SetupBoardComplete Type = "SETUP_BOARD_COMPLETE"
	StartSession       Type = "START_SESSION"
	EndSession         Type = "END_SESSION"
	EliminateCharacter Type = "ELIMINATE_CHARACTER"
	GuessMurderer      Type = "GUESS_MURDERER"
	GuessSuccess       Type = "GUESS_SUCCESS"
	GuessFailed        Type = "GUESS_FAILED"
	NavToLoose         Type = "NAV_TO_LOOSE"
	NavToMainMenu      Type = "NAV_TO_MAIN_MENU"
	UpdateSettings     Type = "UPDATE_SETTINGS"
)

// External reports whether clients may dispatch actions of type t.
func (t Type) External() bool {
	switch t {
	case SetupBoard, GuessMurderer, NavToMainMenu, UpdateSettings:
		return true
	}
	return false
}

// Action is a typed event with an optional payload.
type Action struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload,omitempty"`
}

type SetupBoardCompletePayload struct {
	Rooms      []models.Room      `json:"rooms"`
	Characters []models.Character `json:"characters"`
	MurdererID string             `json:"murdererId"`
	Lives      models.Lives       `json:"lives"`
}

// EliminateCharacterPayload carries a nil id for a tick without a victim.
type EliminateCharacterPayload struct {
	EliminatedCharacterID *string `json:"eliminatedCharacterId"`
}

type GuessMurdererPayload struct {
	GuessedID string `json:"guessedId"`
}

type UpdateSettingsPayload struct {
	Settings models.Settings `json:"settings"`
}

func NewSetupBoard() Action { return Action{Type: SetupBoard} }

func NewSetupBoardComplete(p SetupBoardCompletePayload) Action {
	return Action{Type: SetupBoardComplete, Payload: p}
}

func NewStartSession() Action  { return Action{Type: StartSession} }
func NewEndSession() Action    { return Action{Type: EndSession} }
func NewGuessSuccess() Action  { return Action{Type: GuessSuccess} }
func NewGuessFailed() Action   { return Action{Type: GuessFailed} }
func NewNavToLoose() Action    { return Action{Type: NavToLoose} }
func NewNavToMainMenu() Action { return Action{Type: NavToMainMenu} }

// NewEliminateCharacter eliminates the character with the given id.
func NewEliminateCharacter(id string) Action {
	return Action{Type: EliminateCharacter, Payload: EliminateCharacterPayload{EliminatedCharacterID: &id}}
}

// NewEliminateNobody is emitted when nobody shares the murderer's room.
func NewEliminateNobody() Action {
	return Action{Type: EliminateCharacter, Payload: EliminateCharacterPayload{}}
}

func NewGuessMurderer(guessedID string) Action {
	return Action{Type: GuessMurderer, Payload: GuessMurdererPayload{GuessedID: guessedID}}
}

func NewUpdateSettings(s models.Settings) Action {
	return Action{Type: UpdateSettings, Payload: UpdateSettingsPayload{Settings: s}}
}

// EliminatedID returns the eliminated character id, if any.
func (a Action) EliminatedID() (string, bool) {
	p, ok := a.Payload.(EliminateCharacterPayload)
	if !ok || p.EliminatedCharacterID == nil {
		return "", false
	}
	return *p.EliminatedCharacterID, true
}

// UnmarshalJSON decodes the payload into the struct matching the action type.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    Type            `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var payload any
	var err error
	switch raw.Type {
	case SetupBoardComplete:
		payload, err = decodePayload[SetupBoardCompletePayload](raw.Payload)
	case EliminateCharacter:
		payload, err = decodePayload[EliminateCharacterPayload](raw.Payload)
	case GuessMurderer:
		payload, err = decodePayload[GuessMurdererPayload](raw.Payload)
	case UpdateSettings:
		payload, err = decodePayload[UpdateSettingsPayload](raw.Payload)
	case SetupBoard, StartSession, EndSession, GuessSuccess, GuessFailed, NavToLoose, NavToMainMenu:
	default:
		return fmt.Errorf("unknown action type %q", raw.Type)
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}

	a.Type = raw.Type
	a.Payload = payload
	return nil
}

func decodePayload[T any](data json.RawMessage) (T, error) {
	var p T
	if len(data) == 0 {
		return p, nil
	}
	err := json.Unmarshal(data, &p)
	return p, err
}
