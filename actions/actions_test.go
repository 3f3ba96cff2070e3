package actions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAction_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Action
		wantErr bool
	}{
		{
			name:  "without payload",
			input: `{"type":"SETUP_BOARD"}`,
			want:  NewSetupBoard(),
		},
		{
			name:  "guess",
			input: `{"type":"GUESS_MURDERER","payload":{"guessedId":"c1"}}`,
			want:  NewGuessMurderer("c1"),
		},
		{
			name:  "elimination of nobody",
			input: `{"type":"ELIMINATE_CHARACTER","payload":{"eliminatedCharacterId":null}}`,
			want:  NewEliminateNobody(),
		},
		{
			name:    "unknown type",
			input:   `{"type":"SHUFFLE"}`,
			wantErr: true,
		},
		{
			name:    "bad payload",
			input:   `{"type":"GUESS_MURDERER","payload":{"guessedId":7}}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Action
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAction_EliminatedID(t *testing.T) {
	id, ok := NewEliminateCharacter("c2").EliminatedID()
	require.True(t, ok)
	require.Equal(t, "c2", id)

	_, ok = NewEliminateNobody().EliminatedID()
	require.False(t, ok)

	_, ok = NewStartSession().EliminatedID()
	require.False(t, ok)
}

func TestType_External(t *testing.T) {
	require.True(t, SetupBoard.External())
	require.True(t, GuessMurderer.External())
	require.True(t, NavToMainMenu.External())
	require.True(t, UpdateSettings.External())
	require.False(t, StartSession.External())
	require.False(t, EliminateCharacter.External())
	require.False(t, GuessSuccess.External())
}
