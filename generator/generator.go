// Package generator builds the rooms and characters of a new board.
package generator

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/wfunc/murderboard/models"
)

var roomNames = []string{
	"Library", "Kitchen", "Ballroom", "Conservatory", "Study",
	"Billiard Room", "Lounge", "Hall", "Dining Room", "Cellar",
}

var characterNames = []string{
	"Colonel Mustard", "Miss Scarlet", "Professor Plum", "Mrs. Peacock",
	"Reverend Green", "Mrs. White", "Dr. Orchid", "Lady Lavender",
	"Captain Brown", "Madame Rose", "Sergeant Gray", "Monsieur Brunette",
}

// RoomGenerator produces the rooms of a board.
type RoomGenerator interface {
	GenerateRooms(n int) []models.Room
}

// CharacterGenerator distributes n characters among rooms.
type CharacterGenerator interface {
	GenerateCharacters(n int, rooms []models.Room) []models.Character
}

// Random implements both generators with uniformly random room placement.
type Random struct {
	rnd   *rand.Rand
	mutex sync.Mutex
}

// NewRandom uses rnd for placement; nil selects a randomly seeded source.
func NewRandom(rnd *rand.Rand) *Random {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Random{rnd: rnd}
}

func (g *Random) GenerateRooms(n int) []models.Room {
	rooms := make([]models.Room, n)
	for i := range rooms {
		rooms[i] = models.Room{
			ID:   uuid.NewString(),
			Name: pickName(roomNames, i),
		}
	}
	return rooms
}

func (g *Random) GenerateCharacters(n int, rooms []models.Room) []models.Character {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	characters := make([]models.Character, n)
	names := g.rnd.Perm(len(characterNames))
	for i := range characters {
		characters[i] = models.Character{
			ID:     uuid.NewString(),
			Name:   pickName(characterNames, names[i%len(names)]+i/len(names)*len(names)),
			RoomID: rooms[g.rnd.IntN(len(rooms))].ID,
		}
	}
	return characters
}

// pickName cycles through names, numbering repeats.
func pickName(names []string, i int) string {
	name := names[i%len(names)]
	if round := i / len(names); round > 0 {
		return fmt.Sprintf("%s %d", name, round+1)
	}
	return name
}
