package engine

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/generator"
	"github.com/wfunc/murderboard/models"
	"github.com/wfunc/murderboard/state"
	"github.com/wfunc/murderboard/timer"
)

// recorder captures processed actions and navigation in order.
type recorder struct {
	mu      sync.Mutex
	actions []actions.Action
	routes  []Route
}

func (r *recorder) Navigate(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recorder) record(a actions.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *recorder) types() []actions.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]actions.Type, len(r.actions))
	for i, a := range r.actions {
		types[i] = a.Type
	}
	return types
}

func (r *recorder) ofType(t actions.Type) []actions.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matching []actions.Action
	for _, a := range r.actions {
		if a.Type == t {
			matching = append(matching, a)
		}
	}
	return matching
}

func (r *recorder) count(t actions.Type) int {
	return len(r.ofType(t))
}

func (r *recorder) visited() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.routes)
}

// fixedBoard always generates the same rooms and characters.
type fixedBoard struct {
	rooms      []models.Room
	characters []models.Character
}

func (f fixedBoard) GenerateRooms(int) []models.Room { return f.rooms }

func (f fixedBoard) GenerateCharacters(int, []models.Room) []models.Character { return f.characters }

// sequence returns its values in order (modulo n) and zero once exhausted.
type sequence struct {
	mu     sync.Mutex
	values []int
}

func (s *sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v % n
}

var mansion = fixedBoard{
	rooms: []models.Room{{ID: "hall"}, {ID: "cellar"}},
	characters: []models.Character{
		{ID: "mustard", RoomID: "hall"},
		{ID: "plum", RoomID: "hall"},
		{ID: "peacock", RoomID: "cellar"},
	},
}

func testSettings() models.Settings {
	return models.Settings{
		NumberOfRooms:         2,
		NumberOfCharacters:    3,
		Lives:                 2,
		SessionTime:           time.Hour,
		CharactersToEndOfGame: 1,
	}
}

// slowElimination keeps the murderer idle for the length of a test.
func slowElimination() Options {
	return Options{
		EliminationInterval: time.Hour,
		EliminationDelayMin: time.Hour,
		EliminationDelayMax: time.Hour,
	}
}

func fastElimination() Options {
	return Options{
		EliminationInterval: 10 * time.Millisecond,
		EliminationDelayMin: 10 * time.Millisecond,
		EliminationDelayMax: 20 * time.Millisecond,
	}
}

type harness struct {
	stream  *Stream
	store   *state.Store
	effects *BoardEffects
	rec     *recorder
}

type boardGenerator interface {
	generator.RoomGenerator
	generator.CharacterGenerator
}

func newHarness(t *testing.T, settings models.Settings, board boardGenerator, opts Options) *harness {
	t.Helper()

	store := state.NewStore(state.AppState{System: state.SystemState{Settings: settings}})
	stream := NewStream(store, nil, nil)
	rec := &recorder{}
	timers := timer.NewTimerManager()
	effects := NewBoardEffects(stream, store, rec, board, board, timers, opts)
	stream.Subscribe(rec.record)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = stream.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-stream.Done()
		effects.Close()
		timers.Stop()
	})

	return &harness{stream: stream, store: store, effects: effects, rec: rec}
}

func (h *harness) dispatch(t *testing.T, a actions.Action) {
	t.Helper()
	require.NoError(t, h.stream.Dispatch(context.Background(), a))
}

func (h *harness) waitFor(t *testing.T, typ actions.Type, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.rec.count(typ) >= n }, 2*time.Second, 2*time.Millisecond,
		"waiting for %d %s", n, typ)
}
