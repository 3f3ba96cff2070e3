package engine

import (
	"math/rand/v2"
	"time"

	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/generator"
	"github.com/wfunc/murderboard/models"
	"github.com/wfunc/murderboard/state"
)

// Rand is the source of every random choice made by the effects.
type Rand interface {
	IntN(n int) int
}

// Scheduler is satisfied by timer.TimerManager.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerId int64) bool
}

type Options struct {
	// EliminationInterval is the tick period; the first tick comes after
	// EliminationInterval plus a random offset in [EliminationDelayMin, EliminationDelayMax).
	EliminationInterval time.Duration
	EliminationDelayMin time.Duration
	EliminationDelayMax time.Duration
	// PeriodicElimination keeps ticking after the first elimination until the
	// session ends or a guess is made.
	PeriodicElimination bool
	Rand                Rand
}

func DefaultOptions() Options {
	return Options{
		EliminationInterval: time.Second,
		EliminationDelayMin: time.Second,
		EliminationDelayMax: 4 * time.Second,
	}
}

// pipelineTimer holds the single pending timer of one pipeline. Arming it
// again supersedes the previous timer; callbacks of superseded or canceled
// timers are dropped on the loop by comparing generations.
type pipelineTimer struct {
	stream     *Stream
	timers     Scheduler
	id         int64
	generation uint64
}

func (p *pipelineTimer) arm(delay, interval time.Duration, fire func()) {
	p.cancel()
	generation := p.generation
	p.id = p.timers.AddTimer(delay, interval, func() {
		p.stream.schedule(func() {
			if p.generation != generation {
				return
			}
			if interval == 0 {
				p.id = 0
				p.generation++
			}
			fire()
		})
	})
}

func (p *pipelineTimer) cancel() {
	if p.id != 0 {
		p.timers.RemoveTimer(p.id)
		p.id = 0
	}
	p.generation++
}

func (p *pipelineTimer) active() bool {
	return p.id != 0
}

// BoardEffects reacts to board actions: it sets up boards, runs the session
// timer and the murderer, resolves guesses and navigates.
type BoardEffects struct {
	stream      *Stream
	store       *state.Store
	navigator   Navigator
	rooms       generator.RoomGenerator
	characters  generator.CharacterGenerator
	opts        Options
	rand        Rand
	session     pipelineTimer
	elimination pipelineTimer
}

// NewBoardEffects subscribes the board pipelines to stream.
func NewBoardEffects(
	stream *Stream,
	store *state.Store,
	navigator Navigator,
	rooms generator.RoomGenerator,
	characters generator.CharacterGenerator,
	timers Scheduler,
	opts Options,
) *BoardEffects {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	e := &BoardEffects{
		stream:      stream,
		store:       store,
		navigator:   navigator,
		rooms:       rooms,
		characters:  characters,
		opts:        opts,
		rand:        rnd,
		session:     pipelineTimer{stream: stream, timers: timers},
		elimination: pipelineTimer{stream: stream, timers: timers},
	}
	e.register()
	return e
}

func (e *BoardEffects) register() {
	s := e.stream
	s.Subscribe(e.setupBoard, actions.SetupBoard)
	s.Subscribe(e.startSession, actions.SetupBoardComplete)
	s.Subscribe(e.navigateTo(RouteRooms), actions.StartSession)
	s.Subscribe(e.startSessionTimer, actions.StartSession)
	s.Subscribe(e.cancelSessionTimer, actions.GuessMurderer)
	s.Subscribe(e.startElimination, actions.StartSession)
	s.Subscribe(e.stopElimination, actions.EndSession, actions.GuessMurderer, actions.EliminateCharacter)
	s.Subscribe(e.navToSessionEnd, actions.EndSession)
	s.Subscribe(e.guessMurderer, actions.GuessMurderer)
	s.Subscribe(e.navigateTo(RouteLoose), actions.NavToLoose)
	s.Subscribe(e.navigateTo(RouteMainMenu), actions.NavToMainMenu)
	s.Subscribe(e.navigateTo(RouteSuccess), actions.GuessSuccess)
	s.Subscribe(e.navigateTo(RouteSessionEnd), actions.GuessFailed)
}

// Close cancels pending timers. It must run on the loop or after it exited.
func (e *BoardEffects) Close() {
	e.session.cancel()
	e.elimination.cancel()
}

func (e *BoardEffects) setupBoard(actions.Action) {
	settings := e.store.Snapshot().System.Settings
	e.stream.emit(e.newBoard(settings))
}

// newBoard generates rooms and characters and picks the murderer uniformly.
// settings must have been validated.
func (e *BoardEffects) newBoard(settings models.Settings) actions.Action {
	rooms := e.rooms.GenerateRooms(settings.NumberOfRooms)
	characters := e.characters.GenerateCharacters(settings.NumberOfCharacters, rooms)
	murderer := characters[e.rand.IntN(len(characters))]

	return actions.NewSetupBoardComplete(actions.SetupBoardCompletePayload{
		Rooms:      rooms,
		Characters: characters,
		MurdererID: murderer.ID,
		Lives:      settings.Lives,
	})
}

func (e *BoardEffects) startSession(actions.Action) {
	e.stream.emit(actions.NewStartSession())
}

func (e *BoardEffects) startSessionTimer(actions.Action) {
	sessionTime := e.store.Snapshot().System.Settings.SessionTime
	e.session.arm(sessionTime, 0, func() {
		e.stream.emit(actions.NewEndSession())
	})
}

func (e *BoardEffects) cancelSessionTimer(actions.Action) {
	e.session.cancel()
}

func (e *BoardEffects) startElimination(actions.Action) {
	board := e.store.Snapshot().Board
	murderer, ok := board.Character(board.MurdererID)
	if !ok {
		e.stream.log.Warnw("session started without murderer on the board", "murdererId", board.MurdererID)
		e.elimination.cancel()
		return
	}

	first := e.opts.EliminationInterval + e.eliminationOffset()
	if !e.opts.PeriodicElimination {
		characters := board.Characters
		e.elimination.arm(first, 0, func() {
			e.eliminate(characters, murderer)
		})
		return
	}

	e.elimination.arm(first, e.opts.EliminationInterval, func() {
		e.eliminate(e.store.Snapshot().Board.Characters, murderer)
	})
}

func (e *BoardEffects) eliminationOffset() time.Duration {
	spread := e.opts.EliminationDelayMax - e.opts.EliminationDelayMin
	if spread <= 0 {
		return e.opts.EliminationDelayMin
	}
	return e.opts.EliminationDelayMin + time.Duration(e.rand.IntN(int(spread)))
}

func (e *BoardEffects) eliminate(characters []models.Character, murderer models.Character) {
	candidates := Candidates(characters, murderer)
	if len(candidates) == 0 {
		e.stream.emit(actions.NewEliminateNobody())
		return
	}
	victim := candidates[e.rand.IntN(len(candidates))]
	e.stream.emit(actions.NewEliminateCharacter(victim.ID))
}

// stopElimination ends the elimination pipeline. Any elimination, including
// the pipeline's own, stops it unless elimination is periodic.
func (e *BoardEffects) stopElimination(a actions.Action) {
	if a.Type == actions.EliminateCharacter && e.opts.PeriodicElimination {
		return
	}
	e.elimination.cancel()
}

func (e *BoardEffects) navToSessionEnd(actions.Action) {
	s := e.store.Snapshot()
	if len(s.Board.Characters) == s.System.Settings.CharactersToEndOfGame {
		e.navigator.Navigate(RouteLoose)
		return
	}
	e.navigator.Navigate(RouteSessionEnd)
}

func (e *BoardEffects) guessMurderer(a actions.Action) {
	payload, _ := a.Payload.(actions.GuessMurdererPayload)
	board := e.store.Snapshot().Board
	lives := int(board.Lives)

	switch {
	case payload.GuessedID == board.MurdererID:
		e.stream.emit(actions.NewGuessSuccess())
	case lives == 0:
		e.stream.emit(actions.NewNavToLoose())
	default:
		e.stream.emit(actions.NewGuessFailed())
	}
}

func (e *BoardEffects) navigateTo(route Route) func(actions.Action) {
	return func(actions.Action) {
		e.navigator.Navigate(route)
	}
}

// Candidates returns the characters sharing the murderer's room, murderer excluded.
func Candidates(characters []models.Character, murderer models.Character) []models.Character {
	var candidates []models.Character
	for _, c := range characters {
		if c.RoomID == murderer.RoomID && c.ID != murderer.ID {
			candidates = append(candidates, c)
		}
	}
	return candidates
}
