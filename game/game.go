// game/game.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/engine"
	"github.com/wfunc/murderboard/generator"
	"github.com/wfunc/murderboard/logger"
	"github.com/wfunc/murderboard/models"
	"github.com/wfunc/murderboard/network"
	"github.com/wfunc/murderboard/state"
	"github.com/wfunc/murderboard/timer"
	"go.uber.org/zap"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrActionNotAllowed = errors.New("action not allowed from clients")
	ErrNoBoard          = errors.New("no board has been set up")
)

const recordTimeout = 5 * time.Second

// Generator builds boards for a game.
type Generator interface {
	generator.RoomGenerator
	generator.CharacterGenerator
}

// Config 创建游戏所需的依赖
type Config struct {
	Settings  models.Settings
	Engine    engine.Options
	Generator Generator
	Observer  engine.Observer
	Recorder  Recorder
}

// Game is one running board with its own action stream and store.
type Game struct {
	ID          string
	CreatedAt   time.Time
	store       *state.Store
	stream      *engine.Stream
	effects     *engine.BoardEffects
	timers      *timer.TimerManager
	broadcaster Broadcaster
	recorder    Recorder
	log         *zap.SugaredLogger
	cancel      context.CancelFunc
	closeOnce   sync.Once

	// touched only on the stream loop
	sessionStarted time.Time
}

// NewGame starts the game loop. Settings must be valid.
func NewGame(id string, cfg Config, broadcaster Broadcaster) *Game {
	log := logger.Log.With("game", id)
	gen := cfg.Generator
	if gen == nil {
		gen = generator.NewRandom(nil)
	}

	g := &Game{
		ID:          id,
		CreatedAt:   time.Now(),
		store:       state.NewStore(state.AppState{System: state.SystemState{Settings: cfg.Settings}}),
		timers:      timer.NewTimerManager(),
		broadcaster: broadcaster,
		recorder:    cfg.Recorder,
		log:         log,
	}
	g.stream = engine.NewStream(g.store, cfg.Observer, log)
	g.effects = engine.NewBoardEffects(g.stream, g.store, g, gen, gen, g.timers, cfg.Engine)
	g.stream.Subscribe(g.publish)
	g.stream.Subscribe(g.track, actions.StartSession, actions.EndSession,
		actions.GuessSuccess, actions.GuessFailed, actions.NavToLoose)

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	go func() {
		if err := g.stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("game loop stopped: %v", err)
		}
	}()

	log.Infof("game %s created", id)
	return g
}

// Dispatch accepts an action from a client.
func (g *Game) Dispatch(ctx context.Context, a actions.Action) error {
	if !a.Type.External() {
		return fmt.Errorf("%w: %s", ErrActionNotAllowed, a.Type)
	}
	switch a.Type {
	case actions.UpdateSettings:
		payload, _ := a.Payload.(actions.UpdateSettingsPayload)
		if err := payload.Settings.Validate(); err != nil {
			return err
		}
	case actions.GuessMurderer:
		// Guessing needs a murderer; an empty guess would match the empty board.
		if g.store.Snapshot().Board.MurdererID == "" {
			return ErrNoBoard
		}
	}
	return g.stream.Dispatch(ctx, a)
}

// Board returns the current board without the murderer.
func (g *Game) Board() models.Board {
	return g.store.Snapshot().Board.Public()
}

func (g *Game) Settings() models.Settings {
	return g.store.Snapshot().System.Settings
}

// Navigate implements engine.Navigator by telling every session of the game.
func (g *Game) Navigate(route engine.Route) {
	g.broadcastJSON(network.MsgTypeNavigate, network.NavigateMessage{Route: string(route)})
}

// Close stops the loop and every pending timer.
func (g *Game) Close() {
	g.closeOnce.Do(func() {
		g.cancel()
		<-g.stream.Done()
		g.effects.Close()
		g.timers.Stop()
		g.log.Infof("game %s closed", g.ID)
	})
}

func (g *Game) publish(a actions.Action) {
	switch a.Type {
	case actions.SetupBoardComplete:
		// The payload names the murderer; clients only get the public board.
		g.broadcastJSON(network.MsgTypeBoardState, g.Board())
		return
	case actions.EliminateCharacter, actions.GuessFailed:
		g.broadcastJSON(network.MsgTypeActionEvent, a)
		g.broadcastJSON(network.MsgTypeBoardState, g.Board())
		return
	}
	g.broadcastJSON(network.MsgTypeActionEvent, a)
}

func (g *Game) track(a actions.Action) {
	var outcome models.Outcome
	switch a.Type {
	case actions.StartSession:
		g.sessionStarted = time.Now()
		return
	case actions.GuessSuccess:
		outcome = models.OutcomeSuccess
	case actions.GuessFailed:
		outcome = models.OutcomeFailed
	case actions.NavToLoose:
		outcome = models.OutcomeLost
	case actions.EndSession:
		outcome = models.OutcomeTimeout
	default:
		return
	}
	if g.sessionStarted.IsZero() {
		return
	}

	board := g.store.Snapshot().Board
	record := models.SessionRecord{
		GameID:          g.ID,
		Outcome:         outcome,
		MurdererID:      board.MurdererID,
		LivesLeft:       int(board.Lives),
		CharactersLeft:  len(board.Characters),
		EliminatedCount: len(board.Eliminated),
		StartedAt:       g.sessionStarted,
		FinishedAt:      time.Now(),
	}
	g.sessionStarted = time.Time{}
	g.log.Infow("session finished", "outcome", outcome, "livesLeft", record.LivesLeft)

	if g.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := g.recorder.Record(ctx, record); err != nil {
			g.log.Errorf("record session: %v", err)
		}
	}()
}

func (g *Game) broadcastJSON(msgID uint16, v any) {
	if g.broadcaster == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		g.log.Errorf("marshal message %d: %v", msgID, err)
		return
	}
	if err := g.broadcaster.BroadcastToGame(g.ID, msgID, data); err != nil {
		g.log.Debugf("broadcast message %d: %v", msgID, err)
	}
}

// --- 游戏管理器 ---

// Manager 管理所有游戏
type Manager struct {
	games       map[string]*Game
	config      Config
	broadcaster Broadcaster
	mutex       sync.RWMutex
}

// NewManager creates games from cfg and pushes their packets through broadcaster.
func NewManager(cfg Config, broadcaster Broadcaster) *Manager {
	return &Manager{
		games:       make(map[string]*Game),
		config:      cfg,
		broadcaster: broadcaster,
	}
}

// CreateGame starts a new game with the default settings.
func (m *Manager) CreateGame() *Game {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	g := NewGame(uuid.NewString(), m.config, m.broadcaster)
	m.games[g.ID] = g
	return g
}

// RemoveGame closes the game and forgets it.
func (m *Manager) RemoveGame(id string) {
	m.mutex.Lock()
	g, exists := m.games[id]
	delete(m.games, id)
	m.mutex.Unlock()

	if exists {
		g.Close()
	}
}

func (m *Manager) GetGame(id string) (*Game, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	g, exists := m.games[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return g, nil
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.games)
}

// Summary 游戏概要
type Summary struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	CharactersLeft int       `json:"characters_left"`
	LivesLeft      int       `json:"lives_left"`
}

func (m *Manager) List() []Summary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	summaries := make([]Summary, 0, len(m.games))
	for _, g := range m.games {
		board := g.Board()
		summaries = append(summaries, Summary{
			ID:             g.ID,
			CreatedAt:      g.CreatedAt,
			CharactersLeft: len(board.Characters),
			LivesLeft:      int(board.Lives),
		})
	}
	return summaries
}

// CloseAll closes every game, used on shutdown.
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	games := m.games
	m.games = make(map[string]*Game)
	m.mutex.Unlock()

	for _, g := range games {
		g.Close()
	}
}
