package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/game"
	"github.com/wfunc/murderboard/logger"
	"github.com/wfunc/murderboard/network"
	"github.com/wfunc/murderboard/session"
)

const (
	dispatchTimeout  = 2 * time.Second
	defaultHeartbeat = 30 * time.Second
)

var (
	ErrNotInGame      = errors.New("session is not in a game")
	ErrUnknownMessage = errors.New("unknown message type")
)

// Monitor is the part of monitor.Monitor the server reports to.
type Monitor interface {
	IncOnlineSessions()
	DecOnlineSessions()
	SetActiveGames(count int)
	IncMessagesReceived()
}

type nopMonitor struct{}

func (nopMonitor) IncOnlineSessions()   {}
func (nopMonitor) DecOnlineSessions()   {}
func (nopMonitor) SetActiveGames(int)   {}
func (nopMonitor) IncMessagesReceived() {}

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	gameManager    *game.Manager
	sessionManager *session.Manager
	monitor        Monitor
	heartbeat      time.Duration
	httpServer     *http.Server
	mutex          sync.Mutex
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

func NewGameServer(addr string, games *game.Manager, sessions *session.Manager, mon Monitor) *GameServer {
	if mon == nil {
		mon = nopMonitor{}
	}
	return &GameServer{
		addr:           addr,
		gameManager:    games,
		sessionManager: sessions,
		monitor:        mon,
		heartbeat:      defaultHeartbeat,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
}

// SetHeartbeat changes how long a silent connection is kept.
func (s *GameServer) SetHeartbeat(d time.Duration) {
	s.heartbeat = d
}

func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start blocks until Shutdown.
func (s *GameServer) Start() error {
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Handler()}
	logger.Log.Infof("Game server listening on %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	conn.SetHeartbeat(s.heartbeat)
	sess := session.NewSession(uuid.NewString(), conn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlineSessions()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.leaveGame(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlineSessions()
		sess.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		packet, err := conn.ReadPacket()
		if err != nil {
			return
		}
		s.monitor.IncMessagesReceived()
		if err := s.handlePacket(sess, packet); err != nil {
			logger.Log.Debugf("session %s message %d: %v", sess.GetID(), packet.MsgID, err)
			s.sendError(sess, err)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) error {
	sess.Touch()
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		return sess.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeCreateGame:
		return s.handleCreateGame(sess)
	case network.MsgTypeJoinGame:
		return s.handleJoinGame(sess, packet)
	case network.MsgTypeLeaveGame:
		s.leaveGame(sess)
		return nil
	case network.MsgTypeDispatch:
		return s.handleDispatch(sess, packet)
	default:
		return ErrUnknownMessage
	}
}

func (s *GameServer) handleCreateGame(sess *session.Session) error {
	s.mutex.Lock()
	s.leaveGameLocked(sess)
	g := s.gameManager.CreateGame()
	sess.SetGameID(g.ID)
	s.mutex.Unlock()
	s.monitor.SetActiveGames(s.gameManager.Count())

	logger.Log.Infof("Session %s created game %s", sess.GetID(), g.ID)
	return network.SendJSON(sess, network.MsgTypeCreateGame, network.GameRef{GameID: g.ID})
}

func (s *GameServer) handleJoinGame(sess *session.Session, packet *network.Packet) error {
	var req network.GameRef
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return err
	}
	if req.GameID != "" && req.GameID == sess.GameID() {
		return network.SendJSON(sess, network.MsgTypeJoinGame, req)
	}

	s.mutex.Lock()
	// Looked up under the lock so a concurrent last leave cannot close it in between.
	g, err := s.gameManager.GetGame(req.GameID)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	s.leaveGameLocked(sess)
	sess.SetGameID(g.ID)
	s.mutex.Unlock()

	logger.Log.Infof("Session %s joined game %s", sess.GetID(), g.ID)
	if err := network.SendJSON(sess, network.MsgTypeJoinGame, req); err != nil {
		return err
	}
	return network.SendJSON(sess, network.MsgTypeBoardState, g.Board())
}

// leaveGame detaches the session and closes the game once nobody is left.
func (s *GameServer) leaveGame(sess *session.Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.leaveGameLocked(sess)
}

// leaveGameLocked must be called with s.mutex held. Joins take the same lock,
// so nobody can attach to a game between the emptiness check and its removal.
func (s *GameServer) leaveGameLocked(sess *session.Session) {
	gameID := sess.GameID()
	if gameID == "" {
		return
	}
	sess.SetGameID("")
	logger.Log.Infof("Session %s left game %s", sess.GetID(), gameID)

	if len(s.sessionManager.GetByGameID(gameID)) == 0 {
		s.gameManager.RemoveGame(gameID)
		s.monitor.SetActiveGames(s.gameManager.Count())
	}
}

func (s *GameServer) handleDispatch(sess *session.Session, packet *network.Packet) error {
	gameID := sess.GameID()
	if gameID == "" {
		return ErrNotInGame
	}
	g, err := s.gameManager.GetGame(gameID)
	if err != nil {
		return err
	}

	var a actions.Action
	if err := json.Unmarshal(packet.Data, &a); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	return g.Dispatch(ctx, a)
}

func (s *GameServer) sendError(sess *session.Session, err error) {
	if sendErr := network.SendJSON(sess, network.MsgTypeError, network.ErrorMessage{Error: err.Error()}); sendErr != nil {
		logger.Log.Debugf("send error to session %s: %v", sess.GetID(), sendErr)
	}
}
