package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sort"
	"time"

	"github.com/wfunc/murderboard/game"
	"github.com/wfunc/murderboard/logger"
	"github.com/wfunc/murderboard/models"
	"github.com/wfunc/murderboard/services"
)

// ServiceName is the name AdminService is registered under.
const ServiceName = "AdminService"

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

// Addr is the address the listener is bound to.
func (s *Server) Addr() string {
	return s.address
}

// Register exposes the receiver's exported methods under name.
func (s *Server) Register(name string, rcvr any) error {
	return s.rpc.RegisterName(name, rcvr)
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameLister is what AdminService needs from the game manager.
type GameLister interface {
	List() []game.Summary
}

// AdminService is the struct that exposes RPC methods.
// Methods follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type AdminService struct {
	records *services.RecordService
	games   GameLister
}

func NewAdminService(records *services.RecordService, games GameLister) *AdminService {
	return &AdminService{records: records, games: games}
}

type ListRecordsArgs struct {
	Limit int
}

type ListRecordsReply struct {
	Records []models.SessionRecord
}

func (a *AdminService) ListRecords(args *ListRecordsArgs, reply *ListRecordsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := a.records.History(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

type GetStatsArgs struct {
	// IncludeActive also fills ActiveGames.
	IncludeActive bool
}

type GetStatsReply struct {
	Summary     services.SessionSummary
	ActiveGames int
}

func (a *AdminService) GetStats(args *GetStatsArgs, reply *GetStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	summary, err := a.records.Summary(ctx)
	if err != nil {
		return err
	}
	reply.Summary = summary
	if args.IncludeActive {
		reply.ActiveGames = len(a.games.List())
	}
	return nil
}

type ListGamesArgs struct {
	// Limit caps the reply; zero returns every game.
	Limit int
}

type ListGamesReply struct {
	Games []game.Summary
}

// ListGames returns running games, oldest first.
func (a *AdminService) ListGames(args *ListGamesArgs, reply *ListGamesReply) error {
	games := a.games.List()
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	if args.Limit > 0 && len(games) > args.Limit {
		games = games[:args.Limit]
	}
	reply.Games = games
	return nil
}

// Client 管理端客户端
type Client struct {
	rpc *rpc.Client
}

func Dial(addr string) (*Client, error) {
	c, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

func (c *Client) ListRecords(limit int) ([]models.SessionRecord, error) {
	var reply ListRecordsReply
	err := c.rpc.Call(ServiceName+".ListRecords", &ListRecordsArgs{Limit: limit}, &reply)
	return reply.Records, err
}

func (c *Client) GetStats() (*GetStatsReply, error) {
	var reply GetStatsReply
	if err := c.rpc.Call(ServiceName+".GetStats", &GetStatsArgs{IncludeActive: true}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) ListGames(limit int) ([]game.Summary, error) {
	var reply ListGamesReply
	err := c.rpc.Call(ServiceName+".ListGames", &ListGamesArgs{Limit: limit}, &reply)
	return reply.Games, err
}

func (c *Client) Close() error {
	return c.rpc.Close()
}
