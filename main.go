package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wfunc/murderboard/broadcast"
	"github.com/wfunc/murderboard/config"
	"github.com/wfunc/murderboard/engine"
	"github.com/wfunc/murderboard/game"
	"github.com/wfunc/murderboard/generator"
	"github.com/wfunc/murderboard/logger"
	"github.com/wfunc/murderboard/monitor"
	"github.com/wfunc/murderboard/persistence"
	"github.com/wfunc/murderboard/rpc"
	"github.com/wfunc/murderboard/server"
	"github.com/wfunc/murderboard/services"
	"github.com/wfunc/murderboard/session"
)

func init() {
	rootCmd.PersistentFlags().String("config", ".", "directory containing config.yaml")
	historyCmd.Flags().String("addr", "localhost:8081", "admin RPC address")
	historyCmd.Flags().Int("limit", persistence.DefaultListLimit, "number of sessions to show")
	historyCmd.Flags().Bool("games", false, "list running games instead of finished sessions")
	rootCmd.AddCommand(serveCmd, historyCmd)
}

var rootCmd = &cobra.Command{
	Use:   "murderboard",
	Short: "Murder party board server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env 可选
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game server",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		return serve(path)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show finished sessions from a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		limit, _ := cmd.Flags().GetInt("limit")
		games, _ := cmd.Flags().GetBool("games")

		client, err := rpc.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer client.Close()

		var out any
		if games {
			out, err = client.ListGames(limit)
		} else {
			out, err = history(client, limit)
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func history(client *rpc.Client, limit int) (any, error) {
	records, err := client.ListRecords(limit)
	if err != nil {
		return nil, err
	}
	stats, err := client.GetStats()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"stats":        stats.Summary,
		"active_games": stats.ActiveGames,
		"records":      records,
	}, nil
}

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "memory", "":
		return persistence.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func serve(configPath string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Log.Infof("Database %s ready.", cfg.Database.Driver)

	mon := monitor.NewMonitor("murderboard")
	mon.StartServer(cfg.Server.MetricsAddress)

	records := services.NewRecordService(db)
	sessions := session.NewManager()
	games := game.NewManager(game.Config{
		Settings: cfg.Game.Settings(),
		Engine: engine.Options{
			EliminationInterval: cfg.Engine.EliminationInterval,
			EliminationDelayMin: cfg.Engine.EliminationDelayMin,
			EliminationDelayMax: cfg.Engine.EliminationDelayMax,
			PeriodicElimination: cfg.Engine.PeriodicElimination,
		},
		Generator: generator.NewRandom(nil),
		Observer:  mon,
		Recorder:  records,
	}, broadcast.NewGameBroadcaster(sessions))
	defer games.CloseAll()

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		return fmt.Errorf("create RPC server: %w", err)
	}
	if err := rpcServer.Register(rpc.ServiceName, rpc.NewAdminService(records, games)); err != nil {
		return err
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	health, err := rpc.NewHealthServer(cfg.Server.HealthAddress)
	if err != nil {
		return fmt.Errorf("create health server: %w", err)
	}
	go health.Start()
	defer health.Stop()

	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, games, sessions, mon)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down.")
	health.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("game server shutdown: %v", err)
	}
	return mon.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
