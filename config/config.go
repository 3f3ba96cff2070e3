package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wfunc/murderboard/models"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	HealthAddress  string `mapstructure:"health_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	// Driver is one of "gorm", "postgres" or "memory".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig holds the settings every new game starts with.
type GameConfig struct {
	NumberOfRooms         int           `mapstructure:"number_of_rooms"`
	NumberOfCharacters    int           `mapstructure:"number_of_characters"`
	Lives                 int           `mapstructure:"lives"`
	SessionTime           time.Duration `mapstructure:"session_time"`
	CharactersToEndOfGame int           `mapstructure:"characters_to_end_of_game"`
}

type EngineConfig struct {
	EliminationInterval time.Duration `mapstructure:"elimination_interval"`
	EliminationDelayMin time.Duration `mapstructure:"elimination_delay_min"`
	EliminationDelayMax time.Duration `mapstructure:"elimination_delay_max"`
	PeriodicElimination bool          `mapstructure:"periodic_elimination"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Settings converts the game section into board settings.
func (g GameConfig) Settings() models.Settings {
	return models.Settings{
		NumberOfRooms:         g.NumberOfRooms,
		NumberOfCharacters:    g.NumberOfCharacters,
		Lives:                 models.Lives(g.Lives),
		SessionTime:           g.SessionTime,
		CharactersToEndOfGame: g.CharactersToEndOfGame,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.health_address", ":8082")
	v.SetDefault("server.metrics_address", ":9090")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "murderboard")

	v.SetDefault("game.number_of_rooms", 3)
	v.SetDefault("game.number_of_characters", 6)
	v.SetDefault("game.lives", 2)
	v.SetDefault("game.session_time", "30s")
	v.SetDefault("game.characters_to_end_of_game", 1)

	v.SetDefault("engine.elimination_interval", "1s")
	v.SetDefault("engine.elimination_delay_min", "1s")
	v.SetDefault("engine.elimination_delay_max", "4s")
	v.SetDefault("engine.periodic_elimination", false)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path. A missing file leaves the defaults;
// MURDERBOARD_* environment variables override both.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("murderboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Game.Settings().Validate(); err != nil {
		return nil, fmt.Errorf("game settings: %w", err)
	}
	if config.Engine.EliminationDelayMax < config.Engine.EliminationDelayMin {
		return nil, fmt.Errorf("engine: elimination_delay_max %v is below elimination_delay_min %v",
			config.Engine.EliminationDelayMax, config.Engine.EliminationDelayMin)
	}
	return &config, nil
}
