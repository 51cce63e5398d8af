package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	JWT      JWTConfig       `mapstructure:"jwt"`
	Game     GameConfig      `mapstructure:"game"`
	Admin    AdminSeedConfig `mapstructure:"admin"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

// GameConfig carries the table defaults applied to newly created rooms.
type GameConfig struct {
	BaseBlind    int64 `mapstructure:"baseBlind"`
	InitialChips int64 `mapstructure:"initialChips"`
	MinPlayers   int   `mapstructure:"minPlayers"`
	MaxPlayers   int   `mapstructure:"maxPlayers"`
	TurnTimeout  int   `mapstructure:"turnTimeout"` // seconds, auto-fold
}

type AdminSeedConfig struct {
	DefaultUsername string `mapstructure:"defaultUsername"`
	DefaultPassword string `mapstructure:"defaultPassword"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	applyGameDefaults(&cfg.Game)
	GlobalConfig = &cfg
}

func applyGameDefaults(g *GameConfig) {
	if g.BaseBlind <= 0 {
		g.BaseBlind = 10
	}
	if g.InitialChips <= 0 {
		g.InitialChips = 1000
	}
	if g.MinPlayers < 2 {
		g.MinPlayers = 2
	}
	if g.MaxPlayers <= 0 || g.MaxPlayers > 16 {
		g.MaxPlayers = 16
	}
	if g.TurnTimeout <= 0 {
		g.TurnTimeout = 30
	}
}
