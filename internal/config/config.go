package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SETGAME_SERVER_PORT.
const EnvPrefix = "SETGAME"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Rooms     RoomsConfig     `mapstructure:"rooms"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type RoomsConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxPlayers      int           `mapstructure:"max_players"`
	SendQueue       int           `mapstructure:"send_queue"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ArchiveConfig points at the Postgres database that keeps finished games.
// An empty DatabaseURL disables the archive.
type ArchiveConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", time.Minute)

	v.SetDefault("rooms.idle_ttl", 10*time.Minute)
	v.SetDefault("rooms.cleanup_interval", time.Minute)
	v.SetDefault("rooms.max_players", 6)
	v.SetDefault("rooms.send_queue", 64)

	v.SetDefault("ratelimit.max_requests", 20)
	v.SetDefault("ratelimit.window", time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("archive.database_url", "")
}

// Load reads configuration from path (or ./config.yaml when path is empty),
// then applies SETGAME_* environment overrides on top of the defaults.
// A missing file is only an error when path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("CONFIG_INVALID: server.port %d out of range", c.Server.Port)
	}
	if c.Rooms.MaxPlayers < 1 || c.Rooms.MaxPlayers > 6 {
		return fmt.Errorf("CONFIG_INVALID: rooms.max_players must be between 1 and 6")
	}
	if c.Rooms.SendQueue < 1 {
		return fmt.Errorf("CONFIG_INVALID: rooms.send_queue must be positive")
	}
	if c.RateLimit.MaxRequests < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("CONFIG_INVALID: ratelimit needs a positive max_requests and window")
	}
	if c.Rooms.CleanupInterval <= 0 {
		return fmt.Errorf("CONFIG_INVALID: rooms.cleanup_interval must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("CONFIG_INVALID: logging.format %q (want json or console)", c.Logging.Format)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
