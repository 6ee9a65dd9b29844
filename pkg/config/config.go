// Package config reads process configuration from WEDDING_STATE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/goliatone/go-wedding-state/pkg/gate"
	"github.com/goliatone/go-wedding-state/pkg/medium"
	"github.com/goliatone/go-wedding-state/pkg/theme"
)

// Prefix is prepended to every variable name.
const Prefix = "WEDDING_STATE_"

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"wedding:"`
}

type ActivityConfig struct {
	Enabled     bool     `env:"ENABLED" envDefault:"false"`
	Channel     string   `env:"CHANNEL" envDefault:"state"`
	ObjectTypes []string `env:"OBJECT_TYPES" envSeparator:","`
}

// Config is the full process configuration.
type Config struct {
	MediumDriver  string         `env:"MEDIUM" envDefault:"memory"`
	SQLitePath    string         `env:"SQLITE_PATH" envDefault:"wedding-state.db"`
	Redis         RedisConfig    `envPrefix:"REDIS_"`
	WriteTimeout  time.Duration  `env:"WRITE_TIMEOUT" envDefault:"2s"`
	CountdownTick time.Duration  `env:"COUNTDOWN_TICK" envDefault:"1s"`
	DefaultTheme  string         `env:"DEFAULT_THEME" envDefault:"light"`
	PersistDraft  bool           `env:"PERSIST_DRAFT" envDefault:"false"`
	GateEngine    string         `env:"GATE_ENGINE" envDefault:"expr"`
	LogLevel      string         `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string         `env:"LOG_FORMAT" envDefault:"text"`
	Activity      ActivityConfig `envPrefix:"ACTIVITY_"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads values from environ instead of the process environment.
// Keys carry the full prefixed name.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated and positive values.
func (c Config) Validate() error {
	var errs []error
	switch c.MediumDriver {
	case medium.DriverMemory, medium.DriverSQLite, medium.DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown medium %q", c.MediumDriver))
	}
	if c.MediumDriver == medium.DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		errs = append(errs, errors.New("sqlite path is required"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("write timeout must be positive"))
	}
	if c.CountdownTick <= 0 {
		errs = append(errs, errors.New("countdown tick must be positive"))
	}
	if _, err := theme.ParseMode(c.DefaultTheme); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.GateEngine) {
	case gate.EngineExpr, gate.EngineCEL, gate.EngineJS:
	default:
		errs = append(errs, fmt.Errorf("unknown gate engine %q", c.GateEngine))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", errors.Join(errs...))
}

// Medium returns the medium selection.
func (c Config) Medium() medium.Config {
	return medium.Config{
		Driver:     c.MediumDriver,
		SQLitePath: c.SQLitePath,
		Redis: medium.RedisOptions{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
	}
}

// Theme returns the first-run theme mode.
func (c Config) Theme() theme.Mode {
	mode, err := theme.ParseMode(c.DefaultTheme)
	if err != nil {
		return theme.DefaultMode
	}
	return mode
}

// Level returns the configured slog level, info when unparseable.
func (c Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a logger writing to w in the configured format.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(text string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(text))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", text)
	}
	return level, nil
}
