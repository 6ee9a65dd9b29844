package medium

import (
	"context"
	"fmt"
	"strings"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config selects and configures a medium. It mirrors the persistence section
// of pkg/config so callers can pass it through unchanged.
type Config struct {
	Driver     string
	SQLitePath string
	Redis      RedisOptions
}

// Open builds the medium named by cfg.Driver. Redis connectivity is checked
// eagerly so a misconfigured server surfaces at startup instead of on the
// first write.
func Open(ctx context.Context, cfg Config) (Medium, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case DriverRedis:
		r, err := NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("medium: unsupported driver %q", cfg.Driver)
	}
}
